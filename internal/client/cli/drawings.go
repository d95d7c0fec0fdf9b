package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newListCmd(app *App) *cobra.Command {
	var (
		state string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your drawings, newest first",
		Long: `List your drawings, newest first.

Examples:
  drawctl list
  drawctl list --state processing -n 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			drawings, err := app.client().List(cmd.Context(), state, limit)
			if err != nil {
				return err
			}
			if len(drawings) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no drawings")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSTATE\tPROGRESS\tUPLOADED")
			for _, d := range drawings {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%s\n",
					d.ID, d.Name, d.State, d.Progress, d.UploadedAt.Local().Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&state, "state", "s", "", "only drawings in this state")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "max results")
	return cmd
}

func newGetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <drawing-id>",
		Short: "Print one drawing as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.client().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(d)
		},
	}
}

func newDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <drawing-id>",
		Short: "Delete a drawing and its stored file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := args[0]
			if err := app.client().Delete(ctx, id); err != nil {
				return err
			}
			hist, err := app.history(ctx)
			if err != nil {
				return err
			}
			if err := hist.Forget(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			return nil
		},
	}
}

func newDownloadCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "download <drawing-id>",
		Short: "Print a short-lived download URL of the original file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := app.client().DownloadURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}
}

func newHistoryCmd(app *App) *cobra.Command {
	var forget string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the drawings remembered locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			hist, err := app.history(ctx)
			if err != nil {
				return err
			}
			if forget != "" {
				return hist.Forget(ctx, forget)
			}

			watches, err := hist.List(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFILE\tSTATE\tPROGRESS\tSEEN")
			for _, w := range watches {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%s\n",
					w.DrawingID, w.FileName, w.State, w.Progress, w.UpdatedAt.Local().Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&forget, "forget", "", "drop one drawing from the history")
	return cmd
}
