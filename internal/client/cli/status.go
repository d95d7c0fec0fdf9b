package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/drawkeeper/internal/client/services"
)

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status <urn>",
		Short: "Reconcile a drawing by its translation urn",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.client().Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), services.FormatStatus(args[0], st))
			return nil
		},
	}
}

func newCheckCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check <drawing-id>",
		Short: "Reconcile one drawing once and remember the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := args[0]
			st, err := app.client().Check(ctx, id)
			if err != nil {
				return err
			}
			hist, err := app.history(ctx)
			if err != nil {
				return err
			}
			if err := hist.UpdateStatus(ctx, id, st, time.Now()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), services.FormatStatus(id, st))
			return nil
		},
	}
}
