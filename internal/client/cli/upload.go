package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/drawkeeper/internal/client/client"
	"github.com/dmitrijs2005/drawkeeper/internal/client/models"
)

func newUploadCmd(app *App) *cobra.Command {
	var (
		opts  client.UploadOptions
		watch bool
	)
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a drawing and queue its translation",
		Long: `Upload a drawing and queue its translation.

The server accepts the common CAD formats (dwg, dxf, rvt, ifc, step, ...).

Examples:
  drawctl upload plan.dwg
  drawctl upload plan.dwg --name "Ground floor" --project p-17 --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]

			id, err := app.client().Upload(ctx, path, opts)
			if err != nil {
				return fmt.Errorf("upload %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s as %s\n", filepath.Base(path), id)

			hist, err := app.history(ctx)
			if err != nil {
				return err
			}
			err = hist.Remember(ctx, &models.Watch{
				DrawingID: id,
				FileName:  filepath.Base(path),
				State:     models.StatePending,
				Progress:  5,
				UpdatedAt: time.Now(),
			})
			if err != nil {
				return err
			}

			if !watch {
				return nil
			}
			return runWatch(cmd, app, []string{id})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name (defaults to the file name)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "free-form description")
	cmd.Flags().StringVar(&opts.ProjectID, "project", "", "project the drawing belongs to")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "watch the translation until it finishes")
	return cmd
}
