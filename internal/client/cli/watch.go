package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/drawkeeper/internal/client/models"
	"github.com/dmitrijs2005/drawkeeper/internal/client/services"
)

// ErrTranslationFailed is returned when a watched drawing ends up failed.
var ErrTranslationFailed = errors.New("translation failed")

func newWatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [drawing-id...]",
		Short: "Poll drawings until their translation finishes",
		Long: `Poll drawings until their translation succeeds or fails.

Without arguments every drawing of the local history that is not finished
yet is resumed.

Examples:
  drawctl watch 6f1c0d2e-...
  drawctl watch -i 10s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, app, args)
		},
	}
}

func runWatch(cmd *cobra.Command, app *App, ids []string) error {
	ctx := cmd.Context()
	hist, err := app.history(ctx)
	if err != nil {
		return err
	}

	rep := services.NewLineReporter(cmd.OutOrStdout())
	w := services.NewWatcher(app.client(), hist, rep, app.config.PollInterval)

	var results []*models.Status
	if len(ids) == 0 {
		results, err = w.Resume(ctx)
		if err == nil && len(results) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "nothing to watch")
		}
	} else {
		results, err = w.Watch(ctx, ids...)
	}
	rep.Finish()
	if err != nil {
		return err
	}

	failed := 0
	for _, st := range results {
		if st != nil && st.State == models.StateFailed {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d drawings", ErrTranslationFailed, failed, len(results))
	}
	return nil
}
