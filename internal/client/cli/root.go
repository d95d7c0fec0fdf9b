package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/drawkeeper/internal/client/config"
)

var Version = "dev"

// NewRootCommand assembles drawctl around app. The persistent flags write
// straight into app's config.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "drawctl",
		Short: "Upload CAD drawings to drawkeeper and follow their translation",
		Long: `drawctl talks to the drawkeeper HTTP API.

Settings come from defaults, then the JSON file given with -c, then flags.

Examples:
  drawctl upload plan.dwg --watch
  drawctl watch
  drawctl list --state failed`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = app.Close()
		},
	}

	config.BindFlags(root.PersistentFlags(), app.config)

	root.AddCommand(
		newUploadCmd(app),
		newStatusCmd(app),
		newCheckCmd(app),
		newWatchCmd(app),
		newListCmd(app),
		newGetCmd(app),
		newDeleteCmd(app),
		newDownloadCmd(app),
		newHistoryCmd(app),
		newTokenCmd(),
	)
	return root
}

// Execute loads the configuration for args and runs the matching command.
func Execute(ctx context.Context, args []string) error {
	cfg, err := config.LoadConfig(args)
	if err != nil {
		return err
	}
	app := NewApp(cfg)
	defer app.Close()

	root := NewRootCommand(app)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
