package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aalvaropc/procblock/internal/infra/fsworkspace"
	"github.com/aalvaropc/procblock/internal/infra/logger"
	"github.com/aalvaropc/procblock/internal/infra/workspacefinder"
	"github.com/aalvaropc/procblock/internal/ports"
	"github.com/aalvaropc/procblock/internal/ui/tui"
	"github.com/aalvaropc/procblock/internal/usecase"
)

func Execute() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var debug bool
	var workspace string

	cmd := &cobra.Command{
		Use:          "procblock",
		Short:        "procblock: explode equipment blocks and normalize their linetypes",
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			ws, err := loadWorkspace(workspace, debug)
			if err != nil {
				return err
			}
			defer ws.Close()

			inputDir := ws.abs(ws.cfg.Paths.InputDir)

			deps := tui.Deps{
				WorkspaceLocator:     workspacefinder.NewFinder(),
				WorkspaceInitializer: fsworkspace.NewInitializer(),
				Reports:              ws.reports,
				Root:                 ws.root,
				WorkspaceFound:       ws.found,
				InputDir:             inputDir,
				Policy:               ws.cfg.Normalize.CommitPolicy,
				NewBatch: func(diag ports.Diagnostics, obs usecase.BatchObserver, dryRun bool) tui.BatchRunner {
					return newBatch(ws, batchSettings{dryRun: dryRun}, diag, obs)
				},
				Logger: logger.L(),
				Debug:  debug,
			}

			return tui.Run(deps)
		},
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable verbose logging to .procblock/logs/procblock.log")
	cmd.Flags().StringVarP(&workspace, "workspace", "w", "", "Workspace root (optional; autodetected if omitted)")

	cmd.AddCommand(
		runCmd(&debug),
		normalizeCmd(&debug),
		watchCmd(&debug),
		reportsCmd(&debug),
		initCmd(),
		versionCmd(),
	)
	return cmd
}
