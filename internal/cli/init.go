package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aalvaropc/procblock/internal/buildinfo"
	"github.com/aalvaropc/procblock/internal/infra/fsworkspace"
	"github.com/aalvaropc/procblock/internal/usecase"
)

func initCmd() *cobra.Command {
	var force bool

	c := &cobra.Command{
		Use:   "init [DIR]",
		Short: "Create a procblock workspace (procblock.yaml, input/, reports/)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			root, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("invalid workspace path: %w", err)
			}
			if err := os.MkdirAll(root, 0o755); err != nil {
				return fmt.Errorf("create workspace dir: %w", err)
			}

			uc := usecase.NewInitWorkspace(fsworkspace.NewInitializer())
			if err := uc.Execute(root, force); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Workspace ready: %s\n", root)
			return nil
		},
	}

	c.Flags().BoolVar(&force, "force", false, "Overwrite procblock.yaml and the sample drawing")
	return c
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
		},
	}
}
