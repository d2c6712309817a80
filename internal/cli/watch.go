package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aalvaropc/procblock/internal/domain"
	"github.com/aalvaropc/procblock/internal/infra/logger"
	"github.com/aalvaropc/procblock/internal/infra/watcher"
)

func watchCmd(debug *bool) *cobra.Command {
	var workspace string
	var input string
	var policy string
	var debounce time.Duration
	var skipInitial bool

	c := &cobra.Command{
		Use:   "watch",
		Short: "Watch the input directory and normalize drawings as they change",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := loadWorkspace(workspace, *debug)
			if err != nil {
				return err
			}
			defer ws.Close()

			inputDir, err := resolveInputDir(ws, input)
			if err != nil {
				return err
			}

			p, err := parsePolicy(policy, ws.cfg.Normalize.CommitPolicy)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			uc := newBatch(ws, batchSettings{policy: p}, diagnosticsFor(out, "pretty"), nil)

			if !skipInitial {
				batch, err := uc.Execute(ctx, inputDir)
				if err != nil {
					return err
				}
				printPrettyBatch(out, batch)
			}

			w := watcher.New(inputDir, ws.source.Matches,
				watcher.WithDebounce(debounce),
				watcher.WithLogger(logger.L()),
			)
			w.Remember()

			fmt.Fprintf(out, "\nWatching %s (ctrl+c to stop)\n", inputDir)

			return w.Run(ctx, func(ctx context.Context, changed []string) error {
				batch, err := uc.ExecuteRefs(ctx, inputDir, refsFor(changed))
				printWatchBatch(out, batch)
				return err
			})
		},
	}

	c.Flags().StringVarP(&workspace, "workspace", "w", "", "Workspace root (optional; autodetected if omitted)")
	c.Flags().StringVarP(&input, "input", "i", "", "Input directory (defaults to paths.input_dir)")
	c.Flags().StringVar(&policy, "policy", "", "Commit policy: atomic|lenient (defaults to normalize.commit_policy)")
	c.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Wait this long after the last change before processing")
	c.Flags().BoolVar(&skipInitial, "skip-initial", false, "Do not process existing drawings before watching")
	return c
}

func refsFor(paths []string) []domain.DrawingRef {
	refs := make([]domain.DrawingRef, 0, len(paths))
	for _, p := range paths {
		refs = append(refs, domain.DrawingRef{
			Path:            p,
			EquipmentNumber: equipmentNumber(p),
		})
	}
	return refs
}

func printWatchBatch(w io.Writer, b domain.BatchResult) {
	names := make([]string, 0, len(b.Files))
	for _, f := range b.Files {
		names = append(names, filepath.Base(f.Path))
	}
	fmt.Fprintf(w, "\n[%s] changed: %s\n", time.Now().Format("15:04:05"), strings.Join(names, ", "))
	for _, f := range b.Files {
		printFileLine(w, f)
	}
}
