package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aalvaropc/procblock/internal/domain"
	"github.com/aalvaropc/procblock/internal/infra/reportstore"
)

func runCmd(debug *bool) *cobra.Command {
	var workspace string
	var input string
	var dryRun bool
	var policy string
	var assemble string
	var noSave bool
	var format string

	c := &cobra.Command{
		Use:   "run",
		Short: "Normalize every drawing of the input directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}

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

			out := cmd.OutOrStdout()
			uc := newBatch(ws, batchSettings{
				policy:       p,
				dryRun:       dryRun,
				noReport:     noSave,
				assemblyPath: assemble,
			}, diagnosticsFor(out, format), nil)

			batch, err := uc.Execute(cmd.Context(), inputDir)
			if perr := printBatch(out, batch, format); perr != nil && err == nil {
				err = perr
			}
			if err != nil {
				return err
			}

			if n := batch.Counts().Failed; n > 0 {
				return fmt.Errorf("batch failed (%d failed file(s))", n)
			}
			return nil
		},
	}

	c.Flags().StringVarP(&workspace, "workspace", "w", "", "Workspace root (optional; autodetected if omitted)")
	c.Flags().StringVarP(&input, "input", "i", "", "Input directory (defaults to paths.input_dir)")
	c.Flags().BoolVar(&dryRun, "dry-run", false, "Normalize in memory without saving drawings")
	c.Flags().StringVar(&policy, "policy", "", "Commit policy: atomic|lenient (defaults to normalize.commit_policy)")
	c.Flags().StringVar(&assemble, "assemble", "", "Insert processed drawings into this assembly drawing (relative to the workspace root)")
	c.Flags().BoolVar(&noSave, "no-save-report", false, "Do not save the batch report under reports/")
	c.Flags().StringVar(&format, "format", "pretty", "Output format: pretty|json")
	return c
}

func checkFormat(format string) error {
	switch format {
	case "pretty", "json", "":
		return nil
	default:
		return fmt.Errorf("unsupported format %q (expected pretty|json)", format)
	}
}

func printBatch(w io.Writer, b domain.BatchResult, format string) error {
	switch format {
	case "json":
		return reportstore.WriteJSON(w, b)
	case "pretty", "":
		printPrettyBatch(w, b)
		return nil
	default:
		return fmt.Errorf("unsupported format %q (expected pretty|json)", format)
	}
}

func printPrettyBatch(w io.Writer, b domain.BatchResult) {
	total := b.EndedAt.Sub(b.StartedAt)
	if b.StartedAt.IsZero() || b.EndedAt.IsZero() {
		total = 0
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Input:    %s\n", b.InputDir)
	fmt.Fprintf(w, "Policy:   %s\n", b.Policy)
	if b.DryRun {
		fmt.Fprintf(w, "Dry run:  yes (nothing saved)\n")
	}
	fmt.Fprintf(w, "Started:  %s\n", b.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Duration: %s\n", total.Round(time.Millisecond))
	if b.ReportID != "" {
		fmt.Fprintf(w, "Report:   %s\n", b.ReportID)
	}
	fmt.Fprintln(w)

	for _, f := range b.Files {
		printFileLine(w, f)
	}

	if b.AssemblyPath != "" {
		fmt.Fprintf(w, "\nAssembly: %s\n", b.AssemblyPath)
	}

	c := b.Counts()
	fmt.Fprintf(w, "\nSummary: ok=%d skipped=%d failed=%d total=%d\n", c.OK, c.Skipped, c.Failed, len(b.Files))
}

func printFileLine(w io.Writer, f domain.FileResult) {
	fmt.Fprintf(w, "- [%s] %s", statusLabel(f.Status), f.EquipmentNumber)

	n := f.Normalize
	switch {
	case f.Status == domain.FileSkipped:
		fmt.Fprintf(w, " (block not found)")
	case n.Found:
		fmt.Fprintf(w, " placements=%d entities=%d reassigned=%d", n.Placements, n.Entities, n.Reassigned)
		if len(n.LayersCreated) > 0 {
			fmt.Fprintf(w, " new_layers=%s", strings.Join(n.LayersCreated, ","))
		}
	}
	if f.Saved {
		fmt.Fprintf(w, " saved")
	}
	fmt.Fprintln(w)

	if f.Error != "" {
		fmt.Fprintf(w, "    error: %s\n", f.Error)
	}
}

func statusLabel(s domain.FileStatus) string {
	switch s {
	case domain.FileOK:
		return "OK"
	case domain.FileSkipped:
		return "SKIP"
	case domain.FileFailed:
		return "FAIL"
	default:
		return strings.ToUpper(string(s))
	}
}
