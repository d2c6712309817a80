package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

func reportsCmd(debug *bool) *cobra.Command {
	var workspace string

	c := &cobra.Command{
		Use:   "reports",
		Short: "Inspect saved batch reports",
	}
	c.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace root (optional; autodetected if omitted)")

	c.AddCommand(reportsListCmd(&workspace, debug), reportsShowCmd(&workspace, debug))
	return c
}

func reportsListCmd(workspace *string, debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List batch reports, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := loadWorkspace(*workspace, *debug)
			if err != nil {
				return err
			}
			defer ws.Close()

			refs, err := ws.reports.ListReports()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(refs) == 0 {
				fmt.Fprintln(w, "(no reports found)")
				return nil
			}

			fmt.Fprintf(w, "Workspace: %s\n\n", ws.root)
			for _, r := range refs {
				fmt.Fprintf(w, "- %s  %s  ok=%d skipped=%d failed=%d\n",
					r.ID,
					r.StartedAt.Local().Format(time.DateTime),
					r.Counts.OK, r.Counts.Skipped, r.Counts.Failed,
				)
			}
			return nil
		},
	}
}

func reportsShowCmd(workspace *string, debug *bool) *cobra.Command {
	var query string
	var format string

	c := &cobra.Command{
		Use:   "show ID",
		Short: "Show one report (ID or batch id prefix)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}

			ws, err := loadWorkspace(*workspace, *debug)
			if err != nil {
				return err
			}
			defer ws.Close()

			w := cmd.OutOrStdout()
			if query != "" {
				v, err := ws.reports.Query(args[0], query)
				if err != nil {
					return err
				}
				return printQueryValue(w, v)
			}

			b, err := ws.reports.LoadReport(args[0])
			if err != nil {
				return err
			}
			return printBatch(w, b, format)
		},
	}

	c.Flags().StringVarP(&query, "query", "q", "", "JSONPath expression evaluated against the report (e.g. $.counts.failed)")
	c.Flags().StringVar(&format, "format", "pretty", "Output format: pretty|json")
	return c
}

// printQueryValue prints strings bare and everything else as JSON.
func printQueryValue(w io.Writer, v any) error {
	if s, ok := v.(string); ok {
		_, err := fmt.Fprintln(w, s)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
