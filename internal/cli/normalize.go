package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aalvaropc/procblock/internal/domain"
	"github.com/aalvaropc/procblock/internal/infra/logger"
)

func normalizeCmd(debug *bool) *cobra.Command {
	var workspace string
	var block string
	var out string
	var policy string
	var dryRun bool
	var format string

	c := &cobra.Command{
		Use:   "normalize FILE",
		Short: "Explode and normalize one block of a single drawing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}

			ws, err := loadWorkspace(workspace, *debug)
			if err != nil {
				return err
			}
			defer ws.Close()

			path, err := resolveDrawingPath(ws, args[0])
			if err != nil {
				return err
			}

			p, err := parsePolicy(policy, ws.cfg.Normalize.CommitPolicy)
			if err != nil {
				return err
			}
			ncfg := ws.cfg.Normalize
			ncfg.CommitPolicy = p

			name := strings.TrimSpace(block)
			if name == "" {
				name = equipmentNumber(path)
			}

			w := cmd.OutOrStdout()
			uc := newNormalizer(ncfg, diagnosticsFor(w, format), logger.L())

			d, err := ws.store.Open(path)
			if err != nil {
				return err
			}

			res, err := uc.Execute(cmd.Context(), d, name)
			if err != nil {
				_ = printNormalize(w, path, "", res, format)
				return err
			}

			target := ""
			if !dryRun && (res.Changed() || ncfg.SaveUnchanged || out != "") {
				target = path
				if strings.TrimSpace(out) != "" {
					target, err = filepath.Abs(out)
					if err != nil {
						return fmt.Errorf("invalid output path: %w", err)
					}
				}
				if err := ws.store.Save(d, target); err != nil {
					return err
				}
			}

			if err := printNormalize(w, path, target, res, format); err != nil {
				return err
			}
			if res.Error != nil {
				return fmt.Errorf("normalize %s: partially applied: %s", name, res.Error.Message)
			}
			return nil
		},
	}

	c.Flags().StringVarP(&workspace, "workspace", "w", "", "Workspace root (optional; autodetected if omitted)")
	c.Flags().StringVarP(&block, "block", "b", "", "Block name (defaults to the file name without extension)")
	c.Flags().StringVarP(&out, "out", "o", "", "Write the result here instead of overwriting FILE")
	c.Flags().StringVar(&policy, "policy", "", "Commit policy: atomic|lenient (defaults to normalize.commit_policy)")
	c.Flags().BoolVar(&dryRun, "dry-run", false, "Normalize in memory without saving")
	c.Flags().StringVar(&format, "format", "pretty", "Output format: pretty|json")
	return c
}

func equipmentNumber(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

type normalizeOutput struct {
	Path          string   `json:"path"`
	SavedTo       string   `json:"saved_to,omitempty"`
	Block         string   `json:"block"`
	Policy        string   `json:"policy"`
	Found         bool     `json:"found"`
	Placements    int      `json:"placements"`
	Entities      int      `json:"entities"`
	Reassigned    int      `json:"reassigned"`
	LayersCreated []string `json:"layers_created,omitempty"`
	LayersReused  []string `json:"layers_reused,omitempty"`
	Committed     bool     `json:"committed"`
	ErrorKind     string   `json:"error_kind,omitempty"`
	Error         string   `json:"error,omitempty"`
}

func printNormalize(w io.Writer, path, savedTo string, res domain.NormalizeResult, format string) error {
	if format == "json" {
		o := normalizeOutput{
			Path:          path,
			SavedTo:       savedTo,
			Block:         res.Block,
			Policy:        string(res.Policy),
			Found:         res.Found,
			Placements:    res.Placements,
			Entities:      res.Entities,
			Reassigned:    res.Reassigned,
			LayersCreated: res.LayersCreated,
			LayersReused:  res.LayersReused,
			Committed:     res.Committed,
		}
		if res.Error != nil {
			o.ErrorKind = string(res.Error.Kind)
			o.Error = res.Error.Message
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(o)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Drawing: %s\n", path)
	fmt.Fprintf(w, "Block:   %s\n", res.Block)
	if !res.Found {
		fmt.Fprintln(w, "Result:  block not found, drawing unchanged")
		return nil
	}
	fmt.Fprintf(w, "Result:  placements=%d entities=%d reassigned=%d\n", res.Placements, res.Entities, res.Reassigned)
	if len(res.LayersCreated) > 0 {
		fmt.Fprintf(w, "Created: %s\n", strings.Join(res.LayersCreated, ", "))
	}
	if len(res.LayersReused) > 0 {
		fmt.Fprintf(w, "Reused:  %s\n", strings.Join(res.LayersReused, ", "))
	}
	if savedTo != "" {
		fmt.Fprintf(w, "Saved:   %s\n", savedTo)
	}
	return nil
}
