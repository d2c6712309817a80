package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aalvaropc/procblock/internal/domain"
	"github.com/aalvaropc/procblock/internal/infra/config"
	"github.com/aalvaropc/procblock/internal/infra/diaglog"
	"github.com/aalvaropc/procblock/internal/infra/drawingfinder"
	"github.com/aalvaropc/procblock/internal/infra/drawingstore"
	"github.com/aalvaropc/procblock/internal/infra/logger"
	"github.com/aalvaropc/procblock/internal/infra/reportstore"
	"github.com/aalvaropc/procblock/internal/infra/workspacefinder"
	"github.com/aalvaropc/procblock/internal/ports"
	"github.com/aalvaropc/procblock/internal/usecase"
	"github.com/aalvaropc/procblock/internal/usecase/layers"
)

type workspaceCtx struct {
	root  string
	found bool
	cfg   domain.Config

	source  *drawingfinder.Finder
	store   *drawingstore.Store
	reports *reportstore.JSONStore
	errs    *diaglog.FileErrorLog

	cleanup func() error
}

// loadWorkspace resolves the workspace root, loads procblock.yaml over the
// defaults and sets the structured logger up. Outside a workspace the
// current directory is used with default settings.
func loadWorkspace(workspaceFlag string, debug bool) (*workspaceCtx, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	root, found := workspacefinder.NewFinder().Resolve(workspaceFlag, wd)

	cfg, err := config.LoadConfig(root)
	if err != nil && !domain.IsKind(err, domain.KindNotFound) {
		return nil, err
	}

	cleanup, lerr := logger.Setup(logger.Config{
		Root:  root,
		Dir:   cfg.Paths.LogsDir,
		Debug: debug,
	})
	if lerr != nil {
		cleanup = nil
	}

	source, err := drawingfinder.New(cfg.Discovery)
	if err != nil {
		closeLogger(cleanup)
		return nil, err
	}

	ws := &workspaceCtx{
		root:    root,
		found:   found,
		cfg:     cfg,
		source:  source,
		store:   drawingstore.New(),
		reports: reportstore.NewJSONStore(root, cfg),
		cleanup: cleanup,
	}
	ws.errs = diaglog.NewFileErrorLog(ws.abs(cfg.Paths.LogsDir))
	return ws, nil
}

func (ws *workspaceCtx) Close() {
	closeLogger(ws.cleanup)
}

func closeLogger(cleanup func() error) {
	if cleanup != nil {
		_ = cleanup()
	}
}

// abs resolves p against the workspace root.
func (ws *workspaceCtx) abs(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(ws.root, filepath.FromSlash(p))
}

// resolveInputDir picks the --input flag, or the configured input directory.
// Plain names are looked up under the workspace root first.
func resolveInputDir(ws *workspaceCtx, arg string) (string, error) {
	in := strings.TrimSpace(arg)
	if in == "" {
		in = ws.cfg.Paths.InputDir
	}

	var dir string
	switch {
	case filepath.IsAbs(in):
		dir = filepath.Clean(in)
	case looksLikePath(in):
		abs, err := filepath.Abs(in)
		if err != nil {
			return "", fmt.Errorf("invalid input path: %w", err)
		}
		dir = abs
	default:
		dir = ws.abs(in)
	}

	st, err := os.Stat(dir)
	if err != nil {
		return "", &domain.OpError{Op: "cli.input_dir", Kind: domain.KindNotFound, Path: dir, Err: err}
	}
	if !st.IsDir() {
		return "", &domain.OpError{Op: "cli.input_dir", Kind: domain.KindInvalidConfig, Path: dir, Err: fmt.Errorf("not a directory")}
	}
	return dir, nil
}

// resolveDrawingPath accepts a path, or an equipment number looked up in
// the input directory with any supported extension.
func resolveDrawingPath(ws *workspaceCtx, arg string) (string, error) {
	in := strings.TrimSpace(arg)
	if in == "" {
		return "", fmt.Errorf("drawing file is required")
	}

	if looksLikePath(in) || hasDrawingExt(in) {
		p, err := filepath.Abs(in)
		if err != nil {
			return "", fmt.Errorf("invalid drawing path: %w", err)
		}
		if fileExists(p) {
			return p, nil
		}
		if !looksLikePath(in) {
			if q := ws.abs(filepath.Join(ws.cfg.Paths.InputDir, in)); fileExists(q) {
				return q, nil
			}
		}
		return "", &domain.OpError{Op: "cli.drawing", Kind: domain.KindNotFound, Path: p, Err: os.ErrNotExist}
	}

	inputDir := ws.abs(ws.cfg.Paths.InputDir)
	for _, ext := range []string{".dxf", ".yaml", ".yml"} {
		p := filepath.Join(inputDir, in+ext)
		if fileExists(p) {
			return p, nil
		}
	}
	return "", &domain.OpError{Op: "cli.drawing", Kind: domain.KindNotFound, Path: filepath.Join(inputDir, in), Err: os.ErrNotExist}
}

// parsePolicy returns the configured policy when flag is empty.
func parsePolicy(flag string, fallback domain.CommitPolicy) (domain.CommitPolicy, error) {
	p := domain.CommitPolicy(strings.ToLower(strings.TrimSpace(flag)))
	if p == "" {
		return fallback, nil
	}
	if !p.Valid() {
		return "", fmt.Errorf("unsupported policy %q (expected atomic|lenient)", flag)
	}
	return p, nil
}

// newNormalizer wires the block normalizer and its layer resolver to the
// same diagnostics sink.
func newNormalizer(cfg domain.NormalizeConfig, diag ports.Diagnostics, log *slog.Logger) *usecase.NormalizeBlock {
	resolver := layers.NewResolver(
		layers.WithDiagnostics(diag),
		layers.WithLogger(log),
	)
	return usecase.NewNormalizeBlock(cfg,
		usecase.WithLayerResolver(resolver),
		usecase.WithDiagnostics(diag),
		usecase.WithLogger(log),
	)
}

// batchSettings are the run flags shared by run, watch and the TUI.
type batchSettings struct {
	policy       domain.CommitPolicy
	dryRun       bool
	noReport     bool
	assemblyPath string
}

// newBatch builds the orchestrator for this workspace.
func newBatch(ws *workspaceCtx, s batchSettings, diag ports.Diagnostics, obs usecase.BatchObserver) *usecase.ProcessBatch {
	log := logger.L()

	ncfg := ws.cfg.Normalize
	if s.policy != "" {
		ncfg.CommitPolicy = s.policy
	}

	opts := []usecase.BatchOption{
		usecase.WithErrorLog(ws.errs),
		usecase.WithBatchDiagnostics(diag),
		usecase.WithBatchLogger(log),
		usecase.WithDryRun(s.dryRun),
		usecase.WithSaveUnchanged(ncfg.SaveUnchanged),
	}
	if obs != nil {
		opts = append(opts, usecase.WithObserver(obs))
	}
	if ws.cfg.Reports.Enabled && !s.noReport {
		opts = append(opts, usecase.WithReportStore(ws.reports))
	}

	out := strings.TrimSpace(s.assemblyPath)
	if out == "" && ws.cfg.Assembly.Enabled {
		out = ws.cfg.Assembly.Output
	}
	if out != "" {
		asm := usecase.NewAssembleDrawings(ws.store, ws.cfg.Assembly,
			usecase.WithAssembleDiagnostics(diag),
			usecase.WithAssembleLogger(log),
		)
		opts = append(opts, usecase.WithAssembly(asm, ws.abs(out)))
	}

	return usecase.NewProcessBatch(ws.source, ws.store, newNormalizer(ncfg, diag, log), opts...)
}

// diagnosticsFor prints diagnostics to out unless the output is machine readable.
func diagnosticsFor(out io.Writer, format string) *diaglog.Writer {
	if format == "json" {
		return diaglog.NewWriter(io.Discard, logger.L())
	}
	return diaglog.NewWriter(out, logger.L())
}

func looksLikePath(s string) bool {
	return strings.Contains(s, "/") || strings.Contains(s, string(filepath.Separator))
}

func hasDrawingExt(s string) bool {
	return drawingstore.Supported(s)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
