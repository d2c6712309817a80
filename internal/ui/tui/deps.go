package tui

import (
	"context"
	"log/slog"

	"github.com/aalvaropc/procblock/internal/domain"
	"github.com/aalvaropc/procblock/internal/ports"
	"github.com/aalvaropc/procblock/internal/usecase"
)

// BatchRunner processes one input directory.
type BatchRunner interface {
	Execute(ctx context.Context, inputDir string) (domain.BatchResult, error)
}

type Deps struct {
	WorkspaceLocator     ports.WorkspaceLocator
	WorkspaceInitializer ports.WorkspaceInitializer
	Reports              ports.ReportStore

	Root           string
	WorkspaceFound bool
	InputDir       string
	Policy         domain.CommitPolicy

	// NewBatch builds a runner reporting to diag and obs.
	NewBatch func(diag ports.Diagnostics, obs usecase.BatchObserver, dryRun bool) BatchRunner

	Logger *slog.Logger
	Debug  bool
}
