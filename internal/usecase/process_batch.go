package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aalvaropc/procblock/internal/domain"
	"github.com/aalvaropc/procblock/internal/ports"
)

// MainProcessFailure is the diagnostic printed when processing a file panics.
const MainProcessFailure = "something went wrong in main process"

// BatchObserver receives progress while a batch runs. Calls happen on the
// goroutine running Execute.
type BatchObserver interface {
	BatchStarted(id string, total int)
	FileStarted(index int, ref domain.DrawingRef)
	FileDone(index int, result domain.FileResult)
}

// Assembler inserts processed drawings into one assembly drawing.
type Assembler interface {
	Execute(ctx context.Context, files []domain.FileResult, outputPath string) (int, error)
}

// ProcessBatch runs the block normalizer over every drawing of an input
// directory, one file at a time. A failing file never stops the batch.
type ProcessBatch struct {
	source     ports.DrawingSource
	store      ports.DrawingStore
	normalizer *NormalizeBlock

	reports  ports.ReportStore
	errs     ports.ErrorLog
	observer BatchObserver
	diag     ports.Diagnostics
	log      *slog.Logger

	assembler    Assembler
	assemblyPath string

	dryRun        bool
	saveUnchanged bool
	policy        domain.CommitPolicy

	newID func() string
	now   func() time.Time
}

type BatchOption func(*ProcessBatch)

func WithReportStore(s ports.ReportStore) BatchOption {
	return func(uc *ProcessBatch) { uc.reports = s }
}

func WithErrorLog(l ports.ErrorLog) BatchOption {
	return func(uc *ProcessBatch) { uc.errs = l }
}

func WithObserver(o BatchObserver) BatchOption {
	return func(uc *ProcessBatch) { uc.observer = o }
}

func WithBatchDiagnostics(d ports.Diagnostics) BatchOption {
	return func(uc *ProcessBatch) {
		if d != nil {
			uc.diag = d
		}
	}
}

func WithBatchLogger(l *slog.Logger) BatchOption {
	return func(uc *ProcessBatch) {
		if l != nil {
			uc.log = l
		}
	}
}

// WithAssembly inserts every ok or skipped drawing into outputPath once the
// batch is done. Ignored on dry runs.
func WithAssembly(a Assembler, outputPath string) BatchOption {
	return func(uc *ProcessBatch) {
		uc.assembler = a
		uc.assemblyPath = outputPath
	}
}

func WithDryRun(dry bool) BatchOption {
	return func(uc *ProcessBatch) { uc.dryRun = dry }
}

func WithSaveUnchanged(save bool) BatchOption {
	return func(uc *ProcessBatch) { uc.saveUnchanged = save }
}

func WithClock(now func() time.Time) BatchOption {
	return func(uc *ProcessBatch) {
		if now != nil {
			uc.now = now
		}
	}
}

func WithIDGenerator(gen func() string) BatchOption {
	return func(uc *ProcessBatch) {
		if gen != nil {
			uc.newID = gen
		}
	}
}

func NewProcessBatch(src ports.DrawingSource, store ports.DrawingStore, n *NormalizeBlock, opts ...BatchOption) *ProcessBatch {
	uc := &ProcessBatch{
		source:     src,
		store:      store,
		normalizer: n,
		diag:       nopDiagnostics{},
		log:        slog.New(slog.NewJSONHandler(io.Discard, nil)),
		newID:      uuid.NewString,
		now:        time.Now,
	}
	if n != nil {
		uc.policy = n.cfg.CommitPolicy
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Execute processes inputDir. The returned error is reserved for failures of
// the batch itself (discovery, cancellation, persisting the report); per-file
// failures are recorded in the result.
func (uc *ProcessBatch) Execute(ctx context.Context, inputDir string) (domain.BatchResult, error) {
	refs, err := uc.source.Discover(inputDir)
	if err != nil {
		return domain.BatchResult{}, err
	}
	return uc.ExecuteRefs(ctx, inputDir, refs)
}

// ExecuteRefs processes an explicit list of drawings, as the watch mode does
// for the files that changed.
func (uc *ProcessBatch) ExecuteRefs(ctx context.Context, inputDir string, refs []domain.DrawingRef) (domain.BatchResult, error) {
	batch := domain.BatchResult{
		ID:        uc.newID(),
		InputDir:  inputDir,
		Policy:    uc.policy,
		DryRun:    uc.dryRun,
		StartedAt: uc.now(),
		Files:     make([]domain.FileResult, 0, len(refs)),
	}
	uc.log.Info("batch.started", "batch_id", batch.ID, "input_dir", inputDir, "files", len(refs), "dry_run", uc.dryRun)
	if uc.observer != nil {
		uc.observer.BatchStarted(batch.ID, len(refs))
	}

	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			batch.EndedAt = uc.now()
			return batch, err
		}

		if uc.observer != nil {
			uc.observer.FileStarted(i, ref)
		}
		fr := uc.processFile(ctx, ref)
		batch.Files = append(batch.Files, fr)
		if uc.observer != nil {
			uc.observer.FileDone(i, fr)
		}

		uc.log.Info("batch.file.done",
			"batch_id", batch.ID,
			"path", fr.Path,
			"status", string(fr.Status),
			"saved", fr.Saved,
			"duration_ms", fr.EndedAt.Sub(fr.StartedAt).Milliseconds(),
		)
	}

	if uc.assembler != nil && uc.assemblyPath != "" && !uc.dryRun {
		placed, err := uc.assembler.Execute(ctx, batch.Files, uc.assemblyPath)
		if err != nil {
			uc.appendError(ports.CategoryMain, uc.assemblyPath, err)
			uc.log.Error("batch.assembly.failed", "batch_id", batch.ID, "path", uc.assemblyPath, "err", err)
		} else if placed > 0 {
			batch.AssemblyPath = uc.assemblyPath
		}
	}

	batch.EndedAt = uc.now()
	c := batch.Counts()
	uc.log.Info("batch.done", "batch_id", batch.ID, "ok", c.OK, "skipped", c.Skipped, "failed", c.Failed)

	if uc.reports != nil {
		id, err := uc.reports.SaveReport(batch)
		if err != nil {
			return batch, err
		}
		batch.ReportID = id
	}
	return batch, nil
}

// processFile never panics: an unexpected panic is turned into a failed result
// and logged to the main error log.
func (uc *ProcessBatch) processFile(ctx context.Context, ref domain.DrawingRef) (fr domain.FileResult) {
	fr = domain.FileResult{
		Path:            ref.Path,
		EquipmentNumber: ref.EquipmentNumber,
		StartedAt:       uc.now(),
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic while processing %s: %v", ref.Path, r)
			uc.diag.Printf("%s", MainProcessFailure)
			uc.appendError(ports.CategoryMain, ref.Path, err)
			uc.log.Error("batch.file.panic", "path", ref.Path, "panic", fmt.Sprint(r))
			fr.Status = domain.FileFailed
			fr.Error = err.Error()
			fr.Saved = false
		}
		fr.EndedAt = uc.now()
	}()

	fail := func(err error) domain.FileResult {
		uc.appendError(ports.CategoryBlock, ref.EquipmentNumber, err)
		uc.log.Error("batch.file.failed", "path", ref.Path, "kind", string(domain.KindOf(err)), "err", err)
		fr.Status = domain.FileFailed
		fr.Error = err.Error()
		return fr
	}

	d, err := uc.store.Open(ref.Path)
	if err != nil {
		return fail(err)
	}

	res, err := uc.normalizer.Execute(ctx, d, ref.EquipmentNumber)
	fr.Normalize = res
	if err != nil {
		return fail(err)
	}
	if res.Error != nil {
		// Lenient policy: the partial work was committed and gets saved.
		uc.appendError(ports.CategoryBlock, ref.EquipmentNumber, fmt.Errorf("%s", res.Error.Message))
		fr.Error = res.Error.Message
	}

	fr.Status = domain.FileOK
	if !res.Found {
		fr.Status = domain.FileSkipped
	}

	if uc.dryRun || !(res.Changed() || uc.saveUnchanged) {
		return fr
	}
	if err := uc.store.Save(d, ref.Path); err != nil {
		return fail(err)
	}
	fr.Saved = true
	return fr
}

func (uc *ProcessBatch) appendError(cat ports.ErrorCategory, subject string, err error) {
	if uc.errs == nil {
		return
	}
	if lerr := uc.errs.Append(cat, subject, err); lerr != nil {
		uc.log.Warn("errorlog.append.failed", "category", string(cat), "err", lerr)
	}
}
