package domain

import "time"

// CommitPolicy decides what happens to a block's unit of work when a step fails.
type CommitPolicy string

const (
	// PolicyAtomic rolls the whole block back on any failure.
	PolicyAtomic CommitPolicy = "atomic"
	// PolicyLenient commits whatever was built before the failure.
	PolicyLenient CommitPolicy = "lenient"
)

func (p CommitPolicy) Valid() bool {
	return p == PolicyAtomic || p == PolicyLenient
}

// NormalizeError is the structured form of a failed normalization.
type NormalizeError struct {
	Kind    ErrorKind
	Message string
}

func NewNormalizeError(err error) *NormalizeError {
	if err == nil {
		return nil
	}
	return &NormalizeError{Kind: KindOf(err), Message: err.Error()}
}

// NormalizeResult describes what one normalize call did to one drawing.
type NormalizeResult struct {
	Block  string
	Policy CommitPolicy

	Found      bool
	Placements int
	Entities   int
	Reassigned int

	LayersCreated []string
	LayersReused  []string

	Committed   bool
	Diagnostics []string
	Error       *NormalizeError
}

// Changed reports whether the drawing was mutated and needs saving.
func (r NormalizeResult) Changed() bool {
	return len(r.LayersCreated) > 0 || (r.Committed && r.Found)
}

type FileStatus string

const (
	FileOK      FileStatus = "ok"
	FileSkipped FileStatus = "skipped"
	FileFailed  FileStatus = "failed"
)

// FileResult is the outcome of processing one input drawing.
type FileResult struct {
	Path            string
	EquipmentNumber string
	Status          FileStatus
	Saved           bool

	Normalize NormalizeResult
	Error     string

	StartedAt time.Time
	EndedAt   time.Time
}

// BatchResult is the outcome of one pass over an input directory.
type BatchResult struct {
	ID       string
	InputDir string
	Policy   CommitPolicy
	DryRun   bool

	StartedAt time.Time
	EndedAt   time.Time

	Files        []FileResult
	AssemblyPath string

	// ReportID is set once the batch has been persisted.
	ReportID string
}

type BatchCounts struct {
	OK      int
	Skipped int
	Failed  int
}

func (b BatchResult) Counts() BatchCounts {
	var c BatchCounts
	for _, f := range b.Files {
		switch f.Status {
		case FileOK:
			c.OK++
		case FileSkipped:
			c.Skipped++
		case FileFailed:
			c.Failed++
		}
	}
	return c
}

// BatchRef identifies a persisted batch report.
type BatchRef struct {
	ID        string
	Path      string
	InputDir  string
	StartedAt time.Time
	Counts    BatchCounts
}
