package reportstore

import (
	"time"

	"github.com/aalvaropc/procblock/internal/domain"
)

// On-disk report layout. Field names are the public JSON contract queried by
// `reports show --query`.

type reportJSON struct {
	ID           string     `json:"id"`
	InputDir     string     `json:"input_dir"`
	Policy       string     `json:"policy"`
	DryRun       bool       `json:"dry_run"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      time.Time  `json:"ended_at"`
	Counts       countsJSON `json:"counts"`
	AssemblyPath string     `json:"assembly_path,omitempty"`
	Files        []fileJSON `json:"files"`
}

type countsJSON struct {
	OK      int `json:"ok"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type fileJSON struct {
	Path            string        `json:"path"`
	EquipmentNumber string        `json:"equipment_number"`
	Status          string        `json:"status"`
	Saved           bool          `json:"saved"`
	Error           string        `json:"error,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
	EndedAt         time.Time     `json:"ended_at"`
	Normalize       normalizeJSON `json:"normalize"`
}

type normalizeJSON struct {
	Block         string            `json:"block"`
	Policy        string            `json:"policy"`
	Found         bool              `json:"found"`
	Placements    int               `json:"placements"`
	Entities      int               `json:"entities"`
	Reassigned    int               `json:"reassigned"`
	LayersCreated []string          `json:"layers_created"`
	LayersReused  []string          `json:"layers_reused"`
	Committed     bool              `json:"committed"`
	Diagnostics   []string          `json:"diagnostics"`
	Error         *normalizeErrJSON `json:"error,omitempty"`
}

type normalizeErrJSON struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type indexJSON struct {
	ID        string     `json:"id"`
	File      string     `json:"file"`
	BatchID   string     `json:"batch_id"`
	InputDir  string     `json:"input_dir"`
	StartedAt time.Time  `json:"started_at"`
	Counts    countsJSON `json:"counts"`
}

func toJSON(b domain.BatchResult) reportJSON {
	c := b.Counts()
	out := reportJSON{
		ID:           b.ID,
		InputDir:     b.InputDir,
		Policy:       string(b.Policy),
		DryRun:       b.DryRun,
		StartedAt:    b.StartedAt.UTC(),
		EndedAt:      b.EndedAt.UTC(),
		Counts:       countsJSON{OK: c.OK, Skipped: c.Skipped, Failed: c.Failed},
		AssemblyPath: b.AssemblyPath,
		Files:        make([]fileJSON, 0, len(b.Files)),
	}
	for _, f := range b.Files {
		n := f.Normalize
		fj := fileJSON{
			Path:            f.Path,
			EquipmentNumber: f.EquipmentNumber,
			Status:          string(f.Status),
			Saved:           f.Saved,
			Error:           f.Error,
			StartedAt:       f.StartedAt.UTC(),
			EndedAt:         f.EndedAt.UTC(),
			Normalize: normalizeJSON{
				Block:         n.Block,
				Policy:        string(n.Policy),
				Found:         n.Found,
				Placements:    n.Placements,
				Entities:      n.Entities,
				Reassigned:    n.Reassigned,
				LayersCreated: nonNil(n.LayersCreated),
				LayersReused:  nonNil(n.LayersReused),
				Committed:     n.Committed,
				Diagnostics:   nonNil(n.Diagnostics),
			},
		}
		if n.Error != nil {
			fj.Normalize.Error = &normalizeErrJSON{Kind: string(n.Error.Kind), Message: n.Error.Message}
		}
		out.Files = append(out.Files, fj)
	}
	return out
}

func fromJSON(r reportJSON) domain.BatchResult {
	out := domain.BatchResult{
		ID:           r.ID,
		InputDir:     r.InputDir,
		Policy:       domain.CommitPolicy(r.Policy),
		DryRun:       r.DryRun,
		StartedAt:    r.StartedAt,
		EndedAt:      r.EndedAt,
		AssemblyPath: r.AssemblyPath,
		Files:        make([]domain.FileResult, 0, len(r.Files)),
	}
	for _, f := range r.Files {
		n := f.Normalize
		fr := domain.FileResult{
			Path:            f.Path,
			EquipmentNumber: f.EquipmentNumber,
			Status:          domain.FileStatus(f.Status),
			Saved:           f.Saved,
			Error:           f.Error,
			StartedAt:       f.StartedAt,
			EndedAt:         f.EndedAt,
			Normalize: domain.NormalizeResult{
				Block:         n.Block,
				Policy:        domain.CommitPolicy(n.Policy),
				Found:         n.Found,
				Placements:    n.Placements,
				Entities:      n.Entities,
				Reassigned:    n.Reassigned,
				LayersCreated: n.LayersCreated,
				LayersReused:  n.LayersReused,
				Committed:     n.Committed,
				Diagnostics:   n.Diagnostics,
			},
		}
		if n.Error != nil {
			fr.Normalize.Error = &domain.NormalizeError{Kind: domain.ErrorKind(n.Error.Kind), Message: n.Error.Message}
		}
		out.Files = append(out.Files, fr)
	}
	return out
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
