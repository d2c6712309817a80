package layers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aalvaropc/procblock/internal/domain"
	"github.com/aalvaropc/procblock/internal/infra/drawingdb"
)

type recordDiag struct{ lines []string }

func (r *recordDiag) Printf(format string, args ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func drawingWithDashed(t *testing.T) *drawingdb.Database {
	t.Helper()
	db, err := drawingdb.FromSnapshot(domain.DrawingSnapshot{
		Name:      "PUMP01",
		Linetypes: []domain.Linetype{{Name: "DASHED", Pattern: []float64{0.5, 0.5, -0.25}}},
	})
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	return db
}

func TestResolveCreatesThenReuses(t *testing.T) {
	db := drawingWithDashed(t)
	diag := &recordDiag{}
	r := NewResolver(WithDiagnostics(diag))

	h1, created, err := r.Resolve(context.Background(), db, "EQUIPMENT-DASHED", "DASHED", 3)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !created || h1 == "" {
		t.Fatalf("expected a new layer, got handle=%q created=%v", h1, created)
	}

	h2, created, err := r.Resolve(context.Background(), db, "equipment-dashed", "DASHED", 3)
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if created || h2 != h1 {
		t.Fatalf("expected reuse of %q, got %q created=%v", h1, h2, created)
	}

	if len(diag.lines) != 1 || diag.lines[0] != "Creating layer EQUIPMENT-DASHED" {
		t.Fatalf("diagnostics = %v", diag.lines)
	}

	var found *domain.Layer
	for _, l := range db.Snapshot().Layers {
		if l.Name == "EQUIPMENT-DASHED" {
			l := l
			found = &l
		}
	}
	if found == nil {
		t.Fatalf("layer missing from snapshot")
	}
	if found.Linetype != "DASHED" || found.Color != 3 {
		t.Fatalf("layer = %+v", *found)
	}
}

func TestResolveSurvivesCallerRollback(t *testing.T) {
	db := drawingWithDashed(t)
	r := NewResolver()

	outer, err := db.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, _, err := r.Resolve(context.Background(), db, "EQUIPMENT-DASHED", "DASHED", 3); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := outer.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	tx, _ := db.Begin()
	defer tx.Rollback()
	if _, ok := tx.Layer("EQUIPMENT-DASHED"); !ok {
		t.Fatalf("layer should survive the caller's rollback")
	}
}

func TestResolveRejections(t *testing.T) {
	cases := []struct {
		name     string
		layer    string
		linetype string
	}{
		{name: "unknown linetype", layer: "EQUIPMENT-HIDDEN", linetype: "HIDDEN"},
		{name: "pseudo linetype", layer: "EQUIPMENT-BYBLOCK", linetype: domain.LinetypeByBlock},
		{name: "illegal characters", layer: "EQUIPMENT-A/B", linetype: "DASHED"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := drawingWithDashed(t)
			before := len(db.Snapshot().Layers)

			_, _, err := NewResolver().Resolve(context.Background(), db, tc.layer, tc.linetype, 3)
			if !errors.Is(err, domain.ErrLayerCreation) {
				t.Fatalf("expected layer creation error, got %v", err)
			}
			if got := len(db.Snapshot().Layers); got != before {
				t.Fatalf("layer table changed: %d -> %d", before, got)
			}
		})
	}
}

func TestResolveHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewResolver().Resolve(ctx, drawingWithDashed(t), "EQUIPMENT-DASHED", "DASHED", 3)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
