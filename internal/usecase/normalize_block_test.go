package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aalvaropc/procblock/internal/domain"
	"github.com/aalvaropc/procblock/internal/infra/drawingdb"
	"github.com/aalvaropc/procblock/internal/ports"
	"github.com/aalvaropc/procblock/internal/usecase/layers"
)

// --- fakes ---

type recordDiag struct{ lines []string }

func (r *recordDiag) Printf(format string, args ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

// faultyDrawing hands out transactions whose Append fails on the n-th call.
type faultyDrawing struct {
	ports.Drawing
	failOnAppend int
}

func (f *faultyDrawing) Begin() (ports.Tx, error) {
	tx, err := f.Drawing.Begin()
	if err != nil {
		return nil, err
	}
	return &faultyTx{Tx: tx, failOn: f.failOnAppend}, nil
}

type faultyTx struct {
	ports.Tx
	failOn  int
	appends int
}

var errInjected = errors.New("injected append failure")

func (f *faultyTx) Append(owner string, e domain.Entity) (domain.Handle, error) {
	f.appends++
	if f.appends == f.failOn {
		return "", errInjected
	}
	return f.Tx.Append(owner, e)
}

// --- fixtures ---

func pump01Snapshot() domain.DrawingSnapshot {
	return domain.DrawingSnapshot{
		Name:      "PUMP01",
		Linetypes: []domain.Linetype{{Name: "DASHED", Pattern: []float64{0.5, 0.5, -0.25}}},
		Layers:    []domain.Layer{{Name: "GEOM", Color: 1, Linetype: domain.LinetypeContinuous}},
		Blocks: []domain.BlockDefinition{{
			Name: "PUMP01",
			Entities: []domain.Entity{
				{Kind: domain.EntityLine, Layer: "GEOM", Linetype: domain.LinetypeByLayer, Points: []domain.Point{{}, {X: 10}}},
				{Kind: domain.EntityLine, Layer: "GEOM", Linetype: "DASHED", Points: []domain.Point{{}, {Y: 10}}},
				{Kind: domain.EntityCircle, Layer: "GEOM", Linetype: "DASHED", Points: []domain.Point{{X: 5, Y: 5}}, Radius: 2},
			},
		}},
		ModelSpace: []domain.Entity{
			{Kind: domain.EntityInsert, Block: "PUMP01", Points: []domain.Point{{X: 100, Y: 50}}, Scale: domain.Point{X: 1, Y: 1, Z: 1}},
		},
	}
}

func load(t *testing.T, s domain.DrawingSnapshot) *drawingdb.Database {
	t.Helper()
	db, err := drawingdb.FromSnapshot(s)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	return db
}

func layerByName(s domain.DrawingSnapshot, name string) (domain.Layer, bool) {
	for _, l := range s.Layers {
		if domain.SameName(l.Name, name) {
			return l, true
		}
	}
	return domain.Layer{}, false
}

func hasBlock(s domain.DrawingSnapshot, name string) bool {
	for _, b := range s.Blocks {
		if domain.SameName(b.Name, name) {
			return true
		}
	}
	return false
}

// --- tests ---

func TestNormalizeBlockPump01Scenario(t *testing.T) {
	db := load(t, pump01Snapshot())
	diag := &recordDiag{}
	uc := NewNormalizeBlock(domain.DefaultConfig().Normalize, WithDiagnostics(diag))

	res, err := uc.Execute(context.Background(), db, "PUMP01")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Found || !res.Committed || res.Error != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Placements != 1 || res.Entities != 3 || res.Reassigned != 2 {
		t.Fatalf("counts = placements:%d entities:%d reassigned:%d", res.Placements, res.Entities, res.Reassigned)
	}
	if len(res.LayersCreated) != 1 || res.LayersCreated[0] != "EQUIPMENT-DASHED" {
		t.Fatalf("LayersCreated = %v", res.LayersCreated)
	}

	snap := db.Snapshot()
	if hasBlock(snap, "PUMP01") {
		t.Fatalf("block PUMP01 should be purged")
	}
	if len(snap.ModelSpace) != 3 {
		t.Fatalf("expected 3 entities in model space, got %d", len(snap.ModelSpace))
	}

	layer, ok := layerByName(snap, "EQUIPMENT-DASHED")
	if !ok {
		t.Fatalf("layer EQUIPMENT-DASHED missing")
	}
	if layer.Linetype != "DASHED" || layer.Color != 3 {
		t.Fatalf("layer = %+v", layer)
	}

	onEquipment, unchanged := 0, 0
	for _, e := range snap.ModelSpace {
		if e.IsPlacement() {
			t.Fatalf("placement left in model space: %+v", e)
		}
		switch e.Layer {
		case "EQUIPMENT-DASHED":
			onEquipment++
			if e.Linetype != domain.LinetypeByLayer {
				t.Fatalf("reassigned entity kept linetype %q", e.Linetype)
			}
		case "GEOM":
			unchanged++
			if e.Linetype != domain.LinetypeByLayer {
				t.Fatalf("standard entity linetype changed to %q", e.Linetype)
			}
		}
	}
	if onEquipment != 2 || unchanged != 1 {
		t.Fatalf("layers: equipment=%d geom=%d", onEquipment, unchanged)
	}

	// Exploded geometry is translated to the insertion point.
	first := snap.ModelSpace[0]
	if first.Points[0] != (domain.Point{X: 100, Y: 50}) {
		t.Fatalf("first point = %+v", first.Points[0])
	}

	if len(diag.lines) == 0 || diag.lines[0] != "Processing PUMP01" {
		t.Fatalf("diagnostics = %v", diag.lines)
	}
}

func TestNormalizeBlockMissingIsNotAnError(t *testing.T) {
	db := load(t, pump01Snapshot())
	before := db.Snapshot()
	diag := &recordDiag{}

	res, err := NewNormalizeBlock(domain.NormalizeConfig{}, WithDiagnostics(diag)).
		Execute(context.Background(), db, "VALVE07")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if res.Found || res.Committed || res.Changed() {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(diag.lines) != 1 || diag.lines[0] != "Could not find block named VALVE07" {
		t.Fatalf("diagnostics = %v", diag.lines)
	}

	after := db.Snapshot()
	if len(after.ModelSpace) != len(before.ModelSpace) || len(after.Layers) != len(before.Layers) {
		t.Fatalf("drawing changed")
	}
}

func TestNormalizeBlockIsIdempotent(t *testing.T) {
	db := load(t, pump01Snapshot())
	uc := NewNormalizeBlock(domain.NormalizeConfig{})

	if _, err := uc.Execute(context.Background(), db, "PUMP01"); err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	first := db.Snapshot()

	res, err := uc.Execute(context.Background(), db, "pump01")
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if res.Found || res.Changed() {
		t.Fatalf("second run should be a no-op: %+v", res)
	}
	second := db.Snapshot()
	if len(second.ModelSpace) != len(first.ModelSpace) || len(second.Layers) != len(first.Layers) {
		t.Fatalf("second run changed the drawing")
	}
}

func TestNormalizeBlockReusesLayerAcrossPlacements(t *testing.T) {
	s := pump01Snapshot()
	s.ModelSpace = append(s.ModelSpace, domain.Entity{
		Kind:     domain.EntityInsert,
		Block:    "PUMP01",
		Points:   []domain.Point{{X: 300}},
		Scale:    domain.Point{X: 2, Y: 2, Z: 1},
		Rotation: 90,
	})
	db := load(t, s)

	res, err := NewNormalizeBlock(domain.NormalizeConfig{}).Execute(context.Background(), db, "PUMP01")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Placements != 2 || res.Entities != 6 || res.Reassigned != 4 {
		t.Fatalf("counts = %+v", res)
	}
	if len(res.LayersCreated) != 1 {
		t.Fatalf("LayersCreated = %v", res.LayersCreated)
	}

	count := 0
	for _, l := range db.Snapshot().Layers {
		if domain.SameName(l.Name, "EQUIPMENT-DASHED") {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one EQUIPMENT-DASHED layer, got %d", count)
	}
}

func TestNormalizeBlockReusesExistingLayer(t *testing.T) {
	s := pump01Snapshot()
	s.Layers = append(s.Layers, domain.Layer{Name: "equipment-dashed", Color: 5, Linetype: "DASHED"})
	db := load(t, s)

	res, err := NewNormalizeBlock(domain.NormalizeConfig{}).Execute(context.Background(), db, "PUMP01")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.LayersCreated) != 0 || len(res.LayersReused) != 1 {
		t.Fatalf("created=%v reused=%v", res.LayersCreated, res.LayersReused)
	}
	l, _ := layerByName(db.Snapshot(), "EQUIPMENT-DASHED")
	if l.Color != 5 {
		t.Fatalf("existing layer must not be mutated: %+v", l)
	}
}

func TestNormalizeBlockNestedPlacementStaysInOwner(t *testing.T) {
	s := pump01Snapshot()
	s.Blocks = append(s.Blocks, domain.BlockDefinition{
		Name: "SKID",
		Entities: []domain.Entity{
			{Kind: domain.EntityInsert, Block: "PUMP01", Points: []domain.Point{{X: 10}}, Scale: domain.Point{X: 1, Y: 1, Z: 1}},
		},
	})
	db := load(t, s)

	res, err := NewNormalizeBlock(domain.NormalizeConfig{}).Execute(context.Background(), db, "PUMP01")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Placements != 2 {
		t.Fatalf("placements = %d", res.Placements)
	}

	snap := db.Snapshot()
	if hasBlock(snap, "PUMP01") {
		t.Fatalf("PUMP01 should be purged")
	}
	for _, b := range snap.Blocks {
		if b.Name != "SKID" {
			continue
		}
		if len(b.Entities) != 3 {
			t.Fatalf("SKID should hold the 3 exploded entities, got %d", len(b.Entities))
		}
		for _, e := range b.Entities {
			if e.IsPlacement() {
				t.Fatalf("SKID still holds a placement")
			}
		}
	}
}

func TestNormalizeBlockAtomicRollsBackButKeepsLayers(t *testing.T) {
	db := load(t, pump01Snapshot())
	d := &faultyDrawing{Drawing: db, failOnAppend: 2}

	cfg := domain.NormalizeConfig{CommitPolicy: domain.PolicyAtomic}
	res, err := NewNormalizeBlock(cfg).Execute(context.Background(), d, "PUMP01")
	if !errors.Is(err, errInjected) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if res.Committed || res.Error == nil {
		t.Fatalf("unexpected result: %+v", res)
	}

	snap := db.Snapshot()
	if !hasBlock(snap, "PUMP01") {
		t.Fatalf("block must survive the rollback")
	}
	if len(snap.ModelSpace) != 1 || !snap.ModelSpace[0].IsPlacement() {
		t.Fatalf("model space should be back to the single placement: %+v", snap.ModelSpace)
	}
	if _, ok := layerByName(snap, "EQUIPMENT-DASHED"); !ok {
		t.Fatalf("layer created before the failure should remain")
	}
}

func TestNormalizeBlockLenientCommitsPartialWork(t *testing.T) {
	db := load(t, pump01Snapshot())
	d := &faultyDrawing{Drawing: db, failOnAppend: 2}

	cfg := domain.NormalizeConfig{CommitPolicy: domain.PolicyLenient}
	res, err := NewNormalizeBlock(cfg).Execute(context.Background(), d, "PUMP01")
	if err != nil {
		t.Fatalf("lenient policy returns nil error, got %v", err)
	}
	if !res.Committed || res.Error == nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Error.Message != errInjected.Error() {
		t.Fatalf("error message = %q", res.Error.Message)
	}

	snap := db.Snapshot()
	if len(snap.ModelSpace) != 1 || snap.ModelSpace[0].IsPlacement() {
		t.Fatalf("expected the placement erased and one entity appended: %+v", snap.ModelSpace)
	}
	if !hasBlock(snap, "PUMP01") {
		t.Fatalf("purge is never reached after the failure")
	}
}

func TestNormalizeBlockCustomLayerPattern(t *testing.T) {
	db := load(t, pump01Snapshot())
	cfg := domain.NormalizeConfig{LayerName: "{{block}}-{{linetype}}", LayerColor: 4}

	res, err := NewNormalizeBlock(cfg).Execute(context.Background(), db, "PUMP01")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.LayersCreated) != 1 || res.LayersCreated[0] != "PUMP01-DASHED" {
		t.Fatalf("LayersCreated = %v", res.LayersCreated)
	}
	l, ok := layerByName(db.Snapshot(), "PUMP01-DASHED")
	if !ok || l.Color != 4 {
		t.Fatalf("layer = %+v ok=%v", l, ok)
	}
}

func TestNormalizeBlockCancelledContextRollsBack(t *testing.T) {
	db := load(t, pump01Snapshot())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewNormalizeBlock(domain.NormalizeConfig{}).Execute(ctx, db, "PUMP01")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !hasBlock(db.Snapshot(), "PUMP01") {
		t.Fatalf("cancelled run must not purge the block")
	}
}

func TestNormalizeBlockContinuousKeepsLayer(t *testing.T) {
	s := pump01Snapshot()
	s.Blocks[0].Entities = append(s.Blocks[0].Entities,
		domain.Entity{Kind: domain.EntityLine, Layer: "GEOM", Linetype: "CONTINUOUS", Points: []domain.Point{{}, {X: 1}}},
		domain.Entity{Kind: domain.EntityPoint, Layer: "GEOM", Linetype: "continuous", Points: []domain.Point{{X: 2}}},
	)
	db := load(t, s)

	res, err := NewNormalizeBlock(domain.DefaultConfig().Normalize).Execute(context.Background(), db, "PUMP01")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Entities != 5 || res.Reassigned != 2 {
		t.Fatalf("counts = entities:%d reassigned:%d", res.Entities, res.Reassigned)
	}

	continuous := 0
	for _, e := range db.Snapshot().ModelSpace {
		if domain.SameName(e.Linetype, domain.LinetypeContinuous) {
			continuous++
			if e.Layer != "GEOM" {
				t.Fatalf("continuous entity moved to %q", e.Layer)
			}
		}
	}
	if continuous != 2 {
		t.Fatalf("expected 2 continuous entities, got %d", continuous)
	}
}

func TestNormalizeBlockByBlockNeedsExistingLayer(t *testing.T) {
	s := pump01Snapshot()
	s.Blocks[0].Entities = append(s.Blocks[0].Entities,
		domain.Entity{Kind: domain.EntityLine, Layer: "GEOM", Linetype: domain.LinetypeByBlock, Points: []domain.Point{{}, {X: 1}}},
	)
	db := load(t, s)

	cfg := domain.NormalizeConfig{CommitPolicy: domain.PolicyAtomic}
	res, err := NewNormalizeBlock(cfg).Execute(context.Background(), db, "PUMP01")
	if !domain.IsKind(err, domain.KindLayerCreation) {
		t.Fatalf("expected layer_creation, got %v", err)
	}
	if res.Committed || res.Error == nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !hasBlock(db.Snapshot(), "PUMP01") {
		t.Fatalf("block must survive the rollback")
	}
}

func TestNormalizeBlockByBlockReusesExistingLayer(t *testing.T) {
	s := pump01Snapshot()
	s.Layers = append(s.Layers, domain.Layer{Name: "EQUIPMENT-BYBLOCK", Color: 3, Linetype: domain.LinetypeContinuous})
	s.Blocks[0].Entities = append(s.Blocks[0].Entities,
		domain.Entity{Kind: domain.EntityLine, Layer: "GEOM", Linetype: domain.LinetypeByBlock, Points: []domain.Point{{}, {X: 1}}},
	)
	db := load(t, s)

	res, err := NewNormalizeBlock(domain.DefaultConfig().Normalize).Execute(context.Background(), db, "PUMP01")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Reassigned != 3 {
		t.Fatalf("reassigned = %d", res.Reassigned)
	}
	for _, e := range db.Snapshot().ModelSpace {
		if domain.SameName(e.Linetype, domain.LinetypeByBlock) {
			t.Fatalf("ByBlock entity left unchanged: %+v", e)
		}
	}
}

func TestNormalizeBlockResultRecordsLayerCreation(t *testing.T) {
	db := load(t, pump01Snapshot())
	diag := &recordDiag{}
	r := layers.NewResolver(layers.WithDiagnostics(diag))
	uc := NewNormalizeBlock(domain.DefaultConfig().Normalize, WithDiagnostics(diag), WithLayerResolver(r))

	res, err := uc.Execute(context.Background(), db, "PUMP01")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	count := func(lines []string) int {
		n := 0
		for _, l := range lines {
			if l == "Creating layer EQUIPMENT-DASHED" {
				n++
			}
		}
		return n
	}
	if count(res.Diagnostics) != 1 {
		t.Fatalf("result diagnostics = %v", res.Diagnostics)
	}
	if count(diag.lines) != 1 {
		t.Fatalf("sink diagnostics = %v", diag.lines)
	}
}
