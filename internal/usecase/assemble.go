package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"strings"

	"github.com/aalvaropc/procblock/internal/domain"
	"github.com/aalvaropc/procblock/internal/ports"
)

// AssembleDrawings inserts processed drawings as blocks into one assembly
// drawing, laid out on a grid.
type AssembleDrawings struct {
	store ports.DrawingStore
	cfg   domain.AssemblyConfig
	diag  ports.Diagnostics
	log   *slog.Logger
}

type AssembleOption func(*AssembleDrawings)

func WithAssembleDiagnostics(d ports.Diagnostics) AssembleOption {
	return func(uc *AssembleDrawings) {
		if d != nil {
			uc.diag = d
		}
	}
}

func WithAssembleLogger(l *slog.Logger) AssembleOption {
	return func(uc *AssembleDrawings) {
		if l != nil {
			uc.log = l
		}
	}
}

func NewAssembleDrawings(store ports.DrawingStore, cfg domain.AssemblyConfig, opts ...AssembleOption) *AssembleDrawings {
	def := domain.DefaultConfig().Assembly
	if cfg.Spacing <= 0 {
		cfg.Spacing = def.Spacing
	}
	if cfg.RowWidth <= 0 {
		cfg.RowWidth = def.RowWidth
	}

	uc := &AssembleDrawings{
		store: store,
		cfg:   cfg,
		diag:  nopDiagnostics{},
		log:   slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Grid walks insertion points left to right, starting a new row once x
// passes the row width. Reserved points are skipped.
type Grid struct {
	Spacing  float64
	RowWidth float64

	x, y     float64
	reserved map[[2]float64]bool
}

// Reserve marks p as taken.
func (g *Grid) Reserve(p domain.Point) {
	if g.reserved == nil {
		g.reserved = make(map[[2]float64]bool)
	}
	g.reserved[gridKey(p)] = true
}

// Next returns the first free point and advances past it.
func (g *Grid) Next() domain.Point {
	for {
		p := domain.Point{X: g.x, Y: g.y}
		g.x += g.Spacing
		if g.x > g.RowWidth {
			g.x = 0
			g.y += g.Spacing
		}
		if !g.reserved[gridKey(p)] {
			return p
		}
	}
}

func gridKey(p domain.Point) [2]float64 {
	return [2]float64{math.Round(p.X*1e6) / 1e6, math.Round(p.Y*1e6) / 1e6}
}

// Execute opens outputPath (creating it when absent), inserts every ok or
// skipped file and saves it. It returns the number of drawings inserted.
// Everything happens in one transaction: a file that cannot be inserted
// leaves the assembly untouched. Points already used by model-space
// placements of an existing assembly are not reused, and a drawing already
// on the sheet only has its definition refreshed.
func (uc *AssembleDrawings) Execute(ctx context.Context, files []domain.FileResult, outputPath string) (int, error) {
	asm, err := uc.store.Open(outputPath)
	if domain.IsKind(err, domain.KindNotFound) {
		asm = uc.store.Create(strings.TrimSuffix(filepath.Base(outputPath), filepath.Ext(outputPath)))
	} else if err != nil {
		return 0, err
	}

	tx, err := asm.Begin()
	if err != nil {
		return 0, txError("assemble.begin", err)
	}

	grid := &Grid{Spacing: uc.cfg.Spacing, RowWidth: uc.cfg.RowWidth}
	for _, e := range asm.Snapshot().ModelSpace {
		if e.Kind == domain.EntityInsert && len(e.Points) > 0 {
			grid.Reserve(e.Points[0])
		}
	}

	placed := 0
	for _, f := range files {
		if f.Status != domain.FileOK && f.Status != domain.FileSkipped {
			continue
		}
		if err := ctx.Err(); err != nil {
			_ = tx.Rollback()
			return 0, err
		}

		if err := uc.insert(tx, f, grid); err != nil {
			_ = tx.Rollback()
			return 0, &domain.OpError{Op: "assemble.insert", Kind: domain.KindOf(err), Path: f.Path, Err: err}
		}
		placed++
	}

	if err := tx.Commit(); err != nil {
		return 0, txError("assemble.commit", err)
	}
	if placed == 0 {
		return 0, nil
	}
	if err := uc.store.Save(asm, outputPath); err != nil {
		return 0, err
	}

	uc.log.Info("assembly.saved", "path", outputPath, "drawings", placed)
	return placed, nil
}

func (uc *AssembleDrawings) insert(tx ports.Tx, f domain.FileResult, grid *Grid) error {
	src, err := uc.store.Open(f.Path)
	if err != nil {
		return err
	}
	snap := src.Snapshot()
	name := f.EquipmentNumber

	for _, lt := range snap.Linetypes {
		if _, ok := tx.Linetype(lt.Name); ok || domain.IsPseudoLinetype(lt.Name) {
			continue
		}
		if _, err := tx.AddLinetype(domain.Linetype{Name: lt.Name, Description: lt.Description, Pattern: lt.Pattern}); err != nil {
			return err
		}
	}
	for _, l := range snap.Layers {
		if _, ok := tx.Layer(l.Name); ok {
			continue
		}
		if _, err := tx.AddLayer(domain.Layer{Name: l.Name, Color: l.Color, Linetype: l.Linetype}); err != nil {
			return err
		}
	}
	for _, b := range snap.Blocks {
		if domain.SameName(b.Name, name) {
			continue
		}
		if _, ok := tx.Block(b.Name); ok {
			continue
		}
		if _, err := tx.DefineBlock(b); err != nil {
			return err
		}
	}

	if _, err := tx.DefineBlock(domain.BlockDefinition{Name: name, Entities: snap.ModelSpace}); err != nil {
		return err
	}

	refs, err := tx.Placements(name)
	if err != nil {
		return err
	}
	for _, r := range refs {
		if r.Owner == "" {
			// Already on the sheet from an earlier run; the definition was refreshed.
			return nil
		}
	}

	at := grid.Next()
	uc.diag.Printf("Inserting %s at (%g, %g)", name, at.X, at.Y)
	_, err = tx.Append("", domain.Entity{
		Kind:     domain.EntityInsert,
		Layer:    domain.DefaultLayer,
		Linetype: domain.LinetypeByLayer,
		Color:    domain.ColorByLayer,
		Block:    name,
		Points:   []domain.Point{at},
		Scale:    domain.Point{X: 1, Y: 1, Z: 1},
	})
	if err != nil {
		return fmt.Errorf("place %s: %w", name, err)
	}
	return nil
}
