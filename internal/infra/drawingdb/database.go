// Package drawingdb is an in-memory drawing database: the host engine the
// normalizer runs against. Tables are ordered slices; every mutation goes
// through a transaction that keeps an undo log.
package drawingdb

import (
	"fmt"
	"strings"
	"sync"

	"github.com/aalvaropc/procblock/internal/domain"
	"github.com/aalvaropc/procblock/internal/ports"
)

const firstHandle = 0x20

// Database is one open drawing.
type Database struct {
	mu   sync.Mutex
	name string
	next uint64

	linetypes []domain.Linetype
	layers    []domain.Layer
	blocks    []domain.BlockDefinition
	model     []domain.Entity
}

var _ ports.Drawing = (*Database)(nil)

// New returns an empty drawing that owns layer "0" and the Continuous linetype.
func New(name string) *Database {
	db := &Database{name: name, next: firstHandle}
	db.linetypes = append(db.linetypes, domain.Linetype{
		Handle:      db.newHandle(),
		Name:        domain.LinetypeContinuous,
		Description: "Solid line",
	})
	db.layers = append(db.layers, domain.Layer{
		Handle:   db.newHandle(),
		Name:     domain.DefaultLayer,
		Color:    7,
		Linetype: domain.LinetypeContinuous,
	})
	return db
}

// FromSnapshot builds a database from decoded file contents. Handles present
// in the snapshot are kept; missing ones are assigned. Layers referenced by
// entities but absent from the table are created the way CAD hosts do on load.
func FromSnapshot(s domain.DrawingSnapshot) (*Database, error) {
	db := New(s.Name)
	db.reserveHandles(s)

	for _, lt := range s.Linetypes {
		if domain.IsPseudoLinetype(lt.Name) {
			continue
		}
		if i := db.linetypeIndex(lt.Name); i >= 0 {
			if domain.SameName(lt.Name, domain.LinetypeContinuous) {
				continue
			}
			return nil, invalidDrawing("drawingdb.load", fmt.Errorf("duplicate linetype %q", lt.Name))
		}
		lt.Pattern = append([]float64(nil), lt.Pattern...)
		lt.Handle = db.adoptHandle(lt.Handle)
		db.linetypes = append(db.linetypes, lt)
	}

	for _, l := range s.Layers {
		if strings.TrimSpace(l.Name) == "" {
			return nil, invalidDrawing("drawingdb.load", fmt.Errorf("layer with empty name"))
		}
		if i := db.layerIndex(l.Name); i >= 0 {
			if l.Name == domain.DefaultLayer {
				db.layers[i].Color = l.Color
				db.layers[i].Linetype = domain.EffectiveLinetype(l.Linetype)
				continue
			}
			return nil, invalidDrawing("drawingdb.load", fmt.Errorf("duplicate layer %q", l.Name))
		}
		if l.Linetype == "" || domain.IsPseudoLinetype(l.Linetype) {
			l.Linetype = domain.LinetypeContinuous
		}
		l.Handle = db.adoptHandle(l.Handle)
		db.layers = append(db.layers, l)
	}

	for _, b := range s.Blocks {
		if strings.TrimSpace(b.Name) == "" {
			return nil, invalidDrawing("drawingdb.load", fmt.Errorf("block with empty name"))
		}
		if db.blockIndex(b.Name) >= 0 {
			return nil, invalidDrawing("drawingdb.load", fmt.Errorf("duplicate block %q", b.Name))
		}
		def := domain.BlockDefinition{
			Handle: db.adoptHandle(b.Handle),
			Name:   b.Name,
			Base:   b.Base,
		}
		for _, e := range b.Entities {
			def.Entities = append(def.Entities, db.adoptEntity(e))
		}
		db.blocks = append(db.blocks, def)
	}

	for _, e := range s.ModelSpace {
		db.model = append(db.model, db.adoptEntity(e))
	}

	for _, b := range db.blocks {
		for _, e := range b.Entities {
			if e.IsPlacement() && domain.SameName(e.Block, b.Name) {
				return nil, invalidDrawing("drawingdb.load", fmt.Errorf("block %q references itself", b.Name))
			}
		}
	}

	return db, nil
}

func (db *Database) Name() string {
	return db.name
}

// Begin starts a unit of work.
func (db *Database) Begin() (ports.Tx, error) {
	return &tx{db: db}, nil
}

// Snapshot returns a deep copy of the drawing contents.
func (db *Database) Snapshot() domain.DrawingSnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()

	s := domain.DrawingSnapshot{
		Name:       db.name,
		Linetypes:  make([]domain.Linetype, 0, len(db.linetypes)),
		Layers:     make([]domain.Layer, len(db.layers)),
		Blocks:     make([]domain.BlockDefinition, 0, len(db.blocks)),
		ModelSpace: cloneEntities(db.model),
	}
	for _, lt := range db.linetypes {
		lt.Pattern = append([]float64(nil), lt.Pattern...)
		s.Linetypes = append(s.Linetypes, lt)
	}
	copy(s.Layers, db.layers)
	for _, b := range db.blocks {
		b.Entities = cloneEntities(b.Entities)
		s.Blocks = append(s.Blocks, b)
	}
	return s
}

func (db *Database) adoptEntity(e domain.Entity) domain.Entity {
	out := e.Clone()
	out.Handle = db.adoptHandle(e.Handle)
	out.Linetype = domain.EffectiveLinetype(out.Linetype)
	if strings.TrimSpace(out.Layer) == "" {
		out.Layer = domain.DefaultLayer
	}
	if out.Color == 0 {
		out.Color = domain.ColorByLayer
	}
	if db.layerIndex(out.Layer) < 0 {
		db.layers = append(db.layers, domain.Layer{
			Handle:   db.newHandle(),
			Name:     out.Layer,
			Color:    7,
			Linetype: domain.LinetypeContinuous,
		})
	}
	return out
}

// adoptHandle keeps a handle from a file or assigns a fresh one.
func (db *Database) adoptHandle(h domain.Handle) domain.Handle {
	if h == "" {
		return db.newHandle()
	}
	return h
}

// reserveHandles moves the counter past every handle present in s so fresh
// handles never collide with adopted ones.
func (db *Database) reserveHandles(s domain.DrawingSnapshot) {
	bump := func(h domain.Handle) {
		var n uint64
		if _, err := fmt.Sscanf(string(h), "%X", &n); err == nil && n >= db.next {
			db.next = n + 1
		}
	}
	for _, lt := range s.Linetypes {
		bump(lt.Handle)
	}
	for _, l := range s.Layers {
		bump(l.Handle)
	}
	for _, b := range s.Blocks {
		bump(b.Handle)
		for _, e := range b.Entities {
			bump(e.Handle)
		}
	}
	for _, e := range s.ModelSpace {
		bump(e.Handle)
	}
}

func (db *Database) newHandle() domain.Handle {
	h := domain.Handle(fmt.Sprintf("%X", db.next))
	db.next++
	return h
}

func (db *Database) linetypeIndex(name string) int {
	for i, lt := range db.linetypes {
		if domain.SameName(lt.Name, name) {
			return i
		}
	}
	return -1
}

func (db *Database) layerIndex(name string) int {
	for i, l := range db.layers {
		if domain.SameName(l.Name, name) {
			return i
		}
	}
	return -1
}

func (db *Database) blockIndex(name string) int {
	for i, b := range db.blocks {
		if domain.SameName(b.Name, name) {
			return i
		}
	}
	return -1
}

// container returns a pointer to the entity list of owner: model space when
// owner is empty, otherwise the named block definition.
func (db *Database) container(owner string) (*[]domain.Entity, error) {
	if owner == "" {
		return &db.model, nil
	}
	i := db.blockIndex(owner)
	if i < 0 {
		return nil, &domain.OpError{
			Op:   "drawingdb.container",
			Kind: domain.KindNotFound,
			Err:  fmt.Errorf("block %q: %w", owner, domain.ErrNotFound),
		}
	}
	return &db.blocks[i].Entities, nil
}

func (db *Database) referenced(block string) bool {
	for _, e := range db.model {
		if e.IsPlacement() && domain.SameName(e.Block, block) {
			return true
		}
	}
	for _, b := range db.blocks {
		for _, e := range b.Entities {
			if e.IsPlacement() && domain.SameName(e.Block, block) {
				return true
			}
		}
	}
	return false
}

func cloneEntities(in []domain.Entity) []domain.Entity {
	if in == nil {
		return nil
	}
	out := make([]domain.Entity, len(in))
	for i, e := range in {
		out[i] = e.Clone()
		out[i].Handle = e.Handle
	}
	return out
}

func indexOf(list []domain.Entity, h domain.Handle) int {
	for i, e := range list {
		if e.Handle == h {
			return i
		}
	}
	return -1
}

func invalidDrawing(op string, err error) error {
	return &domain.OpError{
		Op:   op,
		Kind: domain.KindInvalidDrawing,
		Err:  fmt.Errorf("%w: %w", domain.ErrInvalidDrawing, err),
	}
}
