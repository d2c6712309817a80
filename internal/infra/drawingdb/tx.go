package drawingdb

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aalvaropc/procblock/internal/domain"
	"github.com/aalvaropc/procblock/internal/ports"
)

// ErrTxClosed is returned by any call on a committed or rolled back transaction.
var ErrTxClosed = errors.New("transaction already closed")

type tx struct {
	db   *Database
	undo []func()
	done bool
}

var _ ports.Tx = (*tx)(nil)

func (t *tx) Block(name string) (domain.BlockDefinition, bool) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	i := t.db.blockIndex(name)
	if i < 0 {
		return domain.BlockDefinition{}, false
	}
	b := t.db.blocks[i]
	b.Entities = cloneEntities(b.Entities)
	return b, true
}

func (t *tx) Placements(block string) ([]domain.PlacementRef, error) {
	if err := t.check("drawingdb.placements"); err != nil {
		return nil, err
	}
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	if t.db.blockIndex(block) < 0 {
		return nil, notFound("drawingdb.placements", "block", block)
	}

	var refs []domain.PlacementRef
	for _, e := range t.db.model {
		if e.IsPlacement() && domain.SameName(e.Block, block) {
			refs = append(refs, domain.PlacementRef{Handle: e.Handle, Block: e.Block})
		}
	}
	for _, b := range t.db.blocks {
		for _, e := range b.Entities {
			if e.IsPlacement() && domain.SameName(e.Block, block) {
				refs = append(refs, domain.PlacementRef{Handle: e.Handle, Owner: b.Name, Block: e.Block})
			}
		}
	}
	return refs, nil
}

func (t *tx) Explode(ref domain.PlacementRef) ([]domain.Entity, error) {
	if err := t.check("drawingdb.explode"); err != nil {
		return nil, err
	}
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	list, err := t.db.container(ref.Owner)
	if err != nil {
		return nil, err
	}
	i := indexOf(*list, ref.Handle)
	if i < 0 {
		return nil, notFound("drawingdb.explode", "placement", string(ref.Handle))
	}
	placement := (*list)[i]
	if !placement.IsPlacement() {
		return nil, &domain.OpError{
			Op:   "drawingdb.explode",
			Kind: domain.KindInvalidDrawing,
			Err:  fmt.Errorf("entity %s is a %s, not a placement", placement.Handle, placement.Kind),
		}
	}

	bi := t.db.blockIndex(placement.Block)
	if bi < 0 {
		return nil, notFound("drawingdb.explode", "block", placement.Block)
	}
	def := t.db.blocks[bi]

	tr := domain.PlacementTransform(def, placement)
	out := make([]domain.Entity, 0, len(def.Entities))
	for _, e := range def.Entities {
		out = append(out, tr.ApplyEntity(e))
	}
	return out, nil
}

func (t *tx) Erase(ref domain.PlacementRef) error {
	if err := t.check("drawingdb.erase"); err != nil {
		return err
	}
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	list, err := t.db.container(ref.Owner)
	if err != nil {
		return err
	}
	i := indexOf(*list, ref.Handle)
	if i < 0 {
		return notFound("drawingdb.erase", "entity", string(ref.Handle))
	}

	removed := (*list)[i]
	*list = append((*list)[:i:i], (*list)[i+1:]...)

	owner := ref.Owner
	t.undo = append(t.undo, func() {
		l, err := t.db.container(owner)
		if err != nil {
			return
		}
		at := min(i, len(*l))
		*l = append((*l)[:at], append([]domain.Entity{removed}, (*l)[at:]...)...)
	})
	return nil
}

func (t *tx) Append(owner string, e domain.Entity) (domain.Handle, error) {
	if err := t.check("drawingdb.append"); err != nil {
		return "", err
	}
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	list, err := t.db.container(owner)
	if err != nil {
		return "", err
	}

	out := e.Clone()
	out.Linetype = domain.EffectiveLinetype(out.Linetype)
	if strings.TrimSpace(out.Layer) == "" {
		out.Layer = domain.DefaultLayer
	}
	if t.db.layerIndex(out.Layer) < 0 {
		return "", notFound("drawingdb.append", "layer", out.Layer)
	}
	if !domain.IsPseudoLinetype(out.Linetype) && t.db.linetypeIndex(out.Linetype) < 0 {
		return "", notFound("drawingdb.append", "linetype", out.Linetype)
	}
	if out.IsPlacement() {
		if t.db.blockIndex(out.Block) < 0 {
			return "", notFound("drawingdb.append", "block", out.Block)
		}
		if domain.SameName(out.Block, owner) {
			return "", &domain.OpError{
				Op:   "drawingdb.append",
				Kind: domain.KindInvalidDrawing,
				Err:  fmt.Errorf("block %q cannot contain itself", owner),
			}
		}
	}

	out.Handle = t.db.newHandle()
	*list = append(*list, out)

	h := out.Handle
	t.undo = append(t.undo, func() {
		l, err := t.db.container(owner)
		if err != nil {
			return
		}
		if i := indexOf(*l, h); i >= 0 {
			*l = append((*l)[:i:i], (*l)[i+1:]...)
		}
	})
	return h, nil
}

func (t *tx) PurgeBlock(name string) error {
	if err := t.check("drawingdb.purge"); err != nil {
		return err
	}
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	i := t.db.blockIndex(name)
	if i < 0 {
		return notFound("drawingdb.purge", "block", name)
	}
	if t.db.referenced(name) {
		return &domain.OpError{
			Op:   "drawingdb.purge",
			Kind: domain.KindTransaction,
			Err:  fmt.Errorf("block %q is still referenced", name),
		}
	}

	removed := t.db.blocks[i]
	t.db.blocks = append(t.db.blocks[:i:i], t.db.blocks[i+1:]...)

	t.undo = append(t.undo, func() {
		at := min(i, len(t.db.blocks))
		t.db.blocks = append(t.db.blocks[:at], append([]domain.BlockDefinition{removed}, t.db.blocks[at:]...)...)
	})
	return nil
}

func (t *tx) DefineBlock(def domain.BlockDefinition) (domain.Handle, error) {
	if err := t.check("drawingdb.define_block"); err != nil {
		return "", err
	}
	if err := validateName(def.Name); err != nil {
		return "", &domain.OpError{Op: "drawingdb.define_block", Kind: domain.KindInvalidDrawing, Err: err}
	}
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	out := domain.BlockDefinition{
		Handle: t.db.newHandle(),
		Name:   def.Name,
		Base:   def.Base,
	}
	for _, e := range def.Entities {
		c := e.Clone()
		c.Handle = t.db.newHandle()
		c.Linetype = domain.EffectiveLinetype(c.Linetype)
		if strings.TrimSpace(c.Layer) == "" {
			c.Layer = domain.DefaultLayer
		}
		if t.db.layerIndex(c.Layer) < 0 {
			return "", notFound("drawingdb.define_block", "layer", c.Layer)
		}
		if c.IsPlacement() && domain.SameName(c.Block, def.Name) {
			return "", &domain.OpError{
				Op:   "drawingdb.define_block",
				Kind: domain.KindInvalidDrawing,
				Err:  fmt.Errorf("block %q cannot contain itself", def.Name),
			}
		}
		out.Entities = append(out.Entities, c)
	}

	if i := t.db.blockIndex(def.Name); i >= 0 {
		prev := t.db.blocks[i]
		t.db.blocks[i] = out
		t.undo = append(t.undo, func() {
			if j := t.db.blockIndex(prev.Name); j >= 0 {
				t.db.blocks[j] = prev
			}
		})
		return out.Handle, nil
	}

	t.db.blocks = append(t.db.blocks, out)
	h := out.Handle
	t.undo = append(t.undo, func() {
		for j, b := range t.db.blocks {
			if b.Handle == h {
				t.db.blocks = append(t.db.blocks[:j:j], t.db.blocks[j+1:]...)
				return
			}
		}
	})
	return h, nil
}

func (t *tx) Layer(name string) (domain.Layer, bool) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	i := t.db.layerIndex(name)
	if i < 0 {
		return domain.Layer{}, false
	}
	return t.db.layers[i], true
}

// AddLayer writes a new layer row. Every rejection is a layer creation error.
func (t *tx) AddLayer(l domain.Layer) (domain.Handle, error) {
	if err := t.check("drawingdb.add_layer"); err != nil {
		return "", err
	}
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	fail := func(err error) (domain.Handle, error) {
		return "", &domain.OpError{
			Op:   "drawingdb.add_layer",
			Kind: domain.KindLayerCreation,
			Err:  fmt.Errorf("layer %q: %w", l.Name, err),
		}
	}

	if err := validateName(l.Name); err != nil {
		return fail(err)
	}
	if t.db.layerIndex(l.Name) >= 0 {
		return fail(errors.New("name already in use"))
	}
	lt := domain.EffectiveLinetype(l.Linetype)
	if domain.IsPseudoLinetype(lt) {
		return fail(fmt.Errorf("%s cannot be a layer default linetype", lt))
	}
	ltIdx := t.db.linetypeIndex(lt)
	if ltIdx < 0 {
		return fail(fmt.Errorf("unknown linetype %q", lt))
	}
	color := l.Color
	if color == 0 {
		color = 7
	}
	if color < 1 || color > 255 {
		return fail(fmt.Errorf("color %d out of range 1..255", l.Color))
	}

	row := domain.Layer{
		Handle:   t.db.newHandle(),
		Name:     l.Name,
		Color:    color,
		Linetype: t.db.linetypes[ltIdx].Name,
	}
	t.db.layers = append(t.db.layers, row)

	h := row.Handle
	t.undo = append(t.undo, func() {
		for j, x := range t.db.layers {
			if x.Handle == h {
				t.db.layers = append(t.db.layers[:j:j], t.db.layers[j+1:]...)
				return
			}
		}
	})
	return h, nil
}

func (t *tx) Linetype(name string) (domain.Linetype, bool) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	i := t.db.linetypeIndex(name)
	if i < 0 {
		return domain.Linetype{}, false
	}
	lt := t.db.linetypes[i]
	lt.Pattern = append([]float64(nil), lt.Pattern...)
	return lt, true
}

func (t *tx) AddLinetype(lt domain.Linetype) (domain.Handle, error) {
	if err := t.check("drawingdb.add_linetype"); err != nil {
		return "", err
	}
	if err := validateName(lt.Name); err != nil {
		return "", &domain.OpError{Op: "drawingdb.add_linetype", Kind: domain.KindInvalidDrawing, Err: err}
	}
	if domain.IsPseudoLinetype(lt.Name) {
		return "", &domain.OpError{
			Op:   "drawingdb.add_linetype",
			Kind: domain.KindInvalidDrawing,
			Err:  fmt.Errorf("%q is reserved", lt.Name),
		}
	}
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	if t.db.linetypeIndex(lt.Name) >= 0 {
		return "", &domain.OpError{
			Op:   "drawingdb.add_linetype",
			Kind: domain.KindInvalidDrawing,
			Err:  fmt.Errorf("linetype %q already exists", lt.Name),
		}
	}

	row := lt
	row.Handle = t.db.newHandle()
	row.Pattern = append([]float64(nil), lt.Pattern...)
	t.db.linetypes = append(t.db.linetypes, row)

	h := row.Handle
	t.undo = append(t.undo, func() {
		for j, x := range t.db.linetypes {
			if x.Handle == h {
				t.db.linetypes = append(t.db.linetypes[:j:j], t.db.linetypes[j+1:]...)
				return
			}
		}
	})
	return h, nil
}

func (t *tx) Commit() error {
	if err := t.check("drawingdb.commit"); err != nil {
		return err
	}
	t.done = true
	t.undo = nil
	return nil
}

// Rollback undoes this transaction's mutations in reverse order.
func (t *tx) Rollback() error {
	if err := t.check("drawingdb.rollback"); err != nil {
		return err
	}
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.done = true
	return nil
}

func (t *tx) check(op string) error {
	if t.done {
		return &domain.OpError{Op: op, Kind: domain.KindTransaction, Err: ErrTxClosed}
	}
	return nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name is empty")
	}
	if strings.ContainsAny(name, domain.ForbiddenNameChars) {
		return fmt.Errorf("name %q contains a forbidden character", name)
	}
	return nil
}

func notFound(op, what, name string) error {
	return &domain.OpError{
		Op:   op,
		Kind: domain.KindNotFound,
		Err:  fmt.Errorf("%s %q: %w", what, name, domain.ErrNotFound),
	}
}
