package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aalvaropc/procblock/internal/app/template"
	"github.com/aalvaropc/procblock/internal/domain"
	"github.com/aalvaropc/procblock/internal/ports"
	"github.com/aalvaropc/procblock/internal/usecase/layers"
)

// LayerResolver returns the handle of a named layer, creating it when absent.
type LayerResolver interface {
	Resolve(ctx context.Context, d ports.Drawing, name, linetype string, color int) (domain.Handle, bool, error)
}

// NormalizeBlock explodes every placement of one block, moves linetype
// overrides onto EQUIPMENT-<linetype> layers and purges the block.
type NormalizeBlock struct {
	cfg    domain.NormalizeConfig
	layers LayerResolver
	diag   ports.Diagnostics
	log    *slog.Logger
}

type NormalizeOption func(*NormalizeBlock)

func WithLayerResolver(r LayerResolver) NormalizeOption {
	return func(uc *NormalizeBlock) {
		if r != nil {
			uc.layers = r
		}
	}
}

func WithDiagnostics(d ports.Diagnostics) NormalizeOption {
	return func(uc *NormalizeBlock) {
		if d != nil {
			uc.diag = d
		}
	}
}

func WithLogger(l *slog.Logger) NormalizeOption {
	return func(uc *NormalizeBlock) {
		if l != nil {
			uc.log = l
		}
	}
}

func NewNormalizeBlock(cfg domain.NormalizeConfig, opts ...NormalizeOption) *NormalizeBlock {
	def := domain.DefaultConfig().Normalize
	if cfg.LayerName == "" {
		cfg.LayerName = def.LayerName
	}
	if cfg.LayerColor == 0 {
		cfg.LayerColor = def.LayerColor
	}
	if !cfg.CommitPolicy.Valid() {
		cfg.CommitPolicy = def.CommitPolicy
	}

	uc := &NormalizeBlock{
		cfg:  cfg,
		diag: nopDiagnostics{},
		log:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(uc)
	}
	if uc.layers == nil {
		uc.layers = layers.NewResolver(layers.WithDiagnostics(uc.diag), layers.WithLogger(uc.log))
	}
	return uc
}

// Execute normalizes blockName in d inside one transaction.
//
// A missing block is not an error: the result has Found=false. Under the
// atomic policy any failure rolls the transaction back and is returned both
// as the error value and in result.Error. Under the lenient policy the failure
// is recorded in result.Error, the partial work is committed and the returned
// error is nil. Layers created along the way are committed separately and
// survive a rollback either way.
//
// Exploded geometry goes to the container of each placement: model space for
// top-level placements, the owning block definition for nested ones. Nested
// placements therefore keep their geometry wherever the owner is placed.
func (uc *NormalizeBlock) Execute(ctx context.Context, d ports.Drawing, blockName string) (domain.NormalizeResult, error) {
	res := domain.NormalizeResult{Block: blockName, Policy: uc.cfg.CommitPolicy}
	note := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		res.Diagnostics = append(res.Diagnostics, msg)
		uc.diag.Printf("%s", msg)
	}

	tx, err := d.Begin()
	if err != nil {
		err = txError("normalize.begin", err)
		res.Error = domain.NewNormalizeError(err)
		return res, err
	}

	def, ok := tx.Block(blockName)
	if !ok {
		_ = tx.Rollback()
		note("Could not find block named %s", blockName)
		uc.log.Info("normalize.block.missing", "drawing", d.Name(), "block", blockName)
		return res, nil
	}
	res.Found = true
	res.Block = def.Name
	note("Processing %s", def.Name)

	err = uc.explodeAll(ctx, d, tx, def.Name, &res)
	if err == nil {
		err = tx.PurgeBlock(def.Name)
	}

	if err != nil {
		res.Error = domain.NewNormalizeError(err)
		note("Error processing block %s: %v", def.Name, err)
		uc.log.Error("normalize.block.failed",
			"drawing", d.Name(),
			"block", def.Name,
			"policy", string(uc.cfg.CommitPolicy),
			"err", err,
		)

		if uc.cfg.CommitPolicy == domain.PolicyAtomic {
			if rbErr := tx.Rollback(); rbErr != nil {
				uc.log.Error("normalize.rollback.failed", "block", def.Name, "err", rbErr)
			}
			return res, err
		}
	}

	if cErr := tx.Commit(); cErr != nil {
		cErr = txError("normalize.commit", cErr)
		res.Error = domain.NewNormalizeError(cErr)
		return res, cErr
	}
	res.Committed = true

	uc.log.Info("normalize.block.done",
		"drawing", d.Name(),
		"block", def.Name,
		"placements", res.Placements,
		"entities", res.Entities,
		"reassigned", res.Reassigned,
		"layers_created", len(res.LayersCreated),
	)
	return res, nil
}

func (uc *NormalizeBlock) explodeAll(ctx context.Context, d ports.Drawing, tx ports.Tx, block string, res *domain.NormalizeResult) error {
	refs, err := tx.Placements(block)
	if err != nil {
		return err
	}
	res.Placements = len(refs)

	seen := map[string]bool{}
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return err
		}

		ents, err := tx.Explode(ref)
		if err != nil {
			return err
		}
		if err := tx.Erase(ref); err != nil {
			return err
		}

		for _, e := range ents {
			if needsLayer(e.Linetype) {
				name, err := template.LayerName(uc.cfg.LayerName, e.Linetype, block)
				if err != nil {
					return err
				}
				_, created, err := uc.layers.Resolve(ctx, d, name, e.Linetype, uc.cfg.LayerColor)
				if err != nil {
					return err
				}

				key := domain.NameKey(name)
				if created {
					// The resolver prints this to the sink; keep it in the result too.
					res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("Creating layer %s", name))
				}
				if !seen[key] {
					seen[key] = true
					if created {
						res.LayersCreated = append(res.LayersCreated, name)
					} else {
						res.LayersReused = append(res.LayersReused, name)
					}
				}

				e.Layer = name
				e.Linetype = domain.LinetypeByLayer
				res.Reassigned++
			}

			if _, err := tx.Append(ref.Owner, e); err != nil {
				return err
			}
			res.Entities++
		}
	}
	return nil
}

// needsLayer reports whether an entity linetype is an override that must move
// to a layer: anything but ByLayer and Continuous. ByBlock is included and
// fails layer creation unless the target layer already exists.
func needsLayer(linetype string) bool {
	return !domain.IsStandardLinetype(linetype)
}

func txError(op string, err error) error {
	if domain.KindOf(err) != domain.KindExecution {
		return err
	}
	return &domain.OpError{Op: op, Kind: domain.KindTransaction, Err: err}
}

type nopDiagnostics struct{}

func (nopDiagnostics) Printf(string, ...any) {}
