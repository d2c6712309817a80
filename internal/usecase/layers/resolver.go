// Package layers resolves the layer an entity's linetype override moves to,
// creating it on first use.
package layers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aalvaropc/procblock/internal/domain"
	"github.com/aalvaropc/procblock/internal/ports"
)

type Resolver struct {
	diag ports.Diagnostics
	log  *slog.Logger
}

type Option func(*Resolver)

func WithDiagnostics(d ports.Diagnostics) Option {
	return func(r *Resolver) {
		if d != nil {
			r.diag = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		diag: discardDiagnostics{},
		log:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the layer called name, creating it with the given color and
// default linetype when absent. Creation runs in its own transaction and is
// committed before Resolve returns, whatever the caller's transaction does
// afterwards. Existing layers are returned untouched.
func (r *Resolver) Resolve(ctx context.Context, d ports.Drawing, name, linetype string, color int) (domain.Handle, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	tx, err := d.Begin()
	if err != nil {
		return "", false, creationError(name, err)
	}

	if l, ok := tx.Layer(name); ok {
		_ = tx.Rollback()
		return l.Handle, false, nil
	}

	if _, ok := tx.Linetype(linetype); !ok || domain.IsPseudoLinetype(linetype) {
		_ = tx.Rollback()
		return "", false, creationError(name, fmt.Errorf("invalid linetype reference %q", linetype))
	}

	r.diag.Printf("Creating layer %s", name)

	h, err := tx.AddLayer(domain.Layer{Name: name, Color: color, Linetype: linetype})
	if err != nil {
		_ = tx.Rollback()
		return "", false, creationError(name, err)
	}
	if err := tx.Commit(); err != nil {
		return "", false, creationError(name, err)
	}

	r.log.Debug("layer.created", "drawing", d.Name(), "layer", name, "linetype", linetype, "color", color)
	return h, true, nil
}

func creationError(name string, err error) error {
	if errors.Is(err, domain.ErrLayerCreation) {
		return err
	}
	return &domain.OpError{
		Op:   "layers.resolve",
		Kind: domain.KindLayerCreation,
		Err:  fmt.Errorf("layer %q: %w", name, err),
	}
}

type discardDiagnostics struct{}

func (discardDiagnostics) Printf(string, ...any) {}
