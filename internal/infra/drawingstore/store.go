// Package drawingstore opens and saves drawing files, choosing the codec by
// file extension.
package drawingstore

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aalvaropc/procblock/internal/domain"
	"github.com/aalvaropc/procblock/internal/infra/drawingdb"
	"github.com/aalvaropc/procblock/internal/infra/dxf"
	"github.com/aalvaropc/procblock/internal/infra/yamldrawing"
	"github.com/aalvaropc/procblock/internal/ports"
)

type codec struct {
	decode func(io.Reader, string) (domain.DrawingSnapshot, error)
	encode func(io.Writer, domain.DrawingSnapshot) error
}

var codecs = map[string]codec{
	".dxf":  {decode: dxf.Decode, encode: dxf.Encode},
	".yaml": {decode: yamldrawing.Decode, encode: yamldrawing.Encode},
	".yml":  {decode: yamldrawing.Decode, encode: yamldrawing.Encode},
}

// Store reads drawings into in-memory databases and writes them back.
type Store struct{}

var _ ports.DrawingStore = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Supported reports whether path has an extension the store can read.
func Supported(path string) bool {
	_, ok := codecs[strings.ToLower(filepath.Ext(path))]
	return ok
}

func codecFor(op, path string) (codec, error) {
	c, ok := codecs[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return codec{}, &domain.OpError{
			Op:   op,
			Kind: domain.KindInvalidDrawing,
			Path: path,
			Err:  fmt.Errorf("unsupported drawing format %q", filepath.Ext(path)),
		}
	}
	return c, nil
}

func (s *Store) Open(path string) (ports.Drawing, error) {
	c, err := codecFor("drawingstore.open", path)
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		kind := domain.KindExecution
		if os.IsNotExist(err) {
			kind = domain.KindNotFound
		}
		return nil, &domain.OpError{Op: "drawingstore.open", Kind: kind, Path: path, Err: err}
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	snap, err := c.decode(bytes.NewReader(b), name)
	if err != nil {
		return nil, withPath(err, path)
	}
	db, err := drawingdb.FromSnapshot(snap)
	if err != nil {
		return nil, withPath(err, path)
	}
	return db, nil
}

func (s *Store) Create(name string) ports.Drawing {
	return drawingdb.New(name)
}

// Save encodes d next to path and renames it into place so a failed write
// never truncates the original drawing.
func (s *Store) Save(d ports.Drawing, path string) error {
	c, err := codecFor("drawingstore.save", path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := c.encode(&buf, d.Snapshot()); err != nil {
		return withPath(err, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &domain.OpError{Op: "drawingstore.mkdir", Kind: domain.KindExecution, Path: path, Err: err}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return &domain.OpError{Op: "drawingstore.write", Kind: domain.KindExecution, Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return &domain.OpError{Op: "drawingstore.rename", Kind: domain.KindExecution, Path: path, Err: err}
	}
	return nil
}

func withPath(err error, path string) error {
	if oe, ok := err.(*domain.OpError); ok && oe.Path == "" {
		cp := *oe
		cp.Path = path
		return &cp
	}
	return err
}
