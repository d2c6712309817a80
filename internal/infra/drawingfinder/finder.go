// Package drawingfinder discovers the drawing files of an input directory.
package drawingfinder

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aalvaropc/procblock/internal/domain"
	"github.com/aalvaropc/procblock/internal/ports"
)

// Finder matches base names against include and exclude globs, case
// insensitively. Subdirectories are never entered.
type Finder struct {
	includes []string
	excludes []string
}

var _ ports.DrawingSource = (*Finder)(nil)

func New(cfg domain.DiscoveryConfig) (*Finder, error) {
	f := &Finder{}
	for _, p := range cfg.Include {
		norm, err := normalizePattern("discovery.include", p)
		if err != nil {
			return nil, err
		}
		f.includes = append(f.includes, norm)
	}
	for _, p := range cfg.Exclude {
		norm, err := normalizePattern("discovery.exclude", p)
		if err != nil {
			return nil, err
		}
		f.excludes = append(f.excludes, norm)
	}
	return f, nil
}

func normalizePattern(field, p string) (string, error) {
	p = strings.ToLower(strings.TrimSpace(p))
	bad := func(msg string) error {
		return &domain.OpError{
			Op:   "drawingfinder.pattern",
			Kind: domain.KindInvalidConfig,
			Err:  fmt.Errorf("%s: pattern %q %s: %w", field, p, msg, domain.ErrInvalidConfig),
		}
	}
	if p == "" {
		return "", bad("is empty")
	}
	if strings.ContainsAny(p, `/\`) {
		return "", bad("must match file names only")
	}
	if !doublestar.ValidatePattern(p) {
		return "", bad("is not a valid glob")
	}
	return p, nil
}

// Discover lists matching regular files of dir sorted by name. The equipment
// number is the file name without its extension.
func (f *Finder) Discover(dir string) ([]domain.DrawingRef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		kind := domain.KindExecution
		if os.IsNotExist(err) {
			kind = domain.KindNotFound
		}
		return nil, &domain.OpError{Op: "drawingfinder.discover", Kind: kind, Path: dir, Err: err}
	}

	refs := []domain.DrawingRef{}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if !f.Matches(name) {
			continue
		}
		refs = append(refs, domain.DrawingRef{
			Path:            filepath.Join(dir, name),
			EquipmentNumber: strings.TrimSuffix(name, filepath.Ext(name)),
		})
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Path < refs[j].Path })
	return refs, nil
}

// Matches reports whether a base name passes the include and exclude globs.
func (f *Finder) Matches(name string) bool {
	lower := strings.ToLower(filepath.Base(name))
	if strings.HasPrefix(lower, ".") || strings.HasSuffix(lower, ".tmp") {
		return false
	}
	if !anyMatch(f.includes, lower) {
		return false
	}
	return !anyMatch(f.excludes, lower)
}

func anyMatch(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}
