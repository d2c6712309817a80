package workspacefinder

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/aalvaropc/procblock/internal/domain"
)

// Finder locates a procblock workspace root by walking upward until a
// directory holds one of the marker entries.
type Finder struct {
	// Markers default to procblock.yaml and the .procblock state directory.
	Markers []string
}

func NewFinder() *Finder {
	return &Finder{Markers: []string{"procblock.yaml", ".procblock"}}
}

func (f *Finder) FindRoot(startDir string) (string, error) {
	if strings.TrimSpace(startDir) == "" {
		return "", &domain.OpError{
			Op:   "workspacefinder.findroot",
			Kind: domain.KindInvalidConfig,
			Err:  errors.New("startDir is empty"),
		}
	}

	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", &domain.OpError{
			Op:   "workspacefinder.findroot",
			Kind: domain.KindExecution,
			Err:  err,
		}
	}

	// A file path starts the walk at its directory.
	if info, statErr := os.Stat(abs); statErr == nil && !info.IsDir() {
		abs = filepath.Dir(abs)
	}

	for cur := filepath.Clean(abs); ; {
		if f.hasMarker(cur) {
			return cur, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", &domain.OpError{
				Op:   "workspacefinder.findroot",
				Kind: domain.KindNotFound,
				Path: abs,
				Err:  domain.ErrNotFound,
			}
		}
		cur = parent
	}
}

// Resolve returns explicit when set, otherwise the workspace enclosing
// startDir, otherwise startDir itself so commands still run outside a
// workspace on defaults.
func (f *Finder) Resolve(explicit, startDir string) (string, bool) {
	if strings.TrimSpace(explicit) != "" {
		if abs, err := filepath.Abs(explicit); err == nil {
			return abs, true
		}
		return explicit, true
	}
	root, err := f.FindRoot(startDir)
	if err != nil {
		abs, aerr := filepath.Abs(startDir)
		if aerr != nil {
			return startDir, false
		}
		return abs, false
	}
	return root, true
}

func (f *Finder) hasMarker(dir string) bool {
	for _, m := range f.Markers {
		if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
			return true
		}
	}
	return false
}
