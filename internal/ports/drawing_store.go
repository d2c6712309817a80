package ports

import "github.com/aalvaropc/procblock/internal/domain"

// DrawingStore opens and persists drawing files.
type DrawingStore interface {
	Open(path string) (Drawing, error)
	Create(name string) Drawing
	Save(d Drawing, path string) error
}

// DrawingSource discovers the drawing files of one input directory.
type DrawingSource interface {
	Discover(dir string) ([]domain.DrawingRef, error)
}
