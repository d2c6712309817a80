// Package diaglog implements the diagnostics sinks: the append-only error
// logs and the user-facing message channel.
package diaglog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aalvaropc/procblock/internal/domain"
	"github.com/aalvaropc/procblock/internal/ports"
)

// File names per error category, inside the log directory.
const (
	MainFile  = "error_main.log"
	BlockFile = "error.log"
)

// FileErrorLog appends timestamped entries to one file per category.
type FileErrorLog struct {
	dir string
	now func() time.Time

	mu sync.Mutex
}

var _ ports.ErrorLog = (*FileErrorLog)(nil)

func NewFileErrorLog(dir string) *FileErrorLog {
	return &FileErrorLog{dir: dir, now: time.Now}
}

// FileFor returns the file a category is written to.
func (l *FileErrorLog) FileFor(cat ports.ErrorCategory) string {
	name := BlockFile
	if cat == ports.CategoryMain {
		name = MainFile
	}
	return filepath.Join(l.dir, name)
}

func (l *FileErrorLog) Append(cat ports.ErrorCategory, subject string, err error) error {
	if err == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if mkErr := os.MkdirAll(l.dir, 0o755); mkErr != nil {
		return &domain.OpError{Op: "diaglog.append", Kind: domain.KindExecution, Path: l.dir, Err: mkErr}
	}

	path := l.FileFor(cat)
	f, oerr := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if oerr != nil {
		return &domain.OpError{Op: "diaglog.append", Kind: domain.KindExecution, Path: path, Err: oerr}
	}
	defer f.Close()

	msg := strings.ReplaceAll(err.Error(), "\n", " | ")
	line := fmt.Sprintf("%s [%s] %s: %s (%s)\n",
		l.now().UTC().Format(time.RFC3339),
		cat,
		subject,
		msg,
		domain.KindOf(err),
	)
	if _, werr := f.WriteString(line); werr != nil {
		return &domain.OpError{Op: "diaglog.append", Kind: domain.KindExecution, Path: path, Err: werr}
	}
	return nil
}
