package diaglog

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/aalvaropc/procblock/internal/ports"
)

// Writer prints each diagnostic on its own line and mirrors it to the
// structured log.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
	log *slog.Logger
}

var _ ports.Diagnostics = (*Writer)(nil)

func NewWriter(out io.Writer, log *slog.Logger) *Writer {
	if out == nil {
		out = io.Discard
	}
	if log == nil {
		log = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Writer{out: out, log: log}
}

func (w *Writer) Printf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	w.mu.Lock()
	_, _ = fmt.Fprintln(w.out, msg)
	w.mu.Unlock()

	w.log.Info("diagnostic", "message", msg)
}

// Collector keeps diagnostics in memory for the TUI.
type Collector struct {
	mu    sync.Mutex
	lines []string
	log   *slog.Logger
}

var _ ports.Diagnostics = (*Collector)(nil)

func NewCollector(log *slog.Logger) *Collector {
	if log == nil {
		log = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Collector{log: log}
}

func (c *Collector) Printf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.mu.Lock()
	c.lines = append(c.lines, msg)
	c.mu.Unlock()
	c.log.Info("diagnostic", "message", msg)
}

// Lines returns a copy of everything collected so far.
func (c *Collector) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

// Tail returns at most n of the most recent lines.
func (c *Collector) Tail(n int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= 0 || len(c.lines) <= n {
		return append([]string(nil), c.lines...)
	}
	return append([]string(nil), c.lines[len(c.lines)-n:]...)
}
