package reportstore

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"

	"github.com/aalvaropc/procblock/internal/domain"
	"github.com/aalvaropc/procblock/internal/ports"
)

const defaultReportsDir = "reports"

// IndexFile is the JSONL index appended to on every save when enabled.
const IndexFile = "index.jsonl"

type JSONStore struct {
	rootDir        string
	reportsDirName string
	writeIndex     bool
	now            func() time.Time
}

type Option func(*JSONStore)

// WithIndex enables the JSONL index: reports/index.jsonl
func WithIndex(enabled bool) Option {
	return func(s *JSONStore) { s.writeIndex = enabled }
}

// WithNow is useful for tests.
func WithNow(now func() time.Time) Option {
	return func(s *JSONStore) { s.now = now }
}

func NewJSONStore(root string, cfg domain.Config, opts ...Option) *JSONStore {
	dir := cfg.Paths.ReportsDir
	if strings.TrimSpace(dir) == "" {
		dir = defaultReportsDir
	}

	s := &JSONStore{
		rootDir:        root,
		reportsDirName: dir,
		writeIndex:     cfg.Reports.Index,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ports.ReportStore = (*JSONStore)(nil)

func (s *JSONStore) dir() string {
	if filepath.IsAbs(s.reportsDirName) {
		return s.reportsDirName
	}
	return filepath.Join(s.rootDir, s.reportsDirName)
}

// SaveReport writes the batch as <timestamp>_<input>_<short id>.json and
// returns the file stem as the report id.
func (s *JSONStore) SaveReport(b domain.BatchResult) (string, error) {
	dir := s.dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &domain.OpError{
			Op:   "reportstore.mkdir",
			Kind: domain.KindExecution,
			Path: dir,
			Err:  err,
		}
	}

	ts := b.StartedAt
	if ts.IsZero() {
		ts = s.now()
		b.StartedAt = ts
	}
	ts = ts.UTC()

	slug := slugify(filepath.Base(filepath.Clean(b.InputDir)))
	if slug == "" {
		slug = "batch"
	}
	short := b.ID
	if len(short) > 8 {
		short = short[:8]
	}
	if short == "" {
		short = "local"
	}

	filename := fmt.Sprintf("%s_%s_%s.json", ts.Format("20060102T150405Z"), slug, short)
	id := strings.TrimSuffix(filename, ".json")
	path := filepath.Join(dir, filename)

	doc := toJSON(b)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", &domain.OpError{
			Op:   "reportstore.marshal",
			Kind: domain.KindExecution,
			Path: path,
			Err:  err,
		}
	}

	// Atomic-ish write: tmp then rename.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return "", &domain.OpError{
			Op:   "reportstore.write",
			Kind: domain.KindExecution,
			Path: tmp,
			Err:  err,
		}
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", &domain.OpError{
			Op:   "reportstore.rename",
			Kind: domain.KindExecution,
			Path: path,
			Err:  err,
		}
	}

	if s.writeIndex {
		_ = s.appendIndex(dir, indexJSON{
			ID:        id,
			File:      filename,
			BatchID:   doc.ID,
			InputDir:  doc.InputDir,
			StartedAt: doc.StartedAt,
			Counts:    doc.Counts,
		})
	}

	return id, nil
}

// WriteJSON writes b in the report layout, as `run --format json` prints it.
func WriteJSON(w io.Writer, b domain.BatchResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toJSON(b))
}

func (s *JSONStore) appendIndex(dir string, entry indexJSON) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(dir, IndexFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(append(line, '\n'))
	return err
}

// ListReports returns saved reports, newest first. The index is used when
// present; otherwise every report file is read.
func (s *JSONStore) ListReports() ([]domain.BatchRef, error) {
	dir := s.dir()

	refs, err := s.listFromIndex(dir)
	if err != nil {
		refs, err = s.listFromFiles(dir)
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].StartedAt.Equal(refs[j].StartedAt) {
			return refs[i].ID > refs[j].ID
		}
		return refs[i].StartedAt.After(refs[j].StartedAt)
	})
	return refs, nil
}

func (s *JSONStore) listFromIndex(dir string) ([]domain.BatchRef, error) {
	b, err := os.ReadFile(filepath.Join(dir, IndexFile))
	if err != nil {
		return nil, err
	}

	var refs []domain.BatchRef
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var e indexJSON
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, e.File)
		if _, err := os.Stat(path); err != nil {
			// Report deleted by hand; keep the listing honest.
			continue
		}
		refs = append(refs, domain.BatchRef{
			ID:        e.ID,
			Path:      path,
			InputDir:  e.InputDir,
			StartedAt: e.StartedAt,
			Counts:    domain.BatchCounts{OK: e.Counts.OK, Skipped: e.Counts.Skipped, Failed: e.Counts.Failed},
		})
	}
	return refs, sc.Err()
}

func (s *JSONStore) listFromFiles(dir string) ([]domain.BatchRef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []domain.BatchRef{}, nil
		}
		return nil, &domain.OpError{Op: "reportstore.list", Kind: domain.KindExecution, Path: dir, Err: err}
	}

	refs := []domain.BatchRef{}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		r, err := readReport(path)
		if err != nil {
			continue
		}
		refs = append(refs, domain.BatchRef{
			ID:        strings.TrimSuffix(e.Name(), ".json"),
			Path:      path,
			InputDir:  r.InputDir,
			StartedAt: r.StartedAt,
			Counts:    domain.BatchCounts{OK: r.Counts.OK, Skipped: r.Counts.Skipped, Failed: r.Counts.Failed},
		})
	}
	return refs, nil
}

// LoadReport accepts a report id or a batch id prefix.
func (s *JSONStore) LoadReport(id string) (domain.BatchResult, error) {
	path, err := s.resolve(id)
	if err != nil {
		return domain.BatchResult{}, err
	}
	r, err := readReport(path)
	if err != nil {
		return domain.BatchResult{}, err
	}
	return fromJSON(r), nil
}

// Query evaluates a JSONPath expression against a stored report,
// e.g. `$.files[?(@.status == "failed")].path`.
func (s *JSONStore) Query(id, expr string) (any, error) {
	path, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.OpError{Op: "reportstore.query", Kind: domain.KindNotFound, Path: path, Err: err}
	}

	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, &domain.OpError{Op: "reportstore.query", Kind: domain.KindInvalidConfig, Path: path, Err: err}
	}

	expr = strings.TrimSpace(expr)
	if expr == "" {
		return doc, nil
	}
	val, err := jsonpath.Get(expr, doc)
	if err != nil {
		return nil, &domain.OpError{
			Op:   "reportstore.query",
			Kind: domain.KindInvalidConfig,
			Path: path,
			Err:  fmt.Errorf("jsonpath %q: %w", expr, err),
		}
	}
	return val, nil
}

func (s *JSONStore) resolve(id string) (string, error) {
	id = strings.TrimSpace(strings.TrimSuffix(id, ".json"))
	if id == "" {
		return "", &domain.OpError{Op: "reportstore.resolve", Kind: domain.KindInvalidConfig, Err: errors.New("report id is empty")}
	}

	dir := s.dir()
	path := filepath.Join(dir, id+".json")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	refs, err := s.listFromFiles(dir)
	if err != nil {
		return "", err
	}
	var match []string
	for _, r := range refs {
		rep, err := readReport(r.Path)
		if err == nil && strings.HasPrefix(rep.ID, id) {
			match = append(match, r.Path)
		}
	}
	switch len(match) {
	case 1:
		return match[0], nil
	case 0:
		return "", &domain.OpError{Op: "reportstore.resolve", Kind: domain.KindNotFound, Path: path, Err: domain.ErrNotFound}
	default:
		return "", &domain.OpError{
			Op:   "reportstore.resolve",
			Kind: domain.KindInvalidConfig,
			Err:  fmt.Errorf("batch id prefix %q is ambiguous (%d reports)", id, len(match)),
		}
	}
}

func readReport(path string) (reportJSON, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return reportJSON{}, &domain.OpError{Op: "reportstore.read", Kind: domain.KindNotFound, Path: path, Err: err}
	}
	var r reportJSON
	if err := json.Unmarshal(b, &r); err != nil {
		return reportJSON{}, &domain.OpError{Op: "reportstore.read", Kind: domain.KindInvalidConfig, Path: path, Err: err}
	}
	return r, nil
}

// slugify produces a safe filename component.
func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "." || s == string(filepath.Separator) {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))

	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	return strings.Trim(b.String(), "-")
}
