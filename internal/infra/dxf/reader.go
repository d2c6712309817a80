// Package dxf reads and writes the subset of ASCII DXF procblock works with:
// the LTYPE and LAYER tables, block definitions and model-space entities of
// kinds LINE, CIRCLE, ARC, LWPOLYLINE, POINT, TEXT and INSERT.
//
// Paper space is not modelled. Empty layout blocks are dropped; a drawing
// with paper-space geometry is rejected.
package dxf

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aalvaropc/procblock/internal/domain"
)

type tag struct {
	code  int
	value string
	line  int
}

type reader struct {
	sc     *bufio.Scanner
	line   int
	peeked *tag
}

func newReader(r io.Reader) *reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &reader{sc: sc}
}

func (r *reader) next() (tag, error) {
	if r.peeked != nil {
		t := *r.peeked
		r.peeked = nil
		return t, nil
	}

	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return tag{}, err
		}
		return tag{}, io.EOF
	}
	r.line++
	codeLine := r.line
	code, err := strconv.Atoi(strings.TrimSpace(r.sc.Text()))
	if err != nil {
		return tag{}, fmt.Errorf("line %d: invalid group code %q", codeLine, r.sc.Text())
	}

	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return tag{}, err
		}
		return tag{}, fmt.Errorf("line %d: group code %d without value", codeLine, code)
	}
	r.line++
	value := strings.TrimRight(r.sc.Text(), "\r")
	return tag{code: code, value: strings.TrimSpace(value), line: codeLine}, nil
}

func (r *reader) unread(t tag) {
	r.peeked = &t
}

// record reads the tags that follow a code-0 tag up to (not including) the
// next one. End of input ends the record; the caller sees io.EOF on its next read.
func (r *reader) record() ([]tag, error) {
	var out []tag
	for {
		t, err := r.next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if t.code == 0 {
			r.unread(t)
			return out, nil
		}
		out = append(out, t)
	}
}

// Decode parses a DXF document. Unsupported entity types are rejected so a
// later save never silently drops geometry.
func Decode(src io.Reader, name string) (domain.DrawingSnapshot, error) {
	s := domain.DrawingSnapshot{Name: name}
	r := newReader(src)

	for {
		t, err := r.next()
		if err == io.EOF {
			return s, nil
		}
		if err != nil {
			return s, decodeErr(err)
		}
		if t.code != 0 {
			return s, decodeErr(fmt.Errorf("line %d: expected group code 0, got %d", t.line, t.code))
		}

		switch t.value {
		case "EOF":
			return s, nil
		case "SECTION":
			head, err := r.record()
			if err != nil {
				return s, decodeErr(err)
			}
			section := valueOf(head, 2)
			switch section {
			case "TABLES":
				err = r.readTables(&s)
			case "BLOCKS":
				err = r.readBlocks(&s)
			case "ENTITIES":
				s.ModelSpace, err = r.readEntities("ENDSEC")
			default:
				err = r.skipSection()
			}
			if err != nil {
				return s, decodeErr(err)
			}
		default:
			return s, decodeErr(fmt.Errorf("line %d: unexpected %q outside a section", t.line, t.value))
		}
	}
}

func (r *reader) skipSection() error {
	for {
		t, err := r.next()
		if err != nil {
			return unexpectedEOF(err, "ENDSEC")
		}
		if t.code == 0 && t.value == "ENDSEC" {
			return nil
		}
	}
}

func (r *reader) readTables(s *domain.DrawingSnapshot) error {
	for {
		t, err := r.next()
		if err != nil {
			return unexpectedEOF(err, "ENDSEC")
		}
		if t.code != 0 {
			continue
		}
		switch t.value {
		case "ENDSEC":
			return nil
		case "TABLE", "ENDTAB":
			if _, err := r.record(); err != nil {
				return err
			}
		case "LTYPE":
			rec, err := r.record()
			if err != nil {
				return err
			}
			lt, err := parseLinetype(rec)
			if err != nil {
				return err
			}
			if !domain.IsPseudoLinetype(lt.Name) {
				s.Linetypes = append(s.Linetypes, lt)
			}
		case "LAYER":
			rec, err := r.record()
			if err != nil {
				return err
			}
			l, err := parseLayer(rec)
			if err != nil {
				return err
			}
			s.Layers = append(s.Layers, l)
		default:
			// Other table entries (STYLE, VPORT, ...) are not modelled.
			if _, err := r.record(); err != nil {
				return err
			}
		}
	}
}

func (r *reader) readBlocks(s *domain.DrawingSnapshot) error {
	for {
		t, err := r.next()
		if err != nil {
			return unexpectedEOF(err, "ENDSEC")
		}
		if t.code != 0 {
			continue
		}
		switch t.value {
		case "ENDSEC":
			return nil
		case "BLOCK":
			head, err := r.record()
			if err != nil {
				return err
			}
			def, err := parseBlockHeader(head)
			if err != nil {
				return err
			}
			ents, err := r.readEntities("ENDBLK")
			if err != nil {
				return err
			}
			if _, err := r.record(); err != nil { // ENDBLK tags
				return err
			}
			def.Entities = ents
			if isLayoutBlock(def.Name) {
				if len(ents) > 0 {
					return fmt.Errorf("line %d: layout block %q holds %d entities (paper space is not supported)", t.line, def.Name, len(ents))
				}
				continue
			}
			s.Blocks = append(s.Blocks, def)
		default:
			return fmt.Errorf("line %d: unexpected %q in BLOCKS", t.line, t.value)
		}
	}
}

// readEntities reads entities until the terminator (ENDSEC or ENDBLK), which is consumed.
func (r *reader) readEntities(terminator string) ([]domain.Entity, error) {
	var out []domain.Entity
	for {
		t, err := r.next()
		if err != nil {
			return nil, unexpectedEOF(err, terminator)
		}
		if t.code != 0 {
			return nil, fmt.Errorf("line %d: expected entity, got group code %d", t.line, t.code)
		}
		if t.value == terminator {
			return out, nil
		}

		rec, err := r.record()
		if err != nil {
			return nil, err
		}
		e, err := parseEntity(t, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
}

func isLayoutBlock(name string) bool {
	n := strings.ToUpper(name)
	return strings.HasPrefix(n, "*MODEL_SPACE") || strings.HasPrefix(n, "*PAPER_SPACE")
}

func unexpectedEOF(err error, want string) error {
	if err == io.EOF {
		return fmt.Errorf("unexpected end of file, missing %s", want)
	}
	return err
}

func decodeErr(err error) error {
	return &domain.OpError{
		Op:   "dxf.decode",
		Kind: domain.KindInvalidDrawing,
		Err:  fmt.Errorf("%w: %w", domain.ErrInvalidDrawing, err),
	}
}
