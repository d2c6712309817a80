package dxf

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/aalvaropc/procblock/internal/domain"
)

type writer struct {
	w   *bufio.Writer
	err error
}

func (w *writer) tag(code int, value string) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.w, "%3d\n%s\n", code, value)
}

func (w *writer) float(code int, v float64) {
	w.tag(code, strconv.FormatFloat(v, 'f', -1, 64))
}

func (w *writer) int(code int, v int) {
	w.tag(code, strconv.Itoa(v))
}

func (w *writer) point(base int, p domain.Point) {
	w.float(base, p.X)
	w.float(base+10, p.Y)
	w.float(base+20, p.Z)
}

// Encode writes s as an ASCII DXF document.
func Encode(dst io.Writer, s domain.DrawingSnapshot) error {
	w := &writer{w: bufio.NewWriter(dst)}

	w.tag(0, "SECTION")
	w.tag(2, "HEADER")
	w.tag(9, "$ACADVER")
	w.tag(1, "AC1015")
	w.tag(0, "ENDSEC")

	w.tag(0, "SECTION")
	w.tag(2, "TABLES")
	writeLinetypes(w, s.Linetypes)
	writeLayers(w, s.Layers)
	w.tag(0, "ENDSEC")

	w.tag(0, "SECTION")
	w.tag(2, "BLOCKS")
	for _, b := range s.Blocks {
		w.tag(0, "BLOCK")
		if b.Handle != "" {
			w.tag(5, string(b.Handle))
		}
		w.tag(8, domain.DefaultLayer)
		w.tag(2, b.Name)
		w.int(70, 0)
		w.point(10, b.Base)
		w.tag(3, b.Name)
		for _, e := range b.Entities {
			writeEntity(w, e)
		}
		w.tag(0, "ENDBLK")
		w.tag(8, domain.DefaultLayer)
	}
	w.tag(0, "ENDSEC")

	w.tag(0, "SECTION")
	w.tag(2, "ENTITIES")
	for _, e := range s.ModelSpace {
		writeEntity(w, e)
	}
	w.tag(0, "ENDSEC")
	w.tag(0, "EOF")

	if w.err != nil {
		return encodeErr(w.err)
	}
	if err := w.w.Flush(); err != nil {
		return encodeErr(err)
	}
	return nil
}

func writeLinetypes(w *writer, lts []domain.Linetype) {
	w.tag(0, "TABLE")
	w.tag(2, "LTYPE")
	w.int(70, len(lts)+2)

	for _, name := range []string{domain.LinetypeByBlock, domain.LinetypeByLayer} {
		w.tag(0, "LTYPE")
		w.tag(2, name)
		w.int(70, 0)
		w.tag(3, "")
		w.int(72, 65)
		w.int(73, 0)
		w.float(40, 0)
	}

	for _, lt := range lts {
		total := 0.0
		for _, d := range lt.Pattern {
			if d < 0 {
				total -= d
			} else {
				total += d
			}
		}
		w.tag(0, "LTYPE")
		if lt.Handle != "" {
			w.tag(5, string(lt.Handle))
		}
		w.tag(2, lt.Name)
		w.int(70, 0)
		w.tag(3, lt.Description)
		w.int(72, 65)
		w.int(73, len(lt.Pattern))
		w.float(40, total)
		for _, d := range lt.Pattern {
			w.float(49, d)
		}
	}
	w.tag(0, "ENDTAB")
}

func writeLayers(w *writer, layers []domain.Layer) {
	w.tag(0, "TABLE")
	w.tag(2, "LAYER")
	w.int(70, len(layers))
	for _, l := range layers {
		w.tag(0, "LAYER")
		if l.Handle != "" {
			w.tag(5, string(l.Handle))
		}
		w.tag(2, l.Name)
		w.int(70, 0)
		w.int(62, l.Color)
		w.tag(6, domain.EffectiveLinetype(l.Linetype))
	}
	w.tag(0, "ENDTAB")
}

func writeEntity(w *writer, e domain.Entity) {
	w.tag(0, string(e.Kind))
	if e.Handle != "" {
		w.tag(5, string(e.Handle))
	}
	w.tag(8, e.Layer)
	if lt := domain.EffectiveLinetype(e.Linetype); !domain.SameName(lt, domain.LinetypeByLayer) {
		w.tag(6, lt)
	}
	if e.Color != 0 && e.Color != domain.ColorByLayer {
		w.int(62, e.Color)
	}

	at := func(i int) domain.Point {
		if i < len(e.Points) {
			return e.Points[i]
		}
		return domain.Point{}
	}

	switch e.Kind {
	case domain.EntityLine:
		w.point(10, at(0))
		w.point(11, at(1))
	case domain.EntityCircle:
		w.point(10, at(0))
		w.float(40, e.Radius)
	case domain.EntityArc:
		w.point(10, at(0))
		w.float(40, e.Radius)
		w.float(50, e.StartAngle)
		w.float(51, e.EndAngle)
	case domain.EntityPolyline:
		w.int(90, len(e.Points))
		flags := 0
		if e.Closed {
			flags = 1
		}
		w.int(70, flags)
		if len(e.Points) > 0 && e.Points[0].Z != 0 {
			w.float(38, e.Points[0].Z)
		}
		for _, p := range e.Points {
			w.float(10, p.X)
			w.float(20, p.Y)
		}
	case domain.EntityPoint:
		w.point(10, at(0))
	case domain.EntityText:
		w.point(10, at(0))
		w.float(40, e.Height)
		w.tag(1, e.Text)
		if e.Rotation != 0 {
			w.float(50, e.Rotation)
		}
	case domain.EntityInsert:
		w.tag(2, e.Block)
		w.point(10, at(0))
		s := e.Scale
		if s == (domain.Point{}) {
			s = domain.Point{X: 1, Y: 1, Z: 1}
		}
		if s.X != 1 {
			w.float(41, s.X)
		}
		if s.Y != 1 {
			w.float(42, s.Y)
		}
		if s.Z != 1 {
			w.float(43, s.Z)
		}
		if e.Rotation != 0 {
			w.float(50, e.Rotation)
		}
	}
}

func encodeErr(err error) error {
	return &domain.OpError{
		Op:   "dxf.encode",
		Kind: domain.KindExecution,
		Err:  err,
	}
}
