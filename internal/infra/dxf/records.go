package dxf

import (
	"fmt"
	"strconv"

	"github.com/aalvaropc/procblock/internal/domain"
)

func valueOf(rec []tag, code int) string {
	for _, t := range rec {
		if t.code == code {
			return t.value
		}
	}
	return ""
}

func floatOf(rec []tag, code int, def float64) (float64, error) {
	for _, t := range rec {
		if t.code == code {
			f, err := strconv.ParseFloat(t.value, 64)
			if err != nil {
				return 0, fmt.Errorf("line %d: group %d: invalid number %q", t.line, code, t.value)
			}
			return f, nil
		}
	}
	return def, nil
}

func intOf(rec []tag, code int, def int) (int, error) {
	for _, t := range rec {
		if t.code == code {
			n, err := strconv.Atoi(t.value)
			if err != nil {
				return 0, fmt.Errorf("line %d: group %d: invalid integer %q", t.line, code, t.value)
			}
			return n, nil
		}
	}
	return def, nil
}

// pointOf reads the point stored at base (10, 11, ...) with its Y and Z at +10 and +20.
func pointOf(rec []tag, base int) (domain.Point, error) {
	x, err := floatOf(rec, base, 0)
	if err != nil {
		return domain.Point{}, err
	}
	y, err := floatOf(rec, base+10, 0)
	if err != nil {
		return domain.Point{}, err
	}
	z, err := floatOf(rec, base+20, 0)
	if err != nil {
		return domain.Point{}, err
	}
	return domain.Point{X: x, Y: y, Z: z}, nil
}

func parseLinetype(rec []tag) (domain.Linetype, error) {
	lt := domain.Linetype{
		Handle:      domain.Handle(valueOf(rec, 5)),
		Name:        valueOf(rec, 2),
		Description: valueOf(rec, 3),
	}
	for _, t := range rec {
		if t.code != 49 {
			continue
		}
		f, err := strconv.ParseFloat(t.value, 64)
		if err != nil {
			return lt, fmt.Errorf("line %d: linetype %q: invalid dash length %q", t.line, lt.Name, t.value)
		}
		lt.Pattern = append(lt.Pattern, f)
	}
	return lt, nil
}

func parseLayer(rec []tag) (domain.Layer, error) {
	color, err := intOf(rec, 62, 7)
	if err != nil {
		return domain.Layer{}, err
	}
	if color < 0 {
		// Negative color means the layer is off; the color itself is the magnitude.
		color = -color
	}
	return domain.Layer{
		Handle:   domain.Handle(valueOf(rec, 5)),
		Name:     valueOf(rec, 2),
		Color:    color,
		Linetype: valueOf(rec, 6),
	}, nil
}

func parseBlockHeader(rec []tag) (domain.BlockDefinition, error) {
	base, err := pointOf(rec, 10)
	if err != nil {
		return domain.BlockDefinition{}, err
	}
	return domain.BlockDefinition{
		Handle: domain.Handle(valueOf(rec, 5)),
		Name:   valueOf(rec, 2),
		Base:   base,
	}, nil
}

func parseEntity(head tag, rec []tag) (domain.Entity, error) {
	color, err := intOf(rec, 62, domain.ColorByLayer)
	if err != nil {
		return domain.Entity{}, err
	}
	e := domain.Entity{
		Handle:   domain.Handle(valueOf(rec, 5)),
		Kind:     domain.EntityKind(head.value),
		Layer:    valueOf(rec, 8),
		Linetype: domain.EffectiveLinetype(valueOf(rec, 6)),
		Color:    color,
	}

	space, err := intOf(rec, 67, 0)
	if err != nil {
		return e, err
	}
	if space != 0 {
		return e, fmt.Errorf("line %d: %s in paper space is not supported", head.line, head.value)
	}

	switch e.Kind {
	case domain.EntityLine:
		p1, err := pointOf(rec, 10)
		if err != nil {
			return e, err
		}
		p2, err := pointOf(rec, 11)
		if err != nil {
			return e, err
		}
		e.Points = []domain.Point{p1, p2}

	case domain.EntityCircle, domain.EntityArc:
		c, err := pointOf(rec, 10)
		if err != nil {
			return e, err
		}
		e.Points = []domain.Point{c}
		if e.Radius, err = floatOf(rec, 40, 0); err != nil {
			return e, err
		}
		if e.Kind == domain.EntityArc {
			if e.StartAngle, err = floatOf(rec, 50, 0); err != nil {
				return e, err
			}
			if e.EndAngle, err = floatOf(rec, 51, 360); err != nil {
				return e, err
			}
		}

	case domain.EntityPolyline:
		flags, err := intOf(rec, 70, 0)
		if err != nil {
			return e, err
		}
		e.Closed = flags&1 == 1
		elev, err := floatOf(rec, 38, 0)
		if err != nil {
			return e, err
		}
		pts, err := polylineVertices(rec, elev)
		if err != nil {
			return e, err
		}
		e.Points = pts

	case domain.EntityPoint:
		p, err := pointOf(rec, 10)
		if err != nil {
			return e, err
		}
		e.Points = []domain.Point{p}

	case domain.EntityText:
		p, err := pointOf(rec, 10)
		if err != nil {
			return e, err
		}
		e.Points = []domain.Point{p}
		e.Text = valueOf(rec, 1)
		if e.Height, err = floatOf(rec, 40, 1); err != nil {
			return e, err
		}
		if e.Rotation, err = floatOf(rec, 50, 0); err != nil {
			return e, err
		}

	case domain.EntityInsert:
		p, err := pointOf(rec, 10)
		if err != nil {
			return e, err
		}
		e.Points = []domain.Point{p}
		e.Block = valueOf(rec, 2)
		if e.Block == "" {
			return e, fmt.Errorf("line %d: INSERT without block name", head.line)
		}
		sx, err := floatOf(rec, 41, 1)
		if err != nil {
			return e, err
		}
		sy, err := floatOf(rec, 42, 1)
		if err != nil {
			return e, err
		}
		sz, err := floatOf(rec, 43, 1)
		if err != nil {
			return e, err
		}
		e.Scale = domain.Point{X: sx, Y: sy, Z: sz}
		if e.Rotation, err = floatOf(rec, 50, 0); err != nil {
			return e, err
		}

	default:
		return e, fmt.Errorf("line %d: unsupported entity type %q", head.line, head.value)
	}

	return e, nil
}

// polylineVertices pairs every 10 with the 20 that follows it.
func polylineVertices(rec []tag, elev float64) ([]domain.Point, error) {
	var pts []domain.Point
	for _, t := range rec {
		switch t.code {
		case 10:
			x, err := strconv.ParseFloat(t.value, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid vertex x %q", t.line, t.value)
			}
			pts = append(pts, domain.Point{X: x, Z: elev})
		case 20:
			if len(pts) == 0 {
				return nil, fmt.Errorf("line %d: vertex y before x", t.line)
			}
			y, err := strconv.ParseFloat(t.value, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid vertex y %q", t.line, t.value)
			}
			pts[len(pts)-1].Y = y
		}
	}
	return pts, nil
}
