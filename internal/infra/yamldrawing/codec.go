// Package yamldrawing reads and writes drawings described in YAML. It is the
// human-editable counterpart of the DXF codec, handy for fixtures and reviews.
package yamldrawing

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aalvaropc/procblock/internal/domain"
)

var knownKinds = map[domain.EntityKind]bool{
	domain.EntityLine:     true,
	domain.EntityCircle:   true,
	domain.EntityArc:      true,
	domain.EntityPolyline: true,
	domain.EntityPoint:    true,
	domain.EntityText:     true,
	domain.EntityInsert:   true,
}

// Decode parses a YAML drawing. name is used when the document has none.
func Decode(r io.Reader, name string) (domain.DrawingSnapshot, error) {
	var y yamlDrawing
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&y); err != nil && err != io.EOF {
		return domain.DrawingSnapshot{}, &domain.OpError{
			Op:   "yamldrawing.decode",
			Kind: domain.KindInvalidDrawing,
			Err:  err,
		}
	}
	return mapDrawing(y, name)
}

// Encode writes s as YAML.
func Encode(w io.Writer, s domain.DrawingSnapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(toYAML(s)); err != nil {
		return &domain.OpError{Op: "yamldrawing.encode", Kind: domain.KindExecution, Err: err}
	}
	if err := enc.Close(); err != nil {
		return &domain.OpError{Op: "yamldrawing.encode", Kind: domain.KindExecution, Err: err}
	}
	return nil
}

func mapDrawing(y yamlDrawing, name string) (domain.DrawingSnapshot, error) {
	s := domain.DrawingSnapshot{Name: y.Name}
	if strings.TrimSpace(s.Name) == "" {
		s.Name = name
	}

	for i, lt := range y.Linetypes {
		if strings.TrimSpace(lt.Name) == "" {
			return s, invalidField(fmt.Sprintf("linetypes[%d].name", i), "name is required")
		}
		s.Linetypes = append(s.Linetypes, domain.Linetype{
			Handle:      domain.Handle(lt.Handle),
			Name:        lt.Name,
			Description: lt.Description,
			Pattern:     lt.Pattern,
		})
	}

	for i, l := range y.Layers {
		if strings.TrimSpace(l.Name) == "" {
			return s, invalidField(fmt.Sprintf("layers[%d].name", i), "name is required")
		}
		color := l.Color
		if color == 0 {
			color = 7
		}
		s.Layers = append(s.Layers, domain.Layer{
			Handle:   domain.Handle(l.Handle),
			Name:     l.Name,
			Color:    color,
			Linetype: l.Linetype,
		})
	}

	for i, b := range y.Blocks {
		prefix := fmt.Sprintf("blocks[%d]", i)
		if strings.TrimSpace(b.Name) == "" {
			return s, invalidField(prefix+".name", "name is required")
		}
		base, err := mapPoint(b.Base)
		if err != nil {
			return s, invalidField(prefix+".base", err.Error())
		}
		def := domain.BlockDefinition{Handle: domain.Handle(b.Handle), Name: b.Name, Base: base}
		for j, e := range b.Entities {
			ent, err := mapEntity(fmt.Sprintf("%s.entities[%d]", prefix, j), e)
			if err != nil {
				return s, err
			}
			def.Entities = append(def.Entities, ent)
		}
		s.Blocks = append(s.Blocks, def)
	}

	for i, e := range y.ModelSpace {
		ent, err := mapEntity(fmt.Sprintf("model_space[%d]", i), e)
		if err != nil {
			return s, err
		}
		s.ModelSpace = append(s.ModelSpace, ent)
	}

	return s, nil
}

func mapEntity(field string, y yamlEntity) (domain.Entity, error) {
	kind := domain.EntityKind(strings.ToUpper(strings.TrimSpace(y.Kind)))
	if kind == "POLYLINE" {
		kind = domain.EntityPolyline
	}
	if !knownKinds[kind] {
		return domain.Entity{}, invalidField(field+".kind", fmt.Sprintf("unsupported entity kind %q", y.Kind))
	}

	e := domain.Entity{
		Handle:     domain.Handle(y.Handle),
		Kind:       kind,
		Layer:      y.Layer,
		Linetype:   domain.EffectiveLinetype(y.Linetype),
		Color:      y.Color,
		Radius:     y.Radius,
		StartAngle: y.StartAngle,
		EndAngle:   y.EndAngle,
		Closed:     y.Closed,
		Text:       y.Text,
		Height:     y.Height,
		Block:      y.Block,
		Rotation:   y.Rotation,
	}
	if e.Color == 0 {
		e.Color = domain.ColorByLayer
	}

	for i, p := range y.Points {
		pt, err := mapPoint(p)
		if err != nil {
			return e, invalidField(fmt.Sprintf("%s.points[%d]", field, i), err.Error())
		}
		e.Points = append(e.Points, pt)
	}

	if kind == domain.EntityInsert {
		if strings.TrimSpace(e.Block) == "" {
			return e, invalidField(field+".block", "block is required for INSERT")
		}
		e.Scale = domain.Point{X: 1, Y: 1, Z: 1}
		if len(y.Scale) > 0 {
			sc, err := mapPoint(y.Scale)
			if err != nil {
				return e, invalidField(field+".scale", err.Error())
			}
			if len(y.Scale) < 3 {
				sc.Z = 1
			}
			e.Scale = sc
		}
	}
	if len(e.Points) == 0 {
		return e, invalidField(field+".points", "at least one point is required")
	}
	return e, nil
}

func mapPoint(v []float64) (domain.Point, error) {
	switch len(v) {
	case 0:
		return domain.Point{}, nil
	case 2:
		return domain.Point{X: v[0], Y: v[1]}, nil
	case 3:
		return domain.Point{X: v[0], Y: v[1], Z: v[2]}, nil
	default:
		return domain.Point{}, fmt.Errorf("expected 2 or 3 coordinates, got %d", len(v))
	}
}

func toYAML(s domain.DrawingSnapshot) yamlDrawing {
	y := yamlDrawing{Name: s.Name}
	for _, lt := range s.Linetypes {
		y.Linetypes = append(y.Linetypes, yamlLinetype{
			Handle:      string(lt.Handle),
			Name:        lt.Name,
			Description: lt.Description,
			Pattern:     lt.Pattern,
		})
	}
	for _, l := range s.Layers {
		y.Layers = append(y.Layers, yamlLayer{
			Handle:   string(l.Handle),
			Name:     l.Name,
			Color:    l.Color,
			Linetype: l.Linetype,
		})
	}
	for _, b := range s.Blocks {
		yb := yamlBlock{Handle: string(b.Handle), Name: b.Name}
		if b.Base != (domain.Point{}) {
			yb.Base = fromPoint(b.Base)
		}
		for _, e := range b.Entities {
			yb.Entities = append(yb.Entities, fromEntity(e))
		}
		y.Blocks = append(y.Blocks, yb)
	}
	for _, e := range s.ModelSpace {
		y.ModelSpace = append(y.ModelSpace, fromEntity(e))
	}
	return y
}

func fromEntity(e domain.Entity) yamlEntity {
	y := yamlEntity{
		Handle:     string(e.Handle),
		Kind:       string(e.Kind),
		Layer:      e.Layer,
		Radius:     e.Radius,
		StartAngle: e.StartAngle,
		EndAngle:   e.EndAngle,
		Closed:     e.Closed,
		Text:       e.Text,
		Height:     e.Height,
		Block:      e.Block,
		Rotation:   e.Rotation,
	}
	if !domain.SameName(domain.EffectiveLinetype(e.Linetype), domain.LinetypeByLayer) {
		y.Linetype = e.Linetype
	}
	if e.Color != domain.ColorByLayer {
		y.Color = e.Color
	}
	for _, p := range e.Points {
		y.Points = append(y.Points, fromPoint(p))
	}
	if e.IsPlacement() && e.Scale != (domain.Point{X: 1, Y: 1, Z: 1}) && e.Scale != (domain.Point{}) {
		y.Scale = fromPoint(e.Scale)
	}
	return y
}

func fromPoint(p domain.Point) []float64 {
	if p.Z == 0 {
		return []float64{p.X, p.Y}
	}
	return []float64{p.X, p.Y, p.Z}
}

func invalidField(field, msg string) error {
	return &domain.OpError{
		Op:   "yamldrawing.map",
		Kind: domain.KindInvalidDrawing,
		Err:  fmt.Errorf("field %s: %s: %w", field, msg, domain.ErrInvalidDrawing),
	}
}
