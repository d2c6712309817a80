package domain

import "math"

// Transform maps block-local coordinates into the coordinates of the container
// a placement lives in.
type Transform struct {
	Base     Point
	Insert   Point
	Scale    Point
	Rotation float64 // degrees
}

// PlacementTransform builds the transform of a placement of def.
func PlacementTransform(def BlockDefinition, placement Entity) Transform {
	t := Transform{
		Base:     def.Base,
		Scale:    placement.Scale,
		Rotation: placement.Rotation,
	}
	if len(placement.Points) > 0 {
		t.Insert = placement.Points[0]
	}
	if t.Scale == (Point{}) {
		t.Scale = Point{X: 1, Y: 1, Z: 1}
	}
	return t
}

func (t Transform) Apply(p Point) Point {
	x := (p.X - t.Base.X) * t.Scale.X
	y := (p.Y - t.Base.Y) * t.Scale.Y
	z := (p.Z - t.Base.Z) * t.Scale.Z

	rad := t.Rotation * math.Pi / 180
	sin, cos := math.Sincos(rad)

	return Point{
		X: x*cos - y*sin + t.Insert.X,
		Y: x*sin + y*cos + t.Insert.Y,
		Z: z + t.Insert.Z,
	}
}

// ApplyEntity returns a transformed copy of e. Radii and text heights use the
// X and Y scale factors respectively; non-uniform scaling of arcs is not modelled.
func (t Transform) ApplyEntity(e Entity) Entity {
	out := e.Clone()
	for i, p := range out.Points {
		out.Points[i] = t.Apply(p)
	}

	switch out.Kind {
	case EntityCircle, EntityArc:
		out.Radius = e.Radius * math.Abs(t.Scale.X)
		if out.Kind == EntityArc {
			out.StartAngle = normalizeAngle(e.StartAngle + t.Rotation)
			out.EndAngle = normalizeAngle(e.EndAngle + t.Rotation)
		}
	case EntityText:
		out.Height = e.Height * math.Abs(t.Scale.Y)
		out.Rotation = normalizeAngle(e.Rotation + t.Rotation)
	case EntityInsert:
		s := e.Scale
		if s == (Point{}) {
			s = Point{X: 1, Y: 1, Z: 1}
		}
		out.Scale = Point{X: s.X * t.Scale.X, Y: s.Y * t.Scale.Y, Z: s.Z * t.Scale.Z}
		out.Rotation = normalizeAngle(e.Rotation + t.Rotation)
	}
	return out
}

func normalizeAngle(deg float64) float64 {
	a := math.Mod(deg, 360)
	if a < 0 {
		a += 360
	}
	return a
}
