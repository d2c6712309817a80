package domain

import (
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func nearPoint(a, b Point) bool {
	return near(a.X, b.X) && near(a.Y, b.Y) && near(a.Z, b.Z)
}

func TestTransformTranslateOnly(t *testing.T) {
	def := BlockDefinition{Name: "B"}
	ins := Entity{Kind: EntityInsert, Points: []Point{{X: 10, Y: 5}}}

	tr := PlacementTransform(def, ins)
	got := tr.Apply(Point{X: 1, Y: 1})
	if !nearPoint(got, Point{X: 11, Y: 6}) {
		t.Fatalf("unexpected point %+v", got)
	}
}

func TestTransformRotateScaleAndBase(t *testing.T) {
	def := BlockDefinition{Name: "B", Base: Point{X: 1, Y: 0}}
	ins := Entity{
		Kind:     EntityInsert,
		Points:   []Point{{X: 0, Y: 0}},
		Scale:    Point{X: 2, Y: 2, Z: 1},
		Rotation: 90,
	}

	got := PlacementTransform(def, ins).Apply(Point{X: 2, Y: 0})
	// (2-1)*2 = 2 along X, rotated 90° -> (0, 2)
	if !nearPoint(got, Point{X: 0, Y: 2}) {
		t.Fatalf("unexpected point %+v", got)
	}
}

func TestApplyEntityArcAndNestedInsert(t *testing.T) {
	tr := Transform{Scale: Point{X: 3, Y: 3, Z: 1}, Rotation: 270}

	arc := Entity{Kind: EntityArc, Points: []Point{{}}, Radius: 2, StartAngle: 0, EndAngle: 180}
	out := tr.ApplyEntity(arc)
	if !near(out.Radius, 6) {
		t.Fatalf("expected radius 6, got %v", out.Radius)
	}
	if !near(out.StartAngle, 270) || !near(out.EndAngle, 90) {
		t.Fatalf("unexpected angles %v %v", out.StartAngle, out.EndAngle)
	}

	nested := Entity{Kind: EntityInsert, Block: "INNER", Points: []Point{{X: 1}}, Rotation: 180}
	n := tr.ApplyEntity(nested)
	if !near(n.Rotation, 90) {
		t.Fatalf("expected rotation 90, got %v", n.Rotation)
	}
	if n.Scale != (Point{X: 3, Y: 3, Z: 1}) {
		t.Fatalf("expected composed scale, got %+v", n.Scale)
	}
}
