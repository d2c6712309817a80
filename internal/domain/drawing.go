package domain

import (
	"strings"

	"golang.org/x/text/cases"
)

// Handle identifies an object inside one drawing database.
type Handle string

// Linetype names with special meaning. They never appear in the linetype table
// as layer defaults.
const (
	LinetypeByLayer    = "ByLayer"
	LinetypeByBlock    = "ByBlock"
	LinetypeContinuous = "Continuous"
)

// DefaultLayer is the layer every drawing owns and that cannot be removed.
const DefaultLayer = "0"

// ColorByLayer is the ACI value meaning "use the layer color".
const ColorByLayer = 256

// ForbiddenNameChars are the characters a symbol table name may not contain.
const ForbiddenNameChars = `<>/\":;?*|=,` + "`"

type EntityKind string

const (
	EntityLine     EntityKind = "LINE"
	EntityCircle   EntityKind = "CIRCLE"
	EntityArc      EntityKind = "ARC"
	EntityPolyline EntityKind = "LWPOLYLINE"
	EntityPoint    EntityKind = "POINT"
	EntityText     EntityKind = "TEXT"
	EntityInsert   EntityKind = "INSERT"
)

// Point is a 3D coordinate in drawing units.
type Point struct {
	X float64
	Y float64
	Z float64
}

// Entity is a single piece of geometry. An entity of kind INSERT is a block
// placement: it references a BlockDefinition by name.
type Entity struct {
	Handle   Handle
	Kind     EntityKind
	Layer    string
	Linetype string
	Color    int

	// Points holds the defining vertices: LINE start/end, polyline vertices,
	// centre for CIRCLE/ARC, location for POINT/TEXT/INSERT.
	Points     []Point
	Radius     float64
	StartAngle float64
	EndAngle   float64
	Closed     bool

	Text   string
	Height float64

	Block    string
	Scale    Point
	Rotation float64
}

func (e Entity) IsPlacement() bool {
	return e.Kind == EntityInsert
}

// Clone returns a deep copy with the handle cleared.
func (e Entity) Clone() Entity {
	out := e
	out.Handle = ""
	if e.Points != nil {
		out.Points = make([]Point, len(e.Points))
		copy(out.Points, e.Points)
	}
	return out
}

// Layer is a named classification carrying a default color and linetype.
type Layer struct {
	Handle   Handle
	Name     string
	Color    int
	Linetype string
}

type Linetype struct {
	Handle      Handle
	Name        string
	Description string
	Pattern     []float64
}

// BlockDefinition is a named, reusable geometry template.
type BlockDefinition struct {
	Handle   Handle
	Name     string
	Base     Point
	Entities []Entity
}

// DrawingSnapshot is a plain-data view of a whole drawing. Codecs read and
// write snapshots; only the drawing engine mutates live drawings.
type DrawingSnapshot struct {
	Name       string
	Linetypes  []Linetype
	Layers     []Layer
	Blocks     []BlockDefinition
	ModelSpace []Entity
}

// SameName compares table names the way the drawing tables do: case-insensitive,
// using Unicode case folding.
func SameName(a, b string) bool {
	if a == b {
		return true
	}
	return cases.Fold().String(a) == cases.Fold().String(b)
}

// NameKey returns the lookup key for a table name.
func NameKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// EffectiveLinetype maps an empty linetype (as omitted in files) to ByLayer.
func EffectiveLinetype(name string) string {
	if strings.TrimSpace(name) == "" {
		return LinetypeByLayer
	}
	return name
}

// IsStandardLinetype reports whether an entity linetype needs no normalization:
// ByLayer or Continuous, compared case-insensitively.
func IsStandardLinetype(name string) bool {
	lt := EffectiveLinetype(name)
	return SameName(lt, LinetypeByLayer) || SameName(lt, LinetypeContinuous)
}

// IsPseudoLinetype reports names that only make sense on entities, never as a
// layer default.
func IsPseudoLinetype(name string) bool {
	lt := EffectiveLinetype(name)
	return SameName(lt, LinetypeByLayer) || SameName(lt, LinetypeByBlock)
}

// PlacementRef locates one placement: its handle and the block definition that
// owns it (empty for model space).
type PlacementRef struct {
	Handle Handle
	Owner  string
	Block  string
}

// DrawingRef is one discovered input file.
type DrawingRef struct {
	Path            string
	EquipmentNumber string
}
