package yamldrawing

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aalvaropc/procblock/internal/domain"
)

func decodeFile(t *testing.T, name string) (domain.DrawingSnapshot, error) {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	return Decode(f, strings.TrimSuffix(name, filepath.Ext(name)))
}

func TestDecodePump(t *testing.T) {
	s, err := decodeFile(t, "pump01.yaml")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.Name != "PUMP01" {
		t.Fatalf("expected name PUMP01, got %q", s.Name)
	}
	if len(s.Blocks) != 1 || len(s.Blocks[0].Entities) != 3 {
		t.Fatalf("unexpected blocks %+v", s.Blocks)
	}

	ents := s.Blocks[0].Entities
	if ents[0].Linetype != domain.LinetypeByLayer {
		t.Fatalf("expected omitted linetype to map to ByLayer, got %q", ents[0].Linetype)
	}
	if ents[1].Linetype != "DASHED" {
		t.Fatalf("expected DASHED, got %q", ents[1].Linetype)
	}
	if ents[0].Color != domain.ColorByLayer {
		t.Fatalf("expected ByLayer color, got %d", ents[0].Color)
	}

	ins := s.ModelSpace[0]
	if ins.Scale != (domain.Point{X: 1, Y: 1, Z: 1}) {
		t.Fatalf("expected unit scale, got %+v", ins.Scale)
	}
	if ins.Points[0] != (domain.Point{X: 100, Y: 50}) {
		t.Fatalf("unexpected insertion point %+v", ins.Points[0])
	}
}

func TestDecodeUnsupportedKind(t *testing.T) {
	_, err := decodeFile(t, "invalid_kind.yaml")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "blocks[0].entities[0].kind") {
		t.Fatalf("expected field path in error, got %v", err)
	}
	if !domain.IsKind(err, domain.KindInvalidDrawing) {
		t.Fatalf("expected invalid drawing kind, got %v", err)
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode(strings.NewReader("layerz: []\n"), "x")
	if err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestDecodeBadPoint(t *testing.T) {
	src := "model_space:\n  - kind: POINT\n    points: [[1, 2, 3, 4]]\n"
	_, err := Decode(strings.NewReader(src), "x")
	if err == nil || !strings.Contains(err.Error(), "model_space[0].points[0]") {
		t.Fatalf("expected point error, got %v", err)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in, err := decodeFile(t, "pump01.yaml")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, in); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Contains(buf.String(), "ByLayer") {
		t.Fatalf("expected ByLayer to be omitted from output:\n%s", buf.String())
	}

	out, err := Decode(&buf, "ignored")
	if err != nil {
		t.Fatalf("Decode after Encode: %v\n%s", err, buf.String())
	}
	if out.Name != "PUMP01" || len(out.Blocks[0].Entities) != 3 || out.Blocks[0].Entities[2].Radius != 2.5 {
		t.Fatalf("round trip lost data: %+v", out)
	}
}
