package domain

import "testing"

func TestIsStandardLinetype(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"ByLayer", true},
		{"BYLAYER", true},
		{"bylayer", true},
		{"Continuous", true},
		{"CONTINUOUS", true},
		{"", true},
		{"DASHED", false},
		{"ByBlock", false},
		{"HIDDEN2", false},
	}
	for _, c := range cases {
		if got := IsStandardLinetype(c.input); got != c.want {
			t.Errorf("IsStandardLinetype(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsPseudoLinetype(t *testing.T) {
	if !IsPseudoLinetype("BYBLOCK") || !IsPseudoLinetype("bylayer") {
		t.Fatalf("expected ByBlock/ByLayer to be pseudo linetypes")
	}
	if IsPseudoLinetype("Continuous") {
		t.Fatalf("Continuous is a real linetype")
	}
}

func TestSameNameFoldsCase(t *testing.T) {
	if !SameName("Equipment-Dashed", "EQUIPMENT-DASHED") {
		t.Fatalf("expected case-insensitive match")
	}
	if SameName("EQUIPMENT-DASHED", "EQUIPMENT-DASHED2") {
		t.Fatalf("unexpected match")
	}
	if NameKey("  Dashed ") != NameKey("DASHED") {
		t.Fatalf("expected keys to match")
	}
}

func TestEntityCloneIsDeep(t *testing.T) {
	e := Entity{Handle: "1A", Kind: EntityLine, Points: []Point{{X: 1}, {X: 2}}}
	c := e.Clone()
	c.Points[0].X = 99

	if e.Points[0].X != 1 {
		t.Fatalf("expected original points untouched")
	}
	if c.Handle != "" {
		t.Fatalf("expected clone handle to be cleared")
	}
}
