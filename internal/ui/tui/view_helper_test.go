package tui

import (
	"strings"
	"testing"

	"github.com/aalvaropc/procblock/internal/domain"
)

func TestClampString(t *testing.T) {
	if got := clampString("EQUIPMENT-DASHED", 9); got != "EQUIPMENT…" {
		t.Errorf("got %q", got)
	}
	if got := clampString("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := clampString("x", 0); got != "" {
		t.Errorf("got %q", got)
	}
}

func TestPercent(t *testing.T) {
	cases := []struct {
		done, total int
		want        float64
	}{
		{0, 0, 0},
		{1, 4, 0.25},
		{5, 4, 1},
	}
	for _, c := range cases {
		if got := percent(c.done, c.total); got != c.want {
			t.Errorf("percent(%d, %d) = %v, want %v", c.done, c.total, got, c.want)
		}
	}
}

func TestRenderFileLine(t *testing.T) {
	th := DefaultTheme()

	ok := renderFileLine(th, domain.FileResult{
		EquipmentNumber: "PUMP01",
		Status:          domain.FileOK,
		Error:           "append failed",
		Normalize: domain.NormalizeResult{
			Found:         true,
			Placements:    2,
			Entities:      6,
			Reassigned:    4,
			LayersCreated: []string{"EQUIPMENT-DASHED"},
		},
	}, 0)
	for _, want := range []string{"[OK]", "PUMP01", "2 placement(s), 6 entities, 4 reassigned", "new EQUIPMENT-DASHED", "partial: append failed"} {
		if !strings.Contains(ok, want) {
			t.Errorf("expected %q in %q", want, ok)
		}
	}

	skip := renderFileLine(th, domain.FileResult{EquipmentNumber: "TANK02", Status: domain.FileSkipped}, 0)
	if !strings.Contains(skip, "[SKIP]") || !strings.Contains(skip, "block not found") {
		t.Errorf("unexpected skip line %q", skip)
	}
}

func TestRenderSummary(t *testing.T) {
	out := renderSummary(domain.BatchResult{
		Policy: domain.PolicyLenient,
		DryRun: true,
		Files: []domain.FileResult{
			{Status: domain.FileOK},
			{Status: domain.FileFailed},
		},
	})
	for _, want := range []string{"Files:    2 (ok 1, skipped 0, failed 1)", "Policy:   lenient", "Dry run"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}
