package tui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aalvaropc/procblock/internal/domain"
)

func clampString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))

	n := 0
	for _, r := range s {
		if n >= maxLen {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String() + "…"
}

func statusLabel(s domain.FileStatus) string {
	switch s {
	case domain.FileOK:
		return "OK"
	case domain.FileSkipped:
		return "SKIP"
	case domain.FileFailed:
		return "FAIL"
	default:
		return "…"
	}
}

// renderFileLine is one row of the per-file status list.
func renderFileLine(t Theme, fr domain.FileResult, width int) string {
	style := t.OK
	switch fr.Status {
	case domain.FileSkipped:
		style = t.Skip
	case domain.FileFailed:
		style = t.Fail
	}

	var detail string
	n := fr.Normalize
	switch {
	case fr.Status == domain.FileFailed:
		detail = fr.Error
	case fr.Status == domain.FileSkipped:
		detail = "block not found"
	case n.Found:
		detail = fmt.Sprintf("%d placement(s), %d entities, %d reassigned", n.Placements, n.Entities, n.Reassigned)
		if len(n.LayersCreated) > 0 {
			detail += ", new " + strings.Join(n.LayersCreated, ",")
		}
		if fr.Error != "" {
			detail += " (partial: " + fr.Error + ")"
		}
	}

	line := fmt.Sprintf("%-6s %-16s %s", "["+statusLabel(fr.Status)+"]", clampString(fr.EquipmentNumber, 16), detail)
	if width > 0 {
		line = clampString(line, width)
	}
	return style.Render(line)
}

func renderSummary(b domain.BatchResult) string {
	c := b.Counts()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Files:    %d (ok %d, skipped %d, failed %d)\n", len(b.Files), c.OK, c.Skipped, c.Failed))
	sb.WriteString(fmt.Sprintf("Policy:   %s\n", b.Policy))
	if b.DryRun {
		sb.WriteString("Dry run:  nothing was saved\n")
	}
	if !b.StartedAt.IsZero() && !b.EndedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Duration: %s\n", b.EndedAt.Sub(b.StartedAt).Round(time.Millisecond)))
	}
	if b.AssemblyPath != "" {
		sb.WriteString(fmt.Sprintf("Assembly: %s\n", b.AssemblyPath))
	}
	if b.ReportID != "" {
		sb.WriteString(fmt.Sprintf("Report:   %s\n", b.ReportID))
	}
	return sb.String()
}

func renderReportLine(r domain.BatchRef) string {
	return fmt.Sprintf("%s  %s  ok=%d skipped=%d failed=%d",
		r.StartedAt.Local().Format(time.DateTime),
		r.ID,
		r.Counts.OK, r.Counts.Skipped, r.Counts.Failed,
	)
}

func percent(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(done) / float64(total)
	if p > 1 {
		return 1
	}
	return p
}
