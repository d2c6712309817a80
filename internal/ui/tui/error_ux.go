package tui

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aalvaropc/procblock/internal/domain"
)

var reLine = regexp.MustCompile(`(?i)\bline\s+(\d+)\b`)

func userMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return "Batch cancelled"
	}

	var oe *domain.OpError
	if errors.As(err, &oe) {
		switch oe.Kind {

		case domain.KindNotFound:
			switch {
			case strings.HasPrefix(oe.Op, "config"):
				return "procblock.yaml not found"
			case strings.HasPrefix(oe.Op, "workspacefinder"):
				return "Workspace not found"
			case strings.HasPrefix(oe.Op, "drawingfinder"), oe.Op == "cli.input_dir", oe.Op == "watcher.add":
				return "Input directory not found"
			case strings.HasPrefix(oe.Op, "reportstore"):
				return "Report not found"
			case strings.HasPrefix(oe.Op, "drawingstore"), oe.Op == "cli.drawing":
				return "Drawing not found"
			}
			return "Not found"

		case domain.KindInvalidConfig:
			base := "config"
			if strings.TrimSpace(oe.Path) != "" {
				base = filepath.Base(oe.Path)
			}

			line := extractLine(err.Error())
			if line != "" {
				return "Invalid YAML at " + base + " line " + line
			}

			if looksLikeYAMLProblem(err.Error()) {
				return "Invalid YAML at " + base
			}
			return "Invalid config"

		case domain.KindInvalidDrawing:
			base := "drawing"
			if strings.TrimSpace(oe.Path) != "" {
				base = filepath.Base(oe.Path)
			}
			if line := extractLine(err.Error()); line != "" {
				return "Invalid drawing " + base + " line " + line
			}
			return "Invalid drawing " + base

		case domain.KindLayerCreation:
			return "Could not create layer (see logs)"

		case domain.KindTransaction:
			return "Block changes were not applied (see logs)"

		default:
			return "Unexpected error (see logs)"
		}
	}

	if looksLikeYAMLProblem(err.Error()) {
		line := extractLine(err.Error())
		if line != "" {
			return "Invalid YAML line " + line
		}
		return "Invalid YAML"
	}

	return "Unexpected error (see logs)"
}

func looksLikeYAMLProblem(s string) bool {
	ls := strings.ToLower(s)
	return strings.Contains(ls, "yaml:") || strings.Contains(ls, "did not find expected") || strings.Contains(ls, "cannot unmarshal")
}

func extractLine(s string) string {
	m := reLine.FindStringSubmatch(s)
	if len(m) == 2 {
		return m[1]
	}
	return ""
}
