package tui

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aalvaropc/procblock/internal/domain"
)

func TestUserMessage(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"cancelled", fmt.Errorf("batch: %w", context.Canceled), "Batch cancelled"},
		{
			"config yaml line",
			&domain.OpError{Op: "config.load", Kind: domain.KindInvalidConfig, Path: "/ws/procblock.yaml", Err: errors.New("yaml: line 4: did not find expected key")},
			"Invalid YAML at procblock.yaml line 4",
		},
		{
			"config field",
			&domain.OpError{Op: "config.map", Kind: domain.KindInvalidConfig, Path: "/ws/procblock.yaml", Err: errors.New("normalize.layer_color: must be 1..255")},
			"Invalid config",
		},
		{
			"input dir",
			&domain.OpError{Op: "drawingfinder.discover", Kind: domain.KindNotFound, Path: "/ws/input"},
			"Input directory not found",
		},
		{
			"report",
			&domain.OpError{Op: "reportstore.resolve", Kind: domain.KindNotFound},
			"Report not found",
		},
		{
			"dxf line",
			&domain.OpError{Op: "dxf.decode", Kind: domain.KindInvalidDrawing, Path: "/ws/input/PUMP01.dxf", Err: errors.New("line 12: expected group code 0, got 8")},
			"Invalid drawing PUMP01.dxf line 12",
		},
		{
			"layer",
			&domain.OpError{Op: "layers.resolve", Kind: domain.KindLayerCreation},
			"Could not create layer (see logs)",
		},
		{"plain yaml", errors.New("yaml: line 2: mapping values are not allowed"), "Invalid YAML line 2"},
		{"other", errors.New("boom"), "Unexpected error (see logs)"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := userMessage(c.err); got != c.want {
				t.Errorf("userMessage() = %q, want %q", got, c.want)
			}
		})
	}
}
