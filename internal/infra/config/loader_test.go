package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aalvaropc/procblock/internal/domain"
)

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	root := t.TempDir()

	content := []byte("procblock:\n  normalize:\n    commit_policy: lenient\n")
	if err := os.WriteFile(filepath.Join(root, ConfigFile), content, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if cfg.Normalize.CommitPolicy != domain.PolicyLenient {
		t.Fatalf("expected lenient, got=%s", cfg.Normalize.CommitPolicy)
	}
	if cfg.Normalize.LayerName != "EQUIPMENT-{{linetype}}" {
		t.Fatalf("expected default layer pattern, got=%s", cfg.Normalize.LayerName)
	}
	if cfg.Paths.InputDir != "input" || cfg.Paths.ReportsDir != "reports" {
		t.Fatalf("unexpected paths: %+v", cfg.Paths)
	}
	if len(cfg.Discovery.Include) != 3 {
		t.Fatalf("expected default include patterns, got=%v", cfg.Discovery.Include)
	}
	if !cfg.Reports.Enabled {
		t.Fatalf("reports should stay enabled by default")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
	if cfg.Assembly.Spacing != 240 {
		t.Fatalf("defaults should be returned with the error")
	}
}

func TestParse_OverridesListsAndBooleans(t *testing.T) {
	doc := `
procblock:
  paths:
    input_dir: drawings
  discovery:
    include: ["*.dxf"]
    exclude: ["tmp-*"]
  assembly:
    enabled: true
    spacing: 300
    row_width: 3000
  reports:
    enabled: false
`
	cfg, err := Parse("procblock.yaml", []byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Paths.InputDir != "drawings" || cfg.Paths.LogsDir != ".procblock/logs" {
		t.Fatalf("paths = %+v", cfg.Paths)
	}
	if len(cfg.Discovery.Include) != 1 || cfg.Discovery.Exclude[0] != "tmp-*" {
		t.Fatalf("discovery = %+v", cfg.Discovery)
	}
	if !cfg.Assembly.Enabled || cfg.Assembly.Spacing != 300 || cfg.Assembly.Output != "assembly.dxf" {
		t.Fatalf("assembly = %+v", cfg.Assembly)
	}
	if cfg.Reports.Enabled || !cfg.Reports.Index {
		t.Fatalf("reports = %+v", cfg.Reports)
	}
}

func TestParse_Rejections(t *testing.T) {
	cases := []struct {
		name  string
		doc   string
		field string
	}{
		{"policy", "procblock:\n  normalize:\n    commit_policy: eager\n", "normalize.commit_policy"},
		{"color", "procblock:\n  normalize:\n    layer_color: 300\n", "normalize.layer_color"},
		{"layer pattern", "procblock:\n  normalize:\n    layer_name: \"EQ/{{linetype}}\"\n", "normalize.layer_name"},
		{"unknown variable", "procblock:\n  normalize:\n    layer_name: \"EQ-{{color}}\"\n", "normalize.layer_name"},
		{"row width", "procblock:\n  assembly:\n    row_width: 100\n", "assembly.row_width"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse("procblock.yaml", []byte(tc.doc))
			if !errors.Is(err, domain.ErrInvalidConfig) {
				t.Fatalf("expected invalid config, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Fatalf("expected field %s in %v", tc.field, err)
			}
		})
	}
}

func TestParse_UnknownKey(t *testing.T) {
	_, err := Parse("procblock.yaml", []byte("procblock:\n  normalise:\n    layer_color: 3\n"))
	if !domain.IsKind(err, domain.KindInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	cfg, err := Parse("procblock.yaml", nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Normalize.CommitPolicy != domain.PolicyAtomic {
		t.Fatalf("expected defaults, got %+v", cfg.Normalize)
	}
}

func TestParse_WorkspaceTemplate(t *testing.T) {
	b, err := os.ReadFile(filepath.Join("..", "fsworkspace", "templates", ConfigFile))
	if err != nil {
		t.Fatalf("read template: %v", err)
	}
	cfg, err := Parse(ConfigFile, b)
	if err != nil {
		t.Fatalf("template must parse: %v", err)
	}
	if cfg.Assembly.RowWidth != 2400 || cfg.Normalize.LayerColor != 3 {
		t.Fatalf("cfg = %+v", cfg)
	}
}
