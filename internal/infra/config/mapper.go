package config

import (
	"fmt"
	"strings"

	"dario.cat/mergo"

	"github.com/aalvaropc/procblock/internal/app/template"
	"github.com/aalvaropc/procblock/internal/domain"
)

// MapConfig applies the values set in the file on top of base.
// Unset scalars keep the base value; set lists replace it.
func MapConfig(path string, base domain.Config, y yamlProcblock) (domain.Config, error) {
	cfg := base

	overlay := domain.Config{
		Paths: domain.PathsConfig{
			InputDir:   strings.TrimSpace(y.Paths.InputDir),
			ReportsDir: strings.TrimSpace(y.Paths.ReportsDir),
			LogsDir:    strings.TrimSpace(y.Paths.LogsDir),
		},
		Discovery: domain.DiscoveryConfig{
			Include: y.Discovery.Include,
			Exclude: y.Discovery.Exclude,
		},
		Normalize: domain.NormalizeConfig{
			LayerName:    strings.TrimSpace(y.Normalize.LayerName),
			LayerColor:   y.Normalize.LayerColor,
			CommitPolicy: domain.CommitPolicy(strings.ToLower(strings.TrimSpace(y.Normalize.CommitPolicy))),
		},
		Assembly: domain.AssemblyConfig{
			Output:   strings.TrimSpace(y.Assembly.Output),
			Spacing:  y.Assembly.Spacing,
			RowWidth: y.Assembly.RowWidth,
		},
	}
	if err := mergo.Merge(&cfg, overlay, mergo.WithOverride); err != nil {
		return base, &domain.OpError{Op: "config.map", Kind: domain.KindInvalidConfig, Path: path, Err: err}
	}

	// Booleans are pointers in the file so false can override a true default.
	if y.Normalize.SaveUnchanged != nil {
		cfg.Normalize.SaveUnchanged = *y.Normalize.SaveUnchanged
	}
	if y.Assembly.Enabled != nil {
		cfg.Assembly.Enabled = *y.Assembly.Enabled
	}
	if y.Reports.Enabled != nil {
		cfg.Reports.Enabled = *y.Reports.Enabled
	}
	if y.Reports.Index != nil {
		cfg.Reports.Index = *y.Reports.Index
	}

	if err := Validate(path, cfg); err != nil {
		return base, err
	}
	return cfg, nil
}

// Validate checks values a run cannot work without.
func Validate(path string, cfg domain.Config) error {
	if !cfg.Normalize.CommitPolicy.Valid() {
		return invalidField(path, "normalize.commit_policy", fmt.Sprintf("unknown policy %q (want atomic or lenient)", cfg.Normalize.CommitPolicy))
	}
	if cfg.Normalize.LayerColor < 1 || cfg.Normalize.LayerColor > 255 {
		return invalidField(path, "normalize.layer_color", fmt.Sprintf("color %d out of range 1..255", cfg.Normalize.LayerColor))
	}
	if _, err := template.LayerName(cfg.Normalize.LayerName, "DASHED", "BLOCK"); err != nil {
		return invalidField(path, "normalize.layer_name", err.Error())
	}
	if len(cfg.Discovery.Include) == 0 {
		return invalidField(path, "discovery.include", "at least one pattern is required")
	}
	if cfg.Assembly.Spacing <= 0 {
		return invalidField(path, "assembly.spacing", "must be positive")
	}
	if cfg.Assembly.RowWidth < cfg.Assembly.Spacing {
		return invalidField(path, "assembly.row_width", "must be at least the spacing")
	}
	if strings.TrimSpace(cfg.Paths.InputDir) == "" {
		return invalidField(path, "paths.input_dir", "is required")
	}
	return nil
}

func invalidField(path, field, msg string) error {
	return &domain.OpError{
		Op:   "config.map",
		Kind: domain.KindInvalidConfig,
		Path: path,
		Err:  fmt.Errorf("field %s: %s: %w", field, msg, domain.ErrInvalidConfig),
	}
}
