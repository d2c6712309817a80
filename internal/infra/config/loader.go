package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/aalvaropc/procblock/internal/domain"
)

// LoadConfig loads procblock.yaml from the workspace root over the defaults.
// A missing file is a not_found error; the defaults are still returned.
func LoadConfig(root string) (domain.Config, error) {
	cfg := domain.DefaultConfig()

	path := filepath.Join(root, ConfigFile)
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, &domain.OpError{
			Op:   "config.load",
			Kind: domain.KindNotFound,
			Path: path,
			Err:  err,
		}
	}

	return Parse(path, b)
}

// Parse decodes a procblock.yaml document. Unknown keys are rejected.
func Parse(path string, b []byte) (domain.Config, error) {
	base := domain.DefaultConfig()

	var y yamlConfig
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&y); err != nil && !errors.Is(err, io.EOF) {
		return base, &domain.OpError{
			Op:   "config.load",
			Kind: domain.KindInvalidConfig,
			Path: path,
			Err:  err,
		}
	}

	return MapConfig(path, base, y.Procblock)
}
