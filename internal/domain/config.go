package domain

// Config represents the procblock configuration loaded from procblock.yaml.
type Config struct {
	Paths     PathsConfig     `yaml:"paths"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Normalize NormalizeConfig `yaml:"normalize"`
	Assembly  AssemblyConfig  `yaml:"assembly"`
	Reports   ReportsConfig   `yaml:"reports"`
}

type PathsConfig struct {
	InputDir   string `yaml:"input_dir"`
	ReportsDir string `yaml:"reports_dir"`
	LogsDir    string `yaml:"logs_dir"`
}

// DiscoveryConfig filters input files. Patterns match base names only;
// discovery never descends into subdirectories.
type DiscoveryConfig struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

type NormalizeConfig struct {
	// LayerName is rendered with {{linetype}} to name the layer an override moves to.
	LayerName     string       `yaml:"layer_name"`
	LayerColor    int          `yaml:"layer_color"`
	CommitPolicy  CommitPolicy `yaml:"commit_policy"`
	SaveUnchanged bool         `yaml:"save_unchanged"`
}

type AssemblyConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Output   string  `yaml:"output"`
	Spacing  float64 `yaml:"spacing"`
	RowWidth float64 `yaml:"row_width"`
}

type ReportsConfig struct {
	Enabled bool `yaml:"enabled"`
	Index   bool `yaml:"index"`
}

// DefaultConfig provides sane defaults if procblock.yaml is partially missing.
func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			InputDir:   "input",
			ReportsDir: "reports",
			LogsDir:    ".procblock/logs",
		},
		Discovery: DiscoveryConfig{
			Include: []string{"*.dxf", "*.yaml", "*.yml"},
		},
		Normalize: NormalizeConfig{
			LayerName:    "EQUIPMENT-{{linetype}}",
			LayerColor:   3,
			CommitPolicy: PolicyAtomic,
		},
		Assembly: AssemblyConfig{
			Output:   "assembly.dxf",
			Spacing:  240,
			RowWidth: 2400,
		},
		Reports: ReportsConfig{
			Enabled: true,
			Index:   true,
		},
	}
}

// WorkspaceSpec describes where to create a workspace.
type WorkspaceSpec struct {
	Root string
}
