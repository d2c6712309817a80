package config

// ConfigFile is the workspace configuration file name.
const ConfigFile = "procblock.yaml"

type yamlConfig struct {
	Procblock yamlProcblock `yaml:"procblock"`
}

type yamlProcblock struct {
	Paths struct {
		InputDir   string `yaml:"input_dir"`
		ReportsDir string `yaml:"reports_dir"`
		LogsDir    string `yaml:"logs_dir"`
	} `yaml:"paths"`

	Discovery struct {
		Include []string `yaml:"include"`
		Exclude []string `yaml:"exclude"`
	} `yaml:"discovery"`

	Normalize struct {
		LayerName     string `yaml:"layer_name"`
		LayerColor    int    `yaml:"layer_color"`
		CommitPolicy  string `yaml:"commit_policy"`
		SaveUnchanged *bool  `yaml:"save_unchanged"`
	} `yaml:"normalize"`

	Assembly struct {
		Enabled  *bool   `yaml:"enabled"`
		Output   string  `yaml:"output"`
		Spacing  float64 `yaml:"spacing"`
		RowWidth float64 `yaml:"row_width"`
	} `yaml:"assembly"`

	Reports struct {
		Enabled *bool `yaml:"enabled"`
		Index   *bool `yaml:"index"`
	} `yaml:"reports"`
}
