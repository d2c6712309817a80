package yamldrawing

type yamlDrawing struct {
	Name       string         `yaml:"name,omitempty"`
	Linetypes  []yamlLinetype `yaml:"linetypes,omitempty"`
	Layers     []yamlLayer    `yaml:"layers,omitempty"`
	Blocks     []yamlBlock    `yaml:"blocks,omitempty"`
	ModelSpace []yamlEntity   `yaml:"model_space,omitempty"`
}

type yamlLinetype struct {
	Handle      string    `yaml:"handle,omitempty"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Pattern     []float64 `yaml:"pattern,omitempty,flow"`
}

type yamlLayer struct {
	Handle   string `yaml:"handle,omitempty"`
	Name     string `yaml:"name"`
	Color    int    `yaml:"color,omitempty"`
	Linetype string `yaml:"linetype,omitempty"`
}

type yamlBlock struct {
	Handle   string       `yaml:"handle,omitempty"`
	Name     string       `yaml:"name"`
	Base     []float64    `yaml:"base,omitempty,flow"`
	Entities []yamlEntity `yaml:"entities,omitempty"`
}

type yamlEntity struct {
	Handle   string `yaml:"handle,omitempty"`
	Kind     string `yaml:"kind"`
	Layer    string `yaml:"layer,omitempty"`
	Linetype string `yaml:"linetype,omitempty"`
	Color    int    `yaml:"color,omitempty"`

	Points     [][]float64 `yaml:"points,omitempty,flow"`
	Radius     float64     `yaml:"radius,omitempty"`
	StartAngle float64     `yaml:"start_angle,omitempty"`
	EndAngle   float64     `yaml:"end_angle,omitempty"`
	Closed     bool        `yaml:"closed,omitempty"`

	Text   string  `yaml:"text,omitempty"`
	Height float64 `yaml:"height,omitempty"`

	Block    string    `yaml:"block,omitempty"`
	Scale    []float64 `yaml:"scale,omitempty,flow"`
	Rotation float64   `yaml:"rotation,omitempty"`
}
