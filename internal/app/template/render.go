package template

import (
	"fmt"
	"strings"

	"github.com/aalvaropc/procblock/internal/domain"
)

// RenderString replaces {{VAR}} placeholders with vars values.
// It returns an error if a variable is missing or a placeholder is malformed.
func RenderString(input string, vars map[string]string) (string, error) {
	if input == "" {
		return "", nil
	}

	var out strings.Builder
	rest := input
	for {
		start := strings.Index(rest, "{{")
		if start == -1 {
			out.WriteString(rest)
			return out.String(), nil
		}

		out.WriteString(rest[:start])
		rest = rest[start+2:]

		end := strings.Index(rest, "}}")
		if end == -1 {
			return "", invalidTemplate(input, "unclosed template expression")
		}

		key := strings.ToLower(strings.TrimSpace(rest[:end]))
		if key == "" {
			return "", invalidTemplate(input, "empty template expression")
		}

		value, ok := vars[key]
		if !ok {
			return "", invalidTemplate(input, fmt.Sprintf("unknown variable %q", key))
		}

		out.WriteString(value)
		rest = rest[end+2:]
	}
}

// LayerName renders the layer name an entity with the given linetype override
// moves to, e.g. "EQUIPMENT-{{linetype}}" -> "EQUIPMENT-DASHED".
func LayerName(pattern, linetype, block string) (string, error) {
	name, err := RenderString(pattern, map[string]string{
		"linetype": linetype,
		"block":    block,
	})
	if err != nil {
		return "", err
	}
	if err := ValidateLayerPattern(name); err != nil {
		return "", err
	}
	return name, nil
}

// ValidateLayerPattern checks that a rendered name is usable as a layer name.
func ValidateLayerPattern(name string) error {
	if strings.TrimSpace(name) == "" {
		return invalidTemplate(name, "layer name renders empty")
	}
	if i := strings.IndexAny(name, domain.ForbiddenNameChars); i >= 0 {
		return invalidTemplate(name, fmt.Sprintf("layer name contains forbidden character %q", name[i]))
	}
	return nil
}

func invalidTemplate(input, msg string) error {
	return &domain.OpError{
		Op:   "template.render",
		Kind: domain.KindInvalidConfig,
		Err:  fmt.Errorf("%q: %s: %w", input, msg, domain.ErrInvalidConfig),
	}
}
