package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadYAML reads a configuration from a YAML file. See ParseYAML.
func LoadYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: unable to open %s: %w", path, err)
	}
	return ParseYAML(data)
}

// ParseYAML reads a mapping of section name to a mapping of options:
//
//	tmc2208 stepper_x:
//	  uart_pin: PC11
//	  run_current: 0.580
//
// Section order is kept. Option values must be scalars; sequences are
// joined with commas.
func ParseYAML(data []byte) (*Config, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("config: yaml: %w", err)
	}
	c := New()
	if len(root.Content) == 0 {
		return c, nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("config: yaml: line %d: top level must be a mapping", doc.Line)
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		name, body := doc.Content[i].Value, doc.Content[i+1]
		options := make(map[string]string)
		switch body.Kind {
		case yaml.MappingNode:
			for j := 0; j+1 < len(body.Content); j += 2 {
				v, err := yamlScalar(body.Content[j+1])
				if err != nil {
					return nil, WrapError(name, body.Content[j].Value, err)
				}
				options[body.Content[j].Value] = v
			}
		case yaml.ScalarNode:
			if body.Tag != "!!null" {
				return nil, NewConfigError(name, "", fmt.Sprintf("line %d: section must be a mapping", body.Line))
			}
		default:
			return nil, NewConfigError(name, "", fmt.Sprintf("line %d: section must be a mapping", body.Line))
		}
		c.addSection(name, options)
	}
	return c, nil
}

func yamlScalar(n *yaml.Node) (string, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return "", nil
		}
		return n.Value, nil
	case yaml.SequenceNode:
		parts := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode {
				return "", fmt.Errorf("line %d: nested value", item.Line)
			}
			parts = append(parts, item.Value)
		}
		return strings.Join(parts, ", "), nil
	}
	return "", fmt.Errorf("line %d: nested value", n.Line)
}
