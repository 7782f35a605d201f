package tokens

import (
	"fmt"
	"os"

	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a token set from a YAML or JSON file.
func LoadFile(path string) (*Set, error) {
	// #nosec G304 - path comes from trusted configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read token set"), "path", path)
	}

	set, err := Parse(data)
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return set, nil
}

// Parse decodes a token set document. JSON documents are accepted as well
// since JSON is a subset of YAML.
func Parse(data []byte) (*Set, error) {
	var set Set
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, zerr.With(zerr.Wrap(ErrInvalidTokenSet, "failed to decode token set"), "cause", err.Error())
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return &set, nil
}

// UnmarshalYAML accepts either a scalar or a {value, light, dark} mapping.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		v.Value = node.Value
		return nil
	case yaml.MappingNode:
		var raw struct {
			Value string `yaml:"value"`
			Light string `yaml:"light"`
			Dark  string `yaml:"dark"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		v.Value, v.Light, v.Dark = raw.Value, raw.Light, raw.Dark
		if v.Primary() == "" {
			return fmt.Errorf("line %d: token has neither value nor light variant", node.Line)
		}
		return nil
	}
	return fmt.Errorf("line %d: unsupported token value", node.Line)
}

// UnmarshalYAML decodes a mapping while keeping document order.
func (g *Group) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: token group must be a mapping", node.Line)
	}

	out := make(Group, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		var v Value
		if err := val.Decode(&v); err != nil {
			return err
		}
		out = append(out, Entry{Name: key.Value, Value: v})
	}
	*g = out
	return nil
}

// UnmarshalYAML accepts both colors.roles and a flat colors mapping.
func (c *Colors) UnmarshalYAML(node *yaml.Node) error {
	g, err := decodeNested(node, "roles")
	c.Roles = g
	return err
}

// UnmarshalYAML accepts both spacing.tokens and a flat spacing mapping.
func (s *Spacing) UnmarshalYAML(node *yaml.Node) error {
	g, err := decodeNested(node, "tokens")
	s.Tokens = g
	return err
}

func decodeNested(node *yaml.Node, key string) (Group, error) {
	var g Group
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == key && node.Content[i+1].Kind == yaml.MappingNode {
				err := node.Content[i+1].Decode(&g)
				return g, err
			}
		}
	}
	err := node.Decode(&g)
	return g, err
}
