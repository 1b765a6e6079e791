package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SettableKeys are the keys `config set` accepts.
var SettableKeys = map[string]bool{
	"verbose":                true,
	"data.dir":               true,
	"data.db":                true,
	"projects.dir":           true,
	"log.file":               true,
	"llm.provider":           true,
	"llm.model":              true,
	"llm.apiKey":             true,
	"llm.baseURL":            true,
	"compaction.timeout":     true,
	"compaction.maxMessages": true,
	"prompts.templatesDir":   true,
}

// SetValue writes key = value into the YAML config file at path, creating
// the file and any intermediate mappings as needed. Comments and unrelated
// keys are preserved.
func SetValue(path, key, value string) error {
	if !SettableKeys[key] {
		return fmt.Errorf("unknown config key %q", key)
	}

	var doc yaml.Node
	content, err := os.ReadFile(path)
	switch {
	case err == nil && len(bytes.TrimSpace(content)) > 0:
		if err := yaml.Unmarshal(content, &doc); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	case err == nil, os.IsNotExist(err):
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode}}}
	default:
		return fmt.Errorf("read %s: %w", path, err)
	}

	if len(doc.Content) == 0 {
		doc.Content = []*yaml.Node{{Kind: yaml.MappingNode}}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("%s: top level is not a mapping", path)
	}

	parts := strings.Split(key, ".")
	node := root
	for _, part := range parts[:len(parts)-1] {
		node = mappingChild(node, part)
	}
	setScalar(node, parts[len(parts)-1], value)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0600)
}

// mappingChild returns the mapping stored under key in m, creating it (or
// replacing a scalar) when needed.
func mappingChild(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			child := m.Content[i+1]
			if child.Kind != yaml.MappingNode {
				child.Kind = yaml.MappingNode
				child.Tag = ""
				child.Value = ""
				child.Content = nil
			}
			return child
		}
	}
	child := &yaml.Node{Kind: yaml.MappingNode}
	m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, child)
	return child
}

func setScalar(m *yaml.Node, key, value string) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = &yaml.Node{Kind: yaml.ScalarNode, Value: value}
			return
		}
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Value: value})
}

// Redacted returns a copy of c safe to print.
func (c Config) Redacted() Config {
	if c.LLM.APIKey != "" {
		c.LLM.APIKey = maskKey(c.LLM.APIKey)
	}
	return c
}

// YAML renders the configuration with secrets masked.
func (c *Config) YAML() (string, error) {
	out, err := yaml.Marshal(c.Redacted())
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
