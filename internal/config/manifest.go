package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EngineManifest is an optional YAML file overriding the engine version
// fallback list, e.g. shipped alongside the container image:
//
//	versions:
//	  - 4.3-stable
//	  - 4.2.2-stable
//	base_url: https://mirror.example.com/godot
type EngineManifest struct {
	Versions []string `yaml:"versions"`
	BaseURL  string   `yaml:"base_url"`
}

// LoadEngineManifest parses an engine manifest file.
func LoadEngineManifest(path string) (*EngineManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read engine manifest: %w", err)
	}

	var m EngineManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse engine manifest: %w", err)
	}
	if len(m.Versions) == 0 {
		return nil, fmt.Errorf("engine manifest %s lists no versions", path)
	}
	return &m, nil
}

// ApplyManifest overlays manifest values onto the engine configuration.
func (e *Engine) ApplyManifest(m *EngineManifest) {
	if m == nil {
		return
	}
	if len(m.Versions) > 0 {
		e.Versions = strings.Join(m.Versions, ",")
	}
	if m.BaseURL != "" {
		e.BaseURL = m.BaseURL
	}
}
