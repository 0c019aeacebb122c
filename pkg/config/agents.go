package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/agentgraph/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Agents holds every agent configuration found in a directory, keyed by file
// name without the .yaml extension.
type Agents struct {
	Dir     string
	Primary string

	specs map[string]domain.GraphSpec
	raw   map[string]map[string]any
}

// NewAgents creates an empty set whose primary configuration is primary.
func NewAgents(primary string) *Agents {
	return &Agents{
		Primary: primary,
		specs:   make(map[string]domain.GraphSpec),
		raw:     make(map[string]map[string]any),
	}
}

// LoadAgentConfigs parses every *.yaml file in dir. The primary configuration must exist.
func LoadAgentConfigs(dir, primary string) (*Agents, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read agent configs: %w", err)
	}

	a := NewAgents(primary)
	a.Dir = dir
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".yaml")
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if err := a.Add(name, data); err != nil {
			return nil, err
		}
	}

	if _, ok := a.specs[primary]; !ok {
		return nil, fmt.Errorf("agent config path %s does not contain a %s.yaml file", dir, primary)
	}
	return a, nil
}

// ParseSpec decodes one YAML configuration document.
func ParseSpec(data []byte) (domain.GraphSpec, map[string]any, error) {
	var spec domain.GraphSpec
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&spec); err != nil {
		return spec, nil, err
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return spec, nil, err
	}
	return spec, raw, nil
}

// Add registers a configuration document under name.
func (a *Agents) Add(name string, data []byte) error {
	spec, raw, err := ParseSpec(data)
	if err != nil {
		return &domain.ConfigurationError{Op: "load_config", Name: name, Err: err}
	}
	a.specs[name] = spec
	a.raw[name] = raw
	return nil
}

// AddSpec registers a specification built in code. The raw view used by Get
// is derived from its YAML encoding.
func (a *Agents) AddSpec(name string, spec domain.GraphSpec) error {
	data, err := yaml.Marshal(spec)
	if err != nil {
		return &domain.ConfigurationError{Op: "load_config", Name: name, Err: err}
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return &domain.ConfigurationError{Op: "load_config", Name: name, Err: err}
	}
	a.specs[name] = spec
	a.raw[name] = raw
	return nil
}

// Names returns the configuration names, sorted.
func (a *Agents) Names() []string {
	names := make([]string, 0, len(a.specs))
	for name := range a.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Spec returns the parsed specification for name.
func (a *Agents) Spec(name string) (domain.GraphSpec, bool) {
	spec, ok := a.specs[name]
	return spec, ok
}

// Get resolves a dot-separated path such as "checkpointer.type" in the raw
// document of configName, returning def when any segment is missing or nil.
func (a *Agents) Get(keyPath, configName string, def any) any {
	var value any = a.raw[configName]
	if value == nil {
		return def
	}
	for _, key := range strings.Split(keyPath, ".") {
		m, ok := value.(map[string]any)
		if !ok {
			return def
		}
		value = m[key]
	}
	if value == nil {
		return def
	}
	return value
}
