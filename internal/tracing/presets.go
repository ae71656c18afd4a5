package tracing

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Presets is a trace configuration loaded at startup, for example:
//
//	exact: false
//	components:
//	  - name: billing
//	    levels: [1, 5]
//	  - name: auth
type Presets struct {
	Exact      bool              `yaml:"exact"`
	Components []ComponentPreset `yaml:"components"`
}

// ComponentPreset registers one component and its levels
type ComponentPreset struct {
	Name   string `yaml:"name"`
	Levels []int  `yaml:"levels"`
}

// LoadPresets reads and validates a YAML preset file
func LoadPresets(path string) (*Presets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace presets: %w", err)
	}

	var p Presets
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse trace presets %s: %w", path, err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid trace presets %s: %w", path, err)
	}

	return &p, nil
}

// Validate checks that every component has a usable name
func (p *Presets) Validate() error {
	for i, c := range p.Components {
		if err := ValidateName(c.Name); err != nil {
			return fmt.Errorf("components[%d]: %w", i, err)
		}
	}
	return nil
}

// Apply seeds r with the presets. Duplicate levels are ignored.
func (p *Presets) Apply(r *Registry) error {
	r.SetExact(p.Exact)

	for _, c := range p.Components {
		if _, err := r.AddComponent(c.Name); err != nil {
			return err
		}
		for _, level := range c.Levels {
			if err := r.AddLevel(c.Name, level); err != nil && !errors.Is(err, ErrLevelExists) {
				return err
			}
		}
	}
	return nil
}
