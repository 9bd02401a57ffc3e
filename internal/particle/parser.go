package particle

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNoEmitters is returned for template files without emitters.
	ErrNoEmitters = errors.New("template contains no emitters")
	// ErrInvalidTemplate wraps every validation failure.
	ErrInvalidTemplate = errors.New("invalid emitter template")
)

// LoadTemplateSet reads and validates a YAML template file.
//
// Example usage:
//
//	set, err := LoadTemplateSet("data/templates/sparks.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Loaded %d emitters\n", len(set.Emitters))
func LoadTemplateSet(path string) (*TemplateSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file %s: %w", path, err)
	}
	set, err := ParseTemplateSet(data)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", path, err)
	}
	return set, nil
}

// ParseTemplateSet decodes and validates a template document.
func ParseTemplateSet(data []byte) (*TemplateSet, error) {
	var set TemplateSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	if len(set.Emitters) == 0 {
		return nil, ErrNoEmitters
	}
	for i := range set.Emitters {
		if err := set.Emitters[i].Validate(); err != nil {
			return nil, err
		}
	}
	return &set, nil
}

// Find returns the emitter template with the given name.
func (s *TemplateSet) Find(name string) (*EmitterTemplate, bool) {
	for i := range s.Emitters {
		if s.Emitters[i].Name == name {
			return &s.Emitters[i], true
		}
	}
	return nil, false
}

// Validate checks the template for values the simulation cannot run with.
func (t *EmitterTemplate) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: emitter has no name", ErrInvalidTemplate)
	}
	if t.Duration < 0 {
		return fmt.Errorf("%w: %s: duration must be >= 0", ErrInvalidTemplate, t.Name)
	}
	if t.Loops < 0 {
		return fmt.Errorf("%w: %s: loops must be >= 0", ErrInvalidTemplate, t.Name)
	}
	if t.MaxActive < 0 {
		return fmt.Errorf("%w: %s: maxActive must be >= 0", ErrInvalidTemplate, t.Name)
	}
	if lo, _ := t.Lifetime.Range(); t.Lifetime.IsSet() && lo < 0 {
		return fmt.Errorf("%w: %s: lifetime must be >= 0", ErrInvalidTemplate, t.Name)
	}
	for _, b := range t.Bursts {
		if b.Time < 0 || b.Time > 1 {
			return fmt.Errorf("%w: %s: burst time %.3f outside [0,1]", ErrInvalidTemplate, t.Name, b.Time)
		}
		if b.Count < 0 || b.CountLow < 0 {
			return fmt.Errorf("%w: %s: burst count must be >= 0", ErrInvalidTemplate, t.Name)
		}
	}

	orbits, collisions := 0, 0
	for i, m := range t.Modules {
		switch m.Type {
		case ModuleCollision:
			c := m.Collision
			if !m.Disabled {
				collisions++
			}
			if collisions > 1 {
				return fmt.Errorf("%w: %s: module %d: only one collision module per emitter", ErrInvalidTemplate, t.Name, i)
			}
			if c.MaxCollisionDistance <= 0 {
				return fmt.Errorf("%w: %s: module %d: maxCollisionDistance must be > 0", ErrInvalidTemplate, t.Name, i)
			}
			if c.InvisibleThreshold < 0 {
				return fmt.Errorf("%w: %s: module %d: invisibleThreshold must be >= 0", ErrInvalidTemplate, t.Name, i)
			}
		case ModuleOrbit:
			if m.Disabled {
				continue
			}
			if orbits == 0 && m.Orbit.ChainMode == ChainScale {
				// 第一个 orbit 层没有可以 scale 的前驱
				return fmt.Errorf("%w: %s: first orbit module cannot use chain mode scale", ErrInvalidTemplate, t.Name)
			}
			orbits++
		case ModuleSizeScaleBySpeed:
			s := m.SizeScaleBySpeed
			if s.MaxScale.X < 1 || s.MaxScale.Y < 1 {
				return fmt.Errorf("%w: %s: module %d: maxScale must be >= 1", ErrInvalidTemplate, t.Name, i)
			}
		}
	}
	return nil
}
