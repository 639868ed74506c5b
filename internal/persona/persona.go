// Package persona loads the catalogue of viewpoints opinions are generated
// under. A report always aggregates exactly two of them; which two is
// configuration, not code.
package persona

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Harshitk-cp/concord/internal/domain"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownPersona = errors.New("unknown persona")
	ErrSamePersona    = errors.New("persona pair must name two different personas")
	ErrEmptyCatalogue = errors.New("persona catalogue is empty")
)

const (
	PhysiologyID = "physiology"
	LifestyleID  = "lifestyle"
)

// Catalogue is the finite set of personas plus the default pair.
type Catalogue struct {
	Personas []domain.Persona `yaml:"personas" json:"personas"`
	DefaultA string           `yaml:"default_a" json:"defaultA"`
	DefaultB string           `yaml:"default_b" json:"defaultB"`
}

// Default returns the built-in physiology/lifestyle catalogue.
func Default() *Catalogue {
	return &Catalogue{
		Personas: []domain.Persona{
			{
				ID:      PhysiologyID,
				Label:   "A",
				Name:    "Physiology Analyst",
				ModelID: "persona-physiology",
				Focus:   "measurable physiology: vitals, device readings, lab values and their trends",
				Bias:    0.04,
			},
			{
				ID:      LifestyleID,
				Label:   "B",
				Name:    "Lifestyle Coach",
				ModelID: "persona-lifestyle",
				Focus:   "daily habits: sleep, activity, nutrition, stress and routine",
				Bias:    -0.04,
			},
		},
		DefaultA: PhysiologyID,
		DefaultB: LifestyleID,
	}
}

// Load reads a YAML catalogue from path.
func Load(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona file '%s': %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalogue. Missing labels default to
// the persona id; missing defaults fall back to the first two personas.
func Parse(data []byte) (*Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse persona yaml: %w", err)
	}
	if err := c.normalize(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalogue) normalize() error {
	if len(c.Personas) < 2 {
		return fmt.Errorf("%w: need at least two personas, got %d", ErrEmptyCatalogue, len(c.Personas))
	}

	seen := make(map[string]bool, len(c.Personas))
	for i := range c.Personas {
		p := &c.Personas[i]
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return fmt.Errorf("persona %d: id is required", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("persona %q: duplicate id", p.ID)
		}
		seen[p.ID] = true

		if p.Label == "" {
			p.Label = p.ID
		}
		if p.Name == "" {
			p.Name = p.ID
		}
		if p.ModelID == "" {
			p.ModelID = "persona-" + p.ID
		}
	}

	if c.DefaultA == "" {
		c.DefaultA = c.Personas[0].ID
	}
	if c.DefaultB == "" {
		c.DefaultB = c.Personas[1].ID
	}
	_, err := c.Pair(c.DefaultA, c.DefaultB)
	return err
}

func (c *Catalogue) Get(id string) (domain.Persona, bool) {
	for _, p := range c.Personas {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Persona{}, false
}

// Pair resolves two persona ids. Empty ids select the catalogue defaults.
func (c *Catalogue) Pair(aID, bID string) (domain.PersonaPair, error) {
	if aID == "" {
		aID = c.DefaultA
	}
	if bID == "" {
		bID = c.DefaultB
	}
	if aID == bID {
		return domain.PersonaPair{}, fmt.Errorf("%w: %q", ErrSamePersona, aID)
	}

	a, ok := c.Get(aID)
	if !ok {
		return domain.PersonaPair{}, fmt.Errorf("%w: %q", ErrUnknownPersona, aID)
	}
	b, ok := c.Get(bID)
	if !ok {
		return domain.PersonaPair{}, fmt.Errorf("%w: %q", ErrUnknownPersona, bID)
	}
	return domain.PersonaPair{A: a, B: b}, nil
}
