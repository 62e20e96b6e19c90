package domain

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// manifestEntry is one element of a work-unit manifest file.
type manifestEntry struct {
	ID      string `yaml:"id"`
	Payload any    `yaml:"payload"`
}

// LoadUnits reads a YAML (or JSON) manifest listing work units and returns
// them in file order as pending units. The order is significant: it fixes
// each unit's lane assignment across restarts.
func LoadUnits(path string) ([]WorkUnit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read unit manifest: %w", err)
	}
	return ParseUnits(data)
}

// ParseUnits decodes manifest bytes. See LoadUnits.
func ParseUnits(data []byte) ([]WorkUnit, error) {
	var entries []manifestEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: failed to parse unit manifest: %v", ErrValidation, err)
	}

	units := make([]WorkUnit, 0, len(entries))
	for i, e := range entries {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: unit %d (%s) payload is not JSON-representable: %v",
				ErrValidation, i, e.ID, err)
		}
		unit, err := NewWorkUnit(e.ID, payload)
		if err != nil {
			return nil, fmt.Errorf("unit %d: %w", i, err)
		}
		units = append(units, unit)
	}

	if err := ValidateUnits(units); err != nil {
		return nil, err
	}
	return units, nil
}
