package quality

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Level groups checks by what they inspect.
type Level string

const (
	LevelQuestion   Level = "question"
	LevelDistractor Level = "distractor"
)

// ErrInvalidCatalog is returned when a check catalogue cannot be used.
var ErrInvalidCatalog = errors.New("invalid check catalog")

// Check is one named quality check and the instruction given to the checker.
type Check struct {
	Name   string `yaml:"name"`
	Level  Level  `yaml:"level"`
	Prompt string `yaml:"prompt"`
}

// Catalog is the ordered list of checks run against every generated unit.
type Catalog struct {
	Checks []Check `yaml:"checks"`
}

// LoadCatalog reads a YAML check catalogue from path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read check catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML check catalogue.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate requires at least one check, unique non-empty names and a known level.
func (c *Catalog) Validate() error {
	if len(c.Checks) == 0 {
		return fmt.Errorf("%w: no checks defined", ErrInvalidCatalog)
	}
	seen := make(map[string]struct{}, len(c.Checks))
	for i, check := range c.Checks {
		if check.Name == "" {
			return fmt.Errorf("%w: check %d has no name", ErrInvalidCatalog, i)
		}
		if _, dup := seen[check.Name]; dup {
			return fmt.Errorf("%w: duplicate check %q", ErrInvalidCatalog, check.Name)
		}
		seen[check.Name] = struct{}{}
		if check.Level != LevelQuestion && check.Level != LevelDistractor {
			return fmt.Errorf("%w: check %q has unknown level %q", ErrInvalidCatalog, check.Name, check.Level)
		}
	}
	return nil
}

// Names returns check names in catalogue order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Checks))
	for i, check := range c.Checks {
		names[i] = check.Name
	}
	return names
}

// ByLevel returns the checks belonging to one level, in catalogue order.
func (c *Catalog) ByLevel(level Level) []Check {
	var out []Check
	for _, check := range c.Checks {
		if check.Level == level {
			out = append(out, check)
		}
	}
	return out
}

// Complete fills in every catalogue check missing from results as failed,
// and drops names the catalogue does not define.
func (c *Catalog) Complete(results map[string]bool) map[string]bool {
	out := make(map[string]bool, len(c.Checks))
	for _, check := range c.Checks {
		out[check.Name] = results[check.Name]
	}
	return out
}
