package model

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrEmptySQL is returned when a SQL expression is present but blank
	ErrEmptySQL = errors.New("empty SQL expression")
	// ErrAmbiguousDefault is returned when more than one of default value,
	// default SQL and computed SQL is set on a column
	ErrAmbiguousDefault = errors.New("column may specify only one of default value, default SQL or computed SQL")
)

// Load reads a YAML snapshot from path
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes and validates a YAML snapshot
func Parse(data []byte) (*Model, error) {
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Marshal encodes the snapshot as YAML
func (m *Model) Marshal() ([]byte, error) {
	return yaml.Marshal(m)
}

// Validate reports authoring errors in the snapshot
func (m *Model) Validate() error {
	seen := make(map[string]bool)
	for _, t := range m.Tables {
		if t.Name == "" {
			return errors.New("table with empty name")
		}
		key := strings.ToLower(t.QualifiedName())
		if seen[key] {
			return fmt.Errorf("duplicate table %s", t.QualifiedName())
		}
		seen[key] = true

		for _, c := range t.Columns {
			if c.Name == "" {
				return fmt.Errorf("table %s: column with empty name", t.QualifiedName())
			}
			if err := ValidateColumn(c); err != nil {
				return fmt.Errorf("table %s column %s: %w", t.QualifiedName(), c.Name, err)
			}
		}
		for _, ck := range t.CheckConstraints {
			if strings.TrimSpace(ck.SQL) == "" {
				return fmt.Errorf("table %s check %s: %w", t.QualifiedName(), ck.Name, ErrEmptySQL)
			}
		}
		for _, k := range t.Keys() {
			for _, col := range k.Columns {
				if t.FindColumn(col) == nil {
					return fmt.Errorf("table %s key %s: unknown column %s", t.QualifiedName(), k.Name, col)
				}
			}
		}
	}
	for _, s := range m.Sequences {
		if s.Name == "" {
			return errors.New("sequence with empty name")
		}
	}
	return nil
}

// ValidateColumn checks the default/default-SQL/computed-SQL constraint
func ValidateColumn(c *Column) error {
	set := 0
	if c.DefaultValue != nil {
		set++
	}
	if c.DefaultValueSQL != nil {
		if strings.TrimSpace(*c.DefaultValueSQL) == "" {
			return fmt.Errorf("default SQL: %w", ErrEmptySQL)
		}
		set++
	}
	if c.ComputedColumnSQL != nil {
		if strings.TrimSpace(*c.ComputedColumnSQL) == "" {
			return fmt.Errorf("computed SQL: %w", ErrEmptySQL)
		}
		set++
	}
	if set > 1 {
		return ErrAmbiguousDefault
	}
	return nil
}
