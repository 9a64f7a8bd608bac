// Package registry holds the known migration units, ordered by ID.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/toolsascode/shift/internal/idgen"
	"github.com/toolsascode/shift/internal/model"
	"github.com/toolsascode/shift/internal/operations"
)

// ErrInvalidID is returned when a unit's ID lacks the timestamp prefix
var ErrInvalidID = errors.New("invalid migration id")

// Migration is one migration unit. Up moves the database to TargetModel;
// Down moves it back to the previous unit's model.
type Migration struct {
	ID          string          `yaml:"id"`
	Up          operations.List `yaml:"up"`
	Down        operations.List `yaml:"down,omitempty"`
	TargetModel *model.Model    `yaml:"target_model,omitempty"`
}

// Name returns the ID without its timestamp prefix
func (m *Migration) Name() string {
	return idgen.GetName(m.ID)
}

// Validate checks the ID shape
func (m *Migration) Validate() error {
	if !idgen.IsValidID(m.ID) {
		return fmt.Errorf("%w: %q", ErrInvalidID, m.ID)
	}
	return nil
}

// Parse decodes a YAML unit
func Parse(data []byte) (*Migration, error) {
	var m Migration
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse migration: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if m.TargetModel != nil {
		if err := m.TargetModel.Validate(); err != nil {
			return nil, fmt.Errorf("migration %s: target model: %w", m.ID, err)
		}
	}
	return &m, nil
}

// Marshal encodes the unit as YAML
func (m *Migration) Marshal() ([]byte, error) {
	return yaml.Marshal(m)
}

// Registry manages migration unit registration and lookup
type Registry interface {
	// Register adds a unit, replacing any unit with the same ID
	Register(migration *Migration) error

	// GetAll returns every unit in ascending ID order
	GetAll() []*Migration

	// GetByID looks a unit up by ID, ignoring case
	GetByID(id string) (*Migration, bool)

	// GetByName returns the units whose name (ID without timestamp) matches
	GetByName(name string) []*Migration

	// Last returns the unit with the highest ID, or nil
	Last() *Migration
}

// GlobalRegistry is the global migration registry instance
var GlobalRegistry = NewInMemoryRegistry()

// NewInMemoryRegistry creates a new in-memory registry
func NewInMemoryRegistry() Registry {
	return &inMemoryRegistry{
		migrations: make(map[string]*Migration),
	}
}

type inMemoryRegistry struct {
	mu         sync.RWMutex
	migrations map[string]*Migration
}

func (r *inMemoryRegistry) Register(migration *Migration) error {
	if migration == nil {
		return errors.New("nil migration")
	}
	if err := migration.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.migrations[strings.ToLower(migration.ID)] = migration
	return nil
}

func (r *inMemoryRegistry) GetAll() []*Migration {
	r.mu.RLock()
	results := make([]*Migration, 0, len(r.migrations))
	for _, migration := range r.migrations {
		results = append(results, migration)
	}
	r.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results
}

func (r *inMemoryRegistry) GetByID(id string) (*Migration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.migrations[strings.ToLower(id)]
	return m, ok
}

func (r *inMemoryRegistry) GetByName(name string) []*Migration {
	var results []*Migration
	for _, migration := range r.GetAll() {
		if strings.EqualFold(migration.Name(), name) {
			results = append(results, migration)
		}
	}
	return results
}

func (r *inMemoryRegistry) Last() *Migration {
	all := r.GetAll()
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}
