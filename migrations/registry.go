package migrations

import (
	"fmt"

	"github.com/toolsascode/shift/internal/registry"
)

// Migration is a public alias for registry.Migration
type Migration = registry.Migration

// GoFileTemplate renders the wrapper that embeds a YAML unit and registers
// it at init time
const GoFileTemplate = registry.GoFileTemplate

// GlobalRegistry provides public access to the global migration registry
var GlobalRegistry = registry.GlobalRegistry

// Register adds m to the global registry
func Register(m *Migration) error {
	return GlobalRegistry.Register(m)
}

// MustRegister is Register that panics, for use from init functions
func MustRegister(m *Migration) {
	if err := Register(m); err != nil {
		panic(fmt.Sprintf("migrations: %v", err))
	}
}

// MustRegisterYAML parses an embedded YAML unit and registers it
func MustRegisterYAML(data []byte) {
	m, err := registry.Parse(data)
	if err != nil {
		panic(fmt.Sprintf("migrations: %v", err))
	}
	MustRegister(m)
}
