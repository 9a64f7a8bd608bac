package migrator

import (
	"errors"
	"fmt"

	"github.com/toolsascode/shift/internal/differ"
	"github.com/toolsascode/shift/internal/idgen"
	"github.com/toolsascode/shift/internal/model"
	"github.com/toolsascode/shift/internal/registry"
)

// ErrNoChanges is returned by Scaffold when the target matches the latest unit
var ErrNoChanges = errors.New("no schema changes")

// Scaffold diffs target against the model of the latest registered unit and
// returns a new unit named name holding both directions. The unit is not
// registered.
func Scaffold(reg registry.Registry, d *differ.Differ, ids *idgen.Generator, name string, target *model.Model) (*registry.Migration, error) {
	if name == "" {
		return nil, errors.New("migration name is required")
	}
	if err := target.Validate(); err != nil {
		return nil, fmt.Errorf("invalid target model: %w", err)
	}

	var current *model.Model
	if last := reg.Last(); last != nil {
		current = last.TargetModel
	}

	up, err := d.Diff(current, target)
	if err != nil {
		return nil, fmt.Errorf("failed to diff forward: %w", err)
	}
	if len(up) == 0 {
		return nil, ErrNoChanges
	}
	down, err := d.Diff(target, current)
	if err != nil {
		return nil, fmt.Errorf("failed to diff backward: %w", err)
	}

	return &registry.Migration{
		ID:          ids.GenerateID(name),
		Up:          up,
		Down:        down,
		TargetModel: target,
	}, nil
}
