package migrator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/toolsascode/shift/internal/registry"
)

// InitialDatabase is the target that reverts every applied migration
const InitialDatabase = "0"

var (
	// ErrMigrationNotFound is returned when a target names no known unit
	ErrMigrationNotFound = errors.New("migration not found")
	// ErrAmbiguousTarget is returned when a name matches several units
	ErrAmbiguousTarget = errors.New("migration name is ambiguous")
)

// Plan is the work needed to reach a target
type Plan struct {
	// Apply holds the units to apply, ascending
	Apply []*registry.Migration
	// Revert holds the units to revert, descending
	Revert []*registry.Migration
	// Landing is the applied unit the database ends on after reverting, or
	// nil when reverting to an empty database
	Landing *registry.Migration
}

// Empty reports whether the plan has nothing to do
func (p *Plan) Empty() bool {
	return len(p.Apply) == 0 && len(p.Revert) == 0
}

// BuildPlan partitions known units (ascending by ID) against the applied IDs.
// target is empty for "latest", InitialDatabase, a full ID or a unit name.
func BuildPlan(known []*registry.Migration, applied []string, target string) (*Plan, error) {
	appliedSet := make(map[string]bool, len(applied))
	for _, id := range applied {
		appliedSet[strings.ToLower(id)] = true
	}
	isApplied := func(m *registry.Migration) bool {
		return appliedSet[strings.ToLower(m.ID)]
	}

	plan := &Plan{}

	if target == "" {
		for _, m := range known {
			if !isApplied(m) {
				plan.Apply = append(plan.Apply, m)
			}
		}
		return plan, nil
	}

	if target == InitialDatabase {
		for i := len(known) - 1; i >= 0; i-- {
			if isApplied(known[i]) {
				plan.Revert = append(plan.Revert, known[i])
			}
		}
		return plan, nil
	}

	targetID, err := ResolveTarget(known, target)
	if err != nil {
		return nil, err
	}
	targetKey := strings.ToLower(targetID)

	for _, m := range known {
		if !isApplied(m) && strings.ToLower(m.ID) <= targetKey {
			plan.Apply = append(plan.Apply, m)
		}
	}
	for i := len(known) - 1; i >= 0; i-- {
		m := known[i]
		if !isApplied(m) {
			continue
		}
		key := strings.ToLower(m.ID)
		switch {
		case key > targetKey:
			plan.Revert = append(plan.Revert, m)
		case key == targetKey:
			plan.Landing = m
		}
	}
	return plan, nil
}

// ResolveTarget maps a full ID or a unit name onto the ID of a known unit.
// InitialDatabase resolves to itself.
func ResolveTarget(known []*registry.Migration, target string) (string, error) {
	if target == InitialDatabase {
		return InitialDatabase, nil
	}
	for _, m := range known {
		if strings.EqualFold(m.ID, target) {
			return m.ID, nil
		}
	}

	var matches []string
	for _, m := range known {
		if strings.EqualFold(m.Name(), target) {
			matches = append(matches, m.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrMigrationNotFound, target)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s matches %s", ErrAmbiguousTarget, target, strings.Join(matches, ", "))
	}
}
