// Package differ computes the ordered list of operations that turns one
// schema snapshot into another.
package differ

import (
	"errors"
	"strings"

	"github.com/toolsascode/shift/internal/logger"
	"github.com/toolsascode/shift/internal/model"
	"github.com/toolsascode/shift/internal/operations"
)

var (
	// ErrDuplicateSeedKey is returned when one entity seeds the same key twice
	// into a table it does not share
	ErrDuplicateSeedKey = errors.New("duplicate seed data key")
	// ErrConflictingSeedData is returned when entities sharing a table seed
	// different values for the same key and column
	ErrConflictingSeedData = errors.New("conflicting seed data")
	// ErrMissingPrimaryKey is returned when seed data targets a keyless table
	ErrMissingPrimaryKey = errors.New("seed data requires a primary key")
	// ErrUnexpectedOperation is returned when an operation falls outside
	// every ordering band
	ErrUnexpectedOperation = errors.New("unexpected operation kind")
)

// Differ compares schema snapshots. It holds no state between calls.
type Differ struct{}

// New creates a Differ
func New() *Differ {
	return &Differ{}
}

// step produces the operations for one entity category
type step func(ctx *diffContext) ([]operations.Operation, error)

func (d *Differ) steps() []step {
	return []step{
		d.diffDatabase,
		d.diffSchemas,
		d.diffTables,
		d.diffForeignKeys,
		d.diffSequences,
		d.diffSeedData,
	}
}

// Diff returns the operations that transform source into target, sorted
// into a safe execution order. A nil snapshot stands for an empty database.
func (d *Differ) Diff(source, target *model.Model) ([]operations.Operation, error) {
	ctx := newDiffContext(source, target)

	var ops []operations.Operation
	for _, s := range d.steps() {
		out, err := s(ctx)
		if err != nil {
			return nil, err
		}
		ops = append(ops, out...)
	}

	sorted, err := d.sort(ops, ctx)
	if err != nil {
		return nil, err
	}
	logger.Debugf("Diff produced %d operation(s)", len(sorted))
	return sorted, nil
}

// HasDifferences reports whether Diff would return anything, stopping at
// the first entity category that differs.
func (d *Differ) HasDifferences(source, target *model.Model) (bool, error) {
	ctx := newDiffContext(source, target)
	for _, s := range d.steps() {
		out, err := s(ctx)
		if err != nil {
			return false, err
		}
		if len(out) > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (d *Differ) diffDatabase(ctx *diffContext) ([]operations.Operation, error) {
	s, t := ctx.source, ctx.target
	if s.Collation == t.Collation && s.Annotations.Equal(t.Annotations) {
		return nil, nil
	}
	op := &operations.AlterDatabase{
		Collation: t.Collation,
		OldDatabase: operations.DatabaseMirror{
			Collation:   s.Collation,
			Annotations: s.Annotations.Clone(),
		},
	}
	op.AddAnnotations(t.Annotations.Clone())
	return []operations.Operation{op}, nil
}

func (d *Differ) diffSchemas(ctx *diffContext) ([]operations.Operation, error) {
	return diffCollection(
		schemasOf(ctx.source),
		schemasOf(ctx.target),
		noDiff[string],
		func(name string) ([]operations.Operation, error) {
			return []operations.Operation{&operations.EnsureSchema{Name: name}}, nil
		},
		none[string],
		func(s, t string) bool { return s == t },
	)
}

func schemasOf(m *model.Model) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(schema string) {
		if schema == "" || seen[schema] {
			return
		}
		seen[schema] = true
		out = append(out, schema)
	}
	for _, t := range m.MigratableTables() {
		add(t.Schema)
	}
	for _, s := range m.Sequences {
		add(s.Schema)
	}
	return out
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func boolPtrEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strPtr(s string) *string {
	return &s
}

func sameName(a, b string) bool {
	return strings.EqualFold(a, b)
}
