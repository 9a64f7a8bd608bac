package differ

import (
	"slices"

	"github.com/toolsascode/shift/internal/model"
	"github.com/toolsascode/shift/internal/operations"
)

// diffKeys handles primary keys and unique constraints together. A key only
// matches when its name, column set (after column renames) and kind are all
// unchanged; anything else is a drop followed by an add.
func (d *Differ) diffKeys(s, t *model.Table, ctx *diffContext) ([]operations.Operation, error) {
	return diffCollection(
		s.Keys(),
		t.Keys(),
		noDiff[*model.Key],
		func(k *model.Key) ([]operations.Operation, error) {
			if t.IsPrimaryKey(k) {
				return []operations.Operation{addPrimaryKey(k, t)}, nil
			}
			return []operations.Operation{addUniqueConstraint(k, t)}, nil
		},
		func(k *model.Key) ([]operations.Operation, error) {
			if s.IsPrimaryKey(k) {
				return []operations.Operation{&operations.DropPrimaryKey{Schema: s.Schema, Table: s.Name, Name: k.Name}}, nil
			}
			return []operations.Operation{&operations.DropUniqueConstraint{Schema: s.Schema, Table: s.Name, Name: k.Name}}, nil
		},
		func(sk, tk *model.Key) bool {
			return sk.Name == tk.Name &&
				slices.Equal(sk.Columns, ctx.sourceColumnNames(t, tk.Columns)) &&
				s.IsPrimaryKey(sk) == t.IsPrimaryKey(tk) &&
				sk.Annotations.Equal(tk.Annotations)
		},
	)
}

func addPrimaryKey(k *model.Key, t *model.Table) *operations.AddPrimaryKey {
	op := &operations.AddPrimaryKey{
		Schema:  t.Schema,
		Table:   t.Name,
		Name:    k.Name,
		Columns: slices.Clone(k.Columns),
	}
	op.AddAnnotations(k.Annotations.Clone())
	return op
}

func addUniqueConstraint(k *model.Key, t *model.Table) *operations.AddUniqueConstraint {
	op := &operations.AddUniqueConstraint{
		Schema:  t.Schema,
		Table:   t.Name,
		Name:    k.Name,
		Columns: slices.Clone(k.Columns),
	}
	op.AddAnnotations(k.Annotations.Clone())
	return op
}
