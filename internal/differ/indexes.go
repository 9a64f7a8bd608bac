package differ

import (
	"slices"

	"github.com/toolsascode/shift/internal/model"
	"github.com/toolsascode/shift/internal/operations"
)

func (d *Differ) diffIndexes(s, t *model.Table, ctx *diffContext) ([]operations.Operation, error) {
	sameShape := func(si, ti *model.Index) bool {
		return si.IsUnique == ti.IsUnique &&
			stringPtrEqual(si.Filter, ti.Filter) &&
			si.Annotations.Equal(ti.Annotations) &&
			slices.Equal(si.Columns, ctx.sourceColumnNames(t, ti.Columns))
	}
	return diffCollection(
		s.Indexes,
		t.Indexes,
		func(si, ti *model.Index) ([]operations.Operation, error) {
			if si.Name == ti.Name {
				return nil, nil
			}
			return []operations.Operation{&operations.RenameIndex{
				Schema:  t.Schema,
				Table:   t.Name,
				Name:    si.Name,
				NewName: ti.Name,
			}}, nil
		},
		func(ti *model.Index) ([]operations.Operation, error) {
			return []operations.Operation{createIndex(ti, t)}, nil
		},
		func(si *model.Index) ([]operations.Operation, error) {
			return []operations.Operation{&operations.DropIndex{Schema: s.Schema, Table: s.Name, Name: si.Name}}, nil
		},
		func(si, ti *model.Index) bool { return sameName(si.Name, ti.Name) && sameShape(si, ti) },
		sameShape,
	)
}

func createIndex(ix *model.Index, t *model.Table) *operations.CreateIndex {
	op := &operations.CreateIndex{
		Schema:   t.Schema,
		Table:    t.Name,
		Name:     ix.Name,
		Columns:  slices.Clone(ix.Columns),
		IsUnique: ix.IsUnique,
		Filter:   ix.Filter,
	}
	op.AddAnnotations(ix.Annotations.Clone())
	return op
}

// diffCheckConstraints never renames: a constraint whose name changed is
// dropped from the old table and re-added to the new one.
func (d *Differ) diffCheckConstraints(s, t *model.Table, _ *diffContext) ([]operations.Operation, error) {
	return diffCollection(
		s.CheckConstraints,
		t.CheckConstraints,
		func(sc, tc *model.CheckConstraint) ([]operations.Operation, error) {
			if sc.Name == tc.Name {
				return nil, nil
			}
			return []operations.Operation{
				&operations.DropCheckConstraint{Schema: s.Schema, Table: s.Name, Name: sc.Name},
				addCheckConstraint(tc, t),
			}, nil
		},
		func(tc *model.CheckConstraint) ([]operations.Operation, error) {
			return []operations.Operation{addCheckConstraint(tc, t)}, nil
		},
		func(sc *model.CheckConstraint) ([]operations.Operation, error) {
			return []operations.Operation{&operations.DropCheckConstraint{Schema: s.Schema, Table: s.Name, Name: sc.Name}}, nil
		},
		func(sc, tc *model.CheckConstraint) bool {
			return sameName(sc.Name, tc.Name) && sc.SQL == tc.SQL && sc.Annotations.Equal(tc.Annotations)
		},
		func(sc, tc *model.CheckConstraint) bool {
			return sc.SQL == tc.SQL && sc.Annotations.Equal(tc.Annotations)
		},
	)
}

func addCheckConstraint(ck *model.CheckConstraint, t *model.Table) *operations.AddCheckConstraint {
	op := &operations.AddCheckConstraint{
		Schema: t.Schema,
		Table:  t.Name,
		Name:   ck.Name,
		SQL:    ck.SQL,
	}
	op.AddAnnotations(ck.Annotations.Clone())
	return op
}
