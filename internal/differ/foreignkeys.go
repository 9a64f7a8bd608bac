package differ

import (
	"slices"

	"github.com/toolsascode/shift/internal/model"
	"github.com/toolsascode/shift/internal/operations"
)

// fkRef is a foreign key together with the table declaring it
type fkRef struct {
	table *model.Table
	fk    *model.ForeignKey
}

func foreignKeysOf(m *model.Model) []fkRef {
	var refs []fkRef
	for _, t := range m.MigratableTables() {
		for _, fk := range t.ForeignKeys {
			refs = append(refs, fkRef{table: t, fk: fk})
		}
	}
	return refs
}

// diffForeignKeys runs after every table has been paired so that owning and
// principal tables can be compared through the table map.
func (d *Differ) diffForeignKeys(ctx *diffContext) ([]operations.Operation, error) {
	return diffCollection(
		foreignKeysOf(ctx.source),
		foreignKeysOf(ctx.target),
		noDiff[fkRef],
		func(t fkRef) ([]operations.Operation, error) {
			op := addForeignKey(t.fk, t.table)
			if create, ok := ctx.creates[t.table]; ok {
				create.ForeignKeys = append(create.ForeignKeys, op)
				return nil, nil
			}
			return []operations.Operation{op}, nil
		},
		func(s fkRef) ([]operations.Operation, error) {
			if _, dropped := ctx.drops[s.table]; dropped {
				return nil, nil
			}
			return []operations.Operation{&operations.DropForeignKey{
				Schema: s.table.Schema,
				Table:  s.table.Name,
				Name:   s.fk.Name,
			}}, nil
		},
		func(s, t fkRef) bool {
			return ctx.tables[s.table] == t.table &&
				s.fk.Name == t.fk.Name &&
				slices.Equal(s.fk.Columns, ctx.sourceColumnNames(t.table, t.fk.Columns)) &&
				samePrincipal(s.fk, t.fk, ctx) &&
				s.fk.OnDelete == t.fk.OnDelete &&
				s.fk.Annotations.Equal(t.fk.Annotations)
		},
	)
}

// samePrincipal compares principal tables through the table map when both
// are known, and by name otherwise (for example when the principal is
// excluded from migrations).
func samePrincipal(s, t *model.ForeignKey, ctx *diffContext) bool {
	sp := ctx.source.FindTable(s.PrincipalSchema, s.PrincipalTable)
	tp := ctx.target.FindTable(t.PrincipalSchema, t.PrincipalTable)
	if sp != nil && tp != nil {
		if mapped, ok := ctx.tables[sp]; ok {
			if mapped != tp {
				return false
			}
			return slices.Equal(s.PrincipalColumns, ctx.sourceColumnNames(tp, t.PrincipalColumns))
		}
	}
	return sameName(s.PrincipalSchema, t.PrincipalSchema) &&
		sameName(s.PrincipalTable, t.PrincipalTable) &&
		slices.Equal(s.PrincipalColumns, t.PrincipalColumns)
}

func addForeignKey(fk *model.ForeignKey, t *model.Table) *operations.AddForeignKey {
	op := &operations.AddForeignKey{
		Schema:           t.Schema,
		Table:            t.Name,
		Name:             fk.Name,
		Columns:          slices.Clone(fk.Columns),
		PrincipalSchema:  fk.PrincipalSchema,
		PrincipalTable:   fk.PrincipalTable,
		PrincipalColumns: slices.Clone(fk.PrincipalColumns),
		OnDelete:         fk.OnDelete,
	}
	op.AddAnnotations(fk.Annotations.Clone())
	return op
}
