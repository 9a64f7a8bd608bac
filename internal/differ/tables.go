package differ

import (
	"fmt"

	"github.com/toolsascode/shift/internal/model"
	"github.com/toolsascode/shift/internal/operations"
)

func (d *Differ) diffTables(ctx *diffContext) ([]operations.Operation, error) {
	return diffCollection(
		ctx.source.MigratableTables(),
		ctx.target.MigratableTables(),
		func(s, t *model.Table) ([]operations.Operation, error) {
			ctx.addTableMapping(s, t)
			return d.diffTable(s, t, ctx)
		},
		func(t *model.Table) ([]operations.Operation, error) {
			return d.addTable(t, ctx)
		},
		func(s *model.Table) ([]operations.Operation, error) {
			return d.removeTable(s, ctx), nil
		},
		func(s, t *model.Table) bool {
			return sameName(s.Schema, t.Schema) && sameName(s.Name, t.Name)
		},
		func(s, t *model.Table) bool {
			return s.RootType != "" && sameName(s.RootType, t.RootType)
		},
		func(s, t *model.Table) bool {
			for _, se := range s.EntityTypes {
				for _, te := range t.EntityTypes {
					if se != "" && sameName(se, te) {
						return true
					}
				}
			}
			return false
		},
	)
}

func (d *Differ) diffTable(s, t *model.Table, ctx *diffContext) ([]operations.Operation, error) {
	var ops []operations.Operation

	schemaChanged := s.Schema != t.Schema
	renamed := s.Name != t.Name
	if schemaChanged || renamed {
		op := &operations.RenameTable{Schema: s.Schema, Name: s.Name}
		if schemaChanged {
			op.NewSchema = strPtr(t.Schema)
		}
		if renamed {
			op.NewName = strPtr(t.Name)
		}
		ops = append(ops, op)
	}

	if s.Comment != t.Comment || !s.Annotations.Equal(t.Annotations) {
		op := &operations.AlterTable{
			Schema:  t.Schema,
			Name:    t.Name,
			Comment: t.Comment,
			OldTable: operations.TableMirror{
				Comment:     s.Comment,
				Annotations: s.Annotations.Clone(),
			},
		}
		op.AddAnnotations(t.Annotations.Clone())
		ops = append(ops, op)
	}

	for _, diff := range []func(s, t *model.Table, ctx *diffContext) ([]operations.Operation, error){
		d.diffColumns,
		d.diffKeys,
		d.diffIndexes,
		d.diffCheckConstraints,
	} {
		out, err := diff(s, t, ctx)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", t.QualifiedName(), err)
		}
		ops = append(ops, out...)
	}
	return ops, nil
}

func (d *Differ) addTable(t *model.Table, ctx *diffContext) ([]operations.Operation, error) {
	create := &operations.CreateTable{
		Schema:  t.Schema,
		Name:    t.Name,
		Comment: t.Comment,
	}
	create.AddAnnotations(t.Annotations.Clone())

	for _, c := range orderColumns(t) {
		col, err := d.addColumn(c, t, true)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", t.QualifiedName(), err)
		}
		create.Columns = append(create.Columns, col)
	}
	if t.PrimaryKey != nil {
		create.PrimaryKey = addPrimaryKey(t.PrimaryKey, t)
	}
	for _, k := range t.UniqueConstraints {
		create.UniqueConstraints = append(create.UniqueConstraints, addUniqueConstraint(k, t))
	}
	for _, ck := range t.CheckConstraints {
		create.CheckConstraints = append(create.CheckConstraints, addCheckConstraint(ck, t))
	}
	ctx.addCreate(t, create)

	ops := []operations.Operation{create}
	for _, ix := range t.Indexes {
		ops = append(ops, createIndex(ix, t))
	}
	return ops, nil
}

func (d *Differ) removeTable(s *model.Table, ctx *diffContext) []operations.Operation {
	op := &operations.DropTable{Schema: s.Schema, Name: s.Name}
	ctx.addDrop(s, op)
	return []operations.Operation{op}
}
