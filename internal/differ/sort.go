package differ

import (
	"fmt"

	"github.com/toolsascode/shift/internal/graph"
	"github.com/toolsascode/shift/internal/model"
	"github.com/toolsascode/shift/internal/operations"
)

// bands holds operations grouped by execution priority
type bands struct {
	dropForeignKeys []operations.Operation
	dropTables      []*operations.DropTable
	dropOthers      []operations.Operation
	deleteData      []operations.Operation
	dropComputed    []operations.Operation
	dropColumns     []operations.Operation
	dropSequences   []operations.Operation
	ensureSchemas   []operations.Operation
	renameTables    []operations.Operation
	renameOthers    []operations.Operation
	alterDatabase   []operations.Operation
	createSequences []operations.Operation
	alterTables     []operations.Operation
	columns         []operations.Operation
	computedColumns []operations.Operation
	alterOthers     []operations.Operation
	restarts        []operations.Operation
	createTables    []*operations.CreateTable
	data            []operations.Operation
	constraints     []operations.Operation
	leftovers       []operations.Operation
}

func (b *bands) add(op operations.Operation) {
	switch o := op.(type) {
	case *operations.DropForeignKey:
		b.dropForeignKeys = append(b.dropForeignKeys, o)
	case *operations.DropTable:
		b.dropTables = append(b.dropTables, o)
	case *operations.DropIndex, *operations.DropPrimaryKey,
		*operations.DropUniqueConstraint, *operations.DropCheckConstraint:
		b.dropOthers = append(b.dropOthers, o)
	case *operations.DeleteData:
		b.deleteData = append(b.deleteData, o)
	case *operations.DropColumn:
		if o.Computed {
			b.dropComputed = append(b.dropComputed, o)
		} else {
			b.dropColumns = append(b.dropColumns, o)
		}
	case *operations.DropSequence, *operations.DropSchema:
		b.dropSequences = append(b.dropSequences, o)
	case *operations.EnsureSchema:
		b.ensureSchemas = append(b.ensureSchemas, o)
	case *operations.RenameTable:
		b.renameTables = append(b.renameTables, o)
	case *operations.RenameColumn, *operations.RenameIndex, *operations.RenameSequence:
		b.renameOthers = append(b.renameOthers, o)
	case *operations.AlterDatabase:
		b.alterDatabase = append(b.alterDatabase, o)
	case *operations.CreateSequence:
		b.createSequences = append(b.createSequences, o)
	case *operations.AlterTable:
		b.alterTables = append(b.alterTables, o)
	case *operations.AddColumn:
		if o.IsComputed() {
			b.computedColumns = append(b.computedColumns, o)
		} else {
			b.columns = append(b.columns, o)
		}
	case *operations.AlterColumn:
		if o.IsComputed() {
			b.computedColumns = append(b.computedColumns, o)
		} else {
			b.columns = append(b.columns, o)
		}
	case *operations.AddPrimaryKey, *operations.AddUniqueConstraint, *operations.AlterSequence:
		b.alterOthers = append(b.alterOthers, o)
	case *operations.RestartSequence:
		b.restarts = append(b.restarts, o)
	case *operations.CreateTable:
		b.createTables = append(b.createTables, o)
	case *operations.InsertData, *operations.UpdateData:
		b.data = append(b.data, o)
	case *operations.AddForeignKey, *operations.CreateIndex, *operations.AddCheckConstraint:
		b.constraints = append(b.constraints, o)
	default:
		b.leftovers = append(b.leftovers, o)
	}
}

// sort places operations into their bands, orders table creates and drops
// by foreign key dependencies, and flattens the result.
func (d *Differ) sort(ops []operations.Operation, ctx *diffContext) ([]operations.Operation, error) {
	b := &bands{}
	for _, op := range ops {
		b.add(op)
	}
	if len(b.leftovers) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedOperation, b.leftovers[0].Kind())
	}

	creates, err := sortCreates(b)
	if err != nil {
		return nil, err
	}
	drops, err := sortDrops(b, ctx)
	if err != nil {
		return nil, err
	}

	out := make([]operations.Operation, 0, len(ops)+len(b.constraints))
	out = append(out, b.dropForeignKeys...)
	for _, op := range drops {
		out = append(out, op)
	}
	for _, band := range [][]operations.Operation{
		b.dropOthers,
		b.deleteData,
		b.dropComputed,
		b.dropColumns,
		b.dropSequences,
		b.ensureSchemas,
		b.renameTables,
		b.renameOthers,
		b.alterDatabase,
		b.createSequences,
		b.alterTables,
		b.columns,
		b.computedColumns,
		b.alterOthers,
		b.restarts,
	} {
		out = append(out, band...)
	}
	for _, op := range creates {
		out = append(out, op)
	}
	out = append(out, b.data...)
	out = append(out, b.constraints...)
	return out, nil
}

func qualified(schema, name string) string {
	if schema == "" {
		return name
	}
	return schema + "." + name
}

// sortCreates orders table creates so principals come before dependents.
// Foreign keys on a cycle are detached from their CreateTable and deferred
// to the constraint band.
func sortCreates(b *bands) ([]*operations.CreateTable, error) {
	if len(b.createTables) < 2 {
		return b.createTables, nil
	}
	g := graph.NewMultigraph[*operations.CreateTable, *operations.AddForeignKey](func(op *operations.CreateTable) string {
		return qualified(op.Schema, op.Name)
	})
	g.AddVertices(b.createTables...)

	byName := make(map[string]*operations.CreateTable, len(b.createTables))
	for _, op := range b.createTables {
		byName[qualified(op.Schema, op.Name)] = op
	}
	for _, op := range b.createTables {
		for _, fk := range op.ForeignKeys {
			principal, ok := byName[qualified(fk.PrincipalSchema, fk.PrincipalTable)]
			if !ok || principal == op {
				continue
			}
			g.AddEdge(principal, op, fk)
		}
	}

	var deferred []operations.Operation
	sorted, err := g.TopologicalSort(func(_, to *operations.CreateTable, fks []*operations.AddForeignKey) bool {
		for _, fk := range fks {
			to.ForeignKeys = removeForeignKey(to.ForeignKeys, fk)
			deferred = append(deferred, fk)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("ordering table creates: %w", err)
	}
	b.constraints = append(b.constraints, deferred...)
	return sorted, nil
}

func removeForeignKey(fks []*operations.AddForeignKey, target *operations.AddForeignKey) []*operations.AddForeignKey {
	out := fks[:0]
	for _, fk := range fks {
		if fk != target {
			out = append(out, fk)
		}
	}
	return out
}

// sortDrops orders table drops so dependents go before principals. Cycles
// are broken by dropping the offending foreign keys up front.
func sortDrops(b *bands, ctx *diffContext) ([]*operations.DropTable, error) {
	if len(b.dropTables) < 2 {
		return b.dropTables, nil
	}
	g := graph.NewMultigraph[*operations.DropTable, fkRef](func(op *operations.DropTable) string {
		return qualified(op.Schema, op.Name)
	})
	g.AddVertices(b.dropTables...)

	for _, op := range b.dropTables {
		table, ok := ctx.dropTables[op]
		if !ok {
			continue
		}
		for _, fk := range table.ForeignKeys {
			principal := ctx.source.FindTable(fk.PrincipalSchema, fk.PrincipalTable)
			if principal == nil || principal == table {
				continue
			}
			if principalDrop, dropped := ctx.drops[principal]; dropped {
				g.AddEdge(op, principalDrop, fkRef{table: table, fk: fk})
			}
		}
	}

	sorted, err := g.TopologicalSort(func(_, _ *operations.DropTable, refs []fkRef) bool {
		for _, ref := range refs {
			b.dropForeignKeys = append(b.dropForeignKeys, dropForeignKey(ref.table, ref.fk))
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("ordering table drops: %w", err)
	}
	return sorted, nil
}

func dropForeignKey(t *model.Table, fk *model.ForeignKey) *operations.DropForeignKey {
	return &operations.DropForeignKey{Schema: t.Schema, Table: t.Name, Name: fk.Name}
}
