package differ

import (
	"fmt"
	"slices"
	"strings"

	"github.com/toolsascode/shift/internal/model"
	"github.com/toolsascode/shift/internal/operations"
)

type seedRow struct {
	key       []interface{}
	values    map[string]interface{}
	consumed  bool
	entitySet map[string]bool
}

// seedTable indexes a table's seed rows by primary key, in first-seen order
type seedTable struct {
	table *model.Table
	rows  map[string]*seedRow
	order []string
}

func (st *seedTable) ordered() []*seedRow {
	out := make([]*seedRow, 0, len(st.order))
	for _, k := range st.order {
		out = append(out, st.rows[k])
	}
	return out
}

func seedKey(values []interface{}) string {
	return fmt.Sprintf("%#v", values)
}

func keyValues(pk *model.Key, row map[string]interface{}) []interface{} {
	key := make([]interface{}, len(pk.Columns))
	for i, c := range pk.Columns {
		key[i] = model.Normalize(row[c])
	}
	return key
}

// trackData materializes every seed row of m into per-table maps
func trackData(m *model.Model) (map[*model.Table]*seedTable, error) {
	tables := make(map[*model.Table]*seedTable)
	for _, t := range m.MigratableTables() {
		if len(t.Seeds) == 0 {
			continue
		}
		if t.PrimaryKey == nil || len(t.PrimaryKey.Columns) == 0 {
			return nil, fmt.Errorf("table %s: %w", t.QualifiedName(), ErrMissingPrimaryKey)
		}
		shared := t.IsShared()
		st := &seedTable{table: t, rows: make(map[string]*seedRow)}

		for _, seed := range t.Seeds {
			for _, values := range seed.Rows {
				for col := range values {
					if t.FindColumn(col) == nil {
						return nil, fmt.Errorf("table %s: seed for %s sets unknown column %q", t.QualifiedName(), seed.Entity, col)
					}
				}
				entity := strings.ToLower(seed.Entity)
				key := keyValues(t.PrimaryKey, values)
				k := seedKey(key)
				existing, ok := st.rows[k]
				if !ok {
					row := &seedRow{key: key, values: make(map[string]interface{}, len(values)), entitySet: map[string]bool{entity: true}}
					for c, v := range values {
						row.values[c] = v
					}
					st.rows[k] = row
					st.order = append(st.order, k)
					continue
				}
				if !shared || existing.entitySet[entity] {
					return nil, fmt.Errorf("table %s key %v: %w", t.QualifiedName(), key, ErrDuplicateSeedKey)
				}
				for c, v := range values {
					if prev, set := existing.values[c]; set && !model.ValuesEqual(prev, v) {
						return nil, fmt.Errorf("table %s key %v column %s: %w", t.QualifiedName(), key, c, ErrConflictingSeedData)
					}
					existing.values[c] = v
				}
				existing.entitySet[entity] = true
			}
		}
		tables[t] = st
	}
	return tables, nil
}

func (d *Differ) diffSeedData(ctx *diffContext) ([]operations.Operation, error) {
	sources, err := trackData(ctx.source)
	if err != nil {
		return nil, fmt.Errorf("source seed data: %w", err)
	}
	targets, err := trackData(ctx.target)
	if err != nil {
		return nil, fmt.Errorf("target seed data: %w", err)
	}
	if len(sources) == 0 && len(targets) == 0 {
		return nil, nil
	}

	var deletes, changes []operations.Operation

	for _, t := range ctx.target.MigratableTables() {
		tgt, ok := targets[t]
		if !ok {
			continue
		}
		var src *seedTable
		if s, mapped := ctx.reverseTables[t]; mapped && keysCompatible(s, t, ctx) {
			src = sources[s]
		}

		for _, row := range tgt.ordered() {
			var match *seedRow
			if src != nil {
				match = src.rows[seedKey(row.key)]
			}
			if match == nil {
				changes = append(changes, insertRow(t, row))
				continue
			}
			match.consumed = true

			cols, vals, recreate := changedColumns(src.table, t, match, row, ctx)
			switch {
			case recreate:
				deletes = append(deletes, deleteRow(src.table, match))
				changes = append(changes, insertRow(t, row))
			case len(cols) > 0:
				changes = append(changes, &operations.UpdateData{
					Schema:     t.Schema,
					Table:      t.Name,
					KeyColumns: slices.Clone(t.PrimaryKey.Columns),
					KeyValues:  [][]interface{}{row.key},
					Columns:    cols,
					Values:     [][]interface{}{vals},
				})
			}
		}
	}

	for _, s := range ctx.source.MigratableTables() {
		src, ok := sources[s]
		if !ok {
			continue
		}
		if _, dropped := ctx.drops[s]; dropped {
			continue
		}
		for _, row := range src.ordered() {
			if !row.consumed {
				deletes = append(deletes, deleteRow(s, row))
			}
		}
	}

	return append(deletes, batchInserts(changes)...), nil
}

// keysCompatible reports whether source keys can be compared with target
// keys, i.e. the primary key columns map onto each other positionally.
func keysCompatible(s, t *model.Table, ctx *diffContext) bool {
	if s.PrimaryKey == nil || t.PrimaryKey == nil {
		return false
	}
	return slices.Equal(s.PrimaryKey.Columns, ctx.sourceColumnNames(t, t.PrimaryKey.Columns))
}

// changedColumns lists the target columns whose seeded value differs. A
// column the target row leaves out takes the column default, or NULL. When a
// changed column cannot be updated after insert, the row must be recreated.
func changedColumns(s, t *model.Table, src, tgt *seedRow, ctx *diffContext) ([]string, []interface{}, bool) {
	var cols []string
	var vals []interface{}
	recreate := false
	for _, c := range t.Columns {
		if t.PrimaryKey != nil && slices.Contains(t.PrimaryKey.Columns, c.Name) {
			continue
		}
		if c.IsComputed() {
			continue
		}
		tv, inTarget := tgt.values[c.Name]
		var sv interface{}
		inSource := false
		if name := ctx.sourceColumnName(t, c.Name); name != "" && s.FindColumn(name) != nil {
			sv, inSource = src.values[name]
		}
		if !inTarget {
			if !inSource {
				continue
			}
			tv = c.DefaultValue
		}
		if model.ValuesEqual(sv, tv) {
			continue
		}
		if !c.CanUpdateAfterSave() {
			recreate = true
		}
		cols = append(cols, c.Name)
		vals = append(vals, tv)
	}
	return cols, vals, recreate
}

func insertRow(t *model.Table, row *seedRow) *operations.InsertData {
	var cols []string
	var vals []interface{}
	for _, c := range t.Columns {
		if v, ok := row.values[c.Name]; ok {
			cols = append(cols, c.Name)
			vals = append(vals, v)
		}
	}
	return &operations.InsertData{
		Schema:  t.Schema,
		Table:   t.Name,
		Columns: cols,
		Values:  [][]interface{}{vals},
	}
}

func deleteRow(s *model.Table, row *seedRow) *operations.DeleteData {
	return &operations.DeleteData{
		Schema:     s.Schema,
		Table:      s.Name,
		KeyColumns: slices.Clone(s.PrimaryKey.Columns),
		KeyValues:  [][]interface{}{row.key},
	}
}

// batchInserts folds runs of inserts into the same table and column set into
// one multi-row insert
func batchInserts(ops []operations.Operation) []operations.Operation {
	out := make([]operations.Operation, 0, len(ops))
	for _, op := range ops {
		ins, ok := op.(*operations.InsertData)
		if ok && len(out) > 0 {
			if prev, ok := out[len(out)-1].(*operations.InsertData); ok &&
				prev.Schema == ins.Schema && prev.Table == ins.Table &&
				slices.Equal(prev.Columns, ins.Columns) {
				prev.Values = append(prev.Values, ins.Values...)
				continue
			}
		}
		out = append(out, op)
	}
	return out
}
