package differ

import (
	"github.com/toolsascode/shift/internal/model"
	"github.com/toolsascode/shift/internal/operations"
)

// diffContext records which source objects were paired with which target
// objects, and which tables are being created or dropped, while a diff runs.
type diffContext struct {
	source *model.Model
	target *model.Model

	tables        map[*model.Table]*model.Table
	reverseTables map[*model.Table]*model.Table

	columns        map[*model.Column]*model.Column
	reverseColumns map[*model.Column]*model.Column

	creates    map[*model.Table]*operations.CreateTable
	drops      map[*model.Table]*operations.DropTable
	dropTables map[*operations.DropTable]*model.Table
}

func newDiffContext(source, target *model.Model) *diffContext {
	if source == nil {
		source = &model.Model{}
	}
	if target == nil {
		target = &model.Model{}
	}
	return &diffContext{
		source:         source,
		target:         target,
		tables:         make(map[*model.Table]*model.Table),
		reverseTables:  make(map[*model.Table]*model.Table),
		columns:        make(map[*model.Column]*model.Column),
		reverseColumns: make(map[*model.Column]*model.Column),
		creates:        make(map[*model.Table]*operations.CreateTable),
		drops:          make(map[*model.Table]*operations.DropTable),
		dropTables:     make(map[*operations.DropTable]*model.Table),
	}
}

func (c *diffContext) addTableMapping(source, target *model.Table) {
	c.tables[source] = target
	c.reverseTables[target] = source
}

func (c *diffContext) addColumnMapping(source, target *model.Column) {
	c.columns[source] = target
	c.reverseColumns[target] = source
}

func (c *diffContext) addCreate(target *model.Table, op *operations.CreateTable) {
	c.creates[target] = op
}

func (c *diffContext) addDrop(source *model.Table, op *operations.DropTable) {
	c.drops[source] = op
	c.dropTables[op] = source
}

// sourceColumnName maps a target column name back to the name of the source
// column it was paired with, or "" when it is new.
func (c *diffContext) sourceColumnName(target *model.Table, column string) string {
	col := target.FindColumn(column)
	if col == nil {
		return ""
	}
	if s, ok := c.reverseColumns[col]; ok {
		return s.Name
	}
	return ""
}

func (c *diffContext) sourceColumnNames(target *model.Table, columns []string) []string {
	out := make([]string, len(columns))
	for i, col := range columns {
		out[i] = c.sourceColumnName(target, col)
	}
	return out
}
