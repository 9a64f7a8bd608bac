package migrations

import (
	"github.com/toolsascode/shift/internal/model"
	"github.com/toolsascode/shift/internal/operations"
)

// Operation is a public alias for operations.Operation
type Operation = operations.Operation

// ReferentialAction is the delete behavior of a foreign key
type ReferentialAction = model.ReferentialAction

// Logical column types
const (
	TypeString  = model.TypeString
	TypeInt     = model.TypeInt
	TypeInt64   = model.TypeInt64
	TypeFloat   = model.TypeFloat
	TypeDecimal = model.TypeDecimal
	TypeBool    = model.TypeBool
	TypeBytes   = model.TypeBytes
	TypeTime    = model.TypeTime
	TypeUUID    = model.TypeUUID
	TypeArray   = model.TypeArray
	TypeJSON    = model.TypeJSON
)

// Delete behaviors
const (
	NoAction   = model.NoAction
	Restrict   = model.Restrict
	Cascade    = model.Cascade
	SetNull    = model.SetNull
	SetDefault = model.SetDefault
)

// Builder accumulates operations in call order. Nothing is sorted; a
// hand-written list runs exactly as written.
type Builder struct {
	ops operations.List
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Operations returns the accumulated list
func (b *Builder) Operations() operations.List {
	return b.ops
}

func (b *Builder) add(op operations.Operation) *Builder {
	b.ops = append(b.ops, op)
	return b
}

// NewMigration assembles a unit from two builders. down may be nil.
func NewMigration(id string, up, down *Builder) *Migration {
	m := &Migration{ID: id}
	if up != nil {
		m.Up = up.Operations()
	}
	if down != nil {
		m.Down = down.Operations()
	}
	return m
}

// EnsureSchema creates a schema when it is missing
func (b *Builder) EnsureSchema(name string) *Builder {
	return b.add(&operations.EnsureSchema{Name: name})
}

// DropSchema drops a schema
func (b *Builder) DropSchema(name string) *Builder {
	return b.add(&operations.DropSchema{Name: name})
}

// CreateTable adds a table configured by fn
func (b *Builder) CreateTable(schema, name string, fn func(t *TableBuilder)) *Builder {
	op := &operations.CreateTable{Schema: schema, Name: name}
	if fn != nil {
		fn(&TableBuilder{op: op})
	}
	return b.add(op)
}

// DropTable drops a table
func (b *Builder) DropTable(schema, name string) *Builder {
	return b.add(&operations.DropTable{Schema: schema, Name: name})
}

// RenameTable renames a table within its schema
func (b *Builder) RenameTable(schema, name, newName string) *Builder {
	return b.add(&operations.RenameTable{Schema: schema, Name: name, NewName: &newName})
}

// AddColumn adds a column to an existing table. fn may be nil.
func (b *Builder) AddColumn(schema, table, name, columnType string, fn func(c *ColumnBuilder)) *Builder {
	op := &operations.AddColumn{Schema: schema, Table: table, Name: name}
	op.Type = columnType
	if fn != nil {
		fn(&ColumnBuilder{def: &op.ColumnDefinition})
	}
	return b.add(op)
}

// DropColumn drops a column
func (b *Builder) DropColumn(schema, table, name string) *Builder {
	return b.add(&operations.DropColumn{Schema: schema, Table: table, Name: name})
}

// RenameColumn renames a column
func (b *Builder) RenameColumn(schema, table, name, newName string) *Builder {
	return b.add(&operations.RenameColumn{Schema: schema, Table: table, Name: name, NewName: newName})
}

// CreateIndex creates an index over columns
func (b *Builder) CreateIndex(schema, table, name string, unique bool, columns ...string) *Builder {
	return b.add(&operations.CreateIndex{Schema: schema, Table: table, Name: name, IsUnique: unique, Columns: columns})
}

// DropIndex drops an index
func (b *Builder) DropIndex(schema, table, name string) *Builder {
	return b.add(&operations.DropIndex{Schema: schema, Table: table, Name: name})
}

// AddForeignKey adds a foreign key to an existing table
func (b *Builder) AddForeignKey(schema, table, name string, columns []string, principalTable string, principalColumns []string, onDelete ReferentialAction) *Builder {
	return b.add(&operations.AddForeignKey{
		Schema:           schema,
		Table:            table,
		Name:             name,
		Columns:          columns,
		PrincipalSchema:  schema,
		PrincipalTable:   principalTable,
		PrincipalColumns: principalColumns,
		OnDelete:         onDelete,
	})
}

// DropForeignKey drops a foreign key
func (b *Builder) DropForeignKey(schema, table, name string) *Builder {
	return b.add(&operations.DropForeignKey{Schema: schema, Table: table, Name: name})
}

// InsertData inserts rows, each holding one value per column
func (b *Builder) InsertData(schema, table string, columns []string, rows ...[]interface{}) *Builder {
	return b.add(&operations.InsertData{Schema: schema, Table: table, Columns: columns, Values: rows})
}

// DeleteData deletes the rows matching the key values
func (b *Builder) DeleteData(schema, table string, keyColumns []string, keys ...[]interface{}) *Builder {
	return b.add(&operations.DeleteData{Schema: schema, Table: table, KeyColumns: keyColumns, KeyValues: keys})
}

// SQL runs raw SQL inside the unit's transaction
func (b *Builder) SQL(sql string) *Builder {
	return b.add(&operations.SQL{SQL: sql})
}

// SQLNoTransaction runs raw SQL outside any transaction, e.g. CREATE INDEX
// CONCURRENTLY
func (b *Builder) SQLNoTransaction(sql string) *Builder {
	return b.add(&operations.SQL{SQL: sql, SuppressTransaction: true})
}

// TableBuilder configures a CreateTable operation
type TableBuilder struct {
	op *operations.CreateTable
}

// Comment sets the table comment
func (t *TableBuilder) Comment(comment string) *TableBuilder {
	t.op.Comment = comment
	return t
}

// Column appends a non-nullable column
func (t *TableBuilder) Column(name, columnType string) *ColumnBuilder {
	col := &operations.AddColumn{Schema: t.op.Schema, Table: t.op.Name, Name: name}
	col.Type = columnType
	t.op.Columns = append(t.op.Columns, col)
	return &ColumnBuilder{def: &col.ColumnDefinition}
}

// PrimaryKey sets the primary key
func (t *TableBuilder) PrimaryKey(name string, columns ...string) *TableBuilder {
	t.op.PrimaryKey = &operations.AddPrimaryKey{Schema: t.op.Schema, Table: t.op.Name, Name: name, Columns: columns}
	return t
}

// Unique adds a unique constraint
func (t *TableBuilder) Unique(name string, columns ...string) *TableBuilder {
	t.op.UniqueConstraints = append(t.op.UniqueConstraints,
		&operations.AddUniqueConstraint{Schema: t.op.Schema, Table: t.op.Name, Name: name, Columns: columns})
	return t
}

// Check adds a check constraint
func (t *TableBuilder) Check(name, sql string) *TableBuilder {
	t.op.CheckConstraints = append(t.op.CheckConstraints,
		&operations.AddCheckConstraint{Schema: t.op.Schema, Table: t.op.Name, Name: name, SQL: sql})
	return t
}

// ForeignKey adds a foreign key to a table in the same schema
func (t *TableBuilder) ForeignKey(name string, columns []string, principalTable string, principalColumns []string, onDelete ReferentialAction) *TableBuilder {
	t.op.ForeignKeys = append(t.op.ForeignKeys, &operations.AddForeignKey{
		Schema:           t.op.Schema,
		Table:            t.op.Name,
		Name:             name,
		Columns:          columns,
		PrincipalSchema:  t.op.Schema,
		PrincipalTable:   principalTable,
		PrincipalColumns: principalColumns,
		OnDelete:         onDelete,
	})
	return t
}

// ColumnBuilder configures a column definition
type ColumnBuilder struct {
	def *operations.ColumnDefinition
}

// Nullable allows NULL values
func (c *ColumnBuilder) Nullable() *ColumnBuilder {
	c.def.IsNullable = true
	return c
}

// StoreType overrides the engine type
func (c *ColumnBuilder) StoreType(storeType string) *ColumnBuilder {
	c.def.StoreType = storeType
	return c
}

// MaxLength bounds a string or binary column
func (c *ColumnBuilder) MaxLength(n int) *ColumnBuilder {
	c.def.MaxLength = &n
	return c
}

// Precision sets numeric precision and scale
func (c *ColumnBuilder) Precision(precision, scale int) *ColumnBuilder {
	c.def.Precision = &precision
	c.def.Scale = &scale
	return c
}

// Default sets a literal default
func (c *ColumnBuilder) Default(value interface{}) *ColumnBuilder {
	c.def.DefaultValue = value
	return c
}

// DefaultSQL sets a default expression
func (c *ColumnBuilder) DefaultSQL(sql string) *ColumnBuilder {
	c.def.DefaultValueSQL = &sql
	return c
}

// Computed makes the column computed from sql
func (c *ColumnBuilder) Computed(sql string, stored bool) *ColumnBuilder {
	c.def.ComputedColumnSQL = &sql
	c.def.IsStored = &stored
	return c
}

// Comment sets the column comment
func (c *ColumnBuilder) Comment(comment string) *ColumnBuilder {
	c.def.Comment = comment
	return c
}
