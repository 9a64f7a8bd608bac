// Package operations defines the schema-change instructions produced by the
// differ and consumed by SQL generators. Operations are plain values.
package operations

import (
	"github.com/toolsascode/shift/internal/model"
)

// Kind tags an operation variant
type Kind string

const (
	KindCreateTable          Kind = "create_table"
	KindDropTable            Kind = "drop_table"
	KindAlterTable           Kind = "alter_table"
	KindRenameTable          Kind = "rename_table"
	KindAddColumn            Kind = "add_column"
	KindDropColumn           Kind = "drop_column"
	KindAlterColumn          Kind = "alter_column"
	KindRenameColumn         Kind = "rename_column"
	KindAddPrimaryKey        Kind = "add_primary_key"
	KindDropPrimaryKey       Kind = "drop_primary_key"
	KindAddUniqueConstraint  Kind = "add_unique_constraint"
	KindDropUniqueConstraint Kind = "drop_unique_constraint"
	KindCreateIndex          Kind = "create_index"
	KindDropIndex            Kind = "drop_index"
	KindRenameIndex          Kind = "rename_index"
	KindAddCheckConstraint   Kind = "add_check_constraint"
	KindDropCheckConstraint  Kind = "drop_check_constraint"
	KindAddForeignKey        Kind = "add_foreign_key"
	KindDropForeignKey       Kind = "drop_foreign_key"
	KindCreateSequence       Kind = "create_sequence"
	KindAlterSequence        Kind = "alter_sequence"
	KindDropSequence         Kind = "drop_sequence"
	KindRenameSequence       Kind = "rename_sequence"
	KindRestartSequence      Kind = "restart_sequence"
	KindEnsureSchema         Kind = "ensure_schema"
	KindDropSchema           Kind = "drop_schema"
	KindAlterDatabase        Kind = "alter_database"
	KindInsertData           Kind = "insert_data"
	KindUpdateData           Kind = "update_data"
	KindDeleteData           Kind = "delete_data"
	KindSQL                  Kind = "sql"
)

// Operation is implemented by every variant
type Operation interface {
	Kind() Kind
	GetAnnotations() model.Annotations
}

// Base carries the annotation bag shared by all operations
type Base struct {
	Annotations model.Annotations `yaml:"annotations,omitempty"`
}

// GetAnnotations returns the operation's annotations
func (b *Base) GetAnnotations() model.Annotations {
	return b.Annotations
}

// AddAnnotations appends to the annotation bag
func (b *Base) AddAnnotations(a model.Annotations) {
	b.Annotations = append(b.Annotations, a...)
}

// ColumnDefinition is the column shape shared by add/alter column
type ColumnDefinition struct {
	Type              string      `yaml:"type,omitempty"`
	StoreType         string      `yaml:"store_type,omitempty"`
	IsNullable        bool        `yaml:"nullable,omitempty"`
	Precision         *int        `yaml:"precision,omitempty"`
	Scale             *int        `yaml:"scale,omitempty"`
	MaxLength         *int        `yaml:"max_length,omitempty"`
	IsUnicode         *bool       `yaml:"unicode,omitempty"`
	IsFixedLength     *bool       `yaml:"fixed_length,omitempty"`
	IsRowVersion      bool        `yaml:"row_version,omitempty"`
	Collation         string      `yaml:"collation,omitempty"`
	Comment           string      `yaml:"comment,omitempty"`
	DefaultValue      interface{} `yaml:"default,omitempty"`
	DefaultValueSQL   *string     `yaml:"default_sql,omitempty"`
	ComputedColumnSQL *string     `yaml:"computed_sql,omitempty"`
	IsStored          *bool       `yaml:"stored,omitempty"`
}

// IsComputed reports whether the definition carries a computed expression
func (d *ColumnDefinition) IsComputed() bool {
	return d.ComputedColumnSQL != nil && *d.ComputedColumnSQL != ""
}

// ColumnMirror is the pre-change shape of an altered column
type ColumnMirror struct {
	ColumnDefinition `yaml:",inline"`
	Annotations      model.Annotations `yaml:"annotations,omitempty"`
}

// SequenceDefinition holds the alterable parts of a sequence
type SequenceDefinition struct {
	IncrementBy int    `yaml:"increment,omitempty"`
	MinValue    *int64 `yaml:"min,omitempty"`
	MaxValue    *int64 `yaml:"max,omitempty"`
	IsCyclic    bool   `yaml:"cyclic,omitempty"`
	IsCached    bool   `yaml:"cached,omitempty"`
	CacheSize   *int   `yaml:"cache_size,omitempty"`
}

// SequenceMirror is the pre-change shape of an altered sequence
type SequenceMirror struct {
	SequenceDefinition `yaml:",inline"`
	Annotations        model.Annotations `yaml:"annotations,omitempty"`
}

// TableMirror is the pre-change shape of an altered table
type TableMirror struct {
	Comment     string            `yaml:"comment,omitempty"`
	Annotations model.Annotations `yaml:"annotations,omitempty"`
}

// DatabaseMirror is the pre-change shape of the database
type DatabaseMirror struct {
	Collation   string            `yaml:"collation,omitempty"`
	Annotations model.Annotations `yaml:"annotations,omitempty"`
}

type CreateTable struct {
	Base              `yaml:",inline"`
	Schema            string                 `yaml:"schema,omitempty"`
	Name              string                 `yaml:"name"`
	Comment           string                 `yaml:"comment,omitempty"`
	Columns           []*AddColumn           `yaml:"columns,omitempty"`
	PrimaryKey        *AddPrimaryKey         `yaml:"primary_key,omitempty"`
	UniqueConstraints []*AddUniqueConstraint `yaml:"unique_constraints,omitempty"`
	CheckConstraints  []*AddCheckConstraint  `yaml:"check_constraints,omitempty"`
	ForeignKeys       []*AddForeignKey       `yaml:"foreign_keys,omitempty"`
}

type DropTable struct {
	Base   `yaml:",inline"`
	Schema string `yaml:"schema,omitempty"`
	Name   string `yaml:"name"`
}

type AlterTable struct {
	Base     `yaml:",inline"`
	Schema   string      `yaml:"schema,omitempty"`
	Name     string      `yaml:"name"`
	Comment  string      `yaml:"comment,omitempty"`
	OldTable TableMirror `yaml:"old_table"`
}

// RenameTable moves and/or renames a table. NewSchema and NewName are nil
// when that part is unchanged.
type RenameTable struct {
	Base      `yaml:",inline"`
	Schema    string  `yaml:"schema,omitempty"`
	Name      string  `yaml:"name"`
	NewSchema *string `yaml:"new_schema,omitempty"`
	NewName   *string `yaml:"new_name,omitempty"`
}

type AddColumn struct {
	Base             `yaml:",inline"`
	Schema           string `yaml:"schema,omitempty"`
	Table            string `yaml:"table"`
	Name             string `yaml:"name"`
	ColumnDefinition `yaml:",inline"`
}

type DropColumn struct {
	Base     `yaml:",inline"`
	Schema   string `yaml:"schema,omitempty"`
	Table    string `yaml:"table"`
	Name     string `yaml:"name"`
	Computed bool   `yaml:"computed,omitempty"`
}

type AlterColumn struct {
	Base                `yaml:",inline"`
	Schema              string `yaml:"schema,omitempty"`
	Table               string `yaml:"table"`
	Name                string `yaml:"name"`
	ColumnDefinition    `yaml:",inline"`
	IsDestructiveChange bool         `yaml:"destructive,omitempty"`
	OldColumn           ColumnMirror `yaml:"old_column"`
}

type RenameColumn struct {
	Base    `yaml:",inline"`
	Schema  string `yaml:"schema,omitempty"`
	Table   string `yaml:"table"`
	Name    string `yaml:"name"`
	NewName string `yaml:"new_name"`
}

type AddPrimaryKey struct {
	Base    `yaml:",inline"`
	Schema  string   `yaml:"schema,omitempty"`
	Table   string   `yaml:"table"`
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
}

type DropPrimaryKey struct {
	Base   `yaml:",inline"`
	Schema string `yaml:"schema,omitempty"`
	Table  string `yaml:"table"`
	Name   string `yaml:"name"`
}

type AddUniqueConstraint struct {
	Base    `yaml:",inline"`
	Schema  string   `yaml:"schema,omitempty"`
	Table   string   `yaml:"table"`
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
}

type DropUniqueConstraint struct {
	Base   `yaml:",inline"`
	Schema string `yaml:"schema,omitempty"`
	Table  string `yaml:"table"`
	Name   string `yaml:"name"`
}

type CreateIndex struct {
	Base     `yaml:",inline"`
	Schema   string   `yaml:"schema,omitempty"`
	Table    string   `yaml:"table"`
	Name     string   `yaml:"name"`
	Columns  []string `yaml:"columns"`
	IsUnique bool     `yaml:"unique,omitempty"`
	Filter   *string  `yaml:"filter,omitempty"`
}

type DropIndex struct {
	Base   `yaml:",inline"`
	Schema string `yaml:"schema,omitempty"`
	Table  string `yaml:"table"`
	Name   string `yaml:"name"`
}

type RenameIndex struct {
	Base    `yaml:",inline"`
	Schema  string `yaml:"schema,omitempty"`
	Table   string `yaml:"table"`
	Name    string `yaml:"name"`
	NewName string `yaml:"new_name"`
}

type AddCheckConstraint struct {
	Base   `yaml:",inline"`
	Schema string `yaml:"schema,omitempty"`
	Table  string `yaml:"table"`
	Name   string `yaml:"name"`
	SQL    string `yaml:"sql"`
}

type DropCheckConstraint struct {
	Base   `yaml:",inline"`
	Schema string `yaml:"schema,omitempty"`
	Table  string `yaml:"table"`
	Name   string `yaml:"name"`
}

type AddForeignKey struct {
	Base             `yaml:",inline"`
	Schema           string                  `yaml:"schema,omitempty"`
	Table            string                  `yaml:"table"`
	Name             string                  `yaml:"name"`
	Columns          []string                `yaml:"columns"`
	PrincipalSchema  string                  `yaml:"principal_schema,omitempty"`
	PrincipalTable   string                  `yaml:"principal_table"`
	PrincipalColumns []string                `yaml:"principal_columns"`
	OnDelete         model.ReferentialAction `yaml:"on_delete,omitempty"`
}

type DropForeignKey struct {
	Base   `yaml:",inline"`
	Schema string `yaml:"schema,omitempty"`
	Table  string `yaml:"table"`
	Name   string `yaml:"name"`
}

type CreateSequence struct {
	Base               `yaml:",inline"`
	Schema             string `yaml:"schema,omitempty"`
	Name               string `yaml:"name"`
	Type               string `yaml:"type,omitempty"`
	StartValue         int64  `yaml:"start,omitempty"`
	SequenceDefinition `yaml:",inline"`
}

type AlterSequence struct {
	Base               `yaml:",inline"`
	Schema             string `yaml:"schema,omitempty"`
	Name               string `yaml:"name"`
	SequenceDefinition `yaml:",inline"`
	OldSequence        SequenceMirror `yaml:"old_sequence"`
}

type DropSequence struct {
	Base   `yaml:",inline"`
	Schema string `yaml:"schema,omitempty"`
	Name   string `yaml:"name"`
}

type RenameSequence struct {
	Base      `yaml:",inline"`
	Schema    string  `yaml:"schema,omitempty"`
	Name      string  `yaml:"name"`
	NewSchema *string `yaml:"new_schema,omitempty"`
	NewName   *string `yaml:"new_name,omitempty"`
}

type RestartSequence struct {
	Base       `yaml:",inline"`
	Schema     string `yaml:"schema,omitempty"`
	Name       string `yaml:"name"`
	StartValue int64  `yaml:"start"`
}

type EnsureSchema struct {
	Base `yaml:",inline"`
	Name string `yaml:"name"`
}

type DropSchema struct {
	Base `yaml:",inline"`
	Name string `yaml:"name"`
}

type AlterDatabase struct {
	Base        `yaml:",inline"`
	Collation   string         `yaml:"collation,omitempty"`
	OldDatabase DatabaseMirror `yaml:"old_database"`
}

// InsertData inserts one or more rows sharing a column set
type InsertData struct {
	Base    `yaml:",inline"`
	Schema  string          `yaml:"schema,omitempty"`
	Table   string          `yaml:"table"`
	Columns []string        `yaml:"columns"`
	Values  [][]interface{} `yaml:"values"`
}

// UpdateData sets Columns to Values on the rows identified by KeyValues.
// KeyValues and Values are parallel.
type UpdateData struct {
	Base       `yaml:",inline"`
	Schema     string          `yaml:"schema,omitempty"`
	Table      string          `yaml:"table"`
	KeyColumns []string        `yaml:"key_columns"`
	KeyValues  [][]interface{} `yaml:"key_values"`
	Columns    []string        `yaml:"columns"`
	Values     [][]interface{} `yaml:"values"`
}

type DeleteData struct {
	Base       `yaml:",inline"`
	Schema     string          `yaml:"schema,omitempty"`
	Table      string          `yaml:"table"`
	KeyColumns []string        `yaml:"key_columns"`
	KeyValues  [][]interface{} `yaml:"key_values"`
}

// SQL is a raw, author-supplied statement
type SQL struct {
	Base                `yaml:",inline"`
	SQL                 string `yaml:"sql"`
	SuppressTransaction bool   `yaml:"suppress_transaction,omitempty"`
}

func (*CreateTable) Kind() Kind          { return KindCreateTable }
func (*DropTable) Kind() Kind            { return KindDropTable }
func (*AlterTable) Kind() Kind           { return KindAlterTable }
func (*RenameTable) Kind() Kind          { return KindRenameTable }
func (*AddColumn) Kind() Kind            { return KindAddColumn }
func (*DropColumn) Kind() Kind           { return KindDropColumn }
func (*AlterColumn) Kind() Kind          { return KindAlterColumn }
func (*RenameColumn) Kind() Kind         { return KindRenameColumn }
func (*AddPrimaryKey) Kind() Kind        { return KindAddPrimaryKey }
func (*DropPrimaryKey) Kind() Kind       { return KindDropPrimaryKey }
func (*AddUniqueConstraint) Kind() Kind  { return KindAddUniqueConstraint }
func (*DropUniqueConstraint) Kind() Kind { return KindDropUniqueConstraint }
func (*CreateIndex) Kind() Kind          { return KindCreateIndex }
func (*DropIndex) Kind() Kind            { return KindDropIndex }
func (*RenameIndex) Kind() Kind          { return KindRenameIndex }
func (*AddCheckConstraint) Kind() Kind   { return KindAddCheckConstraint }
func (*DropCheckConstraint) Kind() Kind  { return KindDropCheckConstraint }
func (*AddForeignKey) Kind() Kind        { return KindAddForeignKey }
func (*DropForeignKey) Kind() Kind       { return KindDropForeignKey }
func (*CreateSequence) Kind() Kind       { return KindCreateSequence }
func (*AlterSequence) Kind() Kind        { return KindAlterSequence }
func (*DropSequence) Kind() Kind         { return KindDropSequence }
func (*RenameSequence) Kind() Kind       { return KindRenameSequence }
func (*RestartSequence) Kind() Kind      { return KindRestartSequence }
func (*EnsureSchema) Kind() Kind         { return KindEnsureSchema }
func (*DropSchema) Kind() Kind           { return KindDropSchema }
func (*AlterDatabase) Kind() Kind        { return KindAlterDatabase }
func (*InsertData) Kind() Kind           { return KindInsertData }
func (*UpdateData) Kind() Kind           { return KindUpdateData }
func (*DeleteData) Kind() Kind           { return KindDeleteData }
func (*SQL) Kind() Kind                  { return KindSQL }

// New returns an empty operation for kind
func New(kind Kind) (Operation, bool) {
	switch kind {
	case KindCreateTable:
		return &CreateTable{}, true
	case KindDropTable:
		return &DropTable{}, true
	case KindAlterTable:
		return &AlterTable{}, true
	case KindRenameTable:
		return &RenameTable{}, true
	case KindAddColumn:
		return &AddColumn{}, true
	case KindDropColumn:
		return &DropColumn{}, true
	case KindAlterColumn:
		return &AlterColumn{}, true
	case KindRenameColumn:
		return &RenameColumn{}, true
	case KindAddPrimaryKey:
		return &AddPrimaryKey{}, true
	case KindDropPrimaryKey:
		return &DropPrimaryKey{}, true
	case KindAddUniqueConstraint:
		return &AddUniqueConstraint{}, true
	case KindDropUniqueConstraint:
		return &DropUniqueConstraint{}, true
	case KindCreateIndex:
		return &CreateIndex{}, true
	case KindDropIndex:
		return &DropIndex{}, true
	case KindRenameIndex:
		return &RenameIndex{}, true
	case KindAddCheckConstraint:
		return &AddCheckConstraint{}, true
	case KindDropCheckConstraint:
		return &DropCheckConstraint{}, true
	case KindAddForeignKey:
		return &AddForeignKey{}, true
	case KindDropForeignKey:
		return &DropForeignKey{}, true
	case KindCreateSequence:
		return &CreateSequence{}, true
	case KindAlterSequence:
		return &AlterSequence{}, true
	case KindDropSequence:
		return &DropSequence{}, true
	case KindRenameSequence:
		return &RenameSequence{}, true
	case KindRestartSequence:
		return &RestartSequence{}, true
	case KindEnsureSchema:
		return &EnsureSchema{}, true
	case KindDropSchema:
		return &DropSchema{}, true
	case KindAlterDatabase:
		return &AlterDatabase{}, true
	case KindInsertData:
		return &InsertData{}, true
	case KindUpdateData:
		return &UpdateData{}, true
	case KindDeleteData:
		return &DeleteData{}, true
	case KindSQL:
		return &SQL{}, true
	}
	return nil, false
}
