// Package model describes an immutable point-in-time snapshot of a database
// schema, including optional seed data.
package model

import "strings"

// Model is a schema snapshot
type Model struct {
	Collation   string      `yaml:"collation,omitempty" json:"collation,omitempty"`
	Annotations Annotations `yaml:"annotations,omitempty" json:"annotations,omitempty"`
	Tables      []*Table    `yaml:"tables,omitempty" json:"tables,omitempty"`
	Sequences   []*Sequence `yaml:"sequences,omitempty" json:"sequences,omitempty"`
}

// Table describes a table and everything hanging off it
type Table struct {
	Name                   string             `yaml:"name" json:"name"`
	Schema                 string             `yaml:"schema,omitempty" json:"schema,omitempty"`
	Comment                string             `yaml:"comment,omitempty" json:"comment,omitempty"`
	RootType               string             `yaml:"root_type,omitempty" json:"root_type,omitempty"`
	EntityTypes            []string           `yaml:"entity_types,omitempty" json:"entity_types,omitempty"`
	Columns                []*Column          `yaml:"columns,omitempty" json:"columns,omitempty"`
	PrimaryKey             *Key               `yaml:"primary_key,omitempty" json:"primary_key,omitempty"`
	UniqueConstraints      []*Key             `yaml:"unique_constraints,omitempty" json:"unique_constraints,omitempty"`
	Indexes                []*Index           `yaml:"indexes,omitempty" json:"indexes,omitempty"`
	CheckConstraints       []*CheckConstraint `yaml:"check_constraints,omitempty" json:"check_constraints,omitempty"`
	ForeignKeys            []*ForeignKey      `yaml:"foreign_keys,omitempty" json:"foreign_keys,omitempty"`
	Annotations            Annotations        `yaml:"annotations,omitempty" json:"annotations,omitempty"`
	ExcludedFromMigrations bool               `yaml:"excluded_from_migrations,omitempty" json:"excluded_from_migrations,omitempty"`
	Seeds                  []*EntitySeed      `yaml:"seeds,omitempty" json:"seeds,omitempty"`
}

// Logical column types understood by default-value synthesis
const (
	TypeString  = "string"
	TypeInt     = "int"
	TypeInt64   = "int64"
	TypeFloat   = "float"
	TypeDecimal = "decimal"
	TypeBool    = "bool"
	TypeBytes   = "bytes"
	TypeTime    = "time"
	TypeUUID    = "uuid"
	TypeArray   = "array"
	TypeJSON    = "json"
)

// Save behaviors after a row has been inserted
const (
	SaveBehaviorSave   = "save"
	SaveBehaviorIgnore = "ignore"
	SaveBehaviorThrow  = "throw"
)

// Value generation strategies
const (
	ValueGeneratedNever         = "never"
	ValueGeneratedOnAdd         = "on_add"
	ValueGeneratedOnAddOrUpdate = "on_add_or_update"
)

// Column describes a single column. At most one of DefaultValue,
// DefaultValueSQL and ComputedColumnSQL may be set.
type Column struct {
	Name               string      `yaml:"name" json:"name"`
	Type               string      `yaml:"type,omitempty" json:"type,omitempty"`
	StoreType          string      `yaml:"store_type,omitempty" json:"store_type,omitempty"`
	IsNullable         bool        `yaml:"nullable,omitempty" json:"nullable,omitempty"`
	Precision          *int        `yaml:"precision,omitempty" json:"precision,omitempty"`
	Scale              *int        `yaml:"scale,omitempty" json:"scale,omitempty"`
	MaxLength          *int        `yaml:"max_length,omitempty" json:"max_length,omitempty"`
	IsUnicode          *bool       `yaml:"unicode,omitempty" json:"unicode,omitempty"`
	IsFixedLength      *bool       `yaml:"fixed_length,omitempty" json:"fixed_length,omitempty"`
	Collation          string      `yaml:"collation,omitempty" json:"collation,omitempty"`
	Comment            string      `yaml:"comment,omitempty" json:"comment,omitempty"`
	DefaultValue       interface{} `yaml:"default,omitempty" json:"default,omitempty"`
	DefaultValueSQL    *string     `yaml:"default_sql,omitempty" json:"default_sql,omitempty"`
	ComputedColumnSQL  *string     `yaml:"computed_sql,omitempty" json:"computed_sql,omitempty"`
	IsStored           *bool       `yaml:"stored,omitempty" json:"stored,omitempty"`
	Order              *int        `yaml:"order,omitempty" json:"order,omitempty"`
	IsConcurrencyToken bool        `yaml:"concurrency_token,omitempty" json:"concurrency_token,omitempty"`
	ValueGenerated     string      `yaml:"value_generated,omitempty" json:"value_generated,omitempty"`
	AfterSaveBehavior  string      `yaml:"after_save,omitempty" json:"after_save,omitempty"`
	InJSON             bool        `yaml:"in_json,omitempty" json:"in_json,omitempty"`
	Properties         []Property  `yaml:"properties,omitempty" json:"properties,omitempty"`
	Annotations        Annotations `yaml:"annotations,omitempty" json:"annotations,omitempty"`
}

// Property kinds
const (
	PropertyScalar  = "scalar"
	PropertyOwned   = "owned"
	PropertyComplex = "complex"
)

// Property is a pre-resolved descriptor of an entity property mapped to a
// column. Depth is the position of the declaring type in its inheritance
// hierarchy (0 for the root).
type Property struct {
	Entity string `yaml:"entity" json:"entity"`
	Name   string `yaml:"name" json:"name"`
	Kind   string `yaml:"kind,omitempty" json:"kind,omitempty"`
	Depth  int    `yaml:"depth,omitempty" json:"depth,omitempty"`
}

// Key is a primary key or unique constraint
type Key struct {
	Name        string      `yaml:"name" json:"name"`
	Columns     []string    `yaml:"columns" json:"columns"`
	Annotations Annotations `yaml:"annotations,omitempty" json:"annotations,omitempty"`
}

// ReferentialAction is the delete behavior of a foreign key
type ReferentialAction string

const (
	NoAction   ReferentialAction = "no_action"
	Restrict   ReferentialAction = "restrict"
	Cascade    ReferentialAction = "cascade"
	SetNull    ReferentialAction = "set_null"
	SetDefault ReferentialAction = "set_default"
)

// ForeignKey references a principal table's columns
type ForeignKey struct {
	Name             string            `yaml:"name" json:"name"`
	Columns          []string          `yaml:"columns" json:"columns"`
	PrincipalSchema  string            `yaml:"principal_schema,omitempty" json:"principal_schema,omitempty"`
	PrincipalTable   string            `yaml:"principal_table" json:"principal_table"`
	PrincipalColumns []string          `yaml:"principal_columns" json:"principal_columns"`
	OnDelete         ReferentialAction `yaml:"on_delete,omitempty" json:"on_delete,omitempty"`
	Annotations      Annotations       `yaml:"annotations,omitempty" json:"annotations,omitempty"`
}

// Index is a (possibly unique, possibly filtered) index
type Index struct {
	Name        string      `yaml:"name" json:"name"`
	Columns     []string    `yaml:"columns" json:"columns"`
	IsUnique    bool        `yaml:"unique,omitempty" json:"unique,omitempty"`
	Filter      *string     `yaml:"filter,omitempty" json:"filter,omitempty"`
	Annotations Annotations `yaml:"annotations,omitempty" json:"annotations,omitempty"`
}

// CheckConstraint is a named boolean SQL expression
type CheckConstraint struct {
	Name        string      `yaml:"name" json:"name"`
	SQL         string      `yaml:"sql" json:"sql"`
	Annotations Annotations `yaml:"annotations,omitempty" json:"annotations,omitempty"`
}

// Sequence is a schema-qualified numeric sequence
type Sequence struct {
	Schema      string      `yaml:"schema,omitempty" json:"schema,omitempty"`
	Name        string      `yaml:"name" json:"name"`
	Type        string      `yaml:"type,omitempty" json:"type,omitempty"`
	StartValue  int64       `yaml:"start,omitempty" json:"start,omitempty"`
	IncrementBy int         `yaml:"increment,omitempty" json:"increment,omitempty"`
	MinValue    *int64      `yaml:"min,omitempty" json:"min,omitempty"`
	MaxValue    *int64      `yaml:"max,omitempty" json:"max,omitempty"`
	IsCyclic    bool        `yaml:"cyclic,omitempty" json:"cyclic,omitempty"`
	IsCached    bool        `yaml:"cached,omitempty" json:"cached,omitempty"`
	CacheSize   *int        `yaml:"cache_size,omitempty" json:"cache_size,omitempty"`
	Annotations Annotations `yaml:"annotations,omitempty" json:"annotations,omitempty"`
}

// EntitySeed holds the literal rows one entity contributes to its table.
// Row maps are keyed by column name.
type EntitySeed struct {
	Entity string                   `yaml:"entity" json:"entity"`
	Rows   []map[string]interface{} `yaml:"rows" json:"rows"`
}

// FindTable looks a table up by schema and name
func (m *Model) FindTable(schema, name string) *Table {
	if m == nil {
		return nil
	}
	for _, t := range m.Tables {
		if t.Schema == schema && t.Name == name {
			return t
		}
	}
	return nil
}

// MigratableTables returns the tables not excluded from migrations
func (m *Model) MigratableTables() []*Table {
	if m == nil {
		return nil
	}
	tables := make([]*Table, 0, len(m.Tables))
	for _, t := range m.Tables {
		if !t.ExcludedFromMigrations {
			tables = append(tables, t)
		}
	}
	return tables
}

// QualifiedName returns "schema.name" or just the name
func (t *Table) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// FindColumn returns the named column, or nil
func (t *Table) FindColumn(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Keys returns the primary key (when present) followed by unique constraints
func (t *Table) Keys() []*Key {
	keys := make([]*Key, 0, len(t.UniqueConstraints)+1)
	if t.PrimaryKey != nil {
		keys = append(keys, t.PrimaryKey)
	}
	return append(keys, t.UniqueConstraints...)
}

// IsPrimaryKey reports whether k is this table's primary key
func (t *Table) IsPrimaryKey(k *Key) bool {
	return t.PrimaryKey != nil && t.PrimaryKey == k
}

// IsShared reports whether several entity types map to the table
func (t *Table) IsShared() bool {
	if len(t.EntityTypes) > 1 {
		return true
	}
	entities := make(map[string]bool)
	for _, s := range t.Seeds {
		entities[strings.ToLower(s.Entity)] = true
	}
	return len(entities) > 1
}

// IsComputed reports whether the column has a non-blank computed expression
func (c *Column) IsComputed() bool {
	return c.ComputedColumnSQL != nil && strings.TrimSpace(*c.ComputedColumnSQL) != ""
}

// CanUpdateAfterSave reports whether the column may be updated once a row exists
func (c *Column) CanUpdateAfterSave() bool {
	return c.AfterSaveBehavior == "" || c.AfterSaveBehavior == SaveBehaviorSave
}
