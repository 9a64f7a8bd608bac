package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshotYAML = `
collation: en_US.utf8
tables:
  - name: users
    schema: app
    root_type: User
    entity_types: [User]
    columns:
      - name: id
        type: int64
        store_type: bigint
      - name: email
        type: string
        store_type: varchar(255)
        max_length: 255
      - name: nickname
        type: string
        nullable: true
        default_sql: "'anon'"
    primary_key:
      name: pk_users
      columns: [id]
    indexes:
      - name: ix_users_email
        columns: [email]
        unique: true
    seeds:
      - entity: User
        rows:
          - {id: 1, email: a@example.com}
sequences:
  - schema: app
    name: order_numbers
    type: int64
    start: 100
    increment: 1
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(snapshotYAML))
	require.NoError(t, err)

	require.Len(t, m.Tables, 1)
	users := m.Tables[0]
	assert.Equal(t, "app.users", users.QualifiedName())
	assert.Equal(t, "pk_users", users.PrimaryKey.Name)
	require.NotNil(t, users.FindColumn("nickname").DefaultValueSQL)
	assert.Equal(t, "'anon'", *users.FindColumn("nickname").DefaultValueSQL)
	assert.Equal(t, 255, *users.FindColumn("email").MaxLength)
	assert.Len(t, users.Seeds[0].Rows, 1)
	assert.Equal(t, int64(100), m.Sequences[0].StartValue)
	assert.Same(t, users, m.FindTable("app", "users"))
}

func TestValidate_EmptySQL(t *testing.T) {
	empty := "  "
	m := &Model{Tables: []*Table{{
		Name:    "t",
		Columns: []*Column{{Name: "c", ComputedColumnSQL: &empty}},
	}}}

	err := m.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptySQL))
}

func TestValidate_AmbiguousDefault(t *testing.T) {
	sql := "now()"
	m := &Model{Tables: []*Table{{
		Name:    "t",
		Columns: []*Column{{Name: "c", DefaultValue: 1, DefaultValueSQL: &sql}},
	}}}

	assert.ErrorIs(t, m.Validate(), ErrAmbiguousDefault)
}

func TestValidate_UnknownKeyColumn(t *testing.T) {
	m := &Model{Tables: []*Table{{
		Name:       "t",
		Columns:    []*Column{{Name: "id"}},
		PrimaryKey: &Key{Name: "pk", Columns: []string{"missing"}},
	}}}

	assert.Error(t, m.Validate())
}

func TestAnnotationsEqual(t *testing.T) {
	a := Annotations{{Name: "x", Value: 1}, {Name: "y", Value: "v"}, {Name: "x", Value: 1}}
	b := Annotations{{Name: "y", Value: "v"}, {Name: "x", Value: int64(1)}, {Name: "x", Value: 1}}
	c := Annotations{{Name: "y", Value: "v"}, {Name: "x", Value: 1}, {Name: "x", Value: 2}}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.True(t, Annotations(nil).Equal(Annotations{}))
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, ValuesEqual(1, int64(1)))
	assert.True(t, ValuesEqual(2.0, 2))
	assert.False(t, ValuesEqual(2.5, 2))
	assert.True(t, ValuesEqual([]interface{}{1, "a"}, []interface{}{int64(1), "a"}))
	assert.False(t, ValuesEqual("1", 1))
	assert.True(t, ValuesEqual(nil, nil))
}

func TestZeroValue(t *testing.T) {
	assert.Equal(t, "", ZeroValue(TypeString))
	assert.Equal(t, []interface{}{}, ZeroValue(TypeArray))
	assert.Equal(t, int64(0), ZeroValue(TypeInt))
	assert.Equal(t, false, ZeroValue(TypeBool))
}

func TestIsShared(t *testing.T) {
	single := &Table{Name: "t", EntityTypes: []string{"A"}}
	split := &Table{Name: "t", EntityTypes: []string{"A", "B"}}

	assert.False(t, single.IsShared())
	assert.True(t, split.IsShared())
}
