package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolsascode/shift/internal/operations"
	"github.com/toolsascode/shift/internal/registry"
)

func TestBuilder_CreateTable(t *testing.T) {
	b := NewBuilder().
		EnsureSchema("app").
		CreateTable("app", "users", func(t *TableBuilder) {
			t.Column("id", TypeInt64)
			t.Column("email", TypeString).MaxLength(255)
			t.Column("nickname", TypeString).Nullable()
			t.PrimaryKey("pk_users", "id")
			t.Unique("uq_users_email", "email")
			t.Check("ck_users_email", "email <> ''")
		})

	ops := b.Operations()
	require.Len(t, ops, 2)
	assert.Equal(t, operations.KindEnsureSchema, ops[0].Kind())

	ct, ok := ops[1].(*operations.CreateTable)
	require.True(t, ok)
	assert.Equal(t, "app", ct.Schema)
	require.Len(t, ct.Columns, 3)
	assert.Equal(t, "users", ct.Columns[0].Table)
	assert.False(t, ct.Columns[1].IsNullable)
	require.NotNil(t, ct.Columns[1].MaxLength)
	assert.Equal(t, 255, *ct.Columns[1].MaxLength)
	assert.True(t, ct.Columns[2].IsNullable)
	assert.Equal(t, []string{"id"}, ct.PrimaryKey.Columns)
	assert.Len(t, ct.UniqueConstraints, 1)
	assert.Len(t, ct.CheckConstraints, 1)
}

func TestBuilder_ForeignKeys(t *testing.T) {
	ops := NewBuilder().
		CreateTable("", "orders", func(t *TableBuilder) {
			t.Column("id", TypeInt64)
			t.Column("user_id", TypeInt64)
			t.ForeignKey("fk_orders_users", []string{"user_id"}, "users", []string{"id"}, Cascade)
		}).
		AddForeignKey("", "audit", "fk_audit_users", []string{"user_id"}, "users", []string{"id"}, SetNull).
		Operations()

	ct := ops[0].(*operations.CreateTable)
	require.Len(t, ct.ForeignKeys, 1)
	assert.Equal(t, Cascade, ct.ForeignKeys[0].OnDelete)

	fk := ops[1].(*operations.AddForeignKey)
	assert.Equal(t, "users", fk.PrincipalTable)
	assert.Equal(t, SetNull, fk.OnDelete)
}

func TestBuilder_ColumnOptions(t *testing.T) {
	ops := NewBuilder().
		AddColumn("", "users", "score", TypeDecimal, func(c *ColumnBuilder) {
			c.Precision(10, 2).Default(0).Comment("points")
		}).
		AddColumn("", "users", "full_name", TypeString, func(c *ColumnBuilder) {
			c.Computed("first || ' ' || last", true)
		}).
		AddColumn("", "users", "created_at", TypeTime, func(c *ColumnBuilder) {
			c.DefaultSQL("CURRENT_TIMESTAMP").StoreType("timestamptz")
		}).
		Operations()

	score := ops[0].(*operations.AddColumn)
	assert.Equal(t, 10, *score.Precision)
	assert.Equal(t, 2, *score.Scale)
	assert.Equal(t, 0, score.DefaultValue)
	assert.Equal(t, "points", score.Comment)

	full := ops[1].(*operations.AddColumn)
	assert.True(t, full.IsComputed())
	assert.True(t, *full.IsStored)

	created := ops[2].(*operations.AddColumn)
	assert.Equal(t, "CURRENT_TIMESTAMP", *created.DefaultValueSQL)
	assert.Equal(t, "timestamptz", created.StoreType)
}

func TestBuilder_RawSQL(t *testing.T) {
	ops := NewBuilder().
		SQL("UPDATE users SET active = TRUE").
		SQLNoTransaction("CREATE INDEX CONCURRENTLY ix_users_active ON users (active)").
		Operations()

	assert.False(t, ops[0].(*operations.SQL).SuppressTransaction)
	assert.True(t, ops[1].(*operations.SQL).SuppressTransaction)
}

func TestBuilder_Data(t *testing.T) {
	ops := NewBuilder().
		InsertData("", "roles", []string{"id", "name"}, []interface{}{1, "admin"}, []interface{}{2, "user"}).
		DeleteData("", "roles", []string{"id"}, []interface{}{2}).
		Operations()

	ins := ops[0].(*operations.InsertData)
	assert.Len(t, ins.Values, 2)
	del := ops[1].(*operations.DeleteData)
	assert.Equal(t, [][]interface{}{{2}}, del.KeyValues)
}

func TestNewMigration(t *testing.T) {
	up := NewBuilder().CreateTable("", "users", func(t *TableBuilder) { t.Column("id", TypeInt64) })
	down := NewBuilder().DropTable("", "users")

	m := NewMigration("20250101120000_create_users", up, down)
	assert.Len(t, m.Up, 1)
	assert.Len(t, m.Down, 1)
	assert.Equal(t, "create_users", m.Name())

	assert.Nil(t, NewMigration("20250101120000_x", up, nil).Down)
}

func TestMustRegisterYAML(t *testing.T) {
	saved := GlobalRegistry
	defer func() { GlobalRegistry = saved }()
	GlobalRegistry = registry.NewInMemoryRegistry()

	m := NewMigration("20250102000000_roles", NewBuilder().SQL("SELECT 1"), nil)
	data, err := m.Marshal()
	require.NoError(t, err)

	MustRegisterYAML(data)
	_, ok := GlobalRegistry.GetByID("20250102000000_roles")
	assert.True(t, ok)

	assert.Panics(t, func() { MustRegisterYAML([]byte("id: bad\n")) })
	assert.Panics(t, func() { MustRegister(&Migration{ID: "nope"}) })
}
