package differ

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolsascode/shift/internal/model"
	"github.com/toolsascode/shift/internal/operations"
)

func intColumn(name string) *model.Column {
	return &model.Column{Name: name, Type: model.TypeInt, StoreType: "integer"}
}

func textColumn(name string) *model.Column {
	return &model.Column{Name: name, Type: model.TypeString, StoreType: "text"}
}

func newTable(name string, columns ...*model.Column) *model.Table {
	return &model.Table{
		Name:       name,
		Columns:    columns,
		PrimaryKey: &model.Key{Name: "pk_" + name, Columns: []string{columns[0].Name}},
	}
}

func kinds(ops []operations.Operation) []operations.Kind {
	out := make([]operations.Kind, len(ops))
	for i, op := range ops {
		out[i] = op.Kind()
	}
	return out
}

func ofKind[T operations.Operation](ops []operations.Operation) []T {
	var out []T
	for _, op := range ops {
		if o, ok := op.(T); ok {
			out = append(out, o)
		}
	}
	return out
}

func blogModel() *model.Model {
	blogs := newTable("blogs", intColumn("id"), textColumn("title"))
	blogs.Schema = "app"
	blogs.Indexes = []*model.Index{{Name: "ix_blogs_title", Columns: []string{"title"}}}
	blogs.Seeds = []*model.EntitySeed{{Entity: "Blog", Rows: []map[string]interface{}{{"id": 1, "title": "first"}}}}

	posts := newTable("posts", intColumn("id"), intColumn("blog_id"))
	posts.Schema = "app"
	posts.ForeignKeys = []*model.ForeignKey{{
		Name:             "fk_posts_blogs",
		Columns:          []string{"blog_id"},
		PrincipalSchema:  "app",
		PrincipalTable:   "blogs",
		PrincipalColumns: []string{"id"},
		OnDelete:         model.Cascade,
	}}

	return &model.Model{
		Collation: "en_US.utf8",
		Tables:    []*model.Table{blogs, posts},
		Sequences: []*model.Sequence{{Schema: "app", Name: "order_numbers", Type: "int64", StartValue: 1, IncrementBy: 1}},
	}
}

func TestDiff_IdenticalModelsProduceNothing(t *testing.T) {
	d := New()

	ops, err := d.Diff(blogModel(), blogModel())
	require.NoError(t, err)
	assert.Empty(t, ops)

	differs, err := d.HasDifferences(blogModel(), blogModel())
	require.NoError(t, err)
	assert.False(t, differs)
}

func TestDiff_FromNothingCreatesEverything(t *testing.T) {
	ops, err := New().Diff(nil, blogModel())
	require.NoError(t, err)

	assert.Equal(t, []operations.Kind{
		operations.KindEnsureSchema,
		operations.KindAlterDatabase,
		operations.KindCreateSequence,
		operations.KindCreateTable,
		operations.KindCreateTable,
		operations.KindInsertData,
		operations.KindCreateIndex,
	}, kinds(ops))

	creates := ofKind[*operations.CreateTable](ops)
	assert.Equal(t, "blogs", creates[0].Name)
	assert.Equal(t, "posts", creates[1].Name)
	require.Len(t, creates[1].ForeignKeys, 1)
	assert.Equal(t, "fk_posts_blogs", creates[1].ForeignKeys[0].Name)
}

func TestDiff_RenamedTableIsDetectedThroughRootType(t *testing.T) {
	source := newTable("Foo", intColumn("id"), textColumn("name"))
	source.RootType = "Blog"
	source.PrimaryKey.Name = "pk"
	target := newTable("Bar", intColumn("id"), textColumn("name"))
	target.RootType = "Blog"
	target.PrimaryKey.Name = "pk"

	ops, err := New().Diff(
		&model.Model{Tables: []*model.Table{source}},
		&model.Model{Tables: []*model.Table{target}},
	)
	require.NoError(t, err)
	require.Len(t, ops, 1)

	rename, ok := ops[0].(*operations.RenameTable)
	require.True(t, ok)
	assert.Equal(t, "Foo", rename.Name)
	assert.Nil(t, rename.NewSchema)
	require.NotNil(t, rename.NewName)
	assert.Equal(t, "Bar", *rename.NewName)
}

func TestDiff_RenamedColumnIsDetectedStructurally(t *testing.T) {
	ops, err := New().Diff(
		&model.Model{Tables: []*model.Table{newTable("posts", intColumn("id"), textColumn("title"))}},
		&model.Model{Tables: []*model.Table{newTable("posts", intColumn("id"), textColumn("heading"))}},
	)
	require.NoError(t, err)
	require.Len(t, ops, 1)

	rename, ok := ops[0].(*operations.RenameColumn)
	require.True(t, ok)
	assert.Equal(t, "title", rename.Name)
	assert.Equal(t, "heading", rename.NewName)
}

func TestDiff_ForeignKeyCycleIsBrokenAfterCreates(t *testing.T) {
	a := newTable("a", intColumn("id"), intColumn("b_id"))
	a.ForeignKeys = []*model.ForeignKey{{Name: "fk_a_b", Columns: []string{"b_id"}, PrincipalTable: "b", PrincipalColumns: []string{"id"}}}
	b := newTable("b", intColumn("id"), intColumn("a_id"))
	b.ForeignKeys = []*model.ForeignKey{{Name: "fk_b_a", Columns: []string{"a_id"}, PrincipalTable: "a", PrincipalColumns: []string{"id"}}}

	ops, err := New().Diff(nil, &model.Model{Tables: []*model.Table{a, b}})
	require.NoError(t, err)
	require.Equal(t, []operations.Kind{
		operations.KindCreateTable,
		operations.KindCreateTable,
		operations.KindAddForeignKey,
	}, kinds(ops))

	first := ops[0].(*operations.CreateTable)
	second := ops[1].(*operations.CreateTable)
	assert.Equal(t, "a", first.Name)
	assert.Empty(t, first.ForeignKeys)
	assert.Equal(t, "b", second.Name)
	require.Len(t, second.ForeignKeys, 1)
	assert.Equal(t, "a", second.ForeignKeys[0].PrincipalTable)

	deferred := ops[2].(*operations.AddForeignKey)
	assert.Equal(t, "fk_a_b", deferred.Name)
	assert.Equal(t, "a", deferred.Table)
}

func TestDiff_ForeignKeyCycleIsBrokenBeforeDrops(t *testing.T) {
	a := newTable("a", intColumn("id"), intColumn("b_id"))
	a.ForeignKeys = []*model.ForeignKey{{Name: "fk_a_b", Columns: []string{"b_id"}, PrincipalTable: "b", PrincipalColumns: []string{"id"}}}
	b := newTable("b", intColumn("id"), intColumn("a_id"))
	b.ForeignKeys = []*model.ForeignKey{{Name: "fk_b_a", Columns: []string{"a_id"}, PrincipalTable: "a", PrincipalColumns: []string{"id"}}}

	ops, err := New().Diff(&model.Model{Tables: []*model.Table{a, b}}, nil)
	require.NoError(t, err)
	require.Equal(t, []operations.Kind{
		operations.KindDropForeignKey,
		operations.KindDropTable,
		operations.KindDropTable,
	}, kinds(ops))

	fk := ops[0].(*operations.DropForeignKey)
	assert.Equal(t, "b", fk.Table)
	assert.Equal(t, "fk_b_a", fk.Name)
	assert.Equal(t, "a", ops[1].(*operations.DropTable).Name)
	assert.Equal(t, "b", ops[2].(*operations.DropTable).Name)
}

func TestDiff_DependentTablesDropBeforePrincipals(t *testing.T) {
	blogs := newTable("blogs", intColumn("id"))
	posts := newTable("posts", intColumn("id"), intColumn("blog_id"))
	posts.ForeignKeys = []*model.ForeignKey{{Name: "fk_posts_blogs", Columns: []string{"blog_id"}, PrincipalTable: "blogs", PrincipalColumns: []string{"id"}}}

	ops, err := New().Diff(&model.Model{Tables: []*model.Table{blogs, posts}}, nil)
	require.NoError(t, err)
	require.Equal(t, []operations.Kind{operations.KindDropTable, operations.KindDropTable}, kinds(ops))
	assert.Equal(t, "posts", ops[0].(*operations.DropTable).Name)
	assert.Equal(t, "blogs", ops[1].(*operations.DropTable).Name)
}

func TestDiff_ForeignKeyAddedToExistingTable(t *testing.T) {
	source := &model.Model{Tables: []*model.Table{newTable("posts", intColumn("id"), intColumn("blog_id"))}}

	posts := newTable("posts", intColumn("id"), intColumn("blog_id"))
	posts.ForeignKeys = []*model.ForeignKey{{Name: "fk_posts_blogs", Columns: []string{"blog_id"}, PrincipalTable: "blogs", PrincipalColumns: []string{"id"}}}
	target := &model.Model{Tables: []*model.Table{posts, newTable("blogs", intColumn("id"))}}

	ops, err := New().Diff(source, target)
	require.NoError(t, err)
	assert.Equal(t, []operations.Kind{operations.KindCreateTable, operations.KindAddForeignKey}, kinds(ops))
}

func TestDiff_DestructiveChangeFlag(t *testing.T) {
	tests := []struct {
		name        string
		source      *model.Column
		target      *model.Column
		destructive bool
	}{
		{
			name:        "narrowing nullability",
			source:      &model.Column{Name: "bio", Type: model.TypeString, StoreType: "text", IsNullable: true},
			target:      &model.Column{Name: "bio", Type: model.TypeString, StoreType: "text"},
			destructive: true,
		},
		{
			name:        "widening nullability",
			source:      &model.Column{Name: "bio", Type: model.TypeString, StoreType: "text"},
			target:      &model.Column{Name: "bio", Type: model.TypeString, StoreType: "text", IsNullable: true},
			destructive: false,
		},
		{
			name:        "store type change",
			source:      &model.Column{Name: "bio", Type: model.TypeString, StoreType: "text"},
			target:      &model.Column{Name: "bio", Type: model.TypeString, StoreType: "varchar(100)"},
			destructive: true,
		},
		{
			name:        "comment only",
			source:      &model.Column{Name: "bio", Type: model.TypeString, StoreType: "text"},
			target:      &model.Column{Name: "bio", Type: model.TypeString, StoreType: "text", Comment: "about me"},
			destructive: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops, err := New().Diff(
				&model.Model{Tables: []*model.Table{newTable("users", intColumn("id"), tt.source)}},
				&model.Model{Tables: []*model.Table{newTable("users", intColumn("id"), tt.target)}},
			)
			require.NoError(t, err)
			require.Len(t, ops, 1)

			alter, ok := ops[0].(*operations.AlterColumn)
			require.True(t, ok)
			assert.Equal(t, tt.destructive, alter.IsDestructiveChange)
			assert.Equal(t, tt.source.StoreType, alter.OldColumn.StoreType)
			assert.Equal(t, tt.source.IsNullable, alter.OldColumn.IsNullable)
		})
	}
}

func TestDiff_RequiredColumnOnExistingTableGetsZeroDefault(t *testing.T) {
	ops, err := New().Diff(
		&model.Model{Tables: []*model.Table{newTable("users", intColumn("id"))}},
		&model.Model{Tables: []*model.Table{newTable("users", intColumn("id"), textColumn("email"), intColumn("age"))}},
	)
	require.NoError(t, err)

	adds := ofKind[*operations.AddColumn](ops)
	require.Len(t, adds, 2)
	assert.Equal(t, "", adds[0].DefaultValue)
	assert.Equal(t, int64(0), adds[1].DefaultValue)
}

func TestDiff_InlineColumnsGetNoSynthesizedDefault(t *testing.T) {
	ops, err := New().Diff(nil, &model.Model{Tables: []*model.Table{newTable("users", intColumn("id"), textColumn("email"))}})
	require.NoError(t, err)

	create := ofKind[*operations.CreateTable](ops)
	require.Len(t, create, 1)
	for _, c := range create[0].Columns {
		assert.Nil(t, c.DefaultValue, c.Name)
	}
}

func TestDiff_EmptySQLIsAnAuthoringError(t *testing.T) {
	empty := ""
	col := textColumn("slug")
	col.DefaultValueSQL = &empty

	_, err := New().Diff(nil, &model.Model{Tables: []*model.Table{newTable("posts", intColumn("id"), col)}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrEmptySQL))
}

func TestDiff_IndexRename(t *testing.T) {
	source := newTable("posts", intColumn("id"), textColumn("title"))
	source.Indexes = []*model.Index{{Name: "ix_old", Columns: []string{"title"}}}
	target := newTable("posts", intColumn("id"), textColumn("title"))
	target.Indexes = []*model.Index{{Name: "ix_new", Columns: []string{"title"}}}

	ops, err := New().Diff(
		&model.Model{Tables: []*model.Table{source}},
		&model.Model{Tables: []*model.Table{target}},
	)
	require.NoError(t, err)
	require.Len(t, ops, 1)

	rename := ops[0].(*operations.RenameIndex)
	assert.Equal(t, "ix_old", rename.Name)
	assert.Equal(t, "ix_new", rename.NewName)
}

func TestDiff_CheckConstraintRenameIsDropAndAdd(t *testing.T) {
	source := newTable("posts", intColumn("id"))
	source.CheckConstraints = []*model.CheckConstraint{{Name: "ck_old", SQL: "id > 0"}}
	target := newTable("posts", intColumn("id"))
	target.CheckConstraints = []*model.CheckConstraint{{Name: "ck_new", SQL: "id > 0"}}

	ops, err := New().Diff(
		&model.Model{Tables: []*model.Table{source}},
		&model.Model{Tables: []*model.Table{target}},
	)
	require.NoError(t, err)
	assert.Equal(t, []operations.Kind{operations.KindDropCheckConstraint, operations.KindAddCheckConstraint}, kinds(ops))
}

func TestDiff_PrimaryKeyChangeIsDropAndAdd(t *testing.T) {
	source := newTable("posts", intColumn("id"), intColumn("other"))
	target := newTable("posts", intColumn("id"), intColumn("other"))
	target.PrimaryKey = &model.Key{Name: "pk_posts", Columns: []string{"id", "other"}}

	ops, err := New().Diff(
		&model.Model{Tables: []*model.Table{source}},
		&model.Model{Tables: []*model.Table{target}},
	)
	require.NoError(t, err)
	assert.Equal(t, []operations.Kind{operations.KindDropPrimaryKey, operations.KindAddPrimaryKey}, kinds(ops))
}

func TestDiff_Sequences(t *testing.T) {
	base := func() *model.Sequence {
		return &model.Sequence{Name: "numbers", Type: "int64", StartValue: 1, IncrementBy: 1}
	}

	t.Run("start change restarts", func(t *testing.T) {
		target := base()
		target.StartValue = 100
		ops, err := New().Diff(&model.Model{Sequences: []*model.Sequence{base()}}, &model.Model{Sequences: []*model.Sequence{target}})
		require.NoError(t, err)
		require.Len(t, ops, 1)
		assert.Equal(t, int64(100), ops[0].(*operations.RestartSequence).StartValue)
	})

	t.Run("increment change alters", func(t *testing.T) {
		target := base()
		target.IncrementBy = 10
		ops, err := New().Diff(&model.Model{Sequences: []*model.Sequence{base()}}, &model.Model{Sequences: []*model.Sequence{target}})
		require.NoError(t, err)
		require.Len(t, ops, 1)
		alter := ops[0].(*operations.AlterSequence)
		assert.Equal(t, 10, alter.IncrementBy)
		assert.Equal(t, 1, alter.OldSequence.IncrementBy)
	})

	t.Run("schema move renames", func(t *testing.T) {
		source := base()
		source.Schema = "a"
		target := base()
		target.Schema = "b"
		ops, err := New().Diff(&model.Model{Sequences: []*model.Sequence{source}}, &model.Model{Sequences: []*model.Sequence{target}})
		require.NoError(t, err)
		assert.Equal(t, []operations.Kind{operations.KindEnsureSchema, operations.KindRenameSequence}, kinds(ops))
		rename := ops[1].(*operations.RenameSequence)
		require.NotNil(t, rename.NewSchema)
		assert.Equal(t, "b", *rename.NewSchema)
		assert.Nil(t, rename.NewName)
	})
}

func TestDiff_DropsPrecedeCreates(t *testing.T) {
	ops, err := New().Diff(
		&model.Model{Tables: []*model.Table{newTable("users", intColumn("id"), textColumn("legacy"))}},
		&model.Model{Tables: []*model.Table{newTable("users", intColumn("id")), newTable("roles", intColumn("id"))}},
	)
	require.NoError(t, err)
	assert.Equal(t, []operations.Kind{operations.KindDropColumn, operations.KindCreateTable}, kinds(ops))
}

func TestDiff_SeedInsertsAreBatched(t *testing.T) {
	roles := newTable("roles", intColumn("id"), textColumn("name"))
	roles.Seeds = []*model.EntitySeed{{Entity: "Role", Rows: []map[string]interface{}{
		{"id": 1, "name": "admin"},
		{"id": 2, "name": "editor"},
		{"id": 3, "name": "viewer"},
	}}}

	ops, err := New().Diff(nil, &model.Model{Tables: []*model.Table{roles}})
	require.NoError(t, err)

	inserts := ofKind[*operations.InsertData](ops)
	require.Len(t, inserts, 1)
	assert.Equal(t, []string{"id", "name"}, inserts[0].Columns)
	assert.Len(t, inserts[0].Values, 3)
}

func TestDiff_SeedDataChanges(t *testing.T) {
	seeded := func(name string, column *model.Column) *model.Table {
		roles := newTable("roles", intColumn("id"), column)
		roles.Seeds = []*model.EntitySeed{{Entity: "Role", Rows: []map[string]interface{}{{"id": 1, "name": name}}}}
		return roles
	}

	t.Run("updatable column", func(t *testing.T) {
		ops, err := New().Diff(
			&model.Model{Tables: []*model.Table{seeded("admin", textColumn("name"))}},
			&model.Model{Tables: []*model.Table{seeded("root", textColumn("name"))}},
		)
		require.NoError(t, err)
		require.Len(t, ops, 1)
		update := ops[0].(*operations.UpdateData)
		assert.Equal(t, []string{"name"}, update.Columns)
		assert.Equal(t, [][]interface{}{{"root"}}, update.Values)
	})

	t.Run("read-only column recreates the row", func(t *testing.T) {
		readOnly := textColumn("name")
		readOnly.AfterSaveBehavior = model.SaveBehaviorThrow
		ops, err := New().Diff(
			&model.Model{Tables: []*model.Table{seeded("admin", textColumn("name"))}},
			&model.Model{Tables: []*model.Table{seeded("root", readOnly)}},
		)
		require.NoError(t, err)
		assert.Equal(t, []operations.Kind{operations.KindDeleteData, operations.KindInsertData}, kinds(ops))
	})

	t.Run("omitted column is reset", func(t *testing.T) {
		withTitle := func(title *model.Column, row map[string]interface{}) *model.Table {
			roles := newTable("roles", intColumn("id"), title)
			roles.Seeds = []*model.EntitySeed{{Entity: "Role", Rows: []map[string]interface{}{row}}}
			return roles
		}
		nullable := textColumn("title")
		nullable.IsNullable = true
		defaulted := textColumn("title")
		defaulted.DefaultValue = "none"

		for _, tc := range []struct {
			name   string
			column *model.Column
			want   interface{}
		}{
			{"nullable", nullable, nil},
			{"with default", defaulted, "none"},
		} {
			t.Run(tc.name, func(t *testing.T) {
				ops, err := New().Diff(
					&model.Model{Tables: []*model.Table{withTitle(tc.column, map[string]interface{}{"id": 1, "title": "x"})}},
					&model.Model{Tables: []*model.Table{withTitle(tc.column, map[string]interface{}{"id": 1})}},
				)
				require.NoError(t, err)
				require.Len(t, ops, 1)
				update := ops[0].(*operations.UpdateData)
				assert.Equal(t, []string{"title"}, update.Columns)
				assert.Equal(t, [][]interface{}{{tc.want}}, update.Values)
			})
		}

		// left out on both sides
		ops, err := New().Diff(
			&model.Model{Tables: []*model.Table{withTitle(defaulted, map[string]interface{}{"id": 1})}},
			&model.Model{Tables: []*model.Table{withTitle(defaulted, map[string]interface{}{"id": 1})}},
		)
		require.NoError(t, err)
		assert.Empty(t, ops)
	})

	t.Run("source-only rows are deleted", func(t *testing.T) {
		ops, err := New().Diff(
			&model.Model{Tables: []*model.Table{seeded("admin", textColumn("name"))}},
			&model.Model{Tables: []*model.Table{newTable("roles", intColumn("id"), textColumn("name"))}},
		)
		require.NoError(t, err)
		assert.Equal(t, []operations.Kind{operations.KindDeleteData}, kinds(ops))
	})

	t.Run("dropped table subsumes deletes", func(t *testing.T) {
		ops, err := New().Diff(&model.Model{Tables: []*model.Table{seeded("admin", textColumn("name"))}}, nil)
		require.NoError(t, err)
		assert.Equal(t, []operations.Kind{operations.KindDropTable}, kinds(ops))
	})
}

func TestDiff_SeedDataErrors(t *testing.T) {
	t.Run("conflicting values on a shared table", func(t *testing.T) {
		people := newTable("people", intColumn("id"), textColumn("name"))
		people.EntityTypes = []string{"Person", "Employee"}
		people.Seeds = []*model.EntitySeed{
			{Entity: "Person", Rows: []map[string]interface{}{{"id": 1, "name": "ada"}}},
			{Entity: "Employee", Rows: []map[string]interface{}{{"id": 1, "name": "grace"}}},
		}
		_, err := New().Diff(nil, &model.Model{Tables: []*model.Table{people}})
		assert.True(t, errors.Is(err, ErrConflictingSeedData), "got %v", err)
	})

	t.Run("entity names differ only in case", func(t *testing.T) {
		roles := newTable("roles", intColumn("id"), textColumn("name"))
		roles.Seeds = []*model.EntitySeed{
			{Entity: "Role", Rows: []map[string]interface{}{{"id": 1, "name": "admin"}}},
			{Entity: "role", Rows: []map[string]interface{}{{"id": 1, "name": "admin"}}},
		}
		_, err := New().Diff(nil, &model.Model{Tables: []*model.Table{roles}})
		assert.True(t, errors.Is(err, ErrDuplicateSeedKey), "got %v", err)
	})

	t.Run("agreeing values on a shared table merge", func(t *testing.T) {
		people := newTable("people", intColumn("id"), textColumn("name"), textColumn("title"))
		people.EntityTypes = []string{"Person", "Employee"}
		people.Seeds = []*model.EntitySeed{
			{Entity: "Person", Rows: []map[string]interface{}{{"id": 1, "name": "ada"}}},
			{Entity: "Employee", Rows: []map[string]interface{}{{"id": 1, "name": "ada", "title": "engineer"}}},
		}
		ops, err := New().Diff(nil, &model.Model{Tables: []*model.Table{people}})
		require.NoError(t, err)
		inserts := ofKind[*operations.InsertData](ops)
		require.Len(t, inserts, 1)
		assert.Equal(t, []string{"id", "name", "title"}, inserts[0].Columns)
	})

	t.Run("duplicate key on a plain table", func(t *testing.T) {
		roles := newTable("roles", intColumn("id"))
		roles.Seeds = []*model.EntitySeed{{Entity: "Role", Rows: []map[string]interface{}{{"id": 1}, {"id": 1}}}}
		_, err := New().Diff(nil, &model.Model{Tables: []*model.Table{roles}})
		assert.True(t, errors.Is(err, ErrDuplicateSeedKey), "got %v", err)
	})

	t.Run("keyless table", func(t *testing.T) {
		roles := newTable("roles", intColumn("id"))
		roles.PrimaryKey = nil
		roles.Seeds = []*model.EntitySeed{{Entity: "Role", Rows: []map[string]interface{}{{"id": 1}}}}
		_, err := New().Diff(nil, &model.Model{Tables: []*model.Table{roles}})
		assert.True(t, errors.Is(err, ErrMissingPrimaryKey), "got %v", err)
	})
}

func TestDiff_ExcludedTablesAreIgnored(t *testing.T) {
	audit := newTable("audit", intColumn("id"))
	audit.ExcludedFromMigrations = true

	ops, err := New().Diff(nil, &model.Model{Tables: []*model.Table{audit}})
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestHasDifferences(t *testing.T) {
	target := blogModel()
	target.Tables[0].Comment = "all the blogs"

	differs, err := New().HasDifferences(blogModel(), target)
	require.NoError(t, err)
	assert.True(t, differs)
}

func TestSort_RawSQLIsUnexpected(t *testing.T) {
	d := New()
	_, err := d.sort([]operations.Operation{&operations.SQL{SQL: "select 1"}}, newDiffContext(nil, nil))
	assert.True(t, errors.Is(err, ErrUnexpectedOperation))
}

func TestOrderColumns(t *testing.T) {
	hint := 1
	table := &model.Table{
		Name: "people",
		Columns: []*model.Column{
			{Name: "settings_b", InJSON: true},
			{Name: "salary", Properties: []model.Property{{Entity: "Employee", Name: "Salary", Kind: model.PropertyScalar, Depth: 1}}},
			{Name: "address_city", Properties: []model.Property{{Entity: "Address", Name: "City", Kind: model.PropertyOwned}}},
			{Name: "id"},
			{Name: "tenant", Order: &hint},
			{Name: "name", Properties: []model.Property{{Entity: "Person", Name: "Name", Kind: model.PropertyScalar}}},
			{Name: "settings_a", InJSON: true},
		},
		PrimaryKey: &model.Key{Name: "pk_people", Columns: []string{"id"}},
	}

	var names []string
	for _, c := range orderColumns(table) {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"id", "tenant", "name", "salary", "address_city", "settings_a", "settings_b"}, names)
}
