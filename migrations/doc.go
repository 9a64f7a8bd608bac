// Package migrations provides the public API for registering migration units.
// It exports the unit type, the global registry and a fluent builder that
// migration files use to register themselves.
//
// Units are normally authored as YAML by "shift add" and compiled in through
// a generated wrapper (see GoFileTemplate). Hand-written units use the
// builder:
//
//	package dbmigrations
//
//	import "github.com/toolsascode/shift/migrations"
//
//	func init() {
//		up := migrations.NewBuilder().
//			CreateTable("", "users", func(t *migrations.TableBuilder) {
//				t.Column("id", migrations.TypeInt64)
//				t.Column("email", migrations.TypeString).MaxLength(255)
//				t.PrimaryKey("pk_users", "id")
//			})
//		down := migrations.NewBuilder().DropTable("", "users")
//
//		migrations.MustRegister(migrations.NewMigration("20250101120000_create_users", up, down))
//	}
package migrations
