package operations

import "fmt"

func qualify(schema, name string) string {
	if schema == "" {
		return name
	}
	return schema + "." + name
}

// Describe renders a short human-readable summary, used in logs and the CLI
func Describe(op Operation) string {
	switch o := op.(type) {
	case *CreateTable:
		return fmt.Sprintf("create table %s", qualify(o.Schema, o.Name))
	case *DropTable:
		return fmt.Sprintf("drop table %s", qualify(o.Schema, o.Name))
	case *AlterTable:
		return fmt.Sprintf("alter table %s", qualify(o.Schema, o.Name))
	case *RenameTable:
		to := o.Name
		if o.NewName != nil {
			to = *o.NewName
		}
		schema := o.Schema
		if o.NewSchema != nil {
			schema = *o.NewSchema
		}
		return fmt.Sprintf("rename table %s to %s", qualify(o.Schema, o.Name), qualify(schema, to))
	case *AddColumn:
		return fmt.Sprintf("add column %s.%s", qualify(o.Schema, o.Table), o.Name)
	case *DropColumn:
		return fmt.Sprintf("drop column %s.%s", qualify(o.Schema, o.Table), o.Name)
	case *AlterColumn:
		if o.IsDestructiveChange {
			return fmt.Sprintf("alter column %s.%s (destructive)", qualify(o.Schema, o.Table), o.Name)
		}
		return fmt.Sprintf("alter column %s.%s", qualify(o.Schema, o.Table), o.Name)
	case *RenameColumn:
		return fmt.Sprintf("rename column %s.%s to %s", qualify(o.Schema, o.Table), o.Name, o.NewName)
	case *AddPrimaryKey:
		return fmt.Sprintf("add primary key %s on %s", o.Name, qualify(o.Schema, o.Table))
	case *DropPrimaryKey:
		return fmt.Sprintf("drop primary key %s on %s", o.Name, qualify(o.Schema, o.Table))
	case *AddUniqueConstraint:
		return fmt.Sprintf("add unique constraint %s on %s", o.Name, qualify(o.Schema, o.Table))
	case *DropUniqueConstraint:
		return fmt.Sprintf("drop unique constraint %s on %s", o.Name, qualify(o.Schema, o.Table))
	case *CreateIndex:
		return fmt.Sprintf("create index %s on %s", o.Name, qualify(o.Schema, o.Table))
	case *DropIndex:
		return fmt.Sprintf("drop index %s on %s", o.Name, qualify(o.Schema, o.Table))
	case *RenameIndex:
		return fmt.Sprintf("rename index %s to %s", o.Name, o.NewName)
	case *AddCheckConstraint:
		return fmt.Sprintf("add check %s on %s", o.Name, qualify(o.Schema, o.Table))
	case *DropCheckConstraint:
		return fmt.Sprintf("drop check %s on %s", o.Name, qualify(o.Schema, o.Table))
	case *AddForeignKey:
		return fmt.Sprintf("add foreign key %s on %s -> %s", o.Name, qualify(o.Schema, o.Table), qualify(o.PrincipalSchema, o.PrincipalTable))
	case *DropForeignKey:
		return fmt.Sprintf("drop foreign key %s on %s", o.Name, qualify(o.Schema, o.Table))
	case *CreateSequence:
		return fmt.Sprintf("create sequence %s", qualify(o.Schema, o.Name))
	case *AlterSequence:
		return fmt.Sprintf("alter sequence %s", qualify(o.Schema, o.Name))
	case *DropSequence:
		return fmt.Sprintf("drop sequence %s", qualify(o.Schema, o.Name))
	case *RenameSequence:
		return fmt.Sprintf("rename sequence %s", qualify(o.Schema, o.Name))
	case *RestartSequence:
		return fmt.Sprintf("restart sequence %s at %d", qualify(o.Schema, o.Name), o.StartValue)
	case *EnsureSchema:
		return fmt.Sprintf("ensure schema %s", o.Name)
	case *DropSchema:
		return fmt.Sprintf("drop schema %s", o.Name)
	case *AlterDatabase:
		return "alter database"
	case *InsertData:
		return fmt.Sprintf("insert %d row(s) into %s", len(o.Values), qualify(o.Schema, o.Table))
	case *UpdateData:
		return fmt.Sprintf("update %d row(s) in %s", len(o.KeyValues), qualify(o.Schema, o.Table))
	case *DeleteData:
		return fmt.Sprintf("delete %d row(s) from %s", len(o.KeyValues), qualify(o.Schema, o.Table))
	case *SQL:
		return "sql"
	}
	return string(op.Kind())
}

// IsDestructive reports whether op can lose data
func IsDestructive(op Operation) bool {
	switch o := op.(type) {
	case *DropTable, *DropColumn, *DropSchema, *DropSequence, *DeleteData:
		return true
	case *AlterColumn:
		return o.IsDestructiveChange
	}
	return false
}
