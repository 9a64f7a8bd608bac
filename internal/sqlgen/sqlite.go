package sqlgen

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/toolsascode/shift/internal/model"
	"github.com/toolsascode/shift/internal/operations"
)

// sqlite has no schemas; schema names are dropped from every identifier.
// ALTER TABLE is limited to renames and column add/drop, so constraint
// changes on existing tables are rejected rather than rebuilt.
type sqlite struct {
	generator
}

// NewSQLite returns the SQLite generator
func NewSQLite() Generator {
	s := &sqlite{}
	s.d = s
	return &s.generator
}

func (s *sqlite) quote(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

func (s *sqlite) table(_, name string) string {
	return s.quote(name)
}

func quoteString(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

func (s *sqlite) literal(v interface{}) (string, error) {
	switch x := model.Normalize(v).(type) {
	case nil:
		return "NULL", nil
	case string:
		return quoteString(x), nil
	case bool:
		if x {
			return "1", nil
		}
		return "0", nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case []byte:
		return "X'" + strings.ToUpper(hex.EncodeToString(x)) + "'", nil
	case time.Time:
		return quoteString(x.UTC().Format("2006-01-02 15:04:05.999999999Z07:00")), nil
	case []interface{}, map[string]interface{}:
		data, err := json.Marshal(x)
		if err != nil {
			return "", fmt.Errorf("encode JSON literal: %w", err)
		}
		return quoteString(string(data)), nil
	default:
		return "", fmt.Errorf("unsupported literal type %T", v)
	}
}

func (s *sqlite) storeType(def *operations.ColumnDefinition) string {
	if def.StoreType != "" {
		return def.StoreType
	}
	switch def.Type {
	case model.TypeInt, model.TypeInt64, model.TypeBool:
		return "INTEGER"
	case model.TypeFloat:
		return "REAL"
	case model.TypeDecimal:
		return "NUMERIC"
	case model.TypeBytes:
		return "BLOB"
	default:
		return "TEXT"
	}
}

func (s *sqlite) columnDefinition(name string, def *operations.ColumnDefinition, stored bool) (string, error) {
	var sb strings.Builder
	sb.WriteString(s.quote(name))
	sb.WriteString(" ")
	sb.WriteString(s.storeType(def))
	if def.ComputedColumnSQL != nil {
		kind := "VIRTUAL"
		if stored && (def.IsStored == nil || *def.IsStored) {
			kind = "STORED"
		}
		fmt.Fprintf(&sb, " GENERATED ALWAYS AS (%s) %s", *def.ComputedColumnSQL, kind)
		return sb.String(), nil
	}
	if !def.IsNullable {
		sb.WriteString(" NOT NULL")
	}
	switch {
	case def.DefaultValueSQL != nil:
		sb.WriteString(" DEFAULT (" + *def.DefaultValueSQL + ")")
	case def.DefaultValue != nil:
		lit, err := s.literal(def.DefaultValue)
		if err != nil {
			return "", err
		}
		sb.WriteString(" DEFAULT " + lit)
	}
	if def.Collation != "" {
		sb.WriteString(" COLLATE " + s.quote(def.Collation))
	}
	return sb.String(), nil
}

func (s *sqlite) createTable(b *builder, op *operations.CreateTable) error {
	var lines []string
	for _, c := range op.Columns {
		line, err := s.columnDefinition(c.Name, &c.ColumnDefinition, true)
		if err != nil {
			return fmt.Errorf("column %s: %w", c.Name, err)
		}
		lines = append(lines, line)
	}
	if pk := op.PrimaryKey; pk != nil {
		lines = append(lines, fmt.Sprintf("CONSTRAINT %s PRIMARY KEY (%s)", s.quote(pk.Name), s.columnList(pk.Columns)))
	}
	for _, uq := range op.UniqueConstraints {
		lines = append(lines, fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)", s.quote(uq.Name), s.columnList(uq.Columns)))
	}
	for _, ck := range op.CheckConstraints {
		lines = append(lines, fmt.Sprintf("CONSTRAINT %s CHECK (%s)", s.quote(ck.Name), ck.SQL))
	}
	for _, fk := range op.ForeignKeys {
		lines = append(lines, fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s",
			s.quote(fk.Name), s.columnList(fk.Columns), s.quote(fk.PrincipalTable),
			s.columnList(fk.PrincipalColumns), referentialAction(fk.OnDelete)))
	}
	b.add(fmt.Sprintf("CREATE TABLE %s (\n    %s\n);", s.quote(op.Name), strings.Join(lines, ",\n    ")))
	return nil
}

func (s *sqlite) operation(b *builder, op operations.Operation) error {
	switch o := op.(type) {
	case *operations.CreateTable:
		return s.createTable(b, o)
	case *operations.DropTable:
		b.add(fmt.Sprintf("DROP TABLE %s;", s.quote(o.Name)))
	case *operations.RenameTable:
		// moving between schemas has no meaning here
		if o.NewName != nil && *o.NewName != o.Name {
			b.add(fmt.Sprintf("ALTER TABLE %s RENAME TO %s;", s.quote(o.Name), s.quote(*o.NewName)))
		}
	case *operations.AddColumn:
		// stored generated columns cannot be added to an existing table
		def, err := s.columnDefinition(o.Name, &o.ColumnDefinition, false)
		if err != nil {
			return err
		}
		b.add(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", s.quote(o.Table), def))
	case *operations.DropColumn:
		b.add(fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", s.quote(o.Table), s.quote(o.Name)))
	case *operations.RenameColumn:
		b.add(fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s;", s.quote(o.Table), s.quote(o.Name), s.quote(o.NewName)))
	case *operations.CreateIndex:
		var sb strings.Builder
		sb.WriteString("CREATE ")
		if o.IsUnique {
			sb.WriteString("UNIQUE ")
		}
		fmt.Fprintf(&sb, "INDEX %s ON %s (%s)", s.quote(o.Name), s.quote(o.Table), s.columnList(o.Columns))
		if o.Filter != nil {
			sb.WriteString(" WHERE " + *o.Filter)
		}
		b.add(sb.String() + ";")
	case *operations.DropIndex:
		b.add(fmt.Sprintf("DROP INDEX %s;", s.quote(o.Name)))
	case *operations.AlterTable:
		// comments are not stored by sqlite
	case *operations.EnsureSchema, *operations.DropSchema, *operations.AlterDatabase:
	default:
		return unsupported(op, "sqlite")
	}
	return nil
}
