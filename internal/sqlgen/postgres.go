package sqlgen

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/toolsascode/shift/internal/logger"
	"github.com/toolsascode/shift/internal/model"
	"github.com/toolsascode/shift/internal/operations"
)

// ConcurrentlyAnnotation marks an index to be built with CREATE INDEX
// CONCURRENTLY, which cannot run inside a transaction
const ConcurrentlyAnnotation = "postgres:concurrently"

type postgres struct {
	generator
}

// NewPostgres returns the PostgreSQL generator
func NewPostgres() Generator {
	p := &postgres{}
	p.d = p
	return &p.generator
}

func (p *postgres) quote(identifier string) string {
	return pq.QuoteIdentifier(identifier)
}

func (p *postgres) table(schema, name string) string {
	if schema == "" {
		return p.quote(name)
	}
	return p.quote(schema) + "." + p.quote(name)
}

func (p *postgres) literal(v interface{}) (string, error) {
	switch x := model.Normalize(v).(type) {
	case nil:
		return "NULL", nil
	case string:
		return pq.QuoteLiteral(x), nil
	case bool:
		if x {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case []byte:
		return `'\x` + hex.EncodeToString(x) + `'::bytea`, nil
	case time.Time:
		return pq.QuoteLiteral(x.UTC().Format(time.RFC3339Nano)), nil
	case []interface{}:
		if len(x) == 0 {
			return "'{}'", nil
		}
		items := make([]string, len(x))
		for i, e := range x {
			lit, err := p.literal(e)
			if err != nil {
				return "", err
			}
			items[i] = lit
		}
		return "ARRAY[" + strings.Join(items, ", ") + "]", nil
	case map[string]interface{}:
		data, err := json.Marshal(x)
		if err != nil {
			return "", fmt.Errorf("encode JSON literal: %w", err)
		}
		return pq.QuoteLiteral(string(data)), nil
	default:
		return "", fmt.Errorf("unsupported literal type %T", v)
	}
}

func (p *postgres) storeType(def *operations.ColumnDefinition) string {
	if def.StoreType != "" {
		return def.StoreType
	}
	switch def.Type {
	case model.TypeString:
		if def.MaxLength != nil {
			if def.IsFixedLength != nil && *def.IsFixedLength {
				return fmt.Sprintf("character(%d)", *def.MaxLength)
			}
			return fmt.Sprintf("character varying(%d)", *def.MaxLength)
		}
		return "text"
	case model.TypeInt:
		return "integer"
	case model.TypeInt64:
		return "bigint"
	case model.TypeFloat:
		return "double precision"
	case model.TypeDecimal:
		if def.Precision != nil && def.Scale != nil {
			return fmt.Sprintf("numeric(%d,%d)", *def.Precision, *def.Scale)
		}
		if def.Precision != nil {
			return fmt.Sprintf("numeric(%d)", *def.Precision)
		}
		return "numeric"
	case model.TypeBool:
		return "boolean"
	case model.TypeBytes:
		return "bytea"
	case model.TypeTime:
		return "timestamp with time zone"
	case model.TypeUUID:
		return "uuid"
	case model.TypeArray:
		return "text[]"
	case model.TypeJSON:
		return "jsonb"
	default:
		return "text"
	}
}

func (p *postgres) columnDefinition(name string, def *operations.ColumnDefinition) (string, error) {
	var sb strings.Builder
	sb.WriteString(p.quote(name))
	sb.WriteString(" ")
	sb.WriteString(p.storeType(def))
	if def.Collation != "" {
		sb.WriteString(" COLLATE ")
		sb.WriteString(p.quote(def.Collation))
	}
	if def.ComputedColumnSQL != nil {
		// PostgreSQL only supports stored generated columns
		fmt.Fprintf(&sb, " GENERATED ALWAYS AS (%s) STORED", *def.ComputedColumnSQL)
		return sb.String(), nil
	}
	if !def.IsNullable {
		sb.WriteString(" NOT NULL")
	}
	dflt, err := p.defaultClause(def)
	if err != nil {
		return "", err
	}
	sb.WriteString(dflt)
	return sb.String(), nil
}

func (p *postgres) defaultClause(def *operations.ColumnDefinition) (string, error) {
	switch {
	case def.DefaultValueSQL != nil:
		return " DEFAULT (" + *def.DefaultValueSQL + ")", nil
	case def.DefaultValue != nil:
		lit, err := p.literal(def.DefaultValue)
		if err != nil {
			return "", err
		}
		return " DEFAULT " + lit, nil
	}
	return "", nil
}

func (p *postgres) comment(b *builder, target string, comment string) {
	text := "NULL"
	if comment != "" {
		text = pq.QuoteLiteral(comment)
	}
	b.add(fmt.Sprintf("COMMENT ON %s IS %s;", target, text))
}

func (p *postgres) foreignKey(fk *operations.AddForeignKey) string {
	return fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s",
		p.quote(fk.Name),
		p.columnList(fk.Columns),
		p.table(fk.PrincipalSchema, fk.PrincipalTable),
		p.columnList(fk.PrincipalColumns),
		referentialAction(fk.OnDelete))
}

func (p *postgres) createTable(b *builder, op *operations.CreateTable) error {
	var lines []string
	for _, c := range op.Columns {
		line, err := p.columnDefinition(c.Name, &c.ColumnDefinition)
		if err != nil {
			return fmt.Errorf("column %s: %w", c.Name, err)
		}
		lines = append(lines, line)
	}
	if pk := op.PrimaryKey; pk != nil {
		lines = append(lines, fmt.Sprintf("CONSTRAINT %s PRIMARY KEY (%s)", p.quote(pk.Name), p.columnList(pk.Columns)))
	}
	for _, uq := range op.UniqueConstraints {
		lines = append(lines, fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)", p.quote(uq.Name), p.columnList(uq.Columns)))
	}
	for _, ck := range op.CheckConstraints {
		lines = append(lines, fmt.Sprintf("CONSTRAINT %s CHECK (%s)", p.quote(ck.Name), ck.SQL))
	}
	for _, fk := range op.ForeignKeys {
		lines = append(lines, p.foreignKey(fk))
	}

	table := p.table(op.Schema, op.Name)
	b.add(fmt.Sprintf("CREATE TABLE %s (\n    %s\n);", table, strings.Join(lines, ",\n    ")))
	if op.Comment != "" {
		p.comment(b, "TABLE "+table, op.Comment)
	}
	for _, c := range op.Columns {
		if c.Comment != "" {
			p.comment(b, "COLUMN "+table+"."+p.quote(c.Name), c.Comment)
		}
	}
	return nil
}

func (p *postgres) alterColumn(b *builder, op *operations.AlterColumn) error {
	table := p.table(op.Schema, op.Table)
	column := p.quote(op.Name)
	old := &op.OldColumn.ColumnDefinition

	// generation expressions cannot be altered in place
	if !stringPtrEqual(op.ComputedColumnSQL, old.ComputedColumnSQL) {
		def, err := p.columnDefinition(op.Name, &op.ColumnDefinition)
		if err != nil {
			return err
		}
		b.add(fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", table, column))
		b.add(fmt.Sprintf("ALTER TABLE %s ADD %s;", table, def))
		if op.Comment != "" {
			p.comment(b, "COLUMN "+table+"."+column, op.Comment)
		}
		return nil
	}

	var clauses []string
	newType, oldType := p.storeType(&op.ColumnDefinition), p.storeType(old)
	if newType != oldType || op.Collation != old.Collation {
		clause := fmt.Sprintf("ALTER COLUMN %s TYPE %s", column, newType)
		if op.Collation != "" {
			clause += " COLLATE " + p.quote(op.Collation)
		}
		if newType != oldType {
			clause += fmt.Sprintf(" USING %s::%s", column, newType)
		}
		clauses = append(clauses, clause)
	}
	if op.IsNullable != old.IsNullable {
		if op.IsNullable {
			clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s DROP NOT NULL", column))
		} else {
			clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s SET NOT NULL", column))
		}
	}
	newDefault, err := p.defaultClause(&op.ColumnDefinition)
	if err != nil {
		return err
	}
	oldDefault, err := p.defaultClause(old)
	if err != nil {
		return err
	}
	if newDefault != oldDefault {
		if newDefault == "" {
			clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s DROP DEFAULT", column))
		} else {
			clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s SET%s", column, newDefault))
		}
	}
	if len(clauses) > 0 {
		b.add(fmt.Sprintf("ALTER TABLE %s %s;", table, strings.Join(clauses, ", ")))
	}
	if op.Comment != old.Comment {
		p.comment(b, "COLUMN "+table+"."+column, op.Comment)
	}
	return nil
}

func (p *postgres) sequenceOptions(def *operations.SequenceDefinition) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, " INCREMENT BY %d", increment(def.IncrementBy))
	if def.MinValue != nil {
		fmt.Fprintf(&sb, " MINVALUE %d", *def.MinValue)
	} else {
		sb.WriteString(" NO MINVALUE")
	}
	if def.MaxValue != nil {
		fmt.Fprintf(&sb, " MAXVALUE %d", *def.MaxValue)
	} else {
		sb.WriteString(" NO MAXVALUE")
	}
	if def.IsCyclic {
		sb.WriteString(" CYCLE")
	} else {
		sb.WriteString(" NO CYCLE")
	}
	if def.IsCached && def.CacheSize != nil {
		fmt.Fprintf(&sb, " CACHE %d", *def.CacheSize)
	} else if !def.IsCached {
		sb.WriteString(" CACHE 1")
	}
	return sb.String()
}

func increment(by int) int {
	if by == 0 {
		return 1
	}
	return by
}

func (p *postgres) sequenceType(t string) string {
	switch t {
	case model.TypeInt:
		return " AS integer"
	case model.TypeInt64:
		return " AS bigint"
	case "":
		return ""
	default:
		return " AS " + t
	}
}

func (p *postgres) operation(b *builder, op operations.Operation) error {
	switch o := op.(type) {
	case *operations.CreateTable:
		return p.createTable(b, o)
	case *operations.DropTable:
		b.add(fmt.Sprintf("DROP TABLE %s;", p.table(o.Schema, o.Name)))
	case *operations.AlterTable:
		if o.Comment != o.OldTable.Comment {
			p.comment(b, "TABLE "+p.table(o.Schema, o.Name), o.Comment)
		}
	case *operations.RenameTable:
		schema := o.Schema
		if o.NewSchema != nil {
			b.add(fmt.Sprintf("ALTER TABLE %s SET SCHEMA %s;", p.table(o.Schema, o.Name), p.quote(schemaOrPublic(*o.NewSchema))))
			schema = *o.NewSchema
		}
		if o.NewName != nil {
			b.add(fmt.Sprintf("ALTER TABLE %s RENAME TO %s;", p.table(schema, o.Name), p.quote(*o.NewName)))
		}
	case *operations.AddColumn:
		def, err := p.columnDefinition(o.Name, &o.ColumnDefinition)
		if err != nil {
			return err
		}
		table := p.table(o.Schema, o.Table)
		b.add(fmt.Sprintf("ALTER TABLE %s ADD %s;", table, def))
		if o.Comment != "" {
			p.comment(b, "COLUMN "+table+"."+p.quote(o.Name), o.Comment)
		}
	case *operations.DropColumn:
		b.add(fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", p.table(o.Schema, o.Table), p.quote(o.Name)))
	case *operations.AlterColumn:
		return p.alterColumn(b, o)
	case *operations.RenameColumn:
		b.add(fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s;", p.table(o.Schema, o.Table), p.quote(o.Name), p.quote(o.NewName)))
	case *operations.AddPrimaryKey:
		b.add(fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s PRIMARY KEY (%s);", p.table(o.Schema, o.Table), p.quote(o.Name), p.columnList(o.Columns)))
	case *operations.AddUniqueConstraint:
		b.add(fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s);", p.table(o.Schema, o.Table), p.quote(o.Name), p.columnList(o.Columns)))
	case *operations.AddCheckConstraint:
		b.add(fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s);", p.table(o.Schema, o.Table), p.quote(o.Name), o.SQL))
	case *operations.AddForeignKey:
		b.add(fmt.Sprintf("ALTER TABLE %s ADD %s;", p.table(o.Schema, o.Table), p.foreignKey(o)))
	case *operations.DropPrimaryKey:
		b.add(p.dropConstraint(o.Schema, o.Table, o.Name))
	case *operations.DropUniqueConstraint:
		b.add(p.dropConstraint(o.Schema, o.Table, o.Name))
	case *operations.DropCheckConstraint:
		b.add(p.dropConstraint(o.Schema, o.Table, o.Name))
	case *operations.DropForeignKey:
		b.add(p.dropConstraint(o.Schema, o.Table, o.Name))
	case *operations.CreateIndex:
		p.createIndex(b, o)
	case *operations.DropIndex:
		b.add(fmt.Sprintf("DROP INDEX %s;", p.table(o.Schema, o.Name)))
	case *operations.RenameIndex:
		b.add(fmt.Sprintf("ALTER INDEX %s RENAME TO %s;", p.table(o.Schema, o.Name), p.quote(o.NewName)))
	case *operations.CreateSequence:
		b.add(fmt.Sprintf("CREATE SEQUENCE %s%s START WITH %d%s;", p.table(o.Schema, o.Name), p.sequenceType(o.Type), o.StartValue, p.sequenceOptions(&o.SequenceDefinition)))
	case *operations.AlterSequence:
		b.add(fmt.Sprintf("ALTER SEQUENCE %s%s;", p.table(o.Schema, o.Name), p.sequenceOptions(&o.SequenceDefinition)))
	case *operations.DropSequence:
		b.add(fmt.Sprintf("DROP SEQUENCE %s;", p.table(o.Schema, o.Name)))
	case *operations.RenameSequence:
		schema := o.Schema
		if o.NewSchema != nil {
			b.add(fmt.Sprintf("ALTER SEQUENCE %s SET SCHEMA %s;", p.table(o.Schema, o.Name), p.quote(schemaOrPublic(*o.NewSchema))))
			schema = *o.NewSchema
		}
		if o.NewName != nil {
			b.add(fmt.Sprintf("ALTER SEQUENCE %s RENAME TO %s;", p.table(schema, o.Name), p.quote(*o.NewName)))
		}
	case *operations.RestartSequence:
		b.add(fmt.Sprintf("ALTER SEQUENCE %s RESTART WITH %d;", p.table(o.Schema, o.Name), o.StartValue))
	case *operations.EnsureSchema:
		if o.Name != "public" {
			b.add(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s;", p.quote(o.Name)))
		}
	case *operations.DropSchema:
		b.add(fmt.Sprintf("DROP SCHEMA %s;", p.quote(o.Name)))
	case *operations.AlterDatabase:
		// collation is fixed when the database is created
		if o.Collation != o.OldDatabase.Collation {
			logger.Debugf("Skipping database collation change %q -> %q", o.OldDatabase.Collation, o.Collation)
		}
	default:
		return unsupported(op, "postgresql")
	}
	return nil
}

func (p *postgres) dropConstraint(schema, table, name string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s;", p.table(schema, table), p.quote(name))
}

func (p *postgres) createIndex(b *builder, op *operations.CreateIndex) {
	concurrently := op.Annotations.Bool(ConcurrentlyAnnotation)

	var sb strings.Builder
	sb.WriteString("CREATE ")
	if op.IsUnique {
		sb.WriteString("UNIQUE ")
	}
	sb.WriteString("INDEX ")
	if concurrently {
		sb.WriteString("CONCURRENTLY ")
	}
	fmt.Fprintf(&sb, "%s ON %s (%s)", p.quote(op.Name), p.table(op.Schema, op.Table), p.columnList(op.Columns))
	if op.Filter != nil {
		sb.WriteString(" WHERE ")
		sb.WriteString(*op.Filter)
	}
	sb.WriteString(";")

	if concurrently {
		b.addSuppressed(sb.String())
		return
	}
	b.add(sb.String())
}

func schemaOrPublic(schema string) string {
	if schema == "" {
		return "public"
	}
	return schema
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
