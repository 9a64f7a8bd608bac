// Package sqlgen turns sorted operation lists into executable SQL commands
// for PostgreSQL and SQLite. Operations are emitted in the order given.
package sqlgen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/toolsascode/shift/internal/executor"
	"github.com/toolsascode/shift/internal/model"
	"github.com/toolsascode/shift/internal/operations"
)

// ErrUnsupportedOperation is returned when a dialect cannot express an
// operation
var ErrUnsupportedOperation = errors.New("operation not supported by dialect")

// Options tune generation
type Options struct {
	// Script annotates each operation's first command with a description,
	// for scripts meant to be read by people
	Script bool
}

// Generator produces SQL commands for a list of operations. m is the model
// the operations lead to and may be nil.
type Generator interface {
	Generate(ops []operations.Operation, m *model.Model, opts Options) ([]executor.Command, error)
}

// dialect is implemented once per engine
type dialect interface {
	quote(identifier string) string
	table(schema, name string) string
	literal(v interface{}) (string, error)
	operation(b *builder, op operations.Operation) error
}

type builder struct {
	commands []executor.Command
}

func (b *builder) add(text string) {
	b.commands = append(b.commands, executor.Command{Text: text})
}

func (b *builder) addSuppressed(text string) {
	b.commands = append(b.commands, executor.Command{Text: text, TransactionSuppressed: true})
}

type generator struct {
	d dialect
}

// New returns the generator for a backend name ("postgresql", "postgres" or
// "sqlite")
func New(backend string) (Generator, error) {
	switch strings.ToLower(backend) {
	case "postgresql", "postgres", "pgx":
		return NewPostgres(), nil
	case "sqlite", "sqlite3":
		return NewSQLite(), nil
	default:
		return nil, fmt.Errorf("no SQL generator for backend %q", backend)
	}
}

func (g *generator) Generate(ops []operations.Operation, _ *model.Model, opts Options) ([]executor.Command, error) {
	b := &builder{}
	for i, op := range ops {
		start := len(b.commands)
		var err error
		switch o := op.(type) {
		case *operations.InsertData:
			err = g.insert(b, o)
		case *operations.UpdateData:
			err = g.update(b, o)
		case *operations.DeleteData:
			err = g.delete(b, o)
		case *operations.SQL:
			if strings.TrimSpace(o.SQL) == "" {
				err = model.ErrEmptySQL
				break
			}
			b.commands = append(b.commands, executor.Command{Text: terminate(o.SQL), TransactionSuppressed: o.SuppressTransaction})
		default:
			err = g.d.operation(b, op)
		}
		if err != nil {
			return nil, fmt.Errorf("operation %d (%s): %w", i, op.Kind(), err)
		}
		if opts.Script && len(b.commands) > start {
			b.commands[start].Text = "-- " + operations.Describe(op) + "\n" + b.commands[start].Text
		}
	}
	return b.commands, nil
}

func terminate(sql string) string {
	sql = strings.TrimSpace(sql)
	if strings.HasSuffix(sql, ";") {
		return sql
	}
	return sql + ";"
}

func (g *generator) columnList(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = g.d.quote(c)
	}
	return strings.Join(quoted, ", ")
}

func (g *generator) insert(b *builder, op *operations.InsertData) error {
	if len(op.Values) == 0 {
		return nil
	}
	rows := make([]string, 0, len(op.Values))
	for _, values := range op.Values {
		if len(values) != len(op.Columns) {
			return fmt.Errorf("insert into %s: %d values for %d columns", op.Table, len(values), len(op.Columns))
		}
		lits := make([]string, len(values))
		for i, v := range values {
			lit, err := g.d.literal(v)
			if err != nil {
				return err
			}
			lits[i] = lit
		}
		rows = append(rows, "("+strings.Join(lits, ", ")+")")
	}
	b.add(fmt.Sprintf("INSERT INTO %s (%s)\nVALUES %s;", g.d.table(op.Schema, op.Table), g.columnList(op.Columns), strings.Join(rows, ",\n")))
	return nil
}

func (g *generator) where(columns []string, values []interface{}) (string, error) {
	if len(columns) != len(values) {
		return "", fmt.Errorf("%d key values for %d key columns", len(values), len(columns))
	}
	parts := make([]string, len(columns))
	for i, c := range columns {
		if values[i] == nil {
			parts[i] = g.d.quote(c) + " IS NULL"
			continue
		}
		lit, err := g.d.literal(values[i])
		if err != nil {
			return "", err
		}
		parts[i] = g.d.quote(c) + " = " + lit
	}
	return strings.Join(parts, " AND "), nil
}

func (g *generator) update(b *builder, op *operations.UpdateData) error {
	if len(op.KeyValues) != len(op.Values) {
		return fmt.Errorf("update %s: %d key rows for %d value rows", op.Table, len(op.KeyValues), len(op.Values))
	}
	for r, values := range op.Values {
		if len(values) != len(op.Columns) {
			return fmt.Errorf("update %s: %d values for %d columns", op.Table, len(values), len(op.Columns))
		}
		sets := make([]string, len(values))
		for i, v := range values {
			lit, err := g.d.literal(v)
			if err != nil {
				return err
			}
			sets[i] = g.d.quote(op.Columns[i]) + " = " + lit
		}
		where, err := g.where(op.KeyColumns, op.KeyValues[r])
		if err != nil {
			return err
		}
		b.add(fmt.Sprintf("UPDATE %s SET %s\nWHERE %s;", g.d.table(op.Schema, op.Table), strings.Join(sets, ", "), where))
	}
	return nil
}

func (g *generator) delete(b *builder, op *operations.DeleteData) error {
	for _, key := range op.KeyValues {
		where, err := g.where(op.KeyColumns, key)
		if err != nil {
			return err
		}
		b.add(fmt.Sprintf("DELETE FROM %s\nWHERE %s;", g.d.table(op.Schema, op.Table), where))
	}
	return nil
}

func unsupported(op operations.Operation, dialect string) error {
	return fmt.Errorf("%w: %s on %s", ErrUnsupportedOperation, op.Kind(), dialect)
}

func referentialAction(a model.ReferentialAction) string {
	switch a {
	case model.Restrict:
		return "RESTRICT"
	case model.Cascade:
		return "CASCADE"
	case model.SetNull:
		return "SET NULL"
	case model.SetDefault:
		return "SET DEFAULT"
	default:
		return "NO ACTION"
	}
}
