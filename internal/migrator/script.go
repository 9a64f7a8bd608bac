package migrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/toolsascode/shift/internal/executor"
	"github.com/toolsascode/shift/internal/history"
	"github.com/toolsascode/shift/internal/registry"
	"github.com/toolsascode/shift/internal/sqlgen"
)

// ScriptOptions tune GenerateScript
type ScriptOptions struct {
	// Idempotent guards every command on the history state of its unit
	Idempotent bool `json:"idempotent"`
	// NoTransactions leaves out BEGIN/COMMIT
	NoTransactions bool `json:"no_transactions"`
	// ScriptOnly annotates operations with descriptions
	ScriptOnly bool `json:"script_only"`
}

// GenerateScript renders the SQL that moves a database from one unit to
// another without touching it. from defaults to InitialDatabase and to
// defaults to the latest unit. When from is after to, the script reverts.
func (m *Migrator) GenerateScript(_ context.Context, from, to string, opts ScriptOptions) (string, error) {
	known := m.registry.GetAll()

	if from == "" {
		from = InitialDatabase
	}
	if to == "" {
		to = InitialDatabase
		if len(known) > 0 {
			to = known[len(known)-1].ID
		}
	}
	fromID, err := ResolveTarget(known, from)
	if err != nil {
		return "", err
	}
	toID, err := ResolveTarget(known, to)
	if err != nil {
		return "", err
	}

	fromKey, toKey := strings.ToLower(fromID), strings.ToLower(toID)
	plan := &Plan{}
	if fromKey <= toKey {
		for _, unit := range known {
			if key := strings.ToLower(unit.ID); key > fromKey && key <= toKey {
				plan.Apply = append(plan.Apply, unit)
			}
		}
	} else {
		for i := len(known) - 1; i >= 0; i-- {
			key := strings.ToLower(known[i].ID)
			switch {
			case key > toKey && key <= fromKey:
				plan.Revert = append(plan.Revert, known[i])
			case key == toKey:
				plan.Landing = known[i]
			}
		}
	}
	return m.renderPlan(plan, fromID == InitialDatabase && fromKey <= toKey, opts)
}

// DryRun renders the script Migrate would run against the database's current
// history, without changing anything. Units missing from a gap in the
// history are included the way Migrate would apply them.
func (m *Migrator) DryRun(ctx context.Context, target string, opts ScriptOptions) (string, error) {
	rows, err := m.appliedRows(ctx)
	if err != nil {
		return "", err
	}
	plan, err := BuildPlan(m.registry.GetAll(), appliedIDs(rows), target)
	if err != nil {
		return "", err
	}
	return m.renderPlan(plan, len(rows) == 0 && len(plan.Apply) > 0, opts)
}

// renderPlan writes the plan's reverts, then its applies
func (m *Migrator) renderPlan(plan *Plan, createHistory bool, opts ScriptOptions) (string, error) {
	s := &scriptWriter{history: m.history, opts: opts}
	genOpts := sqlgen.Options{Script: opts.ScriptOnly}

	if createHistory {
		s.sb.WriteString(m.history.GetCreateScript())
		s.sb.WriteString("\n\n")
	}
	for i, unit := range plan.Revert {
		cmds, err := m.generator.Generate(unit.Down, previousModel(plan, i), genOpts)
		if err != nil {
			return "", fmt.Errorf("migration %s: %w", unit.ID, err)
		}
		cmds = append(cmds, executor.Command{Text: m.history.GetDeleteScript(unit.ID)})
		if err := s.writeUnit(unit, cmds, true); err != nil {
			return "", err
		}
	}
	for _, unit := range plan.Apply {
		cmds, err := m.generator.Generate(unit.Up, unit.TargetModel, genOpts)
		if err != nil {
			return "", fmt.Errorf("migration %s: %w", unit.ID, err)
		}
		cmds = append(cmds, executor.Command{Text: m.history.GetInsertScript(history.Row{
			MigrationID:    unit.ID,
			ProductVersion: m.productVersion,
		})})
		if err := s.writeUnit(unit, cmds, false); err != nil {
			return "", err
		}
	}
	return s.sb.String(), nil
}

type scriptWriter struct {
	sb      strings.Builder
	history history.Repository
	opts    ScriptOptions
}

// writeUnit emits one unit, splitting the transaction around suppressed
// commands the way the executor does
func (s *scriptWriter) writeUnit(unit *registry.Migration, cmds []executor.Command, reverting bool) error {
	verb := "Apply"
	if reverting {
		verb = "Revert"
	}
	fmt.Fprintf(&s.sb, "-- %s migration %s\n\n", verb, unit.ID)

	open := false
	for _, cmd := range cmds {
		if !s.opts.NoTransactions {
			if cmd.TransactionSuppressed && open {
				s.sb.WriteString("COMMIT;\n\n")
				open = false
			}
			if !cmd.TransactionSuppressed && !open {
				s.sb.WriteString("BEGIN;\n\n")
				open = true
			}
		}

		text := cmd.Text
		if s.opts.Idempotent {
			guarded, err := s.guard(unit.ID, text, reverting)
			if err != nil {
				return err
			}
			text = guarded
		}
		s.sb.WriteString(text)
		s.sb.WriteString("\n\n")
	}
	if open {
		s.sb.WriteString("COMMIT;\n\n")
	}
	return nil
}

// guard runs text only when the unit is not yet applied, or when it is for
// reverts
func (s *scriptWriter) guard(id, text string, reverting bool) (string, error) {
	var begin string
	var err error
	if reverting {
		begin, err = s.history.GetBeginIfExistsScript(id)
	} else {
		begin, err = s.history.GetBeginIfNotExistsScript(id)
	}
	if err != nil {
		return "", err
	}
	end, err := s.history.GetEndIfScript()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(begin)
	b.WriteString("\n")
	for _, line := range strings.Split(text, "\n") {
		b.WriteString("    ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(end)
	return b.String(), nil
}
