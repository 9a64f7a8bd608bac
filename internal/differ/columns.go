package differ

import (
	"fmt"

	"github.com/toolsascode/shift/internal/model"
	"github.com/toolsascode/shift/internal/operations"
)

func (d *Differ) diffColumns(s, t *model.Table, ctx *diffContext) ([]operations.Operation, error) {
	return diffCollection(
		s.Columns,
		t.Columns,
		func(sc, tc *model.Column) ([]operations.Operation, error) {
			ctx.addColumnMapping(sc, tc)
			if err := model.ValidateColumn(tc); err != nil {
				return nil, fmt.Errorf("column %s: %w", tc.Name, err)
			}
			return diffColumn(sc, tc, t), nil
		},
		func(tc *model.Column) ([]operations.Operation, error) {
			op, err := d.addColumn(tc, t, false)
			if err != nil {
				return nil, err
			}
			return []operations.Operation{op}, nil
		},
		func(sc *model.Column) ([]operations.Operation, error) {
			return []operations.Operation{&operations.DropColumn{
				Schema:   s.Schema,
				Table:    s.Name,
				Name:     sc.Name,
				Computed: sc.IsComputed(),
			}}, nil
		},
		func(sc, tc *model.Column) bool { return sameName(sc.Name, tc.Name) },
		sameMappedProperty,
		func(sc, tc *model.Column) bool {
			return structurallyEqual(sc, tc) && sc.Annotations.Equal(tc.Annotations)
		},
	)
}

func sameMappedProperty(s, t *model.Column) bool {
	for _, sp := range s.Properties {
		for _, tp := range t.Properties {
			if sameName(sp.Entity, tp.Entity) && sameName(sp.Name, tp.Name) {
				return true
			}
		}
	}
	return false
}

// storeType is the effective store type used for change detection
func storeType(c *model.Column) string {
	if c.StoreType != "" {
		return c.StoreType
	}
	return c.Type
}

// structurallyEqual compares everything about a column except its name and
// annotations.
func structurallyEqual(s, t *model.Column) bool {
	return s.Type == t.Type &&
		storeType(s) == storeType(t) &&
		s.IsNullable == t.IsNullable &&
		intPtrEqual(s.Precision, t.Precision) &&
		intPtrEqual(s.Scale, t.Scale) &&
		intPtrEqual(s.MaxLength, t.MaxLength) &&
		boolPtrEqual(s.IsUnicode, t.IsUnicode) &&
		boolPtrEqual(s.IsFixedLength, t.IsFixedLength) &&
		s.Collation == t.Collation &&
		s.Comment == t.Comment &&
		boolPtrEqual(s.IsStored, t.IsStored) &&
		stringPtrEqual(s.ComputedColumnSQL, t.ComputedColumnSQL) &&
		stringPtrEqual(s.DefaultValueSQL, t.DefaultValueSQL) &&
		model.ValuesEqual(s.DefaultValue, t.DefaultValue) &&
		s.IsConcurrencyToken == t.IsConcurrencyToken &&
		s.ValueGenerated == t.ValueGenerated
}

func diffColumn(s, t *model.Column, table *model.Table) []operations.Operation {
	var ops []operations.Operation
	if s.Name != t.Name {
		ops = append(ops, &operations.RenameColumn{
			Schema:  table.Schema,
			Table:   table.Name,
			Name:    s.Name,
			NewName: t.Name,
		})
	}

	if structurallyEqual(s, t) && s.Annotations.Equal(t.Annotations) {
		return ops
	}

	op := &operations.AlterColumn{
		Schema:              table.Schema,
		Table:               table.Name,
		Name:                t.Name,
		ColumnDefinition:    columnDefinition(t, true),
		IsDestructiveChange: (s.IsNullable && !t.IsNullable) || storeType(s) != storeType(t),
		OldColumn: operations.ColumnMirror{
			ColumnDefinition: columnDefinition(s, true),
			Annotations:      s.Annotations.Clone(),
		},
	}
	op.AddAnnotations(t.Annotations.Clone())
	return append(ops, op)
}

// addColumn builds an AddColumn. Columns added to an existing table (not
// inline in a CreateTable) that are required and have no default get the
// type's zero value so existing rows stay valid.
func (d *Differ) addColumn(c *model.Column, table *model.Table, inline bool) (*operations.AddColumn, error) {
	if err := model.ValidateColumn(c); err != nil {
		return nil, fmt.Errorf("column %s: %w", c.Name, err)
	}
	op := &operations.AddColumn{
		Schema:           table.Schema,
		Table:            table.Name,
		Name:             c.Name,
		ColumnDefinition: columnDefinition(c, inline),
	}
	op.AddAnnotations(c.Annotations.Clone())
	return op, nil
}

func columnDefinition(c *model.Column, inline bool) operations.ColumnDefinition {
	def := operations.ColumnDefinition{
		Type:              c.Type,
		StoreType:         c.StoreType,
		IsNullable:        c.IsNullable,
		Precision:         c.Precision,
		Scale:             c.Scale,
		MaxLength:         c.MaxLength,
		IsUnicode:         c.IsUnicode,
		IsFixedLength:     c.IsFixedLength,
		IsRowVersion:      c.Type == model.TypeBytes && c.IsConcurrencyToken && c.ValueGenerated == model.ValueGeneratedOnAddOrUpdate,
		Collation:         c.Collation,
		Comment:           c.Comment,
		DefaultValue:      c.DefaultValue,
		DefaultValueSQL:   c.DefaultValueSQL,
		ComputedColumnSQL: c.ComputedColumnSQL,
		IsStored:          c.IsStored,
	}
	if def.DefaultValue == nil && def.DefaultValueSQL == nil && def.ComputedColumnSQL == nil &&
		!inline && !c.IsNullable {
		def.DefaultValue = model.ZeroValue(c.Type)
	}
	return def
}
