package differ

import (
	"github.com/toolsascode/shift/internal/model"
	"github.com/toolsascode/shift/internal/operations"
)

func (d *Differ) diffSequences(ctx *diffContext) ([]operations.Operation, error) {
	return diffCollection(
		ctx.source.Sequences,
		ctx.target.Sequences,
		func(s, t *model.Sequence) ([]operations.Operation, error) {
			return diffSequence(s, t), nil
		},
		func(t *model.Sequence) ([]operations.Operation, error) {
			op := &operations.CreateSequence{
				Schema:             t.Schema,
				Name:               t.Name,
				Type:               t.Type,
				StartValue:         t.StartValue,
				SequenceDefinition: sequenceDefinition(t),
			}
			op.AddAnnotations(t.Annotations.Clone())
			return []operations.Operation{op}, nil
		},
		func(s *model.Sequence) ([]operations.Operation, error) {
			return []operations.Operation{&operations.DropSequence{Schema: s.Schema, Name: s.Name}}, nil
		},
		func(s, t *model.Sequence) bool {
			return sameName(s.Schema, t.Schema) && sameName(s.Name, t.Name) && s.Type == t.Type
		},
		func(s, t *model.Sequence) bool {
			return sameName(s.Name, t.Name) && s.Type == t.Type
		},
	)
}

func diffSequence(s, t *model.Sequence) []operations.Operation {
	var ops []operations.Operation

	schemaChanged := s.Schema != t.Schema
	renamed := s.Name != t.Name
	if schemaChanged || renamed {
		op := &operations.RenameSequence{Schema: s.Schema, Name: s.Name}
		if schemaChanged {
			op.NewSchema = strPtr(t.Schema)
		}
		if renamed {
			op.NewName = strPtr(t.Name)
		}
		ops = append(ops, op)
	}

	if s.StartValue != t.StartValue {
		ops = append(ops, &operations.RestartSequence{
			Schema:     t.Schema,
			Name:       t.Name,
			StartValue: t.StartValue,
		})
	}

	if s.IncrementBy != t.IncrementBy ||
		!int64PtrEqual(s.MinValue, t.MinValue) ||
		!int64PtrEqual(s.MaxValue, t.MaxValue) ||
		s.IsCyclic != t.IsCyclic ||
		s.IsCached != t.IsCached ||
		!intPtrEqual(s.CacheSize, t.CacheSize) ||
		!s.Annotations.Equal(t.Annotations) {
		op := &operations.AlterSequence{
			Schema:             t.Schema,
			Name:               t.Name,
			SequenceDefinition: sequenceDefinition(t),
			OldSequence: operations.SequenceMirror{
				SequenceDefinition: sequenceDefinition(s),
				Annotations:        s.Annotations.Clone(),
			},
		}
		op.AddAnnotations(t.Annotations.Clone())
		ops = append(ops, op)
	}
	return ops
}

func sequenceDefinition(s *model.Sequence) operations.SequenceDefinition {
	return operations.SequenceDefinition{
		IncrementBy: s.IncrementBy,
		MinValue:    s.MinValue,
		MaxValue:    s.MaxValue,
		IsCyclic:    s.IsCyclic,
		IsCached:    s.IsCached,
		CacheSize:   s.CacheSize,
	}
}
