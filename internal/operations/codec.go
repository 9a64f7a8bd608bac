package operations

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// List is an ordered operation list that round-trips through YAML. Each
// element is written as a mapping whose "kind" key selects the variant.
type List []Operation

// MarshalYAML implements yaml.Marshaler
func (l List) MarshalYAML() (interface{}, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for i, op := range l {
		n, err := encodeOperation(op)
		if err != nil {
			return nil, fmt.Errorf("operation %d (%s): %w", i, op.Kind(), err)
		}
		seq.Content = append(seq.Content, n)
	}
	return seq, nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (l *List) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: operation list must be a sequence", value.Line)
	}
	ops := make(List, 0, len(value.Content))
	for _, item := range value.Content {
		op, err := decodeOperation(item)
		if err != nil {
			return err
		}
		ops = append(ops, op)
	}
	*l = ops
	return nil
}

func encodeOperation(op Operation) (*yaml.Node, error) {
	var n yaml.Node
	if err := n.Encode(op); err != nil {
		return nil, err
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected mapping, got node kind %d", n.Kind)
	}
	kind := []*yaml.Node{
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: "kind"},
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(op.Kind())},
	}
	n.Content = append(kind, n.Content...)
	return &n, nil
}

func decodeOperation(n *yaml.Node) (Operation, error) {
	var head struct {
		Kind Kind `yaml:"kind"`
	}
	if err := n.Decode(&head); err != nil {
		return nil, fmt.Errorf("line %d: %w", n.Line, err)
	}
	if head.Kind == "" {
		return nil, fmt.Errorf("line %d: operation without kind", n.Line)
	}
	op, ok := New(head.Kind)
	if !ok {
		return nil, fmt.Errorf("line %d: unknown operation kind %q", n.Line, head.Kind)
	}
	if err := n.Decode(op); err != nil {
		return nil, fmt.Errorf("line %d: %s: %w", n.Line, head.Kind, err)
	}
	return op, nil
}

// Marshal encodes ops as a YAML document
func Marshal(ops []Operation) ([]byte, error) {
	return yaml.Marshal(List(ops))
}

// Unmarshal decodes a YAML operation list
func Unmarshal(data []byte) ([]Operation, error) {
	var l List
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, err
	}
	return l, nil
}
