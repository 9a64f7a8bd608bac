package model

import (
	"fmt"
	"sort"
)

// Annotation is a provider-specific name/value pair
type Annotation struct {
	Name  string      `yaml:"name" json:"name"`
	Value interface{} `yaml:"value" json:"value"`
}

// Annotations is an unordered bag of annotations
type Annotations []Annotation

// Get returns the value stored under name
func (a Annotations) Get(name string) (interface{}, bool) {
	for _, an := range a {
		if an.Name == name {
			return an.Value, true
		}
	}
	return nil, false
}

// Bool reads a boolean annotation, false when absent or not a bool
func (a Annotations) Bool(name string) bool {
	v, ok := a.Get(name)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Clone returns a copy safe to mutate
func (a Annotations) Clone() Annotations {
	if len(a) == 0 {
		return nil
	}
	out := make(Annotations, len(a))
	copy(out, a)
	return out
}

// Equal compares two bags as multisets of (name, value) pairs
func (a Annotations) Equal(b Annotations) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, an := range a {
		counts[an.key()]++
	}
	for _, an := range b {
		k := an.key()
		if counts[k] == 0 {
			return false
		}
		counts[k]--
	}
	return true
}

func (an Annotation) key() string {
	return an.Name + "\x00" + fmt.Sprintf("%T:%v", Normalize(an.Value), Normalize(an.Value))
}

// Sorted returns the annotations ordered by name for stable output
func (a Annotations) Sorted() Annotations {
	out := a.Clone()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
