package scan

import (
	"fmt"
	"slices"

	"github.com/ChrisMcGann/LipidKey/pkg/fragdb"
)

// Accept is a value filter. The zero value accepts anything, Is accepts
// the listed values and Not accepts everything except them.
type Accept[T comparable] struct {
	values []T
	negate bool
}

// Is accepts any of values.
func Is[T comparable](values ...T) Accept[T] {
	return Accept[T]{values: values}
}

// Not accepts anything but values.
func Not[T comparable](values ...T) Accept[T] {
	return Accept[T]{values: values, negate: true}
}

// Any reports whether the filter is the zero value.
func (a Accept[T]) Any() bool {
	return len(a.values) == 0 && !a.negate
}

// Match reports whether v passes the filter.
func (a Accept[T]) Match(v T) bool {
	if a.Any() {
		return true
	}
	return slices.Contains(a.values, v) != a.negate
}

func (a Accept[T]) String() string {
	switch {
	case a.Any():
		return "*"
	case a.negate:
		return fmt.Sprintf("not %v", a.values)
	case len(a.values) == 1:
		return fmt.Sprint(a.values[0])
	}
	return fmt.Sprint(a.values)
}

// ChainFilter selects chain fragment annotations. Only annotations
// carrying a chain can match.
type ChainFilter struct {
	FragType  Accept[string]
	ChainType Accept[string]
	C         Accept[int]
	U         Accept[int]
}

// FragType is a shortcut for a filter on fragment types only.
func FragType(types ...string) ChainFilter {
	return ChainFilter{FragType: Is(types...)}
}

// Match reports whether the annotation passes every field.
func (f ChainFilter) Match(a fragdb.Annotation) bool {
	return a.HasChain() &&
		f.FragType.Match(a.FragType) &&
		f.ChainType.Match(a.ChainType) &&
		f.C.Match(a.C) &&
		f.U.Match(a.U)
}

// ChainParam selects chains of a combination in
// MatchingChainCombinations.
type ChainParam struct {
	ChainType Accept[string]
	FragType  Accept[string]
	C         Accept[int]
	U         Accept[int]
}
