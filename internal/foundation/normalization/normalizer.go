// Package normalization maps loosely formatted strings from config files and
// client payloads onto typed enum values.
package normalization

import (
	"maps"
	"slices"
	"strings"

	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
)

// Normalizer resolves aliases onto values of T. Lookups ignore case and
// surrounding whitespace, and treat '-' and '_' as the same character.
type Normalizer[T comparable] struct {
	aliases  map[string]T
	fallback T
	options  []string
}

func NewNormalizer[T comparable](aliases map[string]T, fallback T) *Normalizer[T] {
	n := &Normalizer[T]{aliases: make(map[string]T, len(aliases)), fallback: fallback}
	for alias, v := range aliases {
		n.aliases[fold(alias)] = v
	}
	n.options = slices.Sorted(maps.Keys(n.aliases))
	return n
}

// Lookup reports the value registered for raw.
func (n *Normalizer[T]) Lookup(raw string) (T, bool) {
	v, ok := n.aliases[fold(raw)]
	return v, ok
}

// Normalize returns the fallback for unknown input.
func (n *Normalizer[T]) Normalize(raw string) T {
	if v, ok := n.Lookup(raw); ok {
		return v
	}
	return n.fallback
}

// Parse is the strict variant of Normalize. Unknown input yields a
// validation error listing the accepted spellings.
func (n *Normalizer[T]) Parse(raw string) (T, error) {
	if v, ok := n.Lookup(raw); ok {
		return v, nil
	}
	var zero T
	return zero, errors.ValidationError("unrecognized value").
		WithContext("value", raw).
		WithContext("options", strings.Join(n.options, ", ")).
		Build()
}

// Options lists the accepted spellings in sorted order.
func (n *Normalizer[T]) Options() []string {
	return slices.Clone(n.options)
}

func fold(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
}
