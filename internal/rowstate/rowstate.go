// Package rowstate keeps transient per-row UI state keyed by a row's current position.
package rowstate

import "sort"

// Map stores values of T keyed by row index. Absent keys read as the default value.
type Map[T any] struct {
	def     T
	entries map[int]T
}

// New constructs an empty Map returning def for absent keys.
func New[T any](def T) *Map[T] {
	return &Map[T]{def: def, entries: make(map[int]T)}
}

// Set stores v at index. Negative indices are ignored.
func (m *Map[T]) Set(index int, v T) {
	if index < 0 {
		return
	}
	m.entries[index] = v
}

// Get returns the value at index or the default.
func (m *Map[T]) Get(index int) T {
	if v, ok := m.entries[index]; ok {
		return v
	}
	return m.def
}

// Has reports whether index holds an explicit value.
func (m *Map[T]) Has(index int) bool {
	_, ok := m.entries[index]
	return ok
}

// Len returns the number of explicit entries.
func (m *Map[T]) Len() int {
	return len(m.entries)
}

// Keys returns the explicit keys in ascending order.
func (m *Map[T]) Keys() []int {
	keys := make([]int, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Reset drops every entry.
func (m *Map[T]) Reset() {
	m.entries = make(map[int]T)
}

// RemoveAndReindex drops the entry at deleted and shifts every later key down by one.
// The result is built from a snapshot so shifted entries never overwrite unmoved ones.
func (m *Map[T]) RemoveAndReindex(deleted int) {
	if deleted < 0 {
		return
	}
	shifted := make(map[int]T, len(m.entries))
	for k, v := range m.entries {
		switch {
		case k < deleted:
			shifted[k] = v
		case k > deleted:
			shifted[k-1] = v
		}
	}
	m.entries = shifted
}

// Rows bundles the three maps tracked for item rows: search text, list visibility
// and highlighted candidate index.
type Rows struct {
	Search    *Map[string]
	Open      *Map[bool]
	Highlight *Map[int]
}

// NewRows returns empty row maps with closed, unhighlighted defaults.
func NewRows() *Rows {
	return &Rows{
		Search:    New(""),
		Open:      New(false),
		Highlight: New(0),
	}
}

// RemoveAndReindex applies the re-indexing to each map independently.
func (r *Rows) RemoveAndReindex(deleted int) {
	r.Search.RemoveAndReindex(deleted)
	r.Open.RemoveAndReindex(deleted)
	r.Highlight.RemoveAndReindex(deleted)
}

// Reset clears all row state.
func (r *Rows) Reset() {
	r.Search.Reset()
	r.Open.Reset()
	r.Highlight.Reset()
}
