// Package searchselect implements the keyboard driven incremental search used to pick a
// supplier or a catalog item. The engine is stateless: every transition operates on a
// caller-owned State so one Select can serve many rows.
package searchselect

import (
	"strings"
	"time"
)

// BlurGrace is how long a lost focus waits before closing the list, so a pointer
// selection that fires blur first still lands.
const BlurGrace = 100 * time.Millisecond

// Key is a navigation key understood by the state machine.
type Key string

const (
	KeyArrowDown Key = "ArrowDown"
	KeyArrowUp   Key = "ArrowUp"
	KeyEnter     Key = "Enter"
	KeyTab       Key = "Tab"
	KeyEscape    Key = "Escape"
)

// State is the transient state of one search input.
type State struct {
	Text        string `json:"text"`
	Open        bool   `json:"open"`
	Highlighted int    `json:"highlighted"`
}

// Options configure how candidates are displayed and matched.
type Options[C any] struct {
	// Name is the display key; exact matches on it commit while typing.
	Name func(C) string
	// Keys returns secondary match keys such as a SKU.
	Keys func(C) []string
	// ClearOnMismatch clears the committed selection whenever the typed text
	// stops matching a candidate exactly. Otherwise only empty text clears it.
	ClearOnMismatch bool
}

// Outcome reports what a transition asks the owner to do.
type Outcome[C any] struct {
	// Commit is the candidate to record as the selection.
	Commit *C
	// Clear asks the owner to drop the committed selection.
	Clear bool
	// Advance asks the owner to move focus to the next logical field.
	Advance bool
	// Handled is false when the event was ignored.
	Handled bool
}

// View is a read-only rendering of a State.
type View[C any] struct {
	Text        string `json:"text"`
	Open        bool   `json:"open"`
	Highlighted int    `json:"highlighted"`
	Candidates  []C    `json:"candidates"`
}

// Select filters and commits candidates of type C.
type Select[C any] struct {
	opts       Options[C]
	candidates []C
}

// New constructs a Select. Name is required.
func New[C any](opts Options[C]) *Select[C] {
	if opts.Name == nil {
		panic("searchselect: Name option required")
	}
	return &Select[C]{opts: opts}
}

// SetCandidates replaces the candidate set.
func (s *Select[C]) SetCandidates(candidates []C) {
	s.candidates = append([]C(nil), candidates...)
}

// Candidates returns the full candidate set.
func (s *Select[C]) Candidates() []C {
	return s.candidates
}

// Filter returns candidates whose name or secondary keys contain text, ignoring case.
// Empty text matches everything.
func (s *Select[C]) Filter(text string) []C {
	needle := strings.ToLower(text)
	out := make([]C, 0, len(s.candidates))
	for _, c := range s.candidates {
		if s.matches(c, needle) {
			out = append(out, c)
		}
	}
	return out
}

func (s *Select[C]) matches(c C, needle string) bool {
	if needle == "" || strings.Contains(strings.ToLower(s.opts.Name(c)), needle) {
		return true
	}
	if s.opts.Keys == nil {
		return false
	}
	for _, key := range s.opts.Keys(c) {
		if key != "" && strings.Contains(strings.ToLower(key), needle) {
			return true
		}
	}
	return false
}

// Query returns the effective search text: the typed text, or the committed
// candidate's name when nothing is being edited.
func (s *Select[C]) Query(st State, committedName string) string {
	if st.Text != "" {
		return st.Text
	}
	return committedName
}

// Type records new input text, opens the list and resets the highlight.
func (s *Select[C]) Type(st *State, text string) Outcome[C] {
	st.Text = text
	st.Open = true
	st.Highlighted = 0
	if strings.TrimSpace(text) == "" {
		return Outcome[C]{Clear: true, Handled: true}
	}
	for i := range s.candidates {
		if strings.EqualFold(s.opts.Name(s.candidates[i]), text) {
			c := s.candidates[i]
			return Outcome[C]{Commit: &c, Handled: true}
		}
	}
	if s.opts.ClearOnMismatch {
		return Outcome[C]{Clear: true, Handled: true}
	}
	return Outcome[C]{Handled: true}
}

// Focus opens the list.
func (s *Select[C]) Focus(st *State, committedName string) {
	st.Open = true
	st.Highlighted = clamp(st.Highlighted, len(s.Filter(s.Query(*st, committedName))))
}

// Close hides the list without committing. Used once the blur grace period elapses.
func (s *Select[C]) Close(st *State) {
	st.Open = false
}

// Key applies a navigation key.
func (s *Select[C]) Key(st *State, key Key, committedName string) Outcome[C] {
	if !st.Open {
		return Outcome[C]{}
	}
	if key == KeyEscape {
		st.Open = false
		return Outcome[C]{Handled: true}
	}
	list := s.Filter(s.Query(*st, committedName))
	n := len(list)
	if n == 0 {
		return Outcome[C]{}
	}
	hl := clamp(st.Highlighted, n)
	switch key {
	case KeyArrowDown:
		st.Highlighted = (hl + 1) % n
		return Outcome[C]{Handled: true}
	case KeyArrowUp:
		st.Highlighted = (hl - 1 + n) % n
		return Outcome[C]{Handled: true}
	case KeyEnter, KeyTab:
		out := s.commit(st, list[hl])
		out.Advance = true
		return out
	}
	return Outcome[C]{}
}

// Pick commits the filtered candidate at index, as a pointer selection does.
func (s *Select[C]) Pick(st *State, index int, committedName string) Outcome[C] {
	list := s.Filter(s.Query(*st, committedName))
	if index < 0 || index >= len(list) {
		return Outcome[C]{}
	}
	return s.commit(st, list[index])
}

// View renders st with its filtered candidates.
func (s *Select[C]) View(st State, committedName string) View[C] {
	list := s.Filter(s.Query(st, committedName))
	return View[C]{
		Text:        s.Query(st, committedName),
		Open:        st.Open,
		Highlighted: clamp(st.Highlighted, len(list)),
		Candidates:  list,
	}
}

func (s *Select[C]) commit(st *State, c C) Outcome[C] {
	st.Text = s.opts.Name(c)
	st.Open = false
	st.Highlighted = 0
	return Outcome[C]{Commit: &c, Handled: true}
}

func clamp(i, n int) int {
	if n == 0 || i < 0 || i >= n {
		return 0
	}
	return i
}
