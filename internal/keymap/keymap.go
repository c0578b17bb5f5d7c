// Package keymap holds the declarative chord to action table for the purchase desk.
// Every shortcut is dispatched from this one table instead of per-field handlers.
package keymap

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Action names a desk command a chord can trigger.
type Action string

const (
	ActionNone            Action = "none"
	ActionSaveOrder       Action = "save_order"
	ActionRemoveRow       Action = "remove_row"
	ActionItemHistory     Action = "item_history"
	ActionFocusItemSearch Action = "focus_item_search"
	ActionAddRow          Action = "add_row"
)

// Scope restricts where a binding is live.
type Scope string

const (
	// ScopeGlobal bindings fire regardless of focus.
	ScopeGlobal Scope = "global"
	// ScopeItemRow bindings fire only while an item row field has focus.
	ScopeItemRow Scope = "item_row"
)

// Binding maps one chord to an action.
type Binding struct {
	Chord  string `yaml:"chord" json:"chord"`
	Action Action `yaml:"action" json:"action"`
	Scope  Scope  `yaml:"scope" json:"scope"`
}

var (
	// ErrUnknownAction indicates a binding names an action the desk does not implement.
	ErrUnknownAction = errors.New("keymap: unknown action")
	// ErrInvalidChord indicates a chord that cannot be normalised.
	ErrInvalidChord = errors.New("keymap: invalid chord")
)

var knownActions = map[Action]struct{}{
	ActionNone:            {},
	ActionSaveOrder:       {},
	ActionRemoveRow:       {},
	ActionItemHistory:     {},
	ActionFocusItemSearch: {},
	ActionAddRow:          {},
}

// Keymap resolves chords to actions.
type Keymap struct {
	bindings map[string]Binding
}

// Defaults returns the stock bindings.
func Defaults() []Binding {
	return []Binding{
		{Chord: "ctrl+c", Action: ActionSaveOrder, Scope: ScopeGlobal},
		{Chord: "ctrl+k", Action: ActionFocusItemSearch, Scope: ScopeGlobal},
		{Chord: "delete", Action: ActionRemoveRow, Scope: ScopeItemRow},
		{Chord: "ctrl+h", Action: ActionItemHistory, Scope: ScopeItemRow},
	}
}

// Default builds a Keymap holding only the stock bindings.
func Default() *Keymap {
	km, err := New(Defaults())
	if err != nil {
		panic(err)
	}
	return km
}

// New builds a Keymap. Later bindings for the same chord replace earlier ones.
func New(bindings []Binding) (*Keymap, error) {
	km := &Keymap{bindings: make(map[string]Binding, len(bindings))}
	for _, b := range bindings {
		if err := km.bind(b); err != nil {
			return nil, err
		}
	}
	return km, nil
}

func (k *Keymap) bind(b Binding) error {
	chord, err := Normalize(b.Chord)
	if err != nil {
		return err
	}
	if _, ok := knownActions[b.Action]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, b.Action)
	}
	if b.Action == ActionNone {
		delete(k.bindings, chord)
		return nil
	}
	switch b.Scope {
	case "":
		b.Scope = ScopeGlobal
	case ScopeGlobal, ScopeItemRow:
	default:
		return fmt.Errorf("keymap: unknown scope %q", b.Scope)
	}
	b.Chord = chord
	k.bindings[chord] = b
	return nil
}

type file struct {
	Bindings []Binding `yaml:"bindings"`
}

// Load reads YAML overrides and applies them on top of the defaults. A binding with
// action "none" removes the chord.
func Load(r io.Reader) (*Keymap, error) {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("keymap: decode: %w", err)
	}
	return New(append(Defaults(), f.Bindings...))
}

// Lookup resolves chord for the current focus. inItemRow reports whether an item row
// field holds focus.
func (k *Keymap) Lookup(chord string, inItemRow bool) (Action, bool) {
	if k == nil {
		return "", false
	}
	norm, err := Normalize(chord)
	if err != nil {
		return "", false
	}
	b, ok := k.bindings[norm]
	if !ok {
		return "", false
	}
	if b.Scope == ScopeItemRow && !inItemRow {
		return "", false
	}
	return b.Action, true
}

// Bindings lists the active bindings ordered by chord.
func (k *Keymap) Bindings() []Binding {
	out := make([]Binding, 0, len(k.bindings))
	for _, b := range k.bindings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Chord < out[j].Chord })
	return out
}

var modifierOrder = []string{"ctrl", "alt", "shift", "meta"}

var aliases = map[string]string{
	"control": "ctrl",
	"cmd":     "meta",
	"command": "meta",
	"option":  "alt",
	"del":     "delete",
	"esc":     "escape",
	"return":  "enter",
}

// Normalize lowercases a chord and orders its modifiers, so "Shift+Ctrl+H" and
// "ctrl+shift+h" resolve to the same binding.
func Normalize(chord string) (string, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(chord)), "+")
	mods := make(map[string]bool, len(parts))
	key := ""
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if alias, ok := aliases[p]; ok {
			p = alias
		}
		if p == "" {
			return "", fmt.Errorf("%w: %q", ErrInvalidChord, chord)
		}
		if isModifier(p) {
			mods[p] = true
			continue
		}
		if key != "" {
			return "", fmt.Errorf("%w: %q has two keys", ErrInvalidChord, chord)
		}
		key = p
	}
	if key == "" {
		return "", fmt.Errorf("%w: %q has no key", ErrInvalidChord, chord)
	}
	var b strings.Builder
	for _, m := range modifierOrder {
		if mods[m] {
			b.WriteString(m)
			b.WriteByte('+')
		}
	}
	b.WriteString(key)
	return b.String(), nil
}

func isModifier(p string) bool {
	for _, m := range modifierOrder {
		if p == m {
			return true
		}
	}
	return false
}
