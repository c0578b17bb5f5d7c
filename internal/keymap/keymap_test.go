package keymap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultBindings(t *testing.T) {
	km := Default()

	action, ok := km.Lookup("Ctrl+C", false)
	require.True(t, ok)
	require.Equal(t, ActionSaveOrder, action)

	action, ok = km.Lookup("ctrl+k", false)
	require.True(t, ok)
	require.Equal(t, ActionFocusItemSearch, action)

	_, ok = km.Lookup("Delete", false)
	require.False(t, ok, "row bindings need row focus")

	action, ok = km.Lookup("Delete", true)
	require.True(t, ok)
	require.Equal(t, ActionRemoveRow, action)

	action, ok = km.Lookup("control+H", true)
	require.True(t, ok)
	require.Equal(t, ActionItemHistory, action)

	_, ok = km.Lookup("ctrl+z", true)
	require.False(t, ok)
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Shift+Ctrl+H": "ctrl+shift+h",
		" del ":        "delete",
		"cmd+s":        "meta+s",
		"ALT+Esc":      "alt+escape",
	}
	for in, want := range cases {
		got, err := Normalize(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	for _, bad := range []string{"", "ctrl+", "ctrl+shift", "a+b"} {
		_, err := Normalize(bad)
		require.ErrorIs(t, err, ErrInvalidChord, bad)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	src := `
bindings:
  - chord: ctrl+s
    action: save_order
  - chord: ctrl+c
    action: none
  - chord: ctrl+enter
    action: add_row
    scope: item_row
`
	km, err := Load(strings.NewReader(src))
	require.NoError(t, err)

	_, ok := km.Lookup("ctrl+c", false)
	require.False(t, ok)

	action, ok := km.Lookup("ctrl+s", false)
	require.True(t, ok)
	require.Equal(t, ActionSaveOrder, action)

	action, ok = km.Lookup("ctrl+enter", true)
	require.True(t, ok)
	require.Equal(t, ActionAddRow, action)

	require.Len(t, km.Bindings(), 5)
}

func TestLoadRejectsUnknownAction(t *testing.T) {
	_, err := Load(strings.NewReader("bindings:\n  - chord: f2\n    action: launch\n"))
	require.ErrorIs(t, err, ErrUnknownAction)

	_, err = Load(strings.NewReader("bindings:\n  - chord: f2\n    action: add_row\n    scope: header\n"))
	require.Error(t, err)
}

func TestLoadEmptyFileKeepsDefaults(t *testing.T) {
	km, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	require.Len(t, km.Bindings(), len(Defaults()))
}
