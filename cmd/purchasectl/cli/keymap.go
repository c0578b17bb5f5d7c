package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/odyssey-erp/purchasedesk/internal/keymap"
)

// KeymapOptions defines the inputs of the keymap check command.
type KeymapOptions struct {
	Input  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// KeymapCheckCommand loads a keymap file over the defaults and prints the effective
// bindings. A nil Input prints the defaults.
func KeymapCheckCommand(opts KeymapOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	km := keymap.Default()
	if opts.Input != nil {
		var err error
		if km, err = keymap.Load(opts.Input); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "keymap check: %v\n", err)
			return 1
		}
	}
	for _, b := range km.Bindings() {
		_, _ = fmt.Fprintf(opts.Stdout, "%-10s %-18s %s\n", b.Chord, b.Action, b.Scope)
	}
	return 0
}
