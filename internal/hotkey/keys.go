// Package hotkey turns raw key state into debounced presses and dispatches
// them to control actions.
package hotkey

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Key identifies a function key.
type Key int

const (
	F1 Key = iota + 1
	F2
	F3
	F4
	F5
	F6
	F7
	F8
	F9
	F10
	F11
	F12
)

func (k Key) String() string {
	if k < F1 || k > F12 {
		return fmt.Sprintf("Key(%d)", int(k))
	}
	return fmt.Sprintf("F%d", int(k))
}

// FromTcell maps a tcell function key to a Key.
func FromTcell(k tcell.Key) (Key, bool) {
	if k < tcell.KeyF1 || k > tcell.KeyF12 {
		return 0, false
	}
	return F1 + Key(k-tcell.KeyF1), true
}
