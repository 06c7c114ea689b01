package hotkey

import (
	"github.com/Memati8383/AI-Triggerbot/internal/monitoring"
	"github.com/Memati8383/AI-Triggerbot/internal/targeting"
)

// ConfidenceStep is the F3/F4 adjustment.
const ConfidenceStep = 0.05

// Controller is the set of operations hotkeys drive.
type Controller interface {
	Toggle() bool
	Panic()
	AdjustConfidence(delta float64) (float64, error)
	CyclePriority() (targeting.Mode, error)
	CycleProfile() (string, error)
	ToggleSetting(key string) (bool, error)
	SaveConfig() error
	LoadConfig() error
}

// Binding attaches an action to a key.
type Binding struct {
	Key    Key
	Name   string
	Action func() error
}

// DefaultBindings returns the F2–F12 layout.
func DefaultBindings(c Controller) []Binding {
	toggle := func(key string) func() error {
		return func() error {
			_, err := c.ToggleSetting(key)
			return err
		}
	}
	return []Binding{
		{F2, "toggle", func() error { c.Toggle(); return nil }},
		{F3, "confidence up", func() error { _, err := c.AdjustConfidence(ConfidenceStep); return err }},
		{F4, "confidence down", func() error { _, err := c.AdjustConfidence(-ConfidenceStep); return err }},
		{F5, "cycle priority", func() error { _, err := c.CyclePriority(); return err }},
		{F6, "save config", c.SaveConfig},
		{F7, "load config", c.LoadConfig},
		{F8, "panic", func() error { c.Panic(); return nil }},
		{F9, "toggle window", toggle("show_window")},
		{F10, "cycle profile", func() error { _, err := c.CycleProfile(); return err }},
		{F11, "toggle heatmap", toggle("show_heatmap")},
		{F12, "toggle sound", toggle("sound_alerts")},
	}
}

// Dispatcher polls a source and runs the bindings of newly pressed keys in
// binding order.
type Dispatcher struct {
	src      Source
	debounce *Debouncer
	bindings []Binding
}

// NewDispatcher creates a dispatcher over src.
func NewDispatcher(src Source, bindings []Binding) *Dispatcher {
	return &Dispatcher{
		src:      src,
		debounce: NewDebouncer(src),
		bindings: bindings,
	}
}

// Poll samples the source once and fires actions. Action errors are logged.
func (d *Dispatcher) Poll() {
	if s, ok := d.src.(Sampler); ok {
		s.Sample()
	}
	for _, b := range d.bindings {
		if !d.debounce.Pressed(b.Key) {
			continue
		}
		monitoring.Logf("[hotkey] %s: %s", b.Key, b.Name)
		if err := b.Action(); err != nil {
			monitoring.Logf("[hotkey] %s failed: %v", b.Name, err)
		}
	}
}
