// Package overlay is the terminal debug view of the control loop. It draws
// the latest published snapshot (boxes, trails, aim point, FOV ring,
// crosshair, heatmap and a stats panel) and forwards function keys to the
// hotkey layer.
package overlay

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/Memati8383/AI-Triggerbot/internal/config"
	"github.com/Memati8383/AI-Triggerbot/internal/engine"
	"github.com/Memati8383/AI-Triggerbot/internal/monitoring"
	"github.com/Memati8383/AI-Triggerbot/internal/tracking"
)

// DefaultInterval is the redraw period of Run.
const DefaultInterval = 33 * time.Millisecond

// Source supplies the data an overlay frame shows.
type Source interface {
	Snapshot() engine.Snapshot
	Stats() engine.Stats
	Tracks() []tracking.Track
	Config() *config.Config
	HideWindow() error
}

// KeySink receives key events the overlay does not consume itself.
type KeySink interface {
	HandleEvent(tcell.Event) bool
}

// EngineSource adapts an engine to Source.
type EngineSource struct {
	Engine *engine.Engine
}

func (s EngineSource) Snapshot() engine.Snapshot { return s.Engine.Session().Snapshot() }
func (s EngineSource) Stats() engine.Stats       { return s.Engine.Stats() }
func (s EngineSource) Tracks() []tracking.Track  { return s.Engine.Registry().Tracks() }
func (s EngineSource) Config() *config.Config    { return s.Engine.Store().Snapshot() }
func (s EngineSource) HideWindow() error         { return s.Engine.Store().Set("show_window", false) }

// Overlay owns the redraw loop on a tcell screen. The caller initialises
// the screen and calls Fini after Run returns.
type Overlay struct {
	screen   tcell.Screen
	src      Source
	heat     HeatSource
	keys     KeySink
	Interval time.Duration
}

// New creates an overlay. heat and keys may be nil.
func New(screen tcell.Screen, src Source, heat HeatSource, keys KeySink) *Overlay {
	return &Overlay{screen: screen, src: src, heat: heat, keys: keys, Interval: DefaultInterval}
}

// Scene collects the current data from the source.
func (o *Overlay) Scene() Scene {
	return Scene{
		Snapshot: o.src.Snapshot(),
		Tracks:   o.src.Tracks(),
		Stats:    o.src.Stats(),
		Config:   o.src.Config(),
		Heat:     o.heat,
	}
}

// Draw renders one frame and shows it.
func (o *Overlay) Draw() {
	o.screen.Clear()
	w, h := o.screen.Size()
	Render(o.screen, w, h, o.Scene())
	o.screen.Show()
}

// HandleEvent processes one terminal event and reports whether the user
// asked to quit. Esc and q hide the overlay while the loop keeps running;
// Ctrl-C quits.
func (o *Overlay) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyCtrlC:
			return true
		case tcell.KeyEscape:
			o.hide()
			return false
		case tcell.KeyRune:
			if ev.Rune() == 'q' || ev.Rune() == 'Q' {
				o.hide()
				return false
			}
		}
		if o.keys != nil {
			o.keys.HandleEvent(ev)
		}
	case *tcell.EventResize:
		o.screen.Sync()
	}
	return false
}

func (o *Overlay) hide() {
	if err := o.src.HideWindow(); err != nil {
		monitoring.Logf("[overlay] hide window: %v", err)
	}
}

// Run redraws every Interval until ctx is done or the user quits. It returns
// nil on quit and ctx.Err() on cancellation.
func (o *Overlay) Run(ctx context.Context) error {
	interval := o.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	done := make(chan struct{})
	defer close(done)
	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := o.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	o.Draw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if o.HandleEvent(ev) {
				return nil
			}
		case <-ticker.C:
			o.Draw()
		}
	}
}
