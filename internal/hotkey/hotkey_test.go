package hotkey

import (
	"errors"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"

	"github.com/Memati8383/AI-Triggerbot/internal/targeting"
	"github.com/Memati8383/AI-Triggerbot/internal/timeutil"
)

func TestKeyNames(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "F2", F2.String())
	assert.Equal(t, "F12", F12.String())
	assert.Equal(t, "Key(0)", Key(0).String())

	k, ok := FromTcell(tcell.KeyF8)
	assert.True(t, ok)
	assert.Equal(t, F8, k)
	_, ok = FromTcell(tcell.KeyEnter)
	assert.False(t, ok)
}

func TestDebouncer_FiresOncePerPress(t *testing.T) {
	t.Parallel()
	src := NewStaticSource()
	d := NewDebouncer(src)

	assert.False(t, d.Pressed(F2))

	src.Press(F2)
	assert.True(t, d.Pressed(F2))
	assert.False(t, d.Pressed(F2), "held key must not re-fire")
	assert.False(t, d.Pressed(F2))

	src.Release(F2)
	assert.False(t, d.Pressed(F2))

	src.Press(F2)
	assert.True(t, d.Pressed(F2))
}

func newTestTerminalSource() (*TerminalSource, *timeutil.MockClock) {
	clock := timeutil.NewMockClock(time.Unix(1700000000, 0))
	return NewTerminalSource(clock), clock
}

func TestTerminalSource_TapReleasesAfterRepeatDelay(t *testing.T) {
	t.Parallel()
	src, clock := newTestTerminalSource()

	assert.True(t, src.HandleEvent(tcell.NewEventKey(tcell.KeyF5, 0, tcell.ModNone)))
	assert.False(t, src.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)))
	assert.False(t, src.HandleEvent(tcell.NewEventResize(80, 24)))

	// Not visible until sampled.
	assert.False(t, src.IsDown(F5))
	src.Sample()
	assert.True(t, src.IsDown(F5))

	clock.Advance(DefaultRepeatDelay)
	src.Sample()
	assert.True(t, src.IsDown(F5), "still inside the initial repeat delay")

	clock.Advance(time.Millisecond)
	src.Sample()
	assert.False(t, src.IsDown(F5))
}

func TestTerminalSource_HeldKeyDoesNotRefire(t *testing.T) {
	t.Parallel()
	src, clock := newTestTerminalSource()
	d := NewDebouncer(src)
	press := func() { src.HandleEvent(tcell.NewEventKey(tcell.KeyF2, 0, tcell.ModNone)) }
	tick := time.Second / 120

	fired := 0
	poll := func() {
		src.Sample()
		if d.Pressed(F2) {
			fired++
		}
		clock.Advance(tick)
	}

	// Held: the first event, a 500 ms pause, then a repeat every 33 ms for a
	// second, polled at 120 Hz throughout.
	press()
	for clock.Now().Sub(time.Unix(1700000000, 0)) < 500*time.Millisecond {
		poll()
	}
	for i := 0; i < 30; i++ {
		press()
		for j := 0; j < 4; j++ {
			poll()
		}
	}
	assert.Equal(t, 1, fired)

	// Released: repeats stop, the key reads up, a new press fires again.
	for i := 0; i < 20; i++ {
		poll()
	}
	assert.False(t, src.IsDown(F2))
	press()
	poll()
	assert.Equal(t, 2, fired)
}

func TestTerminalSource_WithSimulationScreen(t *testing.T) {
	t.Parallel()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init simulation screen: %v", err)
	}
	defer screen.Fini()

	src, _ := newTestTerminalSource()
	screen.InjectKey(tcell.KeyF3, 0, tcell.ModNone)
	ev := screen.PollEvent()
	assert.True(t, src.HandleEvent(ev))
	src.Sample()
	assert.True(t, src.IsDown(F3))
}

// ----------------------------------------------------------------------------
// Dispatcher
// ----------------------------------------------------------------------------

type fakeController struct {
	calls   []string
	saveErr error
}

func (f *fakeController) Toggle() bool { f.calls = append(f.calls, "toggle"); return true }
func (f *fakeController) Panic()       { f.calls = append(f.calls, "panic") }
func (f *fakeController) AdjustConfidence(delta float64) (float64, error) {
	if delta > 0 {
		f.calls = append(f.calls, "conf+")
	} else {
		f.calls = append(f.calls, "conf-")
	}
	return 0.5, nil
}
func (f *fakeController) CyclePriority() (targeting.Mode, error) {
	f.calls = append(f.calls, "priority")
	return targeting.Largest, nil
}
func (f *fakeController) CycleProfile() (string, error) {
	f.calls = append(f.calls, "profile")
	return "sniper", nil
}
func (f *fakeController) ToggleSetting(key string) (bool, error) {
	f.calls = append(f.calls, "toggle:"+key)
	return true, nil
}
func (f *fakeController) SaveConfig() error { f.calls = append(f.calls, "save"); return f.saveErr }
func (f *fakeController) LoadConfig() error { f.calls = append(f.calls, "load"); return nil }

func TestDefaultBindings_Layout(t *testing.T) {
	t.Parallel()
	ctrl := &fakeController{}
	src := NewStaticSource()
	d := NewDispatcher(src, DefaultBindings(ctrl))

	for k := F2; k <= F12; k++ {
		src.Press(k)
	}
	d.Poll()

	want := []string{
		"toggle", "conf+", "conf-", "priority", "save", "load", "panic",
		"toggle:show_window", "profile", "toggle:show_heatmap", "toggle:sound_alerts",
	}
	assert.Equal(t, want, ctrl.calls)
}

func TestDispatcher_DebouncedPolls(t *testing.T) {
	t.Parallel()
	ctrl := &fakeController{}
	src := NewStaticSource()
	d := NewDispatcher(src, DefaultBindings(ctrl))

	src.Press(F2)
	d.Poll()
	d.Poll()
	d.Poll()
	assert.Equal(t, []string{"toggle"}, ctrl.calls)

	src.Release(F2)
	d.Poll()
	src.Press(F2)
	d.Poll()
	assert.Equal(t, []string{"toggle", "toggle"}, ctrl.calls)

	// F1 is unbound.
	src.Press(F1)
	d.Poll()
	assert.Len(t, ctrl.calls, 2)
}

func TestDispatcher_TerminalSourceSampledPerPoll(t *testing.T) {
	t.Parallel()
	ctrl := &fakeController{}
	src, clock := newTestTerminalSource()
	d := NewDispatcher(src, DefaultBindings(ctrl))

	src.HandleEvent(tcell.NewEventKey(tcell.KeyF10, 0, tcell.ModNone))
	d.Poll()
	d.Poll()
	clock.Advance(DefaultRepeatDelay + time.Millisecond)
	d.Poll()
	src.HandleEvent(tcell.NewEventKey(tcell.KeyF10, 0, tcell.ModNone))
	d.Poll()
	assert.Equal(t, []string{"profile", "profile"}, ctrl.calls)
}

func TestDispatcher_ActionErrorDoesNotStopOthers(t *testing.T) {
	t.Parallel()
	ctrl := &fakeController{saveErr: errors.New("disk full")}
	src := NewStaticSource()
	d := NewDispatcher(src, DefaultBindings(ctrl))

	src.Press(F6)
	src.Press(F7)
	d.Poll()
	assert.Equal(t, []string{"save", "load"}, ctrl.calls)
}
