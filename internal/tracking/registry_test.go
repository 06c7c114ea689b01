package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Memati8383/AI-Triggerbot/internal/config"
	"github.com/Memati8383/AI-Triggerbot/internal/vision"
)

var t0 = time.Unix(1700000000, 0)

// box returns a 20×20 detection centred on (cx, cy).
func box(cx, cy float64) vision.Detection {
	return vision.Detection{X1: cx - 10, Y1: cy - 10, X2: cx + 10, Y2: cy + 10, Confidence: 0.9}
}

func ids(tracked []Tracked) []int64 {
	out := make([]int64, len(tracked))
	for i, tr := range tracked {
		out[i] = tr.TrackID
	}
	return out
}

func TestRegistry_ContinuityWithinGate(t *testing.T) {
	t.Parallel()
	r := NewRegistry(DefaultRegistryConfig())

	first := r.Update([]vision.Detection{box(100, 100)}, t0)
	require.Len(t, first, 1)
	assert.Equal(t, int64(0), first[0].TrackID)

	// Moves 30 px per tick, under the 50 px gate.
	for i := 1; i <= 5; i++ {
		got := r.Update([]vision.Detection{box(100+float64(30*i), 100)}, t0.Add(time.Duration(i)*100*time.Millisecond))
		assert.Equal(t, []int64{0}, ids(got), "tick %d", i)
	}

	tr, ok := r.Track(0)
	require.True(t, ok)
	assert.Equal(t, 6, tr.Hits)
	assert.Equal(t, t0, tr.FirstSeen)
	assert.Equal(t, vision.Point{X: 250, Y: 100}, tr.Center)
}

func TestRegistry_JumpAllocatesNewID(t *testing.T) {
	t.Parallel()
	r := NewRegistry(DefaultRegistryConfig())

	r.Update([]vision.Detection{box(100, 100)}, t0)
	got := r.Update([]vision.Detection{box(160, 100)}, t0.Add(time.Second))
	assert.Equal(t, []int64{1}, ids(got))

	// Exactly on the gate radius is not a match.
	got = r.Update([]vision.Detection{box(210, 100)}, t0.Add(2*time.Second))
	assert.Equal(t, []int64{2}, ids(got))
	assert.Equal(t, 3, r.Len())
}

func TestRegistry_Eviction(t *testing.T) {
	t.Parallel()
	r := NewRegistry(DefaultRegistryConfig())

	r.Update([]vision.Detection{box(100, 100)}, t0)

	// Just under max age: the track survives and is matched.
	got := r.Update([]vision.Detection{box(100, 100)}, t0.Add(9*time.Second))
	assert.Equal(t, []int64{0}, ids(got))

	// Empty update at exactly max age since last seen evicts.
	out := r.Update(nil, t0.Add(19*time.Second))
	assert.Empty(t, out)
	assert.Equal(t, 0, r.Len())

	// Ids are never reused.
	got = r.Update([]vision.Detection{box(100, 100)}, t0.Add(20*time.Second))
	assert.Equal(t, []int64{1}, ids(got))
}

func TestRegistry_PicksNearestTrack(t *testing.T) {
	t.Parallel()
	r := NewRegistry(DefaultRegistryConfig())
	r.Update([]vision.Detection{box(100, 100), box(160, 100)}, t0)

	got := r.Update([]vision.Detection{box(145, 100)}, t0.Add(time.Second))
	assert.Equal(t, []int64{1}, ids(got))
}

func TestRegistry_TieGoesToLowestID(t *testing.T) {
	t.Parallel()
	r := NewRegistry(DefaultRegistryConfig())
	r.Update([]vision.Detection{box(100, 100), box(160, 100)}, t0)

	got := r.Update([]vision.Detection{box(130, 100)}, t0.Add(time.Second))
	assert.Equal(t, []int64{0}, ids(got))
}

func TestRegistry_NonExclusiveSharesTrack(t *testing.T) {
	t.Parallel()
	r := NewRegistry(DefaultRegistryConfig())
	r.Update([]vision.Detection{box(100, 100)}, t0)

	got := r.Update([]vision.Detection{box(105, 100), box(95, 100)}, t0.Add(time.Second))
	assert.Equal(t, []int64{0, 0}, ids(got))

	tr, _ := r.Track(0)
	assert.Equal(t, 3, tr.Hits)
	assert.Equal(t, vision.Point{X: 95, Y: 100}, tr.Center)
}

func TestRegistry_ExclusiveMatching(t *testing.T) {
	t.Parallel()
	cfg := DefaultRegistryConfig()
	cfg.ExclusiveMatching = true
	r := NewRegistry(cfg)
	r.Update([]vision.Detection{box(100, 100)}, t0)

	got := r.Update([]vision.Detection{box(105, 100), box(95, 100)}, t0.Add(time.Second))
	assert.Equal(t, []int64{0, 1}, ids(got))
}

func TestRegistry_NewTracksJoinPoolWithinTick(t *testing.T) {
	t.Parallel()
	r := NewRegistry(DefaultRegistryConfig())

	got := r.Update([]vision.Detection{box(100, 100), box(110, 100)}, t0)
	assert.Equal(t, []int64{0, 0}, ids(got))
}

func TestRegistry_PreservesInputOrder(t *testing.T) {
	t.Parallel()
	r := NewRegistry(DefaultRegistryConfig())
	dets := []vision.Detection{box(300, 300), box(100, 100), box(200, 200)}

	got := r.Update(dets, t0)
	require.Len(t, got, 3)
	for i := range dets {
		assert.Equal(t, dets[i], got[i].Detection)
	}
	assert.Equal(t, []int64{0, 1, 2}, ids(got))
}

func TestRegistry_TracksReturnsCopies(t *testing.T) {
	t.Parallel()
	r := NewRegistry(DefaultRegistryConfig())
	r.Update([]vision.Detection{box(200, 200), box(100, 100)}, t0)

	tracks := r.Tracks()
	require.Len(t, tracks, 2)
	assert.Equal(t, int64(0), tracks[0].ID)
	assert.Equal(t, int64(1), tracks[1].ID)

	tracks[0].Center.X = -1
	tracks[0].Trail[0].X = -1
	again, _ := r.Track(0)
	assert.Equal(t, 200.0, again.Center.X)
	assert.Equal(t, 200.0, again.Trail[0].X)
}

func TestRegistry_TrailBounded(t *testing.T) {
	t.Parallel()
	cfg := DefaultRegistryConfig()
	cfg.MaxTrailLength = 3
	r := NewRegistry(cfg)

	for i := 0; i < 6; i++ {
		r.Update([]vision.Detection{box(100+float64(i), 100)}, t0.Add(time.Duration(i)*time.Millisecond))
	}
	tr, _ := r.Track(0)
	assert.Equal(t, []vision.Point{{X: 103, Y: 100}, {X: 104, Y: 100}, {X: 105, Y: 100}}, tr.Trail)
}

func TestRegistry_ResetAndConfig(t *testing.T) {
	t.Parallel()
	r := NewRegistry(RegistryConfigFromConfig(config.DefaultConfig()))
	assert.False(t, r.Config.ExclusiveMatching)
	assert.Equal(t, 50.0, r.Config.GateRadius)

	r.Update([]vision.Detection{box(100, 100)}, t0)
	r.Reset()
	assert.Equal(t, 0, r.Len())

	got := r.Update([]vision.Detection{box(100, 100)}, t0)
	assert.Equal(t, []int64{0}, ids(got))

	r.UpdateConfig(func(c *RegistryConfig) { c.GateRadius = 5 })
	got = r.Update([]vision.Detection{box(110, 100)}, t0)
	assert.Equal(t, []int64{1}, ids(got))
}
