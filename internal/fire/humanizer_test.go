package fire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/stat"
)

func TestHumanizer_Reproducible(t *testing.T) {
	t.Parallel()
	a := NewHumanizer(42)
	b := NewHumanizer(42)

	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Delay(20*time.Millisecond), b.Delay(20*time.Millisecond))
		assert.Equal(t, a.ShouldSkip(), b.ShouldSkip())
		assert.Equal(t, a.Jitter(100, 0.05), b.Jitter(100, 0.05))
	}
}

func TestHumanizer_DelayDistribution(t *testing.T) {
	t.Parallel()
	h := NewHumanizer(7)
	base := 100 * time.Millisecond

	samples := make([]float64, 5000)
	for i := range samples {
		d := h.Delay(base)
		assert.GreaterOrEqual(t, d, h.MinDelay)
		samples[i] = d.Seconds()
	}
	mean, std := stat.MeanStdDev(samples, nil)
	assert.InDelta(t, 0.100, mean, 0.003)
	assert.InDelta(t, 0.020, std, 0.003)
}

func TestHumanizer_DelayFloor(t *testing.T) {
	t.Parallel()
	h := NewHumanizer(1)

	// A 12 ms base with 2.4 ms spread regularly dips under 10 ms.
	for i := 0; i < 1000; i++ {
		assert.GreaterOrEqual(t, h.Delay(12*time.Millisecond), DefaultMinDelay)
	}
	assert.Equal(t, DefaultMinDelay, h.Delay(0))
	assert.Equal(t, DefaultMinDelay, h.Delay(-time.Second))
}

func TestHumanizer_SkipRate(t *testing.T) {
	t.Parallel()
	h := NewHumanizer(99)

	skips := 0
	const n = 20000
	for i := 0; i < n; i++ {
		if h.ShouldSkip() {
			skips++
		}
	}
	assert.InDelta(t, DefaultSkipProbability, float64(skips)/n, 0.006)

	h.SkipProbability = 0
	assert.False(t, h.ShouldSkip())
	h.SkipProbability = 1
	assert.True(t, h.ShouldSkip())
}

func TestHumanizer_Jitter(t *testing.T) {
	t.Parallel()
	h := NewHumanizer(3)

	for i := 0; i < 1000; i++ {
		v := h.Jitter(200, DefaultJitterVariance)
		assert.GreaterOrEqual(t, v, 190.0)
		assert.LessOrEqual(t, v, 210.0)
	}
	assert.Equal(t, 17.0, h.Jitter(17, 0))

	dx, dy := h.JitterMove(100, -100, DefaultJitterVariance)
	assert.InDelta(t, 100, dx, 5)
	assert.InDelta(t, -100, dy, 5)
}
