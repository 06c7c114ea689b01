package monitoring

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPerformanceMonitor_Empty(t *testing.T) {
	t.Parallel()
	m := NewPerformanceMonitor(10)

	assert.Equal(t, 0.0, m.FPS())
	s := m.Stats()
	assert.Equal(t, 0, s.FrameSampleCount)
	assert.Equal(t, 0.0, s.AvgFrameMs)
	// No frame yet: full budget.
	assert.Equal(t, 10*time.Millisecond, m.SleepTime(100))
}

func TestPerformanceMonitor_FPS(t *testing.T) {
	t.Parallel()
	m := NewPerformanceMonitor(10)
	for i := 0; i < 5; i++ {
		m.RecordFrame(10 * time.Millisecond)
	}
	assert.InDelta(t, 100.0, m.FPS(), 1e-6)

	s := m.Stats()
	assert.Equal(t, 5, s.FrameSampleCount)
	assert.InDelta(t, 10.0, s.AvgFrameMs, 1e-6)
	assert.InDelta(t, 10.0, s.P95FrameMs, 1e-6)
}

func TestPerformanceMonitor_WindowEvictsOldest(t *testing.T) {
	t.Parallel()
	m := NewPerformanceMonitor(3)
	m.RecordFrame(100 * time.Millisecond)
	m.RecordFrame(10 * time.Millisecond)
	m.RecordFrame(10 * time.Millisecond)
	m.RecordFrame(10 * time.Millisecond)

	s := m.Stats()
	assert.Equal(t, 3, s.FrameSampleCount)
	assert.InDelta(t, 10.0, s.AvgFrameMs, 1e-6)
}

func TestPerformanceMonitor_SleepTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		last      time.Duration
		targetFPS int
		want      time.Duration
	}{
		{"fast frame sleeps remainder", 2 * time.Millisecond, 100, 8 * time.Millisecond},
		{"slow frame never negative", 20 * time.Millisecond, 100, 0},
		{"exact budget", 10 * time.Millisecond, 100, 0},
		{"zero target disables pacing", time.Millisecond, 0, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewPerformanceMonitor(4)
			m.RecordFrame(tt.last)
			assert.InDelta(t, float64(tt.want), float64(m.SleepTime(tt.targetFPS)), float64(time.Microsecond))
		})
	}
}

func TestPerformanceMonitor_StageAverages(t *testing.T) {
	t.Parallel()
	m := NewPerformanceMonitor(0)
	m.RecordDetection(4 * time.Millisecond)
	m.RecordDetection(6 * time.Millisecond)
	m.RecordAim(time.Millisecond)

	s := m.Stats()
	assert.InDelta(t, 5.0, s.AvgDetectionMs, 1e-6)
	assert.InDelta(t, 1.0, s.AvgAimMs, 1e-6)

	m.Reset()
	s = m.Stats()
	assert.Equal(t, 0.0, s.AvgDetectionMs)
	assert.Equal(t, 0.0, s.AvgAimMs)
}

func TestPerformanceMonitor_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	m := NewPerformanceMonitor(16)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			m.RecordFrame(time.Millisecond)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_ = m.Stats()
			_ = m.FPS()
		}
	}()
	wg.Wait()
	assert.InDelta(t, 1000.0, m.FPS(), 1e-6)
}
