package monitoring

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// DefaultHistorySize is the number of samples kept per timing window.
const DefaultHistorySize = 120

// PerfStats summarises the rolling timing windows.
type PerfStats struct {
	FPS              float64 `json:"fps"`
	AvgFrameMs       float64 `json:"avg_frame_ms"`
	P95FrameMs       float64 `json:"p95_frame_ms"`
	AvgDetectionMs   float64 `json:"avg_detection_ms"`
	AvgAimMs         float64 `json:"avg_aim_ms"`
	FrameSampleCount int     `json:"frame_sample_count"`
}

// window is a fixed-capacity ring of durations in seconds.
type window struct {
	values []float64
	next   int
	full   bool
}

func newWindow(size int) *window {
	return &window{values: make([]float64, size)}
}

func (w *window) add(d time.Duration) {
	w.values[w.next] = d.Seconds()
	w.next = (w.next + 1) % len(w.values)
	if w.next == 0 {
		w.full = true
	}
}

func (w *window) samples() []float64 {
	if w.full {
		out := make([]float64, len(w.values))
		copy(out, w.values)
		return out
	}
	out := make([]float64, w.next)
	copy(out, w.values[:w.next])
	return out
}

func (w *window) last() (float64, bool) {
	if !w.full && w.next == 0 {
		return 0, false
	}
	idx := w.next - 1
	if idx < 0 {
		idx = len(w.values) - 1
	}
	return w.values[idx], true
}

func (w *window) reset() {
	w.next = 0
	w.full = false
}

// PerformanceMonitor tracks frame, detection and aim timings over rolling
// windows. It is written by the control loop and read by the render loop,
// so all methods are safe for concurrent use.
type PerformanceMonitor struct {
	mu         sync.Mutex
	frames     *window
	detections *window
	aims       *window
}

// NewPerformanceMonitor creates a monitor keeping historySize samples per
// window. Non-positive sizes fall back to DefaultHistorySize.
func NewPerformanceMonitor(historySize int) *PerformanceMonitor {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &PerformanceMonitor{
		frames:     newWindow(historySize),
		detections: newWindow(historySize),
		aims:       newWindow(historySize),
	}
}

// RecordFrame records the duration of one full tick.
func (m *PerformanceMonitor) RecordFrame(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames.add(d)
}

// RecordDetection records the duration of one detector call.
func (m *PerformanceMonitor) RecordDetection(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detections.add(d)
}

// RecordAim records the duration of the aim/fire stage.
func (m *PerformanceMonitor) RecordAim(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aims.add(d)
}

// FPS returns the tick rate implied by the mean frame time, or 0 with no samples.
func (m *PerformanceMonitor) FPS() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fpsOf(m.frames.samples())
}

func fpsOf(frames []float64) float64 {
	if len(frames) == 0 {
		return 0
	}
	mean := stat.Mean(frames, nil)
	if mean <= 0 {
		return 0
	}
	return 1.0 / mean
}

func meanMs(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil) * 1000
}

// Stats returns a summary of all windows.
func (m *PerformanceMonitor) Stats() PerfStats {
	m.mu.Lock()
	frames := m.frames.samples()
	detections := m.detections.samples()
	aims := m.aims.samples()
	m.mu.Unlock()

	s := PerfStats{
		FPS:              fpsOf(frames),
		AvgFrameMs:       meanMs(frames),
		AvgDetectionMs:   meanMs(detections),
		AvgAimMs:         meanMs(aims),
		FrameSampleCount: len(frames),
	}
	if len(frames) > 0 {
		sort.Float64s(frames)
		s.P95FrameMs = stat.Quantile(0.95, stat.Empirical, frames, nil) * 1000
	}
	return s
}

// SleepTime returns how long the loop should sleep to hold targetFPS given
// the most recent frame time: max(0, 1/targetFPS - last). With no frame
// recorded yet the full frame budget is returned.
func (m *PerformanceMonitor) SleepTime(targetFPS int) time.Duration {
	if targetFPS <= 0 {
		return 0
	}
	budget := 1.0 / float64(targetFPS)

	m.mu.Lock()
	last, ok := m.frames.last()
	m.mu.Unlock()

	if !ok {
		return time.Duration(budget * float64(time.Second))
	}
	remaining := budget - last
	if remaining <= 0 {
		return 0
	}
	return time.Duration(remaining * float64(time.Second))
}

// Reset clears all windows.
func (m *PerformanceMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames.reset()
	m.detections.reset()
	m.aims.reset()
}
