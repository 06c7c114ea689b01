// Package engine runs the per-tick perception-to-actuation pipeline and owns
// the session state shared with the render loop and remote readers.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Memati8383/AI-Triggerbot/internal/aim"
	"github.com/Memati8383/AI-Triggerbot/internal/config"
	"github.com/Memati8383/AI-Triggerbot/internal/fire"
	"github.com/Memati8383/AI-Triggerbot/internal/monitoring"
	"github.com/Memati8383/AI-Triggerbot/internal/targeting"
	"github.com/Memati8383/AI-Triggerbot/internal/timeutil"
	"github.com/Memati8383/AI-Triggerbot/internal/tracking"
	"github.com/Memati8383/AI-Triggerbot/internal/vision"
)

// ErrNotRunning is returned by Stop when the control loop is not running.
var ErrNotRunning = errors.New("engine not running")

const (
	inactiveSleep = 50 * time.Millisecond
	panicSleep    = time.Second
)

// HeatSink accumulates aim points for the heatmap.
type HeatSink interface {
	Add(x, y, confidence float64)
	Decay()
}

// Alerter plays audible cues.
type Alerter interface {
	Detection()
	Lock()
}

// Poller is polled once per control-loop iteration for hotkey presses.
type Poller interface {
	Poll()
}

// Options wires the engine's collaborators. Capturer, Detector, Actuator and
// Store are required; everything else has a default.
type Options struct {
	Capturer  vision.Capturer
	Detector  vision.Detector
	Actuator  fire.Actuator
	Store     *config.Store
	Clock     timeutil.Clock
	Humanizer *fire.Humanizer
	Perf      *monitoring.PerformanceMonitor
	Heat      HeatSink
	Alerter   Alerter
	Hotkeys   Poller
}

// Engine is the frame orchestrator.
type Engine struct {
	capturer vision.Capturer
	detector vision.Detector
	store    *config.Store
	clock    timeutil.Clock

	// pipelineMu serializes Tick with Reset. The prioritizer and planner are
	// not safe for concurrent use.
	pipelineMu  sync.Mutex
	registry    *tracking.Registry
	prioritizer *targeting.Prioritizer
	planner     *aim.Planner
	humanizer   *fire.Humanizer
	sequencer   *fire.Sequencer
	perf        *monitoring.PerformanceMonitor
	heat        HeatSink
	alerter     Alerter
	hotkeys     Poller

	session *Session
}

// New validates opts and builds an engine. The session starts inactive.
func New(opts Options) (*Engine, error) {
	switch {
	case opts.Capturer == nil:
		return nil, errors.New("engine: capturer is required")
	case opts.Detector == nil:
		return nil, errors.New("engine: detector is required")
	case opts.Actuator == nil:
		return nil, errors.New("engine: actuator is required")
	case opts.Store == nil:
		return nil, errors.New("engine: config store is required")
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Humanizer == nil {
		opts.Humanizer = fire.NewHumanizer(uint64(opts.Clock.Now().UnixNano()))
	}
	if opts.Perf == nil {
		opts.Perf = monitoring.NewPerformanceMonitor(monitoring.DefaultHistorySize)
	}

	cfg := opts.Store.Snapshot()
	return &Engine{
		capturer:    opts.Capturer,
		detector:    opts.Detector,
		store:       opts.Store,
		clock:       opts.Clock,
		registry:    tracking.NewRegistry(tracking.RegistryConfigFromConfig(cfg)),
		prioritizer: targeting.NewPrioritizer(),
		planner:     aim.NewPlanner(),
		humanizer:   opts.Humanizer,
		sequencer:   fire.NewSequencer(opts.Actuator, opts.Clock, opts.Humanizer),
		perf:        opts.Perf,
		heat:        opts.Heat,
		alerter:     opts.Alerter,
		hotkeys:     opts.Hotkeys,
		session:     NewSession(opts.Clock.Now()),
	}, nil
}

// Session returns the shared session state.
func (e *Engine) Session() *Session { return e.session }

// Perf returns the performance monitor fed by the control loop.
func (e *Engine) Perf() *monitoring.PerformanceMonitor { return e.perf }

// Registry returns the track registry.
func (e *Engine) Registry() *tracking.Registry { return e.registry }

// Store returns the runtime configuration.
func (e *Engine) Store() *config.Store { return e.store }

// SetHotkeys installs the poller consulted once per loop iteration. It must
// be called before Run.
func (e *Engine) SetHotkeys(p Poller) { e.hotkeys = p }

// Tick runs one pipeline pass. Inactive or panicked sessions only record the
// Idle state. Collaborator failures are returned wrapped; empty results are
// normal outcomes.
func (e *Engine) Tick(ctx context.Context) error {
	if !e.session.Active() || e.session.Panic() {
		e.session.setState(Idle)
		return nil
	}

	e.pipelineMu.Lock()
	defer e.pipelineMu.Unlock()

	start := e.clock.Now()
	cfg := e.store.Snapshot()
	e.registry.UpdateConfig(func(rc *tracking.RegistryConfig) {
		rc.ExclusiveMatching = cfg.GetExclusiveMatching()
	})

	frame, err := e.capturer.Capture(ctx, cfg.GetBoxSize())
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	e.session.publish(Snapshot{At: start, Frame: frame, State: e.session.State()})

	detectStart := e.clock.Now()
	dets, err := e.detector.Detect(ctx, frame, cfg.GetConfidence())
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}
	e.perf.RecordDetection(e.clock.Since(detectStart))

	var tracked []tracking.Tracked
	if cfg.GetTrackTargets() {
		tracked = e.registry.Update(dets, start)
	} else {
		tracked = make([]tracking.Tracked, len(dets))
		for i, d := range dets {
			tracked[i] = tracking.Tracked{Detection: d}
		}
	}
	snap := Snapshot{At: start, Frame: frame, Tracked: tracked, State: e.session.State()}
	e.session.publish(snap)

	aimStart := e.clock.Now()
	state := e.decide(ctx, cfg, frame, dets, &snap)
	e.session.setState(state)
	snap.State = state
	e.session.publish(snap)

	e.perf.RecordAim(e.clock.Since(aimStart))
	e.perf.RecordFrame(e.clock.Since(start))
	monitoring.Debugf("[engine] tick state=%s detections=%d", state, len(dets))
	return nil
}

// decide runs prioritization through firing and returns the resulting state.
func (e *Engine) decide(ctx context.Context, cfg *config.Config, frame *vision.Frame, dets []vision.Detection, snap *Snapshot) State {
	defer e.decay()

	if len(dets) == 0 {
		e.session.misses.Add(1)
		return Scanning
	}
	if cfg.GetSoundAlerts() && e.alerter != nil {
		e.alerter.Detection()
	}

	center := frame.Center()
	mode, _ := targeting.ParseMode(cfg.GetTargetPriority())
	sel, ok := e.prioritizer.Select(dets, center, mode, cfg.GetMaxDistance(), cfg.GetMinTargetSize())
	if !ok {
		e.session.misses.Add(1)
		return Scanning
	}
	snap.Selection = &sel

	p := aim.AimPoint(sel.Detection, cfg.GetHeadshotMode())
	if cfg.GetPredictionEnabled() {
		p = e.planner.Predict(p, cfg.GetPredictionFactor())
	}
	snap.AimPoint = &p
	if cfg.GetShowHeatmap() && e.heat != nil {
		e.heat.Add(p.X, p.Y, sel.Detection.Confidence)
	}

	humanize := cfg.GetAntiDetection()
	if !targeting.InTolerance(aim.Distance(p, center), cfg.GetAimTolerance()) {
		if cfg.GetAutoAim() {
			if dx, dy, ok := aim.Smooth(p, center, cfg.GetAimSmooth()); ok {
				if humanize {
					dx, dy = e.humanizer.JitterMove(dx, dy, fire.DefaultJitterVariance)
				}
				e.sequencer.Move(dx, dy)
			}
		}
		e.session.misses.Add(1)
		return Tracking
	}

	if humanize && e.humanizer.ShouldSkip() {
		e.session.misses.Add(1)
		return Engaging
	}

	e.session.detections.Add(1)
	monitoring.Logf("[engine] locked #%d conf=%.2f dist=%.0fpx", e.session.detections.Load(), sel.Detection.Confidence, sel.Distance)
	if cfg.GetSoundAlerts() && e.alerter != nil {
		e.alerter.Lock()
	}

	if cfg.GetBurstMode() {
		var recoil []int
		if cfg.GetRecoilControl() {
			recoil = cfg.GetRecoilPattern()
		}
		e.sequencer.Burst(ctx, cfg.GetBurstCount(), cfg.GetBurstDelay(), recoil)
	} else {
		e.sequencer.Fire(ctx, cfg.GetReactionDelay(), humanize)
	}
	e.session.hits.Add(1)
	return Engaging
}

func (e *Engine) decay() {
	if e.heat != nil {
		e.heat.Decay()
	}
}

// Run drives the control loop until ctx is done or Stop is called. Tick
// errors are logged and the loop continues with the next iteration.
func (e *Engine) Run(ctx context.Context) error {
	if !e.session.running.CompareAndSwap(false, true) {
		return errors.New("engine already running")
	}
	defer e.session.running.Store(false)

	monitoring.Logf("[engine] session %s running", e.session.ID)
	for e.session.Running() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if e.hotkeys != nil {
			e.hotkeys.Poll()
			if !e.session.Running() || ctx.Err() != nil {
				return nil
			}
		}

		switch {
		case e.session.Panic():
			e.session.setState(Idle)
			e.clock.Sleep(panicSleep)
		case e.session.Active():
			if err := e.Tick(ctx); err != nil {
				monitoring.Logf("[engine] tick error: %v", err)
			}
			e.clock.Sleep(e.perf.SleepTime(e.store.Snapshot().GetTargetFPS()))
		default:
			e.session.setState(Idle)
			e.clock.Sleep(inactiveSleep)
		}
	}
	return nil
}

// Stop asks the control loop to exit at the next iteration boundary.
func (e *Engine) Stop() error {
	if !e.session.running.CompareAndSwap(true, false) {
		return ErrNotRunning
	}
	return nil
}
