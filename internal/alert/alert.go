// Package alert plays the audible cues of the control loop: a short beep
// when targets are detected and a higher one when the loop fires.
package alert

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"

	"github.com/Memati8383/AI-Triggerbot/internal/monitoring"
	"github.com/Memati8383/AI-Triggerbot/internal/timeutil"
)

// SampleRate is the output rate of generated tones.
const SampleRate = beep.SampleRate(44100)

// DetectionCooldown is the minimum gap between two detection beeps.
const DetectionCooldown = 500 * time.Millisecond

// Tone is a sine beep.
type Tone struct {
	Freq     float64
	Duration time.Duration
}

var (
	DetectionTone = Tone{Freq: 1000, Duration: 100 * time.Millisecond}
	LockTone      = Tone{Freq: 1500, Duration: 150 * time.Millisecond}
)

// Streamer returns a finite streamer that plays the tone once at sr.
func (t Tone) Streamer(sr beep.SampleRate) (beep.Streamer, error) {
	sine, err := generators.SineTone(sr, t.Freq)
	if err != nil {
		return nil, fmt.Errorf("alert: sine tone %gHz: %w", t.Freq, err)
	}
	return beep.Take(sr.N(t.Duration), sine), nil
}

// Player outputs a tone. Implementations must not block for the length of
// the tone.
type Player interface {
	Play(Tone) error
}

// SpeakerPlayer plays tones on the default audio device.
type SpeakerPlayer struct {
	mu          sync.Mutex
	initialized bool
}

// NewSpeakerPlayer initialises the audio device with a 100ms buffer.
func NewSpeakerPlayer() (*SpeakerPlayer, error) {
	if err := speaker.Init(SampleRate, SampleRate.N(100*time.Millisecond)); err != nil {
		return nil, fmt.Errorf("alert: init speaker: %w", err)
	}
	return &SpeakerPlayer{initialized: true}, nil
}

// Play queues the tone on the speaker and returns immediately.
func (p *SpeakerPlayer) Play(t Tone) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return nil
	}
	s, err := t.Streamer(SampleRate)
	if err != nil {
		return err
	}
	speaker.Play(s)
	return nil
}

// Close releases the audio device. Further Play calls are no-ops.
func (p *SpeakerPlayer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return
	}
	speaker.Close()
	p.initialized = false
}

// Alerts rate-limits detection beeps and forwards both cues to a Player.
type Alerts struct {
	player   Player
	clock    timeutil.Clock
	cooldown time.Duration

	mu            sync.Mutex
	lastDetection time.Time
}

// New returns Alerts using player. A nil clock uses the real clock.
func New(player Player, clock timeutil.Clock) *Alerts {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Alerts{player: player, clock: clock, cooldown: DetectionCooldown}
}

// Detection plays DetectionTone unless one played within the cooldown.
func (a *Alerts) Detection() {
	now := a.clock.Now()
	a.mu.Lock()
	if !a.lastDetection.IsZero() && now.Sub(a.lastDetection) <= a.cooldown {
		a.mu.Unlock()
		return
	}
	a.lastDetection = now
	a.mu.Unlock()
	a.play(DetectionTone)
}

// Lock plays LockTone. It is never rate-limited.
func (a *Alerts) Lock() {
	a.play(LockTone)
}

func (a *Alerts) play(t Tone) {
	if a.player == nil {
		return
	}
	if err := a.player.Play(t); err != nil {
		monitoring.Logf("alert: play %gHz: %v", t.Freq, err)
	}
}
