package fire

import (
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// DefaultSkipProbability is the chance an in-tolerance tick holds fire.
	DefaultSkipProbability = 0.03
	// DefaultMinDelay floors humanized reaction delays.
	DefaultMinDelay = 10 * time.Millisecond
	// DefaultDelaySpread is the normal standard deviation as a fraction of the base delay.
	DefaultDelaySpread = 0.2
	// DefaultJitterVariance is the relative spread applied to aim deltas.
	DefaultJitterVariance = 0.05
)

// Humanizer draws the randomised skip decisions, delays and jitter applied
// when anti-detection is enabled. Its random source is injectable so runs can
// be reproduced; it is not safe for concurrent use.
type Humanizer struct {
	SkipProbability float64
	MinDelay        time.Duration
	DelaySpread     float64

	src rand.Source
}

// NewHumanizer returns a humanizer with default parameters seeded with seed.
func NewHumanizer(seed uint64) *Humanizer {
	return NewHumanizerWithSource(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewHumanizerWithSource returns a humanizer drawing from src.
func NewHumanizerWithSource(src rand.Source) *Humanizer {
	return &Humanizer{
		SkipProbability: DefaultSkipProbability,
		MinDelay:        DefaultMinDelay,
		DelaySpread:     DefaultDelaySpread,
		src:             src,
	}
}

// ShouldSkip reports whether this fire opportunity should be passed up.
func (h *Humanizer) ShouldSkip() bool {
	if h.SkipProbability <= 0 {
		return false
	}
	if h.SkipProbability >= 1 {
		return true
	}
	b := distuv.Bernoulli{P: h.SkipProbability, Src: h.src}
	return b.Rand() == 1
}

// Delay draws a reaction delay from Normal(base, DelaySpread·base), floored
// at MinDelay.
func (h *Humanizer) Delay(base time.Duration) time.Duration {
	mu := base.Seconds()
	d := mu
	if sigma := mu * h.DelaySpread; sigma > 0 {
		n := distuv.Normal{Mu: mu, Sigma: sigma, Src: h.src}
		d = n.Rand()
	}
	out := time.Duration(d * float64(time.Second))
	if out < h.MinDelay {
		return h.MinDelay
	}
	return out
}

// Jitter scales v by a factor drawn from Uniform(1-variance, 1+variance).
func (h *Humanizer) Jitter(v, variance float64) float64 {
	if variance <= 0 {
		return v
	}
	u := distuv.Uniform{Min: 1 - variance, Max: 1 + variance, Src: h.src}
	return v * u.Rand()
}

// JitterMove applies Jitter to a pair of integer deltas, truncating toward zero.
func (h *Humanizer) JitterMove(dx, dy int, variance float64) (int, int) {
	return int(h.Jitter(float64(dx), variance)), int(h.Jitter(float64(dy), variance))
}
