package tracking

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Memati8383/AI-Triggerbot/internal/config"
	"github.com/Memati8383/AI-Triggerbot/internal/vision"
)

// RegistryConfig holds configuration parameters for the registry.
type RegistryConfig struct {
	GateRadius        float64       // Strict upper bound on centre distance for a match (px)
	MaxAge            time.Duration // Tracks unseen for at least this long are evicted
	ExclusiveMatching bool          // Matched tracks leave the candidate pool for the rest of the tick
	MaxTrailLength    int           // Centre history kept per track for trail rendering
}

// DefaultRegistryConfig returns the built-in association parameters.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		GateRadius:     50,
		MaxAge:         10 * time.Second,
		MaxTrailLength: 16,
	}
}

// RegistryConfigFromConfig builds a RegistryConfig from the runtime configuration.
func RegistryConfigFromConfig(cfg *config.Config) RegistryConfig {
	rc := DefaultRegistryConfig()
	rc.ExclusiveMatching = cfg.GetExclusiveMatching()
	return rc
}

// Track is one persisted identity.
type Track struct {
	ID        int64          `json:"id"`
	Center    vision.Point   `json:"center"`
	FirstSeen time.Time      `json:"first_seen"`
	LastSeen  time.Time      `json:"last_seen"`
	Hits      int            `json:"hits"`
	Trail     []vision.Point `json:"trail,omitempty"`
}

func (t *Track) clone() Track {
	c := *t
	c.Trail = append([]vision.Point(nil), t.Trail...)
	return c
}

// Tracked pairs a detection with the id it resolved to.
type Tracked struct {
	Detection vision.Detection `json:"detection"`
	TrackID   int64            `json:"track_id"`
}

// Registry maintains identity continuity across frames.
type Registry struct {
	Config RegistryConfig

	tracks map[int64]*Track
	nextID int64

	mu sync.RWMutex
}

// NewRegistry creates a registry with the specified configuration.
func NewRegistry(config RegistryConfig) *Registry {
	return &Registry{
		Config: config,
		tracks: make(map[int64]*Track),
	}
}

// UpdateConfig applies fn to the registry configuration under the lock.
func (r *Registry) UpdateConfig(fn func(*RegistryConfig)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.Config)
}

// Reset drops every track and restarts id allocation.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracks = make(map[int64]*Track)
	r.nextID = 0
}

// Update evicts stale tracks, associates each detection in input order with
// its nearest live track inside the gate, and returns the detections paired
// with their resolved ids in input order.
//
// Unless ExclusiveMatching is set, a matched track stays a candidate for the
// remaining detections of the same tick.
func (r *Registry) Update(dets []vision.Detection, now time.Time) []Tracked {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evict(now)

	// Candidates in ascending id order so ties resolve to the oldest track.
	candidates := r.sortedLocked()
	taken := make(map[int64]bool)

	out := make([]Tracked, 0, len(dets))
	for _, d := range dets {
		c := d.Center()

		var best *Track
		bestDist := math.Inf(1)
		for _, t := range candidates {
			if taken[t.ID] {
				continue
			}
			dist := c.Dist(t.Center)
			if dist < r.Config.GateRadius && dist < bestDist {
				best = t
				bestDist = dist
			}
		}

		if best != nil {
			best.Center = c
			best.LastSeen = now
			best.Hits++
			best.Trail = appendTrail(best.Trail, c, r.Config.MaxTrailLength)
			if r.Config.ExclusiveMatching {
				taken[best.ID] = true
			}
			out = append(out, Tracked{Detection: d, TrackID: best.ID})
			continue
		}

		t := &Track{
			ID:        r.nextID,
			Center:    c,
			FirstSeen: now,
			LastSeen:  now,
			Hits:      1,
			Trail:     appendTrail(nil, c, r.Config.MaxTrailLength),
		}
		r.nextID++
		r.tracks[t.ID] = t
		// New tracks join the pool so later detections in the same tick can match them.
		candidates = append(candidates, t)
		if r.Config.ExclusiveMatching {
			taken[t.ID] = true
		}
		out = append(out, Tracked{Detection: d, TrackID: t.ID})
	}
	return out
}

func (r *Registry) evict(now time.Time) {
	for id, t := range r.tracks {
		if now.Sub(t.LastSeen) >= r.Config.MaxAge {
			delete(r.tracks, id)
		}
	}
}

func (r *Registry) sortedLocked() []*Track {
	out := make([]*Track, 0, len(r.tracks))
	for _, t := range r.tracks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Tracks returns copies of the live tracks sorted by id.
func (r *Registry) Tracks() []Track {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sorted := r.sortedLocked()
	out := make([]Track, len(sorted))
	for i, t := range sorted {
		out[i] = t.clone()
	}
	return out
}

// Track returns a copy of the track with the given id.
func (r *Registry) Track(id int64) (Track, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tracks[id]
	if !ok {
		return Track{}, false
	}
	return t.clone(), true
}

// Len returns the number of live tracks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tracks)
}

func appendTrail(trail []vision.Point, p vision.Point, max int) []vision.Point {
	if max <= 0 {
		return nil
	}
	trail = append(trail, p)
	if len(trail) > max {
		trail = trail[len(trail)-max:]
	}
	return trail
}
