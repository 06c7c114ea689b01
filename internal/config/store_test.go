package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetSet(t *testing.T) {
	t.Parallel()
	s := NewStore(filepath.Join(t.TempDir(), "config.json"))

	assert.Equal(t, 0.20, s.Get("confidence", 0.0))
	assert.Equal(t, 400, s.Get("box_size", 0))
	assert.Equal(t, "closest", s.Get("target_priority", ""))
	assert.Equal(t, []int{0, -2, -3, -4, -3, -2}, s.Get("recoil_pattern", nil))
	assert.Equal(t, "fallback", s.Get("no_such_key", "fallback"))

	require.NoError(t, s.Set("aim_tolerance", 25))
	assert.Equal(t, 25.0, s.Get("aim_tolerance", 0.0))

	require.NoError(t, s.Set("box_size", 320.0))
	assert.Equal(t, 320, s.Get("box_size", 0))

	require.NoError(t, s.Set("target_priority", "largest"))
	assert.Equal(t, "largest", s.Snapshot().GetTargetPriority())

	// nil clears back to the default.
	require.NoError(t, s.Set("target_priority", nil))
	assert.Equal(t, "def", s.Get("target_priority", "def"))
	assert.Equal(t, "closest", s.Snapshot().GetTargetPriority())
}

func TestStore_SetErrors(t *testing.T) {
	t.Parallel()
	s := NewStore(filepath.Join(t.TempDir(), "config.json"))

	err := s.Set("warp_drive", true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownKey))

	assert.Error(t, s.Set("box_size", "large"))

	// Out-of-range values are rejected and leave the store untouched.
	assert.Error(t, s.Set("confidence", 2.0))
	assert.Equal(t, 0.20, s.Snapshot().GetConfidence())
}

func TestStore_GetReturnsCopies(t *testing.T) {
	t.Parallel()
	s := NewStore(filepath.Join(t.TempDir(), "config.json"))

	pattern := s.Get("recoil_pattern", nil).([]int)
	pattern[1] = 100
	assert.Equal(t, -2, s.Snapshot().GetRecoilPattern()[1])

	snap := s.Snapshot()
	*snap.Confidence = 0.99
	assert.Equal(t, 0.20, s.Snapshot().GetConfidence())
}

func TestStore_LoadMissingWritesDefaults(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	s := NewStore(path)

	require.NoError(t, s.Load())
	_, err := os.Stat(path)
	require.NoError(t, err)

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), loaded)
}

func TestStore_LoadMergesOverDefaults(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"aim_smooth": 0.25}`), 0644))

	s := NewStore(path)
	require.NoError(t, s.Set("confidence", 0.5))
	require.NoError(t, s.Load())

	cfg := s.Snapshot()
	assert.Equal(t, 0.25, cfg.GetAimSmooth())
	// Load starts from defaults, not the in-memory value.
	assert.Equal(t, 0.20, cfg.GetConfidence())
	require.NotNil(t, cfg.BoxSize)
}

func TestStore_SaveRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.json")
	s := NewStore(path)
	require.NoError(t, s.Set("burst_count", 7))
	require.NoError(t, s.Save())

	other := NewStore(path)
	require.NoError(t, other.Load())
	assert.Equal(t, 7, other.Snapshot().GetBurstCount())
}

func TestStore_LoadInvalidFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0644))

	s := NewStore(path)
	assert.Error(t, s.Load())
	assert.Equal(t, DefaultConfig(), s.Snapshot())
}

func TestStore_ApplyProfile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		profile    string
		confidence float64
		smooth     float64
		burst      bool
	}{
		{"aggressive", 0.20, 0.6, true},
		{"balanced", 0.25, 0.4, false},
		{"stealth", 0.35, 0.3, false},
		{"sniper", 0.40, 0.2, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.profile, func(t *testing.T) {
			t.Parallel()
			s := NewStore(filepath.Join(t.TempDir(), "config.json"))
			require.NoError(t, s.ApplyProfile(tt.profile))
			cfg := s.Snapshot()
			assert.Equal(t, tt.confidence, cfg.GetConfidence())
			assert.Equal(t, tt.smooth, cfg.GetAimSmooth())
			assert.Equal(t, tt.burst, cfg.GetBurstMode())
			assert.Equal(t, tt.profile, cfg.GetProfile())
			// Untouched keys survive.
			assert.Equal(t, 40.0, cfg.GetAimTolerance())
		})
	}

	s := NewStore(filepath.Join(t.TempDir(), "config.json"))
	err := s.ApplyProfile("berserk")
	assert.True(t, errors.Is(err, ErrUnknownProfile))
}

func TestProfiles(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"aggressive", "balanced", "stealth", "sniper"}, ProfileNames())
	assert.Equal(t, "stealth", NextProfile("balanced"))
	assert.Equal(t, "aggressive", NextProfile("sniper"))
	assert.Equal(t, "aggressive", NextProfile("unknown"))

	p, ok := Profile("aggressive")
	require.True(t, ok)
	assert.Equal(t, 5, p.GetBurstCount())

	// Profiles are fresh copies.
	*p.BurstCount = 1
	again, _ := Profile("aggressive")
	assert.Equal(t, 5, again.GetBurstCount())
}

func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	s := NewStore(filepath.Join(t.TempDir(), "config.json"))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.Set("aim_tolerance", float64(i*100+j))
				_ = s.Get("aim_tolerance", 0.0)
				_ = s.Snapshot()
			}
		}(i)
	}
	wg.Wait()
}
