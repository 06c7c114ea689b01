package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/triggerbot.defaults.json"

// DefaultUserConfigPath is where the runtime store persists hotkey and API edits.
const DefaultUserConfigPath = "config.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config is the flat key/value configuration of the control loop. Every field
// is optional: nil fields fall back to the defaults returned by the Get*
// accessors, so partial files and profile overlays are safe.
type Config struct {
	// Detection
	Confidence  *float64 `json:"confidence,omitempty"`
	BoxSize     *int     `json:"box_size,omitempty"`
	TargetClass *int     `json:"target_class,omitempty"`

	// Aim
	HeadshotMode  *bool    `json:"headshot_mode,omitempty"`
	AutoAim       *bool    `json:"auto_aim,omitempty"`
	AimSmooth     *float64 `json:"aim_smooth,omitempty"`
	AimTolerance  *float64 `json:"aim_tolerance,omitempty"`
	ReactionDelay *float64 `json:"reaction_delay,omitempty"` // seconds

	// Visual
	ShowWindow      *bool    `json:"show_window,omitempty"`
	WindowScale     *float64 `json:"window_scale,omitempty"`
	ShowHeatmap     *bool    `json:"show_heatmap,omitempty"`
	ShowTrails      *bool    `json:"show_trails,omitempty"`
	ShowPerformance *bool    `json:"show_performance,omitempty"`
	FOVCircle       *bool    `json:"fov_circle,omitempty"`
	CrosshairStyle  *string  `json:"crosshair_style,omitempty"`

	// Advanced
	TrackTargets       *bool    `json:"track_targets,omitempty"`
	ExclusiveMatching  *bool    `json:"exclusive_matching,omitempty"`
	PredictionEnabled  *bool    `json:"prediction_enabled,omitempty"`
	PredictionFactor   *float64 `json:"prediction_factor,omitempty"`
	AntiDetection      *bool    `json:"anti_detection,omitempty"`
	SoundAlerts        *bool    `json:"sound_alerts,omitempty"`
	AdaptiveConfidence *bool    `json:"adaptive_confidence,omitempty"`

	// Combat
	BurstMode     *bool    `json:"burst_mode,omitempty"`
	BurstCount    *int     `json:"burst_count,omitempty"`
	BurstDelay    *float64 `json:"burst_delay,omitempty"` // seconds
	RecoilControl *bool    `json:"recoil_control,omitempty"`
	RecoilPattern []int    `json:"recoil_pattern,omitempty"`

	// Priority
	TargetPriority *string  `json:"target_priority,omitempty"`
	MaxDistance    *float64 `json:"max_distance,omitempty"`
	MinTargetSize  *float64 `json:"min_target_size,omitempty"`

	Profile *string `json:"profile,omitempty"`

	// Performance
	TargetFPS        *int  `json:"target_fps,omitempty"`
	UseHalfPrecision *bool `json:"use_half_precision,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyConfig returns a Config with all fields set to nil.
func EmptyConfig() *Config {
	return &Config{}
}

// DefaultConfig returns a Config with every field populated from the
// built-in defaults table.
func DefaultConfig() *Config {
	return &Config{
		Confidence:  ptrFloat64(0.20),
		BoxSize:     ptrInt(400),
		TargetClass: ptrInt(0),

		HeadshotMode:  ptrBool(true),
		AutoAim:       ptrBool(true),
		AimSmooth:     ptrFloat64(0.5),
		AimTolerance:  ptrFloat64(40),
		ReactionDelay: ptrFloat64(0.012),

		ShowWindow:      ptrBool(true),
		WindowScale:     ptrFloat64(2.0),
		ShowHeatmap:     ptrBool(true),
		ShowTrails:      ptrBool(true),
		ShowPerformance: ptrBool(true),
		FOVCircle:       ptrBool(true),
		CrosshairStyle:  ptrString("cross"),

		TrackTargets:       ptrBool(true),
		ExclusiveMatching:  ptrBool(false),
		PredictionEnabled:  ptrBool(true),
		PredictionFactor:   ptrFloat64(0.18),
		AntiDetection:      ptrBool(true),
		SoundAlerts:        ptrBool(false),
		AdaptiveConfidence: ptrBool(true),

		BurstMode:     ptrBool(false),
		BurstCount:    ptrInt(3),
		BurstDelay:    ptrFloat64(0.08),
		RecoilControl: ptrBool(true),
		RecoilPattern: []int{0, -2, -3, -4, -3, -2},

		TargetPriority: ptrString("closest"),
		MaxDistance:    ptrFloat64(180),
		MinTargetSize:  ptrFloat64(15),

		Profile: ptrString("balanced"),

		TargetFPS:        ptrInt(120),
		UseHalfPrecision: ptrBool(false),
	}
}

// LoadConfig loads a Config from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file stay nil and resolve to defaults through
// the Get* accessors.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *Config {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/ or cmd/triggerbot/
	}
	for _, path := range candidates {
		if cfg, err := LoadConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the set values are within range. Unknown enum strings
// (priority mode, crosshair style) are not errors: consumers fall back to
// their defaults.
func (c *Config) Validate() error {
	if c.Confidence != nil && (*c.Confidence < 0 || *c.Confidence > 1) {
		return fmt.Errorf("confidence must be between 0 and 1, got %f", *c.Confidence)
	}
	if c.BoxSize != nil && *c.BoxSize <= 0 {
		return fmt.Errorf("box_size must be positive, got %d", *c.BoxSize)
	}
	if c.AimSmooth != nil && (*c.AimSmooth <= 0 || *c.AimSmooth > 1) {
		return fmt.Errorf("aim_smooth must be in (0, 1], got %f", *c.AimSmooth)
	}
	if c.AimTolerance != nil && *c.AimTolerance < 0 {
		return fmt.Errorf("aim_tolerance must be non-negative, got %f", *c.AimTolerance)
	}
	if c.ReactionDelay != nil && *c.ReactionDelay < 0 {
		return fmt.Errorf("reaction_delay must be non-negative, got %f", *c.ReactionDelay)
	}
	if c.WindowScale != nil && *c.WindowScale <= 0 {
		return fmt.Errorf("window_scale must be positive, got %f", *c.WindowScale)
	}
	if c.PredictionFactor != nil && *c.PredictionFactor < 0 {
		return fmt.Errorf("prediction_factor must be non-negative, got %f", *c.PredictionFactor)
	}
	if c.BurstCount != nil && *c.BurstCount < 1 {
		return fmt.Errorf("burst_count must be at least 1, got %d", *c.BurstCount)
	}
	if c.BurstDelay != nil && *c.BurstDelay < 0 {
		return fmt.Errorf("burst_delay must be non-negative, got %f", *c.BurstDelay)
	}
	if c.MaxDistance != nil && *c.MaxDistance < 0 {
		return fmt.Errorf("max_distance must be non-negative, got %f", *c.MaxDistance)
	}
	if c.MinTargetSize != nil && *c.MinTargetSize < 0 {
		return fmt.Errorf("min_target_size must be non-negative, got %f", *c.MinTargetSize)
	}
	if c.TargetFPS != nil && *c.TargetFPS < 0 {
		return fmt.Errorf("target_fps must be non-negative, got %d", *c.TargetFPS)
	}
	return nil
}

// GetConfidence returns the confidence value or the default.
func (c *Config) GetConfidence() float64 {
	if c.Confidence == nil {
		return 0.20
	}
	return *c.Confidence
}

// GetBoxSize returns the box_size value or the default.
func (c *Config) GetBoxSize() int {
	if c.BoxSize == nil {
		return 400
	}
	return *c.BoxSize
}

// GetTargetClass returns the target_class value or the default.
func (c *Config) GetTargetClass() int {
	if c.TargetClass == nil {
		return 0
	}
	return *c.TargetClass
}

// GetHeadshotMode returns the headshot_mode value or the default.
func (c *Config) GetHeadshotMode() bool {
	if c.HeadshotMode == nil {
		return true
	}
	return *c.HeadshotMode
}

// GetAutoAim returns the auto_aim value or the default.
func (c *Config) GetAutoAim() bool {
	if c.AutoAim == nil {
		return true
	}
	return *c.AutoAim
}

// GetAimSmooth returns the aim_smooth value or the default.
func (c *Config) GetAimSmooth() float64 {
	if c.AimSmooth == nil {
		return 0.5
	}
	return *c.AimSmooth
}

// GetAimTolerance returns the aim_tolerance value or the default.
func (c *Config) GetAimTolerance() float64 {
	if c.AimTolerance == nil {
		return 40
	}
	return *c.AimTolerance
}

// GetReactionDelay parses reaction_delay seconds as a time.Duration.
func (c *Config) GetReactionDelay() time.Duration {
	if c.ReactionDelay == nil {
		return 12 * time.Millisecond
	}
	return secondsToDuration(*c.ReactionDelay)
}

func (c *Config) GetShowWindow() bool {
	if c.ShowWindow == nil {
		return true
	}
	return *c.ShowWindow
}

func (c *Config) GetWindowScale() float64 {
	if c.WindowScale == nil {
		return 2.0
	}
	return *c.WindowScale
}

func (c *Config) GetShowHeatmap() bool {
	if c.ShowHeatmap == nil {
		return true
	}
	return *c.ShowHeatmap
}

func (c *Config) GetShowTrails() bool {
	if c.ShowTrails == nil {
		return true
	}
	return *c.ShowTrails
}

func (c *Config) GetShowPerformance() bool {
	if c.ShowPerformance == nil {
		return true
	}
	return *c.ShowPerformance
}

func (c *Config) GetFOVCircle() bool {
	if c.FOVCircle == nil {
		return true
	}
	return *c.FOVCircle
}

// GetCrosshairStyle returns the raw crosshair_style string or "cross".
func (c *Config) GetCrosshairStyle() string {
	if c.CrosshairStyle == nil || *c.CrosshairStyle == "" {
		return "cross"
	}
	return *c.CrosshairStyle
}

func (c *Config) GetTrackTargets() bool {
	if c.TrackTargets == nil {
		return true
	}
	return *c.TrackTargets
}

// GetExclusiveMatching reports whether a matched track leaves the candidate
// pool for the rest of a tick. Off by default.
func (c *Config) GetExclusiveMatching() bool {
	if c.ExclusiveMatching == nil {
		return false
	}
	return *c.ExclusiveMatching
}

func (c *Config) GetPredictionEnabled() bool {
	if c.PredictionEnabled == nil {
		return true
	}
	return *c.PredictionEnabled
}

func (c *Config) GetPredictionFactor() float64 {
	if c.PredictionFactor == nil {
		return 0.18
	}
	return *c.PredictionFactor
}

func (c *Config) GetAntiDetection() bool {
	if c.AntiDetection == nil {
		return true
	}
	return *c.AntiDetection
}

func (c *Config) GetSoundAlerts() bool {
	if c.SoundAlerts == nil {
		return false
	}
	return *c.SoundAlerts
}

func (c *Config) GetAdaptiveConfidence() bool {
	if c.AdaptiveConfidence == nil {
		return true
	}
	return *c.AdaptiveConfidence
}

// GetBurstMode returns the burst_mode value or the default.
func (c *Config) GetBurstMode() bool {
	if c.BurstMode == nil {
		return false
	}
	return *c.BurstMode
}

// GetBurstCount returns the burst_count value or the default.
func (c *Config) GetBurstCount() int {
	if c.BurstCount == nil {
		return 3
	}
	return *c.BurstCount
}

// GetBurstDelay parses burst_delay seconds as a time.Duration.
func (c *Config) GetBurstDelay() time.Duration {
	if c.BurstDelay == nil {
		return 80 * time.Millisecond
	}
	return secondsToDuration(*c.BurstDelay)
}

// GetRecoilControl returns the recoil_control value or the default.
func (c *Config) GetRecoilControl() bool {
	if c.RecoilControl == nil {
		return true
	}
	return *c.RecoilControl
}

// GetRecoilPattern returns a copy of the recoil pattern or the default.
func (c *Config) GetRecoilPattern() []int {
	if c.RecoilPattern == nil {
		return []int{0, -2, -3, -4, -3, -2}
	}
	out := make([]int, len(c.RecoilPattern))
	copy(out, c.RecoilPattern)
	return out
}

// GetTargetPriority returns the raw target_priority string or "closest".
func (c *Config) GetTargetPriority() string {
	if c.TargetPriority == nil || *c.TargetPriority == "" {
		return "closest"
	}
	return *c.TargetPriority
}

// GetMaxDistance returns the max_distance value or the default.
func (c *Config) GetMaxDistance() float64 {
	if c.MaxDistance == nil {
		return 180
	}
	return *c.MaxDistance
}

// GetMinTargetSize returns the min_target_size value or the default.
func (c *Config) GetMinTargetSize() float64 {
	if c.MinTargetSize == nil {
		return 15
	}
	return *c.MinTargetSize
}

// GetProfile returns the active profile name or "balanced".
func (c *Config) GetProfile() string {
	if c.Profile == nil || *c.Profile == "" {
		return "balanced"
	}
	return *c.Profile
}

// GetTargetFPS returns the target_fps value or the default.
func (c *Config) GetTargetFPS() int {
	if c.TargetFPS == nil {
		return 120
	}
	return *c.TargetFPS
}

// GetUseHalfPrecision is passed through to detectors that support it.
func (c *Config) GetUseHalfPrecision() bool {
	if c.UseHalfPrecision == nil {
		return false
	}
	return *c.UseHalfPrecision
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
