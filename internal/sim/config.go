package sim

import (
	"fmt"
	"time"
)

// Selection policy names accepted by Config.Policy.
const (
	PolicyUniform  = "uniform"
	PolicyMaxSpeed = "maxspeed"
)

// Config bundles every tunable of one simulation run. Values are
// range-checked as a whole by Validate; a config with any field out of
// range is rejected in full.
type Config struct {
	Count      int     `json:"count"`       // Number of particles.
	HalfExtent float64 `json:"half_extent"` // Box half-size per axis.
	Radius     float64 `json:"radius"`      // Particle radius, used for wall clamping.

	SpeedFactor float64 `json:"speed_factor"` // Initial whirlwind speed scale.
	Damping     float64 `json:"damping"`      // Per-step velocity multiplier, in (0,1).
	MinSpeed    float64 `json:"min_speed"`    // Floor below which random energy is re-injected.

	// Force gains. A zero gain disables its term outright.
	PullGain       float64 `json:"pull_gain"`       // Inward pull toward the box center.
	OrbitalGain    float64 `json:"orbital_gain"`    // Differential rotation about the Y axis.
	JitterGain     float64 `json:"jitter_gain"`     // Per-axis uniform noise.
	ExpandGain     float64 `json:"expand_gain"`     // Slow outward dilation.
	TurbulenceGain float64 `json:"turbulence_gain"` // Smooth simplex-noise flow.
	Drift          Vec3    `json:"drift"`           // Constant bulk translation per step.

	// Base particle color, HSL.
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
	Lightness  float64 `json:"lightness"`

	// Draw settings.
	SelectCount int    `json:"select_count"` // K, particles per draw.
	Policy      string `json:"policy"`       // "uniform" or "maxspeed".

	// Phase timing.
	CountdownEnabled  bool          `json:"countdown_enabled"`
	CountdownFrom     int           `json:"countdown_from"`
	GoDelay           time.Duration `json:"go_delay"`
	ExplosionDuration time.Duration `json:"explosion_duration"`
	FadeDuration      time.Duration `json:"fade_duration"` // Non-winner opacity decay, time-based.
	LineUpEnabled     bool          `json:"line_up_enabled"`
	LineUpDuration    time.Duration `json:"line_up_duration"`
	LineUpSpacing     float64       `json:"line_up_spacing"` // Slot spacing along the X axis.
}

// DefaultConfig returns the reference parameter set: a 1000-particle
// whirlwind in a 200-unit box with a six-ball draw.
func DefaultConfig() Config {
	return Config{
		Count:      1000,
		HalfExtent: 100,
		Radius:     2.0,

		SpeedFactor: 0.015,
		Damping:     0.995,
		MinSpeed:    0.008,

		PullGain:       0.00005,
		OrbitalGain:    0.002,
		JitterGain:     0.0005,
		ExpandGain:     0.00002,
		TurbulenceGain: 0,
		Drift:          Vec3{},

		Hue:        240,
		Saturation: 80,
		Lightness:  65,

		SelectCount: 6,
		Policy:      PolicyUniform,

		CountdownEnabled:  true,
		CountdownFrom:     10,
		GoDelay:           500 * time.Millisecond,
		ExplosionDuration: 2 * time.Second,
		FadeDuration:      1500 * time.Millisecond,
		LineUpEnabled:     true,
		LineUpDuration:    2 * time.Second,
		LineUpSpacing:     12,
	}
}

// InvalidConfigError reports the first field found outside its
// documented range. The whole config is rejected; the prior config
// stays active.
type InvalidConfigError struct {
	Field    string
	Value    float64
	Min, Max float64
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s = %g outside [%g, %g]", e.Field, e.Value, e.Min, e.Max)
}

func rangeCheck(field string, v, min, max float64) error {
	if v < min || v > max {
		return &InvalidConfigError{Field: field, Value: v, Min: min, Max: max}
	}
	return nil
}

// Validate range-checks every field. Any violation rejects the config
// as a whole; callers must not apply a partially valid config.
func (c Config) Validate() error {
	checks := []struct {
		field    string
		v        float64
		min, max float64
	}{
		{"count", float64(c.Count), 1, 20000},
		{"half_extent", c.HalfExtent, 10, 1000},
		{"radius", c.Radius, 0.1, c.HalfExtent / 2},
		{"speed_factor", c.SpeedFactor, 0.0001, 1},
		{"damping", c.Damping, 0.5, 0.9999},
		{"min_speed", c.MinSpeed, 0, 10},
		{"pull_gain", c.PullGain, 0, 1},
		{"orbital_gain", c.OrbitalGain, 0, 1},
		{"jitter_gain", c.JitterGain, 0, 1},
		{"expand_gain", c.ExpandGain, 0, 1},
		{"turbulence_gain", c.TurbulenceGain, 0, 1},
		{"drift.x", c.Drift.X, -1, 1},
		{"drift.y", c.Drift.Y, -1, 1},
		{"drift.z", c.Drift.Z, -1, 1},
		{"hue", c.Hue, 0, 360},
		{"saturation", c.Saturation, 0, 100},
		{"lightness", c.Lightness, 0, 100},
		{"select_count", float64(c.SelectCount), 1, 100},
		{"countdown_from", float64(c.CountdownFrom), 1, 60},
		{"go_delay_ms", float64(c.GoDelay.Milliseconds()), 0, 10000},
		{"explosion_duration_ms", float64(c.ExplosionDuration.Milliseconds()), 100, 60000},
		{"fade_duration_ms", float64(c.FadeDuration.Milliseconds()), 100, 60000},
		{"line_up_duration_ms", float64(c.LineUpDuration.Milliseconds()), 100, 60000},
		{"line_up_spacing", c.LineUpSpacing, 0.1, 100},
	}

	for _, ch := range checks {
		if err := rangeCheck(ch.field, ch.v, ch.min, ch.max); err != nil {
			return err
		}
	}

	if c.Policy != PolicyUniform && c.Policy != PolicyMaxSpeed {
		return fmt.Errorf("invalid config: unknown selection policy %q", c.Policy)
	}
	return nil
}
