package preheat

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Default tunable values, substituted when a tunable is missing or invalid.
const (
	DefaultDistanceThreshold      = 5000.0 // metres
	DefaultTempIncrement          = 2.0    // °C
	DefaultCooldownMinutes        = 15
	DefaultActivityTimeoutMinutes = 60
	DefaultMinApproachSpeed       = 100.0 // metres per minute
	DefaultMaxTimeDiffMinutes     = 5
	DefaultMaxPreheatTemp         = 24.0 // °C
)

// minSampleGap is the smallest interval between two samples that the
// approach-speed check will consider meaningful.
const minSampleGap = 5 * time.Second

// Tunables holds the user-adjustable thresholds of the engine.
type Tunables struct {
	// DistanceThreshold is the distance (m) below which an approach may start pre-heat.
	DistanceThreshold float64

	// TempIncrement is added to each thermostat's setpoint on start (°C).
	TempIncrement float64

	// Cooldown suppresses new cycles after an arrival.
	Cooldown time.Duration

	// ActivityTimeout abandons a cycle when the triggering device goes quiet.
	// Zero disables the timeout.
	ActivityTimeout time.Duration

	// MinApproachSpeed is the minimum closing speed (m/min) between two samples.
	MinApproachSpeed float64

	// MaxTimeDiff is the oldest previous sample usable for the speed check.
	MaxTimeDiff time.Duration

	// MaxPreheatTemp caps every pre-heat setpoint (°C).
	MaxPreheatTemp float64
}

// DefaultTunables returns the documented defaults.
func DefaultTunables() Tunables {
	return Tunables{
		DistanceThreshold: DefaultDistanceThreshold,
		TempIncrement:     DefaultTempIncrement,
		Cooldown:          DefaultCooldownMinutes * time.Minute,
		ActivityTimeout:   DefaultActivityTimeoutMinutes * time.Minute,
		MinApproachSpeed:  DefaultMinApproachSpeed,
		MaxTimeDiff:       DefaultMaxTimeDiffMinutes * time.Minute,
		MaxPreheatTemp:    DefaultMaxPreheatTemp,
	}
}

// WithDefaults returns a copy where every out-of-range value is replaced by
// its default. Zero is a valid Cooldown, ActivityTimeout and MinApproachSpeed.
func (t Tunables) WithDefaults() Tunables {
	def := DefaultTunables()
	out := t

	if !positive(out.DistanceThreshold) {
		out.DistanceThreshold = def.DistanceThreshold
	}
	if !positive(out.TempIncrement) {
		out.TempIncrement = def.TempIncrement
	}
	if out.Cooldown < 0 {
		out.Cooldown = def.Cooldown
	}
	if out.ActivityTimeout < 0 {
		out.ActivityTimeout = def.ActivityTimeout
	}
	if out.MinApproachSpeed < 0 || math.IsNaN(out.MinApproachSpeed) || math.IsInf(out.MinApproachSpeed, 0) {
		out.MinApproachSpeed = def.MinApproachSpeed
	}
	if out.MaxTimeDiff <= 0 {
		out.MaxTimeDiff = def.MaxTimeDiff
	}
	if !positive(out.MaxPreheatTemp) {
		out.MaxPreheatTemp = def.MaxPreheatTemp
	}
	return out
}

// Validate reports every out-of-range value. The engine itself never
// rejects tunables; this is for configuration loading.
func (t Tunables) Validate() error {
	var errs []string
	if !positive(t.DistanceThreshold) {
		errs = append(errs, "distance_threshold must be > 0")
	}
	if !positive(t.TempIncrement) {
		errs = append(errs, "temp_increment must be > 0")
	}
	if t.Cooldown < 0 {
		errs = append(errs, "cooldown must be >= 0")
	}
	if t.ActivityTimeout < 0 {
		errs = append(errs, "activity_timeout must be >= 0")
	}
	if t.MinApproachSpeed < 0 {
		errs = append(errs, "min_approach_speed must be >= 0")
	}
	if t.MaxTimeDiff <= minSampleGap {
		errs = append(errs, fmt.Sprintf("max_time_diff must be > %v", minSampleGap))
	}
	if !positive(t.MaxPreheatTemp) {
		errs = append(errs, "max_preheat_temp must be > 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTunable, strings.Join(errs, "; "))
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
