package automation

import (
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-preheat/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-preheat/internal/preheat"
)

// DefaultRuleID names the pre-heat rule in topics, sources and telemetry.
const DefaultRuleID = "preheat"

// RuntimeConfig is the static configuration of a Runtime.
type RuntimeConfig struct {
	RuleID        string
	Zone          string
	StateKey      string
	CheckInterval time.Duration
	QoS           byte
	Notify        config.NotifyConfig
	Engine        preheat.Config
}

// RuntimeConfigFrom builds a RuntimeConfig from the loaded configuration.
// Tunables the engine could never act on, such as a speed-check window no
// wider than the minimum sample gap, are rejected with ErrInvalidTunable.
func RuntimeConfigFrom(cfg *config.Config) (RuntimeConfig, error) {
	p := cfg.Preheat

	if err := tunableOverrides(p.Tunables).Validate(); err != nil {
		return RuntimeConfig{}, fmt.Errorf("preheat.tunables: %w", err)
	}

	devices := make([]preheat.DevicePair, 0, len(p.Devices))
	for _, d := range p.Devices {
		devices = append(devices, preheat.DevicePair{
			DeviceID: preheat.DeviceID(d.Tracker),
			SensorID: d.DistanceSensor,
		})
	}

	return RuntimeConfig{
		RuleID:        DefaultRuleID,
		Zone:          p.Zone,
		StateKey:      p.StateKey,
		CheckInterval: p.CheckInterval,
		QoS:           byte(cfg.MQTT.QoS), // #nosec G115 -- validated to 0..2
		Notify:        p.Notify,
		Engine: preheat.Config{
			Devices:     devices,
			Thermostats: append([]string(nil), p.Thermostats...),
			Tunables:    TunablesFromConfig(p.Tunables),
		},
	}, nil
}

// TunablesFromConfig starts from the engine defaults and overrides every
// tunable that is set in cfg. Out-of-range values fall back to defaults.
func TunablesFromConfig(cfg config.TunablesConfig) preheat.Tunables {
	return tunableOverrides(cfg).WithDefaults()
}

func tunableOverrides(cfg config.TunablesConfig) preheat.Tunables {
	t := preheat.DefaultTunables()

	if cfg.DistanceThreshold != nil {
		t.DistanceThreshold = *cfg.DistanceThreshold
	}
	if cfg.TempIncrement != nil {
		t.TempIncrement = *cfg.TempIncrement
	}
	if cfg.CooldownMinutes != nil {
		t.Cooldown = minutes(*cfg.CooldownMinutes)
	}
	if cfg.ActivityTimeoutMinutes != nil {
		t.ActivityTimeout = minutes(*cfg.ActivityTimeoutMinutes)
	}
	if cfg.MinApproachSpeed != nil {
		t.MinApproachSpeed = *cfg.MinApproachSpeed
	}
	if cfg.MaxTimeDiffMinutes != nil {
		t.MaxTimeDiff = minutes(*cfg.MaxTimeDiffMinutes)
	}
	if cfg.MaxPreheatTemp != nil {
		t.MaxPreheatTemp = *cfg.MaxPreheatTemp
	}
	return t
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}
