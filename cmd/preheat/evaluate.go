package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-preheat/internal/automation"
	"github.com/nerrad567/gray-logic-preheat/internal/preheat"
)

// evaluateOptions are the flags of the evaluate command.
type evaluateOptions struct {
	statePath string
	trigger   string
	device    string
	distance  float64
	occupied  bool
	now       string
	setpoints map[string]string
	sensors   map[string]string
}

func newEvaluateCmd(root *rootOptions) *cobra.Command {
	opts := &evaluateOptions{}

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Dry-run one pre-heat decision and print it as JSON",
		Long: `Evaluate runs the decision engine once against a state file and a
trigger, using the devices, thermostats and tunables from the configuration.
Nothing is persisted or published.`,
		Example: `  graylogic-preheat evaluate --state state.json --trigger distance \
      --device person.alice --distance 4000 --setpoint climate.living=20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}

			input, err := opts.input()
			if err != nil {
				return err
			}

			rc, err := automation.RuntimeConfigFrom(cfg)
			if err != nil {
				return err
			}
			engine := preheat.NewEngine(rc.Engine)
			return writeJSON(cmd.OutOrStdout(), engine.Decide(input))
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.statePath, "state", "", "state JSON file (empty state when omitted)")
	f.StringVar(&opts.trigger, "trigger", "", "trigger kind: presence, distance or tick")
	f.StringVar(&opts.device, "device", "", "tracker id for a distance trigger")
	f.Float64Var(&opts.distance, "distance", preheat.UnavailableDistance, "distance in metres for a distance trigger (negative = unavailable)")
	f.BoolVar(&opts.occupied, "occupied", false, "treat the presence zone as occupied")
	f.StringVar(&opts.now, "now", "", "evaluation time, RFC3339 (default: current time)")
	f.StringToStringVar(&opts.setpoints, "setpoint", nil, "current thermostat setpoints, thermostat=°C")
	f.StringToStringVar(&opts.sensors, "sensor", nil, "current sensor readings, sensor=metres")
	_ = cmd.MarkFlagRequired("trigger")

	return cmd
}

// input assembles the engine input from the flags.
func (o *evaluateOptions) input() (preheat.Input, error) {
	trigger, err := o.parseTrigger()
	if err != nil {
		return preheat.Input{}, err
	}

	now := time.Now()
	if o.now != "" {
		if now, err = time.Parse(time.RFC3339, o.now); err != nil {
			return preheat.Input{}, fmt.Errorf("parsing --now: %w", err)
		}
	}

	state := preheat.EmptyState()
	if o.statePath != "" {
		raw, err := os.ReadFile(o.statePath)
		if err != nil {
			return preheat.Input{}, fmt.Errorf("reading state file: %w", err)
		}
		state = preheat.ParseState(string(raw))
	}

	setpoints, err := parseFloatMap("setpoint", o.setpoints)
	if err != nil {
		return preheat.Input{}, err
	}
	sensors, err := parseFloatMap("sensor", o.sensors)
	if err != nil {
		return preheat.Input{}, err
	}

	return preheat.Input{
		Now:          now,
		ZoneOccupied: o.occupied,
		Trigger:      trigger,
		State:        state,
		Setpoints:    preheat.SetpointMap(setpoints),
		Sensors:      preheat.SensorMap(sensors),
	}, nil
}

func (o *evaluateOptions) parseTrigger() (preheat.Trigger, error) {
	switch strings.ToLower(o.trigger) {
	case "presence":
		return preheat.PresenceChange(), nil
	case "tick", "periodic":
		return preheat.PeriodicCheck(), nil
	case "distance":
		if o.device == "" {
			return preheat.Trigger{}, fmt.Errorf("--device is required for a distance trigger")
		}
		distance := o.distance
		if distance < 0 {
			distance = preheat.UnavailableDistance
		}
		return preheat.DistanceUpdate(preheat.DeviceID(o.device), distance), nil
	default:
		return preheat.Trigger{}, fmt.Errorf("unknown trigger %q (want presence, distance or tick)", o.trigger)
	}
}

func parseFloatMap(flag string, in map[string]string) (map[string]float64, error) {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("--%s %s=%s: %w", flag, k, v, err)
		}
		out[k] = f
	}
	return out, nil
}
