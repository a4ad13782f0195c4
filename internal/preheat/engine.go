package preheat

import (
	"math"
	"time"
)

// Logger defines the logging interface used by the Engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config is the static configuration of an Engine.
type Config struct {
	// Devices lists tracker/sensor pairs in configured order.
	Devices []DevicePair

	// Thermostats lists the thermostats raised on pre-heat start.
	Thermostats []string

	// Tunables are normalised with WithDefaults by NewEngine.
	Tunables Tunables
}

// Input is everything that varies between evaluations.
type Input struct {
	Now          time.Time
	ZoneOccupied bool
	Trigger      Trigger
	State        State

	// Setpoints is consulted only when pre-heat starts. May be nil.
	Setpoints SetpointReader

	// Sensors is consulted only when the away branch rebuilds samples. May be nil.
	Sensors SensorReader
}

// Engine evaluates the pre-heat decision table.
type Engine struct {
	devices     []DevicePair
	sensorOf    map[DeviceID]string
	thermostats []string
	tunables    Tunables
	logger      Logger
}

// NewEngine creates an engine for the given configuration.
func NewEngine(cfg Config) *Engine {
	devices := append([]DevicePair(nil), cfg.Devices...)
	sensorOf := make(map[DeviceID]string, len(devices))
	for _, p := range devices {
		sensorOf[p.DeviceID] = p.SensorID
	}

	return &Engine{
		devices:     devices,
		sensorOf:    sensorOf,
		thermostats: append([]string(nil), cfg.Thermostats...),
		tunables:    cfg.Tunables.WithDefaults(),
		logger:      noopLogger{},
	}
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	e.logger = logger
}

// Tunables returns the normalised tunables in use.
func (e *Engine) Tunables() Tunables {
	return e.tunables
}

// Devices returns the configured device pairs.
func (e *Engine) Devices() []DevicePair {
	return append([]DevicePair(nil), e.devices...)
}

// DeviceForSensor returns the device paired with a distance sensor.
func (e *Engine) DeviceForSensor(sensorID string) (DeviceID, bool) {
	for _, p := range e.devices {
		if p.SensorID == sensorID {
			return p.DeviceID, true
		}
	}
	return "", false
}

// Decide evaluates one trigger and returns the complete outcome. It always
// returns a fully populated State and never fails.
func (e *Engine) Decide(in Input) Decision {
	state := in.State.Reconcile(e.devices)

	branch := e.classify(in, state)
	e.logger.Debug("preheat branch selected",
		"branch", branch,
		"trigger", in.Trigger.Kind,
		"device_id", in.Trigger.DeviceID,
		"zone_occupied", in.ZoneOccupied,
		"active", state.Active,
	)

	switch branch {
	case BranchArrival:
		return e.arrive(in, state)
	case BranchActiveUpdate:
		return e.recordActiveUpdate(in, state)
	case BranchStart:
		return e.start(in, state)
	case BranchTimeout:
		return e.timeout(state)
	case BranchAway:
		return e.away(in, state)
	default:
		return Decision{Branch: BranchIdle, State: state}
	}
}

// classify maps an input to exactly one branch. Each predicate below is
// pure and excludes the others by construction:
//
//	arrival        occupied ∧ ¬periodic
//	active_update  ¬occupied ∧ active ∧ valid update for a configured device
//	preheat_start  ¬occupied ∧ ¬active ∧ start conditions hold
//	timeout        periodic ∧ timed out
//	idle           periodic ∧ ¬timed out
//	away           ¬occupied ∧ ¬periodic ∧ none of the above
//
// Periodic ticks never carry a reading, so they only reach timeout or idle.
func (e *Engine) classify(in Input, state State) Branch {
	switch {
	case e.isArrival(in):
		return BranchArrival
	case e.isActiveUpdate(in, state):
		return BranchActiveUpdate
	case e.canStart(in, state):
		return BranchStart
	case e.isTimedOut(in, state):
		return BranchTimeout
	case in.Trigger.Kind == TriggerPeriodicCheck:
		return BranchIdle
	default:
		return BranchAway
	}
}

func (e *Engine) isArrival(in Input) bool {
	return in.ZoneOccupied && in.Trigger.Kind != TriggerPeriodicCheck
}

func (e *Engine) isActiveUpdate(in Input, state State) bool {
	return !in.ZoneOccupied &&
		state.Active &&
		in.Trigger.hasValidReading() &&
		e.isConfigured(in.Trigger.DeviceID)
}

func (e *Engine) canStart(in Input, state State) bool {
	if in.ZoneOccupied || state.Active {
		return false
	}
	if !in.Trigger.hasValidReading() || !e.isConfigured(in.Trigger.DeviceID) {
		return false
	}
	if !in.Now.After(state.CooldownUntil) {
		return false
	}
	if in.Trigger.Distance >= e.tunables.DistanceThreshold {
		return false
	}
	prev, ok := state.Devices[in.Trigger.DeviceID]
	return e.approaching(in.Now, in.Trigger.Distance, prev, ok)
}

func (e *Engine) isTimedOut(in Input, state State) bool {
	return in.Trigger.Kind == TriggerPeriodicCheck &&
		state.Active &&
		e.tunables.ActivityTimeout > 0 &&
		state.TriggeredBy != "" &&
		in.Now.Sub(state.LastActiveUpdate) > e.tunables.ActivityTimeout
}

// approaching reports whether the closing speed implied by the previous
// sample and the current distance meets MinApproachSpeed within the
// allowed sampling window.
func (e *Engine) approaching(now time.Time, current float64, prev DeviceSample, havePrev bool) bool {
	if !havePrev || !prev.valid() {
		return false
	}
	if current >= prev.Distance {
		return false
	}

	dt := now.Sub(prev.Timestamp)
	if dt <= minSampleGap || dt >= e.tunables.MaxTimeDiff {
		return false
	}

	required := (e.tunables.MinApproachSpeed / 60) * dt.Seconds()
	return prev.Distance-current >= required
}

func (e *Engine) arrive(in Input, state State) Decision {
	next := state.Clone()
	var note *Notification
	if state.Active {
		note = &Notification{Kind: NotifyArrivalStop, DeviceID: state.TriggeredBy}
	}

	for _, p := range e.devices {
		next.Devices[p.DeviceID] = DeviceSample{Distance: SentinelDistance, Timestamp: in.Now}
	}
	next.Active = false
	next.TriggeredBy = ""
	next.LastActiveUpdate = time.Time{}

	cooldown := in.Now.Add(e.tunables.Cooldown)
	if cooldown.After(next.CooldownUntil) {
		next.CooldownUntil = cooldown
	}

	return Decision{
		Branch:       BranchArrival,
		State:        next,
		Preset:       PresetHome,
		Notification: note,
	}
}

func (e *Engine) recordActiveUpdate(in Input, state State) Decision {
	next := state.Clone()
	id := in.Trigger.DeviceID
	next.Devices[id] = DeviceSample{Distance: in.Trigger.Distance, Timestamp: in.Now}
	if id == state.TriggeredBy {
		next.LastActiveUpdate = in.Now
	}
	return Decision{Branch: BranchActiveUpdate, State: next}
}

func (e *Engine) start(in Input, state State) Decision {
	id := in.Trigger.DeviceID
	commands := make([]ThermostatCommand, 0, len(e.thermostats))
	for _, thermostat := range e.thermostats {
		var (
			current float64
			ok      bool
		)
		if in.Setpoints != nil {
			current, ok = in.Setpoints.Setpoint(thermostat)
		}
		if !ok || math.IsNaN(current) || math.IsInf(current, 0) {
			e.logger.Warn("thermostat setpoint unknown, skipping", "thermostat_id", thermostat)
			continue
		}
		commands = append(commands, ThermostatCommand{
			ThermostatID: thermostat,
			Setpoint:     e.preheatSetpoint(current),
		})
	}

	next := state.Clone()
	next.Active = true
	next.TriggeredBy = id
	next.LastActiveUpdate = in.Now
	next.Devices[id] = DeviceSample{Distance: in.Trigger.Distance, Timestamp: in.Now}

	return Decision{
		Branch:       BranchStart,
		State:        next,
		Commands:     commands,
		Notification: &Notification{Kind: NotifyPreheatStart, DeviceID: id},
	}
}

// preheatSetpoint raises current by TempIncrement, rounded to 0.1 °C and
// capped at MaxPreheatTemp.
func (e *Engine) preheatSetpoint(current float64) float64 {
	raised := math.Round((current+e.tunables.TempIncrement)*10) / 10
	return math.Min(raised, e.tunables.MaxPreheatTemp)
}

func (e *Engine) timeout(state State) Decision {
	next := state.Clone()
	device := state.TriggeredBy
	next.Active = false
	next.TriggeredBy = ""
	next.LastActiveUpdate = time.Time{}

	return Decision{
		Branch:       BranchTimeout,
		State:        next,
		Notification: &Notification{Kind: NotifyTimeout, DeviceID: device},
	}
}

func (e *Engine) away(in Input, state State) Decision {
	next := state.Clone()
	for _, p := range e.devices {
		next.Devices[p.DeviceID] = DeviceSample{
			Distance:  e.currentDistance(in, p),
			Timestamp: in.Now,
		}
	}
	next.Active = false
	next.TriggeredBy = ""
	next.LastActiveUpdate = time.Time{}

	return Decision{Branch: BranchAway, State: next, Preset: PresetAway}
}

// currentDistance returns the freshest distance for a device: the trigger
// value when this device fired, otherwise the sensor state, falling back to
// SentinelDistance when neither is usable.
func (e *Engine) currentDistance(in Input, p DevicePair) float64 {
	if in.Trigger.Kind == TriggerDistanceUpdate && in.Trigger.DeviceID == p.DeviceID {
		if validDistance(in.Trigger.Distance) {
			return in.Trigger.Distance
		}
		return SentinelDistance
	}
	if in.Sensors == nil {
		return SentinelDistance
	}
	d, ok := in.Sensors.Distance(p.SensorID)
	if !ok || !validDistance(d) {
		return SentinelDistance
	}
	return d
}

func (e *Engine) isConfigured(id DeviceID) bool {
	_, ok := e.sensorOf[id]
	return ok
}
