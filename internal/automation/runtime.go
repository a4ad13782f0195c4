package automation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-preheat/internal/audit"
	"github.com/nerrad567/gray-logic-preheat/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-preheat/internal/preheat"
	"github.com/nerrad567/gray-logic-preheat/internal/statestore"
)

// Logger defines the logging interface used by the runtime.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Publisher sends MQTT messages.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MessageHandler is the callback signature for received messages.
type MessageHandler = func(topic string, payload []byte) error

// Subscriber registers MQTT subscriptions.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler MessageHandler) error
}

// Telemetry records decisions and readings. Implemented by *influxdb.Client.
type Telemetry interface {
	WritePreheatDecision(d influxdb.PreheatDecision)
	WriteDeviceDistance(deviceID, sensorID string, distance float64, at time.Time)
	WriteSetpoint(thermostatID string, setpoint float64, at time.Time)
}

// AuditRecorder stores cycle decisions. Implemented by *audit.SQLiteRepository.
type AuditRecorder interface {
	Create(ctx context.Context, entry *audit.Entry) error
}

// Runtime hosts the pre-heat engine.
//
// It keeps the latest zone occupancy, thermostat setpoints and sensor
// readings from MQTT, and runs one evaluation at a time: load state,
// decide, persist, then dispatch the decision's actions.
//
// All methods are safe for concurrent use.
type Runtime struct {
	cfg       RuntimeConfig
	engine    *preheat.Engine
	store     statestore.Store
	publisher Publisher
	telemetry Telemetry
	audit     AuditRecorder
	logger    Logger
	now       func() time.Time

	// evalMu serialises Evaluate so no write interleaves between the
	// state read and the state write.
	evalMu sync.Mutex

	cacheMu   sync.RWMutex
	zoneCount int
	zoneKnown bool
	setpoints preheat.SetpointMap
	distances preheat.SensorMap

	// ctx is the context passed to Start, used by MQTT callbacks.
	ctx context.Context
}

// NewRuntime creates a runtime. telemetry and logger may be nil.
func NewRuntime(cfg RuntimeConfig, store statestore.Store, publisher Publisher, telemetry Telemetry, logger Logger) *Runtime {
	if logger == nil {
		logger = noopLogger{}
	}

	engine := preheat.NewEngine(cfg.Engine)
	engine.SetLogger(logger)

	return &Runtime{
		cfg:       cfg,
		engine:    engine,
		store:     store,
		publisher: publisher,
		telemetry: telemetry,
		logger:    logger,
		now:       time.Now,
		setpoints: make(preheat.SetpointMap),
		distances: make(preheat.SensorMap),
		ctx:       context.Background(),
	}
}

// SetClock replaces the time source. Intended for tests and dry runs.
func (r *Runtime) SetClock(now func() time.Time) {
	r.evalMu.Lock()
	defer r.evalMu.Unlock()
	r.now = now
}

// SetAudit enables the decision history. Only decisions that start or end
// a cycle are recorded.
func (r *Runtime) SetAudit(rec AuditRecorder) {
	r.evalMu.Lock()
	defer r.evalMu.Unlock()
	r.audit = rec
}

// Engine returns the decision engine.
func (r *Runtime) Engine() *preheat.Engine {
	return r.engine
}

// Start subscribes to the zone, the configured distance sensors and the
// thermostats, then runs the periodic check until ctx is cancelled.
// It returns once the subscriptions are in place.
func (r *Runtime) Start(ctx context.Context, sub Subscriber) error {
	r.ctx = ctx

	for _, s := range r.subscriptions() {
		if err := sub.Subscribe(s.topic, r.cfg.QoS, s.handler); err != nil {
			return fmt.Errorf("subscribing to %s: %w", s.topic, err)
		}
	}

	go r.tickLoop(ctx)

	r.logger.Info("pre-heat runtime started",
		"zone", r.cfg.Zone,
		"devices", len(r.cfg.Engine.Devices),
		"thermostats", len(r.cfg.Engine.Thermostats),
		"check_interval", r.cfg.CheckInterval,
	)
	return nil
}

func (r *Runtime) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Tick(ctx); err != nil {
				r.logger.Warn("periodic pre-heat check failed", "error", err)
			}
		}
	}
}

// HandlePresence records the zone's occupancy count and evaluates a
// presence change. Repeated identical counts are ignored.
func (r *Runtime) HandlePresence(ctx context.Context, count int) (preheat.Decision, bool, error) {
	if count < 0 {
		count = 0
	}

	r.cacheMu.Lock()
	changed := !r.zoneKnown || r.zoneCount != count
	r.zoneCount, r.zoneKnown = count, true
	r.cacheMu.Unlock()

	if !changed {
		return preheat.Decision{}, false, nil
	}

	d, err := r.Evaluate(ctx, preheat.PresenceChange())
	return d, true, err
}

// HandleDistance records a distance reading and evaluates a distance
// update for the tracker paired with sensorID. A reading that is not
// available is passed to the engine as UnavailableDistance.
func (r *Runtime) HandleDistance(ctx context.Context, sensorID string, distance float64, available bool) (preheat.Decision, error) {
	device, ok := r.engine.DeviceForSensor(sensorID)
	if !ok {
		return preheat.Decision{}, fmt.Errorf("%w: %s", ErrUnknownSensor, sensorID)
	}

	r.cacheMu.Lock()
	if available {
		r.distances[sensorID] = distance
	} else {
		delete(r.distances, sensorID)
		distance = preheat.UnavailableDistance
	}
	r.cacheMu.Unlock()

	if available && r.telemetry != nil {
		r.telemetry.WriteDeviceDistance(string(device), sensorID, distance, r.clock())
	}

	return r.Evaluate(ctx, preheat.DistanceUpdate(device, distance))
}

// HandleClimate records a thermostat's current setpoint. It does not
// trigger an evaluation.
func (r *Runtime) HandleClimate(thermostatID string, setpoint float64) {
	r.cacheMu.Lock()
	r.setpoints[thermostatID] = setpoint
	r.cacheMu.Unlock()
}

// Tick evaluates the periodic activity-timeout check.
func (r *Runtime) Tick(ctx context.Context) (preheat.Decision, error) {
	return r.Evaluate(ctx, preheat.PeriodicCheck())
}

// Evaluate runs one read-decide-write cycle for trigger.
//
// The new state is persisted before any action is dispatched. When the
// state cannot be read or written nothing is dispatched and the error
// wraps ErrStateUnavailable. Dispatch failures are logged, not retried,
// and reported as ErrDispatchFailed.
func (r *Runtime) Evaluate(ctx context.Context, trigger preheat.Trigger) (preheat.Decision, error) {
	r.evalMu.Lock()
	defer r.evalMu.Unlock()

	now := r.now()

	state, err := r.loadState(ctx)
	if err != nil {
		return preheat.Decision{}, err
	}

	decision := r.engine.Decide(r.input(now, trigger, state))

	if err := r.saveState(ctx, decision.State); err != nil {
		return decision, err
	}

	r.logDecision(trigger, decision)
	r.recordAudit(ctx, now, trigger, decision)

	if err := r.dispatch(now, trigger, decision); err != nil {
		return decision, err
	}
	return decision, nil
}

// State returns the persisted state with defaults applied.
func (r *Runtime) State(ctx context.Context) (preheat.State, error) {
	r.evalMu.Lock()
	defer r.evalMu.Unlock()
	return r.loadState(ctx)
}

// Reset replaces the persisted state with the empty state.
func (r *Runtime) Reset(ctx context.Context) error {
	r.evalMu.Lock()
	defer r.evalMu.Unlock()
	return r.saveState(ctx, preheat.EmptyState())
}

func (r *Runtime) clock() time.Time {
	r.evalMu.Lock()
	defer r.evalMu.Unlock()
	return r.now()
}

func (r *Runtime) loadState(ctx context.Context) (preheat.State, error) {
	raw, err := r.store.Get(ctx, r.cfg.StateKey)
	switch {
	case errors.Is(err, statestore.ErrNotFound):
		return preheat.EmptyState(), nil
	case err != nil:
		return preheat.State{}, fmt.Errorf("%w: reading %s: %w", ErrStateUnavailable, r.cfg.StateKey, err)
	}

	state, err := preheat.DecodeState(raw)
	if err != nil {
		r.logger.Warn("persisted pre-heat state unreadable, using defaults", "key", r.cfg.StateKey, "error", err)
	}
	return state, nil
}

func (r *Runtime) saveState(ctx context.Context, state preheat.State) error {
	encoded, err := preheat.EncodeState(state)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStateUnavailable, err)
	}
	if err := r.store.Set(ctx, r.cfg.StateKey, encoded); err != nil {
		return fmt.Errorf("%w: writing %s: %w", ErrStateUnavailable, r.cfg.StateKey, err)
	}
	return nil
}

// input snapshots the caches for one evaluation.
func (r *Runtime) input(now time.Time, trigger preheat.Trigger, state preheat.State) preheat.Input {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	setpoints := make(preheat.SetpointMap, len(r.setpoints))
	for k, v := range r.setpoints {
		setpoints[k] = v
	}
	distances := make(preheat.SensorMap, len(r.distances))
	for k, v := range r.distances {
		distances[k] = v
	}

	return preheat.Input{
		Now:          now,
		ZoneOccupied: r.zoneCount > 0,
		Trigger:      trigger,
		State:        state,
		Setpoints:    setpoints,
		Sensors:      distances,
	}
}

// recordAudit appends cycle transitions to the decision history. Failures
// are logged only.
func (r *Runtime) recordAudit(ctx context.Context, now time.Time, trigger preheat.Trigger, d preheat.Decision) {
	if r.audit == nil {
		return
	}
	switch d.Branch {
	case preheat.BranchStart, preheat.BranchArrival, preheat.BranchTimeout:
	default:
		return
	}

	details := map[string]any{}
	if len(d.Commands) > 0 {
		details["commands"] = d.Commands
	}
	if d.Preset != preheat.PresetNone {
		details["preset"] = d.Preset
	}
	if d.Notification != nil {
		details["notification"] = d.Notification.Kind
	}
	if !d.State.CooldownUntil.IsZero() {
		details["cooldown_until"] = d.State.CooldownUntil.UTC()
	}

	entry := &audit.Entry{
		Rule:        r.cfg.RuleID,
		Branch:      string(d.Branch),
		Trigger:     string(trigger.Kind),
		DeviceID:    string(trigger.DeviceID),
		TriggeredBy: string(d.State.TriggeredBy),
		Active:      d.State.Active,
		Details:     details,
		CreatedAt:   now,
	}
	if d.Notification != nil && entry.TriggeredBy == "" {
		entry.TriggeredBy = string(d.Notification.DeviceID)
	}
	if err := r.audit.Create(ctx, entry); err != nil {
		r.logger.Warn("recording pre-heat decision failed", "branch", d.Branch, "error", err)
	}
}

func (r *Runtime) logDecision(trigger preheat.Trigger, d preheat.Decision) {
	args := []any{
		"branch", d.Branch,
		"trigger", trigger.Kind,
		"device_id", trigger.DeviceID,
		"active", d.State.Active,
	}
	switch d.Branch {
	case preheat.BranchIdle, preheat.BranchActiveUpdate:
		r.logger.Debug("pre-heat evaluated", args...)
	default:
		r.logger.Info("pre-heat decision", append(args, "commands", len(d.Commands))...)
	}
}
