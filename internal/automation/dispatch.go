package automation

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-preheat/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-preheat/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-preheat/internal/preheat"
)

// Climate commands understood by the thermostat bridges.
const (
	CommandSetPresetMode  = "set_preset_mode"
	CommandSetTemperature = "set_temperature"
)

// CommandMessage is the payload published on a thermostat command topic.
type CommandMessage struct {
	ID         string         `json:"id"`
	DeviceID   string         `json:"device_id"`
	Command    string         `json:"command"`
	Parameters map[string]any `json:"parameters"`
	Source     string         `json:"source"`
	Timestamp  time.Time      `json:"timestamp"`
}

// NotificationMessage is the payload published on a UI notification topic.
type NotificationMessage struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Kind      string    `json:"kind"`
	DeviceID  string    `json:"device_id"`
	Timestamp time.Time `json:"timestamp"`
}

// FiredEvent is published when a decision changes something.
type FiredEvent struct {
	ID          string    `json:"id"`
	RuleID      string    `json:"rule_id"`
	Branch      string    `json:"branch"`
	Trigger     string    `json:"trigger"`
	DeviceID    string    `json:"device_id,omitempty"`
	TriggeredBy string    `json:"triggered_by,omitempty"`
	Active      bool      `json:"active"`
	Commands    int       `json:"commands"`
	Timestamp   time.Time `json:"timestamp"`
}

// notificationText returns the title and body for a notification.
func notificationText(n preheat.Notification) (title, message string) {
	device := string(n.DeviceID)
	if device == "" {
		device = "A tracked device"
	}
	switch n.Kind {
	case preheat.NotifyPreheatStart:
		return "Pre-heat started", device + " is approaching home, raising thermostats"
	case preheat.NotifyArrivalStop:
		return "Pre-heat stopped", device + " arrived home"
	case preheat.NotifyTimeout:
		return "Pre-heat cancelled", "No update from " + device + " within the activity timeout"
	default:
		return "Pre-heat", string(n.Kind)
	}
}

// dispatch publishes everything a persisted decision asks for. Every
// action is attempted; failures are logged and joined.
func (r *Runtime) dispatch(now time.Time, trigger preheat.Trigger, d preheat.Decision) error {
	var errs []error
	record := func(what string, err error) {
		if err == nil {
			return
		}
		r.logger.Error("pre-heat dispatch failed", "action", what, "branch", d.Branch, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", what, err))
	}

	if d.Preset != preheat.PresetNone {
		for _, thermostat := range r.cfg.Engine.Thermostats {
			record("preset "+thermostat, r.publishCommand(now, thermostat, CommandSetPresetMode,
				map[string]any{"preset_mode": string(d.Preset)}))
		}
	}

	for _, cmd := range d.Commands {
		err := r.publishCommand(now, cmd.ThermostatID, CommandSetTemperature,
			map[string]any{"temperature": cmd.Setpoint})
		record("setpoint "+cmd.ThermostatID, err)
		if err != nil {
			continue
		}
		r.cacheMu.Lock()
		r.setpoints[cmd.ThermostatID] = cmd.Setpoint
		r.cacheMu.Unlock()
		if r.telemetry != nil {
			r.telemetry.WriteSetpoint(cmd.ThermostatID, cmd.Setpoint, now)
		}
	}

	if d.Notification != nil && r.cfg.Notify.Enabled {
		record("notification", r.publishNotification(now, *d.Notification))
	}

	record("state mirror", r.publishStateMirror(d.State))

	if d.Branch != preheat.BranchIdle {
		record("fired event", r.publishFired(now, trigger, d))
	}

	if r.telemetry != nil {
		r.telemetry.WritePreheatDecision(influxdb.PreheatDecision{
			Rule:        r.cfg.RuleID,
			Branch:      string(d.Branch),
			Trigger:     string(trigger.Kind),
			TriggeredBy: string(d.State.TriggeredBy),
			Active:      d.State.Active,
			Commands:    len(d.Commands),
			Cooldown:    max(d.State.CooldownUntil.Sub(now), 0),
			Time:        now,
		})
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrDispatchFailed, errors.Join(errs...))
	}
	return nil
}

func (r *Runtime) publishCommand(now time.Time, thermostat, command string, params map[string]any) error {
	return r.publishJSON(mqtt.Topics{}.ClimateCommand(thermostat), CommandMessage{
		ID:         uuid.NewString(),
		DeviceID:   thermostat,
		Command:    command,
		Parameters: params,
		Source:     "automation:" + r.cfg.RuleID,
		Timestamp:  now.UTC(),
	}, false)
}

func (r *Runtime) publishNotification(now time.Time, n preheat.Notification) error {
	title, message := notificationText(n)
	return r.publishJSON(mqtt.Topics{}.UINotification(r.cfg.Notify.Target), NotificationMessage{
		ID:        uuid.NewString(),
		Title:     title,
		Message:   message,
		Kind:      string(n.Kind),
		DeviceID:  string(n.DeviceID),
		Timestamp: now.UTC(),
	}, false)
}

func (r *Runtime) publishStateMirror(state preheat.State) error {
	encoded, err := preheat.EncodeState(state)
	if err != nil {
		return err
	}
	return r.publisher.Publish(mqtt.Topics{}.PreheatState(), []byte(encoded), r.cfg.QoS, true)
}

func (r *Runtime) publishFired(now time.Time, trigger preheat.Trigger, d preheat.Decision) error {
	return r.publishJSON(mqtt.Topics{}.AutomationFired(r.cfg.RuleID), FiredEvent{
		ID:          uuid.NewString(),
		RuleID:      r.cfg.RuleID,
		Branch:      string(d.Branch),
		Trigger:     string(trigger.Kind),
		DeviceID:    string(trigger.DeviceID),
		TriggeredBy: string(d.State.TriggeredBy),
		Active:      d.State.Active,
		Commands:    len(d.Commands),
		Timestamp:   now.UTC(),
	}, false)
}

func (r *Runtime) publishJSON(topic string, v any, retained bool) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshalling payload for %s: %w", topic, err)
	}
	if err := r.publisher.Publish(topic, payload, r.cfg.QoS, retained); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}
