package preheat

import (
	"math"
	"time"
)

// DeviceID identifies a presence tracker (e.g. "person.alice").
type DeviceID string

// DevicePair binds a presence tracker to the distance sensor reporting its
// distance from home. Pairs are index-aligned as configured.
type DevicePair struct {
	DeviceID DeviceID `json:"device_id" yaml:"device_id"`
	SensorID string   `json:"sensor_id" yaml:"sensor_id"`
}

// SentinelDistance is stored for a device whose distance is unknown or has
// been reset on arrival. It is never treated as a valid previous sample.
const SentinelDistance = 999999.0

// UnavailableDistance is the reading reported by a sensor that is offline.
const UnavailableDistance = -1.0

// DeviceSample is the last known distance of a device from home.
type DeviceSample struct {
	Distance  float64   // metres, >= 0
	Timestamp time.Time // when the sample was taken
}

// valid reports whether the sample can serve as a previous sample for the
// approach-speed check.
func (s DeviceSample) valid() bool {
	return s.Distance >= 0 && s.Distance < SentinelDistance && !s.Timestamp.IsZero()
}

// TriggerKind identifies what caused an evaluation.
type TriggerKind string

const (
	TriggerPresenceChange TriggerKind = "presence_change"
	TriggerDistanceUpdate TriggerKind = "distance_update"
	TriggerPeriodicCheck  TriggerKind = "periodic_check"
)

// Trigger is the event that caused an evaluation. DeviceID and Distance are
// only meaningful for TriggerDistanceUpdate.
type Trigger struct {
	Kind     TriggerKind
	DeviceID DeviceID
	Distance float64
}

// PresenceChange returns a trigger for a change in zone occupancy.
func PresenceChange() Trigger {
	return Trigger{Kind: TriggerPresenceChange}
}

// DistanceUpdate returns a trigger for a new distance sensor reading.
// Pass UnavailableDistance when the sensor reports it is offline.
func DistanceUpdate(id DeviceID, distance float64) Trigger {
	return Trigger{Kind: TriggerDistanceUpdate, DeviceID: id, Distance: distance}
}

// PeriodicCheck returns a trigger for the periodic timeout evaluation.
func PeriodicCheck() Trigger {
	return Trigger{Kind: TriggerPeriodicCheck}
}

// hasValidReading reports whether the trigger carries a usable distance.
func (t Trigger) hasValidReading() bool {
	return t.Kind == TriggerDistanceUpdate && validDistance(t.Distance)
}

func validDistance(d float64) bool {
	return d >= 0 && !math.IsNaN(d) && !math.IsInf(d, 0)
}

// PresetMode is a thermostat preset requested by a decision.
type PresetMode string

const (
	PresetNone PresetMode = ""
	PresetHome PresetMode = "home"
	PresetAway PresetMode = "away"
)

// ThermostatCommand sets a new target temperature on one thermostat.
type ThermostatCommand struct {
	ThermostatID string  `json:"thermostat_id"`
	Setpoint     float64 `json:"setpoint"`
}

// NotificationKind identifies the reason for a notification.
type NotificationKind string

const (
	NotifyPreheatStart NotificationKind = "preheat_start"
	NotifyArrivalStop  NotificationKind = "arrival_stop"
	NotifyTimeout      NotificationKind = "timeout"
)

// Notification is emitted when a pre-heat cycle starts or ends.
type Notification struct {
	Kind     NotificationKind `json:"kind"`
	DeviceID DeviceID         `json:"device_id"`
}

// Branch names the decision-table row that produced a Decision.
type Branch string

const (
	BranchArrival      Branch = "arrival"
	BranchActiveUpdate Branch = "active_update"
	BranchStart        Branch = "preheat_start"
	BranchTimeout      Branch = "timeout"
	BranchAway         Branch = "away"
	BranchIdle         Branch = "idle"
)

// Decision is the complete outcome of one evaluation.
type Decision struct {
	Branch       Branch              `json:"branch"`
	State        State               `json:"state"`
	Commands     []ThermostatCommand `json:"commands,omitempty"`
	Preset       PresetMode          `json:"preset,omitempty"`
	Notification *Notification       `json:"notification,omitempty"`
}

// SetpointReader returns the current target temperature of a thermostat.
// ok is false when the setpoint is not known.
type SetpointReader interface {
	Setpoint(thermostatID string) (setpoint float64, ok bool)
}

// SensorReader returns the current reading of a distance sensor.
// ok is false when the sensor has not reported or cannot be read.
type SensorReader interface {
	Distance(sensorID string) (distance float64, ok bool)
}

// SetpointMap is a SetpointReader backed by a map.
type SetpointMap map[string]float64

// Setpoint implements SetpointReader.
func (m SetpointMap) Setpoint(id string) (float64, bool) {
	v, ok := m[id]
	return v, ok
}

// SensorMap is a SensorReader backed by a map.
type SensorMap map[string]float64

// Distance implements SensorReader.
func (m SensorMap) Distance(id string) (float64, bool) {
	v, ok := m[id]
	return v, ok
}
