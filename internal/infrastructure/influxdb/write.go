package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the pre-heat service.
const (
	MeasurementPreheatDecision = "preheat_decision"
	MeasurementDeviceDistance  = "device_distance"
	MeasurementSetpoint        = "thermostat_setpoint"
)

// PreheatDecision is one engine decision as recorded in InfluxDB.
type PreheatDecision struct {
	Rule        string // tag, e.g. "preheat"
	Branch      string // tag, e.g. "preheat_start"
	Trigger     string // tag, e.g. "distance_update"
	TriggeredBy string // field, empty when no device owns the cycle
	Active      bool
	Commands    int
	Cooldown    time.Duration // remaining cooldown at decision time
	Time        time.Time
}

// WritePreheatDecision records an engine decision.
func (c *Client) WritePreheatDecision(d PreheatDecision) {
	c.writePoint(decisionPoint(d))
}

// WriteDeviceDistance records a tracker's distance reading in metres.
func (c *Client) WriteDeviceDistance(deviceID, sensorID string, distance float64, at time.Time) {
	c.writePoint(distancePoint(deviceID, sensorID, distance, at))
}

// WriteSetpoint records a setpoint commanded to a thermostat.
func (c *Client) WriteSetpoint(thermostatID string, setpoint float64, at time.Time) {
	c.writePoint(write.NewPoint(
		MeasurementSetpoint,
		map[string]string{"thermostat_id": thermostatID},
		map[string]any{"setpoint": setpoint},
		at,
	))
}

func (c *Client) writePoint(p *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(p)
}

func decisionPoint(d PreheatDecision) *write.Point {
	fields := map[string]any{
		"active":           d.Active,
		"commands":         d.Commands,
		"cooldown_seconds": d.Cooldown.Seconds(),
	}
	if d.TriggeredBy != "" {
		fields["triggered_by"] = d.TriggeredBy
	}

	at := d.Time
	if at.IsZero() {
		at = time.Now()
	}

	return write.NewPoint(
		MeasurementPreheatDecision,
		map[string]string{
			"rule":    d.Rule,
			"branch":  d.Branch,
			"trigger": d.Trigger,
		},
		fields,
		at,
	)
}

func distancePoint(deviceID, sensorID string, distance float64, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementDeviceDistance,
		map[string]string{
			"device_id": deviceID,
			"sensor_id": sensorID,
		},
		map[string]any{"distance_m": distance},
		at,
	)
}
