package automation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nerrad567/gray-logic-preheat/internal/infrastructure/mqtt"
)

type subscriptionSpec struct {
	topic   string
	handler MessageHandler
}

// subscriptions lists one topic per configured zone, sensor and thermostat.
func (r *Runtime) subscriptions() []subscriptionSpec {
	topics := mqtt.Topics{}
	specs := []subscriptionSpec{{topics.PresenceState(r.cfg.Zone), r.HandleMessage}}
	for _, p := range r.cfg.Engine.Devices {
		specs = append(specs, subscriptionSpec{topics.DistanceState(p.SensorID), r.HandleMessage})
	}
	for _, t := range r.cfg.Engine.Thermostats {
		specs = append(specs, subscriptionSpec{topics.ClimateState(t), r.HandleMessage})
	}
	return specs
}

// HandleMessage routes an MQTT state message to the matching handler.
func (r *Runtime) HandleMessage(topic string, payload []byte) error {
	domain, id, ok := mqtt.ParseStateTopic(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnexpectedTopic, topic)
	}

	switch domain {
	case mqtt.DomainPresence:
		if id != r.cfg.Zone {
			return fmt.Errorf("%w: %s", ErrUnexpectedTopic, topic)
		}
		count, err := parsePresence(payload)
		if err != nil {
			return err
		}
		_, _, err = r.HandlePresence(r.ctx, count)
		return err

	case mqtt.DomainDistance:
		distance, available, err := parseDistance(payload)
		if err != nil {
			return err
		}
		_, err = r.HandleDistance(r.ctx, id, distance, available)
		return err

	case mqtt.DomainClimate:
		setpoint, err := parseClimate(payload)
		if err != nil {
			return err
		}
		r.HandleClimate(id, setpoint)
		return nil

	default:
		return fmt.Errorf("%w: %s", ErrUnexpectedTopic, topic)
	}
}

// parsePresence accepts {"count": n} or a bare number.
func parsePresence(payload []byte) (int, error) {
	var body struct {
		Count json.RawMessage `json:"count"`
	}
	raw := bytes.TrimSpace(payload)
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &body); err != nil || body.Count == nil {
			return 0, fmt.Errorf("%w: presence %q", ErrInvalidPayload, payload)
		}
		raw = body.Count
	}

	v, ok := parseNumber(raw)
	if !ok || v < 0 {
		return 0, fmt.Errorf("%w: presence %q", ErrInvalidPayload, payload)
	}
	return int(v), nil
}

// parseDistance accepts {"distance": m}, {"state": "unavailable"},
// {"state": "4200"}, a bare number, or a bare "unavailable"/"unknown".
// available is false for offline sensors and negative readings.
func parseDistance(payload []byte) (distance float64, available bool, err error) {
	raw := bytes.TrimSpace(payload)
	if len(raw) > 0 && raw[0] == '{' {
		var body struct {
			Distance json.RawMessage `json:"distance"`
			State    json.RawMessage `json:"state"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return 0, false, fmt.Errorf("%w: distance %q", ErrInvalidPayload, payload)
		}
		switch {
		case body.Distance != nil:
			raw = body.Distance
		case body.State != nil:
			raw = body.State
		default:
			return 0, false, fmt.Errorf("%w: distance %q", ErrInvalidPayload, payload)
		}
	}

	if isUnavailable(raw) {
		return 0, false, nil
	}
	v, ok := parseNumber(raw)
	if !ok {
		return 0, false, fmt.Errorf("%w: distance %q", ErrInvalidPayload, payload)
	}
	if v < 0 {
		return 0, false, nil
	}
	return v, true, nil
}

// parseClimate accepts {"setpoint": t}.
func parseClimate(payload []byte) (float64, error) {
	var body struct {
		Setpoint json.RawMessage `json:"setpoint"`
	}
	if err := json.Unmarshal(payload, &body); err != nil || body.Setpoint == nil {
		return 0, fmt.Errorf("%w: climate %q", ErrInvalidPayload, payload)
	}
	v, ok := parseNumber(body.Setpoint)
	if !ok {
		return 0, fmt.Errorf("%w: climate %q", ErrInvalidPayload, payload)
	}
	return v, nil
}

// parseNumber reads a JSON number, a quoted numeric string or raw text.
func parseNumber(raw []byte) (float64, bool) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func isUnavailable(raw []byte) bool {
	s := strings.ToLower(strings.Trim(strings.TrimSpace(string(raw)), `"`))
	switch s {
	case "", "null", "unavailable", "unknown", "none":
		return true
	}
	return false
}
