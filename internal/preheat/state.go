package preheat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// State is the record persisted between evaluations.
//
// It is treated as an immutable input to Decide; every Decision carries a
// complete replacement. Zero times encode as 0 on the wire.
type State struct {
	// Active is true while a pre-heat cycle is running.
	Active bool

	// CooldownUntil is the earliest time a new cycle may start after an arrival.
	CooldownUntil time.Time

	// TriggeredBy is the device whose approach started the current cycle.
	// Empty when no cycle is running.
	TriggeredBy DeviceID

	// LastActiveUpdate is the last time TriggeredBy reported a distance.
	LastActiveUpdate time.Time

	// Devices holds the last sample per configured device.
	Devices map[DeviceID]DeviceSample
}

// EmptyState returns the documented default record.
func EmptyState() State {
	return State{Devices: make(map[DeviceID]DeviceSample)}
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	cpy := s
	cpy.Devices = make(map[DeviceID]DeviceSample, len(s.Devices))
	for id, sample := range s.Devices {
		cpy.Devices[id] = sample
	}
	return cpy
}

// Reconcile prunes samples for devices that are no longer configured and
// clears a running cycle whose triggering device has been removed.
// The receiver is not modified.
func (s State) Reconcile(pairs []DevicePair) State {
	configured := make(map[DeviceID]struct{}, len(pairs))
	for _, p := range pairs {
		configured[p.DeviceID] = struct{}{}
	}

	out := s.Clone()
	for id := range out.Devices {
		if _, ok := configured[id]; !ok {
			delete(out.Devices, id)
		}
	}

	if out.Active {
		if _, ok := configured[out.TriggeredBy]; !ok {
			out.Active = false
		}
	}
	if !out.Active {
		out.TriggeredBy = ""
		out.LastActiveUpdate = time.Time{}
	}
	return out
}

// wireState is the JSON layout shared with existing deployments.
type wireState struct {
	PreheatGloballyActive   bool                        `json:"preheatGloballyActive"`
	PreheatCooldownUntil    flexFloat                   `json:"preheatCooldownUntil"`
	PreheatTriggeredBy      *string                     `json:"preheatTriggeredBy"`
	PreheatLastActiveUpdate flexFloat                   `json:"preheatLastActiveUpdate"`
	Devices                 map[string]wireDeviceSample `json:"devices"`
}

type wireDeviceSample struct {
	Distance  flexFloat `json:"distance"`
	Timestamp flexFloat `json:"timestamp"`
}

// MarshalJSON encodes the state in the persisted wire format.
func (s State) MarshalJSON() ([]byte, error) {
	w := wireState{
		PreheatGloballyActive:   s.Active,
		PreheatCooldownUntil:    flexFloat(toUnix(s.CooldownUntil)),
		PreheatLastActiveUpdate: flexFloat(toUnix(s.LastActiveUpdate)),
		Devices:                 make(map[string]wireDeviceSample, len(s.Devices)),
	}
	if s.TriggeredBy != "" {
		id := string(s.TriggeredBy)
		w.PreheatTriggeredBy = &id
	}
	for id, sample := range s.Devices {
		w.Devices[string(id)] = wireDeviceSample{
			Distance:  flexFloat(sample.Distance),
			Timestamp: flexFloat(toUnix(sample.Timestamp)),
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the persisted wire format. Missing fields take
// their empty defaults; device entries with an unusable distance are dropped.
func (s *State) UnmarshalJSON(data []byte) error {
	var w wireState
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	out := EmptyState()
	out.Active = w.PreheatGloballyActive
	out.CooldownUntil = fromUnix(float64(w.PreheatCooldownUntil))
	out.LastActiveUpdate = fromUnix(float64(w.PreheatLastActiveUpdate))
	if w.PreheatTriggeredBy != nil {
		out.TriggeredBy = normaliseDeviceID(*w.PreheatTriggeredBy)
	}
	for id, sample := range w.Devices {
		d := float64(sample.Distance)
		if id == "" || !validDistance(d) {
			continue
		}
		out.Devices[DeviceID(id)] = DeviceSample{
			Distance:  d,
			Timestamp: fromUnix(float64(sample.Timestamp)),
		}
	}

	*s = out
	return nil
}

// DecodeState strictly decodes a persisted state blob.
func DecodeState(raw string) (State, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || !strings.HasPrefix(trimmed, "{") {
		return EmptyState(), fmt.Errorf("%w: not a JSON object", ErrMalformedState)
	}

	var s State
	if err := json.Unmarshal([]byte(trimmed), &s); err != nil {
		return EmptyState(), fmt.Errorf("%w: %w", ErrMalformedState, err)
	}
	return s, nil
}

// ParseState decodes a persisted state blob, substituting EmptyState when
// the blob is missing or malformed. It never fails.
func ParseState(raw string) State {
	s, err := DecodeState(raw)
	if err != nil {
		return EmptyState()
	}
	return s
}

// EncodeState renders the state as its persisted string form.
func EncodeState(s State) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encoding state: %w", err)
	}
	return string(data), nil
}

func normaliseDeviceID(v string) DeviceID {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "", "none", "null", "unknown":
		return ""
	}
	return DeviceID(v)
}

// toUnix converts a time to fractional Unix seconds with millisecond
// precision. The zero time encodes as 0.
func toUnix(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixMilli()) / 1000
}

// fromUnix is the inverse of toUnix. Non-positive values decode as the zero time.
func fromUnix(sec float64) time.Time {
	if sec <= 0 || math.IsNaN(sec) || math.IsInf(sec, 0) {
		return time.Time{}
	}
	return time.UnixMilli(int64(math.Round(sec * 1000))).UTC()
}

// flexFloat decodes numbers that may arrive as JSON numbers, numeric
// strings, RFC 3339 timestamps or null.
type flexFloat float64

func (f flexFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return []byte(strconv.FormatFloat(v, 'f', -1, 64)), nil
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			*f = flexFloat(v)
			return nil
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			*f = flexFloat(toUnix(t))
			return nil
		}
		return fmt.Errorf("not a number: %q", s)
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}
