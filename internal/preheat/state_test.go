package preheat

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestParseState_WireFormat(t *testing.T) {
	raw := `{
		"preheatGloballyActive": true,
		"preheatCooldownUntil": 1768498200,
		"preheatTriggeredBy": "person.alice",
		"preheatLastActiveUpdate": 1768498500.5,
		"devices": {
			"person.alice": {"distance": 4000, "timestamp": 1768498500.5},
			"person.bob": {"distance": "12000.25", "timestamp": "1768498400"}
		}
	}`

	s := ParseState(raw)

	if !s.Active {
		t.Error("Active = false, want true")
	}
	if s.TriggeredBy != "person.alice" {
		t.Errorf("TriggeredBy = %q, want person.alice", s.TriggeredBy)
	}
	if want := time.Unix(1768498200, 0).UTC(); !s.CooldownUntil.Equal(want) {
		t.Errorf("CooldownUntil = %v, want %v", s.CooldownUntil, want)
	}
	if want := time.UnixMilli(1768498500500).UTC(); !s.LastActiveUpdate.Equal(want) {
		t.Errorf("LastActiveUpdate = %v, want %v", s.LastActiveUpdate, want)
	}
	if got := s.Devices["person.bob"].Distance; got != 12000.25 {
		t.Errorf("bob distance = %v, want 12000.25", got)
	}
	if len(s.Devices) != 2 {
		t.Errorf("len(Devices) = %d, want 2", len(s.Devices))
	}
}

func TestParseState_Defaults(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty string", raw: ""},
		{name: "whitespace", raw: "   "},
		{name: "not json", raw: "unknown"},
		{name: "json array", raw: "[1,2]"},
		{name: "truncated object", raw: `{"preheatGloballyActive": tr`},
		{name: "wrong field type", raw: `{"preheatGloballyActive": "yes"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ParseState(tt.raw)
			if !reflect.DeepEqual(s, EmptyState()) {
				t.Errorf("ParseState(%q) = %+v, want EmptyState", tt.raw, s)
			}

			if _, err := DecodeState(tt.raw); !errors.Is(err, ErrMalformedState) {
				t.Errorf("DecodeState(%q) error = %v, want ErrMalformedState", tt.raw, err)
			}
		})
	}
}

func TestParseState_MissingFields(t *testing.T) {
	s, err := DecodeState(`{"preheatGloballyActive": false}`)
	if err != nil {
		t.Fatalf("DecodeState() error = %v", err)
	}
	if s.Devices == nil {
		t.Error("Devices = nil, want empty map")
	}
	if !s.CooldownUntil.IsZero() || !s.LastActiveUpdate.IsZero() || s.TriggeredBy != "" {
		t.Errorf("state = %+v, want zero defaults", s)
	}
}

func TestParseState_TriggeredByAliases(t *testing.T) {
	for _, v := range []string{`null`, `""`, `"none"`, `"None"`, `"unknown"`} {
		s := ParseState(`{"preheatTriggeredBy": ` + v + `}`)
		if s.TriggeredBy != "" {
			t.Errorf("preheatTriggeredBy %s decoded as %q, want empty", v, s.TriggeredBy)
		}
	}
}

func TestParseState_DropsInvalidSamples(t *testing.T) {
	s := ParseState(`{"devices": {
		"person.alice": {"distance": -1, "timestamp": 1768498500},
		"person.bob": {"distance": 300, "timestamp": 1768498500},
		"": {"distance": 10, "timestamp": 1768498500}
	}}`)

	if _, ok := s.Devices["person.alice"]; ok {
		t.Error("negative distance sample kept")
	}
	if _, ok := s.Devices["person.bob"]; !ok {
		t.Error("valid sample dropped")
	}
	if len(s.Devices) != 1 {
		t.Errorf("len(Devices) = %d, want 1", len(s.Devices))
	}
}

func TestEncodeState_RoundTrip(t *testing.T) {
	in := EmptyState()
	in.Active = true
	in.TriggeredBy = alice
	in.CooldownUntil = baseTime.Add(15 * time.Minute)
	in.LastActiveUpdate = baseTime
	in.Devices[alice] = DeviceSample{Distance: 4000.5, Timestamp: baseTime}

	raw, err := EncodeState(in)
	if err != nil {
		t.Fatalf("EncodeState() error = %v", err)
	}

	out, err := DecodeState(raw)
	if err != nil {
		t.Fatalf("DecodeState() error = %v", err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}

func TestEncodeState_FieldNames(t *testing.T) {
	raw, err := EncodeState(EmptyState())
	if err != nil {
		t.Fatalf("EncodeState() error = %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := map[string]string{
		"preheatGloballyActive":   "false",
		"preheatCooldownUntil":    "0",
		"preheatTriggeredBy":      "null",
		"preheatLastActiveUpdate": "0",
		"devices":                 "{}",
	}
	if len(fields) != len(want) {
		t.Errorf("encoded %d fields, want %d: %s", len(fields), len(want), raw)
	}
	for name, value := range want {
		got, ok := fields[name]
		if !ok {
			t.Errorf("field %q missing from %s", name, raw)
			continue
		}
		if strings.TrimSpace(string(got)) != value {
			t.Errorf("field %q = %s, want %s", name, got, value)
		}
	}
}

func TestReconcile(t *testing.T) {
	pairs := []DevicePair{{DeviceID: alice, SensorID: "sensor.alice_distance"}}

	t.Run("prunes unconfigured devices", func(t *testing.T) {
		s := EmptyState()
		s.Devices[alice] = DeviceSample{Distance: 1, Timestamp: baseTime}
		s.Devices[bob] = DeviceSample{Distance: 2, Timestamp: baseTime}

		got := s.Reconcile(pairs)
		if _, ok := got.Devices[bob]; ok {
			t.Error("bob kept after reconcile")
		}
		if _, ok := s.Devices[bob]; !ok {
			t.Error("Reconcile modified its receiver")
		}
	})

	t.Run("clears cycle of removed device", func(t *testing.T) {
		s := activeState(bob, baseTime)
		got := s.Reconcile(pairs)
		if got.Active || got.TriggeredBy != "" || !got.LastActiveUpdate.IsZero() {
			t.Errorf("state = %+v, want cleared cycle", got)
		}
	})

	t.Run("keeps cycle of configured device", func(t *testing.T) {
		s := activeState(alice, baseTime)
		got := s.Reconcile(pairs)
		if !got.Active || got.TriggeredBy != alice {
			t.Errorf("state = %+v, want active for %s", got, alice)
		}
	})

	t.Run("nil devices", func(t *testing.T) {
		got := State{}.Reconcile(pairs)
		if got.Devices == nil {
			t.Error("Devices = nil, want empty map")
		}
	})
}
