// Package preheat decides when to raise thermostat setpoints ahead of an
// occupant arriving home.
//
// The engine is a pure function over a trigger, the previously persisted
// state and the current readings. It performs no I/O: thermostat setpoints
// and distance sensor values are pulled through small reader interfaces,
// and the caller is responsible for applying the returned Decision
// (publishing commands, sending notifications, writing the state back).
//
// Architecture:
//
//	┌─────────────────────────────────────────────────────────┐
//	│                    Engine.Decide                         │
//	│  1. Reconcile state against configured devices           │
//	│  2. Classify trigger into exactly one Branch             │
//	│       arrival │ active_update │ preheat_start │          │
//	│       timeout │ away          │ idle                     │
//	│  3. Apply branch → Decision{State, Commands, Preset,     │
//	│                              Notification}               │
//	└─────────────────────────────────────────────────────────┘
//
// # Persisted state
//
// State is stored by the host as a single JSON object (see State.MarshalJSON).
// The field names are a compatibility contract with existing deployments and
// must not change. ParseState never fails: malformed input yields EmptyState.
//
// # Thread Safety
//
// Engine is immutable after construction and safe for concurrent use, but
// callers must serialise the read-decide-write cycle on the persisted state
// themselves. Decide assumes no other writer interleaves.
//
// # Usage
//
//	engine := preheat.NewEngine(preheat.Config{
//	    Devices:     []preheat.DevicePair{{DeviceID: "person.alice", SensorID: "sensor.alice_distance"}},
//	    Thermostats: []string{"climate.living_room"},
//	    Tunables:    preheat.DefaultTunables(),
//	})
//
//	decision := engine.Decide(preheat.Input{
//	    Now:       time.Now(),
//	    Trigger:   preheat.DistanceUpdate("person.alice", 4000),
//	    State:     preheat.ParseState(raw),
//	    Setpoints: setpoints,
//	    Sensors:   sensors,
//	})
package preheat
