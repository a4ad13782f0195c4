package preheat

import (
	"math/rand"
	"reflect"
	"testing"
	"time"
)

// ─── Helpers ────────────────────────────────────────────────────────────────

var baseTime = time.Date(2026, 1, 15, 17, 30, 0, 0, time.UTC)

const (
	alice DeviceID = "person.alice"
	bob   DeviceID = "person.bob"
)

func testPairs() []DevicePair {
	return []DevicePair{
		{DeviceID: alice, SensorID: "sensor.alice_distance"},
		{DeviceID: bob, SensorID: "sensor.bob_distance"},
	}
}

func newTestEngine(t *testing.T, mutate func(*Tunables)) *Engine {
	t.Helper()
	tun := DefaultTunables()
	if mutate != nil {
		mutate(&tun)
	}
	return NewEngine(Config{
		Devices:     testPairs(),
		Thermostats: []string{"climate.living", "climate.bedroom"},
		Tunables:    tun,
	})
}

func stateWithSample(id DeviceID, distance float64, at time.Time) State {
	s := EmptyState()
	s.Devices[id] = DeviceSample{Distance: distance, Timestamp: at}
	return s
}

func activeState(id DeviceID, lastUpdate time.Time) State {
	s := EmptyState()
	s.Active = true
	s.TriggeredBy = id
	s.LastActiveUpdate = lastUpdate
	s.Devices[id] = DeviceSample{Distance: 3000, Timestamp: lastUpdate}
	return s
}

func setpoints() SetpointMap {
	return SetpointMap{"climate.living": 20.0, "climate.bedroom": 23.5}
}

// ─── Arrival ────────────────────────────────────────────────────────────────

func TestDecide_ArrivalSetsHomeAndCooldown(t *testing.T) {
	e := newTestEngine(t, nil)

	d := e.Decide(Input{
		Now:          baseTime,
		ZoneOccupied: true,
		Trigger:      PresenceChange(),
		State:        EmptyState(),
	})

	if d.Branch != BranchArrival {
		t.Fatalf("Branch = %v, want %v", d.Branch, BranchArrival)
	}
	if d.Preset != PresetHome {
		t.Errorf("Preset = %q, want %q", d.Preset, PresetHome)
	}
	if d.State.Active {
		t.Error("Active = true after arrival, want false")
	}
	want := baseTime.Add(15 * time.Minute)
	if !d.State.CooldownUntil.Equal(want) {
		t.Errorf("CooldownUntil = %v, want %v", d.State.CooldownUntil, want)
	}
	if d.Notification != nil {
		t.Errorf("Notification = %+v, want nil when pre-heat was not active", d.Notification)
	}
	for _, p := range testPairs() {
		sample, ok := d.State.Devices[p.DeviceID]
		if !ok {
			t.Fatalf("device %s missing after arrival", p.DeviceID)
		}
		if sample.Distance != SentinelDistance || !sample.Timestamp.Equal(baseTime) {
			t.Errorf("device %s sample = %+v, want sentinel at now", p.DeviceID, sample)
		}
	}
}

func TestDecide_ArrivalStopsActivePreheat(t *testing.T) {
	e := newTestEngine(t, nil)

	d := e.Decide(Input{
		Now:          baseTime,
		ZoneOccupied: true,
		Trigger:      DistanceUpdate(alice, 20),
		State:        activeState(alice, baseTime.Add(-2*time.Minute)),
	})

	if d.Branch != BranchArrival {
		t.Fatalf("Branch = %v, want %v", d.Branch, BranchArrival)
	}
	if d.Notification == nil || d.Notification.Kind != NotifyArrivalStop || d.Notification.DeviceID != alice {
		t.Errorf("Notification = %+v, want arrival_stop for %s", d.Notification, alice)
	}
	if d.State.Active || d.State.TriggeredBy != "" {
		t.Errorf("state = %+v, want inactive with no trigger", d.State)
	}
	if len(d.Commands) != 0 {
		t.Errorf("Commands = %v, want none", d.Commands)
	}
}

func TestDecide_ArrivalCooldownNeverMovesBackward(t *testing.T) {
	e := newTestEngine(t, nil)
	state := EmptyState()

	var prev time.Time
	for i := 0; i < 5; i++ {
		now := baseTime.Add(time.Duration(i) * 3 * time.Minute)
		d := e.Decide(Input{Now: now, ZoneOccupied: true, Trigger: PresenceChange(), State: state})
		if d.State.CooldownUntil.Before(prev) {
			t.Fatalf("arrival %d: CooldownUntil %v moved backward from %v", i, d.State.CooldownUntil, prev)
		}
		if want := now.Add(15 * time.Minute); !d.State.CooldownUntil.Equal(want) {
			t.Errorf("arrival %d: CooldownUntil = %v, want %v", i, d.State.CooldownUntil, want)
		}
		prev = d.State.CooldownUntil
		state = d.State
	}
}

// ─── Start ──────────────────────────────────────────────────────────────────

func TestDecide_StartsPreheatOnFastApproach(t *testing.T) {
	e := newTestEngine(t, nil)
	prevAt := baseTime.Add(-120 * time.Second)

	d := e.Decide(Input{
		Now:       baseTime,
		Trigger:   DistanceUpdate(alice, 4000),
		State:     stateWithSample(alice, 6000, prevAt),
		Setpoints: setpoints(),
	})

	if d.Branch != BranchStart {
		t.Fatalf("Branch = %v, want %v", d.Branch, BranchStart)
	}
	if !d.State.Active || d.State.TriggeredBy != alice || !d.State.LastActiveUpdate.Equal(baseTime) {
		t.Errorf("state = %+v, want active, triggered by %s at now", d.State, alice)
	}
	if got := d.State.Devices[alice]; got.Distance != 4000 || !got.Timestamp.Equal(baseTime) {
		t.Errorf("alice sample = %+v, want 4000 at now", got)
	}
	wantCmds := []ThermostatCommand{
		{ThermostatID: "climate.living", Setpoint: 22.0},
		{ThermostatID: "climate.bedroom", Setpoint: 24.0},
	}
	if !reflect.DeepEqual(d.Commands, wantCmds) {
		t.Errorf("Commands = %v, want %v", d.Commands, wantCmds)
	}
	if d.Preset != PresetNone {
		t.Errorf("Preset = %q, want none", d.Preset)
	}
	if d.Notification == nil || d.Notification.Kind != NotifyPreheatStart || d.Notification.DeviceID != alice {
		t.Errorf("Notification = %+v, want preheat_start for %s", d.Notification, alice)
	}
}

func TestDecide_StaleSampleFallsThroughToAway(t *testing.T) {
	e := newTestEngine(t, nil)
	prevAt := baseTime.Add(-600 * time.Second)

	d := e.Decide(Input{
		Now:       baseTime,
		Trigger:   DistanceUpdate(alice, 4000),
		State:     stateWithSample(alice, 6000, prevAt),
		Setpoints: setpoints(),
		Sensors:   SensorMap{"sensor.bob_distance": 12000},
	})

	if d.Branch != BranchAway {
		t.Fatalf("Branch = %v, want %v", d.Branch, BranchAway)
	}
	if d.Preset != PresetAway {
		t.Errorf("Preset = %q, want %q", d.Preset, PresetAway)
	}
	if len(d.Commands) != 0 {
		t.Errorf("Commands = %v, want none", d.Commands)
	}
	if got := d.State.Devices[alice].Distance; got != 4000 {
		t.Errorf("alice distance = %v, want trigger value 4000", got)
	}
	if got := d.State.Devices[bob].Distance; got != 12000 {
		t.Errorf("bob distance = %v, want sensor value 12000", got)
	}
}

func TestDecide_StartBlockedDuringCooldown(t *testing.T) {
	e := newTestEngine(t, nil)
	state := stateWithSample(alice, 6000, baseTime.Add(-120*time.Second))

	for _, cooldown := range []time.Time{baseTime, baseTime.Add(time.Second), baseTime.Add(10 * time.Minute)} {
		state.CooldownUntil = cooldown
		d := e.Decide(Input{Now: baseTime, Trigger: DistanceUpdate(alice, 4000), State: state, Setpoints: setpoints()})
		if d.Branch == BranchStart {
			t.Errorf("cooldown until %v: pre-heat started at %v", cooldown, baseTime)
		}
	}
}

func TestDecide_StartConditions(t *testing.T) {
	prevAt := baseTime.Add(-120 * time.Second)

	tests := []struct {
		name     string
		trigger  Trigger
		state    State
		occupied bool
		want     Branch
	}{
		{
			name:    "beyond threshold",
			trigger: DistanceUpdate(alice, 5000),
			state:   stateWithSample(alice, 8000, prevAt),
			want:    BranchAway,
		},
		{
			name:    "moving away",
			trigger: DistanceUpdate(alice, 4000),
			state:   stateWithSample(alice, 3000, prevAt),
			want:    BranchAway,
		},
		{
			name:    "no previous sample",
			trigger: DistanceUpdate(alice, 4000),
			state:   EmptyState(),
			want:    BranchAway,
		},
		{
			name:    "previous sample is sentinel",
			trigger: DistanceUpdate(alice, 4000),
			state:   stateWithSample(alice, SentinelDistance, prevAt),
			want:    BranchAway,
		},
		{
			name:    "samples too close together",
			trigger: DistanceUpdate(alice, 4000),
			state:   stateWithSample(alice, 6000, baseTime.Add(-5*time.Second)),
			want:    BranchAway,
		},
		{
			name:    "unavailable reading",
			trigger: DistanceUpdate(alice, UnavailableDistance),
			state:   stateWithSample(alice, 6000, prevAt),
			want:    BranchAway,
		},
		{
			name:    "unknown device",
			trigger: DistanceUpdate("person.carol", 4000),
			state:   stateWithSample("person.carol", 6000, prevAt),
			want:    BranchAway,
		},
		{
			name:    "presence change never starts",
			trigger: PresenceChange(),
			state:   stateWithSample(alice, 6000, prevAt),
			want:    BranchAway,
		},
		{
			name:    "periodic check never starts",
			trigger: PeriodicCheck(),
			state:   stateWithSample(alice, 6000, prevAt),
			want:    BranchIdle,
		},
		{
			name:     "occupied wins",
			trigger:  DistanceUpdate(alice, 4000),
			state:    stateWithSample(alice, 6000, prevAt),
			occupied: true,
			want:     BranchArrival,
		},
		{
			name:    "fast approach",
			trigger: DistanceUpdate(alice, 4000),
			state:   stateWithSample(alice, 6000, prevAt),
			want:    BranchStart,
		},
	}

	e := newTestEngine(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := e.Decide(Input{
				Now:          baseTime,
				ZoneOccupied: tt.occupied,
				Trigger:      tt.trigger,
				State:        tt.state,
				Setpoints:    setpoints(),
			})
			if d.Branch != tt.want {
				t.Errorf("Branch = %v, want %v", d.Branch, tt.want)
			}
		})
	}
}

func TestDecide_SlowApproachNeverStarts(t *testing.T) {
	e := newTestEngine(t, func(tun *Tunables) {
		tun.MinApproachSpeed = 100
		tun.DistanceThreshold = 50000
	})
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		dtSec := 6 + rng.Float64()*290 // within the sampling window
		required := (100.0 / 60) * dtSec
		closed := rng.Float64() * required * 0.99 // strictly slower than required
		prev := 1000 + rng.Float64()*40000

		d := e.Decide(Input{
			Now:       baseTime,
			Trigger:   DistanceUpdate(alice, prev-closed),
			State:     stateWithSample(alice, prev, baseTime.Add(-time.Duration(dtSec*float64(time.Second)))),
			Setpoints: setpoints(),
		})
		if d.Branch == BranchStart {
			t.Fatalf("iteration %d: started with closing %.1fm over %.1fs (required %.1fm)", i, closed, dtSec, required)
		}
	}
}

func TestDecide_SetpointCapped(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	prevAt := baseTime.Add(-120 * time.Second)

	for i := 0; i < 200; i++ {
		increment := 0.1 + rng.Float64()*10
		maxTemp := 15 + rng.Float64()*15
		e := newTestEngine(t, func(tun *Tunables) {
			tun.TempIncrement = increment
			tun.MaxPreheatTemp = maxTemp
		})

		d := e.Decide(Input{
			Now:     baseTime,
			Trigger: DistanceUpdate(alice, 4000),
			State:   stateWithSample(alice, 6000, prevAt),
			Setpoints: SetpointMap{
				"climate.living":  10 + rng.Float64()*20,
				"climate.bedroom": 10 + rng.Float64()*20,
			},
		})
		if d.Branch != BranchStart {
			t.Fatalf("iteration %d: Branch = %v, want %v", i, d.Branch, BranchStart)
		}
		for _, cmd := range d.Commands {
			if cmd.Setpoint > maxTemp {
				t.Fatalf("iteration %d: %s setpoint %.2f exceeds cap %.2f", i, cmd.ThermostatID, cmd.Setpoint, maxTemp)
			}
		}
	}
}

func TestDecide_StartSkipsUnknownThermostat(t *testing.T) {
	e := newTestEngine(t, nil)

	d := e.Decide(Input{
		Now:       baseTime,
		Trigger:   DistanceUpdate(alice, 4000),
		State:     stateWithSample(alice, 6000, baseTime.Add(-120*time.Second)),
		Setpoints: SetpointMap{"climate.living": 19.5},
	})

	if d.Branch != BranchStart {
		t.Fatalf("Branch = %v, want %v", d.Branch, BranchStart)
	}
	want := []ThermostatCommand{{ThermostatID: "climate.living", Setpoint: 21.5}}
	if !reflect.DeepEqual(d.Commands, want) {
		t.Errorf("Commands = %v, want %v", d.Commands, want)
	}
}

// ─── Active updates ─────────────────────────────────────────────────────────

func TestDecide_ActiveUpdateRefreshesHeartbeat(t *testing.T) {
	e := newTestEngine(t, nil)
	started := baseTime.Add(-10 * time.Minute)

	d := e.Decide(Input{
		Now:     baseTime,
		Trigger: DistanceUpdate(alice, 1500),
		State:   activeState(alice, started),
	})

	if d.Branch != BranchActiveUpdate {
		t.Fatalf("Branch = %v, want %v", d.Branch, BranchActiveUpdate)
	}
	if !d.State.LastActiveUpdate.Equal(baseTime) {
		t.Errorf("LastActiveUpdate = %v, want %v", d.State.LastActiveUpdate, baseTime)
	}
	if d.Preset != PresetNone || len(d.Commands) != 0 || d.Notification != nil {
		t.Errorf("decision = %+v, want no side effects", d)
	}
	if !d.State.Active || d.State.TriggeredBy != alice {
		t.Errorf("state = %+v, want still active for %s", d.State, alice)
	}
}

func TestDecide_ActiveUpdateFromOtherDevice(t *testing.T) {
	e := newTestEngine(t, nil)
	started := baseTime.Add(-10 * time.Minute)

	d := e.Decide(Input{
		Now:     baseTime,
		Trigger: DistanceUpdate(bob, 800),
		State:   activeState(alice, started),
	})

	if d.Branch != BranchActiveUpdate {
		t.Fatalf("Branch = %v, want %v", d.Branch, BranchActiveUpdate)
	}
	if !d.State.LastActiveUpdate.Equal(started) {
		t.Errorf("LastActiveUpdate = %v, want unchanged %v", d.State.LastActiveUpdate, started)
	}
	if got := d.State.Devices[bob]; got.Distance != 800 {
		t.Errorf("bob sample = %+v, want 800", got)
	}
}

// ─── Timeout ────────────────────────────────────────────────────────────────

func TestDecide_TimeoutFiresOnce(t *testing.T) {
	e := newTestEngine(t, nil)
	state := activeState(alice, baseTime.Add(-61*time.Minute))

	first := e.Decide(Input{Now: baseTime, Trigger: PeriodicCheck(), State: state})
	if first.Branch != BranchTimeout {
		t.Fatalf("first tick Branch = %v, want %v", first.Branch, BranchTimeout)
	}
	if first.Notification == nil || first.Notification.Kind != NotifyTimeout || first.Notification.DeviceID != alice {
		t.Errorf("Notification = %+v, want timeout for %s", first.Notification, alice)
	}
	if first.State.Active || first.State.TriggeredBy != "" || !first.State.LastActiveUpdate.IsZero() {
		t.Errorf("state = %+v, want cleared", first.State)
	}
	if len(first.Commands) != 0 || first.Preset != PresetNone {
		t.Errorf("decision = %+v, want no thermostat changes", first)
	}

	second := e.Decide(Input{Now: baseTime.Add(5 * time.Minute), Trigger: PeriodicCheck(), State: first.State})
	if second.Branch != BranchIdle {
		t.Errorf("second tick Branch = %v, want %v", second.Branch, BranchIdle)
	}
	if second.Notification != nil {
		t.Errorf("second tick Notification = %+v, want nil", second.Notification)
	}
	if !reflect.DeepEqual(second.State, first.State) {
		t.Errorf("second tick changed state: %+v -> %+v", first.State, second.State)
	}
}

func TestDecide_TimeoutConditions(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		silence time.Duration
		want    Branch
	}{
		{name: "within timeout", timeout: 60 * time.Minute, silence: 30 * time.Minute, want: BranchIdle},
		{name: "exactly at timeout", timeout: 60 * time.Minute, silence: 60 * time.Minute, want: BranchIdle},
		{name: "past timeout", timeout: 60 * time.Minute, silence: 61 * time.Minute, want: BranchTimeout},
		{name: "timeout disabled", timeout: 0, silence: 24 * time.Hour, want: BranchIdle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, func(tun *Tunables) { tun.ActivityTimeout = tt.timeout })
			d := e.Decide(Input{
				Now:     baseTime,
				Trigger: PeriodicCheck(),
				State:   activeState(alice, baseTime.Add(-tt.silence)),
			})
			if d.Branch != tt.want {
				t.Errorf("Branch = %v, want %v", d.Branch, tt.want)
			}
			if tt.want == BranchIdle && !d.State.Active {
				t.Error("idle tick cleared an active cycle")
			}
		})
	}
}

func TestDecide_OccupiedTickIsIdle(t *testing.T) {
	e := newTestEngine(t, nil)

	arrived := e.Decide(Input{Now: baseTime, ZoneOccupied: true, Trigger: PresenceChange(), State: EmptyState()})
	if arrived.Branch != BranchArrival {
		t.Fatalf("Branch = %v, want %v", arrived.Branch, BranchArrival)
	}
	cooldown := arrived.State.CooldownUntil

	state := arrived.State
	for i := 1; i <= 12; i++ {
		d := e.Decide(Input{
			Now:          baseTime.Add(time.Duration(i) * 5 * time.Minute),
			ZoneOccupied: true,
			Trigger:      PeriodicCheck(),
			State:        state,
		})
		if d.Branch != BranchIdle {
			t.Fatalf("tick %d Branch = %v, want %v", i, d.Branch, BranchIdle)
		}
		if d.Preset != PresetNone || len(d.Commands) != 0 || d.Notification != nil {
			t.Fatalf("tick %d decision = %+v, want no side effects", i, d)
		}
		if !d.State.CooldownUntil.Equal(cooldown) {
			t.Fatalf("tick %d CooldownUntil = %v, want %v", i, d.State.CooldownUntil, cooldown)
		}
		if !reflect.DeepEqual(d.State, state) {
			t.Fatalf("tick %d changed state: %+v -> %+v", i, state, d.State)
		}
		state = d.State
	}
}

func TestDecide_OccupiedTickStillTimesOutStaleCycle(t *testing.T) {
	e := newTestEngine(t, nil)

	d := e.Decide(Input{
		Now:          baseTime,
		ZoneOccupied: true,
		Trigger:      PeriodicCheck(),
		State:        activeState(alice, baseTime.Add(-61*time.Minute)),
	})
	if d.Branch != BranchTimeout {
		t.Fatalf("Branch = %v, want %v", d.Branch, BranchTimeout)
	}
	if d.Preset != PresetNone {
		t.Errorf("Preset = %q, want none", d.Preset)
	}
}

// ─── Away ───────────────────────────────────────────────────────────────────

func TestDecide_AwayRebuildsSamples(t *testing.T) {
	e := newTestEngine(t, nil)
	state := EmptyState()
	state.CooldownUntil = baseTime.Add(-time.Hour)
	state.Devices["person.removed"] = DeviceSample{Distance: 10, Timestamp: baseTime}

	d := e.Decide(Input{
		Now:     baseTime,
		Trigger: PresenceChange(),
		State:   state,
		Sensors: SensorMap{"sensor.alice_distance": 250, "sensor.bob_distance": -1},
	})

	if d.Branch != BranchAway {
		t.Fatalf("Branch = %v, want %v", d.Branch, BranchAway)
	}
	want := map[DeviceID]DeviceSample{
		alice: {Distance: 250, Timestamp: baseTime},
		bob:   {Distance: SentinelDistance, Timestamp: baseTime},
	}
	if !reflect.DeepEqual(d.State.Devices, want) {
		t.Errorf("Devices = %v, want %v", d.State.Devices, want)
	}
	if !d.State.CooldownUntil.Equal(state.CooldownUntil) {
		t.Errorf("CooldownUntil = %v, want preserved %v", d.State.CooldownUntil, state.CooldownUntil)
	}
}

func TestDecide_InvalidReadingWhileActiveGoesAway(t *testing.T) {
	e := newTestEngine(t, nil)

	d := e.Decide(Input{
		Now:     baseTime,
		Trigger: DistanceUpdate(alice, UnavailableDistance),
		State:   activeState(alice, baseTime.Add(-time.Minute)),
	})

	if d.Branch != BranchAway {
		t.Fatalf("Branch = %v, want %v", d.Branch, BranchAway)
	}
	if d.State.Active {
		t.Error("Active = true, want cleared by away branch")
	}
	if got := d.State.Devices[alice].Distance; got != SentinelDistance {
		t.Errorf("alice distance = %v, want sentinel", got)
	}
}

// ─── Properties ─────────────────────────────────────────────────────────────

func TestDecide_AlwaysReturnsCompleteState(t *testing.T) {
	e := newTestEngine(t, nil)
	triggers := []Trigger{
		PresenceChange(),
		PeriodicCheck(),
		DistanceUpdate(alice, 4000),
		DistanceUpdate(bob, UnavailableDistance),
		DistanceUpdate("person.unknown", 100),
	}
	states := []State{
		{},
		EmptyState(),
		activeState(alice, baseTime.Add(-2*time.Hour)),
		stateWithSample(alice, 6000, baseTime.Add(-time.Minute)),
		{Active: true, TriggeredBy: "person.removed", Devices: map[DeviceID]DeviceSample{}},
	}

	for _, occupied := range []bool{false, true} {
		for _, trig := range triggers {
			for i, st := range states {
				d := e.Decide(Input{Now: baseTime, ZoneOccupied: occupied, Trigger: trig, State: st})
				if d.Branch == "" {
					t.Errorf("occupied=%v trigger=%v state#%d: empty branch", occupied, trig.Kind, i)
				}
				if d.State.Devices == nil {
					t.Errorf("occupied=%v trigger=%v state#%d: nil devices", occupied, trig.Kind, i)
				}
				if d.State.Active && d.State.TriggeredBy == "" {
					t.Errorf("occupied=%v trigger=%v state#%d: active without triggering device", occupied, trig.Kind, i)
				}
				for id := range d.State.Devices {
					if id != alice && id != bob {
						t.Errorf("occupied=%v trigger=%v state#%d: unconfigured device %s kept", occupied, trig.Kind, i, id)
					}
				}
			}
		}
	}
}

func TestDecide_DoesNotMutateInput(t *testing.T) {
	e := newTestEngine(t, nil)
	state := stateWithSample(alice, 6000, baseTime.Add(-120*time.Second))
	before := state.Clone()

	_ = e.Decide(Input{Now: baseTime, Trigger: DistanceUpdate(alice, 4000), State: state, Setpoints: setpoints()})

	if !reflect.DeepEqual(state, before) {
		t.Errorf("input state mutated: %+v -> %+v", before, state)
	}
}

func TestClassify_Exclusive(t *testing.T) {
	e := newTestEngine(t, nil)
	prevAt := baseTime.Add(-120 * time.Second)
	inputs := []Input{
		{Now: baseTime, Trigger: PeriodicCheck(), State: activeState(alice, baseTime.Add(-2*time.Hour))},
		{Now: baseTime, Trigger: DistanceUpdate(alice, 4000), State: stateWithSample(alice, 6000, prevAt)},
		{Now: baseTime, Trigger: DistanceUpdate(alice, 4000), State: activeState(alice, prevAt)},
		{Now: baseTime, ZoneOccupied: true, Trigger: PeriodicCheck(), State: activeState(alice, baseTime.Add(-2*time.Hour))},
		{Now: baseTime, ZoneOccupied: true, Trigger: DistanceUpdate(alice, 4000), State: activeState(alice, prevAt)},
	}

	for i, in := range inputs {
		st := in.State.Reconcile(e.devices)
		matches := 0
		for _, ok := range []bool{
			e.isArrival(in),
			e.isActiveUpdate(in, st),
			e.canStart(in, st),
			e.isTimedOut(in, st),
		} {
			if ok {
				matches++
			}
		}
		if matches != 1 {
			t.Errorf("input #%d matched %d predicates, want exactly 1", i, matches)
		}
	}
}

func TestEngine_DeviceForSensor(t *testing.T) {
	e := newTestEngine(t, nil)

	id, ok := e.DeviceForSensor("sensor.bob_distance")
	if !ok || id != bob {
		t.Errorf("DeviceForSensor() = %q, %v, want %q, true", id, ok, bob)
	}
	if _, ok := e.DeviceForSensor("sensor.nobody"); ok {
		t.Error("DeviceForSensor() ok = true for unknown sensor")
	}
}
