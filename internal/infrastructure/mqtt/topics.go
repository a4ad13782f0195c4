package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes. Device-facing topics use the flat scheme
// graylogic/{category}/{domain}/{id}.
const (
	TopicPrefix       = "graylogic"
	TopicPrefixCore   = "graylogic/core"
	TopicPrefixSystem = "graylogic/system"
	TopicPrefixUI     = "graylogic/ui"
)

// State and command domains carried in the second topic level.
const (
	DomainPresence = "presence"
	DomainDistance = "distance"
	DomainClimate  = "climate"
)

// Topics provides builders for the MQTT topics used by the pre-heat service.
//
//	topics := mqtt.Topics{}
//	topics.DistanceState("sensor.alice_distance")
//	// graylogic/state/distance/sensor.alice_distance
type Topics struct{}

// ─── Device state and commands ──────────────────────────────────

// State returns the state topic for an entity in a domain.
//
// Example: graylogic/state/climate/climate.living
func (Topics) State(domain, id string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, domain, id)
}

// Command returns the command topic for an entity in a domain.
//
// Example: graylogic/command/climate/climate.living
func (Topics) Command(domain, id string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, domain, id)
}

// PresenceState returns the occupancy topic for a presence zone.
func (t Topics) PresenceState(zone string) string { return t.State(DomainPresence, zone) }

// DistanceState returns the reading topic for a distance sensor.
func (t Topics) DistanceState(sensorID string) string { return t.State(DomainDistance, sensorID) }

// ClimateState returns the state topic for a thermostat.
func (t Topics) ClimateState(thermostatID string) string { return t.State(DomainClimate, thermostatID) }

// ClimateCommand returns the command topic for a thermostat.
func (t Topics) ClimateCommand(thermostatID string) string {
	return t.Command(DomainClimate, thermostatID)
}

// ─── Core ───────────────────────────────────────────────────────

// PreheatState returns the retained mirror of the persisted pre-heat state.
//
// Example: graylogic/core/preheat/state
func (Topics) PreheatState() string {
	return TopicPrefixCore + "/preheat/state"
}

// AutomationFired returns the topic announcing that an automation rule acted.
//
// Example: graylogic/core/automation/preheat/fired
func (Topics) AutomationFired(ruleID string) string {
	return fmt.Sprintf("%s/automation/%s/fired", TopicPrefixCore, ruleID)
}

// ─── System and UI ──────────────────────────────────────────────

// ServiceStatus returns the retained online/offline topic for a client.
//
// Example: graylogic/system/graylogic-preheat/status
func (Topics) ServiceStatus(clientID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixSystem, clientID)
}

// UINotification returns the notification topic for a UI target.
//
// Example: graylogic/ui/mobile_alice/notification
func (Topics) UINotification(target string) string {
	return fmt.Sprintf("%s/%s/notification", TopicPrefixUI, target)
}

// ─── Wildcards ──────────────────────────────────────────────────

// AllStates returns a pattern matching every entity state in a domain.
//
// Pattern: graylogic/state/{domain}/+
func (t Topics) AllStates(domain string) string {
	return t.State(domain, "+")
}

// AllDistanceStates matches every distance sensor reading.
func (t Topics) AllDistanceStates() string { return t.AllStates(DomainDistance) }

// AllClimateStates matches every thermostat state.
func (t Topics) AllClimateStates() string { return t.AllStates(DomainClimate) }

// ─── Parsing ────────────────────────────────────────────────────

// ParseStateTopic splits a state topic into its domain and entity id.
// ok is false when topic is not of the form graylogic/state/{domain}/{id}.
func ParseStateTopic(topic string) (domain, id string, ok bool) {
	parts := strings.SplitN(topic, "/", 4)
	if len(parts) != 4 || parts[0] != TopicPrefix || parts[1] != "state" {
		return "", "", false
	}
	if parts[2] == "" || parts[3] == "" || strings.Contains(parts[3], "/") {
		return "", "", false
	}
	return parts[2], parts[3], true
}
