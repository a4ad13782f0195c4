package automation

import "errors"

// Domain errors for the automation package.
//
//	if errors.Is(err, automation.ErrUnknownSensor) {
//	    // reading from a sensor that is not paired with a tracker
//	}
var (
	// ErrStateUnavailable is returned when the persisted state cannot be
	// read or written. No actions are taken for that evaluation.
	ErrStateUnavailable = errors.New("automation: state store unavailable")

	// ErrDispatchFailed wraps failures publishing commands, notifications
	// or events. The decision has already been persisted.
	ErrDispatchFailed = errors.New("automation: dispatch failed")

	// ErrInvalidPayload is returned when an MQTT state payload cannot be parsed.
	ErrInvalidPayload = errors.New("automation: invalid payload")

	// ErrUnknownSensor is returned for a distance reading from an unpaired sensor.
	ErrUnknownSensor = errors.New("automation: unknown distance sensor")

	// ErrUnexpectedTopic is returned when a message arrives on a topic the
	// runtime did not subscribe to.
	ErrUnexpectedTopic = errors.New("automation: unexpected topic")
)
