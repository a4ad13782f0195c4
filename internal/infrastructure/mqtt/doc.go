// Package mqtt provides MQTT connectivity for the pre-heat service.
//
// It manages the broker connection with auto-reconnect, QoS-aware
// publishing, wildcard subscriptions restored after reconnect, and a
// retained status topic backed by a Last Will.
//
// # Topics
//
// The service listens on flat state topics and writes commands, UI
// notifications and a mirror of its own state:
//
//	graylogic/state/presence/{zone}         zone occupancy count
//	graylogic/state/distance/{sensor}       tracker distance in metres
//	graylogic/state/climate/{thermostat}    thermostat setpoint
//	graylogic/command/climate/{thermostat}  preset and setpoint commands
//	graylogic/ui/{target}/notification      user notifications
//	graylogic/core/preheat/state            retained engine state
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllDistanceStates(), 1, handler)
//
// TLS should be enabled (cfg.Broker.TLS) whenever the broker is not local.
package mqtt
