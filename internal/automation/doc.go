// Package automation hosts the pre-heat decision engine on the MQTT bus.
//
// The Runtime subscribes to the presence zone, the paired distance sensors
// and the controlled thermostats. Each relevant message becomes a trigger
// for one evaluation, and a ticker adds the periodic activity-timeout
// check:
//
//	presence/distance/tick ──► Runtime.Evaluate ──► preheat.Engine.Decide
//	                               │
//	               statestore ◄────┤ persist state first
//	                    audit ◄────┤ starts, arrivals, timeouts
//	                               ▼
//	      climate commands, UI notification, state mirror, fired event,
//	      InfluxDB telemetry
//
// Evaluations are serialised by a single mutex so the read-decide-write
// cycle on the stored state is never interleaved.
//
// # Usage
//
//	rc, err := automation.RuntimeConfigFrom(cfg)
//	if err != nil {
//	    return err
//	}
//	rt := automation.NewRuntime(rc, store, mqttClient, influx, logger)
//	rt.SetAudit(audit.NewSQLiteRepository(db.DB))
//	if err := rt.Start(ctx, mqttClient); err != nil {
//	    return err
//	}
package automation
