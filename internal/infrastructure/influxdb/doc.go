// Package influxdb records pre-heat telemetry in InfluxDB.
//
// It wraps influxdb-client-go v2 with a batching, non-blocking write API:
// engine decisions, tracker distances and commanded setpoints are written
// as points so the approach history behind each decision can be charted.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//
//	client.WriteDeviceDistance("person.alice", "sensor.alice_distance", 4200, time.Now())
//
// Write errors arrive asynchronously through SetOnError. Connection and
// health check errors are returned directly.
package influxdb
