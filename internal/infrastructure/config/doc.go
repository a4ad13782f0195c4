// Package config handles loading and validating pre-heat service configuration.
//
// Configuration is resolved in three layers:
//   - Built-in defaults
//   - YAML file values
//   - GRAYLOGIC_* environment variables
//
// Credentials (MQTT password, InfluxDB token) should be supplied through the
// environment rather than the file.
//
// Usage:
//
//	cfg, err := config.Load("configs/preheat.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Preheat.Zone)
package config
