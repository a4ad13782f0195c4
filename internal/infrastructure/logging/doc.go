// Package logging provides structured logging for the pre-heat service.
//
// It wraps log/slog so every component logs through the same handler with
// the same default fields (service, version).
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	engine.SetLogger(logger.Component("preheat"))
//
// Never log MQTT or InfluxDB credentials.
package logging
