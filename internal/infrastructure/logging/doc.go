// Package logging provides structured logging for the Q-SYS bridge.
//
// It wraps log/slog with the bridge's defaults:
//
//   - JSON output for production, text for development
//   - service and version fields on every record
//   - level filtering (debug, info, warn, error)
//   - optional size-rotated file output
//
// Configuration:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, file
//	  file:
//	    path: "./logs/qsys-bridge.log"
//	    max_size: 50     # megabytes
//	    max_backups: 5
//	    max_age: 30      # days
//	    compress: true
//
// Never log secrets: MQTT passwords and InfluxDB tokens stay out of records.
package logging
