// Package config loads and validates the Q-SYS bridge configuration.
//
// Values come from, in increasing precedence: built-in defaults, the YAML
// file, and GRAYLOGIC_* environment variables. Secrets (MQTT password,
// InfluxDB token) belong in the environment rather than the file.
//
// Usage:
//
//	cfg, err := config.Load(config.Path())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, core := range cfg.Cores {
//	    fmt.Println(core.ID, core.Host)
//	}
package config
