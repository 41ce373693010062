// Package influxdb mirrors Q-SYS control feedback into InfluxDB v2.
//
// Every feedback observation the history recorder sees becomes one point in
// the qsys_control measurement, tagged by core, component and control. This
// is the long-term, dashboard-facing copy; the SQLite history table keeps a
// short local window for the HTTP API.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without time-series export
//	}
//	defer client.Close()
//
//	client.WriteControlState("core-1", "Router1", "select.3", 5, 0.5, "5", time.Now())
//
// Writes are non-blocking and batched (batch_size, flush_interval).
package influxdb
