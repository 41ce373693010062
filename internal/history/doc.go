// Package history records Q-SYS control feedback.
//
// A Recorder attaches to the feedback events of every Component on a Core
// and hands each update to a bounded queue. Worker goroutines persist the
// entries to SQLite and, when configured, forward them to a metrics writer
// (InfluxDB). Nothing blocks the goroutine that dispatches feedback; when
// the queue is full, entries are dropped and counted.
//
// Old rows are pruned periodically according to the retention period.
package history
