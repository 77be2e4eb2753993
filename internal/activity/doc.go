// Package activity journals every ledger operation the API attempts.
//
// Handlers call Recorder.Record with an Entry built by NewEntry. The
// recorder updates the Prometheus counters inline and queues the entry; a
// single goroutine running Recorder.Run writes it to the activity_log table
// and then hands it to the configured sinks (MQTT, websocket hub, InfluxDB).
//
// Entries carry ids, outcomes and network statuses only. Private keys
// returned by account creation or supplied for association are never part
// of an Entry.
package activity
