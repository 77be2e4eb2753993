// Package influxdb records ledger operation timings in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Each completed
// operation becomes one point in the ledger_operations measurement, tagged
// with the operation name and outcome, carrying duration_ms and count fields.
// Dashboards can then chart consensus latency per operation over time.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteOperation("create_nft", "success", elapsed, time.Now())
//
// # Thread Safety
//
// All methods are safe for concurrent use. Writes are buffered and sent
// in batches; asynchronous failures are reported through SetOnError.
package influxdb
