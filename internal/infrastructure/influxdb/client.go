package influxdb

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/are4us/lyricera/internal/infrastructure/config"
)

// OperationsMeasurement is the measurement ledger operations are written to.
const OperationsMeasurement = "ledger_operations"

const (
	pingTimeout = 5 * time.Second

	fallbackBatchSize     = 100
	fallbackFlushInterval = 10 * time.Second
)

// Client writes one point per journaled ledger operation. Writes are
// batched by the underlying library and never block the caller.
type Client struct {
	influx influxdb2.Client
	points api.WriteAPI

	closed  atomic.Bool
	onError atomic.Pointer[func(error)]
}

// Connect pings the server and prepares the batched write API for the
// configured bucket.
//
// Returns:
//   - *Client: Ready for WriteOperation
//   - error: ErrDisabled if not enabled, ErrConnectionFailed if the server
//     cannot be reached or reports itself unhealthy
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	opts := influxdb2.DefaultOptions().
		SetBatchSize(batchSize(cfg)).
		SetFlushInterval(uint(flushInterval(cfg).Milliseconds())) // #nosec G115 -- always positive
	influx := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*pingTimeout)
	defer cancel()
	if err := ping(ctx, influx); err != nil {
		influx.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, cfg.URL, err)
	}

	c := &Client{
		influx: influx,
		points: influx.WriteAPI(cfg.Org, cfg.Bucket),
	}
	go c.reportErrors(c.points.Errors())
	return c, nil
}

func batchSize(cfg config.InfluxDBConfig) uint {
	if cfg.BatchSize <= 0 {
		return fallbackBatchSize
	}
	return uint(cfg.BatchSize) // #nosec G115 -- checked above
}

func flushInterval(cfg config.InfluxDBConfig) time.Duration {
	if cfg.FlushInterval <= 0 {
		return fallbackFlushInterval
	}
	return time.Duration(cfg.FlushInterval) * time.Second
}

func ping(ctx context.Context, influx influxdb2.Client) error {
	healthy, err := influx.Ping(ctx)
	if err != nil {
		return err
	}
	if !healthy {
		return errUnhealthy
	}
	return nil
}

// reportErrors runs until the write API is closed.
func (c *Client) reportErrors(errs <-chan error) {
	for err := range errs {
		if fn := c.onError.Load(); fn != nil {
			(*fn)(err)
		}
	}
}

// SetOnError sets the callback for batches the server refused.
func (c *Client) SetOnError(fn func(err error)) {
	c.onError.Store(&fn)
}

// WriteOperation queues a point for one finished operation: operation and
// outcome as tags, the duration in milliseconds and a count of 1 as
// fields. Dropped once the client is closed.
func (c *Client) WriteOperation(operation, outcome string, duration time.Duration, at time.Time) {
	if c.closed.Load() {
		return
	}
	p := write.NewPointWithMeasurement(OperationsMeasurement).
		AddTag("operation", operation).
		AddTag("outcome", outcome).
		AddField("duration_ms", float64(duration)/float64(time.Millisecond)).
		AddField("count", 1).
		SetTime(at)
	c.points.WritePoint(p)
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c == nil || c.closed.Load() {
		return ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := ping(ctx, c.influx); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

// Close flushes queued points and releases the client. Later writes are
// dropped.
func (c *Client) Close() error {
	if c == nil || c.influx == nil || c.closed.Swap(true) {
		return nil
	}
	c.points.Flush()
	c.influx.Close()
	return nil
}
