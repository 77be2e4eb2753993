package activity

import (
	"context"
	"time"

	"github.com/are4us/lyricera/internal/infrastructure/mqtt"
)

// Sink receives every journaled entry after it has been written.
type Sink interface {
	Deliver(ctx context.Context, e *Entry) error
	Name() string
}

// JSONPublisher is the part of the MQTT client the MQTT sink needs.
type JSONPublisher interface {
	PublishJSON(topic string, v any) error
}

// MQTTSink publishes entries to lyricera/activity/{operation}.
type MQTTSink struct {
	pub JSONPublisher
}

// NewMQTTSink creates a sink publishing through pub.
func NewMQTTSink(pub JSONPublisher) *MQTTSink {
	return &MQTTSink{pub: pub}
}

func (s *MQTTSink) Name() string { return "mqtt" }

func (s *MQTTSink) Deliver(_ context.Context, e *Entry) error {
	return s.pub.PublishJSON(mqtt.Topics{}.Activity(e.Operation), e)
}

// Broadcaster is the part of the websocket hub the broadcast sink needs.
type Broadcaster interface {
	Publish(e *Entry)
}

// ChannelPrefix is the websocket channel that carries every entry. Each
// operation also has its own channel under it, see Channel.
const ChannelPrefix = "activity"

// Channel returns the websocket channel for op, e.g. "activity.mint_nft".
func Channel(op string) string {
	return ChannelPrefix + "." + op
}

// BroadcastSink pushes entries to websocket subscribers.
type BroadcastSink struct {
	hub Broadcaster
}

// NewBroadcastSink creates a sink broadcasting through hub.
func NewBroadcastSink(hub Broadcaster) *BroadcastSink {
	return &BroadcastSink{hub: hub}
}

func (s *BroadcastSink) Name() string { return "websocket" }

func (s *BroadcastSink) Deliver(_ context.Context, e *Entry) error {
	s.hub.Publish(e)
	return nil
}

// OperationWriter is the part of the InfluxDB client the time-series sink needs.
type OperationWriter interface {
	WriteOperation(operation, outcome string, duration time.Duration, at time.Time)
}

// InfluxSink writes one point per entry.
type InfluxSink struct {
	w OperationWriter
}

// NewInfluxSink creates a sink writing through w.
func NewInfluxSink(w OperationWriter) *InfluxSink {
	return &InfluxSink{w: w}
}

func (s *InfluxSink) Name() string { return "influxdb" }

func (s *InfluxSink) Deliver(_ context.Context, e *Entry) error {
	s.w.WriteOperation(e.Operation, e.Outcome, time.Duration(e.DurationMS)*time.Millisecond, e.CreatedAt)
	return nil
}
