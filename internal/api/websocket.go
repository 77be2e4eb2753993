package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/are4us/lyricera/internal/activity"
	"github.com/are4us/lyricera/internal/infrastructure/config"
	"github.com/are4us/lyricera/internal/infrastructure/logging"
)

// Frame types on the activity stream.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FramePing        = "ping"
	FramePong        = "pong"
	FrameAck         = "ack"
	FrameError       = "error"
	FrameActivity    = "activity"

	// subscriberQueue is how many frames may wait for a slow connection
	// before further activity events to it are dropped.
	subscriberQueue = 256
)

// errUnknownChannel is returned for a channel that is neither "activity"
// nor "activity.<operation>".
var errUnknownChannel = errors.New("unknown channel")

// ControlFrame is what a client sends: a subscription change or a ping.
type ControlFrame struct {
	Type     string   `json:"type"`
	ID       string   `json:"id,omitempty"`
	Channels []string `json:"channels,omitempty"`
}

// ReplyFrame answers one ControlFrame, echoing its ID.
type ReplyFrame struct {
	Type     string   `json:"type"`
	ID       string   `json:"id,omitempty"`
	Channels []string `json:"channels,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// ActivityEvent is pushed to every subscriber of an operation once its
// journal entry has been written.
type ActivityEvent struct {
	Type      string          `json:"type"`
	Channel   string          `json:"channel"`
	Operation string          `json:"operation"`
	Outcome   string          `json:"outcome"`
	Entry     *activity.Entry `json:"entry"`
	SentAt    time.Time       `json:"sent_at"`
}

// channelOperation resolves a channel to the operation it carries. The
// bare "activity" channel carries all of them and resolves to "".
func channelOperation(channel string) (string, error) {
	if channel == activity.ChannelPrefix {
		return "", nil
	}
	op, ok := strings.CutPrefix(channel, activity.ChannelPrefix+".")
	if !ok || !activity.IsOperation(op) {
		return "", fmt.Errorf("%w: %q", errUnknownChannel, channel)
	}
	return op, nil
}

// resolveChannels validates every channel before any is applied, so a
// frame naming one bad channel changes nothing.
func resolveChannels(channels []string) ([]string, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("%w: no channels given", errUnknownChannel)
	}
	ops := make([]string, 0, len(channels))
	for _, ch := range channels {
		op, err := channelOperation(ch)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// interest is the set of operations one connection listens to.
type interest struct {
	all bool
	ops map[string]struct{}
}

func (in *interest) add(ops []string) {
	for _, op := range ops {
		if op == "" {
			in.all = true
			continue
		}
		if in.ops == nil {
			in.ops = make(map[string]struct{})
		}
		in.ops[op] = struct{}{}
	}
}

// drop removes ops. Dropping "" (the bare channel) clears everything.
func (in *interest) drop(ops []string) {
	for _, op := range ops {
		if op == "" {
			in.all = false
			in.ops = nil
			return
		}
		delete(in.ops, op)
	}
}

func (in *interest) wants(op string) bool {
	if in.all {
		return true
	}
	_, ok := in.ops[op]
	return ok
}

// ActivityHub fans journal entries out to websocket subscribers.
type ActivityHub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	closed bool
}

// NewActivityHub creates a hub. Run must be called for it to shut down
// its connections.
func NewActivityHub(cfg config.WebSocketConfig, logger *logging.Logger) *ActivityHub {
	return &ActivityHub{
		cfg:    cfg,
		logger: logger,
		subs:   make(map[*subscriber]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every subscriber
// and refuses new ones.
func (h *ActivityHub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	h.closed = true
	subs := h.subs
	h.subs = make(map[*subscriber]struct{})
	h.mu.Unlock()

	for s := range subs {
		s.stop()
	}
	if len(subs) > 0 {
		h.logger.Debug("activity hub closed", "subscribers", len(subs))
	}
}

// add registers s. It reports false once the hub has shut down.
func (h *ActivityHub) add(s *subscriber) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.subs[s] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()

	h.logger.Debug("activity subscriber connected", "subscribers", n)
	return true
}

// remove unregisters s and stops its writer. Safe to call more than once.
func (h *ActivityHub) remove(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	n := len(h.subs)
	h.mu.Unlock()

	s.stop()
	h.logger.Debug("activity subscriber disconnected", "subscribers", n)
}

// Publish sends e to every subscriber of its operation.
func (h *ActivityHub) Publish(e *activity.Entry) {
	if e == nil {
		return
	}
	frame, err := json.Marshal(ActivityEvent{
		Type:      FrameActivity,
		Channel:   activity.Channel(e.Operation),
		Operation: e.Operation,
		Outcome:   e.Outcome,
		Entry:     e,
		SentAt:    time.Now().UTC(),
	})
	if err != nil {
		h.logger.Error("failed to encode activity event", "operation", e.Operation, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*subscriber, 0, len(h.subs))
	for s := range h.subs {
		if s.wants(e.Operation) {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	var dropped int
	for _, s := range targets {
		if !s.enqueue(frame) {
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Warn("activity event dropped for slow subscribers",
			"operation", e.Operation, "dropped", dropped, "recipients", len(targets))
	}
}

// ClientCount returns the number of connected subscribers.
func (h *ActivityHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// subscriber is one websocket connection. The out queue is never closed;
// done tells the writer to say goodbye and exit.
type subscriber struct {
	hub  *ActivityHub
	conn *websocket.Conn
	out  chan []byte

	done     chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	interest interest
}

func newSubscriber(hub *ActivityHub, conn *websocket.Conn) *subscriber {
	return &subscriber{
		hub:  hub,
		conn: conn,
		out:  make(chan []byte, subscriberQueue),
		done: make(chan struct{}),
	}
}

func (s *subscriber) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *subscriber) wants(op string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interest.wants(op)
}

// enqueue queues frame without blocking. It reports false when the queue
// is full or the subscriber has stopped.
func (s *subscriber) enqueue(frame []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.out <- frame:
		return true
	default:
		return false
	}
}

func (s *subscriber) reply(r ReplyFrame) {
	frame, err := json.Marshal(r)
	if err != nil {
		return
	}
	s.enqueue(frame)
}

// handle applies one client frame and returns the reply for it.
func (s *subscriber) handle(data []byte) ReplyFrame {
	var f ControlFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return ReplyFrame{Type: FrameError, Error: "invalid JSON frame"}
	}

	switch f.Type {
	case FramePing:
		return ReplyFrame{Type: FramePong, ID: f.ID}
	case FrameSubscribe, FrameUnsubscribe:
		ops, err := resolveChannels(f.Channels)
		if err != nil {
			return ReplyFrame{Type: FrameError, ID: f.ID, Channels: f.Channels, Error: err.Error()}
		}
		s.mu.Lock()
		if f.Type == FrameSubscribe {
			s.interest.add(ops)
		} else {
			s.interest.drop(ops)
		}
		s.mu.Unlock()
		s.hub.logger.Debug("activity subscription changed", "frame", f.Type, "channels", f.Channels)
		return ReplyFrame{Type: FrameAck, ID: f.ID, Channels: f.Channels}
	default:
		return ReplyFrame{Type: FrameError, ID: f.ID, Error: "unknown frame type: " + f.Type}
	}
}

// liveness returns how long a connection may stay silent before it is
// dropped, and how long a single write may take.
func liveness(cfg config.WebSocketConfig) (readWindow, writeWait time.Duration) {
	ping := time.Duration(cfg.PingInterval) * time.Second
	pong := time.Duration(cfg.PongTimeout) * time.Second
	return ping + pong, pong
}

// readLoop handles client frames until the connection fails.
func (s *subscriber) readLoop(cfg config.WebSocketConfig) {
	defer s.hub.remove(s)

	readWindow, _ := liveness(cfg)
	extend := func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(readWindow))
	}
	s.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	s.conn.SetPongHandler(extend)
	extend("") //nolint:errcheck // a failed deadline surfaces as a read error

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.logger.Warn("activity subscriber read failed", "error", err)
			}
			return
		}
		// Browsers do not always answer protocol pings; any frame counts.
		extend("") //nolint:errcheck // a failed deadline surfaces as a read error
		s.reply(s.handle(data))
	}
}

// writeLoop drains the queue and pings until the subscriber stops.
func (s *subscriber) writeLoop(cfg config.WebSocketConfig) {
	_, writeWait := liveness(cfg)
	ticker := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	write := func(kind int, data []byte) error {
		if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return err
		}
		return s.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case <-s.done:
			//nolint:errcheck // the connection is closing either way
			write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "activity stream closed"))
			return
		case frame := <-s.out:
			if err := write(websocket.TextMessage, frame); err != nil {
				s.hub.remove(s)
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				s.hub.remove(s)
				return
			}
		}
	}
}

// upgrader leaves origin checks to the CORS middleware.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleWebSocket upgrades to the activity stream. Authentication, when
// enabled, has already happened in authMiddleware.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "activity stream not running")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	sub := newSubscriber(s.hub, conn)
	if !s.hub.add(sub) {
		//nolint:errcheck // refusing the connection
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}

	go sub.writeLoop(s.wsCfg)
	go sub.readLoop(s.wsCfg)
}
