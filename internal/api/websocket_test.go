package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/are4us/lyricera/internal/account"
	"github.com/are4us/lyricera/internal/activity"
	"github.com/are4us/lyricera/internal/auth"
	"github.com/are4us/lyricera/internal/infrastructure/config"
)

func newTestHub(t *testing.T) *ActivityHub {
	t.Helper()
	hub := NewActivityHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

// subscribed registers a connectionless subscriber listening on channels.
func subscribed(t *testing.T, hub *ActivityHub, channels ...string) *subscriber {
	t.Helper()
	s := newSubscriber(hub, nil)
	if !hub.add(s) {
		t.Fatal("add() refused a subscriber on a running hub")
	}
	frame, _ := json.Marshal(ControlFrame{Type: FrameSubscribe, ID: "s", Channels: channels})
	if reply := s.handle(frame); reply.Type != FrameAck {
		t.Fatalf("subscribe %v reply = %+v, want ack", channels, reply)
	}
	return s
}

func nextEvent(t *testing.T, s *subscriber) ActivityEvent {
	t.Helper()
	select {
	case frame := <-s.out:
		var ev ActivityEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for activity event")
		return ActivityEvent{}
	}
}

func TestChannelOperation(t *testing.T) {
	tests := []struct {
		channel string
		want    string
		wantErr bool
	}{
		{"activity", "", false},
		{"activity.mint_nft", activity.OpMintNFT, false},
		{"activity.burn_nft_serial", activity.OpBurnNFT, false},
		{"activity.associate_nft_to_account", activity.OpAssociateNFT, false},
		{"activity.burn_nft", "", true},
		{"activity.", "", true},
		{"devices", "", true},
		{"mint_nft", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.channel, func(t *testing.T) {
			got, err := channelOperation(tt.channel)
			if tt.wantErr {
				if !errors.Is(err, errUnknownChannel) {
					t.Fatalf("channelOperation(%q) error = %v, want errUnknownChannel", tt.channel, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("channelOperation(%q) error = %v", tt.channel, err)
			}
			if got != tt.want {
				t.Errorf("channelOperation(%q) = %q, want %q", tt.channel, got, tt.want)
			}
		})
	}
}

func TestSubscriber_Handle(t *testing.T) {
	tests := []struct {
		name      string
		frame     string
		wantType  string
		wantID    string
		wantError string
	}{
		{"ping", `{"type":"ping","id":"p-1"}`, FramePong, "p-1", ""},
		{"subscribe", `{"type":"subscribe","id":"s-1","channels":["activity.mint_nft"]}`, FrameAck, "s-1", ""},
		{"unknown channel", `{"type":"subscribe","id":"s-2","channels":["devices.light"]}`, FrameError, "s-2", "unknown channel"},
		{"one bad channel", `{"type":"subscribe","id":"s-3","channels":["activity","activity.nope"]}`, FrameError, "s-3", "activity.nope"},
		{"no channels", `{"type":"subscribe","id":"s-4"}`, FrameError, "s-4", "no channels"},
		{"unknown unsubscribe", `{"type":"unsubscribe","id":"u-1","channels":["x"]}`, FrameError, "u-1", "unknown channel"},
		{"unknown type", `{"type":"shout","id":"x-1"}`, FrameError, "x-1", "unknown frame type"},
		{"not json", `not json`, FrameError, "", "invalid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSubscriber(newTestHub(t), nil)
			reply := s.handle([]byte(tt.frame))
			if reply.Type != tt.wantType || reply.ID != tt.wantID {
				t.Errorf("reply = %+v, want type %q id %q", reply, tt.wantType, tt.wantID)
			}
			if !strings.Contains(reply.Error, tt.wantError) {
				t.Errorf("reply error = %q, want it to mention %q", reply.Error, tt.wantError)
			}
			if tt.wantType == FrameError && s.wants(activity.OpMintNFT) {
				t.Error("a rejected frame changed the subscription")
			}
		})
	}
}

func TestActivityHub_PublishToSubscribed(t *testing.T) {
	tests := []struct {
		name    string
		channel string
	}{
		{"operation channel", activity.Channel(activity.OpMintNFT)},
		{"all operations", activity.ChannelPrefix},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := newTestHub(t)
			s := subscribed(t, hub, tt.channel)

			hub.Publish(&activity.Entry{ID: "e-1", Operation: activity.OpMintNFT, EntityID: "0.0.4242", Outcome: activity.OutcomeSuccess})

			ev := nextEvent(t, s)
			if ev.Type != FrameActivity || ev.Channel != "activity.mint_nft" || ev.Operation != activity.OpMintNFT {
				t.Errorf("event = %+v", ev)
			}
			if ev.Outcome != activity.OutcomeSuccess || ev.Entry == nil || ev.Entry.EntityID != "0.0.4242" {
				t.Errorf("event entry = %+v, outcome %q", ev.Entry, ev.Outcome)
			}
			if ev.SentAt.IsZero() {
				t.Error("event has no sent_at")
			}
		})
	}
}

func TestActivityHub_NoEventForOtherOperations(t *testing.T) {
	hub := newTestHub(t)
	s := subscribed(t, hub, activity.Channel(activity.OpBurnNFT))

	hub.Publish(&activity.Entry{Operation: activity.OpMintNFT})
	hub.Publish(nil)

	select {
	case <-s.out:
		t.Error("subscriber received an event for an operation it did not subscribe to")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestActivityHub_Unsubscribe(t *testing.T) {
	hub := newTestHub(t)
	s := subscribed(t, hub, activity.ChannelPrefix, activity.Channel(activity.OpMintNFT))

	if reply := s.handle([]byte(`{"type":"unsubscribe","channels":["activity"]}`)); reply.Type != FrameAck {
		t.Fatalf("unsubscribe reply = %+v", reply)
	}
	if s.wants(activity.OpMintNFT) || s.wants(activity.OpCreateNFT) {
		t.Error("unsubscribing from activity should clear every operation")
	}
}

func TestActivityHub_ClientCount(t *testing.T) {
	hub := newTestHub(t)
	if n := hub.ClientCount(); n != 0 {
		t.Errorf("initial ClientCount() = %d, want 0", n)
	}

	s := subscribed(t, hub, activity.ChannelPrefix)
	if n := hub.ClientCount(); n != 1 {
		t.Errorf("ClientCount() after add = %d, want 1", n)
	}

	hub.remove(s)
	hub.remove(s)
	if n := hub.ClientCount(); n != 0 {
		t.Errorf("ClientCount() after remove = %d, want 0", n)
	}
	if s.enqueue([]byte("{}")) {
		t.Error("enqueue() succeeded on a removed subscriber")
	}
}

func TestActivityHub_RefusesAfterShutdown(t *testing.T) {
	hub := NewActivityHub(config.WebSocketConfig{PingInterval: 30, PongTimeout: 10}, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	s := newSubscriber(hub, nil)
	hub.add(s)
	cancel()
	<-done

	select {
	case <-s.done:
	default:
		t.Error("Run() left a subscriber running after shutdown")
	}
	if hub.add(newSubscriber(hub, nil)) {
		t.Error("add() accepted a subscriber after shutdown")
	}
	if n := hub.ClientCount(); n != 0 {
		t.Errorf("ClientCount() after shutdown = %d, want 0", n)
	}
}

func dialWebSocket(t *testing.T, f *fixture, query string) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(f.router)
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws" + query
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v (resp: %v)", err, resp)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readFrame[T any](t *testing.T, ws *websocket.Conn) T {
	t.Helper()
	//nolint:errcheck // Test deadline
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var v T
	if err := ws.ReadJSON(&v); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return v
}

func TestWebSocket_SubscribeAndReceive(t *testing.T) {
	f := newFixture(t, nil)
	ws := dialWebSocket(t, f, "")

	if err := ws.WriteJSON(ControlFrame{Type: FrameSubscribe, ID: "sub-1", Channels: []string{"activity.create_account"}}); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}
	if ack := readFrame[ReplyFrame](t, ws); ack.Type != FrameAck || ack.ID != "sub-1" {
		t.Fatalf("reply = %+v, want ack for sub-1", ack)
	}

	var acct account.Account
	f.callJSON(t, http.MethodPost, "/create_account", "", &acct)
	f.drain()

	ev := readFrame[ActivityEvent](t, ws)
	if ev.Type != FrameActivity || ev.Operation != activity.OpCreateAccount {
		t.Fatalf("event = %+v, want create_account activity", ev)
	}
	if ev.Entry == nil || ev.Entry.EntityID != acct.AccountID {
		t.Errorf("event entry = %+v, want entity %s", ev.Entry, acct.AccountID)
	}
	raw, _ := json.Marshal(ev)
	if strings.Contains(string(raw), acct.PrivateKey) {
		t.Error("activity event carries the account private key")
	}
}

func TestWebSocket_UnknownChannel(t *testing.T) {
	f := newFixture(t, nil)
	ws := dialWebSocket(t, f, "")

	if err := ws.WriteJSON(ControlFrame{Type: FrameSubscribe, ID: "sub-x", Channels: []string{"devices"}}); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}
	reply := readFrame[ReplyFrame](t, ws)
	if reply.Type != FrameError || reply.ID != "sub-x" || !strings.Contains(reply.Error, "devices") {
		t.Errorf("reply = %+v, want error naming the channel", reply)
	}
}

func TestWebSocket_Ping(t *testing.T) {
	f := newFixture(t, nil)
	ws := dialWebSocket(t, f, "")

	if err := ws.WriteJSON(ControlFrame{Type: FramePing, ID: "ping-1"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if reply := readFrame[ReplyFrame](t, ws); reply.Type != FramePong || reply.ID != "ping-1" {
		t.Errorf("reply = %+v, want pong for ping-1", reply)
	}
	if n := f.hub.ClientCount(); n != 1 {
		t.Errorf("ClientCount() = %d, want 1", n)
	}
}

func TestWebSocket_RequiresTokenWhenAuthEnabled(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.Security.Auth.Enabled = true })
	ts := httptest.NewServer(f.router)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected error connecting without token")
	}
	if resp != nil && resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}

	valid, err := auth.GenerateAccessToken("ops", testJWTSecret, 15)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	ws := dialWebSocket(t, f, "?access_token="+valid)
	if err := ws.WriteJSON(ControlFrame{Type: FramePing, ID: "p"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if reply := readFrame[ReplyFrame](t, ws); reply.Type != FramePong {
		t.Errorf("type = %q, want pong", reply.Type)
	}
}
