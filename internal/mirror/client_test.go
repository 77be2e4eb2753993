package mirror

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/are4us/lyricera/internal/infrastructure/config"
	"github.com/are4us/lyricera/internal/infrastructure/logging"
)

func testClient(baseURL string) *Client {
	return New(config.MirrorConfig{
		BaseURL:             baseURL,
		PollInitialInterval: time.Millisecond,
		PollMaxInterval:     5 * time.Millisecond,
		PollTimeout:         300 * time.Millisecond,
		RequestTimeout:      time.Second,
	}, logging.Discard())
}

func TestTokenBalanceURL(t *testing.T) {
	c := testClient("https://testnet.mirrornode.hedera.com/")

	got := c.TokenBalanceURL("0.0.1001", "0.0.4242")
	want := "https://testnet.mirrornode.hedera.com/api/v1/accounts/0.0.1001/tokens?token.id=0.0.4242&limit=1&order=desc"
	if got != want {
		t.Errorf("TokenBalanceURL() = %q, want %q", got, want)
	}
}

func TestTokenBalance_WaitsForIngestion(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/accounts/0.0.1001/tokens" || r.URL.Query().Get("token.id") != "0.0.4242" {
			t.Errorf("unexpected request %s", r.URL)
		}
		w.Header().Set("Content-Type", "application/json")
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusNotFound)
		case 2:
			_, _ = w.Write([]byte(`{"tokens":[],"links":{"next":null}}`))
		default:
			_, _ = w.Write([]byte(`{"tokens":[{"token_id":"0.0.4242","balance":3}],"links":{"next":null}}`))
		}
	}))
	defer srv.Close()

	balance, err := testClient(srv.URL).TokenBalance(context.Background(), "0.0.1001", "0.0.4242")
	if err != nil {
		t.Fatalf("TokenBalance() error = %v", err)
	}
	if balance != 3 {
		t.Errorf("balance = %d, want 3", balance)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestTokenBalance_DeadlineElapses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"tokens":[]}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).TokenBalance(context.Background(), "0.0.1001", "0.0.4242")
	if !errors.Is(err, ErrNotIngested) {
		t.Errorf("TokenBalance() error = %v, want ErrNotIngested", err)
	}
}

func TestTokenBalance_PermanentFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).TokenBalance(context.Background(), "0.0.1001", "bad")
	if !errors.Is(err, ErrRequestFailed) {
		t.Errorf("TokenBalance() error = %v, want ErrRequestFailed", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (400 is not retried)", calls.Load())
	}
}

func TestTokenBalance_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"tokens":[{"token_id":"0.0.4242","balance":0}]}`))
	}))
	defer srv.Close()

	balance, err := testClient(srv.URL).TokenBalance(context.Background(), "0.0.1001", "0.0.4242")
	if err != nil {
		t.Fatalf("TokenBalance() error = %v", err)
	}
	if balance != 0 {
		t.Errorf("balance = %d, want 0", balance)
	}
}

func TestTokenBalance_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"tokens":[]}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(srv.URL).TokenBalance(ctx, "0.0.1001", "0.0.4242")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("TokenBalance() error = %v, want context.Canceled", err)
	}
}
