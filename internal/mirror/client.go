package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/are4us/lyricera/internal/infrastructure/config"
)

const (
	defaultRequestTimeout = 5 * time.Second
	maxResponseSize       = 1 << 20
)

var (
	// ErrNotIngested means the mirror node has no record yet.
	ErrNotIngested = errors.New("mirror: record not ingested yet")

	// ErrRequestFailed means the mirror node answered with an unusable response.
	ErrRequestFailed = errors.New("mirror: request failed")
)

// Logger is the subset of logging.Logger used to trace polling.
type Logger interface {
	Debug(msg string, args ...any)
}

// Client reads token balances from the mirror node REST API.
//
// Thread Safety: All methods are safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cfg        config.MirrorConfig
	logger     Logger
}

// New creates a mirror client for cfg.BaseURL.
func New(cfg config.MirrorConfig, logger Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		logger:     logger,
	}
}

// TokenBalanceURL returns the query used to read accountID's balance of tokenID.
func (c *Client) TokenBalanceURL(accountID, tokenID string) string {
	return fmt.Sprintf("%s/api/v1/accounts/%s/tokens?token.id=%s&limit=1&order=desc",
		c.baseURL, url.PathEscape(accountID), url.QueryEscape(tokenID))
}

// tokensResponse is the body of /api/v1/accounts/{id}/tokens.
type tokensResponse struct {
	Tokens []struct {
		TokenID string `json:"token_id"`
		Balance int64  `json:"balance"`
	} `json:"tokens"`
}

// TokenBalance polls the mirror node until it reports a balance of tokenID
// for accountID, backing off exponentially between attempts.
//
// Polling stops at the first record, at a non-retryable HTTP status, when
// cfg.PollTimeout elapses, or when ctx is done.
//
// Returns:
//   - int64: The balance
//   - error: ErrNotIngested if the deadline passed with no record,
//     ErrRequestFailed for a non-retryable response, or the context error
func (c *Client) TokenBalance(ctx context.Context, accountID, tokenID string) (int64, error) {
	endpoint := c.TokenBalanceURL(accountID, tokenID)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.PollInitialInterval
	policy.MaxInterval = c.cfg.PollMaxInterval
	policy.MaxElapsedTime = c.cfg.PollTimeout
	policy.Reset()

	// The first attempt waits too: a record is never there straight after consensus.
	if err := sleep(ctx, policy.NextBackOff()); err != nil {
		return 0, err
	}

	var balance int64
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		var body tokensResponse
		if err := c.get(ctx, endpoint, &body); err != nil {
			return err
		}
		if len(body.Tokens) == 0 {
			return ErrNotIngested
		}
		balance = body.Tokens[0].Balance
		return nil
	}, backoff.WithContext(policy, ctx))

	c.logger.Debug("mirror balance poll finished",
		"account_id", accountID,
		"token_id", tokenID,
		"attempts", attempt,
		"error", err,
	)
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// get fetches endpoint and decodes the JSON body into out. Statuses worth
// retrying (404 before ingestion, 429, 5xx) come back as plain errors;
// anything else is wrapped in backoff.Permanent.
func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("%w: creating request: %w", ErrRequestFailed, err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: reading response: %w", ErrRequestFailed, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotIngested
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: HTTP %d", ErrRequestFailed, resp.StatusCode)
	default:
		return backoff.Permanent(fmt.Errorf("%w: HTTP %d", ErrRequestFailed, resp.StatusCode))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return backoff.Permanent(fmt.Errorf("%w: decoding response: %w", ErrRequestFailed, err))
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
