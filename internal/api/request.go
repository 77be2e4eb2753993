package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/are4us/lyricera/internal/ledger"
)

// Request bodies. Every field is optional: an absent field reaches the
// ledger as its zero value and is rejected there.

type createNFTRequest struct {
	Name   string `json:"nft_name"`
	Symbol string `json:"nft_symbol"`
}

type mintRequest struct {
	TokenID  string   `json:"token_id"`
	Metadata metadata `json:"metadata"`
}

type burnRequest struct {
	TokenID      string       `json:"token_id"`
	SerialNumber serialNumber `json:"serial_number"`
}

type transferRequest struct {
	TokenID      string       `json:"token_id"`
	SerialNumber serialNumber `json:"serial_number"`
	RecipientID  string       `json:"recipient_id"`
}

type associateRequest struct {
	TokenID    string `json:"token_id"`
	AccountID  string `json:"associate_account_id"`
	PrivateKey string `json:"associate_private_key"`
}

// serialNumber accepts a JSON number or a decimal string. The text is kept
// as sent and parsed by value so a bad serial maps to ErrInvalidArgument.
type serialNumber struct {
	raw string
}

func (s *serialNumber) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		s.raw = strings.TrimSpace(str)
		return nil
	}
	s.raw = string(b)
	return nil
}

// value returns the serial, 0 when absent. Whole numbers written with a
// fraction or exponent, such as 1.0 or 1e2, are accepted.
func (s serialNumber) value() (int64, error) {
	if s.raw == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s.raw, 10, 64); err == nil {
		return n, nil
	}
	if n, ok := wholeNumber(s.raw); ok {
		return n, nil
	}
	return 0, fmt.Errorf("%w: serial_number: %q is not a whole number", ledger.ErrInvalidArgument, s.raw)
}

// wholeNumber parses a decimal number literal whose value is an integer
// that fits in an int64.
func wholeNumber(s string) (int64, bool) {
	f, _, err := big.ParseFloat(s, 10, 256, big.ToNearestEven)
	if err != nil || !f.IsInt() {
		return 0, false
	}
	n, acc := f.Int64()
	return n, acc == big.Exact
}

// metadata is the bytes minted into a serial: the text of a JSON string,
// or the raw JSON of any other value.
type metadata []byte

func (m *metadata) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*m = nil
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*m = []byte(str)
		return nil
	}
	*m = append((*m)[:0], b...)
	return nil
}

// readBody reads the whole request body, bounded by the body size limit.
func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, tooLarge.Limit)
		}
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return body, nil
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(body []byte, v any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

// sensitiveFields never reach the log, even inside a request body.
var sensitiveFields = []string{"associate_private_key", "private_key", "privateKey"}

// redactBody renders a request body for logging with key material blanked.
// Bodies that are not a JSON object are summarised by size only.
func redactBody(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return fmt.Sprintf("<%d bytes, not a JSON object>", len(body))
	}
	for _, k := range sensitiveFields {
		if _, ok := fields[k]; ok {
			fields[k] = "[REDACTED]"
		}
	}
	out, err := json.Marshal(fields)
	if err != nil {
		return fmt.Sprintf("<%d bytes>", len(body))
	}
	return string(out)
}
