package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/are4us/lyricera/internal/ledger"
)

var (
	// ErrNotAcceptable means the Accept header allows neither HTML nor JSON.
	ErrNotAcceptable = errors.New("not acceptable content format requested")

	// ErrBadRequest means the request body is not valid JSON.
	ErrBadRequest = errors.New("malformed request body")

	// ErrBodyTooLarge means the request body exceeded maxRequestBodySize.
	ErrBodyTooLarge = errors.New("request body too large")
)

// Error represents a structured error response on the non-ledger routes.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeRateLimited  = "rate_limited"
	ErrCodeUnavailable  = "unavailable"
	ErrCodeInternal     = "internal_error"
)

// statusFor maps an operation error to its HTTP status. Rejections are
// checked before submission failures because a rejection is both.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotAcceptable):
		return http.StatusNotAcceptable
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrBadRequest), errors.Is(err, ledger.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrConfiguration):
		return http.StatusInternalServerError
	case errors.Is(err, ledger.ErrRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrSubmission):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeOperationError logs a failed ledger route and answers with the
// mapped status and the error message as a plain-text body.
func (s *Server) writeOperationError(w http.ResponseWriter, r *http.Request, body []byte, err error) {
	status := statusFor(err)
	s.logger.Warn(err.Error(),
		"url", r.URL.String(),
		"body", redactBody(body),
		"status", status,
		"request_id", requestIDFrom(r),
	)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	io.WriteString(w, err.Error())
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}
