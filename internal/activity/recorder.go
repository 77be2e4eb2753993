package activity

import (
	"context"
	"errors"
	"time"

	"github.com/are4us/lyricera/internal/infrastructure/logging"
	"github.com/are4us/lyricera/internal/ledger"
)

// queueSize is the number of entries buffered between request handlers and
// the writer. Entries beyond this are dropped with a warning.
const queueSize = 256

// Error kinds stored in Entry.ErrorKind.
const (
	KindConfiguration   = "configuration"
	KindInvalidArgument = "invalid_argument"
	KindRejected        = "rejected"
	KindSubmission      = "submission"
	KindInternal        = "internal"
)

// Recorder journals operations without holding up the request that
// produced them. Metrics are updated inline; the journal write and the
// sink fan-out happen on the goroutine running Run.
//
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	repo    Repository
	metrics *Metrics
	sinks   []Sink
	logger  *logging.Logger
	queue   chan *Entry
}

// NewRecorder creates a recorder. repo and metrics may be nil; sinks are
// delivered to in order after the journal write.
func NewRecorder(repo Repository, metrics *Metrics, logger *logging.Logger, sinks ...Sink) *Recorder {
	if logger == nil {
		logger = logging.Default()
	}
	return &Recorder{
		repo:    repo,
		metrics: metrics,
		sinks:   sinks,
		logger:  logger,
		queue:   make(chan *Entry, queueSize),
	}
}

// Record enqueues e. It never blocks: when the queue is full the entry is
// dropped and a warning logged. The request id is taken from ctx when e
// has none.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if r == nil {
		return
	}
	if e.ID == "" {
		e.ID = NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.RequestID == "" {
		e.RequestID = RequestIDFrom(ctx)
	}

	r.metrics.Observe(&e)

	select {
	case r.queue <- &e:
	default:
		r.logger.Warn("activity queue full, dropping entry",
			"operation", e.Operation,
			"entity_id", e.EntityID,
		)
	}
}

// Run writes queued entries until ctx is cancelled, then drains whatever
// is still queued and returns.
func (r *Recorder) Run(ctx context.Context) {
	if r == nil {
		return
	}
	for {
		select {
		case e := <-r.queue:
			r.write(e)
		case <-ctx.Done():
			for {
				select {
				case e := <-r.queue:
					r.write(e)
				default:
					return
				}
			}
		}
	}
}

// write persists e and hands it to every sink. Failures are logged only.
func (r *Recorder) write(e *Entry) {
	ctx := context.Background()

	if r.repo != nil {
		if err := r.repo.Create(ctx, e); err != nil {
			r.logger.Error("activity journal write failed",
				"operation", e.Operation,
				"id", e.ID,
				"error", err,
			)
		}
	}

	for _, s := range r.sinks {
		if err := s.Deliver(ctx, e); err != nil {
			r.logger.Warn("activity delivery failed",
				"sink", s.Name(),
				"operation", e.Operation,
				"error", err,
			)
		}
	}
}

// NewEntry builds an entry for operation on entityID that began at started.
// A nil err gives a success entry; otherwise the ledger error kind and, for
// rejections, the network status are filled in.
func NewEntry(operation, entityID string, started time.Time, err error) Entry {
	e := Entry{
		Operation:  operation,
		EntityID:   entityID,
		Outcome:    OutcomeSuccess,
		DurationMS: time.Since(started).Milliseconds(),
	}
	if err == nil {
		return e
	}

	e.Outcome = OutcomeFailure
	e.ErrorKind = ErrorKind(err)

	var statusErr *ledger.StatusError
	if errors.As(err, &statusErr) {
		e.Status = statusErr.Status
	}
	return e
}

// ErrorKind names the ledger error category of err.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ledger.ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ledger.ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ledger.ErrRejected):
		return KindRejected
	case errors.Is(err, ledger.ErrSubmission):
		return KindSubmission
	default:
		return KindInternal
	}
}

type requestIDKey struct{}

// WithRequestID returns a context carrying the HTTP request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request id stored by WithRequestID, or "".
func RequestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
