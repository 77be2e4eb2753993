package ledger

import (
	"errors"
	"fmt"

	"github.com/hashgraph/hedera-sdk-go/v2"
)

// Error kinds. Match with errors.Is; the original cause stays in the chain.
var (
	// ErrConfiguration means the operator credentials are missing or unusable.
	ErrConfiguration = errors.New("ledger configuration error")

	// ErrInvalidArgument means a caller-supplied id, key or serial could not be parsed.
	ErrInvalidArgument = errors.New("invalid ledger argument")

	// ErrSubmission means building, signing, submitting or confirming a request failed.
	ErrSubmission = errors.New("ledger submission failed")

	// ErrRejected means the network answered with a status other than SUCCESS.
	// A rejected request is also an ErrSubmission.
	ErrRejected = errors.New("ledger rejected transaction")
)

// StatusError carries the network status of a rejected request, e.g.
// TOKEN_NOT_ASSOCIATED_TO_ACCOUNT.
type StatusError struct {
	Status string
	Cause  error
}

func (e *StatusError) Error() string {
	return e.Status
}

// Unwrap returns the SDK error the status was taken from, if any.
func (e *StatusError) Unwrap() error {
	return e.Cause
}

// Is reports StatusError as both ErrRejected and ErrSubmission.
func (e *StatusError) Is(target error) bool {
	return target == ErrRejected || target == ErrSubmission
}

// Rejected builds a StatusError for status with no underlying SDK error.
func Rejected(status string) error {
	return &StatusError{Status: status}
}

// invalidArgument tags a parse failure for the named request field.
func invalidArgument(field string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInvalidArgument, field, err)
}

// classify tags an SDK failure during step. Precheck and receipt status
// failures become StatusError; anything else becomes ErrSubmission.
func classify(step string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrSubmission) || errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrConfiguration) {
		return fmt.Errorf("%s: %w", step, err)
	}

	if status, ok := networkStatus(err); ok {
		return fmt.Errorf("%s: %w", step, &StatusError{Status: status, Cause: err})
	}
	return fmt.Errorf("%w: %s: %w", ErrSubmission, step, err)
}

// networkStatus extracts the status code from the SDK's precheck and receipt errors.
func networkStatus(err error) (string, bool) {
	var receipt hedera.ErrHederaReceiptStatus
	if errors.As(err, &receipt) {
		return receipt.Status.String(), true
	}
	var precheck hedera.ErrHederaPreCheckStatus
	if errors.As(err, &precheck) {
		return precheck.Status.String(), true
	}
	return "", false
}
