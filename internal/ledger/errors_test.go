package ledger

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/hashgraph/hedera-sdk-go/v2"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantRejected bool
		wantStatus   string
		wantKind     error
	}{
		{
			name:         "receipt status",
			err:          hedera.ErrHederaReceiptStatus{Status: hedera.StatusTokenNotAssociatedToAccount},
			wantRejected: true,
			wantStatus:   "TOKEN_NOT_ASSOCIATED_TO_ACCOUNT",
			wantKind:     ErrSubmission,
		},
		{
			name:         "precheck status",
			err:          hedera.ErrHederaPreCheckStatus{Status: hedera.StatusInsufficientPayerBalance},
			wantRejected: true,
			wantStatus:   "INSUFFICIENT_PAYER_BALANCE",
			wantKind:     ErrSubmission,
		},
		{
			name:     "transport failure",
			err:      errors.New("connection reset by peer"),
			wantKind: ErrSubmission,
		},
		{
			name:     "already tagged",
			err:      invalidArgument("token id", errors.New("bad")),
			wantKind: ErrInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify("step", tt.err)

			if !errors.Is(got, tt.wantKind) {
				t.Errorf("classify() = %v, want kind %v", got, tt.wantKind)
			}
			if errors.Is(got, ErrRejected) != tt.wantRejected {
				t.Errorf("errors.Is(ErrRejected) = %v, want %v", !tt.wantRejected, tt.wantRejected)
			}
			if !keepsCause(got, tt.err) {
				t.Errorf("classify() dropped the cause: %v", got)
			}
			if !strings.HasPrefix(got.Error(), "step") && !strings.Contains(got.Error(), "step") {
				t.Errorf("classify() message %q does not name the step", got)
			}

			var se *StatusError
			if tt.wantRejected {
				if !errors.As(got, &se) {
					t.Fatalf("classify() = %v, want *StatusError in chain", got)
				}
				if se.Status != tt.wantStatus {
					t.Errorf("Status = %q, want %q", se.Status, tt.wantStatus)
				}
				if !strings.Contains(got.Error(), tt.wantStatus) {
					t.Errorf("message %q does not carry status verbatim", got)
				}
			}
		})
	}
}

// keepsCause reports whether got still wraps cause. The SDK status errors
// carry a receipt with slice fields, so they are matched by type and status
// rather than compared with ==.
func keepsCause(got, cause error) bool {
	switch c := cause.(type) {
	case hedera.ErrHederaReceiptStatus:
		var rs hedera.ErrHederaReceiptStatus
		return errors.As(got, &rs) && rs.Status == c.Status
	case hedera.ErrHederaPreCheckStatus:
		var ps hedera.ErrHederaPreCheckStatus
		return errors.As(got, &ps) && ps.Status == c.Status
	default:
		return errors.Is(got, cause)
	}
}

func TestClassify_Nil(t *testing.T) {
	if err := classify("step", nil); err != nil {
		t.Errorf("classify(nil) = %v, want nil", err)
	}
}

func TestRejected(t *testing.T) {
	err := fmt.Errorf("awaiting burn receipt: %w", Rejected("INVALID_NFT_ID"))

	if !errors.Is(err, ErrRejected) || !errors.Is(err, ErrSubmission) {
		t.Errorf("Rejected() should match ErrRejected and ErrSubmission: %v", err)
	}
	if errors.Is(err, ErrConfiguration) {
		t.Error("Rejected() should not match ErrConfiguration")
	}
	if err.Error() != "awaiting burn receipt: INVALID_NFT_ID" {
		t.Errorf("Error() = %q", err.Error())
	}
}
