package ledger

import (
	"context"
	"fmt"
	"time"
)

// StatusSuccess is the receipt status of an accepted transaction.
const StatusSuccess = "SUCCESS"

// NewAccount is a freshly created account with its generated key pair.
// PrivateKey is shown to the caller once and must never be logged or stored.
type NewAccount struct {
	AccountID  string
	PublicKey  string
	PrivateKey string
}

// NFTSpec describes a non-fungible, finite-supply token collection.
// Treasury, admin key and supply key are always the session operator.
type NFTSpec struct {
	Name      string
	Symbol    string
	Memo      string
	MaxSupply int64
}

// NFTInfo is the network's view of one serial.
type NFTInfo struct {
	TokenID   string
	Serial    int64
	OwnerID   string
	Metadata  []byte
	CreatedAt time.Time
}

// Session is an authenticated connection to the ledger network.
//
// Every mutating method builds, signs, submits and waits for the receipt of
// one transaction. Ids are in shard.realm.num form. A receipt status other than
// SUCCESS is returned as a *StatusError.
type Session interface {
	// Operator returns the paying account id.
	Operator() string

	CreateAccount(ctx context.Context, initialBalanceTinybar int64) (NewAccount, error)
	AccountBalance(ctx context.Context, accountID string) (int64, error)

	CreateNFT(ctx context.Context, spec NFTSpec) (string, error)
	MintNFT(ctx context.Context, tokenID string, metadata []byte) ([]int64, error)
	NFTInfo(ctx context.Context, tokenID string, serial int64) (NFTInfo, error)
	BurnNFT(ctx context.Context, tokenID string, serial int64) (string, error)
	TransferNFT(ctx context.Context, tokenID string, serial int64, recipientID string) (string, error)

	// AssociateToken is signed with accountPrivateKey, the target account's key.
	AssociateToken(ctx context.Context, tokenID, accountID, accountPrivateKey string) (string, error)

	Close() error
}

// Connector opens sessions.
type Connector interface {
	Open(ctx context.Context) (Session, error)
}

// Logger is the subset of logging.Logger used for session lifecycle messages.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// WithSession opens a session, runs fn and closes the session on every exit
// path, including a panic in fn. Close failures are logged, not returned.
//
// Parameters:
//   - ctx: Bounds the open and is handed to fn
//   - connector: Session source
//   - logger: Receives close failures
//   - fn: The work to do with the session
//
// Returns:
//   - error: The open error or fn's error
func WithSession(ctx context.Context, connector Connector, logger Logger, fn func(Session) error) (err error) {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubmission, err)
	}

	session, err := connector.Open(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Warn("closing ledger session", "error", cerr)
			return
		}
		logger.Debug("ledger session closed")
	}()

	return fn(session)
}
