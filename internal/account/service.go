package account

import (
	"context"
	"time"

	"github.com/are4us/lyricera/internal/activity"
	"github.com/are4us/lyricera/internal/infrastructure/config"
	"github.com/are4us/lyricera/internal/infrastructure/logging"
	"github.com/are4us/lyricera/internal/ledger"
)

// Account is a newly created account and its key pair.
type Account struct {
	PrivateKey string `json:"privateKey"`
	PublicKey  string `json:"publicKey"`
	AccountID  string `json:"accountID"`
}

// Service creates accounts.
type Service struct {
	connector      ledger.Connector
	initialBalance int64
	logger         *logging.Logger
	recorder       *activity.Recorder
}

// NewService creates an account service. recorder may be nil.
func NewService(connector ledger.Connector, cfg config.LedgerConfig, logger *logging.Logger, recorder *activity.Recorder) *Service {
	return &Service{
		connector:      connector,
		initialBalance: cfg.InitialBalanceTinybar,
		logger:         logger.With("component", "account"),
		recorder:       recorder,
	}
}

// Create generates a key pair, creates an account funded with the
// configured initial balance and confirms it with a balance query.
//
// Returns:
//   - *Account: The new account id and both keys
//   - error: A ledger error kind wrapping the failing step
func (s *Service) Create(ctx context.Context) (*Account, error) {
	started := time.Now()

	var created ledger.NewAccount
	err := ledger.WithSession(ctx, s.connector, s.logger, func(session ledger.Session) error {
		var err error
		created, err = session.CreateAccount(ctx, s.initialBalance)
		if err != nil {
			return err
		}

		balance, err := session.AccountBalance(ctx, created.AccountID)
		if err != nil {
			return err
		}
		s.logger.Debug("account balance confirmed",
			"account_id", created.AccountID,
			"balance_tinybar", balance,
		)
		return nil
	})

	s.recorder.Record(ctx, activity.NewEntry(activity.OpCreateAccount, created.AccountID, started, err))
	if err != nil {
		return nil, err
	}

	s.logger.Info("account created", "account_id", created.AccountID)
	return &Account{
		PrivateKey: created.PrivateKey,
		PublicKey:  created.PublicKey,
		AccountID:  created.AccountID,
	}, nil
}
