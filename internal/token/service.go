package token

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/are4us/lyricera/internal/activity"
	"github.com/are4us/lyricera/internal/infrastructure/config"
	"github.com/are4us/lyricera/internal/infrastructure/logging"
	"github.com/are4us/lyricera/internal/ledger"
)

// Service runs NFT operations against the ledger.
//
// Thread Safety: All methods are safe for concurrent use; each call uses
// its own session.
type Service struct {
	connector ledger.Connector
	balances  BalanceSource
	cfg       config.LedgerConfig
	logger    *logging.Logger
	recorder  *activity.Recorder
}

// NewService creates a token service.
//
// Parameters:
//   - connector: Opens a ledger session per operation
//   - balances: Mirror node reader used after CreateNFT
//   - cfg: Token defaults (max supply, memo) and the explorer URL
//   - logger: Component logger
//   - recorder: Activity journal, may be nil
func NewService(connector ledger.Connector, balances BalanceSource, cfg config.LedgerConfig, logger *logging.Logger, recorder *activity.Recorder) *Service {
	return &Service{
		connector: connector,
		balances:  balances,
		cfg:       cfg,
		logger:    logger.With("component", "token"),
		recorder:  recorder,
	}
}

// CreateNFT creates a FINITE non-fungible collection with the operator as
// treasury, then waits for the mirror node to report the treasury balance.
func (s *Service) CreateNFT(ctx context.Context, name, symbol string) (*CreatedNFT, error) {
	started := time.Now()

	var treasury, tokenID string
	err := ledger.WithSession(ctx, s.connector, s.logger, func(session ledger.Session) error {
		treasury = session.Operator()

		var err error
		tokenID, err = session.CreateNFT(ctx, ledger.NFTSpec{
			Name:      name,
			Symbol:    symbol,
			Memo:      s.cfg.Token.Memo,
			MaxSupply: s.cfg.Token.MaxSupply,
		})
		return err
	})

	entry := activity.NewEntry(activity.OpCreateNFT, tokenID, started, err)
	entry.Detail = map[string]any{"name": name, "symbol": symbol}
	s.recorder.Record(ctx, entry)
	if err != nil {
		return nil, err
	}

	result := &CreatedNFT{
		TreasuryAccountID:         treasury,
		NFTID:                     tokenID,
		TokenExplorerURL:          strings.TrimRight(s.cfg.ExplorerURL, "/") + "/token/" + tokenID,
		AccountBalanceFetchAPIURL: s.balances.TokenBalanceURL(treasury, tokenID),
	}

	balance, err := s.balances.TokenBalance(ctx, treasury, tokenID)
	if err != nil {
		s.logger.Warn("treasury balance not available from mirror node",
			"token_id", tokenID,
			"treasury_account_id", treasury,
			"url", result.AccountBalanceFetchAPIURL,
			"error", err,
		)
	} else {
		result.AccountTokenBalance = &balance
	}

	s.logger.Info("nft created",
		"token_id", tokenID,
		"treasury_account_id", treasury,
		"explorer_url", result.TokenExplorerURL,
	)
	return result, nil
}

// Mint mints one serial of tokenID carrying metadata.
//
// The new serial's info is read back for the log; a failure there is
// logged and does not fail the mint.
func (s *Service) Mint(ctx context.Context, tokenID string, metadata []byte) (*MintedNFT, error) {
	started := time.Now()

	var serials []int64
	err := ledger.WithSession(ctx, s.connector, s.logger, func(session ledger.Session) error {
		var err error
		serials, err = session.MintNFT(ctx, tokenID, metadata)
		if err != nil || len(serials) == 0 {
			return err
		}

		info, err := session.NFTInfo(ctx, tokenID, serials[0])
		if err != nil {
			s.logger.Warn("nft info query failed", "token_id", tokenID, "serial", serials[0], "error", err)
			return nil
		}
		s.logger.Debug("nft info",
			"nft_id", tokenID+"@"+strconv.FormatInt(info.Serial, 10),
			"owner_id", info.OwnerID,
			"metadata_bytes", len(info.Metadata),
		)
		return nil
	})

	joined := joinSerials(serials)
	entry := activity.NewEntry(activity.OpMintNFT, tokenID, started, err)
	if joined != "" {
		entry.Detail = map[string]any{"serials": joined}
	}
	s.recorder.Record(ctx, entry)
	if err != nil {
		return nil, err
	}

	s.logger.Info("nft minted", "token_id", tokenID, "serial_number", joined)
	return &MintedNFT{TokenID: tokenID, SerialNumber: joined}, nil
}

// Burn burns a single serial held by the treasury and returns the receipt status.
func (s *Service) Burn(ctx context.Context, tokenID string, serial int64) (string, error) {
	return s.statusOp(ctx, activity.OpBurnNFT, tokenID,
		map[string]any{"serial": serial},
		func(session ledger.Session) (string, error) {
			return session.BurnNFT(ctx, tokenID, serial)
		})
}

// Transfer moves a serial from the treasury to recipientID, which must
// already be associated with tokenID.
func (s *Service) Transfer(ctx context.Context, tokenID string, serial int64, recipientID string) (string, error) {
	return s.statusOp(ctx, activity.OpTransferNFT, tokenID,
		map[string]any{"serial": serial, "recipient_id": recipientID},
		func(session ledger.Session) (string, error) {
			return session.TransferNFT(ctx, tokenID, serial, recipientID)
		})
}

// Associate associates accountID with tokenID, signed with accountPrivateKey.
// The key is used for signing only.
func (s *Service) Associate(ctx context.Context, tokenID, accountID, accountPrivateKey string) (string, error) {
	return s.statusOp(ctx, activity.OpAssociateNFT, tokenID,
		map[string]any{"account_id": accountID},
		func(session ledger.Session) (string, error) {
			return session.AssociateToken(ctx, tokenID, accountID, accountPrivateKey)
		})
}

// statusOp runs an operation whose result is a receipt status, then
// journals and logs it.
func (s *Service) statusOp(ctx context.Context, operation, tokenID string, detail map[string]any, fn func(ledger.Session) (string, error)) (string, error) {
	started := time.Now()

	var status string
	err := ledger.WithSession(ctx, s.connector, s.logger, func(session ledger.Session) error {
		var err error
		status, err = fn(session)
		return err
	})

	entry := activity.NewEntry(operation, tokenID, started, err)
	entry.Detail = detail
	if err == nil {
		entry.Status = status
	}
	s.recorder.Record(ctx, entry)
	if err != nil {
		return "", err
	}

	args := []any{"token_id", tokenID, "status", status}
	for k, v := range detail {
		args = append(args, k, v)
	}
	s.logger.Info(operation, args...)
	return status, nil
}

func joinSerials(serials []int64) string {
	parts := make([]string, len(serials))
	for i, n := range serials {
		parts[i] = strconv.FormatInt(n, 10)
	}
	return strings.Join(parts, ",")
}
