package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashgraph/hedera-sdk-go/v2"

	"github.com/are4us/lyricera/internal/infrastructure/config"
)

// HederaConnector opens sessions against a Hedera network with the SDK.
type HederaConnector struct {
	cfg config.LedgerConfig

	// newClient builds the SDK client for a network name. For the public
	// networks the SDK fetches the address book before returning.
	newClient func(network string) (*hedera.Client, error)
}

// NewHederaConnector returns a connector for the configured network.
// Credentials are checked on every Open, not here.
func NewHederaConnector(cfg config.LedgerConfig) *HederaConnector {
	return &HederaConnector{cfg: cfg, newClient: hedera.ClientForName}
}

// Open validates the operator credentials and builds a client with the
// operator set and the fee and query payment ceilings applied.
//
// ctx is only checked before the client is built. The SDK's address book
// lookup inside client construction does not take a context, so a
// cancellation that arrives during that lookup is not observed.
//
// Returns:
//   - Session: Live session; the caller must Close it
//   - error: ErrConfiguration for missing or unparsable credentials,
//     ErrSubmission if the client cannot be built
func (c *HederaConnector) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubmission, err)
	}

	op := c.cfg.Operator
	if op.AccountID == "" || op.PrivateKey == "" {
		return nil, fmt.Errorf("%w: environment variables ACCOUNT_ID and ACCOUNT_PRIVATE_KEY must be present", ErrConfiguration)
	}

	operatorID, err := hedera.AccountIDFromString(op.AccountID)
	if err != nil {
		return nil, fmt.Errorf("%w: operator account id: %w", ErrConfiguration, err)
	}
	operatorKey, err := parsePrivateKey(c.cfg.KeyType, op.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: operator private key: %w", ErrConfiguration, err)
	}

	client, err := c.newClient(c.cfg.Network)
	if err != nil {
		return nil, fmt.Errorf("%w: building client for %s: %w", ErrSubmission, c.cfg.Network, err)
	}
	client.SetOperator(operatorID, operatorKey)

	if err := client.SetDefaultMaxTransactionFee(hedera.NewHbar(c.cfg.MaxTransactionFeeHbar)); err != nil {
		client.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("%w: max transaction fee: %w", ErrConfiguration, err)
	}
	if err := client.SetDefaultMaxQueryPayment(hedera.NewHbar(c.cfg.MaxQueryPaymentHbar)); err != nil {
		client.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("%w: max query payment: %w", ErrConfiguration, err)
	}

	return &hederaSession{
		client:      client,
		operatorID:  operatorID,
		operatorKey: operatorKey,
		keyType:     c.cfg.KeyType,
	}, nil
}

// parsePrivateKey parses s according to keyType ("ecdsa" or "ed25519").
func parsePrivateKey(keyType, s string) (hedera.PrivateKey, error) {
	if strings.EqualFold(keyType, "ed25519") {
		return hedera.PrivateKeyFromStringEd25519(s)
	}
	return hedera.PrivateKeyFromStringECDSA(s)
}

func generatePrivateKey(keyType string) (hedera.PrivateKey, error) {
	if strings.EqualFold(keyType, "ed25519") {
		return hedera.PrivateKeyGenerateEd25519()
	}
	return hedera.PrivateKeyGenerateEcdsa()
}

type hederaSession struct {
	client      *hedera.Client
	operatorID  hedera.AccountID
	operatorKey hedera.PrivateKey
	keyType     string
}

func (s *hederaSession) Operator() string {
	return s.operatorID.String()
}

func (s *hederaSession) Close() error {
	return s.client.Close()
}

func (s *hederaSession) CreateAccount(ctx context.Context, initialBalanceTinybar int64) (NewAccount, error) {
	if err := ctx.Err(); err != nil {
		return NewAccount{}, classify("creating account", err)
	}

	key, err := generatePrivateKey(s.keyType)
	if err != nil {
		return NewAccount{}, classify("generating key", err)
	}
	publicKey := key.PublicKey()

	resp, err := hedera.NewAccountCreateTransaction().
		SetKey(publicKey).
		SetInitialBalance(hedera.HbarFromTinybar(initialBalanceTinybar)).
		Execute(s.client)
	if err != nil {
		return NewAccount{}, classify("submitting account creation", err)
	}

	receipt, err := resp.GetReceipt(s.client)
	if err != nil {
		return NewAccount{}, classify("awaiting account receipt", err)
	}
	if receipt.AccountID == nil {
		return NewAccount{}, classify("awaiting account receipt", errors.New("receipt carries no account id"))
	}

	return NewAccount{
		AccountID:  receipt.AccountID.String(),
		PublicKey:  publicKey.String(),
		PrivateKey: key.String(),
	}, nil
}

func (s *hederaSession) AccountBalance(ctx context.Context, accountID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, classify("querying balance", err)
	}

	id, err := hedera.AccountIDFromString(accountID)
	if err != nil {
		return 0, invalidArgument("account id", err)
	}

	balance, err := hedera.NewAccountBalanceQuery().SetAccountID(id).Execute(s.client)
	if err != nil {
		return 0, classify("querying balance", err)
	}
	return balance.Hbars.AsTinybar(), nil
}

func (s *hederaSession) CreateNFT(ctx context.Context, spec NFTSpec) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", classify("creating token", err)
	}

	operatorPublic := s.operatorKey.PublicKey()
	tx, err := hedera.NewTokenCreateTransaction().
		SetTokenName(spec.Name).
		SetTokenSymbol(spec.Symbol).
		SetTokenMemo(spec.Memo).
		SetTokenType(hedera.TokenTypeNonFungibleUnique).
		SetDecimals(0).
		SetInitialSupply(0).
		SetTreasuryAccountID(s.operatorID).
		SetSupplyType(hedera.TokenSupplyTypeFinite).
		SetMaxSupply(spec.MaxSupply).
		SetSupplyKey(operatorPublic).
		SetAdminKey(operatorPublic).
		FreezeWith(s.client)
	if err != nil {
		return "", classify("building token creation", err)
	}

	resp, err := tx.Sign(s.operatorKey).Execute(s.client)
	if err != nil {
		return "", classify("submitting token creation", err)
	}

	receipt, err := resp.GetReceipt(s.client)
	if err != nil {
		return "", classify("awaiting token receipt", err)
	}
	if receipt.TokenID == nil {
		return "", classify("awaiting token receipt", errors.New("receipt carries no token id"))
	}
	return receipt.TokenID.String(), nil
}

func (s *hederaSession) MintNFT(ctx context.Context, tokenID string, metadata []byte) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify("minting", err)
	}

	tid, err := hedera.TokenIDFromString(tokenID)
	if err != nil {
		return nil, invalidArgument("token id", err)
	}

	tx, err := hedera.NewTokenMintTransaction().
		SetTokenID(tid).
		SetMetadata(metadata).
		FreezeWith(s.client)
	if err != nil {
		return nil, classify("building mint", err)
	}

	resp, err := tx.Sign(s.operatorKey).Execute(s.client)
	if err != nil {
		return nil, classify("submitting mint", err)
	}

	receipt, err := resp.GetReceipt(s.client)
	if err != nil {
		return nil, classify("awaiting mint receipt", err)
	}
	return receipt.SerialNumbers, nil
}

func (s *hederaSession) NFTInfo(ctx context.Context, tokenID string, serial int64) (NFTInfo, error) {
	if err := ctx.Err(); err != nil {
		return NFTInfo{}, classify("querying nft info", err)
	}

	tid, err := hedera.TokenIDFromString(tokenID)
	if err != nil {
		return NFTInfo{}, invalidArgument("token id", err)
	}

	infos, err := hedera.NewTokenNftInfoQuery().
		SetNftID(hedera.NftID{TokenID: tid, SerialNumber: serial}).
		Execute(s.client)
	if err != nil {
		return NFTInfo{}, classify("querying nft info", err)
	}
	if len(infos) == 0 {
		return NFTInfo{}, classify("querying nft info", fmt.Errorf("no info for %s serial %d", tokenID, serial))
	}

	info := infos[0]
	return NFTInfo{
		TokenID:   info.NftID.TokenID.String(),
		Serial:    info.NftID.SerialNumber,
		OwnerID:   info.AccountID.String(),
		Metadata:  info.Metadata,
		CreatedAt: info.CreationTime,
	}, nil
}

func (s *hederaSession) BurnNFT(ctx context.Context, tokenID string, serial int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", classify("burning", err)
	}

	tid, err := hedera.TokenIDFromString(tokenID)
	if err != nil {
		return "", invalidArgument("token id", err)
	}

	tx, err := hedera.NewTokenBurnTransaction().
		SetTokenID(tid).
		SetSerialNumbers([]int64{serial}).
		FreezeWith(s.client)
	if err != nil {
		return "", classify("building burn", err)
	}

	resp, err := tx.Sign(s.operatorKey).Execute(s.client)
	if err != nil {
		return "", classify("submitting burn", err)
	}
	return s.status("awaiting burn receipt", resp)
}

func (s *hederaSession) TransferNFT(ctx context.Context, tokenID string, serial int64, recipientID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", classify("transferring", err)
	}

	tid, err := hedera.TokenIDFromString(tokenID)
	if err != nil {
		return "", invalidArgument("token id", err)
	}
	recipient, err := hedera.AccountIDFromString(recipientID)
	if err != nil {
		return "", invalidArgument("recipient id", err)
	}

	tx, err := hedera.NewTransferTransaction().
		AddNftTransfer(hedera.NftID{TokenID: tid, SerialNumber: serial}, s.operatorID, recipient).
		FreezeWith(s.client)
	if err != nil {
		return "", classify("building transfer", err)
	}

	resp, err := tx.Sign(s.operatorKey).Execute(s.client)
	if err != nil {
		return "", classify("submitting transfer", err)
	}
	return s.status("awaiting transfer receipt", resp)
}

func (s *hederaSession) AssociateToken(ctx context.Context, tokenID, accountID, accountPrivateKey string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", classify("associating", err)
	}

	tid, err := hedera.TokenIDFromString(tokenID)
	if err != nil {
		return "", invalidArgument("token id", err)
	}
	account, err := hedera.AccountIDFromString(accountID)
	if err != nil {
		return "", invalidArgument("account id", err)
	}
	accountKey, err := parsePrivateKey(s.keyType, accountPrivateKey)
	if err != nil {
		return "", invalidArgument("account private key", err)
	}

	tx, err := hedera.NewTokenAssociateTransaction().
		SetAccountID(account).
		SetTokenIDs(tid).
		FreezeWith(s.client)
	if err != nil {
		return "", classify("building association", err)
	}

	resp, err := tx.Sign(accountKey).Execute(s.client)
	if err != nil {
		return "", classify("submitting association", err)
	}
	return s.status("awaiting association receipt", resp)
}

// status waits for the receipt of resp and returns its status string.
func (s *hederaSession) status(step string, resp hedera.TransactionResponse) (string, error) {
	receipt, err := resp.GetReceipt(s.client)
	if err != nil {
		return "", classify(step, err)
	}
	status := receipt.Status.String()
	if status != StatusSuccess {
		return "", fmt.Errorf("%s: %w", step, Rejected(status))
	}
	return status, nil
}
