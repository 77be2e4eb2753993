// Package ledgertest provides an in-memory ledger.Connector for tests.
//
// Network keeps accounts, NFT collections, serials and associations in
// memory and enforces the rules the real network applies to them: strictly
// increasing serials, finite max supply, association before transfer, and
// single burns. Rejections come back as *ledger.StatusError with the same
// status names the network uses.
package ledgertest

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/are4us/lyricera/internal/ledger"
)

// OperatorID is the operator account every fake session pays from.
const OperatorID = "0.0.1001"

var entityID = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

type nft struct {
	owner    string
	metadata []byte
	created  time.Time
}

type collection struct {
	spec       ledger.NFTSpec
	nextSerial int64
	serials    map[int64]*nft
}

type account struct {
	privateKey string
	balance    int64
	tokens     map[string]bool
}

// Network is a fake ledger shared by every session it opens.
type Network struct {
	mu       sync.Mutex
	nextNum  int64
	accounts map[string]*account
	tokens   map[string]*collection

	opened int
	closed int

	// OpenErr, when set, is returned by Open.
	OpenErr error

	// Fail maps a Session method name to an error that method returns.
	Fail map[string]error
}

// NewNetwork returns an empty network holding only the operator account.
func NewNetwork() *Network {
	return &Network{
		nextNum: 2000,
		accounts: map[string]*account{
			OperatorID: {privateKey: "operator-key", tokens: map[string]bool{}},
		},
		tokens: map[string]*collection{},
		Fail:   map[string]error{},
	}
}

// Open implements ledger.Connector.
func (n *Network) Open(ctx context.Context) (ledger.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ledger.ErrSubmission, err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.OpenErr != nil {
		return nil, n.OpenErr
	}
	n.opened++
	return &session{net: n}, nil
}

// Sessions reports how many sessions were opened and closed.
func (n *Network) Sessions() (opened, closed int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.opened, n.closed
}

// Balance returns how many serials of tokenID accountID holds.
func (n *Network) Balance(accountID, tokenID string) (int64, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	c, ok := n.tokens[tokenID]
	if !ok {
		return 0, false
	}
	var count int64
	for _, s := range c.serials {
		if s.owner == accountID {
			count++
		}
	}
	return count, true
}

// Owner returns the current owner of a serial.
func (n *Network) Owner(tokenID string, serial int64) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	c, ok := n.tokens[tokenID]
	if !ok {
		return "", false
	}
	s, ok := c.serials[serial]
	if !ok {
		return "", false
	}
	return s.owner, true
}

func (n *Network) newID() string {
	n.nextNum++
	return fmt.Sprintf("0.0.%d", n.nextNum)
}

func parseID(field, id string) error {
	if !entityID.MatchString(id) {
		return fmt.Errorf("%w: %s: expected shard.realm.num, got %q", ledger.ErrInvalidArgument, field, id)
	}
	return nil
}

type session struct {
	net    *Network
	closed bool
}

// begin locks the network and applies context and failure injection.
// The caller must unlock when err is nil.
func (s *session) begin(ctx context.Context, method string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", ledger.ErrSubmission, method, err)
	}
	s.net.mu.Lock()
	if s.closed {
		s.net.mu.Unlock()
		return fmt.Errorf("%w: %s: session closed", ledger.ErrSubmission, method)
	}
	if err := s.net.Fail[method]; err != nil {
		s.net.mu.Unlock()
		return err
	}
	return nil
}

func (s *session) Operator() string { return OperatorID }

func (s *session) Close() error {
	s.net.mu.Lock()
	defer s.net.mu.Unlock()
	if s.closed {
		return errors.New("session already closed")
	}
	s.closed = true
	s.net.closed++
	return s.net.Fail["Close"]
}

func (s *session) CreateAccount(ctx context.Context, initialBalanceTinybar int64) (ledger.NewAccount, error) {
	if err := s.begin(ctx, "CreateAccount"); err != nil {
		return ledger.NewAccount{}, err
	}
	defer s.net.mu.Unlock()

	id := s.net.newID()
	key := "302e020100300506032b6570" + id
	s.net.accounts[id] = &account{privateKey: key, balance: initialBalanceTinybar, tokens: map[string]bool{}}

	return ledger.NewAccount{
		AccountID:  id,
		PublicKey:  "302a300506032b6570" + id,
		PrivateKey: key,
	}, nil
}

func (s *session) AccountBalance(ctx context.Context, accountID string) (int64, error) {
	if err := parseID("account id", accountID); err != nil {
		return 0, err
	}
	if err := s.begin(ctx, "AccountBalance"); err != nil {
		return 0, err
	}
	defer s.net.mu.Unlock()

	a, ok := s.net.accounts[accountID]
	if !ok {
		return 0, ledger.Rejected("INVALID_ACCOUNT_ID")
	}
	return a.balance, nil
}

func (s *session) CreateNFT(ctx context.Context, spec ledger.NFTSpec) (string, error) {
	if err := s.begin(ctx, "CreateNFT"); err != nil {
		return "", err
	}
	defer s.net.mu.Unlock()

	switch {
	case spec.Name == "":
		return "", ledger.Rejected("MISSING_TOKEN_NAME")
	case spec.Symbol == "":
		return "", ledger.Rejected("MISSING_TOKEN_SYMBOL")
	case spec.MaxSupply <= 0:
		return "", ledger.Rejected("INVALID_TOKEN_MAX_SUPPLY")
	}

	id := s.net.newID()
	s.net.tokens[id] = &collection{spec: spec, serials: map[int64]*nft{}}
	s.net.accounts[OperatorID].tokens[id] = true
	return id, nil
}

func (s *session) token(tokenID string) (*collection, error) {
	c, ok := s.net.tokens[tokenID]
	if !ok {
		return nil, ledger.Rejected("INVALID_TOKEN_ID")
	}
	return c, nil
}

func (s *session) MintNFT(ctx context.Context, tokenID string, metadata []byte) ([]int64, error) {
	if err := parseID("token id", tokenID); err != nil {
		return nil, err
	}
	if err := s.begin(ctx, "MintNFT"); err != nil {
		return nil, err
	}
	defer s.net.mu.Unlock()

	c, err := s.token(tokenID)
	if err != nil {
		return nil, err
	}
	if int64(len(c.serials)) >= c.spec.MaxSupply {
		return nil, ledger.Rejected("TOKEN_MAX_SUPPLY_REACHED")
	}

	c.nextSerial++
	c.serials[c.nextSerial] = &nft{owner: OperatorID, metadata: append([]byte(nil), metadata...), created: time.Now().UTC()}
	return []int64{c.nextSerial}, nil
}

func (s *session) NFTInfo(ctx context.Context, tokenID string, serial int64) (ledger.NFTInfo, error) {
	if err := parseID("token id", tokenID); err != nil {
		return ledger.NFTInfo{}, err
	}
	if err := s.begin(ctx, "NFTInfo"); err != nil {
		return ledger.NFTInfo{}, err
	}
	defer s.net.mu.Unlock()

	c, err := s.token(tokenID)
	if err != nil {
		return ledger.NFTInfo{}, err
	}
	n, ok := c.serials[serial]
	if !ok {
		return ledger.NFTInfo{}, ledger.Rejected("INVALID_NFT_ID")
	}
	return ledger.NFTInfo{TokenID: tokenID, Serial: serial, OwnerID: n.owner, Metadata: n.metadata, CreatedAt: n.created}, nil
}

func (s *session) BurnNFT(ctx context.Context, tokenID string, serial int64) (string, error) {
	if err := parseID("token id", tokenID); err != nil {
		return "", err
	}
	if err := s.begin(ctx, "BurnNFT"); err != nil {
		return "", err
	}
	defer s.net.mu.Unlock()

	c, err := s.token(tokenID)
	if err != nil {
		return "", err
	}
	n, ok := c.serials[serial]
	if !ok {
		return "", ledger.Rejected("INVALID_NFT_ID")
	}
	if n.owner != OperatorID {
		return "", ledger.Rejected("TREASURY_MUST_OWN_BURNED_NFT")
	}
	delete(c.serials, serial)
	return ledger.StatusSuccess, nil
}

func (s *session) TransferNFT(ctx context.Context, tokenID string, serial int64, recipientID string) (string, error) {
	if err := parseID("token id", tokenID); err != nil {
		return "", err
	}
	if err := parseID("recipient id", recipientID); err != nil {
		return "", err
	}
	if err := s.begin(ctx, "TransferNFT"); err != nil {
		return "", err
	}
	defer s.net.mu.Unlock()

	c, err := s.token(tokenID)
	if err != nil {
		return "", err
	}
	n, ok := c.serials[serial]
	if !ok {
		return "", ledger.Rejected("INVALID_NFT_ID")
	}
	if n.owner != OperatorID {
		return "", ledger.Rejected("SENDER_DOES_NOT_OWN_NFT_SERIAL_NO")
	}
	recipient, ok := s.net.accounts[recipientID]
	if !ok {
		return "", ledger.Rejected("INVALID_ACCOUNT_ID")
	}
	if !recipient.tokens[tokenID] {
		return "", ledger.Rejected("TOKEN_NOT_ASSOCIATED_TO_ACCOUNT")
	}
	n.owner = recipientID
	return ledger.StatusSuccess, nil
}

func (s *session) AssociateToken(ctx context.Context, tokenID, accountID, accountPrivateKey string) (string, error) {
	if err := parseID("token id", tokenID); err != nil {
		return "", err
	}
	if err := parseID("account id", accountID); err != nil {
		return "", err
	}
	if accountPrivateKey == "" {
		return "", fmt.Errorf("%w: account private key: empty", ledger.ErrInvalidArgument)
	}
	if err := s.begin(ctx, "AssociateToken"); err != nil {
		return "", err
	}
	defer s.net.mu.Unlock()

	if _, err := s.token(tokenID); err != nil {
		return "", err
	}
	a, ok := s.net.accounts[accountID]
	if !ok {
		return "", ledger.Rejected("INVALID_ACCOUNT_ID")
	}
	if a.privateKey != accountPrivateKey {
		return "", ledger.Rejected("INVALID_SIGNATURE")
	}
	if a.tokens[tokenID] {
		return "", ledger.Rejected("TOKEN_ALREADY_ASSOCIATED_TO_ACCOUNT")
	}
	a.tokens[tokenID] = true
	return ledger.StatusSuccess, nil
}
