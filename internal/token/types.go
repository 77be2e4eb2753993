package token

import "context"

// CreatedNFT describes a newly created collection.
type CreatedNFT struct {
	TreasuryAccountID string `json:"treasury_account_id"`
	NFTID             string `json:"nft_id"`
	TokenExplorerURL  string `json:"tokenExplorerUrl"`

	// AccountTokenBalance is nil when the mirror node had no record in time.
	AccountTokenBalance *int64 `json:"accountTokenBalance,omitempty"`

	AccountBalanceFetchAPIURL string `json:"accountBalanceFetchApiUrl"`
}

// MintedNFT is the result of a mint. SerialNumber is the comma-joined list
// of serials the receipt reported, normally just one.
type MintedNFT struct {
	TokenID      string `json:"token_id"`
	SerialNumber string `json:"serial_number"`
}

// BalanceSource reads confirmed token balances, normally a mirror node.
type BalanceSource interface {
	TokenBalance(ctx context.Context, accountID, tokenID string) (int64, error)
	TokenBalanceURL(accountID, tokenID string) string
}
