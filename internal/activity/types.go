package activity

import "time"

// Operation names, shared by the journal, MQTT topics, websocket channels
// and metric labels. Each is the path of the route that performs it.
const (
	OpCreateAccount = "create_account"
	OpCreateNFT     = "create_nft"
	OpMintNFT       = "mint_nft"
	OpBurnNFT       = "burn_nft_serial"
	OpTransferNFT   = "transfer_nft_token"
	OpAssociateNFT  = "associate_nft_to_account"
)

// Operations lists every operation name in route order.
func Operations() []string {
	return []string{OpCreateAccount, OpCreateNFT, OpMintNFT, OpBurnNFT, OpTransferNFT, OpAssociateNFT}
}

// IsOperation reports whether name is one of the operation names.
func IsOperation(name string) bool {
	for _, op := range Operations() {
		if op == name {
			return true
		}
	}
	return false
}

// Outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Entry is one journaled ledger operation. It never holds key material.
type Entry struct {
	ID         string         `json:"id"`
	Operation  string         `json:"operation"`
	EntityID   string         `json:"entity_id,omitempty"`
	Outcome    string         `json:"outcome"`
	ErrorKind  string         `json:"error_kind,omitempty"`
	Status     string         `json:"status,omitempty"`
	Detail     map[string]any `json:"detail,omitempty"`
	DurationMS int64          `json:"duration_ms"`
	RequestID  string         `json:"request_id,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Filter controls which entries List returns.
type Filter struct {
	Operation string
	EntityID  string
	Limit     int // default 50, max 200
	Offset    int
}

// ListResult is one page of entries, newest first.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}
