package api

import (
	"context"
	"net/http"
	"time"
)

// Labels that prefix the HTML representation of each result.
const (
	labelCreateAccount = "The created account is: "
	labelCreateNFT     = "The created NFT is: "
	labelMintNFT       = "The minted NFT is: "
	labelBurnNFT       = "The burned NFT token is: "
	labelTransferNFT   = "The transfered NFT token is: "
	labelAssociateNFT  = "The status of associating NFt to account is: "
)

// rootTimeLayout renders the server time on the front page.
const rootTimeLayout = "Mon Jan 02 2006 15:04:05 GMT-0700 (MST)"

// handleRoot returns the front-page greeting with the current server time.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", mimeHTML+"; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write([]byte("Hello, you have reached the front page for the hedera svr. The current time is: " +
		time.Now().Format(rootTimeLayout)))
}

// serveOperation runs one ledger route. The representation is settled
// before the ledger is touched: a request answered with 406 never reaches it.
// req, when non-nil, receives the decoded body before run is called.
func (s *Server) serveOperation(w http.ResponseWriter, r *http.Request, label string, req any, run func(ctx context.Context) (any, error)) {
	body, err := readBody(r)
	if err != nil {
		s.writeOperationError(w, r, nil, err)
		return
	}

	f, err := negotiate(r.Header.Get("Accept"))
	if err != nil {
		s.writeOperationError(w, r, body, err)
		return
	}

	if req != nil {
		if err := decodeBody(body, req); err != nil {
			s.writeOperationError(w, r, body, err)
			return
		}
	}

	result, err := run(r.Context())
	if err != nil {
		s.writeOperationError(w, r, body, err)
		return
	}
	writeResult(w, f, label, result)
}

// handleCreateAccount creates a funded account and returns its keys.
func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	s.serveOperation(w, r, labelCreateAccount, nil, func(ctx context.Context) (any, error) {
		return s.accounts.Create(ctx)
	})
}

// handleCreateNFT creates a collection from nft_name and nft_symbol.
func (s *Server) handleCreateNFT(w http.ResponseWriter, r *http.Request) {
	var req createNFTRequest
	s.serveOperation(w, r, labelCreateNFT, &req, func(ctx context.Context) (any, error) {
		return s.tokens.CreateNFT(ctx, req.Name, req.Symbol)
	})
}

// handleMintNFT mints one serial of token_id carrying metadata.
func (s *Server) handleMintNFT(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	s.serveOperation(w, r, labelMintNFT, &req, func(ctx context.Context) (any, error) {
		return s.tokens.Mint(ctx, req.TokenID, req.Metadata)
	})
}

// handleBurnNFT burns serial_number of token_id.
func (s *Server) handleBurnNFT(w http.ResponseWriter, r *http.Request) {
	var req burnRequest
	s.serveOperation(w, r, labelBurnNFT, &req, func(ctx context.Context) (any, error) {
		serial, err := req.SerialNumber.value()
		if err != nil {
			return nil, err
		}
		return s.tokens.Burn(ctx, req.TokenID, serial)
	})
}

// handleTransferNFT moves serial_number of token_id to recipient_id.
func (s *Server) handleTransferNFT(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	s.serveOperation(w, r, labelTransferNFT, &req, func(ctx context.Context) (any, error) {
		serial, err := req.SerialNumber.value()
		if err != nil {
			return nil, err
		}
		return s.tokens.Transfer(ctx, req.TokenID, serial, req.RecipientID)
	})
}

// handleAssociateNFT associates associate_account_id with token_id,
// signed with associate_private_key.
func (s *Server) handleAssociateNFT(w http.ResponseWriter, r *http.Request) {
	var req associateRequest
	s.serveOperation(w, r, labelAssociateNFT, &req, func(ctx context.Context) (any, error) {
		return s.tokens.Associate(ctx, req.TokenID, req.AccountID, req.PrivateKey)
	})
}
