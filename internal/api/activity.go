package api

import (
	"net/http"
	"strconv"

	"github.com/are4us/lyricera/internal/activity"
)

// handleListActivity returns journal entries, newest first.
//
// Query parameters:
//   - operation: filter by operation; the names are the operation routes
//     (create_account, create_nft, mint_nft, burn_nft_serial,
//     transfer_nft_token, associate_nft_to_account)
//   - entity_id: filter by account or token id
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	if s.activity == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "activity journal not configured")
		return
	}

	q := r.URL.Query()
	if op := q.Get("operation"); op != "" && !activity.IsOperation(op) {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "unknown operation: "+op)
		return
	}
	filter := activity.Filter{
		Operation: q.Get("operation"),
		EntityID:  q.Get("entity_id"),
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.activity.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list activity", "error", err)
		writeInternalError(w, "failed to list activity")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
