package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/are4us/lyricera/internal/activity"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware())
	r.Use(s.rateLimitMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	// Ledger operations and the activity feed (bearer token when auth is enabled)
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/"+activity.OpCreateAccount, s.handleCreateAccount)
		r.Post("/"+activity.OpCreateNFT, s.handleCreateNFT)
		r.Post("/"+activity.OpMintNFT, s.handleMintNFT)
		r.Delete("/"+activity.OpBurnNFT, s.handleBurnNFT)
		r.Put("/"+activity.OpTransferNFT, s.handleTransferNFT)
		r.Put("/"+activity.OpAssociateNFT, s.handleAssociateNFT)

		r.Get("/activity", s.handleListActivity)
		r.Get(s.wsPath(), s.handleWebSocket)
	})

	return r
}

func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}
