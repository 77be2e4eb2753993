// Package api implements the HTTP façade over the ledger operations.
//
// This package provides:
//   - One route per ledger operation (account creation and the NFT lifecycle)
//   - Content negotiation between an HTML and a JSON rendering of each result
//   - GET /activity over the operation journal, GET /health and GET /metrics
//   - A WebSocket hub that streams journal entries to subscribed clients
//   - Middleware stack (request ID, logging, recovery, CORS, rate limit, auth)
//
// # Representations
//
// Every operation route inspects the Accept header before anything else
// happens. HTML is preferred when acceptable; otherwise JSON; otherwise the
// request fails with 406 and the ledger is never contacted. A missing
// Accept header means HTML.
//
// Failures on the operation routes are written as a plain-text body holding
// the error message. Auxiliary routes use a structured JSON error.
//
// # Security
//
// Authentication is optional. When enabled, operation routes, /activity and
// the WebSocket endpoint require an HS256 bearer token issued by package auth.
package api
