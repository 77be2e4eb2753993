// Package ledger is the connection manager for the Hedera network.
//
// A Connector opens a Session: a client bound to the configured network
// with the operator account set and the default max transaction fee and
// max query payment applied. WithSession scopes a session to one unit of
// work and closes it on every exit path.
//
// Failures are tagged with one of four kinds so callers can map them:
//
//	ErrConfiguration    operator credentials missing or unparsable
//	ErrInvalidArgument  a caller-supplied id, key or serial did not parse
//	ErrSubmission       build, sign, submit, receipt or query failed
//	ErrRejected         the network returned a non-SUCCESS status (also ErrSubmission)
//
// Rejections carry the network status in a *StatusError, so
// TOKEN_NOT_ASSOCIATED_TO_ACCOUNT reaches the caller verbatim.
//
// The SDK calls do not take a context. Context cancellation is checked
// before each step; a call in flight runs to the SDK's own timeout.
package ledger
