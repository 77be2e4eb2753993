// Package account creates ledger accounts for API callers.
//
// Each call generates a fresh key pair, funds the new account from the
// operator with the configured initial balance and hands the keys back
// exactly once. Nothing about the keys is kept or logged.
package account
