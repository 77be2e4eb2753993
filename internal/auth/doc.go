// Package auth issues and verifies the bearer tokens that guard the ledger
// routes when security.auth.enabled is set.
//
// Tokens are HS256 JWTs signed with security.jwt.secret. There are no
// users or passwords: an operator mints a token for a named subject with
// `lyricera -issue-token <subject>` and hands it to the client.
package auth
