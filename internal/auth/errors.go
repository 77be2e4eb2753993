package auth

import "errors"

var (
	// ErrTokenInvalid means the token is malformed, badly signed or missing claims.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrTokenExpired means the token was valid but its exp has passed.
	ErrTokenExpired = errors.New("token has expired")

	// ErrSecretRequired means no signing secret was configured.
	ErrSecretRequired = errors.New("jwt secret is required")
)
