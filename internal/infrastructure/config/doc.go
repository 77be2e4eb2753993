// Package config handles loading and validating lyricera configuration.
//
// This package manages:
//   - Loading configuration from an optional YAML file
//   - Reading a .env file from the working directory
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Environment:
//
//	ACCOUNT_ID / LYRICERA_OPERATOR_ACCOUNT_ID        operator account, e.g. 0.0.1234
//	ACCOUNT_PRIVATE_KEY / LYRICERA_OPERATOR_PRIVATE_KEY  operator key string
//	PORT_NUMBER / LYRICERA_API_PORT                  listening port
//
// The LYRICERA_ prefixed names take precedence over the unprefixed ones.
//
// Security Considerations:
//   - The operator key should only ever come from the environment or .env
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Ledger.Network)
package config
