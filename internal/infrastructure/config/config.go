package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for lyricera.
// It is loaded once at startup and passed by reference to every component.
type Config struct {
	Ledger    LedgerConfig    `yaml:"ledger"`
	Mirror    MirrorConfig    `yaml:"mirror"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// LedgerConfig contains the ledger network and operator settings.
type LedgerConfig struct {
	// Network is the SDK network name: "testnet", "previewnet" or "mainnet".
	Network string `yaml:"network"`

	// Operator is the paying and signing account. Credentials are normally
	// supplied through the environment rather than the config file.
	Operator OperatorConfig `yaml:"operator"`

	// KeyType selects how private key strings are parsed and generated:
	// "ecdsa" (default) or "ed25519".
	KeyType string `yaml:"key_type"`

	// MaxTransactionFeeHbar is the default ceiling applied to every transaction.
	MaxTransactionFeeHbar float64 `yaml:"max_transaction_fee_hbar"`

	// MaxQueryPaymentHbar is the ceiling applied to paid queries.
	MaxQueryPaymentHbar float64 `yaml:"max_query_payment_hbar"`

	// InitialBalanceTinybar funds newly created accounts.
	InitialBalanceTinybar int64 `yaml:"initial_balance_tinybar"`

	// Token holds defaults for NFT collections created by the service.
	Token TokenConfig `yaml:"token"`

	// ExplorerURL is the base URL used to build token explorer links.
	ExplorerURL string `yaml:"explorer_url"`
}

// OperatorConfig holds the operator account credentials.
type OperatorConfig struct {
	AccountID  string `yaml:"account_id"`
	PrivateKey string `yaml:"private_key"`
}

// TokenConfig holds NFT collection defaults.
type TokenConfig struct {
	MaxSupply int64  `yaml:"max_supply"`
	Memo      string `yaml:"memo"`
}

// MirrorConfig contains mirror-node REST API settings.
type MirrorConfig struct {
	BaseURL string `yaml:"base_url"`

	// PollInitialInterval is the first wait before querying a freshly created record.
	PollInitialInterval time.Duration `yaml:"poll_initial_interval"`

	// PollMaxInterval caps the exponential backoff between attempts.
	PollMaxInterval time.Duration `yaml:"poll_max_interval"`

	// PollTimeout bounds the total time spent waiting for propagation.
	PollTimeout time.Duration `yaml:"poll_timeout"`

	// RequestTimeout bounds a single HTTP request.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
//
// Write must leave room for a full ledger round trip plus mirror polling.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// ReadTimeout returns the read timeout as a Duration.
func (t APITimeoutConfig) ReadTimeout() time.Duration {
	return time.Duration(t.Read) * time.Second
}

// WriteTimeout returns the write timeout as a Duration.
func (t APITimeoutConfig) WriteTimeout() time.Duration {
	return time.Duration(t.Write) * time.Second
}

// IdleTimeout returns the keep-alive idle timeout as a Duration.
func (t APITimeoutConfig) IdleTimeout() time.Duration {
	return time.Duration(t.Idle) * time.Second
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAge         int      `yaml:"max_age"`
}

// WebSocketConfig contains activity feed WebSocket settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// DatabaseConfig contains SQLite settings for the activity journal.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains API security settings.
type SecurityConfig struct {
	Auth      AuthConfig      `yaml:"auth"`
	JWT       JWTConfig       `yaml:"jwt"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// AuthConfig toggles bearer-token protection of the ledger routes.
type AuthConfig struct {
	Enabled bool `yaml:"enabled"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
}

// RateLimitConfig contains rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
}

// Load reads configuration and applies environment overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values, if the file exists
//  3. A .env file in the working directory, if present (never overrides the real environment)
//  4. Environment variables
//
// Environment variables follow the pattern LYRICERA_SECTION_KEY. The unprefixed
// ACCOUNT_ID, ACCOUNT_PRIVATE_KEY and PORT_NUMBER are also honoured.
//
// Parameters:
//   - path: Path to the YAML configuration file (may not exist)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the file cannot be parsed or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// Defaults plus environment only.
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .env file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Ledger: LedgerConfig{
			Network:               "testnet",
			KeyType:               "ecdsa",
			MaxTransactionFeeHbar: 100,
			MaxQueryPaymentHbar:   50,
			InitialBalanceTinybar: 1000,
			Token: TokenConfig{
				MaxSupply: 250,
				Memo:      "This will be my vote on the Lyric - xxxx",
			},
			ExplorerURL: "https://hashscan.io/testnet",
		},
		Mirror: MirrorConfig{
			BaseURL:             "https://testnet.mirrornode.hedera.com",
			PollInitialInterval: time.Second,
			PollMaxInterval:     4 * time.Second,
			PollTimeout:         15 * time.Second,
			RequestTimeout:      5 * time.Second,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 3000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 90,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Database: DatabaseConfig{
			Enabled:     true,
			Path:        "./data/lyricera.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "lyricera",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 60,
			},
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 60,
				Burst:             10,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) error {
	// Operator credentials, legacy names first so the prefixed ones win.
	if v := os.Getenv("ACCOUNT_ID"); v != "" {
		cfg.Ledger.Operator.AccountID = v
	}
	if v := os.Getenv("ACCOUNT_PRIVATE_KEY"); v != "" {
		cfg.Ledger.Operator.PrivateKey = v
	}
	if v := os.Getenv("LYRICERA_OPERATOR_ACCOUNT_ID"); v != "" {
		cfg.Ledger.Operator.AccountID = v
	}
	if v := os.Getenv("LYRICERA_OPERATOR_PRIVATE_KEY"); v != "" {
		cfg.Ledger.Operator.PrivateKey = v
	}
	if v := os.Getenv("LYRICERA_LEDGER_NETWORK"); v != "" {
		cfg.Ledger.Network = v
	}

	// Mirror
	if v := os.Getenv("LYRICERA_MIRROR_BASE_URL"); v != "" {
		cfg.Mirror.BaseURL = v
	}

	// API
	if v := os.Getenv("PORT_NUMBER"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT_NUMBER: %w", err)
		}
		cfg.API.Port = port
	}
	if v := os.Getenv("LYRICERA_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LYRICERA_API_PORT: %w", err)
		}
		cfg.API.Port = port
	}
	if v := os.Getenv("LYRICERA_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// Database
	if v := os.Getenv("LYRICERA_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("LYRICERA_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("LYRICERA_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("LYRICERA_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("LYRICERA_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security
	if v := os.Getenv("LYRICERA_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}

	return nil
}

// minJWTSecretLength is the shortest accepted HS256 secret.
const minJWTSecretLength = 32

// Validate checks the configuration for errors.
//
// Operator credentials are deliberately not checked here: the connection
// manager reports them per request so the server still starts without them.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	switch c.Ledger.Network {
	case "testnet", "previewnet", "mainnet":
	default:
		errs = append(errs, "ledger.network must be testnet, previewnet or mainnet")
	}

	switch strings.ToLower(c.Ledger.KeyType) {
	case "ecdsa", "ed25519":
	default:
		errs = append(errs, "ledger.key_type must be ecdsa or ed25519")
	}

	if c.Ledger.MaxTransactionFeeHbar <= 0 {
		errs = append(errs, "ledger.max_transaction_fee_hbar must be positive")
	}
	if c.Ledger.MaxQueryPaymentHbar <= 0 {
		errs = append(errs, "ledger.max_query_payment_hbar must be positive")
	}
	if c.Ledger.InitialBalanceTinybar < 0 {
		errs = append(errs, "ledger.initial_balance_tinybar cannot be negative")
	}
	if c.Ledger.Token.MaxSupply <= 0 {
		errs = append(errs, "ledger.token.max_supply must be positive")
	}

	if c.Mirror.BaseURL == "" {
		errs = append(errs, "mirror.base_url is required")
	}
	if c.Mirror.PollTimeout <= 0 {
		errs = append(errs, "mirror.poll_timeout must be positive")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when the database is enabled")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when influxdb is enabled")
	}

	if c.Security.Auth.Enabled {
		if c.Security.JWT.Secret == "" {
			errs = append(errs, "security.jwt.secret is required when auth is enabled (set LYRICERA_JWT_SECRET)")
		} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
			errs = append(errs, "security.jwt.secret must be at least 32 characters")
		}
	}

	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, "security.rate_limit.requests_per_minute must be positive when enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
