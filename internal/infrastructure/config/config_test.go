package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
ledger:
  network: "previewnet"
  token:
    max_supply: 10
database:
  path: "/tmp/test.db"
api:
  port: 8080
mirror:
  base_url: "http://mirror.local"
  poll_timeout: 3s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Ledger.Network != "previewnet" {
		t.Errorf("Ledger.Network = %q, want previewnet", cfg.Ledger.Network)
	}
	if cfg.Ledger.Token.MaxSupply != 10 {
		t.Errorf("Ledger.Token.MaxSupply = %d, want 10", cfg.Ledger.Token.MaxSupply)
	}
	if cfg.Ledger.MaxTransactionFeeHbar != 100 {
		t.Errorf("unset fields should keep defaults, MaxTransactionFeeHbar = %v", cfg.Ledger.MaxTransactionFeeHbar)
	}
	if cfg.Mirror.PollTimeout != 3*time.Second {
		t.Errorf("Mirror.PollTimeout = %v, want 3s", cfg.Mirror.PollTimeout)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want /tmp/test.db", cfg.Database.Path)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Ledger.Network != "testnet" {
		t.Errorf("Ledger.Network = %q, want testnet", cfg.Ledger.Network)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")

	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
ledger:
  network: "moonnet"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "ledger.network") {
		t.Errorf("error = %v, want mention of ledger.network", err)
	}
}

func TestLoad_MissingOperatorIsNotFatal(t *testing.T) {
	t.Setenv("ACCOUNT_ID", "")
	t.Setenv("ACCOUNT_PRIVATE_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Ledger.Operator.AccountID != "" {
		t.Errorf("Operator.AccountID = %q, want empty", cfg.Ledger.Operator.AccountID)
	}
}

func TestConfig_Validate(t *testing.T) {
	validJWTSecret := "test-secret-key-at-least-32-chars!"

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"unknown network", func(c *Config) { c.Ledger.Network = "devnet" }, true},
		{"unknown key type", func(c *Config) { c.Ledger.KeyType = "rsa" }, true},
		{"ed25519 key type", func(c *Config) { c.Ledger.KeyType = "ED25519" }, false},
		{"zero fee", func(c *Config) { c.Ledger.MaxTransactionFeeHbar = 0 }, true},
		{"zero query payment", func(c *Config) { c.Ledger.MaxQueryPaymentHbar = 0 }, true},
		{"negative initial balance", func(c *Config) { c.Ledger.InitialBalanceTinybar = -1 }, true},
		{"zero max supply", func(c *Config) { c.Ledger.Token.MaxSupply = 0 }, true},
		{"missing mirror URL", func(c *Config) { c.Mirror.BaseURL = "" }, true},
		{"zero poll timeout", func(c *Config) { c.Mirror.PollTimeout = 0 }, true},
		{"port low", func(c *Config) { c.API.Port = 0 }, true},
		{"port high", func(c *Config) { c.API.Port = 70000 }, true},
		{"missing database path", func(c *Config) { c.Database.Path = "" }, true},
		{"database disabled without path", func(c *Config) { c.Database.Enabled = false; c.Database.Path = "" }, false},
		{"invalid QoS", func(c *Config) { c.MQTT.QoS = 3 }, true},
		{"influx enabled without url", func(c *Config) { c.InfluxDB.Enabled = true }, true},
		{"auth without secret", func(c *Config) { c.Security.Auth.Enabled = true }, true},
		{"auth with short secret", func(c *Config) {
			c.Security.Auth.Enabled = true
			c.Security.JWT.Secret = "short"
		}, true},
		{"auth with secret", func(c *Config) {
			c.Security.Auth.Enabled = true
			c.Security.JWT.Secret = validJWTSecret
		}, false},
		{"rate limit without rate", func(c *Config) {
			c.Security.RateLimit.Enabled = true
			c.Security.RateLimit.RequestsPerMinute = 0
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAPITimeoutConfig(t *testing.T) {
	timeouts := APITimeoutConfig{Read: 30, Write: 45, Idle: 60}

	if got := timeouts.ReadTimeout().Seconds(); got != 30 {
		t.Errorf("ReadTimeout() = %v, want 30", got)
	}
	if got := timeouts.WriteTimeout().Seconds(); got != 45 {
		t.Errorf("WriteTimeout() = %v, want 45", got)
	}
	if got := timeouts.IdleTimeout().Seconds(); got != 60 {
		t.Errorf("IdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("ACCOUNT_ID", "0.0.1001")
	t.Setenv("ACCOUNT_PRIVATE_KEY", "legacy-key")
	t.Setenv("PORT_NUMBER", "4000")
	t.Setenv("LYRICERA_OPERATOR_ACCOUNT_ID", "")
	t.Setenv("LYRICERA_OPERATOR_PRIVATE_KEY", "")
	t.Setenv("LYRICERA_API_PORT", "")
	t.Setenv("LYRICERA_DATABASE_PATH", "/custom/path.db")
	t.Setenv("LYRICERA_MQTT_HOST", "mqtt.example.com")
	t.Setenv("LYRICERA_MIRROR_BASE_URL", "http://mirror.example.com")
	t.Setenv("LYRICERA_JWT_SECRET", "jwt-secret")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	if cfg.Ledger.Operator.AccountID != "0.0.1001" {
		t.Errorf("Operator.AccountID = %q, want 0.0.1001", cfg.Ledger.Operator.AccountID)
	}
	if cfg.Ledger.Operator.PrivateKey != "legacy-key" {
		t.Errorf("Operator.PrivateKey not applied from ACCOUNT_PRIVATE_KEY")
	}
	if cfg.API.Port != 4000 {
		t.Errorf("API.Port = %d, want 4000", cfg.API.Port)
	}
	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want /custom/path.db", cfg.Database.Path)
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want mqtt.example.com", cfg.MQTT.Broker.Host)
	}
	if cfg.Mirror.BaseURL != "http://mirror.example.com" {
		t.Errorf("Mirror.BaseURL = %q", cfg.Mirror.BaseURL)
	}
	if cfg.Security.JWT.Secret != "jwt-secret" {
		t.Errorf("Security.JWT.Secret = %q, want jwt-secret", cfg.Security.JWT.Secret)
	}
}

func TestApplyEnvOverrides_PrefixedWins(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("ACCOUNT_ID", "0.0.1001")
	t.Setenv("LYRICERA_OPERATOR_ACCOUNT_ID", "0.0.2002")
	t.Setenv("PORT_NUMBER", "4000")
	t.Setenv("LYRICERA_API_PORT", "5000")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	if cfg.Ledger.Operator.AccountID != "0.0.2002" {
		t.Errorf("Operator.AccountID = %q, want 0.0.2002", cfg.Ledger.Operator.AccountID)
	}
	if cfg.API.Port != 5000 {
		t.Errorf("API.Port = %d, want 5000", cfg.API.Port)
	}
}

func TestApplyEnvOverrides_BadPort(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("PORT_NUMBER", "three-thousand")

	if err := applyEnvOverrides(cfg); err == nil {
		t.Error("applyEnvOverrides() expected error for non-numeric PORT_NUMBER")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Ledger.MaxTransactionFeeHbar != 100 {
		t.Errorf("MaxTransactionFeeHbar = %v, want 100", cfg.Ledger.MaxTransactionFeeHbar)
	}
	if cfg.Ledger.MaxQueryPaymentHbar != 50 {
		t.Errorf("MaxQueryPaymentHbar = %v, want 50", cfg.Ledger.MaxQueryPaymentHbar)
	}
	if cfg.Ledger.InitialBalanceTinybar != 1000 {
		t.Errorf("InitialBalanceTinybar = %d, want 1000", cfg.Ledger.InitialBalanceTinybar)
	}
	if cfg.Ledger.Token.MaxSupply != 250 {
		t.Errorf("Token.MaxSupply = %d, want 250", cfg.Ledger.Token.MaxSupply)
	}
	if cfg.API.Port != 3000 {
		t.Errorf("API.Port = %d, want 3000", cfg.API.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig() does not validate: %v", err)
	}
}
