package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "devnet", cfg.SolanaNetwork)
	assert.Equal(t, "https://api.devnet.solana.com", cfg.RPCEndpoint)
	assert.Equal(t, DefaultAirshipEndpoint, cfg.AirshipEndpoint)
	assert.Equal(t, []string{"*"}, cfg.CorsOrigins)
	assert.Equal(t, 5, cfg.RateLimitRequests)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 10, cfg.DirectThreshold)
	assert.Equal(t, uint(1), cfg.RetryAttempts)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.Equal(t, 60*time.Second, cfg.ConfirmTimeout)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "development", cfg.Environment)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(KeyPort, "8080")
	t.Setenv(KeyCorsOrigins, "https://a.example.com, https://b.example.com,")
	t.Setenv(KeyRateLimitWindow, "30s")
	t.Setenv(KeyDirectThreshold, "25")
	t.Setenv(KeyRetryAttempts, "3")
	t.Setenv(KeyLogLevel, "debug")
	t.Setenv(KeyLogFormat, "JSON")
	t.Setenv(KeyWalletPrivateKey, "  secret  ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CorsOrigins)
	assert.Equal(t, 30*time.Second, cfg.RateLimitWindow)
	assert.Equal(t, 25, cfg.DirectThreshold)
	assert.Equal(t, uint(3), cfg.RetryAttempts)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "secret", cfg.WalletPrivateKey)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := strings.Join([]string{
		"# local settings",
		KeyTokenMintAddress + "=EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		KeyPort + "=4000",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Cleanup(func() {
		os.Unsetenv(KeyTokenMintAddress)
	})

	// The process environment wins over the file.
	t.Setenv(KeyPort, "5000")

	cfg, err := Load(path, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", cfg.TokenMintAddress)
	assert.Equal(t, 5000, cfg.Port)
}

func TestFromViper_Errors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad level", KeyLogLevel, "loud"},
		{"bad window", KeyRateLimitWindow, "soon"},
		{"bad delay", KeyRetryDelay, "1 sec"},
		{"zero attempts", KeyRetryAttempts, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			setDefaults(v)
			v.Set(tt.key, tt.val)

			_, err := FromViper(v)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	v.Set(KeyJWTSecret, testSecret)
	v.Set(KeyWalletPrivateKey, "wallet")
	v.Set(KeyTokenMintAddress, "mint")
	cfg, err := FromViper(v)
	require.NoError(t, err)
	return cfg
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig(t).Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"no secret", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET is required"},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, "JWT_SECRET must be at least 32 characters"},
		{"no wallet", func(c *Config) { c.WalletPrivateKey = "" }, "WALLET_PRIVATE_KEY is required"},
		{"no mint", func(c *Config) { c.TokenMintAddress = "" }, "TOKEN_MINT_ADDRESS is required"},
		{"bad port", func(c *Config) { c.Port = 70000 }, "PORT must be between 1 and 65535"},
		{"bad rpc", func(c *Config) { c.RPCEndpoint = "api.devnet.solana.com" }, "RPC_ENDPOINT must be an http(s) URL"},
		{"bad ws", func(c *Config) { c.WSEndpoint = "https://api.devnet.solana.com" }, "WS_ENDPOINT must be a ws(s) URL"},
		{"bad airship", func(c *Config) { c.HeliusAPIKey = "k"; c.AirshipEndpoint = "nope" }, "AIRSHIP_ENDPOINT must be an http(s) URL"},
		{"zero rate", func(c *Config) { c.RateLimitRequests = 0 }, "RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive"},
		{"zero threshold", func(c *Config) { c.DirectThreshold = 0 }, "AIRDROP_DIRECT_THRESHOLD must be at least 1"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT must be text or json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig(t)
	cfg.WalletPrivateKey = ""
	cfg.TokenMintAddress = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), KeyWalletPrivateKey)
	assert.Contains(t, err.Error(), KeyTokenMintAddress)
}

func TestNewLogger(t *testing.T) {
	cfg := validConfig(t)
	cfg.LogLevel = logrus.WarnLevel
	cfg.LogFormat = "json"

	l := cfg.NewLogger()
	assert.Equal(t, logrus.WarnLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)
}
