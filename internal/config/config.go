// Package config loads service settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"solana-airdrop/internal/auth"
)

// Environment variable names.
const (
	KeyPort              = "PORT"
	KeyJWTSecret         = "JWT_SECRET"
	KeySolanaNetwork     = "SOLANA_NETWORK"
	KeyRPCEndpoint       = "RPC_ENDPOINT"
	KeyWSEndpoint        = "WS_ENDPOINT"
	KeyHeliusAPIKey      = "HELIUS_API_KEY"
	KeyAirshipEndpoint   = "AIRSHIP_ENDPOINT"
	KeyWalletPrivateKey  = "WALLET_PRIVATE_KEY"
	KeyTokenMintAddress  = "TOKEN_MINT_ADDRESS"
	KeyCorsOrigins       = "CORS_ORIGINS"
	KeyRateLimitRequests = "RATE_LIMIT_REQUESTS"
	KeyRateLimitWindow   = "RATE_LIMIT_WINDOW"
	KeyDirectThreshold   = "AIRDROP_DIRECT_THRESHOLD"
	KeyRetryAttempts     = "TRANSFER_RETRY_ATTEMPTS"
	KeyRetryDelay        = "TRANSFER_RETRY_DELAY"
	KeyConfirmTimeout    = "SOLANA_CONFIRM_TIMEOUT"
	KeyPostgresDSN       = "POSTGRES_DSN"
	KeyClickHouseDSN     = "CLICKHOUSE_DSN"
	KeySentryDSN         = "SENTRY_DSN"
	KeyLogLevel          = "LOG_LEVEL"
	KeyLogFormat         = "LOG_FORMAT"
	KeyEnvironment       = "ENVIRONMENT"
)

// DefaultAirshipEndpoint is the Helius AirShip bulk transfer API.
const DefaultAirshipEndpoint = "https://api.helius.xyz/v0/token-airdrop"

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds every setting of the airdrop service.
type Config struct {
	Port          int
	JWTSecret     string
	SolanaNetwork string
	RPCEndpoint   string
	WSEndpoint    string // optional, enables websocket confirmations

	HeliusAPIKey    string // optional, enables aggregated airdrops
	AirshipEndpoint string

	WalletPrivateKey string
	TokenMintAddress string

	CorsOrigins       []string
	RateLimitRequests int
	RateLimitWindow   time.Duration

	DirectThreshold int
	RetryAttempts   uint
	RetryDelay      time.Duration
	ConfirmTimeout  time.Duration

	PostgresDSN   string // optional
	ClickHouseDSN string // optional
	SentryDSN     string // optional

	LogLevel    logrus.Level
	LogFormat   string
	Environment string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, 3000)
	v.SetDefault(KeySolanaNetwork, "devnet")
	v.SetDefault(KeyRPCEndpoint, "https://api.devnet.solana.com")
	v.SetDefault(KeyAirshipEndpoint, DefaultAirshipEndpoint)
	v.SetDefault(KeyCorsOrigins, "*")
	v.SetDefault(KeyRateLimitRequests, 5)
	v.SetDefault(KeyRateLimitWindow, "1m")
	v.SetDefault(KeyDirectThreshold, 10)
	v.SetDefault(KeyRetryAttempts, 1)
	v.SetDefault(KeyRetryDelay, "1s")
	v.SetDefault(KeyConfirmTimeout, "60s")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyEnvironment, "development")
}

var allKeys = []string{
	KeyPort, KeyJWTSecret, KeySolanaNetwork, KeyRPCEndpoint, KeyWSEndpoint,
	KeyHeliusAPIKey, KeyAirshipEndpoint, KeyWalletPrivateKey, KeyTokenMintAddress,
	KeyCorsOrigins, KeyRateLimitRequests, KeyRateLimitWindow, KeyDirectThreshold,
	KeyRetryAttempts, KeyRetryDelay, KeyConfirmTimeout, KeyPostgresDSN,
	KeyClickHouseDSN, KeySentryDSN, KeyLogLevel, KeyLogFormat, KeyEnvironment,
}

// Load reads the .env files (missing files are ignored) and the environment.
// Variables already set in the environment win over .env values.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	for _, key := range allKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	level, err := logrus.ParseLevel(v.GetString(KeyLogLevel))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, KeyLogLevel, err)
	}

	cfg := &Config{
		Port:              v.GetInt(KeyPort),
		JWTSecret:         v.GetString(KeyJWTSecret),
		SolanaNetwork:     v.GetString(KeySolanaNetwork),
		RPCEndpoint:       strings.TrimSpace(v.GetString(KeyRPCEndpoint)),
		WSEndpoint:        strings.TrimSpace(v.GetString(KeyWSEndpoint)),
		HeliusAPIKey:      strings.TrimSpace(v.GetString(KeyHeliusAPIKey)),
		AirshipEndpoint:   strings.TrimSpace(v.GetString(KeyAirshipEndpoint)),
		WalletPrivateKey:  strings.TrimSpace(v.GetString(KeyWalletPrivateKey)),
		TokenMintAddress:  strings.TrimSpace(v.GetString(KeyTokenMintAddress)),
		CorsOrigins:       splitList(v.GetString(KeyCorsOrigins)),
		RateLimitRequests: v.GetInt(KeyRateLimitRequests),
		DirectThreshold:   v.GetInt(KeyDirectThreshold),
		PostgresDSN:       v.GetString(KeyPostgresDSN),
		ClickHouseDSN:     v.GetString(KeyClickHouseDSN),
		SentryDSN:         v.GetString(KeySentryDSN),
		LogLevel:          level,
		LogFormat:         strings.ToLower(v.GetString(KeyLogFormat)),
		Environment:       v.GetString(KeyEnvironment),
	}
	for key, dst := range map[string]*time.Duration{
		KeyRateLimitWindow: &cfg.RateLimitWindow,
		KeyRetryDelay:      &cfg.RetryDelay,
		KeyConfirmTimeout:  &cfg.ConfirmTimeout,
	} {
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
		}
		*dst = d
	}

	attempts := v.GetInt(KeyRetryAttempts)
	if attempts < 1 {
		return nil, fmt.Errorf("%w: %s must be at least 1", ErrInvalidConfig, KeyRetryAttempts)
	}
	cfg.RetryAttempts = uint(attempts)

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// ValidateAuth checks the settings needed to issue and verify tokens.
func (c *Config) ValidateAuth() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidConfig, KeyJWTSecret)
	}
	if len(c.JWTSecret) < auth.MinSecretLength {
		return fmt.Errorf("%w: %s must be at least %d characters", ErrInvalidConfig, KeyJWTSecret, auth.MinSecretLength)
	}
	return nil
}

// Validate checks everything the HTTP service needs to start.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if err := c.ValidateAuth(); err != nil {
		errs = append(errs, err)
	}
	if c.Port < 1 || c.Port > 65535 {
		add("%w: %s must be between 1 and 65535", ErrInvalidConfig, KeyPort)
	}
	if c.WalletPrivateKey == "" {
		add("%w: %s is required", ErrInvalidConfig, KeyWalletPrivateKey)
	}
	if c.TokenMintAddress == "" {
		add("%w: %s is required", ErrInvalidConfig, KeyTokenMintAddress)
	}
	if !isURL(c.RPCEndpoint, "http", "https") {
		add("%w: %s must be an http(s) URL", ErrInvalidConfig, KeyRPCEndpoint)
	}
	if c.WSEndpoint != "" && !isURL(c.WSEndpoint, "ws", "wss") {
		add("%w: %s must be a ws(s) URL", ErrInvalidConfig, KeyWSEndpoint)
	}
	if c.HeliusAPIKey != "" && !isURL(c.AirshipEndpoint, "http", "https") {
		add("%w: %s must be an http(s) URL", ErrInvalidConfig, KeyAirshipEndpoint)
	}
	if c.RateLimitRequests < 1 || c.RateLimitWindow <= 0 {
		add("%w: %s and %s must be positive", ErrInvalidConfig, KeyRateLimitRequests, KeyRateLimitWindow)
	}
	if c.DirectThreshold < 1 {
		add("%w: %s must be at least 1", ErrInvalidConfig, KeyDirectThreshold)
	}
	if c.ConfirmTimeout <= 0 {
		add("%w: %s must be positive", ErrInvalidConfig, KeyConfirmTimeout)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		add("%w: %s must be text or json", ErrInvalidConfig, KeyLogFormat)
	}

	return errors.Join(errs...)
}

func isURL(raw string, schemes ...string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Host == "" {
		return false
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return true
		}
	}
	return false
}

// NewLogger builds the root logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(c.LogLevel)
	if c.LogFormat == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}
