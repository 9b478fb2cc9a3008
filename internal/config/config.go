package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/timetable-server/internal/auth/provider"
	"github.com/vovakirdan/timetable-server/internal/core"
)

// DevJWTSecret is the signing secret used when none is configured.
const DevJWTSecret = "dev-secret-change-me"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`

	// Real-time channel.
	MaxMessageBytes    int64  `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	SendBuffer         int    `mapstructure:"send_buffer" yaml:"send_buffer"`
	RateLimitPerMinute int    `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	BroadcastScope     string `mapstructure:"broadcast_scope" yaml:"broadcast_scope"`
	NotifyChanges      bool   `mapstructure:"notify_changes" yaml:"notify_changes"`

	Provider provider.Config `mapstructure:"provider" yaml:"provider"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":8080",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		LogLevel:           "info",
		LogFormat:          "console",
		DatabasePath:       "timetable.db",
		JWTSecret:          DevJWTSecret,
		JWTIssuer:          "timetable-server",
		JWTAudience:        "timetable-clients",
		JWTTTL:             24 * time.Hour,
		MaxMessageBytes:    1 << 20,
		SendBuffer:         core.DefaultSendBuffer,
		RateLimitPerMinute: 0,
		BroadcastScope:     core.ScopeGlobal.String(),
		NotifyChanges:      true,
		Provider: provider.Config{
			TokenURL:   "https://kauth.kakao.com/oauth/token",
			ProfileURL: "https://kapi.kakao.com/v2/user/me",
			Timeout:    10 * time.Second,
		},
	}
}

// Validate reports values the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database_path must not be empty"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret must not be empty"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("jwt_ttl must be positive"))
	}
	if c.MaxMessageBytes <= 0 {
		errs = append(errs, errors.New("max_message_bytes must be positive"))
	}
	if c.SendBuffer <= 0 {
		errs = append(errs, errors.New("send_buffer must be positive"))
	}
	if c.RateLimitPerMinute < 0 {
		errs = append(errs, errors.New("rate_limit_per_minute must not be negative"))
	}
	if _, err := core.ParseScope(c.BroadcastScope); err != nil {
		errs = append(errs, fmt.Errorf("broadcast_scope: %w", err))
	}
	return errors.Join(errs...)
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.BroadcastScope != "" {
		c.BroadcastScope = other.BroadcastScope
	}
	if other.SendBuffer != 0 {
		c.SendBuffer = other.SendBuffer
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.RateLimitPerMinute != 0 {
		c.RateLimitPerMinute = other.RateLimitPerMinute
	}
}
