package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/wrale/oauth2-device-client/internal/oauth"
	"github.com/wrale/oauth2-device-client/internal/ratelimit"
)

// Config holds configuration loaded from environment variables
type Config struct {
	ClientID     string `envconfig:"CLIENT_ID" required:"true"`
	ClientSecret string `envconfig:"CLIENT_SECRET" required:"true"`
	Scopes       string `envconfig:"SCOPES" default:"meeting:recordings_read spark:all spark:kms"`

	// Individual endpoint URLs override the ones derived from ProviderBaseURL
	ProviderBaseURL    string `envconfig:"PROVIDER_BASE_URL" default:"https://webexapis.com/v1"`
	DeviceAuthorizeURL string `envconfig:"DEVICE_AUTHORIZE_URL"`
	DeviceTokenURL     string `envconfig:"DEVICE_TOKEN_URL"`
	RefreshURL         string `envconfig:"REFRESH_URL"`
	ProfileURL         string `envconfig:"PROFILE_URL"`

	Port              int           `envconfig:"PORT" default:"10060"`
	QRDir             string        `envconfig:"QR_DIR" default:"./static"`
	MaxPollDuration   time.Duration `envconfig:"MAX_POLL_DURATION" default:"15m"`
	HTTPClientTimeout time.Duration `envconfig:"HTTP_CLIENT_TIMEOUT" default:"30s"`
	ReadHeaderTimeout time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"5s"`
	ReadTimeout       time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout      time.Duration `envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout       time.Duration `envconfig:"IDLE_TIMEOUT" default:"120s"`
	RateLimitRPS      float64       `envconfig:"RATE_LIMIT_RPS" default:"10"`
	RateLimitBurst    int           `envconfig:"RATE_LIMIT_BURST" default:"20"`
	LogDebug          bool          `envconfig:"LOG_DEBUG" default:"false"`
}

// loadConfig reads an optional .env file, then the environment
func loadConfig() (Config, error) {
	// A missing .env is fine
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

// providerConfig resolves the identity provider endpoints
func (c Config) providerConfig() oauth.Config {
	base := strings.TrimRight(c.ProviderBaseURL, "/")
	return oauth.Config{
		DeviceAuthorizeURL: firstNonEmpty(c.DeviceAuthorizeURL, base+"/device/authorize"),
		DeviceTokenURL:     firstNonEmpty(c.DeviceTokenURL, base+"/device/token"),
		RefreshURL:         firstNonEmpty(c.RefreshURL, base+"/access_token"),
		ProfileURL:         firstNonEmpty(c.ProfileURL, base+"/people/me?callingData=true"),
		Scopes:             strings.Fields(c.Scopes),
	}
}

func (c Config) rateLimitConfig() ratelimit.Config {
	cfg := ratelimit.DefaultConfig()
	if c.RateLimitRPS > 0 {
		cfg.Rate = c.RateLimitRPS
	}
	if c.RateLimitBurst > 0 {
		cfg.Burst = c.RateLimitBurst
	}
	return cfg
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
