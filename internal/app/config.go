package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/reworn/storefront/internal/domain/cart"
)

// Config holds the complete application configuration, loadable from
// environment variables (STORE_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (STORE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL string `default:"" usage:"Base URL for product images (e.g. https://cdn.example.com/images)" flag:"image-base-url"`
	TokenPepper  string `usage:"HMAC pepper for session token hashing (STORE_TOKEN_PEPPER)" flag:"token-pepper"`
	Cart         CartConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// CartConfig controls the reservation hold window and shipping pricing.
// Money values are decimal strings so they survive config round-trips exactly.
type CartConfig struct {
	HoldWindow            time.Duration `default:"10m"    usage:"How long cart items stay reserved" flag:"hold-window"`
	FreeShippingThreshold string        `default:"150.00" usage:"Cart total at which shipping becomes free" flag:"free-shipping-threshold"`
	FlatShippingFee       string        `default:"7.50"   usage:"Flat shipping fee below the threshold" flag:"flat-shipping-fee"`
}

// Domain converts the raw config values into the cart service configuration.
func (c CartConfig) Domain() (cart.Config, error) {
	threshold, err := decimal.NewFromString(c.FreeShippingThreshold)
	if err != nil {
		return cart.Config{}, errors.Wrap(err, "parse free shipping threshold")
	}
	fee, err := decimal.NewFromString(c.FlatShippingFee)
	if err != nil {
		return cart.Config{}, errors.Wrap(err, "parse flat shipping fee")
	}
	if c.HoldWindow <= 0 {
		return cart.Config{}, errors.New("hold window must be positive")
	}
	return cart.Config{
		HoldWindow:            c.HoldWindow,
		FreeShippingThreshold: threshold,
		FlatShippingFee:       fee,
	}, nil
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STORE",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set STORE_DATABASE_URL or DATABASE_URL")
	}
	if cfg.TokenPepper == "" {
		return nil, errors.New("token pepper is required: set STORE_TOKEN_PEPPER")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's STORE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
