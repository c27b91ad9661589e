package config

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"golang.org/x/crypto/bcrypt"
)

// Config holds all configuration for the auth module.
type Config struct {
	// MongoDB Configuration
	MongoDBURI   string `env:"MONGODB_URI,required"`
	DatabaseName string `env:"DATABASE_NAME" envDefault:"devmatch"`

	// JWT Configuration
	JWTSecretKey   string        `env:"JWT_SECRET_KEY,required"`
	JWTIssuer      string        `env:"JWT_ISSUER" envDefault:"devmatch-auth"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"8h"`

	// Password hashing
	BcryptCost      int `env:"BCRYPT_COST" envDefault:"10"`
	BulkHashWorkers int `env:"BULK_HASH_WORKERS" envDefault:"4"`

	// Cookie Configuration
	CookieName     string `env:"COOKIE_NAME" envDefault:"token"`
	CookiePath     string `env:"COOKIE_PATH" envDefault:"/"`
	CookieDomain   string `env:"COOKIE_DOMAIN" envDefault:""`
	CookieSecure   bool   `env:"COOKIE_SECURE" envDefault:"false"`
	CookieHTTPOnly bool   `env:"COOKIE_HTTP_ONLY" envDefault:"true"`
	CookieSameSite string `env:"COOKIE_SAME_SITE" envDefault:"Lax"` // "Lax", "Strict", "None"

	// Token revocation on logout. Off by default: logout only clears the cookie.
	TokenRevocationEnabled bool   `env:"TOKEN_REVOCATION_ENABLED" envDefault:"false"`
	RedisAddr              string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword          string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB                int    `env:"REDIS_DB" envDefault:"0"`

	// Requests per minute per client IP on the public auth routes; 0 disables the limiter.
	RateLimitMax int `env:"AUTH_RATE_LIMIT_MAX" envDefault:"0"`
}

// LoadConfig loads configuration from environment variables and applies defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, errors.New("failed to load configuration from environment: " + err.Error() +
			". Please ensure all required environment variables are set.")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that struct tags cannot express and normalises cookie settings.
func (cfg *Config) Validate() error {
	if cfg.JWTSecretKey == "" {
		return errors.New("jwt_secret_key is required")
	}
	if cfg.MongoDBURI == "" {
		return errors.New("mongodb_uri is required")
	}
	if cfg.AccessTokenTTL <= 0 {
		return errors.New("access_token_ttl must be positive")
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return errors.New("bcrypt_cost must be between 4 and 31")
	}
	if cfg.BulkHashWorkers <= 0 {
		cfg.BulkHashWorkers = 1
	}
	if cfg.RateLimitMax < 0 {
		return errors.New("auth_rate_limit_max must not be negative")
	}

	sameSite := strings.ToLower(cfg.CookieSameSite)
	switch sameSite {
	case "lax", "strict", "none":
		cfg.CookieSameSite = strings.ToUpper(sameSite[:1]) + sameSite[1:]
	default:
		return errors.New("cookie_same_site must be one of 'Lax', 'Strict', or 'None'")
	}

	if cfg.CookieName == "" {
		cfg.CookieName = "token"
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}
	return nil
}
