package main

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/contactbox/internal/logger"
)

const (
	defaultListenAddr      = "localhost:8000"
	defaultLoggingLevel    = logger.LevelInfo
	defaultEnvironment     = logger.EnvProduction
	defaultRedisURL        = "redis://localhost:6379/0"
	defaultSigningAlg      = "HS256"
	defaultAccessTTL       = 15 * time.Minute
	defaultRefreshTTL      = 7 * 24 * time.Hour
	defaultCleanupInterval = time.Hour
	defaultRetention       = 7 * 24 * time.Hour
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the contactbox service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Redis to connect to (denylist and rate limiting live there)
	RedisURL string

	// Secret key
	// Access tokens are signed symmetrically with it, so keep it out of the repo
	SecretKey string

	// JWT signing algorithm for access tokens
	SigningAlg string

	// How long an access token stays valid
	AccessTokenTTL time.Duration

	// How long a refresh token stays valid
	RefreshTokenTTL time.Duration

	// How often the background sweeper purges stale refresh tokens
	CleanupInterval time.Duration

	// How long revoked refresh tokens are kept before the sweeper deletes them
	RevokedRetention time.Duration

	// Environment
	Environment string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:         defaultLoggingLevel,
		ListenAddr:       defaultListenAddr,
		RedisURL:         defaultRedisURL,
		SigningAlg:       defaultSigningAlg,
		AccessTokenTTL:   defaultAccessTTL,
		RefreshTokenTTL:  defaultRefreshTTL,
		CleanupInterval:  defaultCleanupInterval,
		RevokedRetention: defaultRetention,
		Environment:      defaultEnvironment,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}

	// Parse value as whole minutes
	setMinutes := func(o *time.Duration) func(value string) {
		return func(value string) {
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				*o = time.Duration(n) * time.Minute
			}
		}
	}

	// Parse value as whole days
	setDays := func(o *time.Duration) func(value string) {
		return func(value string) {
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				*o = time.Duration(n) * 24 * time.Hour
			}
		}
	}

	// Parse value as Go duration string, e.g. "30m" or "1h"
	setDuration := func(o *time.Duration) func(value string) {
		return func(value string) {
			if d, err := time.ParseDuration(value); err == nil && d > 0 {
				*o = d
			}
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":              setString(&c.ListenAddr),
		"DATABASE_URI":             setString(&c.DatabaseDSN),
		"REDIS_URL":                setString(&c.RedisURL),
		"SECRET_KEY":               setString(&c.SecretKey),
		"SIGNING_ALG":              setString(&c.SigningAlg),
		"LOG_LEVEL":                setString(&c.LogLevel),
		"ENVIRONMENT":              setString(&c.Environment),
		"ACCESS_TOKEN_TTL_MINUTES": setMinutes(&c.AccessTokenTTL),
		"REFRESH_TOKEN_TTL_DAYS":   setDays(&c.RefreshTokenTTL),
		"TOKEN_CLEANUP_INTERVAL":   setDuration(&c.CleanupInterval),
		"REVOKED_RETENTION_DAYS":   setDays(&c.RevokedRetention),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("contactbox", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.RedisURL, "redis", "r", c.RedisURL, "Redis connection URL")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVar(&c.SigningAlg, "signing-alg", c.SigningAlg, "JWT signing algorithm (HS256, HS384, HS512)")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.DurationVar(&c.AccessTokenTTL, "access-ttl", c.AccessTokenTTL, "Access token lifetime")
	fs.DurationVar(&c.RefreshTokenTTL, "refresh-ttl", c.RefreshTokenTTL, "Refresh token lifetime")
	fs.DurationVar(&c.CleanupInterval, "cleanup-interval", c.CleanupInterval, "How often stale refresh tokens are purged")
	fs.DurationVar(&c.RevokedRetention, "revoked-retention", c.RevokedRetention, "How long revoked refresh tokens are kept")

	return fs.Parse(args)
}
