// Package config reads service settings from CHECKIN_* environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dukerupert/checkin/internal/auth"
	"github.com/dukerupert/checkin/internal/dispatch"
)

const devSecret = "dev-secret-change-me"

type Config struct {
	Env                   string
	Port                  string
	DBPath                string
	JWTSecret             string
	TokenTTL              time.Duration
	LogLevel              string
	LogFormat             string
	AllowedOrigins        []string
	LegacyUnownedCheckins bool
	DispatchInterval      time.Duration
	Twilio                Twilio
	Push                  Push
	Backup                Backup
}

type Twilio struct {
	AccountSID string
	AuthToken  string
	From       string
}

type Push struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subject         string
}

// Backup configures encrypted database snapshots to S3-compatible storage.
type Backup struct {
	Endpoint      string
	Bucket        string
	Region        string
	AccessKey     string
	SecretKey     string
	Passphrase    string
	Interval      time.Duration
	RetentionDays int
}

// Enabled reports whether enough is set to upload and encrypt a backup.
// Without static keys the default AWS credential chain is used.
func (b Backup) Enabled() bool {
	return b.Bucket != "" && b.Passphrase != ""
}

// Production reports whether the service runs with CHECKIN_ENV=production.
func (c Config) Production() bool {
	return c.Env == "production"
}

// Load reads .env (if present) and then the environment. Variables already
// set in the environment win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv("CHECKIN_" + key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Env:       get("ENV", "development"),
		Port:      get("PORT", "3001"),
		DBPath:    get("DB_PATH", "checkin.db"),
		JWTSecret: get("JWT_SECRET", ""),
		LogLevel:  get("LOG_LEVEL", "info"),
		LogFormat: get("LOG_FORMAT", "text"),
		Twilio: Twilio{
			AccountSID: get("TWILIO_ACCOUNT_SID", ""),
			AuthToken:  get("TWILIO_AUTH_TOKEN", ""),
			From:       get("TWILIO_FROM", ""),
		},
		Push: Push{
			VAPIDPublicKey:  get("VAPID_PUBLIC_KEY", ""),
			VAPIDPrivateKey: get("VAPID_PRIVATE_KEY", ""),
			Subject:         get("VAPID_SUBJECT", ""),
		},
		Backup: Backup{
			Endpoint:   get("BACKUP_S3_ENDPOINT", ""),
			Bucket:     get("BACKUP_S3_BUCKET", ""),
			Region:     get("BACKUP_S3_REGION", "us-east-1"),
			AccessKey:  get("BACKUP_S3_ACCESS_KEY", ""),
			SecretKey:  get("BACKUP_S3_SECRET_KEY", ""),
			Passphrase: get("BACKUP_PASSPHRASE", ""),
		},
	}

	var err error
	if cfg.TokenTTL, err = duration(get("TOKEN_TTL", ""), auth.DefaultTokenTTL); err != nil {
		return Config{}, fmt.Errorf("CHECKIN_TOKEN_TTL: %w", err)
	}
	if cfg.DispatchInterval, err = duration(get("DISPATCH_INTERVAL", ""), dispatch.DefaultInterval); err != nil {
		return Config{}, fmt.Errorf("CHECKIN_DISPATCH_INTERVAL: %w", err)
	}
	if cfg.Backup.Interval, err = duration(get("BACKUP_INTERVAL", ""), 24*time.Hour); err != nil {
		return Config{}, fmt.Errorf("CHECKIN_BACKUP_INTERVAL: %w", err)
	}
	if cfg.Backup.RetentionDays, err = strconv.Atoi(get("BACKUP_RETENTION_DAYS", "30")); err != nil || cfg.Backup.RetentionDays < 1 {
		return Config{}, fmt.Errorf("CHECKIN_BACKUP_RETENTION_DAYS: must be a positive integer")
	}
	if (cfg.Push.VAPIDPublicKey == "") != (cfg.Push.VAPIDPrivateKey == "") {
		return Config{}, errors.New("CHECKIN_VAPID_PUBLIC_KEY and CHECKIN_VAPID_PRIVATE_KEY must be set together")
	}
	if v := get("LEGACY_UNOWNED_CHECKINS", ""); v != "" {
		if cfg.LegacyUnownedCheckins, err = strconv.ParseBool(v); err != nil {
			return Config{}, fmt.Errorf("CHECKIN_LEGACY_UNOWNED_CHECKINS: %w", err)
		}
	}
	for _, o := range strings.Split(get("ALLOWED_ORIGINS", "http://localhost:3000"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	if cfg.JWTSecret == "" {
		if cfg.Production() {
			return Config{}, errors.New("CHECKIN_JWT_SECRET is required in production")
		}
		cfg.JWTSecret = devSecret
	}

	return cfg, nil
}

func duration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", s)
	}
	return d, nil
}
