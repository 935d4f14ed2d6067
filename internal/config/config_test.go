package config

import (
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Port != "3001" || cfg.DBPath != "checkin.db" {
		t.Errorf("Port/DBPath = %q/%q", cfg.Port, cfg.DBPath)
	}
	if cfg.TokenTTL != 7*24*time.Hour {
		t.Errorf("TokenTTL = %v, want 7 days", cfg.TokenTTL)
	}
	if cfg.DispatchInterval != time.Minute {
		t.Errorf("DispatchInterval = %v", cfg.DispatchInterval)
	}
	if cfg.JWTSecret == "" {
		t.Error("expected development secret outside production")
	}
	if cfg.LegacyUnownedCheckins {
		t.Error("legacy listing should default to off")
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestOverrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"CHECKIN_PORT":                    "9000",
		"CHECKIN_JWT_SECRET":              "s3cret",
		"CHECKIN_TOKEN_TTL":               "12h",
		"CHECKIN_ALLOWED_ORIGINS":         "https://a.example, https://b.example,",
		"CHECKIN_LEGACY_UNOWNED_CHECKINS": "true",
		"CHECKIN_DISPATCH_INTERVAL":       "30s",
		"CHECKIN_TWILIO_ACCOUNT_SID":      "AC1",
	}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Port != "9000" || cfg.JWTSecret != "s3cret" || cfg.TokenTTL != 12*time.Hour {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if !cfg.LegacyUnownedCheckins || cfg.DispatchInterval != 30*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Twilio.AccountSID != "AC1" {
		t.Errorf("Twilio = %+v", cfg.Twilio)
	}
}

func TestProductionRequiresSecret(t *testing.T) {
	_, err := FromEnv(envMap(map[string]string{"CHECKIN_ENV": "production"}))
	if err == nil {
		t.Fatal("expected error without a JWT secret in production")
	}

	cfg, err := FromEnv(envMap(map[string]string{"CHECKIN_ENV": "production", "CHECKIN_JWT_SECRET": "x"}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if !cfg.Production() {
		t.Error("expected Production() = true")
	}
}

func TestInvalidValues(t *testing.T) {
	for _, env := range []map[string]string{
		{"CHECKIN_TOKEN_TTL": "soon"},
		{"CHECKIN_TOKEN_TTL": "-1h"},
		{"CHECKIN_DISPATCH_INTERVAL": "0s"},
		{"CHECKIN_LEGACY_UNOWNED_CHECKINS": "maybe"},
		{"CHECKIN_BACKUP_RETENTION_DAYS": "0"},
		{"CHECKIN_BACKUP_INTERVAL": "daily"},
		{"CHECKIN_VAPID_PUBLIC_KEY": "pub"},
	} {
		if _, err := FromEnv(envMap(env)); err == nil {
			t.Errorf("%v: expected error", env)
		}
	}
}

func TestBackupAndPush(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Backup.Enabled() {
		t.Error("backups should be off by default")
	}
	if cfg.Backup.Interval != 24*time.Hour || cfg.Backup.RetentionDays != 30 || cfg.Backup.Region != "us-east-1" {
		t.Errorf("Backup defaults = %+v", cfg.Backup)
	}

	cfg, err = FromEnv(envMap(map[string]string{
		"CHECKIN_BACKUP_S3_BUCKET":      "snapshots",
		"CHECKIN_BACKUP_S3_ACCESS_KEY":  "ak",
		"CHECKIN_BACKUP_S3_SECRET_KEY":  "sk",
		"CHECKIN_BACKUP_PASSPHRASE":     "correct horse",
		"CHECKIN_BACKUP_INTERVAL":       "6h",
		"CHECKIN_BACKUP_RETENTION_DAYS": "7",
		"CHECKIN_VAPID_PUBLIC_KEY":      "pub",
		"CHECKIN_VAPID_PRIVATE_KEY":     "priv",
	}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if !cfg.Backup.Enabled() || cfg.Backup.Interval != 6*time.Hour || cfg.Backup.RetentionDays != 7 {
		t.Errorf("Backup = %+v", cfg.Backup)
	}
	if cfg.Push.VAPIDPublicKey != "pub" || cfg.Push.VAPIDPrivateKey != "priv" {
		t.Errorf("Push = %+v", cfg.Push)
	}
}
