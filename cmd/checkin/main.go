package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/checkin/internal/auth"
	"github.com/dukerupert/checkin/internal/backup"
	"github.com/dukerupert/checkin/internal/config"
	"github.com/dukerupert/checkin/internal/database"
	"github.com/dukerupert/checkin/internal/logging"
	"github.com/dukerupert/checkin/internal/push"
	"github.com/dukerupert/checkin/internal/server"
	"github.com/dukerupert/checkin/internal/store"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "vapid-keys" {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("CHECKIN_VAPID_PUBLIC_KEY=%s\nCHECKIN_VAPID_PRIVATE_KEY=%s\n", pub, priv)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	tokens := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	srv := server.New(db, tokens, server.Config{
		AllowedOrigins:        cfg.AllowedOrigins,
		LegacyUnownedCheckins: cfg.LegacyUnownedCheckins,
		Push: push.NewService(push.Config{
			VAPIDPublicKey:  cfg.Push.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.Push.VAPIDPrivateKey,
			Subject:         cfg.Push.Subject,
		}),
	}, logger)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Background cleanup of idle rate limiter buckets
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				for _, rl := range srv.RateLimiters() {
					rl.Cleanup(10 * time.Minute)
				}
			}
		}
	}()

	backups, err := backup.NewManager(backupConfig(cfg.Backup), db, store.NewBackupStore(db), logger.With("component", "backup"))
	if err != nil {
		logger.Error("configure backups", "error", err)
		os.Exit(1)
	}
	if backups.Enabled() {
		logger.Info("scheduled backups enabled", "interval", cfg.Backup.Interval, "retention_days", cfg.Backup.RetentionDays)
		backups.Start(cleanupCtx)
		defer backups.Stop()
	}

	go func() {
		logger.Info("checkin server starting", "port", cfg.Port, "env", cfg.Env)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func backupConfig(b config.Backup) backup.Config {
	return backup.Config{
		S3: backup.S3Config{
			Endpoint:  b.Endpoint,
			Bucket:    b.Bucket,
			Region:    b.Region,
			AccessKey: b.AccessKey,
			SecretKey: b.SecretKey,
		},
		Passphrase:    b.Passphrase,
		Interval:      b.Interval,
		RetentionDays: b.RetentionDays,
	}
}
