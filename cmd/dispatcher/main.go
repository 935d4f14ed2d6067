package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukerupert/checkin/internal/config"
	"github.com/dukerupert/checkin/internal/database"
	"github.com/dukerupert/checkin/internal/dispatch"
	"github.com/dukerupert/checkin/internal/logging"
	"github.com/dukerupert/checkin/internal/ownership"
	"github.com/dukerupert/checkin/internal/push"
	"github.com/dukerupert/checkin/internal/reminder"
	"github.com/dukerupert/checkin/internal/sms"
	"github.com/dukerupert/checkin/internal/store"
)

func main() {
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

	reminderStore := store.NewReminderStore(db)
	svc := reminder.NewService(
		reminderStore,
		store.NewResponseStore(db),
		store.NewCheckinStore(db),
		ownership.NewGuard(store.NewOwnershipStore(db)),
		logger.With("component", "reminder"),
	)

	var sender dispatch.Sender
	client := sms.NewClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.From)
	if client.Configured() {
		sender = client
	} else {
		logger.Warn("twilio not configured, sms reminders stay unsent")
		sender = dispatch.LogSender{Logger: logger.With("component", "sms")}
	}

	sched := dispatch.NewScheduler(reminderStore, svc, sender, cfg.DispatchInterval, logger.With("component", "dispatch"))

	pushSvc := push.NewService(push.Config{
		VAPIDPublicKey:  cfg.Push.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.Push.VAPIDPrivateKey,
		Subject:         cfg.Push.Subject,
	})
	if pushSvc.Configured() {
		sched.WithPush(push.NewNotifier(pushSvc, store.NewPushStore(db), logger.With("component", "push")))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("dispatcher starting", "interval", cfg.DispatchInterval, "push", pushSvc.Configured())
	sched.Tick(ctx)
	sched.Start(ctx)

	<-ctx.Done()
	logger.Info("shutting down")
	sched.Stop()
}
