package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dukerupert/checkin/internal/backup"
	"github.com/dukerupert/checkin/internal/config"
	"github.com/dukerupert/checkin/internal/database"
	"github.com/dukerupert/checkin/internal/logging"
	"github.com/dukerupert/checkin/internal/store"
)

const usage = `usage:
  backup run                 take an encrypted snapshot now
  backup list                show recent backups
  backup restore REF DEST    download backup REF (id or object key) to DEST
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
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

	b := cfg.Backup
	mgr, err := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  b.Endpoint,
			Bucket:    b.Bucket,
			Region:    b.Region,
			AccessKey: b.AccessKey,
			SecretKey: b.SecretKey,
		},
		Passphrase:    b.Passphrase,
		RetentionDays: b.RetentionDays,
	}, db, store.NewBackupStore(db), logger.With("component", "backup"))
	if err != nil {
		logger.Error("configure backups", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, mgr, os.Args[1:]); err != nil {
		logger.Error("backup command failed", "command", os.Args[1], "error", err)
		stop()
		db.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, mgr *backup.Manager, args []string) error {
	switch args[0] {
	case "run":
		rec, err := mgr.RunNow(ctx)
		if err != nil {
			return err
		}
		if err := mgr.Cleanup(ctx); err != nil {
			return err
		}
		fmt.Printf("%s\t%s\t%d bytes\n", rec.ID, rec.S3Key, rec.SizeBytes)
		return nil

	case "list":
		backups, err := mgr.List(50)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tSTATUS\tSIZE\tKEY")
		for _, b := range backups {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", b.ID, b.CreatedAt.Format(time.RFC3339), b.Status, b.SizeBytes, b.S3Key)
		}
		return w.Flush()

	case "restore":
		if len(args) != 3 {
			return fmt.Errorf("restore needs REF and DEST")
		}
		if _, err := os.Stat(args[2]); err == nil {
			return fmt.Errorf("%s already exists", args[2])
		}
		if err := mgr.Restore(ctx, args[1], args[2]); err != nil {
			return err
		}
		fmt.Printf("restored to %s\n", args[2])
		return nil

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}
