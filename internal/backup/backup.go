// Package backup takes encrypted snapshots of the check-in database and keeps
// them in S3-compatible object storage.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dukerupert/checkin/internal/model"
)

const keyPrefix = "checkin/"

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Store records backups.
type Store interface {
	Create(filename, s3Key string, createdAt time.Time) (*model.Backup, error)
	GetByID(id string) (*model.Backup, error)
	List(limit int) ([]model.Backup, error)
	UpdateStatus(id string, status model.BackupStatus, errorMsg string) error
	UpdateCompleted(id string, sizeBytes int64, completedAt time.Time) error
	DeleteOlderThan(before time.Time) ([]string, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

type Config struct {
	S3            S3Config
	Passphrase    string
	Interval      time.Duration
	RetentionDays int
}

// Manager runs backups on demand or on a schedule.
type Manager struct {
	mu     sync.Mutex // serializes backup runs
	cfg    Config
	db     *sql.DB
	store  Store
	client s3Client
	logger *slog.Logger
	now    func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager builds a manager. Without a bucket the manager stays disabled.
func NewManager(cfg Config, db *sql.DB, store Store, logger *slog.Logger) (*Manager, error) {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	m := &Manager{cfg: cfg, db: db, store: store, logger: logger, now: time.Now}
	if cfg.S3.Bucket != "" {
		client, err := newS3Client(context.Background(), cfg.S3)
		if err != nil {
			return nil, err
		}
		m.client = client
	}
	return m, nil
}

// newS3Client uses static keys when both are set and the default AWS
// credential chain otherwise.
func newS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	withEndpoint := func(o *s3.Options) {
		o.UsePathStyle = true
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts := s3.Options{
			Region:      cfg.Region,
			Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		}
		withEndpoint(&opts)
		return s3.New(opts), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, withEndpoint), nil
}

// Enabled reports whether storage and a passphrase are configured.
func (m *Manager) Enabled() bool {
	return m.client != nil && m.cfg.Passphrase != ""
}

// Start runs a backup and retention cleanup every interval until Stop.
func (m *Manager) Start(ctx context.Context) {
	if !m.Enabled() {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.RunNow(ctx); err != nil {
					m.logger.Error("scheduled backup failed", "error", err)
				}
				if err := m.Cleanup(ctx); err != nil {
					m.logger.Error("backup cleanup failed", "error", err)
				}
			}
		}
	}()
}

// Stop gracefully stops the schedule.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	if m.done != nil {
		<-m.done
	}
}

func (m *Manager) List(limit int) ([]model.Backup, error) {
	return m.store.List(limit)
}

// RunNow snapshots the database, encrypts it and uploads it.
func (m *Manager) RunNow(ctx context.Context) (*model.Backup, error) {
	if !m.Enabled() {
		return nil, fmt.Errorf("backup not configured")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	started := m.now().UTC()
	filename := fmt.Sprintf("backup-%s-%s.db.enc", started.Format("2006-01-02T150405Z"), uuid.NewString()[:8])
	key := keyPrefix + filename

	record, err := m.store.Create(filename, key, started)
	if err != nil {
		return nil, fmt.Errorf("create backup record: %w", err)
	}
	fail := func(err error) (*model.Backup, error) {
		if uerr := m.store.UpdateStatus(record.ID, model.BackupStatusFailed, err.Error()); uerr != nil {
			m.logger.Error("record backup failure", "backup_id", record.ID, "error", uerr)
		}
		return nil, err
	}

	snapshot, err := m.snapshot(ctx)
	if err != nil {
		return fail(err)
	}
	sealed, err := Seal(snapshot, m.cfg.Passphrase)
	if err != nil {
		return fail(fmt.Errorf("encrypt: %w", err))
	}

	if err := m.store.UpdateStatus(record.ID, model.BackupStatusUploading, ""); err != nil {
		return fail(err)
	}
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.S3.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	})
	if err != nil {
		return fail(fmt.Errorf("upload to s3: %w", err))
	}

	if err := m.store.UpdateCompleted(record.ID, int64(len(sealed)), m.now()); err != nil {
		return nil, err
	}
	m.logger.Info("backup completed", "backup_id", record.ID, "key", key, "size_bytes", len(sealed))
	return m.store.GetByID(record.ID)
}

// snapshot returns a consistent copy of the database file.
func (m *Manager) snapshot(ctx context.Context) ([]byte, error) {
	dir, err := os.MkdirTemp("", "checkin-backup-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "snapshot.db")
	if _, err := m.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return nil, fmt.Errorf("snapshot database: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

// Restore downloads a backup, decrypts it, checks its integrity and writes
// it to dst. ref is a backup id or, when the recording database is gone, an
// object key under checkin/. The running database is left alone; the
// operator swaps the file in while the service is stopped.
func (m *Manager) Restore(ctx context.Context, ref, dst string) error {
	if !m.Enabled() {
		return fmt.Errorf("backup not configured")
	}
	key, err := m.resolveKey(ref)
	if err != nil {
		return err
	}

	result, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.S3.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("download from s3: %w", err)
	}
	sealed, err := io.ReadAll(result.Body)
	result.Body.Close()
	if err != nil {
		return fmt.Errorf("read download: %w", err)
	}

	plaintext, err := Open(sealed, m.cfg.Passphrase)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, plaintext, 0o600); err != nil {
		return fmt.Errorf("write restored database: %w", err)
	}
	if err := checkIntegrity(ctx, dst); err != nil {
		os.Remove(dst)
		return err
	}
	m.logger.Info("backup restored", "key", key, "path", dst)
	return nil
}

func (m *Manager) resolveKey(ref string) (string, error) {
	if strings.HasPrefix(ref, keyPrefix) {
		return ref, nil
	}
	record, err := m.store.GetByID(ref)
	if err != nil {
		return "", fmt.Errorf("get backup: %w", err)
	}
	if record == nil {
		return "", fmt.Errorf("backup %s not found", ref)
	}
	if record.Status != model.BackupStatusCompleted {
		return "", fmt.Errorf("backup %s is %s", ref, record.Status)
	}
	return record.S3Key, nil
}

func checkIntegrity(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

// Cleanup deletes backups older than the retention period.
func (m *Manager) Cleanup(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	before := m.now().UTC().AddDate(0, 0, -m.cfg.RetentionDays)
	keys, err := m.store.DeleteOlderThan(before)
	if err != nil {
		return fmt.Errorf("delete old backups: %w", err)
	}

	for _, key := range keys {
		if _, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(m.cfg.S3.Bucket),
			Key:    aws.String(key),
		}); err != nil {
			m.logger.Warn("delete backup object", "key", key, "error", err)
		}
	}
	return nil
}
