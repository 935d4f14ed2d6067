package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/checkin/internal/database"
	"github.com/dukerupert/checkin/internal/model"
	"github.com/dukerupert/checkin/internal/store"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestManager(t *testing.T) (*Manager, *mockS3Client, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := store.NewUserStore(db).Create("sam@example.com", "hash", "Sam"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	m, err := NewManager(Config{
		S3:         S3Config{Bucket: "snapshots", AccessKey: "key", SecretKey: "secret", Region: "us-east-1"},
		Passphrase: "correct horse",
	}, db, store.NewBackupStore(db), discard)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	mock := newMockS3()
	m.client = mock
	return m, mock, db
}

func TestEnabled(t *testing.T) {
	m, err := NewManager(Config{}, nil, nil, discard)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if m.Enabled() {
		t.Error("manager without storage should be disabled")
	}
	noPass, err := NewManager(Config{S3: S3Config{Bucket: "b", AccessKey: "k", SecretKey: "s"}}, nil, nil, discard)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if noPass.Enabled() {
		t.Error("manager without passphrase should be disabled")
	}
	if _, err := noPass.RunNow(context.Background()); err == nil {
		t.Error("RunNow should fail when disabled")
	}
}

func TestRunNowAndRestore(t *testing.T) {
	m, mock, _ := newTestManager(t)
	ctx := context.Background()

	b, err := m.RunNow(ctx)
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if b.Status != model.BackupStatusCompleted || b.SizeBytes == 0 {
		t.Errorf("backup = %+v", b)
	}
	if !strings.HasPrefix(b.S3Key, keyPrefix) {
		t.Errorf("key = %q, want prefix %q", b.S3Key, keyPrefix)
	}
	obj, ok := mock.objects[b.S3Key]
	if !ok {
		t.Fatalf("object %q not uploaded", b.S3Key)
	}
	if bytes.Contains(obj, []byte("sam@example.com")) {
		t.Error("uploaded snapshot is not encrypted")
	}

	dst := filepath.Join(t.TempDir(), "restored.db")
	if err := m.Restore(ctx, b.ID, dst); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	restored, err := sql.Open("sqlite", dst)
	if err != nil {
		t.Fatalf("open restored: %v", err)
	}
	defer restored.Close()
	var email string
	if err := restored.QueryRow(`SELECT email FROM users`).Scan(&email); err != nil {
		t.Fatalf("query restored: %v", err)
	}
	if email != "sam@example.com" {
		t.Errorf("email = %q", email)
	}
}

func TestRestoreByKey(t *testing.T) {
	m, _, _ := newTestManager(t)
	b, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if err := m.Restore(context.Background(), b.S3Key, filepath.Join(t.TempDir(), "x.db")); err != nil {
		t.Errorf("Restore by key: %v", err)
	}
}

func TestRestoreWrongPassphrase(t *testing.T) {
	m, _, _ := newTestManager(t)
	b, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}

	m.cfg.Passphrase = "wrong"
	err = m.Restore(context.Background(), b.ID, filepath.Join(t.TempDir(), "x.db"))
	if !errors.Is(err, ErrBadPassphrase) {
		t.Errorf("err = %v, want ErrBadPassphrase", err)
	}
}

func TestRestoreUnknownBackup(t *testing.T) {
	m, _, _ := newTestManager(t)
	if err := m.Restore(context.Background(), "nope", filepath.Join(t.TempDir(), "x.db")); err == nil {
		t.Error("expected error for unknown backup")
	}
}

func TestRunNowUploadFailure(t *testing.T) {
	m, mock, db := newTestManager(t)
	mock.putErr = errors.New("connection refused")

	if _, err := m.RunNow(context.Background()); err == nil {
		t.Fatal("expected upload error")
	}
	list, err := store.NewBackupStore(db).List(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Status != model.BackupStatusFailed || !strings.Contains(list[0].ErrorMessage, "connection refused") {
		t.Errorf("records = %+v", list)
	}

	err = m.Restore(context.Background(), list[0].ID, filepath.Join(t.TempDir(), "x.db"))
	if err == nil {
		t.Error("restoring a failed backup should be refused")
	}
}

func TestCleanup(t *testing.T) {
	m, mock, _ := newTestManager(t)
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 3, 0, 0, 0, time.UTC)

	m.now = func() time.Time { return start }
	old, err := m.RunNow(ctx)
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	m.now = func() time.Time { return start.AddDate(0, 0, 35) }
	recent, err := m.RunNow(ctx)
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}

	if err := m.Cleanup(ctx); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, ok := mock.objects[old.S3Key]; ok {
		t.Error("expired object should be deleted")
	}
	if _, ok := mock.objects[recent.S3Key]; !ok {
		t.Error("recent object should be kept")
	}
	list, _ := m.List(10)
	if len(list) != 1 || list[0].ID != recent.ID {
		t.Errorf("records = %+v", list)
	}
}
