package backup

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/bywater/internal/database"
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

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestManagerStateLifecycle(t *testing.T) {
	// Without S3 config -> disabled.
	m := NewManager(Config{}, nil, testLogger())
	if m.Status().State != StateDisabled {
		t.Errorf("state = %q, want %q", m.Status().State, StateDisabled)
	}
	if m.Enabled() {
		t.Error("manager without config should report disabled")
	}
	if err := m.Run(context.Background()); err == nil {
		t.Error("running a disabled manager should fail")
	}

	// With full config -> idle.
	m2 := NewManager(Config{
		S3:         S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret"},
		Passphrase: "secret-phrase",
	}, nil, testLogger())
	if m2.Status().State != StateIdle {
		t.Errorf("state = %q, want %q", m2.Status().State, StateIdle)
	}

	// Passphrase alone is not enough.
	m3 := NewManager(Config{Passphrase: "secret-phrase"}, nil, testLogger())
	if m3.Status().State != StateDisabled {
		t.Errorf("state = %q, want %q", m3.Status().State, StateDisabled)
	}
}

func TestRunUploadsEncryptedSnapshot(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "app.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mock := newMockS3()
	m := &Manager{
		cfg: Config{
			S3:         S3Config{Bucket: "test"},
			DBPath:     dbPath,
			Passphrase: "secret-phrase",
		},
		db:     db,
		client: mock,
		logger: testLogger(),
		status: Status{State: StateIdle},
	}

	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	st := m.Status()
	if st.State != StateIdle {
		t.Errorf("state = %q, want idle after success", st.State)
	}
	if st.LastBackup == nil {
		t.Error("last backup time not recorded")
	}
	if !strings.HasPrefix(st.LastKey, "bywater/backup-") || !strings.HasSuffix(st.LastKey, ".db.enc") {
		t.Errorf("unexpected object key %q", st.LastKey)
	}

	data, ok := mock.objects[st.LastKey]
	if !ok {
		t.Fatal("no object uploaded")
	}
	if len(data) <= saltSize+nonceSize {
		t.Errorf("uploaded object too small: %d bytes", len(data))
	}

	// The upload decrypts back to a SQLite database.
	encPath := filepath.Join(dir, "uploaded.enc")
	decPath := filepath.Join(dir, "restored.db")
	if err := os.WriteFile(encPath, data, 0600); err != nil {
		t.Fatalf("write upload copy: %v", err)
	}
	if err := DecryptFile(encPath, decPath, "secret-phrase"); err != nil {
		t.Fatalf("decrypt upload: %v", err)
	}
	restored, err := os.ReadFile(decPath)
	if err != nil {
		t.Fatalf("read restored: %v", err)
	}
	if !strings.HasPrefix(string(restored), "SQLite format 3") {
		t.Error("restored file is not a SQLite database")
	}
}
