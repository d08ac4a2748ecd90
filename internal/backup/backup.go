// Package backup snapshots the SQLite database, encrypts the snapshot,
// and uploads it to S3-compatible storage.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Config holds backup manager configuration. An empty bucket or
// passphrase disables backups.
type Config struct {
	S3         S3Config
	DBPath     string
	Passphrase string
}

// State represents the backup manager state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status holds the current backup manager status.
type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	LastKey    string     `json:"last_key,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
}

// Manager runs on-demand encrypted backups.
type Manager struct {
	mu     sync.RWMutex
	cfg    Config
	status Status
	db     *sql.DB
	client s3Client
	logger *slog.Logger
}

// NewManager creates a backup manager. It stays disabled until the S3
// settings and passphrase are all present.
func NewManager(cfg Config, db *sql.DB, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:    cfg,
		db:     db,
		logger: logger,
		status: Status{State: StateDisabled},
	}

	if cfg.S3.Bucket != "" && cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" && cfg.Passphrase != "" {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}

	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether the manager is configured to run.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.State != StateDisabled
}

// Status returns a copy of the current status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Run performs one backup: snapshot, encrypt, upload. Only one backup
// runs at a time; a second call while one is in flight is an error.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.status.State == StateDisabled {
		m.mu.Unlock()
		return fmt.Errorf("backup: not configured")
	}
	if m.status.InProgress {
		m.mu.Unlock()
		return fmt.Errorf("backup: already running")
	}
	m.status.State = StateRunning
	m.status.InProgress = true
	m.status.Error = ""
	m.mu.Unlock()

	err := m.run(ctx)

	m.mu.Lock()
	m.status.InProgress = false
	if err != nil {
		m.status.State = StateError
		m.status.Error = err.Error()
	} else {
		now := time.Now()
		m.status.State = StateIdle
		m.status.LastBackup = &now
	}
	m.mu.Unlock()

	return err
}

func (m *Manager) run(ctx context.Context) error {
	tmpDir, err := os.MkdirTemp("", "bywater-backup-*")
	if err != nil {
		return fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	snapshot := filepath.Join(tmpDir, "snapshot.db")
	// VACUUM INTO gives a consistent point-in-time copy without locking
	// out writers.
	if _, err := m.db.ExecContext(ctx, `VACUUM INTO ?`, snapshot); err != nil {
		return fmt.Errorf("snapshot db: %w", err)
	}

	salt, err := GenerateSalt()
	if err != nil {
		return err
	}

	encrypted := snapshot + ".enc"
	if err := EncryptFile(snapshot, encrypted, m.cfg.Passphrase, salt); err != nil {
		return err
	}

	data, err := os.ReadFile(encrypted)
	if err != nil {
		return fmt.Errorf("read encrypted snapshot: %w", err)
	}

	key := fmt.Sprintf("bywater/backup-%s.db.enc", time.Now().UTC().Format("20060102-150405"))
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(m.cfg.S3.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("upload backup: %w", err)
	}

	m.mu.Lock()
	m.status.LastKey = key
	m.mu.Unlock()

	m.logger.Info("backup uploaded", "key", key, "bytes", len(data))
	return nil
}
