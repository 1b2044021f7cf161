package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	sqlitemigrate "github.com/louisbranch/offline-tasks/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/storage"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

const dsnPragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

// Store provides SQLite-backed persistence for task records, UI state and
// cached responses.
type Store struct {
	sqlDB *sql.DB

	mu         sync.RWMutex
	partitions map[string]struct{}
}

// Open opens (creating if needed) the database at path, applies migrations,
// and ensures every named partition exists. Opening is idempotent. Failures
// wrap storage.ErrUnavailable.
func Open(path string, partitions ...string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: storage path is required", storage.ErrUnavailable)
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create storage dir: %w", storage.ErrUnavailable, err)
		}
	}

	sqlDB, err := sql.Open("sqlite", cleanPath+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite db: %w", storage.ErrUnavailable, err)
	}
	sqlDB.SetMaxOpenConns(1)

	ctx := context.Background()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: ping sqlite db: %w", storage.ErrUnavailable, err)
	}
	if _, err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS, "."); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: run migrations: %w", storage.ErrUnavailable, err)
	}

	store := &Store{sqlDB: sqlDB, partitions: make(map[string]struct{})}
	if err := store.loadPartitions(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}
	for _, name := range partitions {
		if err := store.CreatePartition(ctx, name); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
		}
	}
	return store, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreatePartition ensures a partition exists.
func (s *Store) CreatePartition(ctx context.Context, name string) error {
	if err := s.ready(); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("partition name is required")
	}
	if _, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO kv_partitions (name, created_at) VALUES (?, ?)`,
		name,
		nowMillis(),
	); err != nil {
		return fmt.Errorf("create partition %s: %w", name, err)
	}
	s.mu.Lock()
	s.partitions[name] = struct{}{}
	s.mu.Unlock()
	return nil
}

// Partitions lists known partition names.
func (s *Store) Partitions() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.partitions))
	for name := range s.partitions {
		names = append(names, name)
	}
	return names
}

func (s *Store) loadPartitions(ctx context.Context) error {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT name FROM kv_partitions`)
	if err != nil {
		return fmt.Errorf("list partitions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()
	s.mu.Lock()
	defer s.mu.Unlock()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scan partition: %w", err)
		}
		s.partitions[name] = struct{}{}
	}
	return rows.Err()
}

func (s *Store) ready() error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("%w: storage is not configured", storage.ErrUnavailable)
	}
	return nil
}

func (s *Store) checkPartition(partition string) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.mu.RLock()
	_, ok := s.partitions[partition]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", storage.ErrUnknownPartition, partition)
	}
	return nil
}

func nowMillis() int64 {
	return time.Now().UTC().UnixMilli()
}

var (
	_ storage.KV           = (*Store)(nil)
	_ storage.CacheStorage = (*Store)(nil)
)
