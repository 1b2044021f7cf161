package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/offline-tasks/internal/services/tasks/storage"
)

// Get loads one value.
func (s *Store) Get(ctx context.Context, partition, key string) ([]byte, bool, error) {
	if err := s.checkPartition(partition); err != nil {
		return nil, false, err
	}
	var value []byte
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT value FROM kv_entries WHERE partition_name = ? AND entry_key = ?`,
		partition,
		key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s/%s: %w", partition, key, err)
	}
	return value, true, nil
}

// Set upserts one value. Replacing a value keeps its insertion position.
func (s *Store) Set(ctx context.Context, partition, key string, value []byte) error {
	if err := s.checkPartition(partition); err != nil {
		return err
	}
	if err := upsert(ctx, s.sqlDB, partition, key, value); err != nil {
		return fmt.Errorf("set %s/%s: %w", partition, key, err)
	}
	return nil
}

// Update reads, transforms and writes one value inside a single transaction.
func (s *Store) Update(ctx context.Context, partition, key string, fn storage.UpdateFunc) error {
	if err := s.checkPartition(partition); err != nil {
		return err
	}
	if fn == nil {
		return errors.New("update function is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update %s/%s: %w", partition, key, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var current []byte
	found := true
	err = tx.QueryRowContext(
		ctx,
		`SELECT value FROM kv_entries WHERE partition_name = ? AND entry_key = ?`,
		partition,
		key,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		found = false
	} else if err != nil {
		return fmt.Errorf("read %s/%s: %w", partition, key, err)
	}

	next, err := fn(current, found)
	if err != nil {
		return err
	}
	if err := upsert(ctx, tx, partition, key, next); err != nil {
		return fmt.Errorf("write %s/%s: %w", partition, key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update %s/%s: %w", partition, key, err)
	}
	return nil
}

// Delete removes one key.
func (s *Store) Delete(ctx context.Context, partition, key string) error {
	if err := s.checkPartition(partition); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(
		ctx,
		`DELETE FROM kv_entries WHERE partition_name = ? AND entry_key = ?`,
		partition,
		key,
	); err != nil {
		return fmt.Errorf("delete %s/%s: %w", partition, key, err)
	}
	return nil
}

// Entries snapshots a partition in insertion order.
func (s *Store) Entries(ctx context.Context, partition string) ([]storage.Entry, error) {
	if err := s.checkPartition(partition); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT entry_key, value FROM kv_entries WHERE partition_name = ? ORDER BY id`,
		partition,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", partition, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	entries := make([]storage.Entry, 0)
	for rows.Next() {
		var entry storage.Entry
		if err := rows.Scan(&entry.Key, &entry.Value); err != nil {
			return nil, fmt.Errorf("scan %s entry: %w", partition, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", partition, err)
	}
	return entries, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, db execer, partition, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := db.ExecContext(
		ctx,
		`INSERT INTO kv_entries (partition_name, entry_key, value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(partition_name, entry_key) DO UPDATE SET
		   value = excluded.value,
		   updated_at = excluded.updated_at`,
		partition,
		key,
		value,
		nowMillis(),
	)
	return err
}
