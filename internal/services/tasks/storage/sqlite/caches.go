package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/louisbranch/offline-tasks/internal/services/tasks/fetch"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/storage"
)

// OpenCache creates the named cache generation if absent.
func (s *Store) OpenCache(ctx context.Context, name string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return openCache(ctx, s.sqlDB, name)
}

// CacheNames lists cache generations in creation order.
func (s *Store) CacheNames(ctx context.Context) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT name FROM cache_generations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list caches: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan cache name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate caches: %w", err)
	}
	return names, nil
}

// DeleteCache removes a cache generation with all of its entries.
func (s *Store) DeleteCache(ctx context.Context, name string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin delete cache %s: %w", name, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_entries WHERE cache_name = ?`, name); err != nil {
		return false, fmt.Errorf("delete cache entries %s: %w", name, err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM cache_generations WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("delete cache %s: %w", name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete cache %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete cache %s: %w", name, err)
	}
	return affected > 0, nil
}

// Match loads a cached response. A missing cache or key is a miss.
func (s *Store) Match(ctx context.Context, cacheName, key string) (*fetch.Response, bool, error) {
	if err := s.ready(); err != nil {
		return nil, false, err
	}
	var (
		status     int
		headerJSON []byte
		body       []byte
	)
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT status, header_json, body FROM cache_entries WHERE cache_name = ? AND request_key = ?`,
		cacheName,
		key,
	).Scan(&status, &headerJSON, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("match %s %s: %w", cacheName, key, err)
	}
	header := make(http.Header)
	if len(headerJSON) > 0 {
		if err := json.Unmarshal(headerJSON, &header); err != nil {
			return nil, false, fmt.Errorf("decode cached header %s %s: %w", cacheName, key, err)
		}
	}
	return &fetch.Response{Status: status, Header: header, Body: body}, true, nil
}

// Put stores one response, creating the cache generation if needed.
func (s *Store) Put(ctx context.Context, cacheName, key string, resp *fetch.Response) error {
	return s.PutAll(ctx, cacheName, []storage.CachedResponse{{Key: key, Response: resp}})
}

// PutAll stores every response in one transaction.
func (s *Store) PutAll(ctx context.Context, cacheName string, entries []storage.CachedResponse) error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.Response == nil {
			return fmt.Errorf("put %s %s: response is required", cacheName, entry.Key)
		}
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put %s: %w", cacheName, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := openCache(ctx, tx, cacheName); err != nil {
		return err
	}
	storedAt := nowMillis()
	for _, entry := range entries {
		headerJSON, err := json.Marshal(entry.Response.Header)
		if err != nil {
			return fmt.Errorf("encode header %s %s: %w", cacheName, entry.Key, err)
		}
		body := entry.Response.Body
		if body == nil {
			body = []byte{}
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO cache_entries (cache_name, request_key, status, header_json, body, stored_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(cache_name, request_key) DO UPDATE SET
			   status = excluded.status,
			   header_json = excluded.header_json,
			   body = excluded.body,
			   stored_at = excluded.stored_at`,
			cacheName,
			entry.Key,
			entry.Response.Status,
			headerJSON,
			body,
			storedAt,
		); err != nil {
			return fmt.Errorf("put %s %s: %w", cacheName, entry.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put %s: %w", cacheName, err)
	}
	return nil
}

func openCache(ctx context.Context, db execer, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: cache name is required", storage.ErrUnknownCache)
	}
	if _, err := db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO cache_generations (name, created_at) VALUES (?, ?)`,
		name,
		nowMillis(),
	); err != nil {
		return fmt.Errorf("open cache %s: %w", name, err)
	}
	return nil
}
