package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jockey/internal/modules/player/application/ports"
	"github.com/sglre6355/jockey/internal/modules/player/domain"

	_ "modernc.org/sqlite"
)

// Compile-time checks that SQLiteStore implements the persistence ports.
var (
	_ ports.CandidateCache     = (*SQLiteStore)(nil)
	_ domain.LoopSettingsStore = (*SQLiteStore)(nil)
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const schema = `
CREATE TABLE IF NOT EXISTS cache (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS guild_settings (
	guild_id INTEGER PRIMARY KEY,
	loop_one INTEGER NOT NULL DEFAULT 0,
	loop_all INTEGER NOT NULL DEFAULT 0
);`

// SQLiteStore persists the candidate cache and per-guild loop settings in one
// SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLiteStore opens or creates the database at path and applies the schema.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := range busyRetryAttempts {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, busyRetryMaxBackoff)
	}
	return lastErr
}

func (s *SQLiteStore) exec(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func (s *SQLiteStore) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM cache WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cache key %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) set(ctx context.Context, key, value string) error {
	err := s.exec(ctx,
		`INSERT INTO cache (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to write cache key %q: %w", key, err)
	}
	return nil
}

// --- CandidateCache ---

func (s *SQLiteStore) GetHandle(ctx context.Context, keyType ports.CacheKeyType, key string) (string, bool, error) {
	return s.get(ctx, handleCacheKey(keyType, key))
}

func (s *SQLiteStore) SetHandle(ctx context.Context, keyType ports.CacheKeyType, key, handle string) error {
	return s.set(ctx, handleCacheKey(keyType, key), handle)
}

func (s *SQLiteStore) DeleteHandle(ctx context.Context, keyType ports.CacheKeyType, key string) error {
	if err := s.exec(ctx, `DELETE FROM cache WHERE key = ?`, handleCacheKey(keyType, key)); err != nil {
		return fmt.Errorf("failed to delete cached handle: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetMusicBrainzID(ctx context.Context, contentID string) (string, bool, error) {
	return s.get(ctx, mbidCacheKey(contentID))
}

func (s *SQLiteStore) SetMusicBrainzID(ctx context.Context, contentID, mbid string) error {
	return s.set(ctx, mbidCacheKey(contentID), mbid)
}

func (s *SQLiteStore) GetISRC(ctx context.Context, contentID string) (string, bool, error) {
	return s.get(ctx, isrcCacheKey(contentID))
}

func (s *SQLiteStore) SetISRC(ctx context.Context, contentID, isrc string) error {
	return s.set(ctx, isrcCacheKey(contentID), isrc)
}

// --- LoopSettingsStore ---

// loopColumn is only ever one of two constants, never user input.
func (s *SQLiteStore) loopFlag(ctx context.Context, guildID snowflake.ID, loopColumn string) (bool, error) {
	var enabled bool
	err := s.db.QueryRowContext(ctx,
		`SELECT `+loopColumn+` FROM guild_settings WHERE guild_id = ?`, int64(guildID),
	).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", loopColumn, err)
	}
	return enabled, nil
}

func (s *SQLiteStore) setLoopFlag(ctx context.Context, guildID snowflake.ID, loopColumn string, enabled bool) error {
	err := s.exec(ctx,
		`INSERT INTO guild_settings (guild_id, `+loopColumn+`) VALUES (?, ?)
		 ON CONFLICT(guild_id) DO UPDATE SET `+loopColumn+` = excluded.`+loopColumn,
		int64(guildID), enabled,
	)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", loopColumn, err)
	}
	return nil
}

func (s *SQLiteStore) LoopOne(ctx context.Context, guildID snowflake.ID) (bool, error) {
	return s.loopFlag(ctx, guildID, "loop_one")
}

func (s *SQLiteStore) SetLoopOne(ctx context.Context, guildID snowflake.ID, enabled bool) error {
	return s.setLoopFlag(ctx, guildID, "loop_one", enabled)
}

func (s *SQLiteStore) LoopAll(ctx context.Context, guildID snowflake.ID) (bool, error) {
	return s.loopFlag(ctx, guildID, "loop_all")
}

func (s *SQLiteStore) SetLoopAll(ctx context.Context, guildID snowflake.ID, enabled bool) error {
	return s.setLoopFlag(ctx, guildID, "loop_all", enabled)
}
