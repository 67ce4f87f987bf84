// Package history keeps a local sqlite log of sent tweets.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cheerlights/cheertweet/internal/history/migrations"
	_ "modernc.org/sqlite"
)

// Tweet is one recorded send.
type Tweet struct {
	ID         int64
	Colour     string
	Payload    string
	RemoteID   string
	APIVersion string
	Destroyed  bool
	CreatedAt  time.Time
}

// Store wraps the database connection.
type Store struct {
	*sql.DB
}

// NewStore opens (creating if needed) the history database and applies
// pending migrations.
func NewStore(ctx context.Context, dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(1) // SQLite doesn't handle concurrent writes well

	if _, err := sqlDB.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := sqlDB.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	store := &Store{DB: sqlDB}
	if err := store.migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return store, nil
}

// migrate applies all pending database migrations.
func (s *Store) migrate(ctx context.Context) error {
	_, err := s.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	rows, err := s.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return fmt.Errorf("scan migration: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate migrations: %w", err)
	}

	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		if applied[file] {
			continue
		}

		slog.Debug("applying migration", "file", file)

		content, err := fs.ReadFile(migrations.FS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		sqlContent := extractUpMigration(string(content))

		tx, err := s.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, sqlContent); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %s: %w", file, err)
		}

		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", file); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}

	return nil
}

// extractUpMigration extracts the "up" portion of a migration file.
func extractUpMigration(content string) string {
	downMarker := "-- +migrate Down"
	idx := strings.Index(content, downMarker)
	if idx == -1 {
		return content
	}

	up := content[:idx]
	up = strings.TrimPrefix(up, "-- +migrate Up")
	return strings.TrimSpace(up)
}

// Record logs a successfully sent tweet and returns its row id.
func (s *Store) Record(ctx context.Context, colour, payload, remoteID, apiVersion string) (int64, error) {
	res, err := s.ExecContext(ctx,
		`INSERT INTO tweets (colour, payload, remote_id, api_version) VALUES (?, ?, ?, ?)`,
		colour, payload, remoteID, apiVersion)
	if err != nil {
		return 0, fmt.Errorf("record tweet: %w", err)
	}
	return res.LastInsertId()
}

// MarkDestroyed flags a recorded tweet as deleted remotely.
func (s *Store) MarkDestroyed(ctx context.Context, remoteID string) error {
	if _, err := s.ExecContext(ctx, `UPDATE tweets SET destroyed = 1 WHERE remote_id = ?`, remoteID); err != nil {
		return fmt.Errorf("mark destroyed: %w", err)
	}
	return nil
}

// Recent returns up to limit recorded tweets, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Tweet, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT id, colour, payload, remote_id, api_version, destroyed, created_at
		FROM tweets
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query tweets: %w", err)
	}
	defer rows.Close()

	var tweets []Tweet
	for rows.Next() {
		var t Tweet
		var destroyed int
		if err := rows.Scan(&t.ID, &t.Colour, &t.Payload, &t.RemoteID, &t.APIVersion, &destroyed, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tweet: %w", err)
		}
		t.Destroyed = destroyed != 0
		tweets = append(tweets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tweets: %w", err)
	}
	return tweets, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.DB.Close()
}
