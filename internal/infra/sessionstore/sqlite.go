package sessionstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"particle-skill/internal/application"
	"particle-skill/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLite stores one row of attributes per user.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLite opens the database at dbPath and applies pending migrations.
func NewSQLite(dbPath string, logger *slog.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// one shared connection; SQLite allows a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	s := &SQLite{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Load(ctx context.Context, userID string) (domain.Attributes, error) {
	var attrs domain.Attributes
	err := s.db.QueryRowContext(ctx,
		"SELECT current_device, current_device_id FROM user_attributes WHERE user_id = ?",
		userID,
	).Scan(&attrs.CurrentDevice, &attrs.CurrentDeviceID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Attributes{}, application.ErrNotFound
	}
	if err != nil {
		return domain.Attributes{}, fmt.Errorf("loading attributes: %w", err)
	}
	return attrs, nil
}

func (s *SQLite) Save(ctx context.Context, userID string, attrs domain.Attributes) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_attributes (user_id, current_device, current_device_id, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			current_device = excluded.current_device,
			current_device_id = excluded.current_device_id,
			updated_at = excluded.updated_at`,
		userID, attrs.CurrentDevice, attrs.CurrentDeviceID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving attributes: %w", err)
	}
	return nil
}

// migrate applies migrations/NNNN_description.sql files above the recorded version.
func (s *SQLite) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			description TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		parts := strings.SplitN(name, "_", 2)
		if len(parts) < 2 {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(parts[0], "%d", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}
		description := strings.TrimSuffix(parts[1], ".sql")

		content, err := migrationsFS.ReadFile(path.Join("migrations", name))
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("executing migration %d: %w", version, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, applied_at, description) VALUES (?, ?, ?)",
			version, time.Now(), description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}

		s.logger.Info("applied migration", "version", fmt.Sprintf("%04d", version), "description", description)
	}

	return nil
}
