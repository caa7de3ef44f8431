// Package postgres implements the domain repositories using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"tourbook/internal/domain"
)

// DB wraps a *sql.DB and implements domain repository interfaces.
type DB struct {
	sql *sql.DB
}

// Open connects to PostgreSQL, pings, and runs migrations.
func Open(connStr string) (*DB, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(10)
	s.SetMaxIdleConns(5)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	d := &DB{sql: s}
	if err := d.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

var schema = []string{
	"CREATE TABLE IF NOT EXISTS experiences (id BIGINT PRIMARY KEY, name TEXT NOT NULL);",
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		experience_id BIGINT REFERENCES experiences(id),
		avatar TEXT NOT NULL DEFAULT '',
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		is_guide BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL);`,
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(lower(email)) WHERE email <> '';",
	"CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at);",
	`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		user_agent TEXT NOT NULL DEFAULT '',
		ip TEXT NOT NULL DEFAULT '',
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL);`,
	"CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);",
	`CREATE TABLE IF NOT EXISTS tours (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL,
		start_date TIMESTAMPTZ NOT NULL,
		end_date TIMESTAMPTZ NOT NULL,
		guide_id BIGINT NOT NULL REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL);`,
	"CREATE INDEX IF NOT EXISTS idx_tours_start_date ON tours(start_date);",
	`CREATE TABLE IF NOT EXISTS tour_images (
		tour_id BIGINT NOT NULL REFERENCES tours(id) ON DELETE CASCADE,
		position INT NOT NULL,
		filename TEXT NOT NULL,
		PRIMARY KEY (tour_id, position));`,
	`CREATE TABLE IF NOT EXISTS registrations (
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		tour_id BIGINT NOT NULL REFERENCES tours(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, tour_id));`,
	"CREATE INDEX IF NOT EXISTS idx_registrations_created_at ON registrations(created_at);",
}

func (d *DB) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	for _, e := range domain.DefaultExperiences {
		if _, err := d.sql.ExecContext(ctx,
			"INSERT INTO experiences(id, name) VALUES($1, $2) ON CONFLICT (id) DO NOTHING;", e.ID, e.Name); err != nil {
			return fmt.Errorf("migrate: seed experiences: %w", err)
		}
	}

	if err := d.migrateLegacyImages(ctx); err != nil {
		return fmt.Errorf("migrate: legacy images: %w", err)
	}
	return nil
}

// migrateLegacyImages moves the ';'-joined tours.images column of older
// databases into tour_images, once per tour.
func (d *DB) migrateLegacyImages(ctx context.Context) error {
	var exists bool
	err := d.sql.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'tours' AND column_name = 'images');",
	).Scan(&exists)
	if err != nil || !exists {
		return err
	}

	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, images FROM tours t WHERE COALESCE(images, '') <> '' AND NOT EXISTS (SELECT 1 FROM tour_images i WHERE i.tour_id = t.id);")
	if err != nil {
		return err
	}
	legacy := map[int64][]string{}
	for rows.Next() {
		var id int64
		var joined string
		if err := rows.Scan(&id, &joined); err != nil {
			_ = rows.Close()
			return err
		}
		legacy[id] = domain.SplitImageNames(joined)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for id, names := range legacy {
		if err := d.withTx(ctx, func(tx *sql.Tx) error { return insertImages(ctx, tx, id, names) }); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
