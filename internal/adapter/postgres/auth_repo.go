package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tourbook/internal/domain"
)

const userColumns = "id, username, email, password_hash, phone, COALESCE(experience_id, 0), avatar, is_admin, is_guide, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Phone, &u.ExperienceID,
		&u.Avatar, &u.IsAdmin, &u.IsGuide, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByUsername retrieves a user by username.
func (d *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return scanUser(d.sql.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1", username))
}

// GetByEmail retrieves a user by e-mail, ignoring case.
func (d *DB) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(d.sql.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email <> '' AND lower(email) = lower($1)", email))
}

// GetByID retrieves a user by ID.
func (d *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return scanUser(d.sql.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id))
}

// Create creates a new user.
func (d *DB) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	created, err := scanUser(d.sql.QueryRowContext(ctx,
		`INSERT INTO users (username, email, password_hash, phone, experience_id, avatar, is_admin, is_guide, created_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, 0), $6, $7, $8, $9) RETURNING `+userColumns,
		u.Username, u.Email, u.PasswordHash, u.Phone, u.ExperienceID, u.Avatar, u.IsAdmin, u.IsGuide, createdAt,
	))
	if isUniqueViolation(err) {
		return nil, domain.ErrDuplicateUser
	}
	return created, err
}

// Update overwrites the mutable columns of the user with u.ID.
func (d *DB) Update(ctx context.Context, u *domain.User) error {
	_, err := d.sql.ExecContext(ctx,
		`UPDATE users SET username = $2, email = $3, password_hash = $4, phone = $5,
		 experience_id = NULLIF($6, 0), avatar = $7, is_admin = $8, is_guide = $9 WHERE id = $1`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Phone, u.ExperienceID, u.Avatar, u.IsAdmin, u.IsGuide,
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateUser
	}
	return err
}

// Count returns the total number of users.
func (d *DB) Count(ctx context.Context) (int, error) {
	var count int
	err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// ListExperiences returns the experience levels ordered by ID.
func (d *DB) ListExperiences(ctx context.Context) ([]domain.Experience, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT id, name FROM experiences ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.Experience
	for rows.Next() {
		var e domain.Experience
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SessionRepo implements session repository operations on DB.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo wraps a DB as a SessionRepository.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
	_, err := r.db.sql.ExecContext(ctx,
		"INSERT INTO sessions (user_id, token, user_agent, ip, expires_at, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		userID, token, userAgent, ip, expiresAt, time.Now(),
	)
	return err
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.sql.QueryRowContext(ctx,
		"SELECT token, user_id, user_agent, ip, expires_at, created_at FROM sessions WHERE token = $1",
		token,
	).Scan(&s.Token, &s.UserID, &s.UserAgent, &s.IP, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Delete deletes a session by token.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE token = $1", token)
	return err
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < $1", time.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
