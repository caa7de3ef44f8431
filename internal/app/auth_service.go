// Package app holds the application services and business logic.
package app

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"tourbook/internal/domain"
)

var (
	// ErrInvalidCredentials indicates that the provided username or password was incorrect.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUnknownUser indicates a login attempt for a username that does not exist.
	ErrUnknownUser = fmt.Errorf("%w: no such user", ErrInvalidCredentials)
	// ErrWrongPassword indicates a login attempt with a wrong password.
	ErrWrongPassword = fmt.Errorf("%w: wrong password", ErrInvalidCredentials)
	// ErrSessionNotFound indicates that the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates that the session has expired.
	ErrSessionExpired = errors.New("session expired")
	// ErrUserNotFound indicates that the user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists indicates that the username or e-mail is already taken.
	ErrUserExists = domain.ErrDuplicateUser
)

const (
	minPasswordLength = 6
	rememberMeTTL     = 30 * 24 * time.Hour
)

// RegisterInput is the data submitted on the registration form.
type RegisterInput struct {
	Username     string
	Email        string
	Password     string
	Phone        string
	ExperienceID int64
}

// SettingsInput is the data submitted on the settings form. OldPassword is
// always required; empty fields keep their stored values.
type SettingsInput struct {
	OldPassword  string
	Username     string
	NewPassword  string
	Email        string
	Phone        string
	ExperienceID int64
	Avatar       *domain.UploadedFile
}

// AuthConfig tunes the AuthService.
type AuthConfig struct {
	AvatarDir  string
	SessionTTL time.Duration
}

// AuthService handles accounts, authentication and session management.
type AuthService struct {
	users       domain.UserRepository
	sessions    domain.SessionRepository
	experiences domain.ExperienceRepository
	uploads     *UploadService
	cfg         AuthConfig
	log         *zap.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(users domain.UserRepository, sessions domain.SessionRepository, experiences domain.ExperienceRepository,
	uploads *UploadService, cfg AuthConfig, log *zap.Logger) *AuthService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	return &AuthService{
		users:       users,
		sessions:    sessions,
		experiences: experiences,
		uploads:     uploads,
		cfg:         cfg,
		log:         log,
	}
}

// Register validates in and creates a regular user account.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateAccount(in.Username, in.Email); err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLength {
		return nil, domain.Invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if err := s.checkExperience(ctx, in.ExperienceID); err != nil {
		return nil, err
	}
	if err := s.checkFree(ctx, in.Username, in.Email, 0); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Create(ctx, &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Phone:        strings.TrimSpace(in.Phone),
		ExperienceID: in.ExperienceID,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

// Login authenticates a user and creates a session. remember extends the
// session lifetime.
func (s *AuthService) Login(ctx context.Context, username, password string, remember bool, userAgent, ip string) (string, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrUnknownUser
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrWrongPassword
	}

	ttl := s.cfg.SessionTTL
	if remember {
		ttl = rememberMeTTL
	}
	return s.startSession(ctx, user.ID, userAgent, ip, ttl)
}

// Logout invalidates a session.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// ValidateSession checks if a session token is valid and matches the user agent.
func (s *AuthService) ValidateSession(ctx context.Context, token, userAgent string) (*domain.User, error) {
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil || session == nil {
		return nil, ErrSessionNotFound
	}

	if time.Now().After(session.ExpiresAt) {
		_ = s.sessions.Delete(ctx, token)
		return nil, ErrSessionExpired
	}

	if session.UserAgent != userAgent {
		_ = s.sessions.Delete(ctx, token)
		return nil, ErrSessionExpired
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil || user == nil {
		return nil, ErrUserNotFound
	}

	return user, nil
}

// LoginWithUser creates a session for an already authenticated identity
// (e.g. via SSO), provisioning an account keyed by e-mail when missing.
func (s *AuthService) LoginWithUser(ctx context.Context, email, userAgent, ip string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user == nil {
		// SSO accounts have no password; bcrypt never matches an empty hash.
		user, err = s.users.Create(ctx, &domain.User{Username: email, Email: email})
		if err != nil {
			// Lost a race with a concurrent first login.
			user, err = s.users.GetByEmail(ctx, email)
			if err != nil || user == nil {
				return "", fmt.Errorf("provision sso user: %w", errors.Join(err, ErrUserNotFound))
			}
		}
		s.log.Info("provisioned sso user", zap.Int64("user_id", user.ID))
	}
	return s.startSession(ctx, user.ID, userAgent, ip, s.cfg.SessionTTL)
}

// UsernameAvailable reports whether nobody uses name yet.
func (s *AuthService) UsernameAvailable(ctx context.Context, name string) (bool, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(name))
	if err != nil {
		return false, err
	}
	return u == nil, nil
}

// UpdateSettings changes the account of userID after checking the old
// password. Only fields that differ from the stored values are written.
func (s *AuthService) UpdateSettings(ctx context.Context, userID int64, in SettingsInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.OldPassword)); err != nil {
		return nil, ErrWrongPassword
	}

	updated := *user
	if name := strings.TrimSpace(in.Username); name != "" {
		updated.Username = name
	}
	if email := strings.TrimSpace(in.Email); email != "" {
		updated.Email = email
	}
	if err := validateAccount(updated.Username, updated.Email); err != nil {
		return nil, err
	}
	if updated.Username != user.Username || !strings.EqualFold(updated.Email, user.Email) {
		if err := s.checkFree(ctx, updated.Username, updated.Email, user.ID); err != nil {
			return nil, err
		}
	}
	if in.NewPassword != "" {
		if len(in.NewPassword) < minPasswordLength {
			return nil, domain.Invalid("newPassword", fmt.Sprintf("must be at least %d characters", minPasswordLength))
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		updated.PasswordHash = string(hash)
	}
	if in.ExperienceID != 0 && in.ExperienceID != user.ExperienceID {
		if err := s.checkExperience(ctx, in.ExperienceID); err != nil {
			return nil, err
		}
		updated.ExperienceID = in.ExperienceID
	}
	if phone := strings.TrimSpace(in.Phone); phone != "" {
		updated.Phone = phone
	}

	if in.Avatar != nil {
		name, ok, err := s.uploads.StoreSingle(ctx, *in.Avatar, s.cfg.AvatarDir)
		if err != nil {
			return nil, err
		}
		if ok {
			updated.Avatar = name
		}
	}

	if updated == *user {
		return user, nil
	}
	if err := s.users.Update(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// CreateAdmin creates an administrator account that can also lead tours.
func (s *AuthService) CreateAdmin(ctx context.Context, username, email, password string) (*domain.User, error) {
	username, email = strings.TrimSpace(username), strings.TrimSpace(email)
	if err := validateAccount(username, email); err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, domain.Invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if err := s.checkFree(ctx, username, email, 0); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.users.Create(ctx, &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		IsAdmin:      true,
		IsGuide:      true,
	})
}

// ListExperiences returns the selectable experience levels.
func (s *AuthService) ListExperiences(ctx context.Context) ([]domain.Experience, error) {
	return s.experiences.ListExperiences(ctx)
}

// CleanupSessions deletes expired sessions.
func (s *AuthService) CleanupSessions(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx)
}

func (s *AuthService) startSession(ctx context.Context, userID int64, userAgent, ip string, ttl time.Duration) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	if err := s.sessions.Create(ctx, userID, token, userAgent, ip, time.Now().Add(ttl)); err != nil {
		return "", err
	}
	return token, nil
}

// checkFree returns ErrUserExists when username or email belongs to a user
// other than self.
func (s *AuthService) checkFree(ctx context.Context, username, email string, self int64) error {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if u != nil && u.ID != self {
		return ErrUserExists
	}
	u, err = s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u != nil && u.ID != self {
		return ErrUserExists
	}
	return nil
}

func (s *AuthService) checkExperience(ctx context.Context, id int64) error {
	exps, err := s.experiences.ListExperiences(ctx)
	if err != nil {
		return err
	}
	for _, e := range exps {
		if e.ID == id {
			return nil
		}
	}
	return domain.Invalid("experience", "unknown experience level")
}

func validateAccount(username, email string) error {
	if username == "" {
		return domain.Invalid("username", "required")
	}
	if len(username) > 64 {
		return domain.Invalid("username", "too long")
	}
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return domain.Invalid("email", "invalid address")
	}
	return nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// ConstantTimeCompare performs a constant-time comparison of two strings.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
