package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"tourbook/internal/domain"
)

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newAuth(users *mockUserRepo, sessions *mockSessionRepo) *AuthService {
	return NewAuthService(users, sessions, staticExperiences(domain.DefaultExperiences),
		NewUploadService(newMemBlobs(), zap.NewNop()), AuthConfig{AvatarDir: "avatars", SessionTTL: time.Hour}, zap.NewNop())
}

func TestAuthService_Login_Success(t *testing.T) {
	hash := hashPassword(t, "testpass123")
	users := &mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*domain.User, error) {
			return &domain.User{ID: 1, Username: "testuser", PasswordHash: hash}, nil
		},
	}
	var gotUA, gotIP string
	var gotExpiry time.Time
	sessions := &mockSessionRepo{
		createFn: func(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
			assert.Equal(t, int64(1), userID)
			assert.NotEmpty(t, token)
			gotUA, gotIP, gotExpiry = userAgent, ip, expiresAt
			return nil
		},
	}

	token, err := newAuth(users, sessions).Login(context.Background(), " testuser ", "testpass123", false, "curl/8", "10.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "curl/8", gotUA)
	assert.Equal(t, "10.0.0.1", gotIP)
	assert.WithinDuration(t, time.Now().Add(time.Hour), gotExpiry, time.Minute)
}

func TestAuthService_Login_RememberMe(t *testing.T) {
	hash := hashPassword(t, "testpass123")
	users := &mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*domain.User, error) {
			return &domain.User{ID: 1, PasswordHash: hash}, nil
		},
	}
	var gotExpiry time.Time
	sessions := &mockSessionRepo{
		createFn: func(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
			gotExpiry = expiresAt
			return nil
		},
	}

	_, err := newAuth(users, sessions).Login(context.Background(), "testuser", "testpass123", true, "", "")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(rememberMeTTL), gotExpiry, time.Minute)
}

func TestAuthService_Login_Failures(t *testing.T) {
	hash := hashPassword(t, "correctpass")
	users := &mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*domain.User, error) {
			if username == "known" {
				return &domain.User{ID: 1, Username: username, PasswordHash: hash}, nil
			}
			return nil, nil
		},
	}
	svc := newAuth(users, &mockSessionRepo{})

	_, err := svc.Login(context.Background(), "ghost", "whatever", false, "", "")
	assert.ErrorIs(t, err, ErrUnknownUser)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "known", "wrongpass", false, "", "")
	assert.ErrorIs(t, err, ErrWrongPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.NotErrorIs(t, err, ErrUnknownUser)
}

func TestAuthService_ValidateSession(t *testing.T) {
	tests := []struct {
		name      string
		session   *domain.Session
		userAgent string
		wantErr   error
		deleted   bool
	}{
		{
			name:      "valid",
			session:   &domain.Session{Token: "tok", UserID: 1, UserAgent: "ua", ExpiresAt: time.Now().Add(time.Hour)},
			userAgent: "ua",
		},
		{
			name:      "expired",
			session:   &domain.Session{Token: "tok", UserID: 1, UserAgent: "ua", ExpiresAt: time.Now().Add(-time.Hour)},
			userAgent: "ua",
			wantErr:   ErrSessionExpired,
			deleted:   true,
		},
		{
			name:      "user agent mismatch",
			session:   &domain.Session{Token: "tok", UserID: 1, UserAgent: "ua", ExpiresAt: time.Now().Add(time.Hour)},
			userAgent: "other",
			wantErr:   ErrSessionExpired,
			deleted:   true,
		},
		{
			name:      "missing",
			userAgent: "ua",
			wantErr:   ErrSessionNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deleted := false
			sessions := &mockSessionRepo{
				getByTokenFn: func(ctx context.Context, token string) (*domain.Session, error) {
					return tt.session, nil
				},
				deleteFn: func(ctx context.Context, token string) error {
					deleted = true
					return nil
				},
			}
			users := &mockUserRepo{
				getByIDFn: func(ctx context.Context, id int64) (*domain.User, error) {
					return &domain.User{ID: id, Username: "testuser"}, nil
				},
			}

			user, err := newAuth(users, sessions).ValidateSession(context.Background(), "tok", tt.userAgent)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "testuser", user.Username)
			}
			assert.Equal(t, tt.deleted, deleted)
		})
	}
}

func TestAuthService_ValidateSession_UserGone(t *testing.T) {
	sessions := &mockSessionRepo{
		getByTokenFn: func(ctx context.Context, token string) (*domain.Session, error) {
			return &domain.Session{UserID: 9, ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	_, err := newAuth(&mockUserRepo{}, sessions).ValidateSession(context.Background(), "tok", "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthService_Register(t *testing.T) {
	var created *domain.User
	users := &mockUserRepo{
		createFn: func(ctx context.Context, u *domain.User) (*domain.User, error) {
			created = u
			c := *u
			c.ID = 7
			return &c, nil
		},
	}

	u, err := newAuth(users, &mockSessionRepo{}).Register(context.Background(), RegisterInput{
		Username:     " hiker ",
		Email:        "hiker@example.com",
		Password:     "secret1",
		Phone:        "555-0100",
		ExperienceID: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, "hiker", created.Username)
	assert.False(t, created.IsAdmin)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("secret1")))
}

func TestAuthService_Register_Invalid(t *testing.T) {
	valid := RegisterInput{Username: "hiker", Email: "hiker@example.com", Password: "secret1", ExperienceID: 1}

	tests := []struct {
		name  string
		edit  func(*RegisterInput)
		field string
	}{
		{"no username", func(in *RegisterInput) { in.Username = "  " }, "username"},
		{"long username", func(in *RegisterInput) { in.Username = strings.Repeat("a", 65) }, "username"},
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-address" }, "email"},
		{"short password", func(in *RegisterInput) { in.Password = "12345" }, "password"},
		{"unknown experience", func(in *RegisterInput) { in.ExperienceID = 99 }, "experience"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.edit(&in)
			_, err := newAuth(&mockUserRepo{}, &mockSessionRepo{}).Register(context.Background(), in)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestAuthService_Register_Taken(t *testing.T) {
	users := &mockUserRepo{
		getByEmailFn: func(ctx context.Context, email string) (*domain.User, error) {
			return &domain.User{ID: 3, Email: email}, nil
		},
		createFn: func(ctx context.Context, u *domain.User) (*domain.User, error) {
			t.Fatal("create must not be called")
			return nil, nil
		},
	}
	_, err := newAuth(users, &mockSessionRepo{}).Register(context.Background(),
		RegisterInput{Username: "hiker", Email: "hiker@example.com", Password: "secret1", ExperienceID: 1})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestAuthService_UsernameAvailable(t *testing.T) {
	users := &mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*domain.User, error) {
			if username == "taken" {
				return &domain.User{ID: 1}, nil
			}
			return nil, nil
		},
	}
	svc := newAuth(users, &mockSessionRepo{})

	ok, err := svc.UsernameAvailable(context.Background(), "taken")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.UsernameAvailable(context.Background(), "free")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuthService_UpdateSettings(t *testing.T) {
	stored := &domain.User{ID: 4, Username: "old", Email: "old@example.com", Phone: "555-0100", PasswordHash: hashPassword(t, "oldpass"), ExperienceID: 1}
	var saved *domain.User
	users := &mockUserRepo{
		getByIDFn: func(ctx context.Context, id int64) (*domain.User, error) {
			c := *stored
			return &c, nil
		},
		updateFn: func(ctx context.Context, u *domain.User) error {
			saved = u
			return nil
		},
	}
	svc := newAuth(users, &mockSessionRepo{})

	avatar := file("me.png", "image/png", "png")
	u, err := svc.UpdateSettings(context.Background(), 4, SettingsInput{
		OldPassword:  "oldpass",
		Username:     "new",
		NewPassword:  "newpass",
		ExperienceID: 3,
		Avatar:       &avatar,
	})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "new", u.Username)
	assert.Equal(t, "old@example.com", u.Email)
	assert.Equal(t, "555-0100", u.Phone)
	assert.Equal(t, int64(3), u.ExperienceID)
	assert.Regexp(t, `^[A-Za-z0-9]{20}\.png$`, u.Avatar)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(saved.PasswordHash), []byte("newpass")))
}

func TestAuthService_UpdateSettings_WrongPassword(t *testing.T) {
	users := &mockUserRepo{
		getByIDFn: func(ctx context.Context, id int64) (*domain.User, error) {
			return &domain.User{ID: id, Username: "u", Email: "u@example.com", PasswordHash: hashPassword(t, "oldpass")}, nil
		},
		updateFn: func(ctx context.Context, u *domain.User) error {
			t.Fatal("update must not be called")
			return nil
		},
	}
	_, err := newAuth(users, &mockSessionRepo{}).UpdateSettings(context.Background(), 1, SettingsInput{OldPassword: "nope", Username: "x"})
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestAuthService_UpdateSettings_NoChanges(t *testing.T) {
	stored := domain.User{ID: 4, Username: "same", Email: "same@example.com", Phone: "555-0100", PasswordHash: hashPassword(t, "oldpass")}
	users := &mockUserRepo{
		getByIDFn: func(ctx context.Context, id int64) (*domain.User, error) {
			c := stored
			return &c, nil
		},
		updateFn: func(ctx context.Context, u *domain.User) error {
			t.Fatal("update must not be called")
			return nil
		},
	}
	u, err := newAuth(users, &mockSessionRepo{}).UpdateSettings(context.Background(), 4, SettingsInput{OldPassword: "oldpass"})
	require.NoError(t, err)
	assert.Equal(t, "same", u.Username)
	assert.Equal(t, "555-0100", u.Phone)
}

func TestAuthService_CreateAdmin(t *testing.T) {
	var created *domain.User
	users := &mockUserRepo{
		createFn: func(ctx context.Context, u *domain.User) (*domain.User, error) {
			created = u
			return u, nil
		},
	}
	_, err := newAuth(users, &mockSessionRepo{}).CreateAdmin(context.Background(), "admin", "admin@example.com", "password123")
	require.NoError(t, err)
	assert.True(t, created.IsAdmin)
	assert.True(t, created.IsGuide)
	assert.Equal(t, "admin", created.Username)
}

func TestAuthService_LoginWithUser_Provisions(t *testing.T) {
	var created *domain.User
	users := &mockUserRepo{
		createFn: func(ctx context.Context, u *domain.User) (*domain.User, error) {
			created = u
			c := *u
			c.ID = 12
			return &c, nil
		},
	}
	var sessionUser int64
	sessions := &mockSessionRepo{
		createFn: func(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
			sessionUser = userID
			return nil
		},
	}

	token, err := newAuth(users, sessions).LoginWithUser(context.Background(), "sso@example.com", "ua", "")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	require.NotNil(t, created)
	assert.Equal(t, "sso@example.com", created.Email)
	assert.Empty(t, created.PasswordHash)
	assert.Equal(t, int64(12), sessionUser)
}

func TestAuthService_LoginWithUser_Existing(t *testing.T) {
	users := &mockUserRepo{
		getByEmailFn: func(ctx context.Context, email string) (*domain.User, error) {
			return &domain.User{ID: 5, Email: email}, nil
		},
		createFn: func(ctx context.Context, u *domain.User) (*domain.User, error) {
			return nil, errors.New("unexpected create")
		},
	}
	_, err := newAuth(users, &mockSessionRepo{}).LoginWithUser(context.Background(), "sso@example.com", "ua", "")
	require.NoError(t, err)
}

func TestAuthService_CleanupSessions(t *testing.T) {
	sessions := &mockSessionRepo{
		deleteExpiredFn: func(ctx context.Context) (int64, error) { return 3, nil },
	}
	n, err := newAuth(&mockUserRepo{}, sessions).CleanupSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestConstantTimeCompare(t *testing.T) {
	assert.True(t, ConstantTimeCompare("state", "state"))
	assert.False(t, ConstantTimeCompare("state", "other"))
	assert.False(t, ConstantTimeCompare("state", ""))
}
