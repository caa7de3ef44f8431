package app

import (
	"context"
	"io"
	"sync"
	"time"

	"tourbook/internal/domain"
)

type mockUserRepo struct {
	getByUsernameFn func(ctx context.Context, username string) (*domain.User, error)
	getByEmailFn    func(ctx context.Context, email string) (*domain.User, error)
	getByIDFn       func(ctx context.Context, id int64) (*domain.User, error)
	createFn        func(ctx context.Context, u *domain.User) (*domain.User, error)
	updateFn        func(ctx context.Context, u *domain.User) error
	countFn         func(ctx context.Context) (int, error)
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, u)
	}
	c := *u
	c.ID = 1
	return &c, nil
}

func (m *mockUserRepo) Update(ctx context.Context, u *domain.User) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, u)
	}
	return nil
}

func (m *mockUserRepo) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

type mockSessionRepo struct {
	createFn        func(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error
	getByTokenFn    func(ctx context.Context, token string) (*domain.Session, error)
	deleteFn        func(ctx context.Context, token string) error
	deleteExpiredFn func(ctx context.Context) (int64, error)
}

func (m *mockSessionRepo) Create(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
	if m.createFn != nil {
		return m.createFn(ctx, userID, token, userAgent, ip, expiresAt)
	}
	return nil
}

func (m *mockSessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	if m.getByTokenFn != nil {
		return m.getByTokenFn(ctx, token)
	}
	return nil, nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, token string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, token)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx)
	}
	return 0, nil
}

type staticExperiences []domain.Experience

func (s staticExperiences) ListExperiences(ctx context.Context) ([]domain.Experience, error) {
	return s, nil
}

type mockTourRepo struct {
	getPageFn func(ctx context.Context, page, pageSize int, order domain.SortOrder) (domain.TourPage, error)
	getFn     func(ctx context.Context, id int64) (*domain.Tour, error)
	createFn  func(ctx context.Context, t *domain.Tour) (int64, error)
	updateFn  func(ctx context.Context, id int64, name, description string) error
}

func (m *mockTourRepo) GetTourPage(ctx context.Context, page, pageSize int, order domain.SortOrder) (domain.TourPage, error) {
	if m.getPageFn != nil {
		return m.getPageFn(ctx, page, pageSize, order)
	}
	return domain.NewTourPage(nil, page, pageSize, 0), nil
}

func (m *mockTourRepo) GetTour(ctx context.Context, id int64) (*domain.Tour, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, nil
}

func (m *mockTourRepo) CreateTour(ctx context.Context, t *domain.Tour) (int64, error) {
	if m.createFn != nil {
		return m.createFn(ctx, t)
	}
	return 1, nil
}

func (m *mockTourRepo) UpdateTour(ctx context.Context, id int64, name, description string) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, name, description)
	}
	return nil
}

type mockRegistrationRepo struct {
	registerFn func(ctx context.Context, userID, tourID int64, at time.Time) (bool, error)
}

func (m *mockRegistrationRepo) RegisterForTour(ctx context.Context, userID, tourID int64, at time.Time) (bool, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, userID, tourID, at)
	}
	return true, nil
}

type mockStatsRepo struct {
	usersFn      func(ctx context.Context, from, to time.Time) ([]domain.StatPoint, error)
	toursFn      func(ctx context.Context, from, to time.Time) ([]domain.StatPoint, error)
	popularityFn func(ctx context.Context, from, to time.Time) ([]domain.StatPoint, error)
}

func (m *mockStatsRepo) RegisteredUsersPerDay(ctx context.Context, from, to time.Time) ([]domain.StatPoint, error) {
	if m.usersFn != nil {
		return m.usersFn(ctx, from, to)
	}
	return nil, nil
}

func (m *mockStatsRepo) ToursPerGuide(ctx context.Context, from, to time.Time) ([]domain.StatPoint, error) {
	if m.toursFn != nil {
		return m.toursFn(ctx, from, to)
	}
	return nil, nil
}

func (m *mockStatsRepo) ApplicationsPerGuide(ctx context.Context, from, to time.Time) ([]domain.StatPoint, error) {
	if m.popularityFn != nil {
		return m.popularityFn(ctx, from, to)
	}
	return nil, nil
}

// memBlobs is an in-memory domain.BlobStore recording every write.
type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	calls   int
	failOn  int
	err     error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: make(map[string][]byte)}
}

func (b *memBlobs) Create(ctx context.Context, dir, name, contentType string, r io.Reader) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.failOn != 0 && b.calls == b.failOn {
		return b.err
	}
	key := dir + "/" + name
	if _, ok := b.objects[key]; ok {
		return domain.ErrBlobExists
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.objects[key] = data
	return nil
}

func (b *memBlobs) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}
