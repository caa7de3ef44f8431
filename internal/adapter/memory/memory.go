// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"tourbook/internal/domain"
)

type registration struct {
	userID    int64
	tourID    int64
	createdAt time.Time
}

// DB implements an in-memory database storage.
type DB struct {
	mu            sync.Mutex
	users         []*domain.User
	sessions      map[string]*domain.Session
	experiences   []domain.Experience
	tours         []*domain.Tour
	registrations []registration

	userIDCounter int64
	tourIDCounter int64
}

// New creates a new in-memory database seeded with the default experience
// levels.
func New() *DB {
	exps := make([]domain.Experience, len(domain.DefaultExperiences))
	copy(exps, domain.DefaultExperiences)
	return &DB{
		sessions:    make(map[string]*domain.Session),
		experiences: exps,
	}
}

// Ensure interfaces are met.
var _ domain.UserRepository = (*DB)(nil)
var _ domain.ExperienceRepository = (*DB)(nil)
var _ domain.TourRepository = (*DB)(nil)
var _ domain.RegistrationRepository = (*DB)(nil)
var _ domain.StatsRepository = (*DB)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)

// --- UserRepository ---

// GetByUsername retrieves a user by username.
func (db *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

// GetByEmail retrieves a user by e-mail, ignoring case.
func (db *DB) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

// GetByID retrieves a user by ID.
func (db *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if u := db.userByID(id); u != nil {
		c := *u
		return &c, nil
	}
	return nil, nil
}

// Create creates a new user.
func (db *DB) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.taken(u, 0) {
		return nil, domain.ErrDuplicateUser
	}

	db.userIDCounter++
	stored := *u
	stored.ID = db.userIDCounter
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	db.users = append(db.users, &stored)
	c := stored
	return &c, nil
}

// Update overwrites the stored user with the same ID.
func (db *DB) Update(ctx context.Context, u *domain.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored := db.userByID(u.ID)
	if stored == nil {
		return errors.New("user not found")
	}
	if db.taken(u, u.ID) {
		return domain.ErrDuplicateUser
	}
	createdAt := stored.CreatedAt
	*stored = *u
	stored.CreatedAt = createdAt
	return nil
}

// Count returns the total number of users.
func (db *DB) Count(ctx context.Context) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.users), nil
}

func (db *DB) userByID(id int64) *domain.User {
	for _, u := range db.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (db *DB) taken(u *domain.User, self int64) bool {
	for _, o := range db.users {
		if o.ID == self {
			continue
		}
		if o.Username == u.Username || (u.Email != "" && strings.EqualFold(o.Email, u.Email)) {
			return true
		}
	}
	return false
}

// --- ExperienceRepository ---

// ListExperiences returns the experience levels ordered by ID.
func (db *DB) ListExperiences(ctx context.Context) ([]domain.Experience, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make([]domain.Experience, len(db.experiences))
	copy(out, db.experiences)
	return out, nil
}

// --- TourRepository ---

// GetTourPage returns one page of tours in the requested order.
func (db *DB) GetTourPage(ctx context.Context, page, pageSize int, order domain.SortOrder) (domain.TourPage, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	sorted := make([]*domain.Tour, len(db.tours))
	copy(sorted, db.tours)
	sort.SliceStable(sorted, lessTours(sorted, order))

	total := len(sorted)
	start := domain.PageOffset(page, pageSize)
	if start > total {
		start = total
	}
	end := total
	if total-start > pageSize {
		end = start + pageSize
	}

	items := make([]domain.Tour, 0, end-start)
	for _, t := range sorted[start:end] {
		items = append(items, copyTour(t))
	}
	return domain.NewTourPage(items, page, pageSize, total), nil
}

func lessTours(ts []*domain.Tour, order domain.SortOrder) func(i, j int) bool {
	switch order {
	case domain.SortByName:
		return func(i, j int) bool {
			if ts[i].Name != ts[j].Name {
				return ts[i].Name < ts[j].Name
			}
			return ts[i].ID < ts[j].ID
		}
	case domain.SortByNewest:
		return func(i, j int) bool {
			if !ts[i].CreatedAt.Equal(ts[j].CreatedAt) {
				return ts[i].CreatedAt.After(ts[j].CreatedAt)
			}
			return ts[i].ID > ts[j].ID
		}
	default:
		return func(i, j int) bool {
			if !ts[i].StartDate.Equal(ts[j].StartDate) {
				return ts[i].StartDate.Before(ts[j].StartDate)
			}
			return ts[i].ID < ts[j].ID
		}
	}
}

// GetTour retrieves a tour by ID.
func (db *DB) GetTour(ctx context.Context, id int64) (*domain.Tour, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if t := db.tourByID(id); t != nil {
		c := copyTour(t)
		return &c, nil
	}
	return nil, nil
}

// CreateTour stores t and returns its new ID.
func (db *DB) CreateTour(ctx context.Context, t *domain.Tour) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.tourIDCounter++
	stored := copyTour(t)
	stored.ID = db.tourIDCounter
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	db.tours = append(db.tours, &stored)
	return stored.ID, nil
}

// UpdateTour changes name and description of a tour.
func (db *DB) UpdateTour(ctx context.Context, id int64, name, description string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	t := db.tourByID(id)
	if t == nil {
		return errors.New("tour not found")
	}
	t.Name, t.Description = name, description
	return nil
}

func (db *DB) tourByID(id int64) *domain.Tour {
	for _, t := range db.tours {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func copyTour(t *domain.Tour) domain.Tour {
	c := *t
	c.Images = append([]string{}, t.Images...)
	return c
}

// --- RegistrationRepository ---

// RegisterForTour records an application. It returns false when the user
// already applied for the tour.
func (db *DB) RegisterForTour(ctx context.Context, userID, tourID int64, at time.Time) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, r := range db.registrations {
		if r.userID == userID && r.tourID == tourID {
			return false, nil
		}
	}
	db.registrations = append(db.registrations, registration{userID: userID, tourID: tourID, createdAt: at.UTC()})
	return true, nil
}

// --- StatsRepository ---

// RegisteredUsersPerDay counts sign-ups per local day.
func (db *DB) RegisteredUsersPerDay(ctx context.Context, from, to time.Time) ([]domain.StatPoint, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	end := to.AddDate(0, 0, 1)
	counts := map[string]int{}
	for _, u := range db.users {
		if inRange(u.CreatedAt, from, end) {
			counts[u.CreatedAt.In(time.Local).Format("2006-01-02")]++
		}
	}
	points := toPoints(counts)
	sort.Slice(points, func(i, j int) bool { return points[i].Label < points[j].Label })
	return points, nil
}

// ToursPerGuide counts tours starting in the interval per guide.
func (db *DB) ToursPerGuide(ctx context.Context, from, to time.Time) ([]domain.StatPoint, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	end := to.AddDate(0, 0, 1)
	counts := map[string]int{}
	for _, t := range db.tours {
		if inRange(t.StartDate, from, end) {
			counts[db.guideName(t.GuideID)]++
		}
	}
	return byValue(toPoints(counts)), nil
}

// ApplicationsPerGuide counts applications made in the interval per guide
// of the tour applied for.
func (db *DB) ApplicationsPerGuide(ctx context.Context, from, to time.Time) ([]domain.StatPoint, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	end := to.AddDate(0, 0, 1)
	counts := map[string]int{}
	for _, r := range db.registrations {
		if !inRange(r.createdAt, from, end) {
			continue
		}
		if t := db.tourByID(r.tourID); t != nil {
			counts[db.guideName(t.GuideID)]++
		}
	}
	return byValue(toPoints(counts)), nil
}

func (db *DB) guideName(id int64) string {
	if u := db.userByID(id); u != nil {
		return u.Username
	}
	return "unknown"
}

func inRange(t, from, end time.Time) bool {
	return !t.Before(from) && t.Before(end)
}

func toPoints(counts map[string]int) []domain.StatPoint {
	points := make([]domain.StatPoint, 0, len(counts))
	for label, n := range counts {
		points = append(points, domain.StatPoint{Label: label, Value: n})
	}
	return points
}

func byValue(points []domain.StatPoint) []domain.StatPoint {
	sort.Slice(points, func(i, j int) bool {
		if points[i].Value != points[j].Value {
			return points[i].Value > points[j].Value
		}
		return points[i].Label < points[j].Label
	})
	return points
}

// --- SessionRepository ---

// SessionRepo implements session persistence.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.sessions[token] = &domain.Session{
		Token:     token,
		UserID:    userID,
		UserAgent: userAgent,
		IP:        ip,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s, ok := r.db.sessions[token]; ok {
		c := *s
		return &c, nil
	}
	return nil, nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, token)
	return nil
}

// DeleteExpired deletes all expired sessions and returns how many were removed.
func (r *SessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := time.Now()
	var n int64
	for k, v := range r.db.sessions {
		if now.After(v.ExpiresAt) {
			delete(r.db.sessions, k)
			n++
		}
	}
	return n, nil
}
