package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"tourbook/internal/domain"
)

var (
	// ErrTourNotFound indicates that the requested tour does not exist.
	ErrTourNotFound = errors.New("tour not found")
	// ErrGuideNotFound indicates that the guide of a new tour does not exist.
	ErrGuideNotFound = errors.New("guide not found")
)

// CreateTourInput is the data an administrator submits for a new tour.
type CreateTourInput struct {
	Name        string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	GuideID     int64
}

// TourService encapsulates tour use cases other than the listing.
type TourService struct {
	tours    domain.TourRepository
	regs     domain.RegistrationRepository
	users    domain.UserRepository
	uploads  *UploadService
	imageDir string
	log      *zap.Logger
}

// NewTourService creates a TourService storing tour images in imageDir.
func NewTourService(tours domain.TourRepository, regs domain.RegistrationRepository, users domain.UserRepository,
	uploads *UploadService, imageDir string, log *zap.Logger) *TourService {
	return &TourService{tours: tours, regs: regs, users: users, uploads: uploads, imageDir: imageDir, log: log}
}

// Get returns the tour with the given id.
func (s *TourService) Get(ctx context.Context, id int64) (*domain.Tour, error) {
	t, err := s.tours.GetTour(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTourNotFound
	}
	return t, nil
}

// Create validates in, stores the provided images and saves the tour.
// Images without a content type are ignored; at least one must remain.
func (s *TourService) Create(ctx context.Context, in CreateTourInput, images []domain.UploadedFile) (*domain.Tour, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	switch {
	case in.Name == "":
		return nil, domain.Invalid("name", "required")
	case in.Description == "":
		return nil, domain.Invalid("description", "required")
	case in.StartDate.IsZero():
		return nil, domain.Invalid("startDate", "required")
	case in.EndDate.IsZero():
		return nil, domain.Invalid("endDate", "required")
	case in.EndDate.Before(in.StartDate):
		return nil, domain.Invalid("endDate", "must not be before the start date")
	case countProvided(images) == 0:
		return nil, domain.Invalid("images", "at least one image is required")
	}

	guide, err := s.users.GetByID(ctx, in.GuideID)
	if err != nil {
		return nil, err
	}
	if guide == nil {
		return nil, ErrGuideNotFound
	}

	names, err := s.uploads.StoreMultiple(ctx, images, s.imageDir)
	if err != nil {
		return nil, err
	}

	t := &domain.Tour{
		Name:        in.Name,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Images:      names,
		GuideID:     guide.ID,
		CreatedAt:   time.Now().UTC(),
	}
	id, err := s.tours.CreateTour(ctx, t)
	if err != nil {
		return nil, err
	}
	t.ID = id
	s.log.Info("tour created", zap.Int64("tour_id", id), zap.Int("images", len(names)))
	return t, nil
}

// Edit changes the name and/or description of a tour. Empty values leave
// the field untouched.
func (s *TourService) Edit(ctx context.Context, id int64, name, description string) (*domain.Tour, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n := strings.TrimSpace(name); n != "" {
		t.Name = n
	}
	if d := strings.TrimSpace(description); d != "" {
		t.Description = d
	}
	if err := s.tours.UpdateTour(ctx, id, t.Name, t.Description); err != nil {
		return nil, err
	}
	return t, nil
}

// Apply registers userID for the tour. It returns false if the user had
// already applied.
func (s *TourService) Apply(ctx context.Context, userID, tourID int64) (bool, error) {
	if _, err := s.Get(ctx, tourID); err != nil {
		return false, err
	}
	ok, err := s.regs.RegisterForTour(ctx, userID, tourID, time.Now().UTC())
	if err != nil {
		return false, err
	}
	if ok {
		s.log.Info("user applied for tour", zap.Int64("user_id", userID), zap.Int64("tour_id", tourID))
	}
	return ok, nil
}

func countProvided(files []domain.UploadedFile) int {
	n := 0
	for _, f := range files {
		if f.ContentType != "" {
			n++
		}
	}
	return n
}
