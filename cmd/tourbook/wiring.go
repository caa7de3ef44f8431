package main

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"tourbook/internal/adapter/blob"
	"tourbook/internal/adapter/memory"
	"tourbook/internal/adapter/postgres"
	"tourbook/internal/config"
	"tourbook/internal/domain"
)

// repositories groups the persistence ports of one storage backend.
type repositories struct {
	users         domain.UserRepository
	sessions      domain.SessionRepository
	experiences   domain.ExperienceRepository
	tours         domain.TourRepository
	registrations domain.RegistrationRepository
	stats         domain.StatsRepository
	close         func() error
}

// openRepositories connects to PostgreSQL, or falls back to the in-memory
// store when no DATABASE_URL is set.
func openRepositories(cfg config.Config, log *zap.Logger) (*repositories, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory storage")
		db := memory.New()
		return &repositories{
			users:         db,
			sessions:      db.NewSessionRepo(),
			experiences:   db,
			tours:         db,
			registrations: db,
			stats:         db,
			close:         func() error { return nil },
		}, nil
	}

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	return &repositories{
		users:         db,
		sessions:      postgres.NewSessionRepo(db),
		experiences:   db,
		tours:         db,
		registrations: db,
		stats:         db,
		close:         db.Close,
	}, nil
}

// openBlobStore returns the configured upload backend.
func openBlobStore(ctx context.Context, cfg config.Config) (domain.BlobStore, func() error, error) {
	switch cfg.BlobBackend {
	case config.BackendGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("gcs client: %w", err)
		}
		return blob.NewGCSStore(client, cfg.GCSBucket), client.Close, nil
	case config.BackendSupabase:
		store, err := blob.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseBucket)
		if err != nil {
			return nil, nil, err
		}
		return store, func() error { return nil }, nil
	default:
		return blob.NewDiskStore(), func() error { return nil }, nil
	}
}
