// Package config reads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Blob storage backends.
const (
	BackendDisk     = "disk"
	BackendGCS      = "gcs"
	BackendSupabase = "supabase"
)

// Config holds all runtime settings.
type Config struct {
	Addr        string
	DatabaseURL string
	LogLevel    string
	LogFormat   string

	// With the gcs and supabase backends these are object prefixes.
	AvatarUploadDir     string
	TourImagesUploadDir string
	MaxUploadSize       int64

	BlobBackend    string
	GCSBucket      string
	SupabaseURL    string
	SupabaseKey    string
	SupabaseBucket string

	CORSOrigins       []string
	SessionTTL        time.Duration
	PreferenceIdleTTL time.Duration
	JanitorInterval   time.Duration

	OIDC OIDCConfig
}

// OIDCConfig configures optional single sign-on.
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether SSO is configured.
func (o OIDCConfig) Enabled() bool {
	return o.Issuer != "" && o.ClientID != ""
}

// Load builds a Config from environment variables, applying defaults.
func Load() Config {
	return Config{
		Addr:                getEnvOrDefault("ADDR", ":8080"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		AvatarUploadDir:     getEnvOrDefault("AVATAR_UPLOAD_DIR", "./uploads/avatars"),
		TourImagesUploadDir: getEnvOrDefault("TOUR_IMAGES_UPLOAD_DIR", "./uploads/tours"),
		MaxUploadSize:       getEnvInt64OrDefault("MAX_UPLOAD_SIZE", 10<<20),
		BlobBackend:         strings.ToLower(getEnvOrDefault("BLOB_BACKEND", BackendDisk)),
		GCSBucket:           os.Getenv("GCS_BUCKET"),
		SupabaseURL:         os.Getenv("SUPABASE_URL"),
		SupabaseKey:         os.Getenv("SUPABASE_KEY"),
		SupabaseBucket:      os.Getenv("SUPABASE_BUCKET"),
		CORSOrigins:         splitList(getEnvOrDefault("CORS_ORIGINS", "http://localhost:5173")),
		SessionTTL:          getEnvDurationOrDefault("SESSION_TTL", 24*time.Hour),
		PreferenceIdleTTL:   getEnvDurationOrDefault("PREFERENCE_IDLE_TTL", 12*time.Hour),
		JanitorInterval:     getEnvDurationOrDefault("JANITOR_INTERVAL", 10*time.Minute),
		OIDC: OIDCConfig{
			Issuer:       os.Getenv("OIDC_ISSUER"),
			ClientID:     os.Getenv("OIDC_CLIENT_ID"),
			ClientSecret: os.Getenv("OIDC_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("OIDC_REDIRECT_URL"),
		},
	}
}

// Validate reports settings that would keep the server from working.
func (c Config) Validate() error {
	var errs []error
	switch c.BlobBackend {
	case BackendDisk:
	case BackendGCS:
		if c.GCSBucket == "" {
			errs = append(errs, errors.New("GCS_BUCKET is required for the gcs backend"))
		}
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" || c.SupabaseBucket == "" {
			errs = append(errs, errors.New("SUPABASE_URL, SUPABASE_KEY and SUPABASE_BUCKET are required for the supabase backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown BLOB_BACKEND %q", c.BlobBackend))
	}
	if c.AvatarUploadDir == "" || c.TourImagesUploadDir == "" {
		errs = append(errs, errors.New("upload directories must not be empty"))
	}
	if c.MaxUploadSize <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_SIZE must be > 0"))
	}
	if c.OIDC.Enabled() && c.OIDC.RedirectURL == "" {
		errs = append(errs, errors.New("OIDC_REDIRECT_URL is required when SSO is enabled"))
	}
	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
