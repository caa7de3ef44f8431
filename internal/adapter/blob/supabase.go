package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	storage_go "github.com/supabase-community/storage-go"
	"github.com/supabase-community/supabase-go"

	"tourbook/internal/domain"
)

type objectUploader interface {
	UploadFile(bucketID, relativePath string, data io.Reader, fileOptions ...storage_go.FileOptions) (storage_go.FileUploadResponse, error)
}

// SupabaseStore writes blobs into a Supabase Storage bucket. The dir
// argument of Create is used as an object prefix.
type SupabaseStore struct {
	storage objectUploader
	bucket  string
}

// NewSupabaseStore connects to the Supabase project at url.
func NewSupabaseStore(url, key, bucket string) (*SupabaseStore, error) {
	if url == "" || key == "" {
		return nil, fmt.Errorf("supabase URL and key must be provided")
	}
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}
	return &SupabaseStore{storage: client.Storage, bucket: bucket}, nil
}

var _ domain.BlobStore = (*SupabaseStore)(nil)

// Create uploads r with upsert disabled, so an existing object is reported
// as domain.ErrBlobExists instead of being replaced.
func (s *SupabaseStore) Create(ctx context.Context, dir, name, contentType string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkName(name); err != nil {
		return err
	}

	key := objectKey(dir, name)
	upsert := false
	opts := storage_go.FileOptions{Upsert: &upsert}
	if contentType != "" {
		opts.ContentType = &contentType
	}
	if _, err := s.storage.UploadFile(s.bucket, key, r, opts); err != nil {
		if isConflict(err) {
			return domain.ErrBlobExists
		}
		return fmt.Errorf("supabase upload %s: %w", key, err)
	}
	return nil
}

func isConflict(err error) bool {
	var serr *storage_go.StorageError
	if !errors.As(err, &serr) {
		return false
	}
	if serr.Status == http.StatusConflict {
		return true
	}
	msg := strings.ToLower(serr.Message)
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate")
}
