package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"tourbook/internal/domain"
)

// GCSStore writes blobs as objects in a Cloud Storage bucket. The dir
// argument of Create is used as an object prefix.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore returns a GCSStore writing into bucket.
func NewGCSStore(client *storage.Client, bucket string) *GCSStore {
	return &GCSStore{client: client, bucket: strings.TrimSpace(bucket)}
}

var _ domain.BlobStore = (*GCSStore)(nil)

// Create uploads r as prefix/name. The write is conditioned on the object
// not existing yet; a lost race surfaces as domain.ErrBlobExists.
func (s *GCSStore) Create(ctx context.Context, dir, name, contentType string, r io.Reader) error {
	if s == nil || s.client == nil {
		return errors.New("gcs store: storage client is nil")
	}
	if err := checkName(name); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	key := objectKey(dir, name)
	w := s.client.Bucket(s.bucket).Object(key).
		If(storage.Conditions{DoesNotExist: true}).
		NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		// Cancelling before Close aborts the upload.
		cancel()
		_ = w.Close()
		return fmt.Errorf("gcs upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			return domain.ErrBlobExists
		}
		return fmt.Errorf("gcs upload %s: %w", key, err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// objectKey turns a directory-style prefix such as "./uploads/tours" into
// "uploads/tours/<name>".
func objectKey(dir, name string) string {
	prefix := strings.Trim(path.Clean(strings.ReplaceAll(dir, "\\", "/")), "/")
	if prefix == "." || prefix == "" {
		return name
	}
	return prefix + "/" + name
}
