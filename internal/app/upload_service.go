package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"go.uber.org/zap"

	"tourbook/internal/domain"
	"tourbook/internal/randtoken"
)

// StoredNameLength is the length of the random part of a stored file name.
const StoredNameLength = 20

const maxNameAttempts = 5

// ErrNameCollision is returned when every generated name was already taken.
var ErrNameCollision = errors.New("no free file name found")

// UploadService stores uploaded files under fresh random names.
type UploadService struct {
	blobs    domain.BlobStore
	log      *zap.Logger
	newToken func(int) string
}

// NewUploadService creates an UploadService writing to blobs.
func NewUploadService(blobs domain.BlobStore, log *zap.Logger) *UploadService {
	return &UploadService{blobs: blobs, log: log, newToken: randtoken.Generate}
}

// StoreSingle stores f in dir and returns the generated name. A file with
// no content type counts as not provided: nothing is written and ok is
// false. Storage failures are returned as is; missing directories are not
// created.
func (s *UploadService) StoreSingle(ctx context.Context, f domain.UploadedFile, dir string) (name string, ok bool, err error) {
	if f.ContentType == "" {
		return "", false, nil
	}
	name, err = s.store(ctx, f, dir)
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}

// StoreMultiple stores every provided file in dir and returns the generated
// names in input order. Files without a content type are skipped. On
// failure the files stored so far are left in place.
func (s *UploadService) StoreMultiple(ctx context.Context, files []domain.UploadedFile, dir string) ([]string, error) {
	names := make([]string, 0, len(files))
	for _, f := range files {
		name, ok, err := s.StoreSingle(ctx, f, dir)
		if err != nil {
			return names, err
		}
		if ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func (s *UploadService) store(ctx context.Context, f domain.UploadedFile, dir string) (string, error) {
	if f.Body == nil {
		f.Body = strings.NewReader("")
	}
	ext := extensionOf(f.OriginalName)
	body := &countingReader{r: f.Body}

	var start int64
	seeker, seekable := f.Body.(io.Seeker)
	if seekable {
		off, err := seeker.Seek(0, io.SeekCurrent)
		if err != nil {
			seekable = false
		}
		start = off
	}

	for attempt := 1; attempt <= maxNameAttempts; attempt++ {
		name := s.newToken(StoredNameLength) + ext
		err := s.blobs.Create(ctx, dir, name, f.ContentType, body)
		if err == nil {
			s.log.Info("file stored", zap.String("dir", dir), zap.String("name", name),
				zap.Int64("bytes", body.n))
			return name, nil
		}
		if !errors.Is(err, domain.ErrBlobExists) {
			return "", fmt.Errorf("store %s: %w", f.OriginalName, err)
		}

		s.log.Warn("file name collision", zap.String("dir", dir), zap.String("name", name),
			zap.Int("attempt", attempt))
		if body.n > 0 {
			if !seekable {
				return "", fmt.Errorf("store %s: %w: payload cannot be replayed", f.OriginalName, ErrNameCollision)
			}
			if _, err := seeker.Seek(start, io.SeekStart); err != nil {
				return "", fmt.Errorf("store %s: rewind: %w", f.OriginalName, err)
			}
			body.n = 0
		}
	}
	return "", fmt.Errorf("store %s: %w after %d attempts", f.OriginalName, ErrNameCollision, maxNameAttempts)
}

// extensionOf returns the extension of a client-supplied file name,
// including the dot and preserving case. Leading dots of the base name do
// not start an extension, and Windows-style paths are handled.
func extensionOf(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	return path.Ext(strings.TrimLeft(base, "."))
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
