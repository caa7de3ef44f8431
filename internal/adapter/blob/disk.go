// Package blob implements domain.BlobStore on local disk, Google Cloud
// Storage and Supabase Storage.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"tourbook/internal/domain"
)

// DiskStore writes blobs as files under local directories. Directories
// must already exist; DiskStore never creates them.
type DiskStore struct{}

// NewDiskStore returns a DiskStore.
func NewDiskStore() *DiskStore {
	return &DiskStore{}
}

var _ domain.BlobStore = (*DiskStore)(nil)

// Create writes r to dir/name, failing with domain.ErrBlobExists if the
// file is already there.
func (s *DiskStore) Create(ctx context.Context, dir, name, contentType string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkName(name); err != nil {
		return err
	}

	p := filepath.Join(dir, name)
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return domain.ErrBlobExists
	}
	if err != nil {
		return err
	}

	return writeFile(p, f, r)
}

// writeFile copies r into f and closes it. The file at p is removed if
// either step fails.
func writeFile(p string, f io.WriteCloser, r io.Reader) error {
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return fmt.Errorf("write %s: %w", p, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(p)
		return fmt.Errorf("close %s: %w", p, err)
	}
	return nil
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return fmt.Errorf("invalid blob name %q", name)
	}
	return nil
}
