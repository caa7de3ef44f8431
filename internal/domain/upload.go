package domain

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ErrBlobExists is returned by a BlobStore when the target name is taken.
var ErrBlobExists = errors.New("blob already exists")

// ImageSeparator joins image names in the legacy single-column format.
const ImageSeparator = ";"

// UploadedFile is one file received from a client. Body is read once.
type UploadedFile struct {
	OriginalName string
	ContentType  string
	Body         io.Reader
}

// BlobStore persists named payloads under a directory or object prefix.
type BlobStore interface {
	// Create writes r as dir/name. It must not replace an existing object;
	// in that case it returns ErrBlobExists.
	Create(ctx context.Context, dir, name, contentType string, r io.Reader) error
}

// JoinImageNames renders names in the legacy ";"-joined format.
func JoinImageNames(names []string) string {
	return strings.Join(names, ImageSeparator)
}

// SplitImageNames parses the legacy ";"-joined format. Empty segments are dropped.
func SplitImageNames(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ImageSeparator) {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
