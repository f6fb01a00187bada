package objectstore

import (
	"context"
	"io"
	"path"
	"strings"

	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
)

// Object describes a stored blob
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Store keeps uploaded media. Deleting a missing key is not an error.
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (Object, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// CleanKey validates a relative slash separated key
func CleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", apperrors.Validationf("invalid object key %q", key)
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return "", apperrors.Validationf("invalid object key %q", key)
		}
	}
	return path.Clean(key), nil
}
