package photostore

import (
	"context"
	"errors"
	"io"
	"strings"
)

const maxKeyLength = 255

var (
	ErrNotFound   = errors.New("photo blob not found")
	ErrKeyExists  = errors.New("photo blob already exists")
	ErrInvalidKey = errors.New("invalid photo key")
)

// PhotoStore holds uploaded image bytes under flat, caller-chosen keys.
type PhotoStore interface {
	// Save writes r in full under key and returns the number of bytes
	// written. Nothing is left behind under key when it fails.
	Save(ctx context.Context, key string, r io.Reader) (int64, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// Location describes where key is stored, e.g. a file path.
	Location(key string) string
}

// ValidateKey rejects keys that could name anything other than a single
// entry in the store's directory.
func ValidateKey(key string) error {
	switch {
	case key == "", key == ".", key == "..":
		return ErrInvalidKey
	case len(key) > maxKeyLength:
		return ErrInvalidKey
	case strings.ContainsAny(key, "/\\\x00"):
		return ErrInvalidKey
	case strings.HasPrefix(key, "."):
		// also reserves the staging directory
		return ErrInvalidKey
	}
	return nil
}
