package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vbonduro/photato/internal/photostore"
)

const tmpDirName = ".tmp"

// LocalPhotoStore keeps one flat file per key in basePath. Writes are staged
// in basePath/.tmp and linked into place once complete.
type LocalPhotoStore struct {
	basePath string
	tmpPath  string
}

func NewLocalPhotoStore(basePath string) (*LocalPhotoStore, error) {
	basePath = filepath.Clean(basePath)
	tmpPath := filepath.Join(basePath, tmpDirName)
	if err := os.MkdirAll(tmpPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create photo directory: %w", err)
	}
	return &LocalPhotoStore{basePath: basePath, tmpPath: tmpPath}, nil
}

func (s *LocalPhotoStore) Save(ctx context.Context, key string, r io.Reader) (int64, error) {
	filePath, err := s.safeJoin(key)
	if err != nil {
		return 0, err
	}
	if _, err := os.Lstat(filePath); err == nil {
		return 0, fmt.Errorf("%w: %s", photostore.ErrKeyExists, key)
	}

	f, err := os.CreateTemp(s.tmpPath, key+"-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	tmpName := f.Name()

	n, err := io.Copy(f, &ctxReader{ctx: ctx, r: r})
	if err == nil {
		err = f.Sync()
	}
	if err != nil {
		if cerr := f.Close(); cerr != nil {
			slog.Error("failed to close file after write error", "error", cerr)
		}
		removeTemp(tmpName)
		return 0, fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		removeTemp(tmpName)
		return 0, fmt.Errorf("failed to close file: %w", err)
	}
	// Link fails if filePath exists, so a committed photo is never replaced.
	err = os.Link(tmpName, filePath)
	removeTemp(tmpName)
	if errors.Is(err, os.ErrExist) {
		return 0, fmt.Errorf("%w: %s", photostore.ErrKeyExists, key)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to move file into place: %w", err)
	}
	return n, nil
}

func (s *LocalPhotoStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	filePath, err := s.safeJoin(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", photostore.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

func (s *LocalPhotoStore) Delete(ctx context.Context, key string) error {
	filePath, err := s.safeJoin(key)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", photostore.ErrNotFound, key)
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *LocalPhotoStore) Location(key string) string {
	return filepath.Join(s.basePath, key)
}

// safeJoin resolves storageKey relative to basePath and rejects directory traversal.
func (s *LocalPhotoStore) safeJoin(storageKey string) (string, error) {
	if err := photostore.ValidateKey(storageKey); err != nil {
		return "", err
	}

	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, storageKey))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path traversal attempt", photostore.ErrInvalidKey)
	}
	return absPath, nil
}

func removeTemp(name string) {
	if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("failed to remove partial file", "path", name, "error", err)
	}
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
