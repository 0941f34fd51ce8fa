package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/vbonduro/photato/internal/domain"
	"github.com/vbonduro/photato/internal/photostore"
)

// acceptedName matches the image extensions uploads may carry. The match is
// case-sensitive: "photo.PNG" is rejected.
var acceptedName = regexp.MustCompile(`\.(jpg|jpeg|png|gif)$`)

const sniffLen = 512

// photoRepository is the metadata store PhotoService requires. Both
// store.PhotoStore and badgerstore.PhotoStore satisfy it.
type photoRepository interface {
	Create(ctx context.Context, photo *domain.Photo) (*domain.Photo, error)
	GetByFilename(ctx context.Context, filename string) (*domain.Photo, error)
	List(ctx context.Context) ([]*domain.Photo, error)
}

type PhotoService struct {
	photoStore  photoRepository
	photoStg    photostore.PhotoStore
	newFilename func() string
	logger      *slog.Logger
}

func NewPhotoService(photoStore photoRepository, photoStg photostore.PhotoStore, logger *slog.Logger) *PhotoService {
	return &PhotoService{
		photoStore:  photoStore,
		photoStg:    photoStg,
		newFilename: newFilename,
		logger:      logger,
	}
}

// newFilename returns 32 random lowercase hex characters.
func newFilename() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// IsAcceptedName reports whether originalName carries an accepted image
// extension.
func IsAcceptedName(originalName string) bool {
	return acceptedName.MatchString(originalName)
}

// Ingest validates, stores and records one uploaded photo. r is consumed in
// full. mimeType is the type the client declared; when empty, it is sniffed
// from the first bytes of r.
func (s *PhotoService) Ingest(ctx context.Context, r io.Reader, originalName, mimeType string) (*domain.Photo, error) {
	if originalName == "" || !IsAcceptedName(originalName) {
		s.logger.Info("photo rejected", "original_name", originalName, "mime_type", mimeType)
		return nil, domain.ErrUnsupportedMediaType
	}

	if mimeType == "" {
		br := bufio.NewReaderSize(r, sniffLen)
		// Peek returns what is available on short input; the error is not
		// interesting here, Save will surface read failures.
		head, _ := br.Peek(sniffLen)
		mimeType = http.DetectContentType(head)
		r = br
	}

	filename := s.newFilename()
	s.logger.Info("ingest photo started", "original_name", originalName, "mime_type", mimeType, "filename", filename)

	size, err := s.photoStg.Save(ctx, filename, r)
	if err != nil {
		s.logger.Error("photo blob write failed", "filename", filename, "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrStorageWrite, err)
	}
	s.logger.Debug("photo saved", "filename", filename, "bytes", size)

	photo, err := s.photoStore.Create(ctx, &domain.Photo{
		OriginalName: originalName,
		MimeType:     mimeType,
		Size:         size,
		Filename:     filename,
		Path:         s.photoStg.Location(filename),
	})
	if err != nil {
		s.logger.Error("photo record insert failed", "filename", filename, "error", err)
		// Use a fresh context: the request's may be the reason the insert failed.
		if derr := s.photoStg.Delete(context.WithoutCancel(ctx), filename); derr != nil {
			s.logger.Error("orphaned photo blob left behind", "filename", filename, "error", derr)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrMetadataWrite, err)
	}

	s.logger.Info("ingest photo complete", "id", photo.ID, "filename", filename, "bytes", size)
	return photo, nil
}

// ListAll returns every recorded photo in insertion order along with the count.
func (s *PhotoService) ListAll(ctx context.Context) (int, []*domain.Photo, error) {
	photos, err := s.photoStore.List(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to list photos: %w", err)
	}
	if photos == nil {
		photos = []*domain.Photo{}
	}
	return len(photos), photos, nil
}

// Resolve opens the blob recorded under filename. Names that are not a single
// plain path element, or that no record carries, yield domain.ErrNotFound.
// The caller must close the returned reader.
func (s *PhotoService) Resolve(ctx context.Context, filename string) (io.ReadCloser, *domain.Photo, error) {
	if err := photostore.ValidateKey(filename); err != nil {
		return nil, nil, domain.ErrNotFound
	}

	photo, err := s.photoStore.GetByFilename(ctx, filename)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up photo: %w", err)
	}
	if photo == nil {
		return nil, nil, domain.ErrNotFound
	}

	rc, err := s.photoStg.Get(ctx, filename)
	if errors.Is(err, photostore.ErrNotFound) {
		s.logger.Warn("photo record without blob", "id", photo.ID, "filename", filename)
		return nil, nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open photo: %w", err)
	}
	return rc, photo, nil
}
