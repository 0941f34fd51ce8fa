package domain

import "errors"

var (
	// ErrUnsupportedMediaType is returned when an upload's name does not carry
	// an accepted image extension. Nothing has been persisted.
	ErrUnsupportedMediaType = errors.New("only image files are allowed")

	// ErrStorageWrite wraps blob write failures. No record was created.
	ErrStorageWrite = errors.New("failed to store photo")

	// ErrMetadataWrite wraps record insert failures that happen after the blob
	// was written.
	ErrMetadataWrite = errors.New("failed to record photo")

	ErrNotFound = errors.New("photo not found")
)
