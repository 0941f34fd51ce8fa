package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vbonduro/photato/internal/config"
	"github.com/vbonduro/photato/internal/domain"
)

const photoColumns = `id, original_name, mime_type, size_bytes, stored_filename, storage_path, created_at, updated_at`

type PhotoStore struct {
	db      *sql.DB
	dialect string
}

// NewPhotoStore returns a PhotoStore for db. Queries are written with "?"
// placeholders and rebound for dialects that need positional ones.
func NewPhotoStore(db *sql.DB, dialect string) *PhotoStore {
	return &PhotoStore{db: db, dialect: dialect}
}

func (s *PhotoStore) Create(ctx context.Context, photo *domain.Photo) (*domain.Photo, error) {
	now := time.Now().UTC()
	args := []any{photo.OriginalName, photo.MimeType, photo.Size, photo.Filename, photo.Path, now, now}
	insert := `INSERT INTO photos (original_name, mime_type, size_bytes, stored_filename, storage_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	var id int64
	if s.dialect == config.DialectPostgres {
		// lib/pq does not implement LastInsertId.
		if err := s.db.QueryRowContext(ctx, s.rebind(insert+` RETURNING id`), args...).Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to create photo: %w", err)
		}
	} else {
		result, err := s.db.ExecContext(ctx, insert, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to create photo: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to get last insert id: %w", err)
		}
	}

	created, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("photo %d missing after insert", id)
	}
	return created, nil
}

func (s *PhotoStore) GetByID(ctx context.Context, id int64) (*domain.Photo, error) {
	return s.getOne(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = ?`, id)
}

func (s *PhotoStore) GetByFilename(ctx context.Context, filename string) (*domain.Photo, error) {
	return s.getOne(ctx, `SELECT `+photoColumns+` FROM photos WHERE stored_filename = ?`, filename)
}

func (s *PhotoStore) getOne(ctx context.Context, query string, arg any) (*domain.Photo, error) {
	photo, err := scanPhoto(s.db.QueryRowContext(ctx, s.rebind(query), arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	return photo, nil
}

// List returns every photo in insertion order.
func (s *PhotoStore) List(ctx context.Context) ([]*domain.Photo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+photoColumns+` FROM photos ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	defer rows.Close()

	photos := []*domain.Photo{}
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, photo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating photos: %w", err)
	}

	return photos, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPhoto(row scanner) (*domain.Photo, error) {
	p := &domain.Photo{}
	err := row.Scan(&p.ID, &p.OriginalName, &p.MimeType, &p.Size, &p.Filename, &p.Path, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// rebind rewrites "?" placeholders to "$1".."$n" for postgres.
func (s *PhotoStore) rebind(query string) string {
	if s.dialect != config.DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
