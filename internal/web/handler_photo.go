package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vbonduro/photato/internal/domain"
)

// uploadField is the multipart form field carrying the photo.
const uploadField = "photo"

type indexResponse struct {
	App string `json:"app"`
}

type listResponse struct {
	Success bool      `json:"success"`
	Photos  photoPage `json:"photos"`
}

type photoPage struct {
	Count int             `json:"count"`
	Rows  []*domain.Photo `json:"rows"`
}

type uploadResponse struct {
	Success bool          `json:"success"`
	Photo   *domain.Photo `json:"photo"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, indexResponse{App: "photato"})
}

func (s *Server) handleListPhotos(w http.ResponseWriter, r *http.Request) {
	count, photos, err := s.service.ListAll(r.Context())
	if err != nil {
		s.logger.Error("list photos failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "failed to list photos"})
		return
	}
	s.writeJSON(w, http.StatusOK, listResponse{
		Success: true,
		Photos:  photoPage{Count: count, Rows: photos},
	})
}

// handleUploadPhoto streams the first "photo" file part straight into the
// ingestion service. Other parts are skipped.
func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	mr, err := r.MultipartReader()
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "failed to parse form: " + err.Error()})
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "photo file required"})
			return
		}
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "failed to parse form: " + err.Error()})
			return
		}
		if part.FormName() != uploadField || part.FileName() == "" {
			closeWithLog(part, "multipart part", s.logger)
			continue
		}

		photo, err := s.service.Ingest(r.Context(), part, part.FileName(), part.Header.Get("Content-Type"))
		closeWithLog(part, "photo part", s.logger)
		if err != nil {
			s.logger.Warn("upload photo failed", "original_name", part.FileName(), "error", err)
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Message: err.Error()})
			return
		}

		s.writeJSON(w, http.StatusOK, uploadResponse{Success: true, Photo: photo})
		return
	}
}

func (s *Server) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")

	rc, photo, err := s.service.Resolve(r.Context(), filename)
	if errors.Is(err, domain.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "failed to get photo", http.StatusInternalServerError)
		s.logger.Error("get photo failed", "filename", filename, "error", err)
		return
	}
	defer closeWithLog(rc, "photo reader", s.logger)

	w.Header().Set("Content-Type", photo.MimeType)
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, "", photo.CreatedAt, rs)
		return
	}

	w.Header().Set("Content-Length", strconv.FormatInt(photo.Size, 10))
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Error("write photo failed", "filename", filename, "error", err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("write json response failed", "error", err)
	}
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
