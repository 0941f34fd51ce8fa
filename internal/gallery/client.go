package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/vbonduro/photato/internal/domain"
)

// ErrUploadRejected is returned when the API answers an upload with
// success=false.
var ErrUploadRejected = errors.New("upload rejected")

// Item is one gallery tile. Width and Height are aspect hints and always 1.
type Item struct {
	Src    string
	Width  int
	Height int
}

// UploadResult is the decoded body of POST /photo.
type UploadResult struct {
	Success bool          `json:"success"`
	Photo   *domain.Photo `json:"photo,omitempty"`
	Message string        `json:"message,omitempty"`
}

type listResult struct {
	Success bool `json:"success"`
	Photos  struct {
		Count int             `json:"count"`
		Rows  []*domain.Photo `json:"rows"`
	} `json:"photos"`
}

// Client talks to the photo API.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		logger:  logger,
	}
}

// PhotoURL is the address a stored photo is served from.
func (c *Client) PhotoURL(filename string) string {
	return c.baseURL + "/photo/" + filename
}

// Photos fetches the listing and maps it to gallery items. Any failure yields
// an empty gallery.
func (c *Client) Photos(ctx context.Context) []Item {
	items, err := c.fetchPhotos(ctx)
	if err != nil {
		c.logger.Debug("photo listing unavailable", "base_url", c.baseURL, "error", err)
		return []Item{}
	}
	return items
}

func (c *Client) fetchPhotos(ctx context.Context) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/photo", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call photo api: %w", err)
	}
	defer resp.Body.Close()

	var body listResult
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode listing: %w", err)
	}
	if !body.Success || body.Photos.Count < 1 {
		return []Item{}, nil
	}

	items := make([]Item, 0, len(body.Photos.Rows))
	for _, p := range body.Photos.Rows {
		if p == nil {
			continue
		}
		items = append(items, Item{Src: c.PhotoURL(p.Filename), Width: 1, Height: 1})
	}
	return items, nil
}

// Upload streams r to the API as the "photo" field of a multipart form. A nil
// reader means nothing was selected and returns (nil, nil).
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (*UploadResult, error) {
	if r == nil {
		return nil, nil
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writePhotoPart(mw, name, r))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/photo", pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to upload photo: %w", err)
	}
	defer resp.Body.Close()

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode upload response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !result.Success {
		return &result, fmt.Errorf("%w: status %d: %s", ErrUploadRejected, resp.StatusCode, result.Message)
	}
	return &result, nil
}

func writePhotoPart(mw *multipart.Writer, name string, r io.Reader) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photo"; filename=%q`, name))
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return mw.Close()
}
