package gallery

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

// ErrNoFile is returned by SelectPhoto when nothing was selected.
var ErrNoFile = errors.New("no photo selected")

var (
	uploadComplete = Notification{
		Status:      StatusSuccess,
		Title:       "Upload Complete.",
		Description: "Saved your photo on Photato!",
		Duration:    5 * time.Second,
	}
	uploadFailed = Notification{
		Status:      StatusError,
		Title:       "Upload Error.",
		Description: "Something went wrong when uploading your photo!",
		Duration:    9 * time.Second,
	}
)

// Gallery holds what the photo grid displays: the current items, whether an
// upload is in flight and which photo the lightbox shows.
type Gallery struct {
	client   *Client
	notifier Notifier

	mu            sync.Mutex
	photos        []Item
	uploading     bool
	lightboxIndex int
	lightboxOpen  bool
}

func New(client *Client, notifier Notifier) *Gallery {
	return &Gallery{
		client:   client,
		notifier: notifier,
		photos:   []Item{},
	}
}

// Refresh reloads the photo list unless an upload is in flight.
func (g *Gallery) Refresh(ctx context.Context) {
	if g.IsUploading() {
		return
	}
	items := g.client.Photos(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.photos = items
	if g.lightboxIndex >= len(items) {
		g.lightboxIndex = 0
		g.lightboxOpen = false
	}
}

// SelectPhoto uploads the chosen file, notifies the outcome and refreshes the
// gallery once. The returned error is the upload failure, if any; the
// notification itself is the same for every kind of failure.
func (g *Gallery) SelectPhoto(ctx context.Context, name string, r io.Reader) error {
	g.setUploading(true)

	res, err := g.client.Upload(ctx, name, r)
	if err == nil && res == nil {
		err = ErrNoFile
	}
	if err != nil {
		g.notifier.Notify(uploadFailed)
	} else {
		g.notifier.Notify(uploadComplete)
	}

	g.setUploading(false)
	g.Refresh(ctx)
	return err
}

func (g *Gallery) setUploading(v bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.uploading = v
}

func (g *Gallery) IsUploading() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.uploading
}

// Photos returns a copy of the current items.
func (g *Gallery) Photos() []Item {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Item, len(g.photos))
	copy(out, g.photos)
	return out
}

// OpenLightbox shows the photo at index. An index outside the current items
// is ignored.
func (g *Gallery) OpenLightbox(index int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if index < 0 || index >= len(g.photos) {
		return
	}
	g.lightboxIndex = index
	g.lightboxOpen = true
}

func (g *Gallery) CloseLightbox() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lightboxIndex = 0
	g.lightboxOpen = false
}

// Lightbox reports the selected index and whether the lightbox is open.
func (g *Gallery) Lightbox() (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lightboxIndex, g.lightboxOpen
}
