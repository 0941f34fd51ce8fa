package domain

import "time"

// Photo is the metadata record for one uploaded image. The JSON keys match
// the wire format the gallery client reads (it resolves rows by "filename").
type Photo struct {
	ID           int64     `json:"id"`
	OriginalName string    `json:"originalname"`
	MimeType     string    `json:"mimetype"`
	Size         int64     `json:"size"`
	Filename     string    `json:"filename"`
	Path         string    `json:"path"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
