package gallery

import (
	"context"
	"log/slog"
	"time"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Notification is a transient message shown to the user.
type Notification struct {
	Status      string
	Title       string
	Description string
	Duration    time.Duration
}

type Notifier interface {
	Notify(n Notification)
}

// LogNotifier renders notifications as log records.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(n Notification) {
	level := slog.LevelInfo
	if n.Status == StatusError {
		level = slog.LevelError
	}
	l.Logger.Log(context.Background(), level, n.Title,
		"description", n.Description,
		"duration", n.Duration.String(),
	)
}
