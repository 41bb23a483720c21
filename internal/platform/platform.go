// Package platform holds the device-facing side effects: notifications and home
// screen widgets. On a server these are logged.
package platform

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/i474232898/infonaytto/internal/dashboard"
)

// Nop discards notifications and widget updates.
type Nop struct{}

func (Nop) Notify(string, string) {}

func (Nop) UpdateWidget(dashboard.Kind, dashboard.Record) {}

// LogNotifier writes notifications and widget updates to a logger.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notifier").Logger()}
}

func (n *LogNotifier) Notify(title, message string) {
	n.log.Info().Str("title", title).Msg(message)
}

func (n *LogNotifier) UpdateWidget(kind dashboard.Kind, rec dashboard.Record) {
	ev := n.log.Debug().Str("kind", string(kind))
	if w, ok := rec.(dashboard.WeatherRecord); ok {
		ev = ev.Str("city", w.City).Float64("temperature", w.Temperature).Str("icon", w.Icon)
	}
	ev.Msg("widget updated")
}

// Multi fans notifications out to several notifiers.
type Multi []dashboard.Notifier

func (m Multi) Notify(title, message string) {
	for _, n := range m {
		n.Notify(title, message)
	}
}

// Notification is one delivered notice.
type Notification struct {
	Title   string    `json:"title"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Inbox keeps the most recent notifications so they can be listed later.
type Inbox struct {
	mu    sync.Mutex
	items []Notification
	size  int
	now   func() time.Time
}

// NewInbox creates an inbox holding at most size notifications.
func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = 20
	}
	return &Inbox{size: size, now: time.Now}
}

func (b *Inbox) Notify(title, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, Notification{Title: title, Message: message, At: b.now()})
	if len(b.items) > b.size {
		b.items = b.items[len(b.items)-b.size:]
	}
}

// Recent returns the kept notifications, newest first.
func (b *Inbox) Recent() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Notification, len(b.items))
	for i, n := range b.items {
		out[len(b.items)-1-i] = n
	}
	return out
}
