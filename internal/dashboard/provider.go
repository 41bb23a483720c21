package dashboard

import (
	"context"
	"time"
)

// Request carries the user settings a fetcher needs for one call.
type Request struct {
	City   string
	APIKey string
}

// Fetcher abstracts one remote data source (OpenWeather, RSS feeds, Yahoo Finance).
// Fetch must not touch shared state and must return a *FetchError on failure.
type Fetcher interface {
	Kind() Kind
	Fetch(ctx context.Context, req Request) (Record, error)
}

// Store is the contract for the last-known-good cache.
type Store interface {
	Get(ctx context.Context, kind Kind) (Entry, error)
	Put(ctx context.Context, entry Entry) error
}

// Schedule decides when a kind should be refreshed.
type Schedule interface {
	IsDue(kind Kind, now time.Time) bool
	MarkSuccess(kind Kind, at time.Time)
	SetInterval(kind Kind, interval time.Duration) error
}

// Presenter receives snapshots for display. Calls arrive on the coordinator loop.
type Presenter interface {
	OnUpdated(kind Kind, rec Record)
	// OnFailed passes the previously cached record, or nil when nothing is cached.
	OnFailed(kind Kind, cached Record)
	OnRestored(kind Kind, rec Record)
}

// Notifier delivers user-visible notifications.
type Notifier interface {
	Notify(title, message string)
}

// WidgetUpdater pushes fresh data to home screen widgets.
type WidgetUpdater interface {
	UpdateWidget(kind Kind, rec Record)
}

// Settings is the read side of the persisted user settings.
type Settings interface {
	String(key, def string) string
	Bool(key string, def bool) bool
	Int(key string, def int) int
}

// Metrics records fetch outcomes.
type Metrics interface {
	ObserveFetch(kind Kind, reason Reason, elapsed time.Duration)
	ObserveCacheWrite(kind Kind, err error)
}
