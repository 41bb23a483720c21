package httpapi

import (
	"sync"
	"time"

	"github.com/i474232898/infonaytto/internal/dashboard"
)

// Placeholder is shown for a source that has never produced data.
const Placeholder = "Ei tietoja saatavilla"

// View is what the dashboard shows for one source.
type View struct {
	Kind        dashboard.Kind   `json:"kind"`
	Record      dashboard.Record `json:"record,omitempty"`
	Stale       bool             `json:"stale"`
	FetchedAt   *time.Time       `json:"fetched_at,omitempty"`
	UpdatedAt   *time.Time       `json:"updated_at,omitempty"`
	Placeholder string           `json:"placeholder,omitempty"`
}

// Board keeps the latest view of every source. It implements dashboard.Presenter;
// callbacks come from the coordinator loop while HTTP handlers read concurrently.
type Board struct {
	mu    sync.RWMutex
	views map[dashboard.Kind]View
	now   func() time.Time
}

func NewBoard() *Board {
	return &Board{views: make(map[dashboard.Kind]View), now: time.Now}
}

func (b *Board) OnUpdated(kind dashboard.Kind, rec dashboard.Record) {
	b.set(kind, rec, false)
}

// OnFailed keeps showing the cached record marked stale, or the placeholder when
// nothing is cached.
func (b *Board) OnFailed(kind dashboard.Kind, cached dashboard.Record) {
	if cached == nil {
		b.mu.Lock()
		defer b.mu.Unlock()
		v, ok := b.views[kind]
		if ok && v.Record != nil {
			v.Stale = true
			b.views[kind] = v
		}
		return
	}
	b.set(kind, cached, true)
}

// OnRestored shows a record loaded from the cache at startup. It stays stale until
// the first fresh fetch.
func (b *Board) OnRestored(kind dashboard.Kind, rec dashboard.Record) {
	b.set(kind, rec, true)
}

func (b *Board) set(kind dashboard.Kind, rec dashboard.Record, stale bool) {
	fetched := rec.FetchedAt()
	updated := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.views[kind] = View{
		Kind:      kind,
		Record:    rec,
		Stale:     stale,
		FetchedAt: &fetched,
		UpdatedAt: &updated,
	}
}

// View returns the current view of kind.
func (b *Board) View(kind dashboard.Kind) View {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if v, ok := b.views[kind]; ok {
		return v
	}
	return View{Kind: kind, Placeholder: Placeholder}
}

// Views returns every source's view in dispatch order.
func (b *Board) Views() []View {
	out := make([]View, 0, len(dashboard.Kinds))
	for _, kind := range dashboard.Kinds {
		out = append(out, b.View(kind))
	}
	return out
}
