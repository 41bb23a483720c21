package store

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/i474232898/infonaytto/internal/dashboard"
)

// Durable is a store that survives restarts.
type Durable interface {
	Get(ctx context.Context, kind dashboard.Kind) (dashboard.Entry, error)
	Put(ctx context.Context, entry dashboard.Entry) error
}

// Layered writes through an in-memory layer to a durable one and serves reads from
// memory when it can.
type Layered struct {
	mem     *MemoryStore
	durable Durable
	log     zerolog.Logger
}

// NewLayered stacks mem over durable. durable may be nil, in which case only memory is
// used.
func NewLayered(mem *MemoryStore, durable Durable, log zerolog.Logger) *Layered {
	if mem == nil {
		mem = NewMemoryStore(1, 0)
	}
	return &Layered{mem: mem, durable: durable, log: log.With().Str("component", "cache").Logger()}
}

// Memory returns the in-memory layer.
func (l *Layered) Memory() *MemoryStore { return l.mem }

// Put writes to the durable layer first; memory is only updated once that succeeds so
// both layers agree.
func (l *Layered) Put(ctx context.Context, entry dashboard.Entry) error {
	if l.durable != nil {
		if err := l.durable.Put(ctx, entry); err != nil {
			return err
		}
	}
	return l.mem.Put(ctx, entry)
}

// Get reads memory, then the durable layer, repopulating memory on a durable hit.
func (l *Layered) Get(ctx context.Context, kind dashboard.Kind) (dashboard.Entry, error) {
	if e, ok := l.mem.Latest(kind); ok {
		return e, nil
	}
	if l.durable == nil {
		return dashboard.Entry{}, dashboard.ErrNotCached
	}

	e, err := l.durable.Get(ctx, kind)
	if err != nil {
		if !errors.Is(err, dashboard.ErrNotCached) {
			l.log.Warn().Err(err).Str("kind", string(kind)).Msg("durable cache read failed")
		}
		return dashboard.Entry{}, err
	}
	if err := l.mem.Put(ctx, e); err != nil {
		return dashboard.Entry{}, err
	}
	return e, nil
}
