package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/i474232898/infonaytto/internal/settings"
)

const (
	// MaxFetchTimeout bounds every fetch attempt.
	MaxFetchTimeout = 10 * time.Second

	storeTimeout = 5 * time.Second
)

// State is the coordinator's position in a refresh cycle.
type State string

const (
	StateIdle        State = "idle"
	StateDispatching State = "dispatching"
	StateApplying    State = "applying"
)

// CoordinatorConfig wires the coordinator's collaborators. Only Store, Schedule and
// Fetchers are required.
type CoordinatorConfig struct {
	Store     Store
	Schedule  Schedule
	Fetchers  []Fetcher
	Presenter Presenter
	Notifier  Notifier
	Widgets   WidgetUpdater
	Settings  Settings
	Metrics   Metrics
	Rules     []AlertRule

	DefaultCity string
	Timeout     time.Duration
	Logger      zerolog.Logger
	Now         func() time.Time
}

// Coordinator dispatches due fetchers off the loop and applies their results on it.
type Coordinator struct {
	loop      *Loop
	store     Store
	schedule  Schedule
	fetchers  map[Kind]Fetcher
	presenter Presenter
	notifier  Notifier
	widgets   WidgetUpdater
	settings  Settings
	metrics   Metrics
	rules     []AlertRule

	defaultCity string
	timeout     time.Duration
	log         zerolog.Logger
	now         func() time.Time

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// Owned by the loop goroutine.
	inflight map[Kind]bool
	state    State
	closing  bool
}

// NewCoordinator creates a Coordinator that runs its bookkeeping on loop.
func NewCoordinator(loop *Loop, cfg CoordinatorConfig) (*Coordinator, error) {
	if loop == nil {
		return nil, fmt.Errorf("coordinator: loop is required")
	}
	if cfg.Store == nil || cfg.Schedule == nil {
		return nil, fmt.Errorf("coordinator: store and schedule are required")
	}
	if len(cfg.Fetchers) == 0 {
		return nil, fmt.Errorf("coordinator: no fetchers configured")
	}

	fetchers := make(map[Kind]Fetcher, len(cfg.Fetchers))
	for _, f := range cfg.Fetchers {
		if _, dup := fetchers[f.Kind()]; dup {
			return nil, fmt.Errorf("coordinator: duplicate fetcher for %s", f.Kind())
		}
		fetchers[f.Kind()] = f
	}

	timeout := cfg.Timeout
	if timeout <= 0 || timeout > MaxFetchTimeout {
		timeout = MaxFetchTimeout
	}

	nop := nopCollaborator{}
	c := &Coordinator{
		loop:        loop,
		store:       cfg.Store,
		schedule:    cfg.Schedule,
		fetchers:    fetchers,
		presenter:   cfg.Presenter,
		notifier:    cfg.Notifier,
		widgets:     cfg.Widgets,
		settings:    cfg.Settings,
		metrics:     cfg.Metrics,
		rules:       cfg.Rules,
		defaultCity: cfg.DefaultCity,
		timeout:     timeout,
		log:         cfg.Logger.With().Str("component", "coordinator").Logger(),
		now:         cfg.Now,
		inflight:    make(map[Kind]bool),
		state:       StateIdle,
	}
	if c.presenter == nil {
		c.presenter = nop
	}
	if c.notifier == nil {
		c.notifier = nop
	}
	if c.widgets == nil {
		c.widgets = nop
	}
	if c.settings == nil {
		c.settings = nop
	}
	if c.metrics == nil {
		c.metrics = nop
	}
	if c.rules == nil {
		c.rules = DefaultRules(-20, 30)
	}
	if c.defaultCity == "" {
		c.defaultCity = "Helsinki"
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.baseCtx, c.cancel = context.WithCancel(context.Background())
	return c, nil
}

// Tick runs one scheduled cycle at now. It never blocks on network I/O.
func (c *Coordinator) Tick(now time.Time) bool {
	return c.loop.Post(func() { c.cycle(now, false, Kinds) })
}

// Refresh dispatches the given kinds (all when empty) regardless of their schedule,
// including eligibility windows such as market hours. Kinds that already have a fetch
// in flight are skipped.
func (c *Coordinator) Refresh(kinds ...Kind) bool {
	if len(kinds) == 0 {
		kinds = Kinds
	}
	return c.loop.Post(func() { c.cycle(c.now(), true, kinds) })
}

// Restore hands every cached record to the presenter so the board is filled before
// the first fetch completes.
func (c *Coordinator) Restore() bool {
	return c.loop.Post(func() {
		for _, kind := range Kinds {
			if rec := c.cached(kind); rec != nil {
				c.presenter.OnRestored(kind, rec)
			}
		}
	})
}

// Shutdown stops dispatching and waits for in-flight fetches. When ctx expires first,
// outstanding fetches are cancelled and ctx.Err() is returned.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	closed := make(chan struct{})
	if c.loop.Post(func() {
		c.closing = true
		close(closed)
	}) {
		select {
		case <-closed:
		case <-c.loop.Done():
		case <-ctx.Done():
		}
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.cancel()
		return nil
	case <-ctx.Done():
		c.cancel()
		c.log.Warn().Msg("shutdown deadline reached; abandoning in-flight fetches")
		return ctx.Err()
	}
}

func (c *Coordinator) cycle(now time.Time, force bool, kinds []Kind) {
	if c.closing {
		return
	}
	c.state = StateDispatching
	defer func() { c.state = StateIdle }()

	c.applyIntervalOverrides()

	req := Request{
		City:   strings.TrimSpace(c.settings.String(settings.KeyCity, c.defaultCity)),
		APIKey: c.settings.String(settings.KeyAPIKey, ""),
	}
	if req.City == "" {
		req.City = c.defaultCity
	}

	for _, kind := range kinds {
		f, ok := c.fetchers[kind]
		if !ok {
			continue
		}
		if c.inflight[kind] {
			c.log.Debug().Str("kind", string(kind)).Msg("fetch already in flight; skipping")
			continue
		}
		if !force && !c.schedule.IsDue(kind, now) {
			continue
		}
		c.dispatch(f, req)
	}
}

func (c *Coordinator) dispatch(f Fetcher, req Request) {
	kind := f.Kind()
	attempt := uuid.NewString()

	c.inflight[kind] = true
	c.wg.Add(1)
	c.log.Debug().Str("kind", string(kind)).Str("attempt", attempt).Str("state", string(c.state)).Msg("dispatching fetch")

	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(c.baseCtx, c.timeout)
		defer cancel()

		start := time.Now()
		rec, err := safeFetch(ctx, f, req)
		elapsed := time.Since(start)

		if !c.loop.Post(func() { c.apply(kind, attempt, rec, err, elapsed) }) {
			c.log.Debug().Str("kind", string(kind)).Str("attempt", attempt).Msg("loop stopped; dropping fetch result")
		}
	}()
}

func safeFetch(ctx context.Context, f Fetcher, req Request) (rec Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = &FetchError{Kind: f.Kind(), Reason: ReasonMalformed, Err: fmt.Errorf("fetcher panic: %v", r)}
		}
	}()

	rec, err = f.Fetch(ctx, req)
	if err == nil && rec == nil {
		err = Malformed(f.Kind(), "fetcher returned no record")
	}
	if err == nil && rec.Kind() != f.Kind() {
		err = Malformed(f.Kind(), "fetcher returned %s record", rec.Kind())
	}
	return rec, err
}

func (c *Coordinator) apply(kind Kind, attempt string, rec Record, err error, elapsed time.Duration) {
	c.state = StateApplying
	defer func() { c.state = StateIdle }()

	delete(c.inflight, kind)

	if err != nil {
		c.applyFailure(kind, attempt, AsFetchError(kind, err), elapsed)
		return
	}
	c.applySuccess(kind, attempt, rec, elapsed)
}

func (c *Coordinator) applySuccess(kind Kind, attempt string, rec Record, elapsed time.Duration) {
	c.metrics.ObserveFetch(kind, "", elapsed)

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	err := c.store.Put(ctx, NewEntry(rec))
	c.metrics.ObserveCacheWrite(kind, err)
	if err != nil {
		c.log.Error().Err(err).Str("kind", string(kind)).Msg("failed to write cache")
	}

	c.schedule.MarkSuccess(kind, c.now())
	c.log.Info().Str("kind", string(kind)).Str("attempt", attempt).Dur("elapsed", elapsed).Msg("source updated")

	c.presenter.OnUpdated(kind, rec)
	c.widgets.UpdateWidget(kind, rec)

	if kind != KindWeather || !c.settings.Bool(settings.KeyWeatherAlerts, true) {
		return
	}
	w, ok := rec.(WeatherRecord)
	if !ok {
		return
	}
	for _, ev := range Evaluate(w, c.rules) {
		c.log.Info().Str("alert", string(ev.Kind)).Msg(ev.Title)
		c.notifier.Notify(ev.Title, ev.Message)
	}
}

func (c *Coordinator) applyFailure(kind Kind, attempt string, fe *FetchError, elapsed time.Duration) {
	c.metrics.ObserveFetch(kind, fe.Reason, elapsed)

	ev := c.log.Warn()
	if fe.Reason == ReasonNoAPIKey {
		ev = c.log.Debug()
	}
	ev.Err(fe).Str("kind", string(kind)).Str("attempt", attempt).Str("reason", string(fe.Reason)).Msg("fetch failed; serving cached data")

	c.presenter.OnFailed(kind, c.cached(kind))
}

// cached returns the stored record for kind, or nil when absent or unreadable.
func (c *Coordinator) cached(kind Kind) Record {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	entry, err := c.store.Get(ctx, kind)
	if err != nil {
		if !errors.Is(err, ErrNotCached) {
			c.log.Warn().Err(err).Str("kind", string(kind)).Msg("cache read failed; treating as empty")
		}
		return nil
	}
	return entry.Record
}

func (c *Coordinator) applyIntervalOverrides() {
	for _, kind := range Kinds {
		minutes := c.settings.Int(settings.IntervalKey(string(kind)), 0)
		if minutes <= 0 {
			continue
		}
		if err := c.schedule.SetInterval(kind, time.Duration(minutes)*time.Minute); err != nil {
			c.log.Warn().Err(err).Str("kind", string(kind)).Msg("ignoring interval override")
		}
	}
}

type nopCollaborator struct{}

func (nopCollaborator) OnUpdated(Kind, Record) {}
func (nopCollaborator) OnFailed(Kind, Record) {}
func (nopCollaborator) OnRestored(Kind, Record) {}
func (nopCollaborator) Notify(string, string) {}
func (nopCollaborator) UpdateWidget(Kind, Record) {}
func (nopCollaborator) String(_ string, def string) string { return def }
func (nopCollaborator) Bool(_ string, def bool) bool { return def }
func (nopCollaborator) Int(_ string, def int) int { return def }
func (nopCollaborator) ObserveFetch(Kind, Reason, time.Duration) {}
func (nopCollaborator) ObserveCacheWrite(Kind, error) {}
