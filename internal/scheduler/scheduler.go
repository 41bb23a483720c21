package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// Ticker is driven by the refresh job.
type Ticker interface {
	Tick(now time.Time) bool
}

// Checker is driven by the minutely reminder job.
type Checker interface {
	Check(now time.Time)
}

// Scheduler runs the periodic jobs of the dashboard.
type Scheduler struct {
	scheduler *gocron.Scheduler
	ticker    Ticker
	reminders Checker
	interval  time.Duration
	loc       *time.Location
	now       func() time.Time
	log       zerolog.Logger
}

// New creates a Scheduler that ticks every interval in loc. reminders may be nil.
func New(interval time.Duration, loc *time.Location, ticker Ticker, reminders Checker, log zerolog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(loc),
		ticker:    ticker,
		reminders: reminders,
		interval:  interval,
		loc:       loc,
		now:       time.Now,
		log:       log.With().Str("component", "scheduler").Logger(),
	}
}

// Start schedules the jobs and starts the underlying scheduler. The first refresh tick
// runs immediately.
func (s *Scheduler) Start() error {
	interval := s.tickInterval()
	_, err := s.scheduler.Every(interval).SingletonMode().Do(s.tick)
	if err != nil {
		return err
	}

	if s.reminders != nil {
		_, err = s.scheduler.Every(1).Minute().SingletonMode().Do(s.checkReminders)
		if err != nil {
			return err
		}
	}

	s.scheduler.StartAsync()
	s.log.Info().Dur("every", interval).Str("location", s.loc.String()).Msg("scheduler started")
	return nil
}

// tickInterval is the configured interval, or five minutes when unset.
func (s *Scheduler) tickInterval() time.Duration {
	if s.interval <= 0 {
		return 5 * time.Minute
	}
	return s.interval
}

// localNow is the current time on the configured wall clock.
func (s *Scheduler) localNow() time.Time {
	return s.now().In(s.loc)
}

func (s *Scheduler) tick() {
	s.log.Debug().Msg("running refresh tick")
	if !s.ticker.Tick(s.localNow()) {
		s.log.Warn().Msg("refresh tick dropped; loop is not running")
	}
}

func (s *Scheduler) checkReminders() {
	s.reminders.Check(s.localNow())
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
