package calendar

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/i474232898/infonaytto/internal/dashboard"
	"github.com/i474232898/infonaytto/internal/settings"
)

const (
	nameDayHour = 8
	holidayHour = 7
)

// Reminder sends the daily name-day and holiday notices, each at most once per day.
type Reminder struct {
	notifier dashboard.Notifier
	settings dashboard.Settings
	names    NameDays
	log      zerolog.Logger

	mu   sync.Mutex
	day  string
	sent map[string]bool
}

// NewReminder creates a Reminder. settings may be nil, in which case both notices are
// enabled.
func NewReminder(notifier dashboard.Notifier, st dashboard.Settings, names NameDays, log zerolog.Logger) *Reminder {
	return &Reminder{
		notifier: notifier,
		settings: st,
		names:    names,
		log:      log.With().Str("component", "reminder").Logger(),
		sent:     make(map[string]bool),
	}
}

// Check sends whatever notices are due at now.
func (r *Reminder) Check(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if day := now.Format("2006-01-02"); day != r.day {
		r.day = day
		r.sent = make(map[string]bool)
	}

	if now.Hour() >= nameDayHour && !r.sent["nameday"] && r.enabled(settings.KeyNamedayNotify) {
		r.sent["nameday"] = true
		if names := r.names.On(now); names != "" {
			r.send("Nimipäivä tänään", fmt.Sprintf("Tänään on %s nimipäivä!", names))
		}
	}

	if now.Hour() >= holidayHour && !r.sent["holiday"] && r.enabled(settings.KeyHolidayNotify) {
		if holiday, ok := HolidayOn(now); ok {
			r.sent["holiday"] = true
			r.send("Juhlapäivä tänään", fmt.Sprintf("Tänään vietetään: %s", holiday))
		}
	}
}

func (r *Reminder) enabled(key string) bool {
	if r.settings == nil {
		return true
	}
	return r.settings.Bool(key, true)
}

func (r *Reminder) send(title, message string) {
	r.log.Debug().Str("title", title).Msg("sending reminder")
	r.notifier.Notify(title, message)
}
