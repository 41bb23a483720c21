package scheduler

import (
	"strings"
	"time"

	"github.com/scmhub/calendar"

	"github.com/i474232898/infonaytto/internal/dashboard"
)

// Eligibility is an extra condition, beyond elapsed time, for refreshing a source.
// It must be pure.
type Eligibility func(now time.Time) bool

// Policy is the refresh rule of one data source.
type Policy struct {
	Interval time.Duration
	Eligible Eligibility // nil means always eligible
}

// DefaultPolicies returns the refresh cadence of each source.
func DefaultPolicies() map[dashboard.Kind]Policy {
	return map[dashboard.Kind]Policy{
		dashboard.KindWeather:  {Interval: 30 * time.Minute},
		dashboard.KindForecast: {Interval: 30 * time.Minute},
		dashboard.KindNews:     {Interval: 15 * time.Minute},
		dashboard.KindStocks:   {Interval: 30 * time.Minute, Eligible: MarketHours(9, 17)},
	}
}

// MarketHours is eligible Monday to Friday while openHour <= local hour < closeHour.
func MarketHours(openHour, closeHour int) Eligibility {
	return func(now time.Time) bool {
		switch now.Weekday() {
		case time.Saturday, time.Sunday:
			return false
		}
		h := now.Hour()
		return h >= openHour && h < closeHour
	}
}

// ExchangeCalendar narrows hours to the business days of an exchange, identified by its
// MIC code (e.g. "xhel" for Nasdaq Helsinki). Unknown codes fall back to hours alone.
func ExchangeCalendar(mic string, hours Eligibility) Eligibility {
	cal := calendar.GetCalendar(strings.ToLower(mic))
	if cal == nil {
		return hours
	}
	return func(now time.Time) bool {
		if !hours(now) {
			return false
		}
		return cal.IsBusinessDay(now.In(cal.Loc))
	}
}

// InLocation evaluates e on the wall clock of loc.
func InLocation(loc *time.Location, e Eligibility) Eligibility {
	if loc == nil || e == nil {
		return e
	}
	return func(now time.Time) bool {
		return e(now.In(loc))
	}
}
