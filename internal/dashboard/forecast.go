package dashboard

import (
	"sort"
	"time"
)

// MaxForecastDays is how many upcoming days a forecast record carries.
const MaxForecastDays = 4

// ForecastEntry is one point of a provider's forecast timeline.
type ForecastEntry struct {
	Time        time.Time
	Min         float64
	Max         float64
	Icon        string
	Description string
}

// AggregateForecast folds a forecast timeline into one ForecastDay per calendar day in loc.
// Days up to and including the day of now are skipped. Min/Max span every entry of the day;
// icon and description come from the 12:00 entry, or from the first entry seen that day when
// there is none. The result is sorted by date and holds at most maxDays days.
func AggregateForecast(entries []ForecastEntry, now time.Time, loc *time.Location, maxDays int) []ForecastDay {
	if loc == nil {
		loc = time.Local
	}
	today := startOfDay(now.In(loc))

	type bucket struct {
		day     ForecastDay
		hasNoon bool
	}

	buckets := make(map[string]*bucket)
	for _, e := range entries {
		local := e.Time.In(loc)
		date := startOfDay(local)
		if !date.After(today) {
			continue
		}

		key := date.Format("2006-01-02")
		b, ok := buckets[key]
		if !ok {
			b = &bucket{day: ForecastDay{
				Date:        date,
				Min:         e.Min,
				Max:         e.Max,
				Icon:        e.Icon,
				Description: e.Description,
			}}
			buckets[key] = b
		} else {
			if e.Min < b.day.Min {
				b.day.Min = e.Min
			}
			if e.Max > b.day.Max {
				b.day.Max = e.Max
			}
		}

		if !b.hasNoon && local.Hour() == 12 {
			b.day.Icon = e.Icon
			b.day.Description = e.Description
			b.hasNoon = true
		}
	}

	days := make([]ForecastDay, 0, len(buckets))
	for _, b := range buckets {
		days = append(days, b.day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })

	if maxDays > 0 && len(days) > maxDays {
		days = days[:maxDays]
	}
	return days
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
