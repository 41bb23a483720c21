package calendar

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
)

type monthDay struct {
	month time.Month
	day   int
}

func dayOf(t time.Time) monthDay {
	return monthDay{month: t.Month(), day: t.Day()}
}

// Holidays are the fixed-date Finnish holidays.
var Holidays = map[monthDay]string{
	{time.January, 1}:   "Uudenvuodenpäivä",
	{time.January, 6}:   "Loppiainen",
	{time.May, 1}:       "Vappu",
	{time.December, 6}:  "Itsenäisyyspäivä",
	{time.December, 24}: "Jouluaatto",
	{time.December, 25}: "Joulupäivä",
	{time.December, 26}: "Tapaninpäivä",
}

// HolidayOn returns the holiday falling on t's date, if any.
func HolidayOn(t time.Time) (string, bool) {
	name, ok := Holidays[dayOf(t)]
	return name, ok
}

// NameDays maps a date to the names celebrated on it, joined with ", ".
type NameDays map[monthDay]string

// On returns the names celebrated on t's date.
func (n NameDays) On(t time.Time) string {
	return n[dayOf(t)]
}

type nameDayEntry struct {
	Month int      `json:"month"`
	Day   int      `json:"day"`
	Names []string `json:"names"`
}

// LoadNameDays reads a JSON list of {month, day, names}. A missing file yields an
// empty table.
func LoadNameDays(path string) (NameDays, error) {
	out := make(NameDays)
	if path == "" {
		return out, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading name days: %w", err)
	}

	var entries []nameDayEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing name days: %w", err)
	}
	for _, e := range entries {
		if e.Month < 1 || e.Month > 12 || e.Day < 1 || e.Day > 31 || len(e.Names) == 0 {
			continue
		}
		out[monthDay{time.Month(e.Month), e.Day}] = strings.Join(e.Names, ", ")
	}
	return out, nil
}
