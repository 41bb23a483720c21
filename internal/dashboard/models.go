package dashboard

import (
	"fmt"
	"time"
)

// Kind identifies one of the data sources the dashboard polls.
type Kind string

const (
	KindWeather  Kind = "weather"
	KindForecast Kind = "forecast"
	KindNews     Kind = "news"
	KindStocks   Kind = "stocks"
)

// Kinds is the fixed set of data sources, in dispatch order.
var Kinds = []Kind{KindWeather, KindForecast, KindNews, KindStocks}

// ParseKind converts a string into a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown data source %q", s)
}

// Record is the normalized result of one successful fetch.
// Implementations are value types and are never modified after construction.
type Record interface {
	Kind() Kind
	FetchedAt() time.Time
}

// WeatherRecord is the current weather for a city.
type WeatherRecord struct {
	City        string    `json:"city"`
	Temperature float64   `json:"temperature"` // Celsius
	Description string    `json:"description"`
	Icon        string    `json:"icon"` // OpenWeather icon code, e.g. "01d"
	Timestamp   time.Time `json:"timestamp"`
}

func (WeatherRecord) Kind() Kind             { return KindWeather }
func (r WeatherRecord) FetchedAt() time.Time { return r.Timestamp }

// ForecastDay is the aggregated forecast for one calendar day.
type ForecastDay struct {
	Date        time.Time `json:"date"` // local midnight
	Min         float64   `json:"min"`
	Max         float64   `json:"max"`
	Icon        string    `json:"icon"`
	Description string    `json:"description"`
}

// ForecastRecord holds the upcoming days, ordered by date ascending.
type ForecastRecord struct {
	City      string        `json:"city"`
	Days      []ForecastDay `json:"days"`
	Timestamp time.Time     `json:"timestamp"`
}

func (ForecastRecord) Kind() Kind             { return KindForecast }
func (r ForecastRecord) FetchedAt() time.Time { return r.Timestamp }

// NewsItem is a single headline.
type NewsItem struct {
	Source    string    `json:"source"`
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Published time.Time `json:"published"`
}

// NewsRecord holds headlines, newest first.
type NewsRecord struct {
	Items     []NewsItem `json:"items"`
	Timestamp time.Time  `json:"timestamp"`
}

func (NewsRecord) Kind() Kind             { return KindNews }
func (r NewsRecord) FetchedAt() time.Time { return r.Timestamp }

// Quote is the latest price of one instrument.
type Quote struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Change float64 `json:"change"` // percent vs. previous close
}

// StocksRecord holds quotes in configuration order.
type StocksRecord struct {
	Quotes    []Quote   `json:"quotes"`
	Timestamp time.Time `json:"timestamp"`
}

func (StocksRecord) Kind() Kind             { return KindStocks }
func (r StocksRecord) FetchedAt() time.Time { return r.Timestamp }

// Entry is what the cache keeps per kind: the last good record and when it was fetched.
type Entry struct {
	Kind      Kind      `json:"kind"`
	Record    Record    `json:"record"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// NewEntry builds an Entry from a record.
func NewEntry(rec Record) Entry {
	return Entry{
		Kind:      rec.Kind(),
		Record:    rec,
		FetchedAt: rec.FetchedAt(),
	}
}
