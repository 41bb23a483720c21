package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/i474232898/infonaytto/internal/dashboard"
)

// envelope is the persisted form of a cache entry.
type envelope struct {
	Kind      dashboard.Kind  `json:"kind"`
	FetchedAt time.Time       `json:"fetched_at"`
	Payload   json.RawMessage `json:"payload"`
}

// Encode serializes an entry for durable backends.
func Encode(entry dashboard.Entry) ([]byte, error) {
	if entry.Record == nil {
		return nil, fmt.Errorf("encoding %s entry: record is nil", entry.Kind)
	}
	payload, err := json.Marshal(entry.Record)
	if err != nil {
		return nil, fmt.Errorf("encoding %s record: %w", entry.Kind, err)
	}
	return json.Marshal(envelope{
		Kind:      entry.Kind,
		FetchedAt: entry.FetchedAt,
		Payload:   payload,
	})
}

// Decode parses data produced by Encode. want is the kind the caller asked for; an
// envelope of another kind is rejected.
func Decode(want dashboard.Kind, data []byte) (dashboard.Entry, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return dashboard.Entry{}, fmt.Errorf("decoding envelope: %w", err)
	}
	if env.Kind != want {
		return dashboard.Entry{}, fmt.Errorf("envelope holds %q, want %q", env.Kind, want)
	}

	var (
		rec dashboard.Record
		err error
	)
	switch want {
	case dashboard.KindWeather:
		rec, err = decodeAs[dashboard.WeatherRecord](env.Payload)
	case dashboard.KindForecast:
		rec, err = decodeAs[dashboard.ForecastRecord](env.Payload)
	case dashboard.KindNews:
		rec, err = decodeAs[dashboard.NewsRecord](env.Payload)
	case dashboard.KindStocks:
		rec, err = decodeAs[dashboard.StocksRecord](env.Payload)
	default:
		return dashboard.Entry{}, fmt.Errorf("unknown kind %q", want)
	}
	if err != nil {
		return dashboard.Entry{}, fmt.Errorf("decoding %s record: %w", want, err)
	}

	return dashboard.Entry{Kind: want, Record: rec, FetchedAt: env.FetchedAt}, nil
}

func decodeAs[T dashboard.Record](data []byte) (dashboard.Record, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
