package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/infonaytto/internal/dashboard"
)

const defaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5"

type openWeather struct {
	baseURL  string
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
	location *time.Location
	now      func() time.Time
}

func newOpenWeather(name string, opts []Option) openWeather {
	o := buildOptions(defaultOpenWeatherURL, opts)
	return openWeather{
		baseURL:  strings.TrimRight(o.baseURL, "/"),
		httpCfg:  HTTPClientConfig{Client: o.client, Backoff: o.backoff},
		circuit:  newBreaker(name),
		location: o.location,
		now:      o.now,
	}
}

// get requests path for the city in req and decodes the JSON body into out.
func (p openWeather) get(ctx context.Context, kind dashboard.Kind, path string, req dashboard.Request, out any) error {
	if req.APIKey == "" {
		return dashboard.NoAPIKey(kind)
	}
	if strings.TrimSpace(req.City) == "" {
		return dashboard.Malformed(kind, "no city configured")
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("q", req.City)
		values.Set("appid", req.APIKey)
		values.Set("units", "metric")
		values.Set("lang", "fi")

		u := fmt.Sprintf("%s/%s?%s", p.baseURL, path, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, kind, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return dashboard.AsFetchError(kind, ctx.Err())
		}
		return dashboard.Malformed(kind, "decoding response: %v", err)
	}
	return nil
}

type owmCondition struct {
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// OpenWeatherCurrent fetches the current conditions from OpenWeatherMap.
type OpenWeatherCurrent struct {
	openWeather
}

// NewOpenWeatherCurrent creates the current-weather fetcher.
func NewOpenWeatherCurrent(opts ...Option) *OpenWeatherCurrent {
	return &OpenWeatherCurrent{openWeather: newOpenWeather("openweather-current", opts)}
}

func (*OpenWeatherCurrent) Kind() dashboard.Kind { return dashboard.KindWeather }

func (p *OpenWeatherCurrent) Fetch(ctx context.Context, req dashboard.Request) (dashboard.Record, error) {
	var payload struct {
		Name string `json:"name"`
		Main struct {
			Temp *float64 `json:"temp"`
		} `json:"main"`
		Weather []owmCondition `json:"weather"`
	}
	if err := p.get(ctx, dashboard.KindWeather, "weather", req, &payload); err != nil {
		return nil, err
	}

	if payload.Main.Temp == nil {
		return nil, dashboard.Malformed(dashboard.KindWeather, "response has no temperature")
	}
	if len(payload.Weather) == 0 {
		return nil, dashboard.Malformed(dashboard.KindWeather, "response has no conditions")
	}

	city := payload.Name
	if city == "" {
		city = req.City
	}

	return dashboard.WeatherRecord{
		City:        city,
		Temperature: *payload.Main.Temp,
		Description: payload.Weather[0].Description,
		Icon:        payload.Weather[0].Icon,
		Timestamp:   p.now(),
	}, nil
}

// OpenWeatherForecast fetches the 5 day / 3 hour forecast and folds it into days.
type OpenWeatherForecast struct {
	openWeather
	maxDays int
}

// NewOpenWeatherForecast creates the forecast fetcher.
func NewOpenWeatherForecast(opts ...Option) *OpenWeatherForecast {
	return &OpenWeatherForecast{
		openWeather: newOpenWeather("openweather-forecast", opts),
		maxDays:     dashboard.MaxForecastDays,
	}
}

func (*OpenWeatherForecast) Kind() dashboard.Kind { return dashboard.KindForecast }

func (p *OpenWeatherForecast) Fetch(ctx context.Context, req dashboard.Request) (dashboard.Record, error) {
	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				TempMin float64 `json:"temp_min"`
				TempMax float64 `json:"temp_max"`
			} `json:"main"`
			Weather []owmCondition `json:"weather"`
		} `json:"list"`
		City struct {
			Name     string `json:"name"`
			Timezone *int   `json:"timezone"`
		} `json:"city"`
	}
	if err := p.get(ctx, dashboard.KindForecast, "forecast", req, &payload); err != nil {
		return nil, err
	}
	if len(payload.List) == 0 {
		return nil, dashboard.Malformed(dashboard.KindForecast, "forecast list is empty")
	}

	loc := p.location
	if payload.City.Timezone != nil {
		loc = time.FixedZone("", *payload.City.Timezone)
	}

	entries := make([]dashboard.ForecastEntry, 0, len(payload.List))
	for _, item := range payload.List {
		e := dashboard.ForecastEntry{
			Time: time.Unix(item.Dt, 0),
			Min:  item.Main.TempMin,
			Max:  item.Main.TempMax,
		}
		if len(item.Weather) > 0 {
			e.Icon = item.Weather[0].Icon
			e.Description = item.Weather[0].Description
		}
		entries = append(entries, e)
	}

	now := p.now()
	city := payload.City.Name
	if city == "" {
		city = req.City
	}

	return dashboard.ForecastRecord{
		City:      city,
		Days:      dashboard.AggregateForecast(entries, now, loc, p.maxDays),
		Timestamp: now,
	}, nil
}
