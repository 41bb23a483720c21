package main

import (
	"fmt"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"

	"github.com/i474232898/infonaytto/internal/config"
	"github.com/i474232898/infonaytto/internal/dashboard"
	"github.com/i474232898/infonaytto/internal/scheduler"
	"github.com/i474232898/infonaytto/internal/settings"
	"github.com/i474232898/infonaytto/internal/sources"
	"github.com/i474232898/infonaytto/internal/store"
)

// cachePath returns the configured SQLite path or $XDG_CACHE_HOME/infonaytto/cache.db.
func cachePath(cfg *config.AppConfig) string {
	if cfg.CachePath != "" {
		return cfg.CachePath
	}
	return filepath.Join(xdg.CacheHome, "infonaytto", "cache.db")
}

// openCache builds the layered cache for the configured backend. The returned close
// function releases the durable layer.
func openCache(cfg *config.AppConfig, log zerolog.Logger) (*store.Layered, func() error, error) {
	mem := store.NewMemoryStore(cfg.CacheMaxHistory, 0)
	nop := func() error { return nil }

	switch cfg.CacheBackend {
	case "memory":
		return store.NewLayered(mem, nil, log), nop, nil
	case "redis":
		rs, err := store.OpenRedis(store.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		}, log)
		if err != nil {
			return nil, nil, fmt.Errorf("opening redis cache: %w", err)
		}
		return store.NewLayered(mem, rs, log), rs.Close, nil
	case "sqlite", "":
		db, err := store.OpenSQLite(cachePath(cfg), log)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite cache: %w", err)
		}
		return store.NewLayered(mem, db, log), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

// buildPolicies applies the configured intervals and market hours to the defaults.
func buildPolicies(cfg *config.AppConfig) map[dashboard.Kind]scheduler.Policy {
	policies := scheduler.DefaultPolicies()

	hours := scheduler.MarketHours(cfg.MarketOpenHour, cfg.MarketCloseHour)
	if cfg.MarketCalendar != "" {
		hours = scheduler.ExchangeCalendar(cfg.MarketCalendar, hours)
	}

	policies[dashboard.KindWeather] = scheduler.Policy{Interval: cfg.WeatherInterval}
	policies[dashboard.KindForecast] = scheduler.Policy{Interval: cfg.ForecastInterval}
	policies[dashboard.KindNews] = scheduler.Policy{Interval: cfg.NewsInterval}
	policies[dashboard.KindStocks] = scheduler.Policy{
		Interval: cfg.StocksInterval,
		Eligible: scheduler.InLocation(cfg.Location(), hours),
	}
	return policies
}

func buildFetchers(cfg *config.AppConfig) []dashboard.Fetcher {
	opts := []sources.Option{
		sources.WithHTTPClient(sources.NewHTTPClient(cfg.FetchTimeout)),
		sources.WithLocation(cfg.Location()),
	}
	return []dashboard.Fetcher{
		sources.NewOpenWeatherCurrent(opts...),
		sources.NewOpenWeatherForecast(opts...),
		sources.NewNewsFeeds(cfg.NewsFeeds, cfg.NewsLimit, opts...),
		sources.NewYahooQuotes(cfg.StockSymbols, opts...),
	}
}

// envKeySettings serves the API key from the environment while the user has not
// saved one of their own.
type envKeySettings struct {
	*settings.Store
	apiKey string
}

func (s envKeySettings) String(key, def string) string {
	v := s.Store.String(key, def)
	if key == settings.KeyAPIKey && v == "" {
		return s.apiKey
	}
	return v
}

func (s envKeySettings) All() map[string]any {
	all := s.Store.All()
	if key, _ := all[settings.KeyAPIKey].(string); key == "" && s.apiKey != "" {
		all[settings.KeyAPIKey] = s.apiKey
	}
	return all
}
