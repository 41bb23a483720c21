package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/infonaytto/internal/sources"
)

type AppConfig struct {
	OpenWeatherAPIKey string
	City              string `default:"Helsinki" validate:"required"`

	// TickInterval controls how often the scheduler asks which sources are due.
	TickInterval time.Duration `default:"5m" validate:"gte=1m"`
	// FetchTimeout bounds a single fetch attempt.
	FetchTimeout time.Duration `default:"10s" validate:"gt=0,lte=10s"`

	WeatherInterval  time.Duration `default:"30m" validate:"gt=0"`
	ForecastInterval time.Duration `default:"30m" validate:"gt=0"`
	NewsInterval     time.Duration `default:"15m" validate:"gt=0"`
	StocksInterval   time.Duration `default:"30m" validate:"gt=0"`

	MarketOpenHour  int    `default:"9" validate:"gte=0,lte=23"`
	MarketCloseHour int    `default:"17" validate:"gtefield=MarketOpenHour,lte=24"`
	MarketCalendar  string // exchange MIC, e.g. "xhel"; empty disables the holiday calendar
	Timezone        string `default:"Europe/Helsinki"`

	NewsFeeds    []sources.Feed
	NewsLimit    int `default:"10" validate:"gt=0"`
	StockSymbols []sources.Symbol

	AlertColdBelow float64 `default:"-20"`
	AlertHeatAbove float64 `default:"30" validate:"gtfield=AlertColdBelow"`

	CacheBackend    string `default:"sqlite" validate:"oneof=sqlite redis memory"`
	CachePath       string
	CacheMaxHistory int `default:"48" validate:"gte=1"`
	RedisAddr       string `default:"localhost:6379"`
	RedisPassword   string
	RedisDB         int    `validate:"gte=0"`
	RedisPrefix     string `default:"infonaytto"`

	SettingsPath string
	NameDaysPath string

	LogLevel  string `default:"info" validate:"oneof=trace debug info warn error"`
	LogFormat string `default:"console" validate:"oneof=console json"`

	Port string `default:"8080" validate:"numeric"`
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("applying defaults: %w", err)
	}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.City = getenvDefault("WEATHER_CITY", cfg.City)

	var err error
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"TICK_INTERVAL", &cfg.TickInterval},
		{"FETCH_TIMEOUT", &cfg.FetchTimeout},
		{"WEATHER_INTERVAL", &cfg.WeatherInterval},
		{"FORECAST_INTERVAL", &cfg.ForecastInterval},
		{"NEWS_INTERVAL", &cfg.NewsInterval},
		{"STOCKS_INTERVAL", &cfg.StocksInterval},
	}
	for _, d := range durations {
		if *d.dst, err = getenvDuration(d.key, *d.dst); err != nil {
			return nil, err
		}
	}

	cfg.MarketOpenHour = getenvInt("MARKET_OPEN_HOUR", cfg.MarketOpenHour)
	cfg.MarketCloseHour = getenvInt("MARKET_CLOSE_HOUR", cfg.MarketCloseHour)
	cfg.MarketCalendar = strings.ToLower(os.Getenv("MARKET_CALENDAR"))
	cfg.Timezone = getenvDefault("TIMEZONE", cfg.Timezone)

	if cfg.NewsFeeds, err = parseFeeds(os.Getenv("NEWS_FEEDS")); err != nil {
		return nil, err
	}
	cfg.NewsLimit = getenvInt("NEWS_LIMIT", cfg.NewsLimit)
	cfg.StockSymbols = parseSymbols(os.Getenv("STOCK_SYMBOLS"))

	if cfg.AlertColdBelow, err = getenvFloat("ALERT_COLD_BELOW", cfg.AlertColdBelow); err != nil {
		return nil, err
	}
	if cfg.AlertHeatAbove, err = getenvFloat("ALERT_HEAT_ABOVE", cfg.AlertHeatAbove); err != nil {
		return nil, err
	}

	cfg.CacheBackend = strings.ToLower(getenvDefault("CACHE_BACKEND", cfg.CacheBackend))
	cfg.CachePath = os.Getenv("CACHE_PATH")
	cfg.CacheMaxHistory = getenvInt("CACHE_MAX_HISTORY", cfg.CacheMaxHistory)
	cfg.RedisAddr = getenvDefault("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = getenvInt("REDIS_DB", cfg.RedisDB)
	cfg.RedisPrefix = getenvDefault("REDIS_PREFIX", cfg.RedisPrefix)

	cfg.SettingsPath = os.Getenv("SETTINGS_PATH")
	cfg.NameDaysPath = os.Getenv("NAMEDAYS_PATH")

	cfg.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(getenvDefault("LOG_FORMAT", cfg.LogFormat))
	cfg.Port = getenvDefault("PORT", cfg.Port)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Location resolves Timezone, falling back to the local zone.
func (c *AppConfig) Location() *time.Location {
	if loc, err := time.LoadLocation(c.Timezone); err == nil {
		return loc
	}
	return time.Local
}

// parseFeeds reads "name|url,name|url". A bare URL is named after itself. Empty input
// selects the default feeds.
func parseFeeds(raw string) ([]sources.Feed, error) {
	if strings.TrimSpace(raw) == "" {
		return sources.DefaultFeeds(), nil
	}
	var feeds []sources.Feed
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, url, found := strings.Cut(part, "|")
		if !found {
			name, url = part, part
		}
		name, url = strings.TrimSpace(name), strings.TrimSpace(url)
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return nil, fmt.Errorf("invalid NEWS_FEEDS entry %q: url must be http(s)", part)
		}
		feeds = append(feeds, sources.Feed{Name: name, URL: url})
	}
	return feeds, nil
}

// parseSymbols reads "SYMBOL:Name,SYMBOL". Empty input selects the default symbols.
func parseSymbols(raw string) []sources.Symbol {
	if strings.TrimSpace(raw) == "" {
		return sources.DefaultSymbols()
	}
	var out []sources.Symbol
	for _, part := range strings.Split(raw, ",") {
		sym, name, _ := strings.Cut(strings.TrimSpace(part), ":")
		if sym == "" {
			continue
		}
		out = append(out, sources.Symbol{Symbol: strings.ToUpper(sym), Name: strings.TrimSpace(name)})
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
