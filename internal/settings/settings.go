// Package settings persists user preferences as a small YAML document.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	KeyAPIKey           = "api_key"
	KeyCity             = "default_city"
	KeyTheme            = "theme"
	KeyNamedayNotify    = "nameday_notifications"
	KeyHolidayNotify    = "holiday_notifications"
	KeyWeatherAlerts    = "weather_alerts"
	KeyUpdateInterval   = "update_interval"
	intervalKeySuffix   = "_interval"
	defaultSettingsFile = "settings.yaml"
)

// IntervalKey is the key holding the refresh interval override (minutes) for a source.
func IntervalKey(kind string) string {
	return kind + intervalKeySuffix
}

// Defaults returns the settings a fresh install starts with.
func Defaults() map[string]any {
	return map[string]any{
		KeyAPIKey:         "",
		KeyCity:           "Helsinki",
		KeyTheme:          "dark",
		KeyNamedayNotify:  true,
		KeyHolidayNotify:  true,
		KeyWeatherAlerts:  true,
		KeyUpdateInterval: 15,
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/infonaytto/settings.yaml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "infonaytto", defaultSettingsFile)
}

// Store is a durable key-value store for string, bool and int settings.
type Store struct {
	mu     sync.RWMutex
	path   string
	values map[string]any
	log    zerolog.Logger
}

// Open loads settings from path. A missing file yields defaults; an unreadable or
// corrupt file also yields defaults and is overwritten on the next Set.
func Open(path string, log zerolog.Logger) (*Store, error) {
	if path == "" {
		path = DefaultPath()
	}
	s := &Store{
		path:   path,
		values: Defaults(),
		log:    log.With().Str("component", "settings").Logger(),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	var stored map[string]any
	if err := yaml.Unmarshal(data, &stored); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("settings file is corrupt; using defaults")
		return s, nil
	}
	for k, v := range stored {
		s.values[k] = v
	}
	return s, nil
}

// Get returns the raw value for key, or def when unset.
func (s *Store) Get(key string, def any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key]; ok && v != nil {
		return v
	}
	return def
}

func (s *Store) String(key, def string) string {
	switch v := s.Get(key, def).(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return def
	}
}

func (s *Store) Bool(key string, def bool) bool {
	switch v := s.Get(key, def).(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func (s *Store) Int(key string, def int) int {
	switch v := s.Get(key, def).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Set stores value under key and persists the whole document.
func (s *Store) Set(key string, value any) error {
	switch value.(type) {
	case string, bool, int:
	default:
		return fmt.Errorf("setting %q: unsupported type %T", key, value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.values[key]
	s.values[key] = value
	if err := s.save(); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return err
	}
	return nil
}

// All returns a copy of every setting.
func (s *Store) All() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// save writes to a temp file and renames it over the target. Caller holds mu.
func (s *Store) save() error {
	data, err := yaml.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing settings: %w", err)
	}
	return nil
}
