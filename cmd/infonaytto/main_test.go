package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/i474232898/infonaytto/internal/config"
	"github.com/i474232898/infonaytto/internal/dashboard"
	"github.com/i474232898/infonaytto/internal/settings"
	"github.com/i474232898/infonaytto/internal/store"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	t.Chdir(t.TempDir())
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func TestBuildPoliciesUsesConfiguredIntervals(t *testing.T) {
	cfg := testConfig(t)
	cfg.NewsInterval = 7 * time.Minute
	cfg.Timezone = "UTC"

	policies := buildPolicies(cfg)
	if got := policies[dashboard.KindNews].Interval; got != 7*time.Minute {
		t.Errorf("news interval = %s", got)
	}
	stocks := policies[dashboard.KindStocks]
	if stocks.Eligible == nil {
		t.Fatal("stocks should be gated by market hours")
	}
	// 2025-06-11 is a Wednesday, 2025-06-14 a Saturday.
	if !stocks.Eligible(time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC)) {
		t.Error("expected weekday noon to be eligible")
	}
	if stocks.Eligible(time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC)) {
		t.Error("expected Saturday to be ineligible")
	}
}

func TestOpenCacheBackends(t *testing.T) {
	cfg := testConfig(t)

	cfg.CacheBackend = "memory"
	mem, closeMem, err := openCache(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("memory cache: %v", err)
	}
	defer closeMem()
	if _, err := mem.Get(context.Background(), dashboard.KindNews); !errors.Is(err, dashboard.ErrNotCached) {
		t.Errorf("expected ErrNotCached, got %v", err)
	}

	cfg.CacheBackend = "sqlite"
	cfg.CachePath = filepath.Join(t.TempDir(), "cache.db")
	db, closeDB, err := openCache(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("sqlite cache: %v", err)
	}
	defer closeDB()
	rec := dashboard.NewsRecord{Items: []dashboard.NewsItem{{Title: "Otsikko"}}, Timestamp: time.Now()}
	if err := db.Put(context.Background(), dashboard.NewEntry(rec)); err != nil {
		t.Fatalf("put: %v", err)
	}

	cfg.CacheBackend = "mongo"
	if _, _, err := openCache(cfg, zerolog.Nop()); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestEnvKeySettingsFallsBackToEnvironment(t *testing.T) {
	st, err := settings.Open(filepath.Join(t.TempDir(), "settings.yaml"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open settings: %v", err)
	}
	s := envKeySettings{Store: st, apiKey: "from-env"}

	if got := s.String(settings.KeyAPIKey, ""); got != "from-env" {
		t.Errorf("api key = %q", got)
	}
	if got := s.All()[settings.KeyAPIKey]; got != "from-env" {
		t.Errorf("All api key = %v", got)
	}

	if err := st.Set(settings.KeyAPIKey, "saved"); err != nil {
		t.Fatal(err)
	}
	if got := s.String(settings.KeyAPIKey, ""); got != "saved" {
		t.Errorf("saved key should win, got %q", got)
	}
	if got := s.String(settings.KeyCity, "x"); got != "Helsinki" {
		t.Errorf("city = %q", got)
	}
}

func TestPrintStats(t *testing.T) {
	now := time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	printStats(&buf, nil, now)
	if !strings.Contains(buf.String(), "Nothing cached") {
		t.Errorf("empty output = %q", buf.String())
	}

	buf.Reset()
	printStats(&buf, []store.Stat{{Kind: dashboard.KindWeather, FetchedAt: now.Add(-90 * time.Second), Bytes: 2048}}, now)
	out := buf.String()
	if !strings.Contains(out, "weather") || !strings.Contains(out, "2.0 KB") || !strings.Contains(out, "1m30s ago") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1536, "1.5 KB"},
		{3 << 20, "3.0 MB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
