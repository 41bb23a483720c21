package sources

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/infonaytto/internal/dashboard"
)

var fastBackoff = BackoffConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

var fixedNow = time.Date(2025, 6, 11, 15, 0, 0, 0, time.UTC)

func testOptions(srv *httptest.Server) []Option {
	return []Option{
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithBackoff(fastBackoff),
		WithLocation(time.UTC),
		WithClock(func() time.Time { return fixedNow }),
	}
}

func assertReason(t *testing.T, err error, want dashboard.Reason) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := dashboard.ReasonOf(err); got != want {
		t.Fatalf("reason = %s, want %s (%v)", got, want, err)
	}
}

func TestOpenWeatherCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/weather" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "Tampere" || q.Get("appid") != "k" || q.Get("units") != "metric" || q.Get("lang") != "fi" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `{"name":"Tampere","main":{"temp":-4.2},"weather":[{"description":"lumisadetta","icon":"13d"}]}`)
	}))
	defer srv.Close()

	f := NewOpenWeatherCurrent(testOptions(srv)...)
	rec, err := f.Fetch(context.Background(), dashboard.Request{City: "Tampere", APIKey: "k"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	w := rec.(dashboard.WeatherRecord)
	if w.City != "Tampere" || w.Temperature != -4.2 || w.Description != "lumisadetta" || w.Icon != "13d" {
		t.Errorf("unexpected record %+v", w)
	}
	if !w.Timestamp.Equal(fixedNow) {
		t.Errorf("timestamp = %v", w.Timestamp)
	}
}

func TestOpenWeatherMissingKeyMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	_, err := NewOpenWeatherCurrent(testOptions(srv)...).Fetch(context.Background(), dashboard.Request{City: "Helsinki"})
	assertReason(t, err, dashboard.ReasonNoAPIKey)
	if hits.Load() != 0 {
		t.Errorf("expected no requests, got %d", hits.Load())
	}
}

func TestOpenWeatherMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>`},
		{"no temperature", `{"main":{},"weather":[{"description":"x"}]}`},
		{"no conditions", `{"main":{"temp":1},"weather":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewOpenWeatherCurrent(testOptions(srv)...).Fetch(context.Background(), dashboard.Request{City: "Helsinki", APIKey: "k"})
			assertReason(t, err, dashboard.ReasonMalformed)
		})
	}
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewOpenWeatherCurrent(testOptions(srv)...).Fetch(context.Background(), dashboard.Request{City: "Helsinki", APIKey: "bad"})
	assertReason(t, err, dashboard.ReasonHTTPStatus)
	if hits.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", hits.Load())
	}
}

func TestServerErrorIsRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"main":{"temp":20},"weather":[{"description":"selkeää","icon":"01d"}]}`)
	}))
	defer srv.Close()

	rec, err := NewOpenWeatherCurrent(testOptions(srv)...).Fetch(context.Background(), dashboard.Request{City: "Oulu", APIKey: "k"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got := rec.(dashboard.WeatherRecord).City; got != "Oulu" {
		t.Errorf("city should fall back to the requested one, got %q", got)
	}
	if hits.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", hits.Load())
	}
}

func TestPersistentServerErrorReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewOpenWeatherCurrent(testOptions(srv)...).Fetch(context.Background(), dashboard.Request{City: "Helsinki", APIKey: "k"})
	assertReason(t, err, dashboard.ReasonHTTPStatus)
}

func TestTimeoutIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewOpenWeatherCurrent(testOptions(srv)...).Fetch(ctx, dashboard.Request{City: "Helsinki", APIKey: "k"})
	assertReason(t, err, dashboard.ReasonTimeout)
}

func TestOpenWeatherForecast(t *testing.T) {
	day := func(d, h int) int64 { return time.Date(2025, 6, d, h, 0, 0, 0, time.UTC).Unix() }
	body := fmt.Sprintf(`{
		"city": {"name": "Helsinki", "timezone": 0},
		"list": [
			{"dt": %d, "main": {"temp_min": 14, "temp_max": 16}, "weather": [{"icon": "today", "description": "tänään"}]},
			{"dt": %d, "main": {"temp_min": 9, "temp_max": 12}, "weather": [{"icon": "X", "description": "aamu"}]},
			{"dt": %d, "main": {"temp_min": 13, "temp_max": 21}, "weather": [{"icon": "Y", "description": "päivä"}]},
			{"dt": %d, "main": {"temp_min": 8, "temp_max": 11}, "weather": [{"icon": "Z", "description": "ilta"}]}
		]
	}`, day(11, 18), day(12, 9), day(12, 12), day(12, 21))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forecast" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	rec, err := NewOpenWeatherForecast(testOptions(srv)...).Fetch(context.Background(), dashboard.Request{City: "Helsinki", APIKey: "k"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	fc := rec.(dashboard.ForecastRecord)
	if len(fc.Days) != 1 {
		t.Fatalf("expected 1 future day, got %+v", fc.Days)
	}
	d := fc.Days[0]
	if d.Icon != "Y" || d.Min != 8 || d.Max != 21 {
		t.Errorf("unexpected day %+v", d)
	}
}

func TestForecastEmptyListIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"list": []}`)
	}))
	defer srv.Close()

	_, err := NewOpenWeatherForecast(testOptions(srv)...).Fetch(context.Background(), dashboard.Request{City: "Helsinki", APIKey: "k"})
	assertReason(t, err, dashboard.ReasonMalformed)
}

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Yle</title>
<item><title>Vanha &lt;b&gt;uutinen&lt;/b&gt;</title><link>https://yle.fi/a/1</link><pubDate>Wed, 11 Jun 2025 08:00:00 +0000</pubDate></item>
<item><title>Uusin uutinen</title><link>https://yle.fi/a/2</link><pubDate>Wed, 11 Jun 2025 12:00:00 +0000</pubDate></item>
</channel></rss>`

const atomFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom"><title>Talous</title>
<entry><title>Pörssi nousi</title><link href="https://yle.fi/a/3"/><updated>2025-06-11T10:00:00Z</updated></entry>
</feed>`

func TestNewsFeedsMergesNewestFirst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rss":
			fmt.Fprint(w, rssFeed)
		case "/atom":
			fmt.Fprint(w, atomFeed)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	feeds := []Feed{{Name: "Yle", URL: srv.URL + "/rss"}, {Name: "Talous", URL: srv.URL + "/atom"}}
	n := NewNewsFeeds(feeds, 2, WithHTTPClient(srv.Client()), WithBackoff(fastBackoff), WithClock(func() time.Time { return fixedNow }))

	rec, err := n.Fetch(context.Background(), dashboard.Request{})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	items := rec.(dashboard.NewsRecord).Items
	if len(items) != 2 {
		t.Fatalf("expected items capped at 2, got %d", len(items))
	}
	if items[0].Title != "Uusin uutinen" || items[1].Title != "Pörssi nousi" {
		t.Errorf("unexpected order: %q, %q", items[0].Title, items[1].Title)
	}
	if items[1].Source != "Talous" {
		t.Errorf("source = %q", items[1].Source)
	}
}

func TestNewsFeedsStripsHTMLFromTitles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssFeed)
	}))
	defer srv.Close()

	n := NewNewsFeeds([]Feed{{Name: "Yle", URL: srv.URL}}, 0, WithHTTPClient(srv.Client()), WithBackoff(fastBackoff))
	rec, err := n.Fetch(context.Background(), dashboard.Request{})
	if err != nil {
		t.Fatal(err)
	}
	for _, it := range rec.(dashboard.NewsRecord).Items {
		if strings.ContainsAny(it.Title, "<>") {
			t.Errorf("title still has markup: %q", it.Title)
		}
	}
}

func TestNewsFeedsPartialSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			fmt.Fprint(w, "this is not a feed")
			return
		}
		fmt.Fprint(w, rssFeed)
	}))
	defer srv.Close()

	feeds := []Feed{{Name: "Broken", URL: srv.URL + "/broken"}, {Name: "Yle", URL: srv.URL + "/rss"}}
	n := NewNewsFeeds(feeds, 0, WithHTTPClient(srv.Client()), WithBackoff(fastBackoff))
	rec, err := n.Fetch(context.Background(), dashboard.Request{})
	if err != nil {
		t.Fatalf("expected partial success, got %v", err)
	}
	if got := len(rec.(dashboard.NewsRecord).Items); got != 2 {
		t.Errorf("expected 2 items from the working feed, got %d", got)
	}
}

func TestNewsFeedsAllFailing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	n := NewNewsFeeds([]Feed{{Name: "A", URL: srv.URL + "/a"}, {Name: "B", URL: srv.URL + "/b"}}, 0,
		WithHTTPClient(srv.Client()), WithBackoff(fastBackoff))
	_, err := n.Fetch(context.Background(), dashboard.Request{})
	assertReason(t, err, dashboard.ReasonHTTPStatus)
}

func chartJSON(price, prev float64, shortName string) string {
	return fmt.Sprintf(`{"chart":{"result":[{"meta":{"symbol":"X","shortName":%q,"regularMarketPrice":%g,"chartPreviousClose":%g}}],"error":null}}`,
		shortName, price, prev)
}

func TestYahooQuotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("interval") != "1d" || r.URL.Query().Get("range") != "1d" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		switch r.URL.Path {
		case "/v8/finance/chart/NOKIA.HE":
			fmt.Fprint(w, chartJSON(4.2, 4.0, "Nokia Oyj"))
		case "/v8/finance/chart/KNEBV.HE":
			fmt.Fprint(w, chartJSON(50, 50, "KONE Oyj"))
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
		}
	}))
	defer srv.Close()

	y := NewYahooQuotes([]Symbol{
		{Symbol: "NOKIA.HE", Name: "Nokia"},
		{Symbol: "MISSING.HE"},
		{Symbol: "KNEBV.HE"},
	}, testOptions(srv)...)

	rec, err := y.Fetch(context.Background(), dashboard.Request{})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	quotes := rec.(dashboard.StocksRecord).Quotes
	if len(quotes) != 2 {
		t.Fatalf("expected 2 quotes, got %+v", quotes)
	}
	if quotes[0].Name != "Nokia" || math.Abs(quotes[0].Change-5) > 1e-9 {
		t.Errorf("unexpected first quote %+v", quotes[0])
	}
	if quotes[1].Name != "KONE Oyj" || quotes[1].Change != 0 {
		t.Errorf("unexpected second quote %+v", quotes[1])
	}
}

func TestYahooQuotesAllFailing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"symbol":"X"}}]}}`)
	}))
	defer srv.Close()

	_, err := NewYahooQuotes([]Symbol{{Symbol: "A"}}, testOptions(srv)...).Fetch(context.Background(), dashboard.Request{})
	assertReason(t, err, dashboard.ReasonMalformed)
}
