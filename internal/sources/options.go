package sources

import (
	"net/http"
	"time"
)

type options struct {
	baseURL  string
	client   *http.Client
	backoff  BackoffConfig
	location *time.Location
	now      func() time.Time
}

// Option customizes a fetcher.
type Option func(*options)

// WithBaseURL points the fetcher at another endpoint, e.g. an httptest server.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithBackoff overrides the retry schedule.
func WithBackoff(b BackoffConfig) Option {
	return func(o *options) { o.backoff = b }
}

// WithLocation sets the zone used when a response carries none.
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.location = loc }
}

// WithClock sets the time source for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(defaultURL string, opts []Option) options {
	o := options{
		baseURL:  defaultURL,
		backoff:  DefaultBackoff(),
		location: time.Local,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = NewHTTPClient(0)
	}
	return o
}
