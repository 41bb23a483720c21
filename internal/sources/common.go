package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/infonaytto/internal/dashboard"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultBackoff is used by every fetcher unless overridden.
func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig
}

var (
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// retryableStatus is returned inside the breaker for 429 and 5xx responses.
type retryableStatus struct {
	status int
}

func (e *retryableStatus) Error() string {
	return fmt.Sprintf("retryable http status %d", e.status)
}

// NewHTTPClient returns the client shared by the fetchers.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 || timeout > dashboard.MaxFetchTimeout {
		timeout = dashboard.MaxFetchTimeout
	}
	return &http.Client{Timeout: timeout}
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// doRequestWithResilience executes the HTTP request with retries, exponential backoff,
// and a circuit breaker. Transport errors, 429 and 5xx are retried; any other non-2xx
// status fails at once. Every error returned is a *dashboard.FetchError.
func doRequestWithResilience(
	ctx context.Context,
	kind dashboard.Kind,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func(ctx context.Context) (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, &dashboard.FetchError{Kind: kind, Reason: dashboard.ReasonNetwork, Err: errNoHTTPClient}
	}
	if cfg.Backoff.MaxRetries < 0 || cfg.Backoff.InitialInterval <= 0 {
		return nil, &dashboard.FetchError{Kind: kind, Reason: dashboard.ReasonNetwork, Err: errInvalidConfig}
	}

	var attempt int
	for {
		if err := ctx.Err(); err != nil {
			return nil, dashboard.AsFetchError(kind, err)
		}

		req, err := buildRequest(ctx)
		if err != nil {
			return nil, dashboard.Malformed(kind, "building request: %v", err)
		}

		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := cfg.Client.Do(req)
			if execErr != nil {
				return nil, execErr
			}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				discard(resp)
				return nil, &retryableStatus{status: resp.StatusCode}
			}
			return resp, nil
		})

		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, dashboard.Malformed(kind, "unexpected result type from circuit breaker")
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				discard(resp)
				return nil, dashboard.HTTPStatus(kind, resp.StatusCode)
			}
			return resp, nil
		}

		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &dashboard.FetchError{
				Kind:   kind,
				Reason: dashboard.ReasonNetwork,
				Err:    fmt.Errorf("%w: %v", errCircuitOpen, err),
			}
		}

		if attempt >= cfg.Backoff.MaxRetries {
			return nil, toFetchError(kind, err)
		}

		if !sleep(ctx, backoffDelay(cfg.Backoff, attempt)) {
			return nil, dashboard.AsFetchError(kind, ctx.Err())
		}
		attempt++
	}
}

func toFetchError(kind dashboard.Kind, err error) *dashboard.FetchError {
	var rs *retryableStatus
	if errors.As(err, &rs) {
		return dashboard.HTTPStatus(kind, rs.status)
	}
	return dashboard.AsFetchError(kind, err)
}

func backoffDelay(b BackoffConfig, attempt int) time.Duration {
	delay := b.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
	if delay > b.MaxInterval && b.MaxInterval > 0 {
		delay = b.MaxInterval
	}
	return delay
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
