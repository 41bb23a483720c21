package sources

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"

	"github.com/i474232898/infonaytto/internal/common"
	"github.com/i474232898/infonaytto/internal/dashboard"
)

// DefaultNewsLimit caps how many headlines a news record keeps.
const DefaultNewsLimit = 10

const maxTitleRunes = 160

// Feed is one RSS or Atom source.
type Feed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// DefaultFeeds are Yle's main headlines and business news.
func DefaultFeeds() []Feed {
	return []Feed{
		{Name: "Yle", URL: "https://feeds.yle.fi/uutiset/v1/majorHeadlines/YLE_UUTISET.rss"},
		{Name: "Yle talous", URL: "https://feeds.yle.fi/uutiset/v1/recent.rss?publisherIds=YLE_UUTISET&concepts=18-19274"},
	}
}

// NewsFeeds merges headlines from several feeds. A fetch succeeds if at least one feed
// could be read.
type NewsFeeds struct {
	client  *resty.Client
	circuit *gobreaker.CircuitBreaker
	feeds   []Feed
	limit   int
	now     func() time.Time
}

// NewNewsFeeds creates a news fetcher for feeds. A limit <= 0 uses DefaultNewsLimit.
func NewNewsFeeds(feeds []Feed, limit int, opts ...Option) *NewsFeeds {
	o := buildOptions("", opts)
	if limit <= 0 {
		limit = DefaultNewsLimit
	}
	return &NewsFeeds{
		client:  newRestyClient(o),
		circuit: newBreaker("news"),
		feeds:   feeds,
		limit:   limit,
		now:     o.now,
	}
}

func (*NewsFeeds) Kind() dashboard.Kind { return dashboard.KindNews }

func (n *NewsFeeds) Fetch(ctx context.Context, _ dashboard.Request) (dashboard.Record, error) {
	if len(n.feeds) == 0 {
		return nil, dashboard.Malformed(dashboard.KindNews, "no feeds configured")
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		items   []dashboard.NewsItem
		errs    = make([]error, len(n.feeds))
		success bool
	)
	for i, feed := range n.feeds {
		wg.Add(1)
		go func(i int, feed Feed) {
			defer wg.Done()
			got, err := n.fetchFeed(ctx, feed)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[i] = err
				return
			}
			success = true
			items = append(items, got...)
		}(i, feed)
	}
	wg.Wait()

	if !success {
		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Published.After(items[j].Published) })
	if len(items) > n.limit {
		items = items[:n.limit]
	}

	return dashboard.NewsRecord{Items: items, Timestamp: n.now()}, nil
}

func (n *NewsFeeds) fetchFeed(ctx context.Context, feed Feed) ([]dashboard.NewsItem, error) {
	body, err := restyGet(ctx, dashboard.KindNews, n.circuit, n.client.R().SetHeader("Accept", "application/rss+xml, application/atom+xml, */*"), feed.URL)
	if err != nil {
		return nil, err
	}

	// gofeed parsers are not safe for concurrent use.
	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, dashboard.Malformed(dashboard.KindNews, "parsing %s: %v", feed.Name, err)
	}

	now := n.now()
	out := make([]dashboard.NewsItem, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		title := common.Truncate(common.StripHTML(item.Title), maxTitleRunes)
		if title == "" {
			continue
		}
		pub := now
		if item.PublishedParsed != nil {
			pub = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			pub = *item.UpdatedParsed
		}
		out = append(out, dashboard.NewsItem{
			Source:    feed.Name,
			Title:     title,
			Link:      item.Link,
			Published: pub,
		})
	}
	return out, nil
}

func newRestyClient(o options) *resty.Client {
	client := resty.NewWithClient(o.client).
		SetRetryCount(o.backoff.MaxRetries).
		SetRetryWaitTime(o.backoff.InitialInterval).
		SetRetryMaxWaitTime(o.backoff.MaxInterval).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == 429 || r.StatusCode() >= 500
		})
	if o.baseURL != "" {
		client.SetBaseURL(o.baseURL)
	}
	return client
}

// restyGet runs req through the breaker and returns the body of a 2xx response.
func restyGet(ctx context.Context, kind dashboard.Kind, cb *gobreaker.CircuitBreaker, req *resty.Request, url string) ([]byte, error) {
	result, err := cb.Execute(func() (interface{}, error) {
		resp, err := req.SetContext(ctx).Get(url)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() == 429 || resp.StatusCode() >= 500 {
			return nil, &retryableStatus{status: resp.StatusCode()}
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &dashboard.FetchError{Kind: kind, Reason: dashboard.ReasonNetwork, Err: fmt.Errorf("%w: %v", errCircuitOpen, err)}
		}
		return nil, toFetchError(kind, err)
	}

	resp := result.(*resty.Response)
	if !resp.IsSuccess() {
		return nil, dashboard.HTTPStatus(kind, resp.StatusCode())
	}
	return resp.Body(), nil
}
