package sources

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/i474232898/infonaytto/internal/dashboard"
)

const defaultYahooURL = "https://query1.finance.yahoo.com"

// Symbol is a configured instrument and its display name.
type Symbol struct {
	Symbol string `yaml:"symbol"`
	Name   string `yaml:"name"`
}

// DefaultSymbols are large Helsinki-listed companies.
func DefaultSymbols() []Symbol {
	return []Symbol{
		{Symbol: "NOKIA.HE", Name: "Nokia"},
		{Symbol: "NDA-FI.HE", Name: "Nordea"},
		{Symbol: "FORTUM.HE", Name: "Fortum"},
		{Symbol: "SAMPO.HE", Name: "Sampo"},
		{Symbol: "KNEBV.HE", Name: "Kone"},
		{Symbol: "UPM.HE", Name: "UPM"},
	}
}

// YahooQuotes reads the latest price of each symbol from Yahoo Finance's chart API.
type YahooQuotes struct {
	client  *resty.Client
	circuit *gobreaker.CircuitBreaker
	symbols []Symbol
	now     func() time.Time
}

// NewYahooQuotes creates a stocks fetcher for symbols.
func NewYahooQuotes(symbols []Symbol, opts ...Option) *YahooQuotes {
	o := buildOptions(defaultYahooURL, opts)
	client := newRestyClient(o).
		SetHeader("User-Agent", "Mozilla/5.0 (infonaytto)").
		SetHeader("Accept", "application/json")
	return &YahooQuotes{
		client:  client,
		circuit: newBreaker("yahoo"),
		symbols: symbols,
		now:     o.now,
	}
}

func (*YahooQuotes) Kind() dashboard.Kind { return dashboard.KindStocks }

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string   `json:"symbol"`
				ShortName          string   `json:"shortName"`
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64  `json:"chartPreviousClose"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch returns quotes in configuration order. Symbols that fail are left out; the
// fetch only fails when every symbol does.
func (y *YahooQuotes) Fetch(ctx context.Context, _ dashboard.Request) (dashboard.Record, error) {
	if len(y.symbols) == 0 {
		return nil, dashboard.Malformed(dashboard.KindStocks, "no symbols configured")
	}

	quotes := make([]*dashboard.Quote, len(y.symbols))
	errs := make([]error, len(y.symbols))

	var wg sync.WaitGroup
	for i, sym := range y.symbols {
		wg.Add(1)
		go func(i int, sym Symbol) {
			defer wg.Done()
			quotes[i], errs[i] = y.quote(ctx, sym)
		}(i, sym)
	}
	wg.Wait()

	out := make([]dashboard.Quote, 0, len(quotes))
	for _, q := range quotes {
		if q != nil {
			out = append(out, *q)
		}
	}
	if len(out) == 0 {
		return nil, errs[0]
	}

	return dashboard.StocksRecord{Quotes: out, Timestamp: y.now()}, nil
}

func (y *YahooQuotes) quote(ctx context.Context, sym Symbol) (*dashboard.Quote, error) {
	req := y.client.R().
		SetPathParam("symbol", sym.Symbol).
		SetQueryParams(map[string]string{
			"interval": "1d",
			"range":    "1d",
		})

	body, err := restyGet(ctx, dashboard.KindStocks, y.circuit, req, "/v8/finance/chart/{symbol}")
	if err != nil {
		return nil, err
	}

	var payload chartResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, dashboard.Malformed(dashboard.KindStocks, "decoding %s: %v", sym.Symbol, err)
	}
	if e := payload.Chart.Error; e != nil {
		return nil, dashboard.Malformed(dashboard.KindStocks, "%s: %s %s", sym.Symbol, e.Code, e.Description)
	}
	if len(payload.Chart.Result) == 0 || payload.Chart.Result[0].Meta.RegularMarketPrice == nil {
		return nil, dashboard.Malformed(dashboard.KindStocks, "%s: no price in response", sym.Symbol)
	}

	meta := payload.Chart.Result[0].Meta
	price := *meta.RegularMarketPrice

	var change float64
	if meta.ChartPreviousClose != 0 {
		change = (price - meta.ChartPreviousClose) / meta.ChartPreviousClose * 100
	}

	name := sym.Name
	if name == "" {
		name = meta.ShortName
	}
	if name == "" {
		name = sym.Symbol
	}

	return &dashboard.Quote{
		Symbol: sym.Symbol,
		Name:   name,
		Price:  price,
		Change: change,
	}, nil
}
