package prices

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// symbolPattern accepts equity symbols with optional ./- suffixes and a
// leading ^ for index/benchmark symbols such as ^GSPC.
var symbolPattern = regexp.MustCompile(`^[\^]?[A-Za-z0-9.-]+$`)

// ValidSymbol reports whether a symbol may be sent to the quote provider.
func ValidSymbol(symbol string) bool {
	return symbolPattern.MatchString(symbol)
}

// Quote is one fetched market price.
type Quote struct {
	Symbol string
	Price  decimal.Decimal
}

// Client fetches market prices from a chart-style quote endpoint.
type Client struct {
	http    *resty.Client
	baseURL string
	log     zerolog.Logger
}

// NewClient creates a new quote client
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		http: resty.New().
			SetTimeout(timeout).
			SetRetryCount(2).
			SetRetryWaitTime(500 * time.Millisecond),
		baseURL: baseURL,
		log:     log.With().Str("client", "quotes").Logger(),
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetQuote fetches the latest price for one symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	if !ValidSymbol(symbol) {
		return Quote{}, fmt.Errorf("invalid symbol %q", symbol)
	}

	var body chartResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		SetQueryParams(map[string]string{
			"interval": "1d",
			"range":    "1d",
		}).
		Get(c.baseURL + "/" + symbol)
	if err != nil {
		return Quote{}, fmt.Errorf("quote request for %s failed: %w", symbol, err)
	}
	if resp.IsError() {
		return Quote{}, fmt.Errorf("quote request for %s returned status %d", symbol, resp.StatusCode())
	}
	if body.Chart.Error != nil {
		return Quote{}, fmt.Errorf("quote provider error for %s: %s", symbol, body.Chart.Error.Description)
	}
	if len(body.Chart.Result) == 0 {
		return Quote{}, fmt.Errorf("no quote data for %s", symbol)
	}

	price := body.Chart.Result[0].Meta.RegularMarketPrice
	if price <= 0 {
		return Quote{}, fmt.Errorf("non-positive price for %s", symbol)
	}

	return Quote{
		Symbol: symbol,
		Price:  decimal.NewFromFloat(price),
	}, nil
}
