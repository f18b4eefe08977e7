package pricesource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rmartins/navengine/internal/apperrors"
	"github.com/rmartins/navengine/internal/model"
)

// Client fetches prices from a CryptoCompare-compatible API. It implements
// Source. Every request carries the caller's context plus the configured
// per-call timeout, whichever is tighter.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	callTimeout time.Duration
}

// NewClient creates a price client for the given API base URL.
// apiKey may be empty; public endpoints still work with reduced rate limits.
func NewClient(baseURL, apiKey string, callTimeout time.Duration) *Client {
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	return &Client{
		httpClient:  &http.Client{},
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		callTimeout: callTimeout,
	}
}

// multiQuoteResponse maps the provider's pricemultifull payload:
// RAW[ticker][currency] -> quote fields.
type multiQuoteResponse struct {
	Raw map[string]map[string]struct {
		Price        float64 `json:"PRICE"`
		HighDay      float64 `json:"HIGHDAY"`
		LowDay       float64 `json:"LOWDAY"`
		ChangePct24h float64 `json:"CHANGEPCT24HOUR"`
		MktCap       float64 `json:"MKTCAP"`
		LastUpdate   int64   `json:"LASTUPDATE"`
	} `json:"RAW"`
	Response string `json:"Response"`
	Message  string `json:"Message"`
}

// histoDayResponse maps the provider's histoday payload.
type histoDayResponse struct {
	Response string `json:"Response"`
	Message  string `json:"Message"`
	Data     struct {
		Data []struct {
			Time  int64   `json:"time"`
			Close float64 `json:"close"`
		} `json:"Data"`
	} `json:"Data"`
}

// SpotQuote fetches a single live quote. It reuses the batched endpoint for
// one ticker so the response shape and error handling stay uniform.
func (c *Client) SpotQuote(ctx context.Context, ticker, currency string) (model.Quote, error) {
	matrix, err := c.BatchSpotQuotes(ctx, []string{ticker}, []string{currency})
	if err != nil {
		return model.Quote{}, err
	}
	quote, ok := matrix[ticker][currency]
	if !ok {
		return model.Quote{}, fmt.Errorf("%w: no quote for %s/%s", apperrors.ErrPriceSourceFailure, ticker, currency)
	}
	return quote, nil
}

// BatchSpotQuotes fetches live quotes for all tickers in all target
// currencies with a single provider round-trip. Tickers the provider does
// not know are simply absent from the returned matrix; the caller decides
// how to fall back per ticker.
func (c *Client) BatchSpotQuotes(ctx context.Context, tickers, currencies []string) (QuoteMatrix, error) {
	endpoint := fmt.Sprintf("%s/data/pricemultifull?fsyms=%s&tsyms=%s",
		c.baseURL,
		url.QueryEscape(strings.Join(tickers, ",")),
		url.QueryEscape(strings.Join(currencies, ",")),
	)

	var parsed multiQuoteResponse
	if err := c.get(ctx, endpoint, &parsed); err != nil {
		return nil, err
	}
	if parsed.Response == "Error" {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrPriceSourceFailure, parsed.Message)
	}

	matrix := make(QuoteMatrix, len(parsed.Raw))
	for ticker, byCurrency := range parsed.Raw {
		matrix[ticker] = make(map[string]model.Quote, len(byCurrency))
		for currency, raw := range byCurrency {
			matrix[ticker][currency] = model.Quote{
				Price:        raw.Price,
				High24h:      raw.HighDay,
				Low24h:       raw.LowDay,
				ChangePct24h: raw.ChangePct24h,
				MarketCap:    raw.MktCap,
				LastUpdate:   time.Unix(raw.LastUpdate, 0).UTC(),
			}
		}
	}
	return matrix, nil
}

// HistoricalSeries fetches the full daily close history for symbol quoted
// in currency, ordered ascending by date. Works for both asset tickers and
// fiat FX pairs (the provider treats currencies as symbols too).
func (c *Client) HistoricalSeries(ctx context.Context, symbol, currency string) ([]PricePoint, error) {
	endpoint := fmt.Sprintf("%s/data/v2/histoday?fsym=%s&tsym=%s&allData=true",
		c.baseURL,
		url.QueryEscape(symbol),
		url.QueryEscape(currency),
	)

	var parsed histoDayResponse
	if err := c.get(ctx, endpoint, &parsed); err != nil {
		return nil, err
	}
	if parsed.Response == "Error" {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrPriceSourceFailure, parsed.Message)
	}
	if len(parsed.Data.Data) == 0 {
		return nil, fmt.Errorf("%w: empty history for %s/%s", apperrors.ErrPriceSourceFailure, symbol, currency)
	}

	points := make([]PricePoint, 0, len(parsed.Data.Data))
	for _, row := range parsed.Data.Data {
		points = append(points, PricePoint{
			Date:  time.Unix(row.Time, 0).UTC().Truncate(24 * time.Hour),
			Price: row.Close,
		})
	}
	return points, nil
}

// get performs a GET request with the per-call timeout applied on top of
// the caller's context and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build price request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Apikey "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrPriceSourceFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: provider returned status %d", apperrors.ErrPriceSourceFailure, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read price response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse price response: %w", err)
	}
	return nil
}
