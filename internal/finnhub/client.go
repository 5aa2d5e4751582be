// Package finnhub is a minimal client for the Finnhub REST API, covering
// the quote and name-lookup endpoints the quote service needs.
package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://finnhub.io/api/v1"

	quoteTimeout   = 10 * time.Second
	symbolsTimeout = 20 * time.Second
)

// Client calls the Finnhub REST API.
type Client struct {
	apiKey     string
	baseURL    string // overridable for tests
	httpClient *http.Client
}

// NewClient creates a Finnhub client. A nil httpClient falls back to a
// client with the default quote timeout.
func NewClient(apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: quoteTimeout}
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: httpClient,
	}
}

// SetBaseURL points the client at a different API root. Used by tests.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = strings.TrimRight(base, "/")
}

// quoteResponse is the /quote payload. "c" is the current price.
type quoteResponse struct {
	Current *float64 `json:"c"`
}

// Quote fetches the current price for a symbol, rounded to 2 decimals.
func (c *Client) Quote(ctx context.Context, symbol string) (float64, error) {
	var qr quoteResponse
	if err := c.getJSON(ctx, "/quote", url.Values{"symbol": {symbol}}, quoteTimeout, &qr); err != nil {
		return 0, err
	}
	if qr.Current == nil {
		return 0, fmt.Errorf("finnhub: no price in quote response for %s", symbol)
	}
	return math.Round(*qr.Current*100) / 100, nil
}

// profileResponse covers both /stock/profile2 and /etf/profile payloads.
type profileResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	CompanyName string `json:"companyName"`
	Ticker      string `json:"ticker"`
}

func (p profileResponse) displayName() string {
	for _, s := range []string{p.Name, p.Description, p.CompanyName, p.Ticker} {
		if v := strings.TrimSpace(s); v != "" {
			return v
		}
	}
	return ""
}

// searchResponse is the /search payload.
type searchResponse struct {
	Result []struct {
		Symbol        string `json:"symbol"`
		DisplaySymbol string `json:"displaySymbol"`
		Description   string `json:"description"`
	} `json:"result"`
}

// SymbolInfo is one entry of the /stock/symbol exchange listing.
type SymbolInfo struct {
	Symbol        string `json:"symbol"`
	DisplaySymbol string `json:"displaySymbol"`
	Description   string `json:"description"`
}

// Symbols fetches the full symbol listing for an exchange.
func (c *Client) Symbols(ctx context.Context, exchange string) ([]SymbolInfo, error) {
	exchange = strings.ToUpper(strings.TrimSpace(exchange))
	if exchange == "" {
		exchange = "US"
	}
	var list []SymbolInfo
	if err := c.getJSON(ctx, "/stock/symbol", url.Values{"exchange": {exchange}}, symbolsTimeout, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// CompanyName resolves a human-readable name for a symbol. It tries the
// stock profile, then the ETF profile, then symbol search, and finally
// scans the exchange symbol listing. Names change rarely, so any hit wins.
func (c *Client) CompanyName(ctx context.Context, symbol, exchange string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", fmt.Errorf("finnhub: empty symbol")
	}

	var profile profileResponse
	if err := c.getJSON(ctx, "/stock/profile2", url.Values{"symbol": {symbol}}, quoteTimeout, &profile); err != nil {
		return "", err
	}
	if name := profile.displayName(); name != "" {
		return name, nil
	}

	profile = profileResponse{}
	if err := c.getJSON(ctx, "/etf/profile", url.Values{"symbol": {symbol}}, quoteTimeout, &profile); err == nil {
		if name := profile.displayName(); name != "" {
			return name, nil
		}
	}

	var search searchResponse
	if err := c.getJSON(ctx, "/search", url.Values{"q": {symbol}}, quoteTimeout, &search); err == nil {
		match := -1
		for i, r := range search.Result {
			if strings.ToUpper(r.Symbol) == symbol {
				match = i
				break
			}
		}
		if match < 0 && len(search.Result) > 0 {
			match = 0
		}
		if match >= 0 {
			r := search.Result[match]
			if name := strings.TrimSpace(firstNonEmpty(r.Description, r.DisplaySymbol)); name != "" {
				return name, nil
			}
		}
	}

	list, err := c.Symbols(ctx, exchange)
	if err != nil {
		return "", err
	}
	for _, item := range list {
		if strings.ToUpper(item.Symbol) == symbol {
			if name := strings.TrimSpace(firstNonEmpty(item.Description, item.DisplaySymbol, item.Symbol)); name != "" {
				return name, nil
			}
		}
	}
	return "", fmt.Errorf("finnhub: no name found for %s", symbol)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// getJSON performs a GET against the API and decodes the JSON body.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, timeout time.Duration, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	params.Set("token", c.apiKey)
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("finnhub: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("finnhub: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("finnhub: unexpected status %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("finnhub: decode response: %w", err)
	}
	return nil
}
