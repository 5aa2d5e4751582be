package finnhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestClient points a Client at a stub server built from the handlers
// map, keyed by request path.
func newTestClient(t *testing.T, handlers map[string]http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.URL.Path]; ok {
			h(w, r)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	c := NewClient("test-key", srv.Client())
	c.SetBaseURL(srv.URL)
	return c
}

func TestQuote(t *testing.T) {
	t.Run("rounds_to_two_decimals", func(t *testing.T) {
		c := newTestClient(t, map[string]http.HandlerFunc{
			"/quote": func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("symbol") != "AAPL" {
					t.Errorf("unexpected symbol %q", r.URL.Query().Get("symbol"))
				}
				if r.URL.Query().Get("token") != "test-key" {
					t.Errorf("missing api token")
				}
				w.Write([]byte(`{"c": 123.456789}`))
			},
		})

		price, err := c.Quote(context.Background(), "AAPL")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if price != 123.46 {
			t.Errorf("expected 123.46, got %f", price)
		}
	})

	t.Run("missing_price_field", func(t *testing.T) {
		c := newTestClient(t, map[string]http.HandlerFunc{
			"/quote": func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{}`))
			},
		})

		if _, err := c.Quote(context.Background(), "AAPL"); err == nil {
			t.Fatal("expected error for response without price")
		}
	})

	t.Run("http_error", func(t *testing.T) {
		c := newTestClient(t, map[string]http.HandlerFunc{
			"/quote": func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
		})

		if _, err := c.Quote(context.Background(), "AAPL"); err == nil {
			t.Fatal("expected error for non-200 status")
		}
	})
}

func TestCompanyName(t *testing.T) {
	t.Run("stock_profile_hit", func(t *testing.T) {
		c := newTestClient(t, map[string]http.HandlerFunc{
			"/stock/profile2": func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"name": "Apple Inc", "ticker": "AAPL"}`))
			},
		})

		name, err := c.CompanyName(context.Background(), "aapl", "US")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if name != "Apple Inc" {
			t.Errorf("expected Apple Inc, got %q", name)
		}
	})

	t.Run("falls_back_to_etf_profile", func(t *testing.T) {
		c := newTestClient(t, map[string]http.HandlerFunc{
			"/stock/profile2": func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{}`))
			},
			"/etf/profile": func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"name": "Vanguard S&P 500 ETF"}`))
			},
		})

		name, err := c.CompanyName(context.Background(), "VOO", "US")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if name != "Vanguard S&P 500 ETF" {
			t.Errorf("expected ETF name, got %q", name)
		}
	})

	t.Run("search_prefers_exact_symbol", func(t *testing.T) {
		c := newTestClient(t, map[string]http.HandlerFunc{
			"/stock/profile2": func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{}`))
			},
			"/etf/profile": func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{}`))
			},
			"/search": func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"result": [
					{"symbol": "MSFT.MX", "description": "Microsoft (Mexico)"},
					{"symbol": "MSFT", "description": "Microsoft Corp"}
				]}`))
			},
		})

		name, err := c.CompanyName(context.Background(), "MSFT", "US")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if name != "Microsoft Corp" {
			t.Errorf("expected exact match description, got %q", name)
		}
	})

	t.Run("symbol_listing_last_resort", func(t *testing.T) {
		c := newTestClient(t, map[string]http.HandlerFunc{
			"/stock/profile2": func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{}`))
			},
			"/etf/profile": func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{}`))
			},
			"/search": func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"result": []}`))
			},
			"/stock/symbol": func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("exchange") != "US" {
					t.Errorf("unexpected exchange %q", r.URL.Query().Get("exchange"))
				}
				w.Write([]byte(`[{"symbol": "OBSCURE", "description": "Obscure Holdings"}]`))
			},
		})

		name, err := c.CompanyName(context.Background(), "OBSCURE", "US")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if name != "Obscure Holdings" {
			t.Errorf("expected listing description, got %q", name)
		}
	})

	t.Run("nothing_found", func(t *testing.T) {
		c := newTestClient(t, map[string]http.HandlerFunc{
			"/stock/profile2": func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{}`))
			},
			"/etf/profile": func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{}`))
			},
			"/search": func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"result": []}`))
			},
			"/stock/symbol": func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`[]`))
			},
		})

		if _, err := c.CompanyName(context.Background(), "NOPE", "US"); err == nil {
			t.Fatal("expected error when every source misses")
		}
	})

	t.Run("empty_symbol", func(t *testing.T) {
		c := NewClient("test-key", nil)
		if _, err := c.CompanyName(context.Background(), "  ", "US"); err == nil {
			t.Fatal("expected error for empty symbol")
		}
	})
}
