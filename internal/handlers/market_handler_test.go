package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "stockfolio/internal/errors"
)

func setupMarketRouter(svc *mockQuoteService) *gin.Engine {
	r := gin.New()
	r.GET("/get_price", NewMarketHandler(svc).GetPrice)
	r.GET("/ticker/name", injectUser(testUser()), NewMarketHandler(svc).GetName)
	return r
}

func TestMarketHandler_GetPrice(t *testing.T) {
	t.Run("returns price from service", func(t *testing.T) {
		svc := &mockQuoteService{
			getPriceFn: func(_ context.Context, symbol string, forceRefresh bool) (float64, error) {
				if symbol != "AAPL" {
					t.Errorf("expected AAPL, got %q", symbol)
				}
				if forceRefresh {
					t.Error("lookups should not force a refresh")
				}
				return 123.45, nil
			},
		}
		r := setupMarketRouter(svc)

		rec := doRequest(r, "GET", "/get_price?ticker=AAPL", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["price"].(float64) != 123.45 {
			t.Errorf("expected 123.45, got %v", result["price"])
		}
	})

	t.Run("returns 400 without ticker", func(t *testing.T) {
		r := setupMarketRouter(&mockQuoteService{})

		rec := doRequest(r, "GET", "/get_price", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 502 when price unavailable", func(t *testing.T) {
		svc := &mockQuoteService{
			getPriceFn: func(_ context.Context, _ string, _ bool) (float64, error) {
				return 0, apperrors.ErrPriceUnavailable
			},
		}
		r := setupMarketRouter(svc)

		rec := doRequest(r, "GET", "/get_price?ticker=AAPL", "")

		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "PRICE_UNAVAILABLE")
	})
}

func TestMarketHandler_GetName(t *testing.T) {
	t.Run("returns normalized symbol and name", func(t *testing.T) {
		svc := &mockQuoteService{
			getNameFn: func(_ context.Context, symbol string, _ bool) (string, error) {
				return "Apple Inc", nil
			},
		}
		r := setupMarketRouter(svc)

		rec := doRequest(r, "GET", "/ticker/name?ticker=aapl", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["symbol"] != "AAPL" || result["name"] != "Apple Inc" {
			t.Errorf("unexpected response: %v", result)
		}
	})

	t.Run("returns 404 when no name found", func(t *testing.T) {
		svc := &mockQuoteService{
			getNameFn: func(_ context.Context, _ string, _ bool) (string, error) {
				return "", apperrors.ErrNotFound
			},
		}
		r := setupMarketRouter(svc)

		rec := doRequest(r, "GET", "/ticker/name?ticker=NOPE", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
