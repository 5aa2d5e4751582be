package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "stockfolio/internal/errors"
	"stockfolio/internal/services"
)

// MarketHandler serves live price and ticker name lookups.
type MarketHandler struct {
	quotes services.QuoteServicer
}

// NewMarketHandler creates a new MarketHandler
func NewMarketHandler(quotes services.QuoteServicer) *MarketHandler {
	return &MarketHandler{quotes: quotes}
}

// GetPrice returns the latest cached price for a symbol
// @Summary     Get price
// @Description Get the latest price for a ticker symbol, served from cache within its freshness window
// @Tags        market
// @Produce     json
// @Param       ticker query string true "Ticker symbol"
// @Success     200 {object} map[string]float64 "Latest price"
// @Failure     400 {object} ErrorResponse "Missing ticker"
// @Failure     502 {object} ErrorResponse "Price unavailable"
// @Router      /get_price [get]
func (h *MarketHandler) GetPrice(c *gin.Context) {
	ticker := strings.TrimSpace(c.Query("ticker"))
	if ticker == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Query parameter 'ticker' is required"))
		return
	}

	price, err := h.quotes.GetPrice(c.Request.Context(), ticker, false)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"price": price})
}

// GetName returns the company name for a symbol
// @Summary     Get ticker name
// @Description Get the company or fund name behind a ticker symbol
// @Tags        market
// @Produce     json
// @Security    BearerAuth
// @Param       ticker query string true "Ticker symbol"
// @Success     200 {object} map[string]string "Symbol and name"
// @Failure     404 {object} ErrorResponse "Name not found"
// @Router      /ticker/name [get]
func (h *MarketHandler) GetName(c *gin.Context) {
	ticker := strings.TrimSpace(c.Query("ticker"))
	if ticker == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Query parameter 'ticker' is required"))
		return
	}

	name, err := h.quotes.GetName(c.Request.Context(), ticker, false)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol": services.NormalizeSymbol(ticker),
		"name":   name,
	})
}
