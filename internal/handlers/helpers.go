package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "stockfolio/internal/errors"
	"stockfolio/internal/ledger"
	"stockfolio/internal/logger"
	"stockfolio/internal/services"
)

// respondWithError writes a consistent JSON error response. If the error is an
// *AppError it uses the error's status code, code, and message. Otherwise it
// logs the unexpected error and returns a generic internal server error.
func respondWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil {
			logger.Get().Errorw("app error",
				"code", appErr.Code,
				"internal", appErr.Internal.Error(),
				"path", c.Request.URL.Path,
			)
		}
		c.JSON(appErr.StatusCode, gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
		return
	}

	logger.Get().Errorw("unexpected error",
		"error", err.Error(),
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
	)
	c.JSON(apperrors.ErrInternalServer.StatusCode, gin.H{
		"error": gin.H{
			"code":    apperrors.ErrInternalServer.Code,
			"message": apperrors.ErrInternalServer.Message,
		},
	})
}

// HoldingResponse is one holding row in a portfolio response.
type HoldingResponse struct {
	Symbol              string  `json:"symbol"`
	Quantity            float64 `json:"quantity"`
	TotalCost           float64 `json:"totalcost"`
	LastTransactionDate string  `json:"lasttransactiondate"`
}

// holdingResponses converts ledger rows to their response shape.
func holdingResponses(rows []ledger.Row) []HoldingResponse {
	out := make([]HoldingResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, HoldingResponse{
			Symbol:              r.Ticker,
			Quantity:            r.Quantity,
			TotalCost:           ledger.Round2(ledger.EffectiveTotalCost(r)),
			LastTransactionDate: r.LastTransactionDate,
		})
	}
	return out
}

// portfolioResponse shapes a PortfolioView for JSON.
func portfolioResponse(view *services.PortfolioView) gin.H {
	return gin.H{
		"name":      view.Name,
		"portfolio": holdingResponses(view.Holdings),
	}
}

// ErrorDetail represents the inner error object in an error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}
