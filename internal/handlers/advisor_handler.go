package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "stockfolio/internal/errors"
	"stockfolio/internal/middleware"
	"stockfolio/internal/services"
)

// AdvisorHandler serves investment recommendation requests.
type AdvisorHandler struct {
	advisor services.AdvisorServicer
}

// NewAdvisorHandler creates a new AdvisorHandler
func NewAdvisorHandler(advisor services.AdvisorServicer) *AdvisorHandler {
	return &AdvisorHandler{advisor: advisor}
}

// AdviseRequest represents the advisor request payload
type AdviseRequest struct {
	RiskTolerance string `json:"risk_tolerance" binding:"required,max=64"`
	Horizon       string `json:"horizon" binding:"required,max=64"`
	Goals         string `json:"goals" binding:"required,max=512"`
}

// HistoryEntry is one saved advisor exchange.
type HistoryEntry struct {
	Profile         string `json:"profile"`
	Recommendations string `json:"recommendations"`
	CreatedAt       string `json:"created_at"`
}

// Advise requests investment recommendations
// @Summary     Get recommendations
// @Description Send the user's active portfolio and risk profile to the advisor model and return its recommendations
// @Tags        advisor
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body AdviseRequest true "Risk profile"
// @Success     200 {object} map[string]interface{} "Recommendations"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     502 {object} ErrorResponse "Advisor unavailable"
// @Router      /advisor [post]
func (h *AdvisorHandler) Advise(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AdviseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	recs, err := h.advisor.Advise(c.Request.Context(), user.ID, services.AdvisorProfile{
		RiskTolerance: req.RiskTolerance,
		Horizon:       req.Horizon,
		Goals:         req.Goals,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": recs})
}

// History returns recent advisor exchanges
// @Summary     Get advisor history
// @Description Get the user's most recent advisor exchanges, newest first
// @Tags        advisor
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]interface{} "Recent exchanges"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /advisor/history [get]
func (h *AdvisorHandler) History(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	entries, err := h.advisor.History(user.ID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	history := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		history = append(history, HistoryEntry{
			Profile:         e.Profile,
			Recommendations: e.Recommendations,
			CreatedAt:       e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}
