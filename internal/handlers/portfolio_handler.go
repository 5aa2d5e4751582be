package handlers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "stockfolio/internal/errors"
	"stockfolio/internal/middleware"
	"stockfolio/internal/services"
)

// PortfolioHandler handles portfolio CRUD, buy/sell, and CSV
// import/export requests.
type PortfolioHandler struct {
	portfolios services.PortfolioServicer
	exportDir  string
}

// NewPortfolioHandler creates a new PortfolioHandler. Saved CSV exports
// land in exportDir.
func NewPortfolioHandler(portfolios services.PortfolioServicer, exportDir string) *PortfolioHandler {
	return &PortfolioHandler{portfolios: portfolios, exportDir: exportDir}
}

// CreatePortfolioRequest represents the portfolio creation payload
type CreatePortfolioRequest struct {
	Name string `json:"name" binding:"required,max=64"`
}

// SelectPortfolioRequest represents the portfolio selection payload
type SelectPortfolioRequest struct {
	Name string `json:"name" binding:"required"`
}

// TradeRequest represents a buy or sell payload. Quantity is a string so
// the ledger can reject fractional shares like "3.5" with a precise error.
type TradeRequest struct {
	Symbol    string `json:"symbol" binding:"required,ticker"`
	Quantity  string `json:"quantity" binding:"required"`
	Portfolio string `json:"portfolio"`
}

// SavePortfolioRequest represents the CSV save payload
type SavePortfolioRequest struct {
	Filename  string `json:"filename" binding:"required"`
	Portfolio string `json:"portfolio"`
}

// Create creates (or idempotently selects) a named portfolio
// @Summary     Create portfolio
// @Description Create a named portfolio and make it active. Creating an existing name just selects it.
// @Tags        portfolio
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreatePortfolioRequest true "Portfolio name"
// @Success     200 {object} map[string]string "Created or selected"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /portfolio/create [post]
func (h *PortfolioHandler) Create(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreatePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	active, created, err := h.portfolios.Create(user.ID, req.Name)
	if err != nil {
		respondWithError(c, err)
		return
	}

	message := "Portfolio created"
	if !created {
		message = "Portfolio already exists"
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "active": active})
}

// Select makes an existing portfolio active
// @Summary     Select portfolio
// @Description Make an existing portfolio the active one
// @Tags        portfolio
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body SelectPortfolioRequest true "Portfolio name"
// @Success     200 {object} map[string]string "Selected"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolio/select [post]
func (h *PortfolioHandler) Select(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SelectPortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if err := h.portfolios.Select(user.ID, req.Name); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Selected", "active": req.Name})
}

// Get returns a portfolio's holdings
// @Summary     Get portfolio
// @Description Get the named (or active) portfolio's holdings, most recent transaction first
// @Tags        portfolio
// @Produce     json
// @Security    BearerAuth
// @Param       name query string false "Portfolio name (defaults to active)"
// @Success     200 {object} map[string]interface{} "Portfolio holdings"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolio [get]
func (h *PortfolioHandler) Get(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	view, err := h.portfolios.Get(user.ID, c.Query("name"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, portfolioResponse(view))
}

// Buy purchases shares into a portfolio
// @Summary     Buy shares
// @Description Buy a whole-share quantity of a symbol at a freshly fetched quote
// @Tags        portfolio
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body TradeRequest true "Trade details"
// @Success     200 {object} map[string]interface{} "Updated portfolio"
// @Failure     400 {object} ErrorResponse "Invalid quantity"
// @Failure     502 {object} ErrorResponse "Price unavailable"
// @Router      /buy [post]
func (h *PortfolioHandler) Buy(c *gin.Context) {
	h.trade(c, h.portfolios.Buy)
}

// Sell sells shares out of a portfolio
// @Summary     Sell shares
// @Description Sell a whole-share quantity of a held symbol at a freshly fetched quote
// @Tags        portfolio
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body TradeRequest true "Trade details"
// @Success     200 {object} map[string]interface{} "Updated portfolio"
// @Failure     400 {object} ErrorResponse "Insufficient holdings"
// @Failure     404 {object} ErrorResponse "No such holding"
// @Router      /sell [post]
func (h *PortfolioHandler) Sell(c *gin.Context) {
	h.trade(c, h.portfolios.Sell)
}

func (h *PortfolioHandler) trade(c *gin.Context, op func(ctx context.Context, userID uint, name, symbol, quantity string) (*services.PortfolioView, string, error)) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	view, message, err := op(c.Request.Context(), user.ID, req.Portfolio, req.Symbol, req.Quantity)
	if err != nil {
		respondWithError(c, err)
		return
	}

	resp := portfolioResponse(view)
	resp["message"] = message
	c.JSON(http.StatusOK, resp)
}

// Load replaces a portfolio's holdings from an uploaded CSV
// @Summary     Load portfolio CSV
// @Description Replace the named (or active) portfolio's holdings with the uploaded CSV contents
// @Tags        portfolio
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       file formData file true "Portfolio CSV"
// @Param       name query string false "Portfolio name (defaults to active)"
// @Success     200 {object} map[string]interface{} "Loaded portfolio"
// @Failure     400 {object} ErrorResponse "Invalid file"
// @Router      /portfolio/load [post]
func (h *PortfolioHandler) Load(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "CSV file required"))
		return
	}
	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".csv") {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "File must be a CSV"))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}
	defer f.Close()

	view, err := h.portfolios.LoadCSV(user.ID, c.Query("name"), f)
	if err != nil {
		respondWithError(c, err)
		return
	}

	resp := portfolioResponse(view)
	resp["message"] = "Portfolio loaded successfully!"
	c.JSON(http.StatusOK, resp)
}

// Save writes a portfolio to a server-side CSV file
// @Summary     Save portfolio CSV
// @Description Write the named (or active) portfolio to a server-side CSV file, prefixed with the username
// @Tags        portfolio
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body SavePortfolioRequest true "Target filename"
// @Success     200 {object} map[string]interface{} "Saved file details"
// @Failure     400 {object} ErrorResponse "Invalid filename or empty portfolio"
// @Router      /portfolio/save [post]
func (h *PortfolioHandler) Save(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SavePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	if !validCSVFilename(req.Filename) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Not a CSV file"))
		return
	}

	// Username prefix keeps different users' exports from colliding.
	savedName := fmt.Sprintf("%s_%s", user.Username, req.Filename)

	if err := os.MkdirAll(h.exportDir, 0o755); err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	out, err := os.Create(filepath.Join(h.exportDir, savedName))
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	defer out.Close()

	count, err := h.portfolios.ExportCSV(user.ID, req.Portfolio, out)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        fmt.Sprintf("Portfolio written successfully! Wrote %d records to %s", count, savedName),
		"saved_count":    count,
		"saved_filename": savedName,
	})
}

// Download serves a previously saved CSV export
// @Summary     Download portfolio CSV
// @Description Download a previously saved CSV export by filename
// @Tags        portfolio
// @Produce     text/csv
// @Security    BearerAuth
// @Param       filename path string true "Saved filename"
// @Success     200 {file} file "CSV file"
// @Failure     404 {object} ErrorResponse "File not found"
// @Router      /portfolio/file/{filename} [get]
func (h *PortfolioHandler) Download(c *gin.Context) {
	filename := c.Param("filename")
	if !validCSVFilename(filename) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid filename"))
		return
	}

	path := filepath.Join(h.exportDir, filename)
	if _, err := os.Stat(path); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrNotFound, "File not found"))
		return
	}
	c.FileAttachment(path, filename)
}

// validCSVFilename rejects traversal attempts and non-CSV names.
func validCSVFilename(name string) bool {
	if name == "" || strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return false
	}
	return strings.HasSuffix(strings.ToLower(name), ".csv")
}
