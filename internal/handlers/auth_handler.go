package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "stockfolio/internal/errors"
	"stockfolio/internal/middleware"
	"stockfolio/internal/models"
	"stockfolio/internal/services"
)

// AuthHandler handles registration, login, token refresh, logout, and
// the user profile endpoints.
type AuthHandler struct {
	users  services.UserServicer
	tokens services.TokenServicer
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(users services.UserServicer, tokens services.TokenServicer) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ThemeRequest represents the theme preference payload
type ThemeRequest struct {
	Theme string `json:"theme" binding:"required,theme_mode"`
}

// Register handles user registration
// @Summary     Register a new user
// @Description Register a new user with username and password. Registering an existing username with the same password resets the account to a fresh default portfolio.
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body RegisterRequest true "User registration data"
// @Success     201 {object} map[string]string "User registered"
// @Success     200 {object} map[string]string "Existing user reset"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Username already exists"
// @Router      /register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	_, reset, err := h.users.Register(req.Username, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if reset {
		c.JSON(http.StatusOK, gin.H{"message": "User already exists; reset state"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User registered"})
}

// Login handles user login
// @Summary     Login user
// @Description Authenticate a user and issue an access/refresh token pair
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body LoginRequest true "User login credentials"
// @Success     200 {object} services.TokenPair "Token pair with portfolio list"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid credentials"
// @Router      /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	user, err := h.users.AttemptLogin(req.Username, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	pair, err := h.tokens.IssuePair(user.ID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	names := make([]string, 0, len(user.Portfolios))
	for _, p := range user.Portfolios {
		names = append(names, p.Name)
	}
	active := user.ActivePortfolio
	if active == "" {
		active = services.DefaultPortfolioName
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":       pair.AccessToken,
		"access_expires_at":  pair.AccessExpiresAt,
		"refresh_token":      pair.RefreshToken,
		"refresh_expires_at": pair.RefreshExpiresAt,
		"portfolios":         names,
		"active":             active,
	})
}

// Refresh rotates a refresh token
// @Summary     Refresh tokens
// @Description Present a refresh token as the bearer credential and receive a new access/refresh pair. The used refresh token is invalidated.
// @Tags        auth
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.TokenPair "New token pair"
// @Failure     401 {object} ErrorResponse "Invalid or expired refresh token"
// @Router      /token/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	token, err := middleware.BearerToken(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	pair, err := h.tokens.Rotate(token)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Logout revokes all of the user's tokens
// @Summary     Logout
// @Description Delete every session token belonging to the authenticated user
// @Tags        auth
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]string "Logged out"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.tokens.RevokeAll(user.ID); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns the user's profile
// @Summary     Get user profile
// @Description Get the authenticated user's username, portfolios, active portfolio, and theme
// @Tags        user
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]interface{} "User profile"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /user/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	// The context user was loaded by the auth middleware without
	// associations; fetch portfolios for the profile payload.
	full, err := h.users.GetUserByID(user.ID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	names := make([]string, 0, len(full.Portfolios))
	for _, p := range full.Portfolios {
		names = append(names, p.Name)
	}
	active := full.ActivePortfolio
	if active == "" {
		active = services.DefaultPortfolioName
	}

	c.JSON(http.StatusOK, gin.H{
		"username":   full.Username,
		"portfolios": names,
		"active":     active,
		"theme":      full.Theme,
	})
}

// UpdateTheme stores the user's theme preference
// @Summary     Update theme
// @Description Set the authenticated user's UI theme to light or dark
// @Tags        user
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ThemeRequest true "Theme preference"
// @Success     200 {object} map[string]string "Updated theme"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /user/theme [put]
func (h *AuthHandler) UpdateTheme(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ThemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if err := h.users.UpdateTheme(user.ID, models.ThemeMode(req.Theme)); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"theme": req.Theme})
}
