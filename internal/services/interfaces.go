package services

import (
	"context"
	"io"

	"stockfolio/internal/ledger"
	"stockfolio/internal/models"
)

// TokenPair is one issued access/refresh token pair. Expiry instants are
// ISO-8601 UTC strings, matching the login and refresh response payloads.
type TokenPair struct {
	AccessToken      string `json:"access_token"`
	AccessExpiresAt  string `json:"access_expires_at"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresAt string `json:"refresh_expires_at"`
}

// TokenServicer defines the contract for the session token lifecycle.
type TokenServicer interface {
	IssuePair(userID uint) (*TokenPair, error)
	Validate(token string, kind models.TokenKind) (*models.User, error)
	Rotate(refreshToken string) (*TokenPair, error)
	RevokeAll(userID uint) error
}

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	Register(username, password string) (*models.User, bool, error)
	AttemptLogin(username, password string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	UpdateTheme(userID uint, theme models.ThemeMode) error
}

// QuoteServicer defines the contract for the cache-aside price/name store.
type QuoteServicer interface {
	GetPrice(ctx context.Context, symbol string, forceRefresh bool) (float64, error)
	GetName(ctx context.Context, symbol string, forceRefresh bool) (string, error)
}

// PortfolioView is a portfolio resolved for a response: its name and its
// holdings as ledger rows, most recent transaction first.
type PortfolioView struct {
	Name     string
	Holdings []ledger.Row
}

// PortfolioServicer defines the contract for portfolio-related business logic.
type PortfolioServicer interface {
	Create(userID uint, name string) (active string, created bool, err error)
	Select(userID uint, name string) error
	List(userID uint) (names []string, active string, err error)
	Get(userID uint, name string) (*PortfolioView, error)
	Buy(ctx context.Context, userID uint, name, symbol, quantity string) (*PortfolioView, string, error)
	Sell(ctx context.Context, userID uint, name, symbol, quantity string) (*PortfolioView, string, error)
	LoadCSV(userID uint, name string, r io.Reader) (*PortfolioView, error)
	ExportCSV(userID uint, name string, w io.Writer) (count int, err error)
	DistinctSymbols() ([]string, error)
}

// AdvisorProfile is the risk/goal profile submitted with an advisor request.
type AdvisorProfile struct {
	RiskTolerance string `json:"risk_tolerance"`
	Horizon       string `json:"horizon"`
	Goals         string `json:"goals"`
}

// AdvisorServicer defines the contract for the LLM advisor call-through.
type AdvisorServicer interface {
	Advise(ctx context.Context, userID uint, profile AdvisorProfile) ([]string, error)
	History(userID uint) ([]models.AdvisorHistory, error)
}
