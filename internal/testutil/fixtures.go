package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"stockfolio/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// UniqueSymbol returns a ticker-shaped symbol unique within the test run.
// The shared in-memory database persists cache rows across tests, so
// symbol-keyed tests need distinct symbols.
func UniqueSymbol() string {
	return fmt.Sprintf("TST%d", nextID())
}

// CreateTestUser creates a user with a hashed password and unique username.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	username := fmt.Sprintf("user%d", nextID())
	return CreateTestUserWithUsername(t, db, username)
}

// CreateTestUserWithUsername creates a user with the given username.
func CreateTestUserWithUsername(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		Theme:        models.ThemeLight,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestPortfolio creates a named portfolio for the user and makes it active.
func CreateTestPortfolio(t *testing.T, db *gorm.DB, userID uint, name string) *models.Portfolio {
	t.Helper()

	portfolio := &models.Portfolio{
		UserID: userID,
		Name:   name,
	}
	if err := db.Create(portfolio).Error; err != nil {
		t.Fatalf("failed to create test portfolio: %v", err)
	}
	if err := db.Model(&models.User{}).Where("id = ?", userID).
		Update("active_portfolio", name).Error; err != nil {
		t.Fatalf("failed to set active portfolio: %v", err)
	}
	return portfolio
}

// CreateTestHolding creates a holding row in the given portfolio.
func CreateTestHolding(t *testing.T, db *gorm.DB, portfolioID uint, symbol string, quantity, totalCost float64) *models.Holding {
	t.Helper()

	holding := &models.Holding{
		PortfolioID:         portfolioID,
		Symbol:              symbol,
		Quantity:            quantity,
		TotalCost:           &totalCost,
		LastTransactionDate: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := db.Create(holding).Error; err != nil {
		t.Fatalf("failed to create test holding: %v", err)
	}
	return holding
}

// CreateTestSessionToken creates a session token for the user.
func CreateTestSessionToken(t *testing.T, db *gorm.DB, userID uint, kind models.TokenKind, expiresAt time.Time) *models.SessionToken {
	t.Helper()

	token := &models.SessionToken{
		Token:     fmt.Sprintf("testtoken%d", nextID()),
		UserID:    userID,
		Kind:      kind,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.Create(token).Error; err != nil {
		t.Fatalf("failed to create test session token: %v", err)
	}
	return token
}

// CreateTestAdvisorHistory creates a saved advisor exchange for the user.
func CreateTestAdvisorHistory(t *testing.T, db *gorm.DB, userID uint) *models.AdvisorHistory {
	t.Helper()

	entry := &models.AdvisorHistory{
		UserID:          userID,
		Profile:         `{"risk_tolerance":"moderate","horizon":"5y","goals":"growth"}`,
		Recommendations: fmt.Sprintf(`["Recommendation %d"]`, nextID()),
		CreatedAt:       time.Now().UTC(),
	}
	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("failed to create test advisor history: %v", err)
	}
	return entry
}
