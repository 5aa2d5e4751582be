package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"stockfolio/internal/handlers"
	"stockfolio/internal/logger"
	"stockfolio/internal/middleware"
	"stockfolio/internal/models"
	"stockfolio/internal/services"
	"stockfolio/internal/validator"
)

// errTestFeedDown simulates an unreachable upstream price feed.
var errTestFeedDown = fmt.Errorf("feed down")

// stubQuote is a controllable price source for the full-stack tests.
type stubQuote struct {
	Price float64
	Name  string
	Err   error
}

func (s *stubQuote) Quote(context.Context, string) (float64, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	return s.Price, nil
}

func (s *stubQuote) CompanyName(context.Context, string, string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	return s.Name, nil
}

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
	Quotes *stubQuote
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.User{},
		&models.Portfolio{},
		&models.Holding{},
		&models.SessionToken{},
		&models.PriceCache{},
		&models.TickerMetadata{},
		&models.AdvisorHistory{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory
// SQLite, with a stub price source and no advisor endpoint.
func setupApp(t *testing.T) *testApp {
	return setupAppWithAdvisor(t, "")
}

// setupAppWithAdvisor is setupApp with an explicit advisor base URL, so tests
// can point the advisor at a local stub server.
func setupAppWithAdvisor(t *testing.T, advisorURL string) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)
	quotes := &stubQuote{Price: 100, Name: "Test Corp"}

	// Services
	userService := services.NewUserService(db)
	tokenService := services.NewTokenService(db, 7*24*time.Hour)
	quoteService := services.NewQuoteService(db, quotes, 10*time.Minute, 30*24*time.Hour, "US")
	portfolioService := services.NewPortfolioService(db, quoteService)
	advisorService := services.NewAdvisorService(db, portfolioService, nil, advisorURL, "test-key", "test-model")

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, tokenService)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService, t.TempDir())
	marketHandler := handlers.NewMarketHandler(quoteService)
	advisorHandler := handlers.NewAdvisorHandler(advisorService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	router.POST("/register", authHandler.Register)
	router.POST("/login", authHandler.Login)
	router.POST("/token/refresh", authHandler.Refresh)
	router.GET("/get_price", marketHandler.GetPrice)

	protected := router.Group("/")
	protected.Use(middleware.Auth(tokenService))

	protected.POST("/logout", authHandler.Logout)
	protected.GET("/user/me", authHandler.Me)
	protected.PUT("/user/theme", authHandler.UpdateTheme)

	protected.POST("/portfolio/create", portfolioHandler.Create)
	protected.POST("/portfolio/select", portfolioHandler.Select)
	protected.GET("/portfolio", portfolioHandler.Get)
	protected.POST("/portfolio/load", portfolioHandler.Load)
	protected.POST("/portfolio/save", portfolioHandler.Save)
	protected.GET("/portfolio/file/:filename", portfolioHandler.Download)

	protected.POST("/buy", portfolioHandler.Buy)
	protected.POST("/sell", portfolioHandler.Sell)
	protected.GET("/ticker/name", marketHandler.GetName)

	protected.POST("/advisor", advisorHandler.Advise)
	protected.GET("/advisor/history", advisorHandler.History)

	return &testApp{DB: db, Router: router, Quotes: quotes}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerUser registers a new user.
func (app *testApp) registerUser(t *testing.T, username, password string) {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":%q}`, username, password)
	rec := app.request("POST", "/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
}

// loginUser logs in and returns the access and refresh tokens.
func (app *testApp) loginUser(t *testing.T, username, password string) (accessToken, refreshToken string) {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":%q}`, username, password)
	rec := app.request("POST", "/login", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	return result["access_token"].(string), result["refresh_token"].(string)
}

// errorCode digs the error code out of an error response body.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	result := parseJSON(t, rec)
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in body: %s", rec.Body.String())
	}
	return errObj["code"].(string)
}
