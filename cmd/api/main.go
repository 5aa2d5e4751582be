package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"stockfolio/internal/config"
	"stockfolio/internal/database"
	"stockfolio/internal/finnhub"
	"stockfolio/internal/handlers"
	"stockfolio/internal/logger"
	"stockfolio/internal/middleware"
	"stockfolio/internal/services"
	"stockfolio/internal/validator"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "stockfolio/internal/docs" // Import swagger docs
)

// @title           Stockfolio API
// @version         1.0
// @description     Stockfolio is a stock portfolio tracker: accounts, multiple portfolios per user, buy/sell at live prices, CSV import/export, and an investment advisor.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(database.NewConfig())
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Register custom request validators
	validator.Register()

	// Initialize services
	db := dbManager.DB()
	finnhubClient := finnhub.NewClient(appConfig.FinnhubAPIKey, nil)
	userService := services.NewUserService(db)
	tokenService := services.NewTokenService(db, appConfig.RefreshTokenTTL)
	quoteService := services.NewQuoteService(db, finnhubClient, appConfig.PriceCacheTTL, appConfig.TickerNameTTL, appConfig.FinnhubExchange)
	portfolioService := services.NewPortfolioService(db, quoteService)
	advisorService := services.NewAdvisorService(db, portfolioService, nil, appConfig.AdvisorAPIURL, appConfig.AdvisorAPIKey, appConfig.AdvisorModel)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, tokenService)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService, appConfig.ExportDir)
	marketHandler := handlers.NewMarketHandler(quoteService)
	advisorHandler := handlers.NewAdvisorHandler(advisorService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public routes
	router.POST("/register", authHandler.Register)
	router.POST("/login", authHandler.Login)
	router.POST("/token/refresh", authHandler.Refresh)
	router.GET("/get_price", marketHandler.GetPrice)

	// Protected routes
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

	if appConfig.EnableTickerBackfill {
		go backfillTickerNames(portfolioService, quoteService)
	}

	log.Infof("Starting Stockfolio backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}

// backfillTickerNames warms the display-name cache for every symbol held in
// any portfolio. Failures are logged and skipped so startup never blocks on
// the upstream API.
func backfillTickerNames(portfolios services.PortfolioServicer, quotes services.QuoteServicer) {
	log := logger.Get()

	symbols, err := portfolios.DistinctSymbols()
	if err != nil {
		log.Warnf("Ticker name backfill: failed to list held symbols: %v", err)
		return
	}

	ctx := context.Background()
	resolved := 0
	for _, symbol := range symbols {
		nameCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		_, err := quotes.GetName(nameCtx, symbol, false)
		cancel()
		if err != nil {
			log.Warnf("Ticker name backfill: could not resolve %s: %v", symbol, err)
			continue
		}
		resolved++
	}
	log.Infof("Ticker name backfill complete: resolved %d of %d symbols", resolved, len(symbols))
}
