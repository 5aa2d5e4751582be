package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "stockfolio/internal/errors"
	"stockfolio/internal/logger"
	"stockfolio/internal/models"
)

// QuoteProvider is the external price/name source the cache-aside store
// reads through to. Implemented by finnhub.Client.
type QuoteProvider interface {
	Quote(ctx context.Context, symbol string) (float64, error)
	CompanyName(ctx context.Context, symbol, exchange string) (string, error)
}

// quoteService is the cache-aside store over price_cache and
// ticker_metadata. Within the TTL window it serves cached values; outside
// it (or under forceRefresh) it reads through to the provider, upserting
// on success and falling back to the stale cached value on failure.
// Racing refreshes are last-write-wins on updated_at.
type quoteService struct {
	db       *gorm.DB
	provider QuoteProvider
	priceTTL time.Duration
	nameTTL  time.Duration
	exchange string
}

// NewQuoteService creates a new QuoteServicer.
func NewQuoteService(db *gorm.DB, provider QuoteProvider, priceTTL, nameTTL time.Duration, exchange string) QuoteServicer {
	return &quoteService{
		db:       db,
		provider: provider,
		priceTTL: priceTTL,
		nameTTL:  nameTTL,
		exchange: exchange,
	}
}

// NormalizeSymbol trims and upper-cases a ticker symbol for cache lookup.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// GetPrice returns the current price for a symbol. Buy/sell callers pass
// forceRefresh to avoid trading against a stale quote.
func (s *quoteService) GetPrice(ctx context.Context, symbol string, forceRefresh bool) (float64, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "Symbol required")
	}

	var cached models.PriceCache
	haveCached := false
	err := s.db.Where("symbol = ?", symbol).First(&cached).Error
	if err == nil {
		haveCached = true
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, apperrors.Wrap(apperrors.ErrStorageUnavailable, err)
	}

	if haveCached && cached.Price != nil && !forceRefresh && time.Since(cached.UpdatedAt) <= s.priceTTL {
		return *cached.Price, nil
	}

	price, err := s.provider.Quote(ctx, symbol)
	if err != nil {
		logger.Get().Warnw("price fetch failed", "symbol", symbol, "error", err.Error())
		if haveCached && cached.Price != nil {
			// Stale beats nothing.
			return *cached.Price, nil
		}
		return 0, apperrors.Wrap(apperrors.ErrPriceUnavailable, err)
	}

	row := models.PriceCache{Symbol: symbol, Price: &price, UpdatedAt: time.Now().UTC()}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{"price", "updated_at"}),
	}).Create(&row).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return price, nil
}

// GetName returns the display name for a symbol. Names change rarely, so
// on provider failure a stale cached name is always preferred over none.
func (s *quoteService) GetName(ctx context.Context, symbol string, forceRefresh bool) (string, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "Symbol required")
	}

	var cached models.TickerMetadata
	haveCached := false
	err := s.db.Where("symbol = ?", symbol).First(&cached).Error
	if err == nil {
		haveCached = true
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperrors.Wrap(apperrors.ErrStorageUnavailable, err)
	}

	if haveCached && cached.Name != "" && !forceRefresh && time.Since(cached.UpdatedAt) <= s.nameTTL {
		return cached.Name, nil
	}

	name, err := s.provider.CompanyName(ctx, symbol, s.exchange)
	if err != nil || strings.TrimSpace(name) == "" {
		if err != nil {
			logger.Get().Warnw("name fetch failed", "symbol", symbol, "error", err.Error())
		}
		if haveCached && cached.Name != "" {
			return cached.Name, nil
		}
		return "", apperrors.WithMessage(apperrors.ErrNotFound, "No name found for symbol "+symbol)
	}
	name = strings.TrimSpace(name)

	row := models.TickerMetadata{Symbol: symbol, Name: name, UpdatedAt: time.Now().UTC()}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).Create(&row).Error; err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return name, nil
}
