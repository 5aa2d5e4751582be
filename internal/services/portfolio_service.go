package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strings"

	"gorm.io/gorm"

	apperrors "stockfolio/internal/errors"
	"stockfolio/internal/ledger"
	"stockfolio/internal/logger"
	"stockfolio/internal/models"
)

// portfolioService orchestrates portfolio CRUD, buy/sell application,
// and CSV import/export against the database.
type portfolioService struct {
	db     *gorm.DB
	quotes QuoteServicer
}

// NewPortfolioService creates a new PortfolioServicer.
func NewPortfolioService(db *gorm.DB, quotes QuoteServicer) PortfolioServicer {
	return &portfolioService{db: db, quotes: quotes}
}

// Create adds a named portfolio for the user and makes it active. If the
// name already exists the call is idempotent: the portfolio is simply
// selected. The bool return reports whether a new portfolio was created.
func (s *portfolioService) Create(userID uint, name string) (string, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false, apperrors.WithMessage(apperrors.ErrInvalidInput, "Portfolio name required")
	}

	var existing models.Portfolio
	err := s.db.Where("user_id = ? AND name = ?", userID, name).First(&existing).Error
	if err == nil {
		if err := s.setActive(userID, name); err != nil {
			return "", false, err
		}
		return name, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.Portfolio{UserID: userID, Name: name}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).Update("active_portfolio", name).Error
	})
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}

// Select makes an existing portfolio the user's active one.
func (s *portfolioService) Select(userID uint, name string) error {
	var count int64
	if err := s.db.Model(&models.Portfolio{}).Where("user_id = ? AND name = ?", userID, name).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return apperrors.ErrPortfolioNotFound
	}
	return s.setActive(userID, name)
}

// List returns the user's portfolio names and the active one.
func (s *portfolioService) List(userID uint) ([]string, string, error) {
	var names []string
	if err := s.db.Model(&models.Portfolio{}).Where("user_id = ?", userID).Order("id").Pluck("name", &names).Error; err != nil {
		return nil, "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	active := user.ActivePortfolio
	if active == "" {
		active = DefaultPortfolioName
	}
	return names, active, nil
}

// Get resolves a portfolio (named, else active, else "default") to a
// view with holdings sorted most recent transaction first.
func (s *portfolioService) Get(userID uint, name string) (*PortfolioView, error) {
	portfolio, err := s.resolve(userID, name)
	if err != nil {
		return nil, err
	}
	rows := holdingsToRows(portfolio.Holdings)
	sortRowsByDateDesc(rows)
	return &PortfolioView{Name: portfolio.Name, Holdings: rows}, nil
}

// Buy purchases whole shares at a force-refreshed quote and applies the
// result to the portfolio's holdings.
func (s *portfolioService) Buy(ctx context.Context, userID uint, name, symbol, quantity string) (*PortfolioView, string, error) {
	return s.trade(ctx, userID, name, symbol, quantity, ledger.Buy)
}

// Sell sells whole shares at a force-refreshed quote and applies the
// result to the portfolio's holdings.
func (s *portfolioService) Sell(ctx context.Context, userID uint, name, symbol, quantity string) (*PortfolioView, string, error) {
	return s.trade(ctx, userID, name, symbol, quantity, ledger.Sell)
}

// trade runs the shared buy/sell path: parse quantity, resolve a fresh
// price, apply the ledger operation, then replace the portfolio's
// holdings in one transaction. Price resolution failure never reaches
// the ledger.
func (s *portfolioService) trade(
	ctx context.Context,
	userID uint,
	name, symbol, quantity string,
	apply func([]ledger.Row, string, int, float64) ([]ledger.Row, string, error),
) (*PortfolioView, string, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, "", apperrors.WithMessage(apperrors.ErrInvalidInput, "Symbol and quantity required")
	}
	qty, err := ledger.ParseShareCount(quantity)
	if err != nil {
		return nil, "", err
	}

	// Trades always run against a fresh quote, never a cached one.
	price, err := s.quotes.GetPrice(ctx, symbol, true)
	if err != nil {
		return nil, "", err
	}

	portfolio, err := s.resolve(userID, name)
	if err != nil {
		return nil, "", err
	}

	rows, message, err := apply(holdingsToRows(portfolio.Holdings), symbol, qty, price)
	if err != nil {
		return nil, "", err
	}

	if err := s.replaceHoldings(portfolio.ID, rows); err != nil {
		return nil, "", err
	}

	sortRowsByDateDesc(rows)
	return &PortfolioView{Name: portfolio.Name, Holdings: rows}, message, nil
}

// LoadCSV replaces the holdings of the named (or active) portfolio with
// the file contents, creating the portfolio on first load of a new name.
// The loaded portfolio becomes active.
func (s *portfolioService) LoadCSV(userID uint, name string, r io.Reader) (*PortfolioView, error) {
	rows, err := ledger.ReadCSV(r)
	if err != nil {
		return nil, err
	}

	pname, err := s.resolveName(userID, name)
	if err != nil {
		return nil, err
	}

	var portfolio models.Portfolio
	err = s.db.Where("user_id = ? AND name = ?", userID, pname).First(&portfolio).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		portfolio = models.Portfolio{UserID: userID, Name: pname}
		if err := s.db.Create(&portfolio).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	} else if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.replaceHoldings(portfolio.ID, rows); err != nil {
		return nil, err
	}
	if err := s.setActive(userID, pname); err != nil {
		return nil, err
	}

	logger.Get().Infow("portfolio loaded from csv", "user_id", userID, "portfolio", pname, "rows", len(rows))
	return &PortfolioView{Name: pname, Holdings: rows}, nil
}

// ExportCSV writes the named (or active) portfolio to w in the portfolio
// CSV format and returns the number of holdings written.
func (s *portfolioService) ExportCSV(userID uint, name string, w io.Writer) (int, error) {
	portfolio, err := s.resolve(userID, name)
	if err != nil {
		return 0, err
	}
	rows := holdingsToRows(portfolio.Holdings)
	if err := ledger.WriteCSV(w, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// DistinctSymbols lists every symbol held in any portfolio. Used by the
// startup ticker-name backfill.
func (s *portfolioService) DistinctSymbols() ([]string, error) {
	var symbols []string
	if err := s.db.Model(&models.Holding{}).Distinct("symbol").Pluck("symbol", &symbols).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return symbols, nil
}

// resolveName picks the explicit name, else the user's active portfolio,
// else "default".
func (s *portfolioService) resolveName(userID uint, name string) (string, error) {
	if name = strings.TrimSpace(name); name != "" {
		return name, nil
	}
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.ErrUserNotFound
		}
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if user.ActivePortfolio != "" {
		return user.ActivePortfolio, nil
	}
	return DefaultPortfolioName, nil
}

// resolve loads the named (or active) portfolio with holdings.
func (s *portfolioService) resolve(userID uint, name string) (*models.Portfolio, error) {
	pname, err := s.resolveName(userID, name)
	if err != nil {
		return nil, err
	}

	var portfolio models.Portfolio
	err = s.db.Preload("Holdings").Where("user_id = ? AND name = ?", userID, pname).First(&portfolio).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrPortfolioNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &portfolio, nil
}

func (s *portfolioService) setActive(userID uint, name string) error {
	if err := s.db.Model(&models.User{}).Where("id = ?", userID).Update("active_portfolio", name).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// replaceHoldings swaps a portfolio's holdings wholesale inside one
// transaction. Concurrent trades on the same portfolio are
// last-write-wins; no version check is performed.
func (s *portfolioService) replaceHoldings(portfolioID uint, rows []ledger.Row) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("portfolio_id = ?", portfolioID).Delete(&models.Holding{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		for _, r := range rows {
			h := rowToHolding(portfolioID, r)
			if err := tx.Create(&h).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		return nil
	})
}

func holdingsToRows(holdings []models.Holding) []ledger.Row {
	rows := make([]ledger.Row, 0, len(holdings))
	for _, h := range holdings {
		rows = append(rows, ledger.Row{
			Ticker:              h.Symbol,
			Quantity:            h.Quantity,
			AvgCost:             h.AvgCost,
			CurPrice:            h.CurPrice,
			TotalCost:           h.TotalCost,
			LastTransactionDate: h.LastTransactionDate,
		})
	}
	return rows
}

func rowToHolding(portfolioID uint, r ledger.Row) models.Holding {
	snapshot, _ := json.Marshal(r)
	return models.Holding{
		PortfolioID:         portfolioID,
		Symbol:              r.Ticker,
		Quantity:            r.Quantity,
		AvgCost:             r.AvgCost,
		CurPrice:            r.CurPrice,
		TotalCost:           r.TotalCost,
		LastTransactionDate: r.LastTransactionDate,
		Raw:                 string(snapshot),
	}
}

// sortRowsByDateDesc orders holdings newest transaction first; rows with
// unparsable dates keep their relative order at the end.
func sortRowsByDateDesc(rows []ledger.Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		ti, oki := ledger.ParseTransactionDate(rows[i].LastTransactionDate)
		tj, okj := ledger.ParseTransactionDate(rows[j].LastTransactionDate)
		if oki != okj {
			return oki
		}
		return ti.After(tj)
	})
}

