// Package ledger applies buy/sell transactions to an in-memory holdings
// list and encodes that list to and from the portfolio CSV format. It is
// pure bookkeeping: prices are supplied by the caller, storage is the
// caller's problem.
package ledger

import (
	"fmt"
	"math"
	"strconv"
	"time"

	apperrors "stockfolio/internal/errors"
)

// Row is one holding as the ledger sees it: a symbol, a whole-share
// quantity, and whatever cost fields survived the source it came from.
type Row struct {
	Ticker              string
	Quantity            float64
	AvgCost             *float64
	CurPrice            *float64
	TotalCost           *float64
	LastTransactionDate string
}

// timeNow is swapped out in tests to pin transaction timestamps.
var timeNow = time.Now

// ParseShareCount parses a share quantity string. "3" and "3.0" are
// valid; "3.5", zero, and negatives are not. Whole shares only.
func ParseShareCount(s string) (int, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, apperrors.ErrInvalidQuantity
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, apperrors.ErrInvalidQuantity
	}
	n := int(f)
	if n <= 0 {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidQuantity, "Quantity must be a positive whole number of shares")
	}
	return n, nil
}

// Round2 rounds to two decimal places, the precision every cost figure
// in the ledger carries.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// EffectiveTotalCost derives a row's total cost basis. Derivation order:
// explicit total cost, else average cost times quantity, else current
// price times quantity, else zero. CSV round-trips depend on this exact
// order.
func EffectiveTotalCost(r Row) float64 {
	if r.TotalCost != nil {
		return *r.TotalCost
	}
	if r.AvgCost != nil {
		return *r.AvgCost * r.Quantity
	}
	if r.CurPrice != nil {
		return *r.CurPrice * r.Quantity
	}
	return 0
}

// Buy applies a purchase of qty shares of symbol at price. An existing
// row for the symbol is increased in place; otherwise a new row is
// appended. The affected row is stamped with the current UTC instant.
func Buy(rows []Row, symbol string, qty int, price float64) ([]Row, string, error) {
	now := timeNow().UTC().Format(time.RFC3339Nano)

	for i := range rows {
		if rows[i].Ticker != symbol {
			continue
		}
		existing := int(rows[i].Quantity)
		total := Round2(EffectiveTotalCost(rows[i]) + float64(qty)*price)
		rows[i].Quantity = float64(existing + qty)
		rows[i].TotalCost = &total
		rows[i].LastTransactionDate = now
		return rows, buyMessage(qty, symbol, price), nil
	}

	total := Round2(float64(qty) * price)
	rows = append(rows, Row{
		Ticker:              symbol,
		Quantity:            float64(qty),
		TotalCost:           &total,
		LastTransactionDate: now,
	})
	return rows, buyMessage(qty, symbol, price), nil
}

// Sell applies a sale of qty shares of symbol at price. Selling a symbol
// that is not held fails with NO_SUCH_HOLDING; selling more than held
// fails with INSUFFICIENT_HOLDINGS and leaves the row untouched.
func Sell(rows []Row, symbol string, qty int, price float64) ([]Row, string, error) {
	for i := range rows {
		if rows[i].Ticker != symbol {
			continue
		}
		existing := int(rows[i].Quantity)
		if existing < qty {
			msg := fmt.Sprintf("Not enough holdings for %s. Current holdings: %d; quantity to be sold: %d", symbol, existing, qty)
			return rows, "", apperrors.WithMessage(apperrors.ErrInsufficientHoldings, msg)
		}
		total := Round2(EffectiveTotalCost(rows[i]) - float64(qty)*price)
		rows[i].Quantity = float64(existing - qty)
		rows[i].TotalCost = &total
		rows[i].LastTransactionDate = timeNow().UTC().Format(time.RFC3339Nano)
		return rows, fmt.Sprintf("Transaction completed successfully! Sold %d shares of %s at $%v each.", qty, symbol, price), nil
	}
	return rows, "", apperrors.WithMessage(apperrors.ErrNoSuchHolding, fmt.Sprintf("No holdings for %s in portfolio!", symbol))
}

func buyMessage(qty int, symbol string, price float64) string {
	return fmt.Sprintf("Transaction completed successfully! Bought %d shares of %s at $%v each.", qty, symbol, price)
}
