package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "stockfolio/internal/errors"
)

// csvHeader is the portfolio file format: one row per holding.
var csvHeader = []string{"ticker", "quantity", "totalcost", "lasttransactiondate"}

// WriteCSV encodes rows to the portfolio CSV format. Rows are sorted by
// last transaction date descending (most recent first); rows whose date
// cannot be parsed sink to the end in their original order.
func WriteCSV(w io.Writer, rows []Row) error {
	if len(rows) == 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Portfolio is empty. Please add ticker(s) into portfolio and try again.")
	}

	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, oki := ParseTransactionDate(sorted[i].LastTransactionDate)
		tj, okj := ParseTransactionDate(sorted[j].LastTransactionDate)
		if oki != okj {
			return oki
		}
		return ti.After(tj)
	})

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range sorted {
		record := []string{
			r.Ticker,
			formatFloat(r.Quantity),
			formatFloat(Round2(EffectiveTotalCost(r))),
			r.LastTransactionDate,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV decodes a portfolio CSV. Column names are matched
// case-insensitively; "symbol" and "qty" are accepted as aliases for
// "ticker" and "quantity" so older exports still load.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "CSV file is empty")
	}
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Could not read CSV header")
	}

	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}

	var rows []Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Could not read CSV row")
		}

		row := Row{
			Ticker:              field(record, idx, "ticker", "symbol"),
			LastTransactionDate: field(record, idx, "lasttransactiondate"),
		}
		if row.Ticker == "" {
			continue
		}
		if q := field(record, idx, "quantity", "qty"); q != "" {
			if v, err := strconv.ParseFloat(q, 64); err == nil {
				row.Quantity = v
			}
		}
		row.TotalCost = floatField(record, idx, "totalcost")
		row.AvgCost = floatField(record, idx, "avgcost")
		row.CurPrice = floatField(record, idx, "curprice")
		rows = append(rows, row)
	}
	return rows, nil
}

// field returns the first present, non-empty column among names.
func field(record []string, idx map[string]int, names ...string) string {
	for _, name := range names {
		if i, ok := idx[name]; ok && i < len(record) {
			if v := strings.TrimSpace(record[i]); v != "" {
				return v
			}
		}
	}
	return ""
}

func floatField(record []string, idx map[string]int, name string) *float64 {
	s := field(record, idx, name)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// formatFloat prints whole numbers without a decimal point, matching the
// format holdings are exported in.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// transactionDateLayouts are the timestamp shapes accepted for sorting.
var transactionDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTransactionDate parses a holding timestamp for sorting. The bool
// reports whether the string was parsable.
func ParseTransactionDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range transactionDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
