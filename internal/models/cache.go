package models

import "time"

// PriceCache holds the last fetched quote for a symbol, shared across
// all users. One row per symbol.
type PriceCache struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Symbol    string    `gorm:"uniqueIndex;not null" json:"symbol"`
	Price     *float64  `json:"price"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name used by PriceCache to `price_cache`
func (PriceCache) TableName() string {
	return "price_cache"
}

// TickerMetadata caches the human-readable display name for a symbol.
// Same cache-aside shape as PriceCache but with a much longer TTL.
type TickerMetadata struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Symbol    string    `gorm:"uniqueIndex;not null" json:"symbol"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name used by TickerMetadata to `ticker_metadata`
func (TickerMetadata) TableName() string {
	return "ticker_metadata"
}
