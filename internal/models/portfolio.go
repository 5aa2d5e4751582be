package models

// Portfolio is a named collection of holdings owned by one user.
// Names are unique per user, not globally.
type Portfolio struct {
	Base
	UserID uint   `gorm:"not null;uniqueIndex:uq_portfolios_user_name" json:"user_id"`
	Name   string `gorm:"not null;uniqueIndex:uq_portfolios_user_name" json:"name"`

	Holdings []Holding `gorm:"foreignKey:PortfolioID;constraint:OnDelete:CASCADE" json:"holdings,omitempty"`
}

// Holding is one row per distinct symbol per portfolio. Quantity is an
// integer-valued float; fractional shares are rejected at the ledger level.
type Holding struct {
	Base
	PortfolioID         uint     `gorm:"not null;index" json:"portfolio_id"`
	Symbol              string   `gorm:"not null" json:"symbol"`
	Quantity            float64  `gorm:"not null;default:0" json:"quantity"`
	AvgCost             *float64 `json:"avgcost,omitempty"`
	TotalCost           *float64 `json:"totalcost,omitempty"`
	CurPrice            *float64 `json:"curprice,omitempty"`
	LastTransactionDate string   `json:"lasttransactiondate"`
	Raw                 string   `gorm:"type:text" json:"-"`
}
