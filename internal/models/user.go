package models

// ThemeMode is the user's preferred UI theme.
type ThemeMode string

const (
	ThemeLight ThemeMode = "light"
	ThemeDark  ThemeMode = "dark"
)

// User represents the user model in the database
type User struct {
	Base
	Username        string    `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash    string    `gorm:"not null" json:"-"`
	ActivePortfolio string    `json:"active_portfolio"`
	Theme           ThemeMode `gorm:"default:'light'" json:"theme"`

	Portfolios       []Portfolio      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"portfolios,omitempty"`
	SessionTokens    []SessionToken   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	AdvisorHistories []AdvisorHistory `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
