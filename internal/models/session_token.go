package models

import "time"

// TokenKind distinguishes short-lived access tokens from long-lived
// refresh tokens.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// SessionToken is an opaque bearer token row. Tokens are looked up by
// exact string, deleted lazily on first use after expiry, and refresh
// tokens are deleted on rotation (single use).
type SessionToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Kind      TokenKind `gorm:"not null;default:'access'" json:"kind"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
