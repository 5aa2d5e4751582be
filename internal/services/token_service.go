package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "stockfolio/internal/errors"
	"stockfolio/internal/models"
)

// accessTokenTTL is fixed; the refresh lifetime comes from configuration.
const accessTokenTTL = 15 * time.Minute

// tokenService implements the opaque two-token scheme. Every token is a
// row in session_tokens; validity is decided by lookup, expiry rows are
// deleted lazily on first access, and refresh tokens are single use.
type tokenService struct {
	db         *gorm.DB
	refreshTTL time.Duration
}

// NewTokenService creates a new TokenServicer.
func NewTokenService(db *gorm.DB, refreshTTL time.Duration) TokenServicer {
	return &tokenService{db: db, refreshTTL: refreshTTL}
}

// newOpaqueToken returns 32 bytes of cryptographic randomness as hex.
// Collisions are negligible; the unique index on the token column is the
// backstop.
func newOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// IssuePair creates and persists a fresh access/refresh token pair for
// the user.
func (s *tokenService) IssuePair(userID uint) (*TokenPair, error) {
	access, err := newOpaqueToken()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	refresh, err := newOpaqueToken()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	now := time.Now().UTC()
	accessExpires := now.Add(accessTokenTTL)
	refreshExpires := now.Add(s.refreshTTL)

	rows := []models.SessionToken{
		{Token: access, UserID: userID, Kind: models.TokenKindAccess, ExpiresAt: accessExpires, CreatedAt: now},
		{Token: refresh, UserID: userID, Kind: models.TokenKindRefresh, ExpiresAt: refreshExpires, CreatedAt: now},
	}
	if err := s.db.Create(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExpires.Format(time.RFC3339),
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExpires.Format(time.RFC3339),
	}, nil
}

// Validate resolves a token of the given kind to its owning user.
// Unknown tokens fail with UNAUTHENTICATED. Expired tokens are deleted
// on the spot and fail with TOKEN_EXPIRED; any later presentation of the
// same string is indistinguishable from an unknown token.
func (s *tokenService) Validate(token string, kind models.TokenKind) (*models.User, error) {
	st, err := s.lookup(token, kind)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.First(&user, st.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Cascade delete should make this impossible; handle it anyway.
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// Rotate trades a valid refresh token for a brand-new pair. The used
// refresh token is deleted first, so replaying it always fails.
func (s *tokenService) Rotate(refreshToken string) (*TokenPair, error) {
	st, err := s.lookup(refreshToken, models.TokenKindRefresh)
	if err != nil {
		return nil, err
	}

	if err := s.db.Delete(&models.SessionToken{}, st.ID).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.IssuePair(st.UserID)
}

// RevokeAll deletes every session token belonging to the user. Used by
// logout.
func (s *tokenService) RevokeAll(userID uint) error {
	if err := s.db.Where("user_id = ?", userID).Delete(&models.SessionToken{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// lookup finds a live token row, applying lazy expiry.
func (s *tokenService) lookup(token string, kind models.TokenKind) (*models.SessionToken, error) {
	if token == "" {
		return nil, apperrors.ErrUnauthenticated
	}

	var st models.SessionToken
	err := s.db.Where("token = ? AND kind = ?", token, kind).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrUnauthenticated
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, err)
	}

	if !st.ExpiresAt.IsZero() && !time.Now().UTC().Before(st.ExpiresAt) {
		if err := s.db.Delete(&models.SessionToken{}, st.ID).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil, apperrors.ErrTokenExpired
	}
	return &st, nil
}
