package services

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "stockfolio/internal/errors"
	"stockfolio/internal/logger"
	"stockfolio/internal/models"
)

// DefaultPortfolioName is the portfolio every user owns after registration.
const DefaultPortfolioName = "default"

// userService handles user-related business logic.
type userService struct {
	db *gorm.DB
}

// NewUserService creates a new UserServicer.
func NewUserService(db *gorm.DB) UserServicer {
	return &userService{db: db}
}

// Register creates a new user with a hashed password and a "default"
// portfolio. Registering an existing username with the matching password
// is treated as an idempotent account reset: all portfolios and holdings
// are deleted and a fresh "default" portfolio is created. A mismatched
// password is a conflict. The bool return reports whether a reset
// happened.
func (s *userService) Register(username, password string) (*models.User, bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, false, apperrors.WithMessage(apperrors.ErrInvalidInput, "Username and password required")
	}

	var existing models.User
	err := s.db.Where("username = ?", username).First(&existing).Error
	switch {
	case err == nil:
		if bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash), []byte(password)) != nil {
			return nil, false, apperrors.ErrDuplicateUsername
		}
		// Same password: reset the account to a fresh default portfolio.
		logger.Get().Infow("register for existing user with same password, resetting portfolios", "username", username)
		resetErr := s.db.Transaction(func(tx *gorm.DB) error {
			var portfolioIDs []uint
			if err := tx.Model(&models.Portfolio{}).Where("user_id = ?", existing.ID).Pluck("id", &portfolioIDs).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if len(portfolioIDs) > 0 {
				if err := tx.Where("portfolio_id IN ?", portfolioIDs).Delete(&models.Holding{}).Error; err != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
				if err := tx.Where("id IN ?", portfolioIDs).Delete(&models.Portfolio{}).Error; err != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
			}
			if err := tx.Create(&models.Portfolio{UserID: existing.ID, Name: DefaultPortfolioName}).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			return tx.Model(&existing).Update("active_portfolio", DefaultPortfolioName).Error
		})
		if resetErr != nil {
			return nil, false, resetErr
		}
		return &existing, true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		// fall through to creation
	default:
		return nil, false, apperrors.Wrap(apperrors.ErrStorageUnavailable, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user := &models.User{
		Username:        username,
		PasswordHash:    string(hash),
		ActivePortfolio: DefaultPortfolioName,
		Theme:           models.ThemeLight,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return tx.Create(&models.Portfolio{UserID: user.ID, Name: DefaultPortfolioName}).Error
	})
	if err != nil {
		return nil, false, err
	}

	logger.Get().Infow("registered new user", "username", username)
	return user, false, nil
}

// AttemptLogin verifies credentials and returns the user.
func (s *userService) AttemptLogin(username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Username and password required")
	}

	var user models.User
	err := s.db.Preload("Portfolios").Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID with portfolios preloaded.
func (s *userService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.Preload("Portfolios").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *userService) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Preload("Portfolios").Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// UpdateTheme stores the user's UI theme preference.
func (s *userService) UpdateTheme(userID uint, theme models.ThemeMode) error {
	if theme != models.ThemeLight && theme != models.ThemeDark {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Theme must be light or dark")
	}
	result := s.db.Model(&models.User{}).Where("id = ?", userID).Update("theme", theme)
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}
