package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "stockfolio/internal/errors"
	"stockfolio/internal/models"
	"stockfolio/internal/services"
)

// currentUserKey is the Gin context key holding the authenticated user.
const currentUserKey = "currentUser"

// BearerToken extracts the token from an Authorization: Bearer header.
func BearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", apperrors.WithMessage(apperrors.ErrUnauthenticated, "Authorization required")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", apperrors.WithMessage(apperrors.ErrUnauthenticated, "Invalid authorization header format")
	}
	return parts[1], nil
}

// Auth validates the access token against the session store and resolves
// the owning user into the request context exactly once. Downstream
// handlers read it with CurrentUser instead of re-querying.
func Auth(tokens services.TokenServicer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := BearerToken(c)
		if err != nil {
			abortWithError(c, err)
			return
		}

		user, err := tokens.Validate(token, models.TokenKindAccess)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user placed in the context by
// Auth.
func CurrentUser(c *gin.Context) (*models.User, error) {
	v, exists := c.Get(currentUserKey)
	if !exists {
		return nil, apperrors.ErrUnauthenticated
	}
	user, ok := v.(*models.User)
	if !ok {
		return nil, apperrors.ErrUnauthenticated
	}
	return user, nil
}

func abortWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	c.AbortWithStatusJSON(appErr.StatusCode, gin.H{
		"error": gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		},
	})
}
