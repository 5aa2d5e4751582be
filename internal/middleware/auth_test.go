package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "stockfolio/internal/errors"
	"stockfolio/internal/models"
	"stockfolio/internal/services"
)

type stubTokens struct {
	validateFn func(token string, kind models.TokenKind) (*models.User, error)
}

func (s *stubTokens) IssuePair(uint) (*services.TokenPair, error) { return nil, nil }
func (s *stubTokens) Rotate(string) (*services.TokenPair, error)  { return nil, nil }
func (s *stubTokens) RevokeAll(uint) error                        { return nil }
func (s *stubTokens) Validate(token string, kind models.TokenKind) (*models.User, error) {
	return s.validateFn(token, kind)
}

var _ services.TokenServicer = (*stubTokens)(nil)

func authRouter(tokens services.TokenServicer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", Auth(tokens), func(c *gin.Context) {
		user, err := CurrentUser(c)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"username": user.Username})
	})
	return r
}

func get(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuth(t *testing.T) {
	t.Run("valid_token_resolves_user", func(t *testing.T) {
		tokens := &stubTokens{
			validateFn: func(token string, kind models.TokenKind) (*models.User, error) {
				if token != "goodtoken" {
					t.Errorf("expected goodtoken, got %q", token)
				}
				if kind != models.TokenKindAccess {
					t.Errorf("expected access kind, got %q", kind)
				}
				return &models.User{Username: "alice"}, nil
			},
		}
		rec := get(authRouter(tokens), "Bearer goodtoken")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("missing_header", func(t *testing.T) {
		rec := get(authRouter(&stubTokens{}), "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("malformed_header", func(t *testing.T) {
		rec := get(authRouter(&stubTokens{}), "Basic abc123")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("expired_token", func(t *testing.T) {
		tokens := &stubTokens{
			validateFn: func(string, models.TokenKind) (*models.User, error) {
				return nil, apperrors.ErrTokenExpired
			},
		}
		rec := get(authRouter(tokens), "Bearer stale")

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestCurrentUser(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("absent", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		if _, err := CurrentUser(c); err == nil {
			t.Fatal("expected error when no user in context")
		}
	})

	t.Run("present", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set("currentUser", &models.User{Username: "alice"})
		user, err := CurrentUser(c)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.Username != "alice" {
			t.Errorf("expected alice, got %q", user.Username)
		}
	})
}

func TestBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/token/refresh", nil)
	c.Request.Header.Set("Authorization", "Bearer sometoken")

	token, err := BearerToken(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "sometoken" {
		t.Errorf("expected sometoken, got %q", token)
	}
}
