package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "stockfolio/internal/errors"
	"stockfolio/internal/models"
	"stockfolio/internal/services"
)

func setupAuthRouter(handler *AuthHandler) *gin.Engine {
	r := gin.New()
	r.POST("/register", handler.Register)
	r.POST("/login", handler.Login)
	r.POST("/token/refresh", handler.Refresh)
	r.POST("/logout", injectUser(testUser()), handler.Logout)
	r.GET("/user/me", injectUser(testUser()), handler.Me)
	r.PUT("/user/theme", injectUser(testUser()), handler.UpdateTheme)
	return r
}

func TestAuthHandler_Register(t *testing.T) {
	t.Run("returns 201 on new user", func(t *testing.T) {
		userSvc := &mockUserService{
			registerFn: func(username, password string) (*models.User, bool, error) {
				return &models.User{Base: models.Base{ID: 1}, Username: username}, false, nil
			},
		}
		handler := NewAuthHandler(userSvc, &mockTokenService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/register", `{"username":"alice","password":"password123"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("returns 200 on idempotent reset", func(t *testing.T) {
		userSvc := &mockUserService{
			registerFn: func(username, password string) (*models.User, bool, error) {
				return &models.User{Base: models.Base{ID: 1}, Username: username}, true, nil
			},
		}
		handler := NewAuthHandler(userSvc, &mockTokenService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/register", `{"username":"alice","password":"password123"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("returns 409 on password mismatch", func(t *testing.T) {
		userSvc := &mockUserService{
			registerFn: func(_, _ string) (*models.User, bool, error) {
				return nil, false, apperrors.ErrDuplicateUsername
			},
		}
		handler := NewAuthHandler(userSvc, &mockTokenService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/register", `{"username":"alice","password":"password456"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "DUPLICATE_USERNAME")
	})

	t.Run("returns 400 on short password", func(t *testing.T) {
		handler := NewAuthHandler(&mockUserService{}, &mockTokenService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/register", `{"username":"alice","password":"short"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("returns tokens and portfolios", func(t *testing.T) {
		userSvc := &mockUserService{
			attemptLoginFn: func(username, _ string) (*models.User, error) {
				return &models.User{
					Base:            models.Base{ID: 7},
					Username:        username,
					ActivePortfolio: "growth",
					Portfolios: []models.Portfolio{
						{Name: "default"},
						{Name: "growth"},
					},
				}, nil
			},
		}
		tokenSvc := &mockTokenService{
			issuePairFn: func(userID uint) (*services.TokenPair, error) {
				if userID != 7 {
					t.Errorf("expected user 7, got %d", userID)
				}
				return &services.TokenPair{AccessToken: "acc", RefreshToken: "ref"}, nil
			},
		}
		handler := NewAuthHandler(userSvc, tokenSvc)
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/login", `{"username":"alice","password":"password123"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["access_token"] != "acc" || result["refresh_token"] != "ref" {
			t.Errorf("unexpected tokens: %v", result)
		}
		if result["active"] != "growth" {
			t.Errorf("expected active growth, got %v", result["active"])
		}
		names := result["portfolios"].([]interface{})
		if len(names) != 2 {
			t.Errorf("expected 2 portfolios, got %v", names)
		}
	})

	t.Run("returns 401 on bad credentials", func(t *testing.T) {
		userSvc := &mockUserService{
			attemptLoginFn: func(_, _ string) (*models.User, error) {
				return nil, apperrors.ErrInvalidCredentials
			},
		}
		handler := NewAuthHandler(userSvc, &mockTokenService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/login", `{"username":"alice","password":"wrong"}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_CREDENTIALS")
	})
}

func TestAuthHandler_Refresh(t *testing.T) {
	t.Run("rotates the presented refresh token", func(t *testing.T) {
		tokenSvc := &mockTokenService{
			rotateFn: func(refreshToken string) (*services.TokenPair, error) {
				if refreshToken != "oldrefresh" {
					t.Errorf("expected bearer token forwarded, got %q", refreshToken)
				}
				return &services.TokenPair{AccessToken: "newacc", RefreshToken: "newref"}, nil
			},
		}
		handler := NewAuthHandler(&mockUserService{}, tokenSvc)
		r := setupAuthRouter(handler)

		req := newAuthedRequest("POST", "/token/refresh", "", "oldrefresh")
		rec := serve(r, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["access_token"] != "newacc" {
			t.Errorf("unexpected pair: %v", result)
		}
	})

	t.Run("returns 401 without bearer header", func(t *testing.T) {
		handler := NewAuthHandler(&mockUserService{}, &mockTokenService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/token/refresh", "")

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("returns 401 on consumed token", func(t *testing.T) {
		tokenSvc := &mockTokenService{
			rotateFn: func(_ string) (*services.TokenPair, error) {
				return nil, apperrors.ErrUnauthenticated
			},
		}
		handler := NewAuthHandler(&mockUserService{}, tokenSvc)
		r := setupAuthRouter(handler)

		req := newAuthedRequest("POST", "/token/refresh", "", "replayed")
		rec := serve(r, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "UNAUTHENTICATED")
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	t.Run("revokes all sessions", func(t *testing.T) {
		revoked := uint(0)
		tokenSvc := &mockTokenService{
			revokeAllFn: func(userID uint) error {
				revoked = userID
				return nil
			},
		}
		handler := NewAuthHandler(&mockUserService{}, tokenSvc)
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/logout", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if revoked != 1 {
			t.Errorf("expected revoke for user 1, got %d", revoked)
		}
	})

	t.Run("returns 401 without auth", func(t *testing.T) {
		handler := NewAuthHandler(&mockUserService{}, &mockTokenService{})
		r := gin.New()
		r.POST("/logout", handler.Logout)

		rec := doRequest(r, "POST", "/logout", "")

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestAuthHandler_Me(t *testing.T) {
	userSvc := &mockUserService{
		getUserByIDFn: func(id uint) (*models.User, error) {
			return &models.User{
				Base:            models.Base{ID: id},
				Username:        "alice",
				ActivePortfolio: "default",
				Theme:           models.ThemeDark,
				Portfolios:      []models.Portfolio{{Name: "default"}},
			}, nil
		},
	}
	handler := NewAuthHandler(userSvc, &mockTokenService{})
	r := setupAuthRouter(handler)

	rec := doRequest(r, "GET", "/user/me", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	if result["username"] != "alice" || result["theme"] != "dark" {
		t.Errorf("unexpected profile: %v", result)
	}
}

func TestAuthHandler_UpdateTheme(t *testing.T) {
	t.Run("stores valid theme", func(t *testing.T) {
		var got models.ThemeMode
		userSvc := &mockUserService{
			updateThemeFn: func(_ uint, theme models.ThemeMode) error {
				got = theme
				return nil
			},
		}
		handler := NewAuthHandler(userSvc, &mockTokenService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "PUT", "/user/theme", `{"theme":"dark"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got != models.ThemeDark {
			t.Errorf("expected dark, got %q", got)
		}
	})

	t.Run("rejects unknown theme", func(t *testing.T) {
		handler := NewAuthHandler(&mockUserService{}, &mockTokenService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "PUT", "/user/theme", `{"theme":"neon"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
