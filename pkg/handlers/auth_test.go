package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-mindmap/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/auth"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/config"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/models"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/testhelpers"
)

// mockUserService is a mock implementation of UserService for testing.
type mockUserService struct {
	user       *models.User
	meErr      error
	signOutErr error

	signedOutToken string
}

func (m *mockUserService) Me(ctx context.Context) (*models.User, error) {
	if m.meErr != nil {
		return nil, m.meErr
	}
	return m.user, nil
}

func (m *mockUserService) SignOut(ctx context.Context, sessionToken string) error {
	m.signedOutToken = sessionToken
	return m.signOutErr
}

func authTestConfig() *config.Config {
	cfg := testConfig()
	cfg.Auth.JWTCookieName = "mindmap_jwt"
	return cfg
}

func newAuthMux(userService *mockUserService, sessions *auth.SessionStore, user *models.SessionUser) *http.ServeMux {
	mux := http.NewServeMux()
	authMiddleware := auth.NewMiddleware(&mockAuthService{user: user}, zap.NewNop())
	NewAuthHandler(userService, sessions, authTestConfig(), zap.NewNop()).RegisterRoutes(mux, authMiddleware, passthroughScope)
	return mux
}

func TestAuthHandler_GetMe_Success(t *testing.T) {
	name := "Ada"
	userService := &mockUserService{user: &models.User{ID: "user-1", Name: &name, Email: "ada@example.com"}}
	mux := newAuthMux(userService, nil, sessionUser())

	rec := serve(mux, http.MethodGet, "/api/auth/me", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var user models.User
	if err := json.Unmarshal(rec.Body.Bytes(), &user); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if user.ID != "user-1" || user.Email != "ada@example.com" {
		t.Errorf("unexpected user %+v", user)
	}
}

func TestAuthHandler_GetMe_Unauthenticated(t *testing.T) {
	mux := newAuthMux(&mockUserService{}, nil, nil)

	rec := serve(mux, http.MethodGet, "/api/auth/me", "")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestAuthHandler_GetMe_ServiceError(t *testing.T) {
	userService := &mockUserService{meErr: apperrors.NewPersistenceError("user.me", errors.New("boom"))}
	mux := newAuthMux(userService, nil, sessionUser())

	rec := serve(mux, http.MethodGet, "/api/auth/me", "")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
}

func TestAuthHandler_SignOut_ClearsCookiesAndSession(t *testing.T) {
	sessions := auth.NewSessionStore("test-secret", time.Hour, auth.CookieSettings{})

	userService := &mockUserService{}
	mux := newAuthMux(userService, sessions, sessionUser())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signout", nil)
	req.AddCookie(testhelpers.SessionCookie(t, "test-secret", auth.SessionName,
		map[any]any{auth.SessionKeyToken: "db-session-token"}))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if userService.signedOutToken != "db-session-token" {
		t.Errorf("expected database session to be deleted, got %q", userService.signedOutToken)
	}

	cleared := map[string]bool{}
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			cleared[c.Name] = true
		}
	}
	if !cleared["mindmap_jwt"] {
		t.Error("expected mindmap_jwt cookie to be cleared")
	}
	if !cleared[auth.SessionName] {
		t.Errorf("expected %s cookie to be cleared", auth.SessionName)
	}

	var resp SignOutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !resp.Success || resp.RedirectURL != "/" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestAuthHandler_SignOut_WithoutSession(t *testing.T) {
	userService := &mockUserService{}
	mux := newAuthMux(userService, nil, nil)

	rec := serve(mux, http.MethodPost, "/api/auth/signout", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if userService.signedOutToken != "" {
		t.Errorf("expected no session delete, got %q", userService.signedOutToken)
	}
}
