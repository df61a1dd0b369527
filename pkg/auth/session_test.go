package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ekaya-inc/ekaya-mindmap/pkg/testhelpers"
)

// requestWithSession returns a request carrying a session cookie for token,
// signed with secret.
func requestWithSession(t *testing.T, secret, token string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/workflows", nil)
	req.AddCookie(testhelpers.SessionCookie(t, secret, SessionName, map[any]any{SessionKeyToken: token}))
	return req
}

func TestSessionStore_ReadsIssuedCookie(t *testing.T) {
	store := NewSessionStore("test-secret", time.Hour, CookieSettings{})

	token, ok := store.Token(requestWithSession(t, "test-secret", "db-token-1"))
	if !ok {
		t.Fatal("expected token to be read back")
	}
	if token != "db-token-1" {
		t.Errorf("expected db-token-1, got %q", token)
	}
}

func TestSessionStore_RejectsOtherSecret(t *testing.T) {
	reader := NewSessionStore("secret-b", time.Hour, CookieSettings{})
	if _, ok := reader.Token(requestWithSession(t, "secret-a", "db-token-1")); ok {
		t.Error("expected cookie signed with another secret to be rejected")
	}
}

func TestSessionStore_EmptyToken(t *testing.T) {
	store := NewSessionStore("test-secret", time.Hour, CookieSettings{})

	if _, ok := store.Token(requestWithSession(t, "test-secret", "")); ok {
		t.Error("expected empty token to be ignored")
	}
}

func TestSessionStore_NoCookie(t *testing.T) {
	store := NewSessionStore("test-secret", time.Hour, CookieSettings{})

	if _, ok := store.Token(httptest.NewRequest(http.MethodGet, "/", nil)); ok {
		t.Error("expected no token without cookie")
	}

	var nilStore *SessionStore
	if _, ok := nilStore.Token(httptest.NewRequest(http.MethodGet, "/", nil)); ok {
		t.Error("expected nil store to yield no token")
	}
}

func TestSessionStore_Clear(t *testing.T) {
	store := NewSessionStore("test-secret", time.Hour, CookieSettings{})

	rec := httptest.NewRecorder()
	if err := store.Clear(rec, requestWithSession(t, "test-secret", "db-token-1")); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionName {
		t.Fatalf("expected one %s cookie, got %+v", SessionName, cookies)
	}
	if cookies[0].MaxAge >= 0 {
		t.Errorf("expected expired cookie, got MaxAge=%d", cookies[0].MaxAge)
	}
}
