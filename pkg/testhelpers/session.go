package testhelpers

import (
	"crypto/sha256"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/sessions"
)

// SessionCookie signs a gorilla session cookie named name that holds values,
// keyed the way the server derives its cookie key from secret. It stands in
// for the external sign-in flow that issues database session cookies.
func SessionCookie(t *testing.T, secret, name string, values map[any]any) *http.Cookie {
	t.Helper()

	key := sha256.Sum256([]byte(secret))
	store := sessions.NewCookieStore(key[:])

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	session, err := store.New(req, name)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	for k, v := range values {
		session.Values[k] = v
	}

	rec := httptest.NewRecorder()
	if err := session.Save(req, rec); err != nil {
		t.Fatalf("failed to save session: %v", err)
	}

	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no %s cookie was written", name)
	return nil
}
