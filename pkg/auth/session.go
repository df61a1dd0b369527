package auth

import (
	"crypto/sha256"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
)

// SessionName is the name of the signed cookie that carries the database session token.
const SessionName = "mindmap-session"

// SessionKeyToken is the session value holding the sessions.session_token reference.
const SessionKeyToken = "session_token"

// SessionStore reads and clears the session cookie. The cookie itself is
// issued by the sign-in flow, which shares the secret.
type SessionStore struct {
	store *sessions.CookieStore
}

// NewSessionStore creates a cookie store signed with secret.
//
// The secret can be any passphrase; it is SHA-256 hashed to derive a 32-byte
// key. It must be the same across restarts and replicas.
func NewSessionStore(secret string, maxAge time.Duration, settings CookieSettings) *SessionStore {
	key := sha256.Sum256([]byte(secret))

	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   settings.Domain,
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   settings.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionStore{store: store}
}

// Token returns the database session token referenced by the request's
// session cookie. A missing or tampered cookie yields false.
func (s *SessionStore) Token(r *http.Request) (string, bool) {
	if s == nil {
		return "", false
	}
	if _, err := r.Cookie(SessionName); err != nil {
		return "", false
	}
	session, err := s.store.Get(r, SessionName)
	if err != nil || session.IsNew {
		return "", false
	}
	token, ok := session.Values[SessionKeyToken].(string)
	return token, ok && token != ""
}

// Clear expires the session cookie.
func (s *SessionStore) Clear(w http.ResponseWriter, r *http.Request) error {
	if s == nil {
		return nil
	}
	session, _ := s.store.Get(r, SessionName)
	delete(session.Values, SessionKeyToken)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}
