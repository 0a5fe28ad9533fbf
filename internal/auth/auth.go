// Package auth implements the login gate: a credential check against
// configured values and a server-side session store. Handlers receive
// the session as an explicit value on the request context; there is no
// process-wide authenticated flag.
package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CookieName is the session cookie set after a successful login.
const CookieName = "eml_viewer_session"

// Credentials holds the configured username and password.
type Credentials struct {
	Username string
	Password string
}

// Check compares the submitted values against the configured ones in
// constant time.
func (c Credentials) Check(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(c.Password)) == 1
	return userOK && passOK
}

// Session is one authenticated browser session.
type Session struct {
	Token     string
	Username  string
	CreatedAt time.Time
}

// SessionStore keeps active sessions in memory, keyed by token.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
	}
}

// Create registers a new session for the given user and returns it.
func (s *SessionStore) Create(username string) *Session {
	sess := &Session{
		Token:     uuid.NewString(),
		Username:  username,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.sessions[sess.Token] = sess
	s.mu.Unlock()

	return sess
}

// Get looks up a session by token.
func (s *SessionStore) Get(token string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[token]
	return sess, ok
}

// Delete removes a session, ending it.
func (s *SessionStore) Delete(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

type sessionContextKey struct{}

// WithSession attaches a session to the context.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// FromContext returns the session attached to the context, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(*Session)
	return sess, ok
}

// RequireSession is middleware that resolves the session cookie and puts
// the session on the request context. Requests without a valid session
// are redirected to the login page.
func (s *SessionStore) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		sess, ok := s.Get(cookie.Value)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}
