package webserver

import (
	"context"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/alchemorsel/kitchen/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionCookieName identifies the session cookie
const SessionCookieName = "kitchen_session"

// Session holds the per-visitor view state: the chosen language and the
// selected tabs. It lives in memory only.
type Session struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time

	mu   sync.RWMutex
	lang string
	tabs map[string]string
}

// Lang returns the language chosen in this session, or ""
func (s *Session) Lang() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lang
}

// SetLang stores the chosen language
func (s *Session) SetLang(lang string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lang = lang
}

// Tab returns the remembered tab of a tabbed page, or def
func (s *Session) Tab(page, def string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tabs[page]; ok {
		return t
	}
	return def
}

// SetTab remembers the selected tab of a tabbed page
func (s *Session) SetTab(page, tab string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[page] = tab
}

// SessionStore keeps sessions in process memory. A session that is used
// after half its lifetime is renewed for another full TTL.
type SessionStore struct {
	ttl    time.Duration
	secure bool
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionStore(cfg *config.Config, logger *zap.Logger) *SessionStore {
	ttl := cfg.Server.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionStore{
		ttl:      ttl,
		secure:   cfg.Server.SecureCookies,
		logger:   logger.Named("sessions"),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Get returns the live session named by the request cookie. An expired
// session is dropped.
func (s *SessionStore) Get(r *http.Request) (*Session, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[cookie.Value]
	if !ok {
		return nil, false
	}
	if !s.now().Before(session.ExpiresAt) {
		delete(s.sessions, session.ID)
		return nil, false
	}
	return session, true
}

// New registers a fresh session under a random id
func (s *SessionStore) New() *Session {
	now := s.now()
	session := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
		tabs:      make(map[string]string),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	return session
}

// Load returns the request's session, starting one when the cookie is
// missing, unknown or expired. The cookie is only written for new or
// renewed sessions.
func (s *SessionStore) Load(w http.ResponseWriter, r *http.Request) *Session {
	session, ok := s.Get(r)
	if !ok {
		session = s.New()
		s.Save(w, session)
		return session
	}
	if s.renew(session) {
		s.Save(w, session)
	}
	return session
}

func (s *SessionStore) renew(session *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if session.ExpiresAt.Sub(now) > s.ttl/2 {
		return false
	}
	session.ExpiresAt = now.Add(s.ttl)
	return true
}

// Save writes the session cookie
func (s *SessionStore) Save(w http.ResponseWriter, session *Session) {
	s.mu.Lock()
	expires := session.ExpiresAt
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(expires.Sub(s.now()).Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// CleanupExpired drops expired sessions and reports how many went
func (s *SessionStore) CleanupExpired() int {
	s.mu.Lock()
	now := s.now()
	before := len(s.sessions)
	maps.DeleteFunc(s.sessions, func(_ string, session *Session) bool {
		return !now.Before(session.ExpiresAt)
	})
	removed := before - len(s.sessions)
	s.mu.Unlock()

	if removed > 0 {
		s.logger.Debug("Expired sessions removed", zap.Int("count", removed))
	}
	return removed
}

// Run calls CleanupExpired every interval until ctx is done
func (s *SessionStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CleanupExpired()
		}
	}
}

type contextKey string

const sessionContextKey contextKey = "session"

func withSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFrom returns the session stored on ctx by the session middleware
func SessionFrom(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionContextKey).(*Session); ok {
		return s
	}
	return nil
}
