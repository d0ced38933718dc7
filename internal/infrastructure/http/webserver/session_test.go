package webserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alchemorsel/kitchen/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestSessionStore(t *testing.T, ttl time.Duration) (*SessionStore, *fakeClock) {
	t.Helper()
	cfg := config.Default()
	cfg.Server.SessionTTL = ttl
	cfg.Server.SecureCookies = true

	clock := &fakeClock{now: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)}
	store := NewSessionStore(cfg, zap.NewNop())
	store.now = clock.Now
	return store, clock
}

func requestWithSession(id string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: id})
	return req
}

func TestSessionStore_LoadIssuesCookie(t *testing.T) {
	store, _ := newTestSessionStore(t, time.Hour)

	rec := httptest.NewRecorder()
	session := store.Load(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, session)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, SessionCookieName, c.Name)
	assert.Equal(t, session.ID, c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, 3600, c.MaxAge)

	rec = httptest.NewRecorder()
	again := store.Load(rec, requestWithSession(session.ID))
	assert.Same(t, session, again)
	assert.Empty(t, rec.Result().Cookies(), "a known session is not re-issued")
}

func TestSessionStore_UnknownCookieStartsNewSession(t *testing.T) {
	store, _ := newTestSessionStore(t, time.Hour)

	rec := httptest.NewRecorder()
	session := store.Load(rec, requestWithSession("forged"))
	assert.NotEqual(t, "forged", session.ID)
	assert.Equal(t, 1, store.Len())
}

func TestSessionStore_Expiry(t *testing.T) {
	store, clock := newTestSessionStore(t, time.Hour)
	session := store.New()

	clock.Advance(59 * time.Minute)
	_, ok := store.Get(requestWithSession(session.ID))
	assert.True(t, ok)

	clock.Advance(2 * time.Minute)
	_, ok = store.Get(requestWithSession(session.ID))
	assert.False(t, ok)
	assert.Zero(t, store.Len(), "an expired session is dropped on access")
}

func TestSessionStore_RenewsPastHalfLife(t *testing.T) {
	store, clock := newTestSessionStore(t, time.Hour)
	rec := httptest.NewRecorder()
	session := store.Load(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	clock.Advance(20 * time.Minute)
	rec = httptest.NewRecorder()
	store.Load(rec, requestWithSession(session.ID))
	assert.Empty(t, rec.Result().Cookies())

	clock.Advance(20 * time.Minute)
	rec = httptest.NewRecorder()
	assert.Same(t, session, store.Load(rec, requestWithSession(session.ID)))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, 3600, cookies[0].MaxAge)

	clock.Advance(50 * time.Minute)
	_, ok := store.Get(requestWithSession(session.ID))
	assert.True(t, ok, "renewed sessions outlive the original deadline")
}

func TestSessionStore_CleanupExpired(t *testing.T) {
	store, clock := newTestSessionStore(t, time.Hour)
	store.New()
	store.New()

	clock.Advance(30 * time.Minute)
	fresh := store.New()

	clock.Advance(45 * time.Minute)
	assert.Equal(t, 2, store.CleanupExpired())
	assert.Equal(t, 1, store.Len())

	_, ok := store.Get(requestWithSession(fresh.ID))
	assert.True(t, ok)
}

func TestSessionStore_DefaultTTL(t *testing.T) {
	store, _ := newTestSessionStore(t, 0)
	session := store.New()
	assert.Equal(t, 24*time.Hour, session.ExpiresAt.Sub(session.CreatedAt))
}

func TestSessionStore_RunStopsWithContext(t *testing.T) {
	store, _ := newTestSessionStore(t, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.Run(ctx, 10*time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSession_State(t *testing.T) {
	store, _ := newTestSessionStore(t, time.Hour)
	session := store.New()

	assert.Empty(t, session.Lang())
	session.SetLang("ar")
	assert.Equal(t, "ar", session.Lang())

	assert.Equal(t, TabPlan, session.Tab("planner", TabPlan))
	session.SetTab("planner", TabNutrition)
	assert.Equal(t, TabNutrition, session.Tab("planner", TabPlan))
	assert.Equal(t, "all", session.Tab("magazine", "all"))
}

func TestSessionFrom(t *testing.T) {
	assert.Nil(t, SessionFrom(context.Background()))

	store, _ := newTestSessionStore(t, time.Hour)
	session := store.New()
	assert.Same(t, session, SessionFrom(withSession(context.Background(), session)))
}
