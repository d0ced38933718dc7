// Package testutils provides an in-process recipe backend for testing
package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alchemorsel/kitchen/internal/domain/recipe"
)

// Backend paths served by FakeRecipeAPI
const (
	PathAIRecipes       = "/api/ai-recipes"
	PathMedicalRecipes  = "/api/medical-recipes"
	PathGenerateMedical = "/api/medical-recipes/generate"
)

// FakeRecipeAPI mimics the recipe REST backend. Feeds, failures and delays
// are configured per path; generated recipes are prepended to the medical
// feed the way the real backend stores them.
type FakeRecipeAPI struct {
	server *httptest.Server

	mu        sync.Mutex
	feeds     map[string]recipe.Feed
	raw       map[string]string
	status    map[string]int
	delay     map[string]time.Duration
	generated []recipe.Recipe
	requests  []recipe.GenerateRequest
	hits      map[string]int
}

// NewFakeRecipeAPI starts the backend; it is closed when the test ends
func NewFakeRecipeAPI(t testing.TB) *FakeRecipeAPI {
	f := &FakeRecipeAPI{
		feeds:  make(map[string]recipe.Feed),
		raw:    make(map[string]string),
		status: make(map[string]int),
		delay:  make(map[string]time.Duration),
		hits:   make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+PathAIRecipes, f.serveFeed)
	mux.HandleFunc("GET "+PathMedicalRecipes, f.serveFeed)
	mux.HandleFunc("POST "+PathGenerateMedical, f.serveGenerate)

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// URL is the backend root
func (f *FakeRecipeAPI) URL() string {
	return f.server.URL
}

// Close stops the backend early so every call fails to connect
func (f *FakeRecipeAPI) Close() {
	f.server.Close()
}

// SetFeed sets the feed served at path
func (f *FakeRecipeAPI) SetFeed(path string, feed recipe.Feed) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feeds[path] = feed
	delete(f.raw, path)
}

// SetRaw serves body verbatim at path
func (f *FakeRecipeAPI) SetRaw(path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw[path] = body
}

// FailWith makes path answer with status. Zero clears the failure.
func (f *FakeRecipeAPI) FailWith(path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status == 0 {
		delete(f.status, path)
		return
	}
	f.status[path] = status
}

// Delay holds responses on path for d or until the request is canceled
func (f *FakeRecipeAPI) Delay(path string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay[path] = d
}

// SetGenerated sets what the next generate calls return
func (f *FakeRecipeAPI) SetGenerated(recipes []recipe.Recipe) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generated = recipes
}

// Hits returns how many requests reached path
func (f *FakeRecipeAPI) Hits(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

// GenerateRequests returns the bodies of all generate calls
func (f *FakeRecipeAPI) GenerateRequests() []recipe.GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recipe.GenerateRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// begin records the hit and applies the configured delay. It returns the
// configured failure status, or 0.
func (f *FakeRecipeAPI) begin(r *http.Request) (int, bool) {
	path := r.URL.Path

	f.mu.Lock()
	f.hits[path]++
	delay := f.delay[path]
	status := f.status[path]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return 0, false
		}
	}
	return status, true
}

func (f *FakeRecipeAPI) serveFeed(w http.ResponseWriter, r *http.Request) {
	status, ok := f.begin(r)
	if !ok {
		return
	}
	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}

	f.mu.Lock()
	raw, isRaw := f.raw[r.URL.Path]
	feed := f.feeds[r.URL.Path]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if isRaw {
		_, _ = w.Write([]byte(raw))
		return
	}
	if feed.Recipes == nil {
		feed.Recipes = []recipe.Recipe{}
	}
	_ = json.NewEncoder(w).Encode(feed)
}

func (f *FakeRecipeAPI) serveGenerate(w http.ResponseWriter, r *http.Request) {
	var req recipe.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	status, ok := f.begin(r)
	if !ok {
		return
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	generated := f.generated
	raw, isRaw := f.raw[PathGenerateMedical]
	if status == 0 && len(generated) > 0 {
		feed := f.feeds[PathMedicalRecipes]
		feed.Recipes = append(append([]recipe.Recipe{}, generated...), feed.Recipes...)
		feed.UpdatedAt = time.Now().UTC()
		f.feeds[PathMedicalRecipes] = feed
	}
	f.mu.Unlock()

	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if isRaw {
		_, _ = w.Write([]byte(raw))
		return
	}
	if generated == nil {
		generated = []recipe.Recipe{}
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"recipes": generated})
}
