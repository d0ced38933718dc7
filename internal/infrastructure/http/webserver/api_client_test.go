package webserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alchemorsel/kitchen/internal/domain/recipe"
	"github.com/alchemorsel/kitchen/internal/infrastructure/cache"
	"github.com/alchemorsel/kitchen/internal/infrastructure/config"
	"github.com/alchemorsel/kitchen/internal/infrastructure/monitoring"
	apperrors "github.com/alchemorsel/kitchen/pkg/errors"
	"github.com/alchemorsel/kitchen/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type clientFixture struct {
	client  *APIClient
	api     *testutils.FakeRecipeAPI
	store   *cache.LocalCache
	metrics *monitoring.MetricsCollector
}

func newClientFixture(t *testing.T, configure ...func(*config.Config)) *clientFixture {
	t.Helper()
	api := testutils.NewFakeRecipeAPI(t)

	cfg := config.Default()
	cfg.API.BaseURL = api.URL() + "/"
	cfg.API.Timeout = 2 * time.Second
	for _, fn := range configure {
		fn(cfg)
	}

	logger := zap.NewNop()
	store := cache.NewLocalCache(16)
	metrics := monitoring.NewMetricsCollector(logger)
	return &clientFixture{
		client:  NewAPIClient(cfg, store, metrics, nil, logger),
		api:     api,
		store:   store,
		metrics: metrics,
	}
}

func (f *clientFixture) scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	f.metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestAPIClient_BaseURLTrimsSlash(t *testing.T) {
	f := newClientFixture(t)
	assert.Equal(t, f.api.URL(), f.client.BaseURL())
}

func TestAPIClient_GetAIRecipes(t *testing.T) {
	f := newClientFixture(t)
	f.api.SetFeed(testutils.PathAIRecipes, backendFeed("Chickpea curry", "Tomato soup"))
	ctx := context.Background()

	feed, source, err := f.client.GetAIRecipes(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceBackend, source)
	require.Len(t, feed.Recipes, 2)
	assert.Equal(t, "Chickpea curry", feed.Recipes[0].Title)
	assert.Equal(t, time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC), feed.UpdatedAt.UTC())

	cached, source, err := f.client.GetAIRecipes(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, source)
	assert.Equal(t, feed.Recipes, cached.Recipes)
	assert.Equal(t, 1, f.api.Hits(testutils.PathAIRecipes))

	metrics := f.scrape(t)
	assert.Contains(t, metrics, `cache_operations_total{operation="get",result="hit"} 1`)
	assert.Contains(t, metrics, `cache_operations_total{operation="get",result="miss"} 1`)
	assert.Contains(t, metrics, `backend_requests_total{endpoint="/api/ai-recipes",outcome="success"} 1`)
}

func TestAPIClient_NoCacheWhenTTLIsZero(t *testing.T) {
	f := newClientFixture(t, func(cfg *config.Config) { cfg.API.CacheTTL = 0 })

	for i := 0; i < 3; i++ {
		_, source, err := f.client.GetMedicalRecipes(context.Background())
		require.NoError(t, err)
		assert.Equal(t, SourceBackend, source)
	}
	assert.Equal(t, 3, f.api.Hits(testutils.PathMedicalRecipes))
}

func TestAPIClient_CorruptCacheEntryIsRefetched(t *testing.T) {
	f := newClientFixture(t)
	f.api.SetFeed(testutils.PathAIRecipes, backendFeed("Tomato soup"))
	ctx := context.Background()

	require.NoError(t, f.store.Set(ctx, cacheKeyPrefix+EndpointAIRecipes, []byte("{"), time.Minute))

	feed, source, err := f.client.GetAIRecipes(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceBackend, source)
	assert.Len(t, feed.Recipes, 1)
	assert.Contains(t, f.scrape(t), `cache_operations_total{operation="get",result="corrupt"} 1`)

	_, source, err = f.client.GetAIRecipes(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, source)
}

func TestAPIClient_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *clientFixture)
		code  apperrors.ErrorCode
	}{
		{
			name:  "non-2xx status",
			setup: func(f *clientFixture) { f.api.FailWith(testutils.PathAIRecipes, http.StatusInternalServerError) },
			code:  apperrors.CodeBackendStatus,
		},
		{
			name:  "undecodable body",
			setup: func(f *clientFixture) { f.api.SetRaw(testutils.PathAIRecipes, "<html>oops</html>") },
			code:  apperrors.CodeBackendDecode,
		},
		{
			name:  "backend unreachable",
			setup: func(f *clientFixture) { f.api.Close() },
			code:  apperrors.CodeBackendUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newClientFixture(t)
			tt.setup(f)

			_, _, err := f.client.GetAIRecipes(context.Background())
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, tt.code), "got %v", err)

			_, err = f.store.Get(context.Background(), cacheKeyPrefix+EndpointAIRecipes)
			assert.ErrorIs(t, err, cache.ErrKeyNotFound, "failures are never cached")
		})
	}
}

func TestAPIClient_Timeout(t *testing.T) {
	f := newClientFixture(t, func(cfg *config.Config) { cfg.API.Timeout = 50 * time.Millisecond })
	f.api.Delay(testutils.PathAIRecipes, 500*time.Millisecond)

	_, _, err := f.client.GetAIRecipes(context.Background())
	assert.True(t, apperrors.Is(err, apperrors.CodeBackendUnavailable), "got %v", err)
}

func TestAPIClient_CanceledContext(t *testing.T) {
	f := newClientFixture(t)
	f.api.Delay(testutils.PathMedicalRecipes, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, _, err := f.client.GetMedicalRecipes(ctx)
	require.Error(t, err)
	assert.Contains(t, f.scrape(t), `backend_requests_total{endpoint="/api/medical-recipes",outcome="canceled"} 1`)
}

func TestAPIClient_GenerateMedicalRecipes(t *testing.T) {
	f := newClientFixture(t)
	f.api.SetFeed(testutils.PathMedicalRecipes, backendFeed("Baked cod"))
	ctx := context.Background()

	_, source, err := f.client.GetMedicalRecipes(ctx)
	require.NoError(t, err)
	require.Equal(t, SourceBackend, source)

	generated := backendFeed("Diabetic friendly oats").Recipes
	f.api.SetGenerated(generated)

	req := recipe.GenerateRequest{Lang: "en", Condition: "diabetes", Constraints: "low sugar"}
	got, err := f.client.GenerateMedicalRecipes(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, generated, got)
	assert.Equal(t, []recipe.GenerateRequest{req}, f.api.GenerateRequests())

	feed, source, err := f.client.GetMedicalRecipes(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceBackend, source, "generation invalidates the cached feed")
	require.Len(t, feed.Recipes, 2)
	assert.Equal(t, "Diabetic friendly oats", feed.Recipes[0].Title)
	assert.Equal(t, 2, f.api.Hits(testutils.PathMedicalRecipes))
}

func TestAPIClient_OddRecipesDoNotFailThePayload(t *testing.T) {
	f := newClientFixture(t)
	f.api.SetRaw(testutils.PathAIRecipes, `{"recipes": [
		{"id": 1, "title": "Lentil dal", "protein": "12g", "tags": "vegan, quick"},
		"not a recipe",
		null,
		{"id": true, "title": "Flatbread", "macros": "n/a", "tags": [1, "bread"]}
	]}`)
	f.api.SetRaw(testutils.PathGenerateMedical, `{"recipes": [{"id": "g1", "title": "Oat porridge", "calories": "310 kcal", "macros": {"protein": "9 g"}}]}`)
	ctx := context.Background()

	feed, source, err := f.client.GetAIRecipes(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceBackend, source)
	require.Len(t, feed.Recipes, 2)
	assert.Equal(t, 12.0, feed.Recipes[0].Macros.Protein)
	assert.Equal(t, []string{"vegan", "quick"}, feed.Recipes[0].Tags)
	assert.Empty(t, feed.Recipes[1].ID)
	assert.True(t, feed.Recipes[1].Macros.IsZero())
	assert.Equal(t, []string{"bread"}, feed.Recipes[1].Tags)

	got, err := f.client.GenerateMedicalRecipes(ctx, recipe.GenerateRequest{Lang: "en"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 310, got[0].Calories)
	assert.Equal(t, 9.0, got[0].Macros.Protein)
}

func TestAPIClient_GenerateMedicalRecipes_Empty(t *testing.T) {
	f := newClientFixture(t)

	got, err := f.client.GenerateMedicalRecipes(context.Background(), recipe.GenerateRequest{Lang: "en"})
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, recipe.ErrNoRecipesGenerated))
}

func TestAPIClient_GenerateMedicalRecipes_Failure(t *testing.T) {
	f := newClientFixture(t)
	f.api.SetFeed(testutils.PathMedicalRecipes, backendFeed("Baked cod"))
	ctx := context.Background()

	_, _, err := f.client.GetMedicalRecipes(ctx)
	require.NoError(t, err)

	f.api.FailWith(testutils.PathGenerateMedical, http.StatusBadGateway)
	_, err = f.client.GenerateMedicalRecipes(ctx, recipe.GenerateRequest{Lang: "en"})
	assert.True(t, apperrors.Is(err, apperrors.CodeBackendStatus))

	_, source, err := f.client.GetMedicalRecipes(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, source, "a failed generation keeps the cache")
}

func TestAPIClient_VerifyConnection(t *testing.T) {
	f := newClientFixture(t)
	assert.True(t, f.client.VerifyConnection(context.Background()))

	f.api.FailWith(testutils.PathAIRecipes, http.StatusServiceUnavailable)
	assert.False(t, f.client.VerifyConnection(context.Background()))

	f.api.FailWith(testutils.PathAIRecipes, 0)
	f.api.Close()
	assert.False(t, f.client.VerifyConnection(context.Background()))
}
