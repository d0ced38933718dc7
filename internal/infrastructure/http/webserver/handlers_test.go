package webserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alchemorsel/kitchen/internal/domain/recipe"
	"github.com/alchemorsel/kitchen/internal/infrastructure/config"
	"github.com/alchemorsel/kitchen/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHome_ShowsNewestBackendRecipes(t *testing.T) {
	env := newTestEnv(t)
	env.api.SetFeed(testutils.PathAIRecipes, backendFeed("Shakshuka", "Falafel wrap", "Fattoush", "Mujadara"))

	rec := env.get("/")
	require.Equal(t, http.StatusOK, rec.Code)

	doc := env.document(rec)
	assert.Equal(t, []string{"Shakshuka", "Falafel wrap", "Fattoush"}, env.html.Texts(doc, ".latest .recipe-card h3"))
	env.html.Absent(doc, ".latest .notice")
	env.html.Count(doc, ".tiles .tile", 5)
}

func TestHome_FallsBackToSampleRecipes(t *testing.T) {
	env := newTestEnv(t)
	env.api.FailWith(testutils.PathAIRecipes, http.StatusServiceUnavailable)

	rec := env.get("/")
	require.Equal(t, http.StatusOK, rec.Code)

	doc := env.document(rec)
	env.html.Text(doc, ".latest .notice", "Showing sample recipes")
	env.html.Text(doc, ".latest .recipe-card h3", "Lemon herb chicken")
	assert.Equal(t, 1, env.logs.FilterMessage("Backend fetch failed, serving sample data").Len())
}

func TestRecipes_ShellLoadsGridThroughHTMX(t *testing.T) {
	env := newTestEnv(t)
	env.api.SetFeed(testutils.PathAIRecipes, backendFeed("Shakshuka"))

	doc := env.document(env.get("/recipes"))
	env.html.Attr(doc, "#recipe-grid", "hx-get", "/htmx/recipes")
	env.html.Text(doc, "#recipe-grid .loading", "Loading recipes...")
	assert.Zero(t, env.api.Hits(testutils.PathAIRecipes), "the shell does not wait for the backend")

	rec := env.htmx(http.MethodGet, "/htmx/recipes", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	frag := env.document(rec)
	env.html.Absent(frag, "html > head > title")
	env.html.Absent(frag, "#recipe-grid[hx-get]")
	env.html.Text(frag, "#recipe-grid .recipe-card h3", "Shakshuka")
	env.html.Text(frag, "#recipe-grid .updated", "Updated 2026-10-01")
}

func TestRecipes_EmptyFeed(t *testing.T) {
	env := newTestEnv(t)
	env.api.SetFeed(testutils.PathAIRecipes, recipe.Feed{})

	frag := env.document(env.htmx(http.MethodGet, "/htmx/recipes", nil))
	env.html.Text(frag, "#recipe-grid .empty", "No recipes yet")
	env.html.Absent(frag, ".updated")
}

func TestRecipes_ServedFromCache(t *testing.T) {
	env := newTestEnv(t)
	env.api.SetFeed(testutils.PathAIRecipes, backendFeed("Shakshuka"))

	env.htmx(http.MethodGet, "/htmx/recipes", nil)
	env.htmx(http.MethodGet, "/htmx/recipes", nil)

	assert.Equal(t, 1, env.api.Hits(testutils.PathAIRecipes))
}

func TestRecipes_RendersInArabic(t *testing.T) {
	env := newTestEnv(t)
	env.api.FailWith(testutils.PathAIRecipes, http.StatusBadGateway)

	doc := env.document(env.htmx(http.MethodGet, "/htmx/recipes?lang=ar", nil))
	notice := strings.TrimSpace(doc.Find(".notice").Text())
	assert.NotEmpty(t, notice)
	assert.NotContains(t, notice, "sample recipes")
}

func TestPlanner_DefaultsToPlanTab(t *testing.T) {
	env := newTestEnv(t)

	doc := env.document(env.get("/planner"))
	env.html.Attr(doc, ".tab-panel", "data-tab", TabPlan)
	env.html.Count(doc, ".tabs .tab", 3)
	env.html.Count(doc, "table.plan tbody tr", 7)
	env.html.Text(doc, "table.plan tbody tr:first-child th", "Monday")
	env.html.Text(doc, "table.plan", "Overnight oats")
}

func TestPlanner_TabIsRememberedPerSession(t *testing.T) {
	env := newTestEnv(t)

	doc := env.document(env.get("/planner?tab=nutrition"))
	env.html.Attr(doc, ".tab-panel", "data-tab", TabNutrition)
	env.html.Text(doc, ".weekly", "Meals counted:")

	doc = env.document(env.get("/planner"))
	env.html.Attr(doc, ".tab-panel", "data-tab", TabNutrition)

	doc = env.document(env.get("/planner?tab=bogus"))
	env.html.Attr(doc, ".tab-panel", "data-tab", TabNutrition)
}

func TestPlanner_HTMXReturnsTabsOnly(t *testing.T) {
	env := newTestEnv(t)

	rec := env.htmx(http.MethodGet, "/planner?tab=shopping", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<html")

	doc := env.document(rec)
	env.html.Attr(doc, "#planner .tab-panel", "data-tab", TabShopping)
	env.html.Text(doc, ".shopping-list", "Lemon (x")
	env.html.Exists(doc, `a[href="/planner/shopping-list.txt"]`)
	env.html.Exists(doc, `a[href="/planner/shopping-list/print"]`)
	env.html.Text(doc, ".total", "Total cost:")
}

func TestPlanner_ExportDisabled(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Features.EnableExport = false
	})

	doc := env.document(env.htmx(http.MethodGet, "/planner?tab=shopping", nil))
	env.html.Absent(doc, ".actions")
	assert.Equal(t, http.StatusNotFound, env.get("/planner/shopping-list.txt").Code)
}

func TestShoppingListExport(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/planner/shopping-list.txt")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="shopping-list.txt"`, rec.Header().Get("Content-Disposition"))

	lines := strings.Split(strings.TrimSuffix(rec.Body.String(), "\n"), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		assert.Regexp(t, `^.+ \(x\d+\)$`, line)
	}
	assert.Contains(t, lines, "Oats (x2)")
}

func TestShoppingListPrint(t *testing.T) {
	env := newTestEnv(t)

	doc := env.document(env.get("/planner/shopping-list/print"))
	env.html.Exists(doc, "body.bare")
	env.html.Absent(doc, ".site-header")
	env.html.Exists(doc, ".print-sheet[data-autoprint]")
	env.html.Text(doc, ".print-sheet .shopping-list", "Oats (x2)")
}

func TestMedical_ListsBackendRecipes(t *testing.T) {
	env := newTestEnv(t)
	env.api.SetFeed(testutils.PathMedicalRecipes, backendFeed("Low salt lentils"))

	doc := env.document(env.get("/medical"))
	env.html.Text(doc, "#medical-panel .recipe-card h3", "Low salt lentils")
	env.html.Attr(doc, "#medical-panel form", "hx-post", "/htmx/medical/generate")
	env.html.Absent(doc, "#medical-panel .error")
}

func TestMedical_FallsBackToSampleRecipes(t *testing.T) {
	env := newTestEnv(t)
	env.api.Close()

	doc := env.document(env.get("/medical"))
	env.html.Text(doc, "#medical-panel .notice", "Showing sample recipes")
	env.html.Text(doc, "#medical-panel .recipe-card h3", "Low sodium vegetable stew")
}

func TestMedicalGenerate_ShowsNewRecipes(t *testing.T) {
	env := newTestEnv(t)
	env.api.SetFeed(testutils.PathMedicalRecipes, backendFeed("Baked cod"))
	env.get("/medical")

	env.api.SetGenerated(backendFeed("Diabetic friendly oats").Recipes)
	rec := env.htmx(http.MethodPost, "/htmx/medical/generate?lang=ar", url.Values{
		"condition":   {"diabetes"},
		"constraints": {"no nuts"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("HX-Trigger"))

	doc := env.document(rec)
	assert.Equal(t, []string{"Diabetic friendly oats", "Baked cod"}, env.html.Texts(doc, ".recipe-card h3"),
		"the cached list is dropped after generating")
	env.html.Attr(doc, `input[name="condition"]`, "value", "diabetes")

	reqs := env.api.GenerateRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, recipe.GenerateRequest{Lang: "ar", Condition: "diabetes", Constraints: "no nuts"}, reqs[0])
}

func TestMedicalGenerate_EmptyResultIsNotAnError(t *testing.T) {
	env := newTestEnv(t)
	env.api.SetFeed(testutils.PathMedicalRecipes, backendFeed("Baked cod"))

	rec := env.htmx(http.MethodPost, "/htmx/medical/generate", url.Values{"condition": {"gout"}})
	require.Equal(t, http.StatusOK, rec.Code)

	doc := env.document(rec)
	env.html.Absent(doc, ".error")
	env.html.Text(doc, ".recipe-card h3", "Baked cod")
}

func TestMedicalGenerate_BackendFailure(t *testing.T) {
	env := newTestEnv(t)
	env.api.SetFeed(testutils.PathMedicalRecipes, backendFeed("Baked cod"))
	env.api.FailWith(testutils.PathGenerateMedical, http.StatusInternalServerError)

	rec := env.htmx(http.MethodPost, "/htmx/medical/generate", url.Values{"condition": {"hypertension"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var trigger map[string]map[string]string
	require.NoError(t, json.Unmarshal([]byte(rec.Header().Get("HX-Trigger")), &trigger))
	assert.Equal(t, "We could not generate new recipes. Please try again later.", trigger["showAlert"]["message"])

	doc := env.document(rec)
	env.html.Text(doc, ".error", "Error generating")
	env.html.Text(doc, ".recipe-card h3", "Baked cod")
	assert.Equal(t, 1, env.logs.FilterMessage("Medical recipe generation failed").Len())
}

func TestMedicalGenerate_InvalidForm(t *testing.T) {
	env := newTestEnv(t)

	rec := env.htmx(http.MethodPost, "/htmx/medical/generate", url.Values{
		"condition":   {"<script>alert(1)</script>"},
		"constraints": {strings.Repeat("x", 501)},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	doc := env.document(rec)
	env.html.Text(doc, ".error", "Please check the form")
	env.html.Attr(doc, `input[name="condition"]`, "aria-invalid", "true")
	env.html.Attr(doc, `textarea[name="constraints"]`, "aria-invalid", "true")
	assert.Zero(t, env.api.Hits(testutils.PathGenerateMedical), "invalid forms never reach the backend")
}

func TestMedicalGenerate_CanceledRequestRendersNothing(t *testing.T) {
	env := newTestEnv(t)
	env.api.Delay(testutils.PathGenerateMedical, 5*time.Second)

	req := newCanceledHTMXPost(t, "/htmx/medical/generate", url.Values{"condition": {"diabetes"}})
	rec := env.serve(req)

	assert.Empty(t, rec.Body.String())
	assert.Empty(t, rec.Header().Get("HX-Trigger"))
}

func TestMagazine_Pagination(t *testing.T) {
	env := newTestEnv(t)

	doc := env.document(env.get("/magazine"))
	env.html.Count(doc, "#magazine-list .article-card", articlesPerPage)
	env.html.Text(doc, ".pager .current", "1")
	env.html.Exists(doc, ".pager span.disabled")
	env.html.Attr(doc, `.pager a[rel="next"]`, "href", "/magazine?page=2")

	doc = env.document(env.get("/magazine?page=2"))
	env.html.Count(doc, "#magazine-list .article-card", 3)
	env.html.Text(doc, ".pager .current", "2")

	doc = env.document(env.get("/magazine?page=99"))
	env.html.Text(doc, ".pager .current", "2")
}

func TestMagazine_CategoryFilter(t *testing.T) {
	env := newTestEnv(t)

	rec := env.htmx(http.MethodGet, "/magazine?category=techniques", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<html")

	doc := env.document(rec)
	env.html.Count(doc, ".article-card", 3)
	env.html.Text(doc, ".filters a.active", "Techniques")
	env.html.Count(doc, ".pager a", 0)

	doc = env.document(env.get("/magazine?category=unknown"))
	env.html.Count(doc, ".article-card", articlesPerPage)
	env.html.Text(doc, ".filters a.active", "All")
}

func TestArticle(t *testing.T) {
	env := newTestEnv(t)

	doc := env.document(env.get("/magazine/knife-skills-basics"))
	env.html.Text(doc, "article.article h1", "Knife skills for beginners")
	env.html.Text(doc, "article.article .meta", "By Sara Nasser")
	assert.Contains(t, doc.Find("title").Text(), "Knife skills for beginners | Kitchen")

	related := doc.Find(".related .article-card")
	assert.Equal(t, 3, related.Length())
	assert.Equal(t, "Techniques", strings.TrimSpace(related.First().Find(".tag").Text()), "same category first")
}

func TestArticle_Arabic(t *testing.T) {
	env := newTestEnv(t)

	doc := env.document(env.get("/magazine/eating-the-rainbow?lang=ar"))
	env.html.Text(doc, "article.article h1", "تناول ألوان قوس قزح")
}

func TestArticle_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/magazine/no-such-article")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	env.html.Text(env.document(rec), ".error-page", "We could not find that page.")
}

func TestKids_FiltersAndPagination(t *testing.T) {
	env := newTestEnv(t)

	doc := env.document(env.get("/kids"))
	env.html.Count(doc, ".kids-card", kidsMealsPerPage)
	env.html.Attr(doc, `.pager a[rel="next"]`, "href", "/kids?page=2")

	doc = env.document(env.get("/kids?page=3"))
	env.html.Count(doc, ".kids-card", 1)

	doc = env.document(env.get("/kids?age=school&meal=dinner"))
	env.html.Count(doc, ".kids-card", 2)
	env.html.Attr(doc, `select[name="age"] option[selected]`, "value", "school")
	env.html.Attr(doc, `select[name="meal"] option[selected]`, "value", "dinner")

	doc = env.document(env.get("/kids?age=toddler&meal=brunch"))
	env.html.Count(doc, ".kids-card", 4, "unknown filters match everything")
}

func TestKids_HTMXReturnsList(t *testing.T) {
	env := newTestEnv(t)

	rec := env.htmx(http.MethodGet, "/kids?meal=snack", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<html")

	doc := env.document(rec)
	env.html.Exists(doc, "#kids-list")
	env.html.Count(doc, ".kids-card", 3)
}

func TestKids_EmptyFilterResult(t *testing.T) {
	env := newTestEnv(t)
	env.server.catalog.KidsMeals = nil

	doc := env.document(env.get("/kids"))
	env.html.Text(doc, ".empty", "No meals match these filters.")
	env.html.Text(doc, ".pager .current", "1")
}

func newCanceledHTMXPost(t *testing.T, target string, form url.Values) *http.Request {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode())).WithContext(ctx)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	return req
}
