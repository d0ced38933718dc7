package webserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/alchemorsel/kitchen/internal/domain/content"
	"github.com/alchemorsel/kitchen/internal/domain/mealplan"
	"github.com/alchemorsel/kitchen/internal/domain/recipe"
	mw "github.com/alchemorsel/kitchen/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/kitchen/internal/infrastructure/monitoring"
	"github.com/alchemorsel/kitchen/internal/platform/i18n"
	"github.com/alchemorsel/kitchen/pkg/pagination"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// fetchAIRecipes loads the AI recipe feed, substituting the bundled sample
// feed when the backend cannot be used. A canceled request yields Failed.
func (s *WebServer) fetchAIRecipes(ctx context.Context) FetchState[recipe.Feed] {
	feed, source, err := s.apiClient.GetAIRecipes(ctx)
	if err != nil {
		return s.fallback(ctx, EndpointAIRecipes, "ai_recipes", s.catalog.AIRecipes, err)
	}
	return Succeeded(feed, source)
}

// fetchMedicalRecipes is fetchAIRecipes for the medical feed
func (s *WebServer) fetchMedicalRecipes(ctx context.Context) FetchState[recipe.Feed] {
	feed, source, err := s.apiClient.GetMedicalRecipes(ctx)
	if err != nil {
		return s.fallback(ctx, EndpointMedicalRecipes, "medical_recipes", s.catalog.MedicalRecipes, err)
	}
	return Succeeded(feed, source)
}

func (s *WebServer) fallback(ctx context.Context, endpoint, dataset string, sample []recipe.Recipe, err error) FetchState[recipe.Feed] {
	if ctx.Err() != nil {
		s.logger.Debug("Fetch abandoned", zap.String("endpoint", endpoint), zap.Error(ctx.Err()))
		return Failed[recipe.Feed](ctx.Err())
	}
	monitoring.WithContext(ctx, s.logger).Warn("Backend fetch failed, serving sample data",
		zap.String("endpoint", endpoint),
		zap.String("dataset", dataset),
		zap.Error(err),
	)
	s.metrics.FallbackServed(dataset)
	return Succeeded(recipe.Feed{Recipes: sample}, SourceFallback)
}

func (s *WebServer) handleHome(w http.ResponseWriter, r *http.Request) {
	view := homeView{L: s.localizer(r), Latest: s.fetchAIRecipes(r.Context())}
	s.render(w, http.StatusOK, "home", s.newPage(r, "", "/", view))
}

// handleRecipes renders the grid shell; htmx loads the grid itself from
// /htmx/recipes
func (s *WebServer) handleRecipes(w http.ResponseWriter, r *http.Request) {
	view := recipesView{L: s.localizer(r), State: Loading[recipe.Feed]()}
	s.render(w, http.StatusOK, "recipes", s.newPage(r, "nav.recipes", "/recipes", view))
}

func (s *WebServer) handleHTMXRecipes(w http.ResponseWriter, r *http.Request) {
	state := s.fetchAIRecipes(r.Context())
	if state.IsFailed() {
		return
	}
	s.renderPartial(w, http.StatusOK, "recipe-grid", recipesView{L: s.localizer(r), State: state})
}

func (s *WebServer) plannerView(r *http.Request, tab string) plannerView {
	plan := s.catalog.SampleWeek
	return plannerView{
		L:         s.localizer(r),
		Tab:       tab,
		Tabs:      plannerTabs,
		Slots:     mealplan.Slots,
		Plan:      plan,
		Shopping:  mealplan.BuildShoppingList(plan),
		Nutrition: mealplan.WeeklyNutrition(plan),
		Export:    s.config.Features.EnableExport,
	}
}

// handlePlanner shows the meal planner. The selected tab is remembered per
// session; htmx tab switches receive only the tab panel.
func (s *WebServer) handlePlanner(w http.ResponseWriter, r *http.Request) {
	session := SessionFrom(r.Context())

	tab := r.URL.Query().Get("tab")
	if isPlannerTab(tab) {
		session.SetTab("planner", tab)
	} else {
		tab = session.Tab("planner", TabPlan)
	}

	view := s.plannerView(r, tab)
	if mw.IsHTMX(r) {
		s.renderPartial(w, http.StatusOK, "planner-tabs", view)
		return
	}
	s.render(w, http.StatusOK, "planner", s.newPage(r, "nav.planner", "/planner", view))
}

func (s *WebServer) handleShoppingListExport(w http.ResponseWriter, r *http.Request) {
	list := mealplan.BuildShoppingList(s.catalog.SampleWeek)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="shopping-list.txt"`)
	if err := list.WriteText(w); err != nil {
		s.logger.Warn("Failed to write shopping list", zap.Error(err))
		return
	}
	s.metrics.Export("text")
}

func (s *WebServer) handleShoppingListPrint(w http.ResponseWriter, r *http.Request) {
	page := s.newPage(r, "planner.tab.shopping", "/planner", s.plannerView(r, TabShopping))
	page.Bare = true
	s.metrics.Export("print")
	s.render(w, http.StatusOK, "print", page)
}

func (s *WebServer) handleMedical(w http.ResponseWriter, r *http.Request) {
	view := medicalView{L: s.localizer(r), State: s.fetchMedicalRecipes(r.Context())}
	s.render(w, http.StatusOK, "medical", s.newPage(r, "nav.medical", "/medical", view))
}

// handleHTMXMedicalGenerate asks the backend for new recipes, then refetches
// the medical feed. A failed generation keeps the panel usable: the inline
// error is shown above whatever the refetch returns and the page raises an
// alert through HX-Trigger.
func (s *WebServer) handleHTMXMedicalGenerate(w http.ResponseWriter, r *http.Request) {
	l := s.localizer(r)
	form := generateForm{
		Condition:   strings.TrimSpace(r.FormValue("condition")),
		Constraints: strings.TrimSpace(r.FormValue("constraints")),
	}
	view := medicalView{L: l, Form: form}

	req := recipe.GenerateRequest{
		Lang:        l.Lang(),
		Condition:   form.Condition,
		Constraints: form.Constraints,
	}
	if fields := s.validationFields(req); len(fields) > 0 {
		view.Invalid = fields
		view.Error = l.T("medical.invalid")
		view.State = s.fetchMedicalRecipes(r.Context())
		s.renderPartial(w, http.StatusOK, "medical-panel", view)
		return
	}

	if _, err := s.apiClient.GenerateMedicalRecipes(r.Context(), req); err != nil && !errors.Is(err, recipe.ErrNoRecipesGenerated) {
		if r.Context().Err() != nil {
			return
		}
		monitoring.WithContext(r.Context(), s.logger).Warn("Medical recipe generation failed", zap.String("lang", req.Lang), zap.Error(err))
		view.Error = l.T("medical.error")
		w.Header().Set("HX-Trigger", alertTrigger(l.T("medical.alert")))
	}

	view.State = s.fetchMedicalRecipes(r.Context())
	if view.State.IsFailed() {
		return
	}
	s.renderPartial(w, http.StatusOK, "medical-panel", view)
}

func (s *WebServer) handleMagazine(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if !s.catalog.IsCategory(category) {
		category = ""
	}

	page := pagination.Paginate(s.catalog.ArticlesIn(category), pageParam(r), articlesPerPage)
	view := magazineView{
		L:          s.localizer(r),
		Category:   category,
		Categories: s.catalog.Categories,
		Page:       page,
		Pager:      newPager(r, page.Window, "#magazine-list"),
	}
	if mw.IsHTMX(r) {
		s.renderPartial(w, http.StatusOK, "magazine-list", view)
		return
	}
	s.render(w, http.StatusOK, "magazine", s.newPage(r, "nav.magazine", "/magazine", view))
}

func (s *WebServer) handleArticle(w http.ResponseWriter, r *http.Request) {
	article, err := s.catalog.Article(chi.URLParam(r, "slug"))
	if errors.Is(err, content.ErrArticleNotFound) {
		s.handleNotFound(w, r)
		return
	}

	l := s.localizer(r)
	view := articleView{L: l, Article: article, Related: s.catalog.Related(article, 3)}
	page := s.newPage(r, "", "/magazine", view)
	page.Title = article.Title.In(l.Lang()) + " | " + l.T("app.title")
	s.render(w, http.StatusOK, "article", page)
}

func (s *WebServer) handleKids(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	age, meal := q.Get("age"), q.Get("meal")
	if !oneOf(s.catalog.AgeGroups, age) {
		age = ""
	}
	if !oneOf(s.catalog.MealTypes, meal) {
		meal = ""
	}

	page := pagination.Paginate(s.catalog.KidsMealsFor(age, meal), pageParam(r), kidsMealsPerPage)
	view := kidsView{
		L:         s.localizer(r),
		Age:       age,
		Meal:      meal,
		AgeGroups: s.catalog.AgeGroups,
		MealTypes: s.catalog.MealTypes,
		Page:      page,
		Pager:     newPager(r, page.Window, "#kids-list"),
	}
	if mw.IsHTMX(r) {
		s.renderPartial(w, http.StatusOK, "kids-list", view)
		return
	}
	s.render(w, http.StatusOK, "kids", s.newPage(r, "nav.kids", "/kids", view))
}

// handleLanguage switches the session language and returns to next
func (s *WebServer) handleLanguage(w http.ResponseWriter, r *http.Request) {
	lang := r.FormValue(i18n.LangParam)
	if s.bundle.Supports(lang) {
		SessionFrom(r.Context()).SetLang(lang)
		i18n.SetLanguageCookie(w, lang, s.config.Server.SecureCookies)
	}

	next := safeRedirect(r.FormValue("next"))
	if mw.IsHTMX(r) {
		w.Header().Set("HX-Redirect", next)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// safeRedirect keeps redirects on this site
func safeRedirect(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

func oneOf(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
