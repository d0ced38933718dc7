package webserver

import (
	"net/http"
	"strconv"

	"github.com/alchemorsel/kitchen/internal/domain/content"
	"github.com/alchemorsel/kitchen/internal/domain/mealplan"
	"github.com/alchemorsel/kitchen/internal/domain/recipe"
	"github.com/alchemorsel/kitchen/internal/platform/i18n"
	"github.com/alchemorsel/kitchen/pkg/pagination"
)

const (
	articlesPerPage  = 6
	kidsMealsPerPage = 6
	homeTeaserSize   = 3
)

// NavItem is one entry of the main navigation
type NavItem struct {
	Key    string
	Href   string
	Active bool
}

var navigation = []NavItem{
	{Key: "nav.home", Href: "/"},
	{Key: "nav.assistant", Href: "/assistant"},
	{Key: "nav.recipes", Href: "/recipes"},
	{Key: "nav.planner", Href: "/planner"},
	{Key: "nav.medical", Href: "/medical"},
	{Key: "nav.magazine", Href: "/magazine"},
	{Key: "nav.kids", Href: "/kids"},
}

// Page is the data every full page render receives. Data holds the
// page-specific view.
type Page struct {
	Title      string
	L          *i18n.Localizer
	Lang       string
	Dir        i18n.Direction
	Nav        []NavItem
	Languages  []i18n.Option
	Path       string
	Version    string
	LiveReload bool
	Bare       bool
	Data       interface{}
}

func (s *WebServer) newPage(r *http.Request, titleKey, section string, data interface{}) Page {
	l := s.localizer(r)

	nav := make([]NavItem, len(navigation))
	for i, item := range navigation {
		item.Active = item.Href == section
		nav[i] = item
	}

	title := l.T("app.title")
	if titleKey != "" {
		title = l.T(titleKey) + " | " + title
	}

	return Page{
		Title:      title,
		L:          l,
		Lang:       l.Lang(),
		Dir:        l.Dir(),
		Nav:        nav,
		Languages:  l.Options(),
		Path:       r.URL.RequestURI(),
		Version:    s.config.App.Version,
		LiveReload: s.liveReload != nil,
		Data:       data,
	}
}

// Pager renders a pagination window whose links keep the other query
// parameters of Base
type Pager struct {
	Window pagination.Window
	Base   string
	Target string
}

// Href returns the link to page
func (p Pager) Href(page int) string {
	return withQuery(p.Base, "page", strconv.Itoa(page))
}

func newPager(r *http.Request, w pagination.Window, target string) Pager {
	return Pager{Window: w, Base: r.URL.RequestURI(), Target: target}
}

// pageParam reads the 1-based page query parameter. Anything unparsable is
// page 1; out-of-range values are clamped by pagination.
func pageParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		return 1
	}
	return n
}

type homeView struct {
	L      *i18n.Localizer
	Latest FetchState[recipe.Feed]
}

// Teaser returns the newest recipes shown on the home page
func (v homeView) Teaser() []recipe.Recipe {
	if !v.Latest.IsSuccess() {
		return nil
	}
	recipes := v.Latest.Data.Recipes
	return recipes[:min(homeTeaserSize, len(recipes))]
}

type recipesView struct {
	L     *i18n.Localizer
	State FetchState[recipe.Feed]
}

type chatView struct {
	L         *i18n.Localizer
	Turns     []ChatTurn
	WebSocket bool
}

type chatTurnView struct {
	L    *i18n.Localizer
	Turn ChatTurn
}

// Planner tabs
const (
	TabPlan      = "plan"
	TabShopping  = "shopping"
	TabNutrition = "nutrition"
)

var plannerTabs = []string{TabPlan, TabShopping, TabNutrition}

func isPlannerTab(tab string) bool {
	for _, t := range plannerTabs {
		if t == tab {
			return true
		}
	}
	return false
}

type plannerView struct {
	L         *i18n.Localizer
	Tab       string
	Tabs      []string
	Slots     []mealplan.Slot
	Plan      mealplan.Plan
	Shopping  mealplan.ShoppingList
	Nutrition mealplan.NutritionSummary
	Export    bool
}

type generateForm struct {
	Condition   string
	Constraints string
}

type medicalView struct {
	L       *i18n.Localizer
	State   FetchState[recipe.Feed]
	Form    generateForm
	Error   string
	Invalid []string
}

type magazineView struct {
	L          *i18n.Localizer
	Category   string
	Categories []string
	Page       pagination.Page[content.Article]
	Pager      Pager
}

// CategoryHref links to the list filtered by category
func (v magazineView) CategoryHref(category string) string {
	return withQuery("/magazine", "category", category)
}

type articleView struct {
	L       *i18n.Localizer
	Article content.Article
	Related []content.Article
}

type kidsView struct {
	L         *i18n.Localizer
	Age       string
	Meal      string
	AgeGroups []string
	MealTypes []string
	Page      pagination.Page[content.KidsMeal]
	Pager     Pager
}

type errorView struct {
	L       *i18n.Localizer
	Status  int
	Message string
}
