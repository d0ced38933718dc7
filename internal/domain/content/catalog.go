// Package content holds the editorial data shipped with the front end: the
// magazine, the kids-meal browser, the sample meal plan and the fallback
// recipe datasets shown when the backend cannot be reached.
package content

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/alchemorsel/kitchen/internal/domain/mealplan"
	"github.com/alchemorsel/kitchen/internal/domain/recipe"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var embedded embed.FS

// ErrArticleNotFound is returned for an unknown article slug
var ErrArticleNotFound = errors.New("article not found")

// Text is a string translated per language code
type Text map[string]string

// In returns the text for lang, falling back to English and then to any value
func (t Text) In(lang string) string {
	if v, ok := t[lang]; ok && v != "" {
		return v
	}
	if v, ok := t["en"]; ok {
		return v
	}
	for _, v := range t {
		return v
	}
	return ""
}

// Paragraphs is a list of paragraphs per language code
type Paragraphs map[string][]string

// In returns the paragraphs for lang, falling back to English
func (p Paragraphs) In(lang string) []string {
	if v, ok := p[lang]; ok && len(v) > 0 {
		return v
	}
	return p["en"]
}

// Article is one magazine article
type Article struct {
	Slug        string     `yaml:"slug"`
	Category    string     `yaml:"category"`
	Title       Text       `yaml:"title"`
	Summary     Text       `yaml:"summary"`
	Body        Paragraphs `yaml:"body"`
	Author      string     `yaml:"author"`
	Image       string     `yaml:"image"`
	ReadMinutes int        `yaml:"read_minutes"`
	PublishedAt time.Time  `yaml:"published_at"`
}

// KidsMeal is one entry of the kids-meal browser
type KidsMeal struct {
	ID          string `yaml:"id"`
	Name        Text   `yaml:"name"`
	Description Text   `yaml:"description"`
	AgeGroup    string `yaml:"age_group"`
	MealType    string `yaml:"meal_type"`
	Image       string `yaml:"image"`
	Calories    int    `yaml:"calories"`
	PrepTime    string `yaml:"prep_time"`
}

// Catalog is the full editorial dataset
type Catalog struct {
	Categories     []string
	AgeGroups      []string
	MealTypes      []string
	Articles       []Article
	KidsMeals      []KidsMeal
	AIRecipes      []recipe.Recipe
	MedicalRecipes []recipe.Recipe
	SampleWeek     mealplan.Plan
}

type magazineFile struct {
	Categories []string  `yaml:"categories"`
	Articles   []Article `yaml:"articles"`
}

type kidsFile struct {
	AgeGroups []string   `yaml:"age_groups"`
	MealTypes []string   `yaml:"meal_types"`
	Meals     []KidsMeal `yaml:"meals"`
}

type fallbackFile struct {
	AIRecipes      []recipe.Recipe `yaml:"ai_recipes"`
	MedicalRecipes []recipe.Recipe `yaml:"medical_recipes"`
}

type plannerFile struct {
	SampleWeek mealplan.Plan `yaml:"sample_week"`
}

// Load reads the embedded catalog
func Load() (*Catalog, error) {
	return LoadFS(embedded)
}

// LoadFS reads data/*.yaml from fsys
func LoadFS(fsys fs.FS) (*Catalog, error) {
	var (
		mag      magazineFile
		kids     kidsFile
		fallback fallbackFile
		planner  plannerFile
	)
	files := []struct {
		name string
		dst  interface{}
	}{
		{"data/magazine.yaml", &mag},
		{"data/kids.yaml", &kids},
		{"data/fallback.yaml", &fallback},
		{"data/planner.yaml", &planner},
	}
	for _, f := range files {
		data, err := fs.ReadFile(fsys, f.name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.name, err)
		}
		if err := yaml.Unmarshal(data, f.dst); err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.name, err)
		}
	}

	c := &Catalog{
		Categories:     mag.Categories,
		AgeGroups:      kids.AgeGroups,
		MealTypes:      kids.MealTypes,
		Articles:       mag.Articles,
		KidsMeals:      kids.Meals,
		AIRecipes:      fallback.AIRecipes,
		MedicalRecipes: fallback.MedicalRecipes,
		SampleWeek:     planner.SampleWeek,
	}
	if err := c.validate(); err != nil {
		return nil, err
	}

	// Newest first
	sort.SliceStable(c.Articles, func(i, j int) bool {
		return c.Articles[i].PublishedAt.After(c.Articles[j].PublishedAt)
	})
	return c, nil
}

func (c *Catalog) validate() error {
	slugs := make(map[string]bool, len(c.Articles))
	for _, a := range c.Articles {
		if a.Slug == "" {
			return fmt.Errorf("article without slug")
		}
		if slugs[a.Slug] {
			return fmt.Errorf("duplicate article slug %q", a.Slug)
		}
		slugs[a.Slug] = true
		if !contains(c.Categories, a.Category) {
			return fmt.Errorf("article %q: unknown category %q", a.Slug, a.Category)
		}
	}
	for _, m := range c.KidsMeals {
		if !contains(c.AgeGroups, m.AgeGroup) {
			return fmt.Errorf("kids meal %q: unknown age group %q", m.ID, m.AgeGroup)
		}
		if !contains(c.MealTypes, m.MealType) {
			return fmt.Errorf("kids meal %q: unknown meal type %q", m.ID, m.MealType)
		}
	}
	return nil
}

// ArticlesIn returns the articles of category, or all of them when category
// is empty or unknown
func (c *Catalog) ArticlesIn(category string) []Article {
	if category == "" || !contains(c.Categories, category) {
		return c.Articles
	}
	out := make([]Article, 0, len(c.Articles))
	for _, a := range c.Articles {
		if a.Category == category {
			out = append(out, a)
		}
	}
	return out
}

// Article returns the article with slug
func (c *Catalog) Article(slug string) (Article, error) {
	for _, a := range c.Articles {
		if a.Slug == slug {
			return a, nil
		}
	}
	return Article{}, ErrArticleNotFound
}

// Related returns up to n other articles, same category first
func (c *Catalog) Related(a Article, n int) []Article {
	out := make([]Article, 0, n)
	for _, other := range c.Articles {
		if len(out) == n {
			return out
		}
		if other.Slug != a.Slug && other.Category == a.Category {
			out = append(out, other)
		}
	}
	for _, other := range c.Articles {
		if len(out) == n {
			break
		}
		if other.Slug != a.Slug && other.Category != a.Category {
			out = append(out, other)
		}
	}
	return out
}

// KidsMealsFor filters kids meals by age group and meal type; empty or
// unknown filters match everything
func (c *Catalog) KidsMealsFor(ageGroup, mealType string) []KidsMeal {
	ageGroup = strings.TrimSpace(ageGroup)
	mealType = strings.TrimSpace(mealType)
	if !contains(c.AgeGroups, ageGroup) {
		ageGroup = ""
	}
	if !contains(c.MealTypes, mealType) {
		mealType = ""
	}

	out := make([]KidsMeal, 0, len(c.KidsMeals))
	for _, m := range c.KidsMeals {
		if ageGroup != "" && m.AgeGroup != ageGroup {
			continue
		}
		if mealType != "" && m.MealType != mealType {
			continue
		}
		out = append(out, m)
	}
	return out
}

// IsCategory reports whether category exists
func (c *Catalog) IsCategory(category string) bool {
	return contains(c.Categories, category)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
