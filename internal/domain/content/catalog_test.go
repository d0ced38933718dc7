package content

import (
	"testing"
	"testing/fstest"

	"github.com/alchemorsel/kitchen/internal/domain/mealplan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Embedded(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.NotEmpty(t, c.Articles)
	assert.NotEmpty(t, c.KidsMeals)
	assert.NotEmpty(t, c.AIRecipes)
	assert.NotEmpty(t, c.MedicalRecipes)
	assert.Len(t, c.SampleWeek, 7)

	for i := 1; i < len(c.Articles); i++ {
		assert.False(t, c.Articles[i].PublishedAt.After(c.Articles[i-1].PublishedAt), "articles are newest first")
	}
	for _, a := range c.Articles {
		assert.NotEmpty(t, a.Title.In("en"), a.Slug)
		assert.NotEmpty(t, a.Title.In("ar"), a.Slug)
		assert.NotEmpty(t, a.Body.In("en"), a.Slug)
	}
}

func TestSampleWeek_Aggregates(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	list := mealplan.BuildShoppingList(c.SampleWeek)
	summary := mealplan.WeeklyNutrition(c.SampleWeek)

	var tomato mealplan.Item
	for _, item := range list.Items {
		if item.Name == "Tomato" {
			tomato = item
		}
	}
	assert.Equal(t, 6, tomato.Count, "Tomato and tomato collapse into one entry")
	assert.Equal(t, 18, summary.Meals, "the lunch without nutrition is skipped")
}

func TestArticlesIn(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	all := c.ArticlesIn("")
	assert.Len(t, all, len(c.Articles))
	assert.Len(t, c.ArticlesIn("unknown"), len(c.Articles))

	for _, a := range c.ArticlesIn("techniques") {
		assert.Equal(t, "techniques", a.Category)
	}
	assert.True(t, c.IsCategory("health"))
	assert.False(t, c.IsCategory("gossip"))
}

func TestArticleAndRelated(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	a, err := c.Article("perfect-rice")
	require.NoError(t, err)
	assert.Equal(t, "Perfect rice every time", a.Title.In("en"))

	related := c.Related(a, 3)
	require.Len(t, related, 3)
	assert.Equal(t, "techniques", related[0].Category)
	assert.Equal(t, "techniques", related[1].Category)
	for _, r := range related {
		assert.NotEqual(t, a.Slug, r.Slug)
	}

	_, err = c.Article("nope")
	assert.ErrorIs(t, err, ErrArticleNotFound)
}

func TestKidsMealsFor(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.Len(t, c.KidsMealsFor("", ""), len(c.KidsMeals))

	school := c.KidsMealsFor("school", "")
	require.NotEmpty(t, school)
	for _, m := range school {
		assert.Equal(t, "school", m.AgeGroup)
	}

	dinners := c.KidsMealsFor("school", "dinner")
	assert.Len(t, dinners, 2)

	assert.Len(t, c.KidsMealsFor("teen", "brunch"), len(c.KidsMeals), "unknown filters are ignored")
}

func TestText_In(t *testing.T) {
	text := Text{"en": "Hello", "ar": "مرحبا"}
	assert.Equal(t, "مرحبا", text.In("ar"))
	assert.Equal(t, "Hello", text.In("fr"))
	assert.Equal(t, "", Text{}.In("en"))
}

func TestLoadFS_InvalidCategory(t *testing.T) {
	files := fstest.MapFS{
		"data/magazine.yaml": {Data: []byte("categories: [news]\narticles:\n  - slug: a\n    category: sport\n")},
		"data/kids.yaml":     {Data: []byte("age_groups: []\nmeal_types: []\nmeals: []\n")},
		"data/fallback.yaml": {Data: []byte("ai_recipes: []\nmedical_recipes: []\n")},
		"data/planner.yaml":  {Data: []byte("sample_week: []\n")},
	}

	_, err := LoadFS(files)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown category")
}
