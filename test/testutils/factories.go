// Package testutils provides test data factories for consistent test data generation
package testutils

import (
	"fmt"
	"time"

	"github.com/alchemorsel/kitchen/internal/domain/mealplan"
	"github.com/alchemorsel/kitchen/internal/domain/recipe"
	"github.com/brianvoe/gofakeit/v6"
)

// Weekdays in plan order
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// RecipeFactory provides methods to create test recipes
type RecipeFactory struct {
	faker *gofakeit.Faker
	seq   int
}

// NewRecipeFactory creates a new recipe factory with seeded faker
func NewRecipeFactory(seed int64) *RecipeFactory {
	return &RecipeFactory{
		faker: gofakeit.New(seed),
	}
}

// CreateRecipe creates a recipe with realistic random content
func (rf *RecipeFactory) CreateRecipe() recipe.Recipe {
	rf.seq++
	return recipe.Recipe{
		ID:          recipe.ID(fmt.Sprintf("%d", rf.seq)),
		Title:       rf.faker.Dinner(),
		Description: rf.faker.Sentence(8),
		Image:       rf.faker.URL(),
		PrepTime:    fmt.Sprintf("%d min", rf.faker.Number(5, 90)),
		Calories:    rf.faker.Number(120, 900),
		Macros: recipe.Macros{
			Protein: float64(rf.faker.Number(2, 60)),
			Carbs:   float64(rf.faker.Number(5, 120)),
			Fat:     float64(rf.faker.Number(1, 50)),
		},
		Difficulty: recipe.DifficultyLevel(rf.faker.RandomString([]string{"easy", "medium", "hard"})),
		Servings:   rf.faker.Number(1, 6),
	}
}

// CreateRecipes creates n recipes
func (rf *RecipeFactory) CreateRecipes(n int) []recipe.Recipe {
	recipes := make([]recipe.Recipe, 0, n)
	for i := 0; i < n; i++ {
		recipes = append(recipes, rf.CreateRecipe())
	}
	return recipes
}

// CreateFeed creates a feed of n recipes stamped with the given time
func (rf *RecipeFactory) CreateFeed(n int, updatedAt time.Time) recipe.Feed {
	return recipe.Feed{UpdatedAt: updatedAt, Recipes: rf.CreateRecipes(n)}
}

// PlanFactory provides methods to create meal plans
type PlanFactory struct {
	faker *gofakeit.Faker
}

// NewPlanFactory creates a new plan factory with seeded faker
func NewPlanFactory(seed int64) *PlanFactory {
	return &PlanFactory{
		faker: gofakeit.New(seed),
	}
}

// CreateMeal creates a meal with ingredients, cost and nutrition
func (pf *PlanFactory) CreateMeal() *mealplan.Meal {
	n := pf.faker.Number(1, 6)
	ingredients := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if pf.faker.Bool() {
			ingredients = append(ingredients, pf.faker.Vegetable())
		} else {
			ingredients = append(ingredients, pf.faker.Fruit())
		}
	}
	cost := float64(pf.faker.Number(100, 2500)) / 100

	return &mealplan.Meal{
		Title:       pf.faker.Lunch(),
		Ingredients: ingredients,
		Cost:        &cost,
		Nutrition: &mealplan.Nutrition{
			Calories: float64(pf.faker.Number(150, 900)),
			Protein:  float64(pf.faker.Number(2, 60)),
			Carbs:    float64(pf.faker.Number(5, 120)),
			Fat:      float64(pf.faker.Number(1, 50)),
		},
	}
}

// CreatePlan creates a seven day plan where each slot is filled with the
// given probability
func (pf *PlanFactory) CreatePlan(fillRate float64) mealplan.Plan {
	plan := make(mealplan.Plan, 0, len(Weekdays))
	for _, day := range Weekdays {
		d := mealplan.Day{Day: day}
		if pf.faker.Float64Range(0, 1) < fillRate {
			d.Breakfast = pf.CreateMeal()
		}
		if pf.faker.Float64Range(0, 1) < fillRate {
			d.Lunch = pf.CreateMeal()
		}
		if pf.faker.Float64Range(0, 1) < fillRate {
			d.Dinner = pf.CreateMeal()
		}
		plan = append(plan, d)
	}
	return plan
}

// EmptyPlan returns seven days without any filled slot
func EmptyPlan() mealplan.Plan {
	plan := make(mealplan.Plan, 0, len(Weekdays))
	for _, day := range Weekdays {
		plan = append(plan, mealplan.Day{Day: day})
	}
	return plan
}

// Cost returns a pointer to amount, for building slots inline
func Cost(amount float64) *float64 {
	return &amount
}

// TitledFeed creates a feed whose recipes carry the given titles in order
func TitledFeed(titles ...string) recipe.Feed {
	feed := recipe.Feed{UpdatedAt: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)}
	for i, title := range titles {
		feed.Recipes = append(feed.Recipes, recipe.Recipe{
			ID:       recipe.ID(fmt.Sprintf("backend-%d", i+1)),
			Title:    title,
			Calories: 400 + i,
			Servings: 2,
		})
	}
	return feed
}
