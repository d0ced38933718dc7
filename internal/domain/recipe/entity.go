// Package recipe contains the read model for recipes served by the backend.
// Recipes are immutable on the front end: they are fetched, rendered and
// discarded with the request that asked for them.
package recipe

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
	"unicode"
)

// Recipe represents one recipe as rendered by the front end
type Recipe struct {
	ID          ID              `json:"id" yaml:"id"`
	Title       string          `json:"title" yaml:"title"`
	Description string          `json:"description" yaml:"description"`
	Image       string          `json:"image" yaml:"image"`
	PrepTime    string          `json:"prep_time" yaml:"prep_time"`
	Calories    int             `json:"calories" yaml:"calories"`
	Macros      Macros          `json:"macros" yaml:"macros"`
	Difficulty  DifficultyLevel `json:"difficulty" yaml:"difficulty"`
	Servings    int             `json:"servings" yaml:"servings"`
	Tags        []string        `json:"tags,omitempty" yaml:"tags"`
}

// wireRecipe accepts both the short field names used by the recipe feeds
// (desc, time) and the long ones. Every field is lenient: a value of the
// wrong type is treated as absent so one odd recipe cannot sink a feed.
type wireRecipe struct {
	ID          ID             `json:"id"`
	Title       flexibleText   `json:"title"`
	Desc        flexibleText   `json:"desc"`
	Description flexibleText   `json:"description"`
	Image       flexibleText   `json:"image"`
	Time        flexibleText   `json:"time"`
	PrepTime    flexibleText   `json:"prep_time"`
	Calories    flexibleInt    `json:"calories"`
	Macros      flexibleMacros `json:"macros"`
	Protein     flexibleFloat  `json:"protein"`
	Carbs       flexibleFloat  `json:"carbs"`
	Fat         flexibleFloat  `json:"fat"`
	Difficulty  flexibleText   `json:"difficulty"`
	Servings    flexibleInt    `json:"servings"`
	Tags        flexibleTags   `json:"tags"`
}

// UnmarshalJSON decodes a recipe from any of the backend shapes
func (r *Recipe) UnmarshalJSON(data []byte) error {
	var w wireRecipe
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*r = Recipe{
		ID:          w.ID,
		Title:       strings.TrimSpace(string(w.Title)),
		Description: string(firstNonEmpty(w.Desc, w.Description)),
		Image:       string(w.Image),
		PrepTime:    string(firstNonEmpty(w.Time, w.PrepTime)),
		Calories:    int(w.Calories),
		Difficulty:  ParseDifficulty(string(w.Difficulty)),
		Servings:    int(w.Servings),
		Tags:        []string(w.Tags),
	}
	if w.Macros.set {
		r.Macros = w.Macros.value
	} else {
		r.Macros = Macros{Protein: float64(w.Protein), Carbs: float64(w.Carbs), Fat: float64(w.Fat)}
	}
	return nil
}

func firstNonEmpty(values ...flexibleText) flexibleText {
	for _, v := range values {
		if strings.TrimSpace(string(v)) != "" {
			return v
		}
	}
	return ""
}

// Feed is the payload of the recipe list endpoints
type Feed struct {
	UpdatedAt time.Time `json:"updated_at"`
	Recipes   []Recipe  `json:"recipes"`
}

// List decodes a JSON array of recipes, skipping entries that are not
// recipe objects
type List []Recipe

func (l *List) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(List, 0, len(raw))
	for _, item := range raw {
		if string(item) == "null" {
			continue
		}
		var r Recipe
		if err := json.Unmarshal(item, &r); err == nil {
			out = append(out, r)
		}
	}
	*l = out
	return nil
}

// UnmarshalJSON tolerates a missing or unparseable updated_at
func (f *Feed) UnmarshalJSON(data []byte) error {
	var w struct {
		UpdatedAt string `json:"updated_at"`
		Recipes   List   `json:"recipes"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	f.Recipes = w.Recipes
	f.UpdatedAt = time.Time{}
	if w.UpdatedAt != "" {
		if t, err := time.Parse(time.RFC3339, w.UpdatedAt); err == nil {
			f.UpdatedAt = t
		}
	}
	return nil
}

// IsEmpty reports whether the feed has no recipes
func (f Feed) IsEmpty() bool {
	return len(f.Recipes) == 0
}

// GenerateRequest is the body of the medical recipe generation call
type GenerateRequest struct {
	Lang        string `json:"lang" validate:"required,bcp47_language_tag"`
	Condition   string `json:"condition,omitempty" validate:"omitempty,min=2,max=120,no_markup"`
	Constraints string `json:"constraints,omitempty" validate:"omitempty,max=500,no_markup"`
}

// Suggest ranks recipes against a free-text message. Each lower-cased word of
// at least three letters scores one point per occurrence in the title and
// description. The top limit recipes with a positive score are returned,
// best first; when nothing matches the first limit recipes of the feed are
// returned instead, since feeds are ordered newest first.
func Suggest(recipes []Recipe, message string, limit int) []Recipe {
	if limit <= 0 || len(recipes) == 0 {
		return nil
	}

	terms := Terms(message)

	type scored struct {
		recipe Recipe
		score  int
		index  int
	}
	var matches []scored
	for i, rec := range recipes {
		haystack := strings.ToLower(rec.Title + " " + rec.Description)
		score := 0
		for _, term := range terms {
			score += strings.Count(haystack, term)
		}
		if score > 0 {
			matches = append(matches, scored{recipe: rec, score: score, index: i})
		}
	}

	if len(matches) == 0 {
		n := min(limit, len(recipes))
		out := make([]Recipe, n)
		copy(out, recipes[:n])
		return out
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].index < matches[j].index
	})

	n := min(limit, len(matches))
	out := make([]Recipe, 0, n)
	for _, m := range matches[:n] {
		out = append(out, m.recipe)
	}
	return out
}

// Terms splits a message into distinct lower-case words of three or more letters
func Terms(message string) []string {
	words := strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	seen := make(map[string]struct{}, len(words))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if len([]rune(w)) < 3 {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, w)
	}
	return terms
}
