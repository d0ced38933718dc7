package recipe

import "errors"

// Domain errors for recipe operations

var (
	// ErrRecipeNotFound is returned when a recipe lookup misses
	ErrRecipeNotFound = errors.New("recipe not found")

	// ErrNoRecipesGenerated is returned when generation succeeds but yields nothing
	ErrNoRecipesGenerated = errors.New("no recipes generated")
)

// Find returns the recipe with the given id
func Find(recipes []Recipe, id ID) (Recipe, error) {
	for _, r := range recipes {
		if r.ID == id {
			return r, nil
		}
	}
	return Recipe{}, ErrRecipeNotFound
}
