package mutation

import (
	"context"

	"github.com/bassista/mealsync/internal/cache"
	"github.com/bassista/mealsync/internal/model"
)

type UpdateRecipeInput struct {
	ID    string `validate:"required"`
	Patch model.RecipePatch
}

type AddIngredientInput struct {
	RecipeID   string `validate:"required"`
	Ingredient model.Ingredient
}

type DeleteIngredientInput struct {
	RecipeID string `validate:"required"`
	ID       string `validate:"required"`
}

func recipeID(r model.Recipe) string         { return r.ID }
func ingredientID(i model.Ingredient) string { return i.ID }

func (m *Mutations) createRecipe() Definition[model.Recipe, model.Recipe] {
	return Definition[model.Recipe, model.Recipe]{
		Name:    "create-recipe",
		Creates: true,
		Validate: func(in model.Recipe) error {
			return m.c.Struct(in)
		},
		Keys: func(model.Recipe) []cache.Key {
			return []cache.Key{RecipesKey}
		},
		Optimistic: func(in model.Recipe, tempID string) []Patch {
			r := in
			r.ID = tempID
			r.ApplyDefaults()
			r.Ingredients = append([]model.Ingredient{}, r.Ingredients...)
			for i := range r.Ingredients {
				r.Ingredients[i].RecipeID = tempID
			}
			r.UpdatedAt = m.now().UnixMilli()
			return []Patch{PatchList(RecipesKey, func(list []model.Recipe) []model.Recipe {
				return append(list, r)
			})}
		},
		Send: func(ctx context.Context, in model.Recipe, _ string) (model.Recipe, error) {
			in.ID = ""
			return m.api.CreateRecipe(ctx, in)
		},
	}
}

func (m *Mutations) CreateRecipe(ctx context.Context, r model.Recipe) (Result[model.Recipe], error) {
	return Run(ctx, m.c, m.createRecipe(), r)
}

// updateRecipe predicts both the list and the detail view of the recipe.
func (m *Mutations) updateRecipe() Definition[UpdateRecipeInput, model.Recipe] {
	return Definition[UpdateRecipeInput, model.Recipe]{
		Name: "update-recipe",
		Validate: func(in UpdateRecipeInput) error {
			return m.c.Struct(in)
		},
		Keys: func(in UpdateRecipeInput) []cache.Key {
			return []cache.Key{RecipesKey, RecipeKey(in.ID)}
		},
		Optimistic: func(in UpdateRecipeInput, _ string) []Patch {
			return []Patch{
				PatchList(RecipesKey, func(list []model.Recipe) []model.Recipe {
					return updateByID(list, in.ID, recipeID, func(r *model.Recipe) { r.Apply(in.Patch) })
				}),
				PatchOne(RecipeKey(in.ID), func(r *model.Recipe) { r.Apply(in.Patch) }),
			}
		},
		Send: func(ctx context.Context, in UpdateRecipeInput, _ string) (model.Recipe, error) {
			return m.api.UpdateRecipe(ctx, in.ID, in.Patch)
		},
	}
}

func (m *Mutations) UpdateRecipe(ctx context.Context, in UpdateRecipeInput) (Result[model.Recipe], error) {
	return Run(ctx, m.c, m.updateRecipe(), in)
}

func (m *Mutations) deleteRecipe() Definition[DeleteInput, struct{}] {
	return Definition[DeleteInput, struct{}]{
		Name: "delete-recipe",
		Validate: func(in DeleteInput) error {
			return m.c.Struct(in)
		},
		Keys: func(in DeleteInput) []cache.Key {
			return []cache.Key{RecipesKey, RecipeKey(in.ID), IngredientsKey(in.ID)}
		},
		Optimistic: func(in DeleteInput, _ string) []Patch {
			return []Patch{
				PatchList(RecipesKey, func(list []model.Recipe) []model.Recipe {
					return removeByID(list, in.ID, recipeID)
				}),
				PatchDrop(RecipeKey(in.ID)),
				PatchDrop(IngredientsKey(in.ID)),
			}
		},
		Send: func(ctx context.Context, in DeleteInput, _ string) (struct{}, error) {
			return struct{}{}, m.api.DeleteRecipe(ctx, in.ID)
		},
	}
}

func (m *Mutations) DeleteRecipe(ctx context.Context, id string) (Result[struct{}], error) {
	return Run(ctx, m.c, m.deleteRecipe(), DeleteInput{ID: id})
}

func (m *Mutations) addIngredient() Definition[AddIngredientInput, model.Ingredient] {
	return Definition[AddIngredientInput, model.Ingredient]{
		Name:    "add-ingredient",
		Creates: true,
		Validate: func(in AddIngredientInput) error {
			return m.c.Struct(in)
		},
		Keys: func(in AddIngredientInput) []cache.Key {
			return []cache.Key{IngredientsKey(in.RecipeID), RecipeKey(in.RecipeID)}
		},
		Optimistic: func(in AddIngredientInput, tempID string) []Patch {
			ing := in.Ingredient
			ing.ID = tempID
			ing.RecipeID = in.RecipeID
			return []Patch{
				PatchList(IngredientsKey(in.RecipeID), func(list []model.Ingredient) []model.Ingredient {
					return append(list, ing)
				}),
				PatchOne(RecipeKey(in.RecipeID), func(r *model.Recipe) {
					r.Ingredients = append(r.Ingredients, ing)
				}),
			}
		},
		Send: func(ctx context.Context, in AddIngredientInput, _ string) (model.Ingredient, error) {
			ing := in.Ingredient
			ing.ID = ""
			ing.RecipeID = in.RecipeID
			return m.api.AddIngredient(ctx, in.RecipeID, ing)
		},
	}
}

func (m *Mutations) AddIngredient(ctx context.Context, in AddIngredientInput) (Result[model.Ingredient], error) {
	return Run(ctx, m.c, m.addIngredient(), in)
}

func (m *Mutations) deleteIngredient() Definition[DeleteIngredientInput, struct{}] {
	return Definition[DeleteIngredientInput, struct{}]{
		Name: "delete-ingredient",
		Validate: func(in DeleteIngredientInput) error {
			return m.c.Struct(in)
		},
		Keys: func(in DeleteIngredientInput) []cache.Key {
			return []cache.Key{IngredientsKey(in.RecipeID), RecipeKey(in.RecipeID)}
		},
		Optimistic: func(in DeleteIngredientInput, _ string) []Patch {
			return []Patch{
				PatchList(IngredientsKey(in.RecipeID), func(list []model.Ingredient) []model.Ingredient {
					return removeByID(list, in.ID, ingredientID)
				}),
				PatchOne(RecipeKey(in.RecipeID), func(r *model.Recipe) {
					r.Ingredients = removeByID(r.Ingredients, in.ID, ingredientID)
				}),
			}
		},
		Send: func(ctx context.Context, in DeleteIngredientInput, _ string) (struct{}, error) {
			return struct{}{}, m.api.DeleteIngredient(ctx, in.RecipeID, in.ID)
		},
	}
}

func (m *Mutations) DeleteIngredient(ctx context.Context, in DeleteIngredientInput) (Result[struct{}], error) {
	return Run(ctx, m.c, m.deleteIngredient(), in)
}
