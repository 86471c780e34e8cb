package household

import (
	"fmt"

	"github.com/bassista/mealsync/internal/model"
	"github.com/bassista/mealsync/internal/repository"
)

func (s *Store) Recipes() ([]model.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.data.Recipes)
}

func (s *Store) Recipe(id string) (model.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := indexOf(s.data.Recipes, func(r model.Recipe) bool { return r.ID == id })
	if i < 0 {
		return model.Recipe{}, fmt.Errorf("recipe %s: %w", id, ErrNotFound)
	}
	return clone(s.data.Recipes[i])
}

// CreateRecipe stores r under a new id; its ingredients get ids of their own.
func (s *Store) CreateRecipe(r model.Recipe) (model.Recipe, error) {
	r, err := clone(r)
	if err != nil {
		return model.Recipe{}, err
	}
	r.ID = model.NewID()
	r.ApplyDefaults()
	r.UpdatedAt = s.stamp()
	for i := range r.Ingredients {
		r.Ingredients[i].ID = model.NewID()
		r.Ingredients[i].RecipeID = r.ID
	}
	err = s.write(func(d *repository.Household) error {
		d.Recipes = append(d.Recipes, r)
		return nil
	})
	return r, err
}

func (s *Store) UpdateRecipe(id string, patch model.RecipePatch) (model.Recipe, error) {
	var out model.Recipe
	err := s.write(func(d *repository.Household) error {
		i := indexOf(d.Recipes, func(r model.Recipe) bool { return r.ID == id })
		if i < 0 {
			return fmt.Errorf("recipe %s: %w", id, ErrNotFound)
		}
		d.Recipes[i].Apply(patch)
		d.Recipes[i].UpdatedAt = s.stamp()
		out = d.Recipes[i]
		return nil
	})
	if err != nil {
		return model.Recipe{}, err
	}
	return clone(out)
}

// DeleteRecipe removes the recipe with its ingredients. Schedule entries
// pointing at it keep their note and lose the recipe reference; the dates of
// those entries are returned.
func (s *Store) DeleteRecipe(id string) ([]string, error) {
	var dates []string
	err := s.write(func(d *repository.Household) error {
		i := indexOf(d.Recipes, func(r model.Recipe) bool { return r.ID == id })
		if i < 0 {
			return fmt.Errorf("recipe %s: %w", id, ErrNotFound)
		}
		d.Recipes = append(d.Recipes[:i], d.Recipes[i+1:]...)
		for j := range d.Schedule {
			if d.Schedule[j].RecipeID == id {
				d.Schedule[j].RecipeID = ""
				dates = append(dates, d.Schedule[j].Date)
			}
		}
		return nil
	})
	return dates, err
}

func (s *Store) Ingredients(recipeID string) ([]model.Ingredient, error) {
	r, err := s.Recipe(recipeID)
	if err != nil {
		return nil, err
	}
	return r.Ingredients, nil
}

func (s *Store) AddIngredient(recipeID string, ing model.Ingredient) (model.Ingredient, error) {
	ing.ID = model.NewID()
	ing.RecipeID = recipeID
	err := s.write(func(d *repository.Household) error {
		i := indexOf(d.Recipes, func(r model.Recipe) bool { return r.ID == recipeID })
		if i < 0 {
			return fmt.Errorf("recipe %s: %w", recipeID, ErrNotFound)
		}
		d.Recipes[i].Ingredients = append(d.Recipes[i].Ingredients, ing)
		d.Recipes[i].UpdatedAt = s.stamp()
		return nil
	})
	return ing, err
}

func (s *Store) DeleteIngredient(recipeID, id string) error {
	return s.write(func(d *repository.Household) error {
		i := indexOf(d.Recipes, func(r model.Recipe) bool { return r.ID == recipeID })
		if i < 0 {
			return fmt.Errorf("recipe %s: %w", recipeID, ErrNotFound)
		}
		ings := d.Recipes[i].Ingredients
		j := indexOf(ings, func(in model.Ingredient) bool { return in.ID == id })
		if j < 0 {
			return fmt.Errorf("ingredient %s: %w", id, ErrNotFound)
		}
		d.Recipes[i].Ingredients = append(ings[:j], ings[j+1:]...)
		d.Recipes[i].UpdatedAt = s.stamp()
		return nil
	})
}
