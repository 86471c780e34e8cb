package controller

import (
	"net/http"

	"github.com/bassista/mealsync/internal/cache"
	"github.com/bassista/mealsync/internal/household"
	"github.com/bassista/mealsync/internal/logger"
	"github.com/bassista/mealsync/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// RecipeCrudService implements CrudService for recipes.
type RecipeCrudService struct {
	Store household.RecipeStore
}

func (s *RecipeCrudService) All() ([]model.Recipe, error) {
	return s.Store.Recipes()
}

func (s *RecipeCrudService) Create(r model.Recipe) (model.Recipe, error) {
	return s.Store.CreateRecipe(r)
}

func (s *RecipeCrudService) Update(id string, patch model.RecipePatch) (model.Recipe, error) {
	return s.Store.UpdateRecipe(id, patch)
}

func (s *RecipeCrudService) Remove(id string) error {
	_, err := s.Store.DeleteRecipe(id)
	return err
}

// RecipeController handles recipe and ingredient endpoints.
type RecipeController struct {
	crud      *CrudController[model.Recipe, model.RecipePatch]
	store     household.RecipeStore
	notifier  Notifier
	validator *validator.Validate
}

func NewRecipeController(store household.RecipeStore, notifier Notifier) *RecipeController {
	v := validator.New()
	return &RecipeController{
		crud: &CrudController[model.Recipe, model.RecipePatch]{
			Service:   &RecipeCrudService{Store: store},
			Validator: v,
			Notifier:  notifier,
			Resource:  cache.Recipes,
		},
		store:     store,
		notifier:  notifier,
		validator: v,
	}
}

func (rc *RecipeController) AllRecipes(c *gin.Context) {
	rc.crud.GetAll(c)
}

func (rc *RecipeController) CreateRecipe(c *gin.Context) {
	rc.crud.Create(c)
}

func (rc *RecipeController) UpdateRecipe(c *gin.Context) {
	rc.crud.Update(c)
}

// GetRecipe handles GET /recipes/:id.
func (rc *RecipeController) GetRecipe(c *gin.Context) {
	r, err := rc.store.Recipe(c.Param("id"))
	if err != nil {
		respondError(c, "recipe-controller", err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// DeleteRecipe handles DELETE /recipes/:id. Schedule entries that pointed at
// the recipe change too, so their days are announced as well.
func (rc *RecipeController) DeleteRecipe(c *gin.Context) {
	id := c.Param("id")
	logger.WithComponent("recipe-controller").Debugf("DELETE /recipes/%s handler called", id)
	dates, err := rc.store.DeleteRecipe(id)
	if err != nil {
		respondError(c, "recipe-controller", err)
		return
	}
	notify(rc.notifier, cache.Recipes)
	if len(dates) > 0 {
		notify(rc.notifier, cache.Schedule, dates...)
	}
	c.Status(http.StatusNoContent)
}

// Ingredients handles GET /recipes/:id/ingredients.
func (rc *RecipeController) Ingredients(c *gin.Context) {
	ings, err := rc.store.Ingredients(c.Param("id"))
	if err != nil {
		respondError(c, "recipe-controller", err)
		return
	}
	c.JSON(http.StatusOK, ings)
}

// AddIngredient handles POST /recipes/:id/ingredients.
func (rc *RecipeController) AddIngredient(c *gin.Context) {
	var ing model.Ingredient
	if err := c.ShouldBindJSON(&ing); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := rc.validator.Struct(ing); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := rc.store.AddIngredient(c.Param("id"), ing)
	if err != nil {
		respondError(c, "recipe-controller", err)
		return
	}
	notify(rc.notifier, cache.Ingredients)
	c.JSON(http.StatusCreated, created)
}

// DeleteIngredient handles DELETE /recipes/:id/ingredients/:ingredientId.
func (rc *RecipeController) DeleteIngredient(c *gin.Context) {
	if err := rc.store.DeleteIngredient(c.Param("id"), c.Param("ingredientId")); err != nil {
		respondError(c, "recipe-controller", err)
		return
	}
	notify(rc.notifier, cache.Ingredients)
	c.Status(http.StatusNoContent)
}
