package mutation

import (
	"context"
	"time"

	"github.com/bassista/mealsync/internal/cache"
	"github.com/bassista/mealsync/internal/calendar"
	"github.com/bassista/mealsync/internal/model"
)

// API is the write side of the remote client.
type API interface {
	AddGrocery(ctx context.Context, item model.GroceryItem) (model.GroceryItem, error)
	UpdateGrocery(ctx context.Context, id string, patch model.GroceryPatch) (model.GroceryItem, error)
	DeleteGrocery(ctx context.Context, id string) error
	ClearCheckedGroceries(ctx context.Context) error
	GenerateGroceries(ctx context.Context, req model.GenerateRequest) ([]model.GroceryItem, error)

	CreateRecipe(ctx context.Context, r model.Recipe) (model.Recipe, error)
	UpdateRecipe(ctx context.Context, id string, patch model.RecipePatch) (model.Recipe, error)
	DeleteRecipe(ctx context.Context, id string) error
	AddIngredient(ctx context.Context, recipeID string, ing model.Ingredient) (model.Ingredient, error)
	DeleteIngredient(ctx context.Context, recipeID, id string) error

	PutScheduleEntry(ctx context.Context, e model.ScheduleEntry) (model.ScheduleEntry, error)
	DeleteScheduleEntry(ctx context.Context, id string) error

	SendInvitation(ctx context.Context, inv model.Invitation) (model.Invitation, error)
	RespondInvitation(ctx context.Context, id string, status model.InvitationStatus) (model.Invitation, error)
	RevokeInvitation(ctx context.Context, id string) error
}

// Mutations binds the per-resource definitions to a controller and an API.
type Mutations struct {
	c           *Controller
	api         API
	granularity calendar.Granularity
	now         func() time.Time
}

func NewMutations(c *Controller, api API, g calendar.Granularity) *Mutations {
	return &Mutations{c: c, api: api, granularity: g, now: time.Now}
}

// Keys shared by several definitions.
var (
	GroceriesKey   = cache.NewKey(cache.Groceries)
	RecipesKey     = cache.NewKey(cache.Recipes)
	InvitationsKey = cache.NewKey(cache.Invitations)
)

func RecipeKey(id string) cache.Key {
	return cache.NewKey(cache.Recipe, id)
}

func IngredientsKey(recipeID string) cache.Key {
	return cache.NewKey(cache.Ingredients, recipeID)
}

// ScheduleKey returns the batch key holding date. Invalid dates map to no key;
// validation rejects them before the key is ever used.
func ScheduleKey(date string, g calendar.Granularity) cache.Key {
	batch, err := calendar.BatchKeyOf(date, g)
	if err != nil {
		return cache.Key{}
	}
	return cache.NewKey(cache.Schedule, batch)
}

// removeByID drops the element with id, keeping the order of the rest.
func removeByID[T any](list []T, id string, idOf func(T) string) []T {
	out := make([]T, 0, len(list))
	for _, v := range list {
		if idOf(v) != id {
			out = append(out, v)
		}
	}
	return out
}

func updateByID[T any](list []T, id string, idOf func(T) string, fn func(*T)) []T {
	for i := range list {
		if idOf(list[i]) == id {
			fn(&list[i])
		}
	}
	return list
}
