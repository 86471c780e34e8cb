package client

import (
	"context"
	"fmt"

	"github.com/bassista/mealsync/internal/cache"
	"github.com/bassista/mealsync/internal/calendar"
	"github.com/bassista/mealsync/internal/model"
	"github.com/bassista/mealsync/internal/mutation"
	"github.com/bassista/mealsync/internal/query"
)

// typed adapts a typed remote call into a query.Loader.
func typed[T any](fn func(ctx context.Context, key cache.Key) (T, error)) query.Loader {
	return func(ctx context.Context, key cache.Key) ([]byte, error) {
		v, err := fn(ctx, key)
		if err != nil {
			return nil, err
		}
		return cache.Encode(v)
	}
}

func (c *Client) registerLoaders(f *query.Fetcher) {
	api := c.remote
	f.Register(cache.Groceries, typed(func(ctx context.Context, _ cache.Key) ([]model.GroceryItem, error) {
		return api.ListGroceries(ctx)
	}))
	f.Register(cache.Recipes, typed(func(ctx context.Context, _ cache.Key) ([]model.Recipe, error) {
		return api.ListRecipes(ctx)
	}))
	f.Register(cache.Recipe, typed(func(ctx context.Context, key cache.Key) (model.Recipe, error) {
		return api.GetRecipe(ctx, key.Sub)
	}))
	f.Register(cache.Ingredients, typed(func(ctx context.Context, key cache.Key) ([]model.Ingredient, error) {
		return api.ListIngredients(ctx, key.Sub)
	}))
	f.Register(cache.Schedule, typed(func(ctx context.Context, key cache.Key) ([]model.ScheduleDay, error) {
		from, to, _, err := calendar.BatchRange(key.Sub)
		if err != nil {
			return nil, err
		}
		return api.ListSchedule(ctx, calendar.FormatDate(from), calendar.FormatDate(to))
	}))
	f.Register(cache.Invitations, typed(func(ctx context.Context, _ cache.Key) ([]model.Invitation, error) {
		return api.ListInvitations(ctx)
	}))
}

// read serves key through the fetcher and decodes it.
func read[T any](ctx context.Context, c *Client, key cache.Key) (T, error) {
	var zero T
	cr, err := c.current()
	if err != nil {
		return zero, err
	}
	e, err := cr.fetcher.Get(ctx, key)
	if err != nil {
		return zero, fmt.Errorf("load %s: %w", key, err)
	}
	v, _, err := cache.Decode[T](e)
	return v, err
}

func (c *Client) Groceries(ctx context.Context) ([]model.GroceryItem, error) {
	return read[[]model.GroceryItem](ctx, c, mutation.GroceriesKey)
}

func (c *Client) Recipes(ctx context.Context) ([]model.Recipe, error) {
	return read[[]model.Recipe](ctx, c, mutation.RecipesKey)
}

func (c *Client) Recipe(ctx context.Context, id string) (model.Recipe, error) {
	return read[model.Recipe](ctx, c, mutation.RecipeKey(id))
}

func (c *Client) Ingredients(ctx context.Context, recipeID string) ([]model.Ingredient, error) {
	return read[[]model.Ingredient](ctx, c, mutation.IngredientsKey(recipeID))
}

func (c *Client) Invitations(ctx context.Context) ([]model.Invitation, error) {
	return read[[]model.Invitation](ctx, c, mutation.InvitationsKey)
}

// Cached returns the cache entry at key without loading it.
func (c *Client) Cached(key cache.Key) (cache.Entry, error) {
	cr, err := c.current()
	if err != nil {
		return cache.Entry{}, err
	}
	return cr.store.Get(key), nil
}
