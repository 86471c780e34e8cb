package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bassista/mealsync/internal/model"
)

func (c *Client) ListGroceries(ctx context.Context) ([]model.GroceryItem, error) {
	var items []model.GroceryItem
	err := c.do(ctx, http.MethodGet, "/groceries", nil, nil, &items)
	return items, err
}

func (c *Client) AddGrocery(ctx context.Context, item model.GroceryItem) (model.GroceryItem, error) {
	var out model.GroceryItem
	err := c.do(ctx, http.MethodPost, "/groceries", nil, item, &out)
	return out, err
}

func (c *Client) UpdateGrocery(ctx context.Context, id string, patch model.GroceryPatch) (model.GroceryItem, error) {
	var out model.GroceryItem
	err := c.do(ctx, http.MethodPatch, "/groceries/"+url.PathEscape(id), nil, patch, &out)
	return out, err
}

func (c *Client) DeleteGrocery(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/groceries/"+url.PathEscape(id), nil, nil, nil)
}

// ClearCheckedGroceries removes every checked line.
func (c *Client) ClearCheckedGroceries(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/groceries/clear", nil, nil, nil)
}

func (c *Client) GenerateGroceries(ctx context.Context, req model.GenerateRequest) ([]model.GroceryItem, error) {
	var items []model.GroceryItem
	err := c.do(ctx, http.MethodPost, "/groceries/generate", nil, req, &items)
	return items, err
}

func (c *Client) ListRecipes(ctx context.Context) ([]model.Recipe, error) {
	var recipes []model.Recipe
	err := c.do(ctx, http.MethodGet, "/recipes", nil, nil, &recipes)
	return recipes, err
}

func (c *Client) GetRecipe(ctx context.Context, id string) (model.Recipe, error) {
	var r model.Recipe
	err := c.do(ctx, http.MethodGet, "/recipes/"+url.PathEscape(id), nil, nil, &r)
	return r, err
}

func (c *Client) CreateRecipe(ctx context.Context, r model.Recipe) (model.Recipe, error) {
	var out model.Recipe
	err := c.do(ctx, http.MethodPost, "/recipes", nil, r, &out)
	return out, err
}

func (c *Client) UpdateRecipe(ctx context.Context, id string, patch model.RecipePatch) (model.Recipe, error) {
	var out model.Recipe
	err := c.do(ctx, http.MethodPatch, "/recipes/"+url.PathEscape(id), nil, patch, &out)
	return out, err
}

func (c *Client) DeleteRecipe(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/recipes/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) ListIngredients(ctx context.Context, recipeID string) ([]model.Ingredient, error) {
	var ings []model.Ingredient
	err := c.do(ctx, http.MethodGet, "/recipes/"+url.PathEscape(recipeID)+"/ingredients", nil, nil, &ings)
	return ings, err
}

func (c *Client) AddIngredient(ctx context.Context, recipeID string, ing model.Ingredient) (model.Ingredient, error) {
	var out model.Ingredient
	err := c.do(ctx, http.MethodPost, "/recipes/"+url.PathEscape(recipeID)+"/ingredients", nil, ing, &out)
	return out, err
}

func (c *Client) DeleteIngredient(ctx context.Context, recipeID, id string) error {
	path := "/recipes/" + url.PathEscape(recipeID) + "/ingredients/" + url.PathEscape(id)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// ScheduleQuery builds the from/to query of a schedule range.
func ScheduleQuery(from, to string) url.Values {
	return url.Values{"from": {from}, "to": {to}}
}

func (c *Client) ListSchedule(ctx context.Context, from, to string) ([]model.ScheduleDay, error) {
	var days []model.ScheduleDay
	err := c.do(ctx, http.MethodGet, "/schedule", ScheduleQuery(from, to), nil, &days)
	return days, err
}

// PutScheduleEntry creates or replaces an entry.
func (c *Client) PutScheduleEntry(ctx context.Context, e model.ScheduleEntry) (model.ScheduleEntry, error) {
	var out model.ScheduleEntry
	err := c.do(ctx, http.MethodPut, "/schedule", nil, e, &out)
	return out, err
}

func (c *Client) DeleteScheduleEntry(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/schedule/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) ListInvitations(ctx context.Context) ([]model.Invitation, error) {
	var invs []model.Invitation
	err := c.do(ctx, http.MethodGet, "/invitations", nil, nil, &invs)
	return invs, err
}

func (c *Client) SendInvitation(ctx context.Context, inv model.Invitation) (model.Invitation, error) {
	var out model.Invitation
	err := c.do(ctx, http.MethodPost, "/invitations", nil, inv, &out)
	return out, err
}

func (c *Client) RespondInvitation(ctx context.Context, id string, status model.InvitationStatus) (model.Invitation, error) {
	var out model.Invitation
	err := c.do(ctx, http.MethodPatch, "/invitations/"+url.PathEscape(id), nil, model.InvitationResponse{Status: status}, &out)
	return out, err
}

func (c *Client) RevokeInvitation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/invitations/"+url.PathEscape(id), nil, nil, nil)
}
