package household

import (
	"github.com/bassista/mealsync/internal/model"
	"github.com/bassista/mealsync/internal/repository"
)

// ReadOnlyStore is the minimal store API for read-only handlers.
type ReadOnlyStore interface {
	Snapshot() (repository.Household, error)
}

// GroceryStore is the store API needed by grocery handlers.
type GroceryStore interface {
	Groceries() ([]model.GroceryItem, error)
	AddGrocery(item model.GroceryItem) (model.GroceryItem, error)
	UpdateGrocery(id string, patch model.GroceryPatch) (model.GroceryItem, error)
	DeleteGrocery(id string) error
	ClearChecked() (int, error)
	GenerateGroceries(from, to string) ([]model.GroceryItem, error)
}

// RecipeStore is the store API needed by recipe and ingredient handlers.
type RecipeStore interface {
	Recipes() ([]model.Recipe, error)
	Recipe(id string) (model.Recipe, error)
	CreateRecipe(r model.Recipe) (model.Recipe, error)
	UpdateRecipe(id string, patch model.RecipePatch) (model.Recipe, error)
	DeleteRecipe(id string) ([]string, error)
	Ingredients(recipeID string) ([]model.Ingredient, error)
	AddIngredient(recipeID string, ing model.Ingredient) (model.Ingredient, error)
	DeleteIngredient(recipeID, id string) error
}

// ScheduleStore is the store API needed by schedule handlers.
type ScheduleStore interface {
	ScheduleRange(from, to string) ([]model.ScheduleDay, error)
	PutScheduleEntry(e model.ScheduleEntry) (model.ScheduleEntry, []string, error)
	DeleteScheduleEntry(id string) (string, error)
}

// InvitationStore is the store API needed by invitation handlers.
type InvitationStore interface {
	Invitations() ([]model.Invitation, error)
	SendInvitation(inv model.Invitation) (model.Invitation, error)
	RespondInvitation(id string, status model.InvitationStatus) (model.Invitation, error)
	RevokeInvitation(id string) error
}

// SessionStore is the store API needed by the session handlers and the auth
// middleware.
type SessionStore interface {
	OpenSession(name string) (repository.Member, error)
	HasSession(token string) bool
	CloseSession(token string) error
}

// PersistableStore is the store API needed by the persistence scheduler.
type PersistableStore interface {
	IsDirty() bool
	Snapshot() (repository.Household, error)
	ClearDirty()
	SetLastUpdate(ts int64)
}

// AppStore is the store contract the application container exposes.
type AppStore interface {
	repository.CacheStore
	GroceryStore
	RecipeStore
	ScheduleStore
	InvitationStore
	SessionStore
	PersistableStore
	OnReplace(fn func())
}

var _ AppStore = (*Store)(nil)
