// Package model holds the household entities shared by the sync client and the
// development backend.
package model

import (
	"strings"

	"github.com/google/uuid"
)

// TempIDPrefix marks ids minted by the client before the server has answered.
const TempIDPrefix = "temp-"

// NewTempID returns a fresh temporary id.
func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

// IsTempID reports whether id was minted by NewTempID.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// NewID returns a server-assigned id.
func NewID() string {
	return uuid.NewString()
}

type GroceryStatus string

const (
	GroceryNeeded  GroceryStatus = "needed"
	GroceryChecked GroceryStatus = "checked"
)

// GroceryItem is one line of the shared grocery list.
type GroceryItem struct {
	ID        string        `json:"id"`
	Name      string        `json:"name" validate:"required"`
	Aisle     string        `json:"aisle"`
	Quantity  string        `json:"quantity"`
	Status    GroceryStatus `json:"status" validate:"omitempty,oneof=needed checked"`
	RecipeID  string        `json:"recipeId,omitempty"`
	CreatedAt int64         `json:"createdAt"`
}

// Recipe models a recipe with its embedded ingredient list.
type Recipe struct {
	ID          string       `json:"id"`
	Name        string       `json:"name" validate:"required"`
	Description string       `json:"description"`
	Servings    int          `json:"servings" validate:"min=0"`
	Ingredients []Ingredient `json:"ingredients" validate:"dive"`
	Tags        []string     `json:"tags"`
	UpdatedAt   int64        `json:"updatedAt"`
}

// Ingredient belongs to exactly one recipe.
type Ingredient struct {
	ID       string `json:"id"`
	RecipeID string `json:"recipeId"`
	Name     string `json:"name" validate:"required"`
	Quantity string `json:"quantity"`
	Unit     string `json:"unit"`
	Aisle    string `json:"aisle"`
}

type Meal string

const (
	Breakfast Meal = "breakfast"
	Lunch     Meal = "lunch"
	Dinner    Meal = "dinner"
	Snack     Meal = "snack"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// ScheduleEntry places a recipe (or a free-text note) on a day.
type ScheduleEntry struct {
	ID       string `json:"id"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	Meal     Meal   `json:"meal" validate:"required,oneof=breakfast lunch dinner snack"`
	RecipeID string `json:"recipeId,omitempty"`
	Note     string `json:"note,omitempty"`
}

// ScheduleDay groups the entries of one date.
type ScheduleDay struct {
	Date    string          `json:"date"`
	Entries []ScheduleEntry `json:"entries"`
}

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

// Invitation asks a family member to join the household.
type Invitation struct {
	ID        string           `json:"id"`
	Email     string           `json:"email" validate:"required,email"`
	Status    InvitationStatus `json:"status" validate:"omitempty,oneof=pending accepted declined"`
	CreatedAt int64            `json:"createdAt"`
}

// ApplyDefaults fills zero values a decoded recipe should not carry.
func (r *Recipe) ApplyDefaults() {
	if r.Ingredients == nil {
		r.Ingredients = []Ingredient{}
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
}

func (g *GroceryItem) ApplyDefaults() {
	if g.Status == "" {
		g.Status = GroceryNeeded
	}
}

func (i *Invitation) ApplyDefaults() {
	if i.Status == "" {
		i.Status = InvitationPending
	}
}

func (d *ScheduleDay) ApplyDefaults() {
	if d.Entries == nil {
		d.Entries = []ScheduleEntry{}
	}
}
