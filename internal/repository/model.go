package repository

import (
	"encoding/json"
	"reflect"

	"github.com/bassista/mealsync/internal/model"
)

// Metadata holds versioning info for optimistic locking.
type Metadata struct {
	LastUpdate int64 `json:"lastUpdate"` // Unix timestamp in milliseconds
}

// Member is an open session of a household member.
type Member struct {
	Token     string `json:"token" validate:"required"`
	Name      string `json:"name" validate:"required"`
	CreatedAt int64  `json:"createdAt"`
}

// Household is the persisted JSON document of the development backend.
type Household struct {
	Metadata    Metadata              `json:"metadata"`
	Groceries   []model.GroceryItem   `json:"groceries" validate:"dive"`
	Recipes     []model.Recipe        `json:"recipes" validate:"dive"`
	Schedule    []model.ScheduleEntry `json:"schedule" validate:"dive"`
	Invitations []model.Invitation    `json:"invitations" validate:"dive"`
	Members     []Member              `json:"members" validate:"dive"`
}

// ApplyDefaults sets fallback values after decode.
func (d *Household) ApplyDefaults() {
	if d.Groceries == nil {
		d.Groceries = []model.GroceryItem{}
	}
	if d.Recipes == nil {
		d.Recipes = []model.Recipe{}
	}
	if d.Schedule == nil {
		d.Schedule = []model.ScheduleEntry{}
	}
	if d.Invitations == nil {
		d.Invitations = []model.Invitation{}
	}
	if d.Members == nil {
		d.Members = []Member{}
	}
	for i := range d.Groceries {
		d.Groceries[i].ApplyDefaults()
	}
	for i := range d.Recipes {
		d.Recipes[i].ApplyDefaults()
	}
	for i := range d.Invitations {
		d.Invitations[i].ApplyDefaults()
	}
}

// AreHouseholdsEqual compares two documents ignoring Metadata.
func AreHouseholdsEqual(a, b *Household) bool {
	if a == nil || b == nil {
		return a == b
	}

	aBytes, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bBytes, err := json.Marshal(b)
	if err != nil {
		return false
	}

	var aMap, bMap map[string]interface{}
	if err := json.Unmarshal(aBytes, &aMap); err != nil {
		return false
	}
	if err := json.Unmarshal(bBytes, &bMap); err != nil {
		return false
	}

	delete(aMap, "metadata")
	delete(bMap, "metadata")

	return reflect.DeepEqual(aMap, bMap)
}
