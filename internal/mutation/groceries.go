package mutation

import (
	"context"
	"fmt"

	"github.com/bassista/mealsync/internal/cache"
	"github.com/bassista/mealsync/internal/model"
)

// UpdateGroceryInput edits the fields set in Patch.
type UpdateGroceryInput struct {
	ID    string `validate:"required"`
	Patch model.GroceryPatch
}

// DeleteInput names the entity to remove.
type DeleteInput struct {
	ID string `validate:"required"`
}

func groceryID(g model.GroceryItem) string { return g.ID }

func (m *Mutations) addGrocery() Definition[model.GroceryItem, model.GroceryItem] {
	return Definition[model.GroceryItem, model.GroceryItem]{
		Name:    "add-grocery",
		Creates: true,
		Validate: func(in model.GroceryItem) error {
			return m.c.Struct(in)
		},
		Keys: func(model.GroceryItem) []cache.Key {
			return []cache.Key{GroceriesKey}
		},
		Optimistic: func(in model.GroceryItem, tempID string) []Patch {
			item := in
			item.ID = tempID
			item.ApplyDefaults()
			if item.CreatedAt == 0 {
				item.CreatedAt = m.now().UnixMilli()
			}
			return []Patch{PatchList(GroceriesKey, func(list []model.GroceryItem) []model.GroceryItem {
				return append(list, item)
			})}
		},
		Send: func(ctx context.Context, in model.GroceryItem, _ string) (model.GroceryItem, error) {
			in.ID = ""
			return m.api.AddGrocery(ctx, in)
		},
	}
}

// AddGrocery appends item to the list under a temporary id until the server
// assigns the real one.
func (m *Mutations) AddGrocery(ctx context.Context, item model.GroceryItem) (Result[model.GroceryItem], error) {
	return Run(ctx, m.c, m.addGrocery(), item)
}

func (m *Mutations) updateGrocery(name string) Definition[UpdateGroceryInput, model.GroceryItem] {
	return Definition[UpdateGroceryInput, model.GroceryItem]{
		Name: name,
		Validate: func(in UpdateGroceryInput) error {
			return m.c.Struct(in)
		},
		Keys: func(UpdateGroceryInput) []cache.Key {
			return []cache.Key{GroceriesKey}
		},
		Optimistic: func(in UpdateGroceryInput, _ string) []Patch {
			return []Patch{PatchList(GroceriesKey, func(list []model.GroceryItem) []model.GroceryItem {
				return updateByID(list, in.ID, groceryID, func(g *model.GroceryItem) { g.Apply(in.Patch) })
			})}
		},
		Send: func(ctx context.Context, in UpdateGroceryInput, _ string) (model.GroceryItem, error) {
			return m.api.UpdateGrocery(ctx, in.ID, in.Patch)
		},
	}
}

func (m *Mutations) UpdateGrocery(ctx context.Context, in UpdateGroceryInput) (Result[model.GroceryItem], error) {
	return Run(ctx, m.c, m.updateGrocery("update-grocery"), in)
}

// ToggleGrocery flips an item between needed and checked. The current status
// is read from the cache, so the item must be cached.
func (m *Mutations) ToggleGrocery(ctx context.Context, id string) (Result[model.GroceryItem], error) {
	list, _, err := cache.Lookup[[]model.GroceryItem](m.c.Store(), GroceriesKey)
	if err != nil {
		return Result[model.GroceryItem]{Status: Rejected}, &Error{Mutation: "toggle-grocery", Err: err}
	}
	for _, g := range list {
		if g.ID != id {
			continue
		}
		next := model.GroceryChecked
		if g.Status == model.GroceryChecked {
			next = model.GroceryNeeded
		}
		in := UpdateGroceryInput{ID: id, Patch: model.GroceryPatch{Status: &next}}
		return Run(ctx, m.c, m.updateGrocery("toggle-grocery"), in)
	}
	return Result[model.GroceryItem]{Status: Rejected}, &Error{
		Mutation: "toggle-grocery",
		Err:      fmt.Errorf("%w: grocery %q is not in the cached list", ErrValidation, id),
	}
}

func (m *Mutations) deleteGrocery() Definition[DeleteInput, struct{}] {
	return Definition[DeleteInput, struct{}]{
		Name: "delete-grocery",
		Validate: func(in DeleteInput) error {
			return m.c.Struct(in)
		},
		Keys: func(DeleteInput) []cache.Key {
			return []cache.Key{GroceriesKey}
		},
		Optimistic: func(in DeleteInput, _ string) []Patch {
			return []Patch{PatchList(GroceriesKey, func(list []model.GroceryItem) []model.GroceryItem {
				return removeByID(list, in.ID, groceryID)
			})}
		},
		Send: func(ctx context.Context, in DeleteInput, _ string) (struct{}, error) {
			return struct{}{}, m.api.DeleteGrocery(ctx, in.ID)
		},
	}
}

func (m *Mutations) DeleteGrocery(ctx context.Context, id string) (Result[struct{}], error) {
	return Run(ctx, m.c, m.deleteGrocery(), DeleteInput{ID: id})
}

func (m *Mutations) clearChecked() Definition[struct{}, struct{}] {
	return Definition[struct{}, struct{}]{
		Name: "clear-checked-groceries",
		Keys: func(struct{}) []cache.Key {
			return []cache.Key{GroceriesKey}
		},
		Optimistic: func(struct{}, string) []Patch {
			return []Patch{PatchList(GroceriesKey, func(list []model.GroceryItem) []model.GroceryItem {
				out := make([]model.GroceryItem, 0, len(list))
				for _, g := range list {
					if g.Status != model.GroceryChecked {
						out = append(out, g)
					}
				}
				return out
			})}
		},
		Send: func(ctx context.Context, _ struct{}, _ string) (struct{}, error) {
			return struct{}{}, m.api.ClearCheckedGroceries(ctx)
		},
	}
}

// ClearChecked removes every checked item.
func (m *Mutations) ClearChecked(ctx context.Context) (Result[struct{}], error) {
	return Run(ctx, m.c, m.clearChecked(), struct{}{})
}

// generateGroceries has no prediction: the lines are computed by the server.
// The commit refetch brings them in.
func (m *Mutations) generateGroceries() Definition[model.GenerateRequest, []model.GroceryItem] {
	return Definition[model.GenerateRequest, []model.GroceryItem]{
		Name: "generate-groceries",
		Validate: func(in model.GenerateRequest) error {
			if err := m.c.Struct(in); err != nil {
				return err
			}
			if in.From > in.To {
				return fmt.Errorf("%w: range starts after it ends", ErrValidation)
			}
			return nil
		},
		Keys: func(model.GenerateRequest) []cache.Key {
			return []cache.Key{GroceriesKey}
		},
		Send: func(ctx context.Context, in model.GenerateRequest, _ string) ([]model.GroceryItem, error) {
			return m.api.GenerateGroceries(ctx, in)
		},
	}
}

func (m *Mutations) GenerateGroceries(ctx context.Context, from, to string) (Result[[]model.GroceryItem], error) {
	return Run(ctx, m.c, m.generateGroceries(), model.GenerateRequest{From: from, To: to})
}
