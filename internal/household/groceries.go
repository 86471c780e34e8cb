package household

import (
	"fmt"
	"strings"

	"github.com/bassista/mealsync/internal/model"
	"github.com/bassista/mealsync/internal/repository"
)

func (s *Store) Groceries() ([]model.GroceryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.data.Groceries)
}

// AddGrocery assigns a server id and appends item to the list.
func (s *Store) AddGrocery(item model.GroceryItem) (model.GroceryItem, error) {
	item.ID = model.NewID()
	item.ApplyDefaults()
	if item.CreatedAt == 0 {
		item.CreatedAt = s.stamp()
	}
	err := s.write(func(d *repository.Household) error {
		d.Groceries = append(d.Groceries, item)
		return nil
	})
	return item, err
}

func (s *Store) UpdateGrocery(id string, patch model.GroceryPatch) (model.GroceryItem, error) {
	var out model.GroceryItem
	err := s.write(func(d *repository.Household) error {
		i := indexOf(d.Groceries, func(g model.GroceryItem) bool { return g.ID == id })
		if i < 0 {
			return fmt.Errorf("grocery %s: %w", id, ErrNotFound)
		}
		d.Groceries[i].Apply(patch)
		out = d.Groceries[i]
		return nil
	})
	return out, err
}

func (s *Store) DeleteGrocery(id string) error {
	return s.write(func(d *repository.Household) error {
		i := indexOf(d.Groceries, func(g model.GroceryItem) bool { return g.ID == id })
		if i < 0 {
			return fmt.Errorf("grocery %s: %w", id, ErrNotFound)
		}
		d.Groceries = append(d.Groceries[:i], d.Groceries[i+1:]...)
		return nil
	})
}

// ClearChecked removes every checked item and returns how many went.
func (s *Store) ClearChecked() (int, error) {
	removed := 0
	err := s.write(func(d *repository.Household) error {
		kept := d.Groceries[:0]
		for _, g := range d.Groceries {
			if g.Status == model.GroceryChecked {
				removed++
				continue
			}
			kept = append(kept, g)
		}
		d.Groceries = kept
		return nil
	})
	return removed, err
}

// GenerateGroceries adds one needed line per ingredient of every recipe
// scheduled between from and to, inclusive. Lines already needed for the same
// recipe and ingredient name are not duplicated. It returns the added lines.
func (s *Store) GenerateGroceries(from, to string) ([]model.GroceryItem, error) {
	if from > to {
		return nil, fmt.Errorf("%w: range starts after it ends", ErrInvalid)
	}
	added := []model.GroceryItem{}
	err := s.write(func(d *repository.Household) error {
		seen := map[string]bool{}
		for _, g := range d.Groceries {
			if g.Status == model.GroceryNeeded {
				seen[g.RecipeID+"\x00"+strings.ToLower(g.Name)] = true
			}
		}
		for _, e := range d.Schedule {
			if e.RecipeID == "" || e.Date < from || e.Date > to {
				continue
			}
			ri := indexOf(d.Recipes, func(r model.Recipe) bool { return r.ID == e.RecipeID })
			if ri < 0 {
				continue
			}
			for _, ing := range d.Recipes[ri].Ingredients {
				key := e.RecipeID + "\x00" + strings.ToLower(ing.Name)
				if seen[key] {
					continue
				}
				seen[key] = true
				item := model.GroceryItem{
					ID:        model.NewID(),
					Name:      ing.Name,
					Aisle:     ing.Aisle,
					Quantity:  strings.TrimSpace(ing.Quantity + " " + ing.Unit),
					Status:    model.GroceryNeeded,
					RecipeID:  e.RecipeID,
					CreatedAt: s.stamp(),
				}
				d.Groceries = append(d.Groceries, item)
				added = append(added, item)
			}
		}
		return nil
	})
	return added, err
}
