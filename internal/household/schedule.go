package household

import (
	"fmt"
	"sort"

	"github.com/bassista/mealsync/internal/model"
	"github.com/bassista/mealsync/internal/repository"
)

// ScheduleRange groups the entries dated from..to, inclusive, by day. Only
// days holding entries are returned, sorted by date.
func (s *Store) ScheduleRange(from, to string) ([]model.ScheduleDay, error) {
	if from > to {
		return nil, fmt.Errorf("%w: range starts after it ends", ErrInvalid)
	}
	s.mu.RLock()
	entries, err := clone(s.data.Schedule)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	byDate := map[string][]model.ScheduleEntry{}
	for _, e := range entries {
		if e.Date >= from && e.Date <= to {
			byDate[e.Date] = append(byDate[e.Date], e)
		}
	}
	days := make([]model.ScheduleDay, 0, len(byDate))
	for date, es := range byDate {
		days = append(days, model.ScheduleDay{Date: date, Entries: es})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days, nil
}

// PutScheduleEntry creates e when its id is empty and replaces the entry with
// the same id otherwise. It returns the stored entry and every date whose
// day changed.
func (s *Store) PutScheduleEntry(e model.ScheduleEntry) (model.ScheduleEntry, []string, error) {
	dates := []string{e.Date}
	err := s.write(func(d *repository.Household) error {
		if e.RecipeID != "" && indexOf(d.Recipes, func(r model.Recipe) bool { return r.ID == e.RecipeID }) < 0 {
			return fmt.Errorf("recipe %s: %w", e.RecipeID, ErrNotFound)
		}
		if e.ID == "" || model.IsTempID(e.ID) {
			e.ID = model.NewID()
			d.Schedule = append(d.Schedule, e)
			return nil
		}
		i := indexOf(d.Schedule, func(x model.ScheduleEntry) bool { return x.ID == e.ID })
		if i < 0 {
			return fmt.Errorf("schedule entry %s: %w", e.ID, ErrNotFound)
		}
		if prev := d.Schedule[i].Date; prev != e.Date {
			dates = append(dates, prev)
		}
		d.Schedule[i] = e
		return nil
	})
	return e, dates, err
}

// DeleteScheduleEntry removes the entry and returns its date.
func (s *Store) DeleteScheduleEntry(id string) (string, error) {
	var date string
	err := s.write(func(d *repository.Household) error {
		i := indexOf(d.Schedule, func(x model.ScheduleEntry) bool { return x.ID == id })
		if i < 0 {
			return fmt.Errorf("schedule entry %s: %w", id, ErrNotFound)
		}
		date = d.Schedule[i].Date
		d.Schedule = append(d.Schedule[:i], d.Schedule[i+1:]...)
		return nil
	})
	return date, err
}
