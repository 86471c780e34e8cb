package mutation

import (
	"context"
	"sort"

	"github.com/bassista/mealsync/internal/cache"
	"github.com/bassista/mealsync/internal/model"
)

type DeleteScheduleInput struct {
	ID   string `validate:"required"`
	Date string `validate:"required,datetime=2006-01-02"`
}

// locateEntry finds the cached batch currently holding entry id. It returns
// the zero key for new entries or entries outside the loaded batches.
func (m *Mutations) locateEntry(id string) cache.Key {
	if id == "" {
		return cache.Key{}
	}
	for _, k := range m.c.Store().Match(cache.Schedule) {
		days, ok, err := cache.Lookup[[]model.ScheduleDay](m.c.Store(), k)
		if err != nil || !ok {
			continue
		}
		for _, d := range days {
			for _, e := range d.Entries {
				if e.ID == id {
					return k
				}
			}
		}
	}
	return cache.Key{}
}

// withoutEntry drops entry id from every day. Days left empty stay in place
// so the batch keeps its shape.
func withoutEntry(days []model.ScheduleDay, id string) []model.ScheduleDay {
	for i := range days {
		days[i].Entries = removeByID(days[i].Entries, id, func(e model.ScheduleEntry) string { return e.ID })
	}
	return days
}

// upsertEntry moves or inserts e into its day, keeping days sorted by date.
func upsertEntry(days []model.ScheduleDay, e model.ScheduleEntry) []model.ScheduleDay {
	days = withoutEntry(days, e.ID)
	for i := range days {
		if days[i].Date == e.Date {
			days[i].Entries = append(days[i].Entries, e)
			return days
		}
	}
	days = append(days, model.ScheduleDay{Date: e.Date, Entries: []model.ScheduleEntry{e}})
	sort.SliceStable(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}

// schedulePlacement is a set request with the batch the entry sits in now.
// The batch is looked up once per call so the declared keys and the patches
// agree even when another move of the same entry lands meanwhile.
type schedulePlacement struct {
	Entry model.ScheduleEntry
	Prev  cache.Key
}

func (m *Mutations) placeSchedule(e model.ScheduleEntry) schedulePlacement {
	return schedulePlacement{Entry: e, Prev: m.locateEntry(e.ID)}
}

// setScheduleEntry creates the entry when it has no id and moves it
// otherwise. A move across batches predicts both of them.
func (m *Mutations) setScheduleEntry() Definition[schedulePlacement, model.ScheduleEntry] {
	return Definition[schedulePlacement, model.ScheduleEntry]{
		Name:    "set-schedule-entry",
		Creates: true,
		Validate: func(in schedulePlacement) error {
			return m.c.Struct(in.Entry)
		},
		Keys: func(in schedulePlacement) []cache.Key {
			keys := []cache.Key{ScheduleKey(in.Entry.Date, m.granularity)}
			if !in.Prev.IsZero() {
				keys = append(keys, in.Prev)
			}
			return keys
		},
		Optimistic: func(in schedulePlacement, tempID string) []Patch {
			e := in.Entry
			if e.ID == "" {
				e.ID = tempID
			}
			target := ScheduleKey(e.Date, m.granularity)
			patches := []Patch{PatchList(target, func(days []model.ScheduleDay) []model.ScheduleDay {
				return upsertEntry(days, e)
			})}
			if !in.Prev.IsZero() && in.Prev != target {
				patches = append(patches, PatchList(in.Prev, func(days []model.ScheduleDay) []model.ScheduleDay {
					return withoutEntry(days, e.ID)
				}))
			}
			return patches
		},
		Send: func(ctx context.Context, in schedulePlacement, _ string) (model.ScheduleEntry, error) {
			return m.api.PutScheduleEntry(ctx, in.Entry)
		},
	}
}

// SetScheduleEntry places e on its date.
func (m *Mutations) SetScheduleEntry(ctx context.Context, e model.ScheduleEntry) (Result[model.ScheduleEntry], error) {
	return Run(ctx, m.c, m.setScheduleEntry(), m.placeSchedule(e))
}

func (m *Mutations) deleteScheduleEntry() Definition[DeleteScheduleInput, struct{}] {
	return Definition[DeleteScheduleInput, struct{}]{
		Name: "delete-schedule-entry",
		Validate: func(in DeleteScheduleInput) error {
			return m.c.Struct(in)
		},
		Keys: func(in DeleteScheduleInput) []cache.Key {
			return []cache.Key{ScheduleKey(in.Date, m.granularity)}
		},
		Optimistic: func(in DeleteScheduleInput, _ string) []Patch {
			return []Patch{PatchList(ScheduleKey(in.Date, m.granularity), func(days []model.ScheduleDay) []model.ScheduleDay {
				return withoutEntry(days, in.ID)
			})}
		},
		Send: func(ctx context.Context, in DeleteScheduleInput, _ string) (struct{}, error) {
			return struct{}{}, m.api.DeleteScheduleEntry(ctx, in.ID)
		},
	}
}

func (m *Mutations) DeleteScheduleEntry(ctx context.Context, in DeleteScheduleInput) (Result[struct{}], error) {
	return Run(ctx, m.c, m.deleteScheduleEntry(), in)
}
