package mutation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bassista/mealsync/internal/cache"
	"github.com/bassista/mealsync/internal/calendar"
	"github.com/bassista/mealsync/internal/model"
	"github.com/bassista/mealsync/internal/query"
	"github.com/bassista/mealsync/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a Queries that only records what it was asked to do.
type recorder struct {
	mu          sync.Mutex
	cancelled   []cache.Key
	refetched   []cache.Key
	invalidated []cache.Key
}

func (r *recorder) Cancel(key cache.Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = append(r.cancelled, key)
}

func (r *recorder) Refetch(keys ...cache.Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refetched = append(r.refetched, keys...)
}

func (r *recorder) Invalidate(keys ...cache.Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = append(r.invalidated, keys...)
}

// fakeAPI answers every write with err, or with the input and a server id.
// When started is set each call announces itself there, and when release is
// set it waits for it before answering.
type fakeAPI struct {
	mu      sync.Mutex
	err     error
	nextID  string
	calls   []string
	patches []model.GroceryPatch
	started chan string
	release chan struct{}
	onAdd   func(model.GroceryItem)
}

func (f *fakeAPI) call(name string) error {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	started, release, err := f.started, f.release, f.err
	f.mu.Unlock()
	if started != nil {
		started <- name
	}
	if release != nil {
		<-release
	}
	return err
}

func (f *fakeAPI) id() string {
	if f.nextID != "" {
		return f.nextID
	}
	return "srv-1"
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) AddGrocery(_ context.Context, item model.GroceryItem) (model.GroceryItem, error) {
	if err := f.call("AddGrocery"); err != nil {
		return model.GroceryItem{}, err
	}
	item.ID = f.id()
	if f.onAdd != nil {
		f.onAdd(item)
	}
	return item, nil
}

func (f *fakeAPI) UpdateGrocery(_ context.Context, id string, patch model.GroceryPatch) (model.GroceryItem, error) {
	f.mu.Lock()
	f.patches = append(f.patches, patch)
	f.mu.Unlock()
	if err := f.call("UpdateGrocery"); err != nil {
		return model.GroceryItem{}, err
	}
	return model.GroceryItem{ID: id}, nil
}

func (f *fakeAPI) DeleteGrocery(context.Context, string) error { return f.call("DeleteGrocery") }
func (f *fakeAPI) ClearCheckedGroceries(context.Context) error { return f.call("ClearCheckedGroceries") }

func (f *fakeAPI) GenerateGroceries(context.Context, model.GenerateRequest) ([]model.GroceryItem, error) {
	if err := f.call("GenerateGroceries"); err != nil {
		return nil, err
	}
	return []model.GroceryItem{{ID: f.id(), Name: "Rice"}}, nil
}

func (f *fakeAPI) CreateRecipe(_ context.Context, r model.Recipe) (model.Recipe, error) {
	if err := f.call("CreateRecipe"); err != nil {
		return model.Recipe{}, err
	}
	r.ID = f.id()
	return r, nil
}

func (f *fakeAPI) UpdateRecipe(_ context.Context, id string, _ model.RecipePatch) (model.Recipe, error) {
	if err := f.call("UpdateRecipe"); err != nil {
		return model.Recipe{}, err
	}
	return model.Recipe{ID: id}, nil
}

func (f *fakeAPI) DeleteRecipe(context.Context, string) error { return f.call("DeleteRecipe") }

func (f *fakeAPI) AddIngredient(_ context.Context, recipeID string, ing model.Ingredient) (model.Ingredient, error) {
	if err := f.call("AddIngredient"); err != nil {
		return model.Ingredient{}, err
	}
	ing.ID = f.id()
	ing.RecipeID = recipeID
	return ing, nil
}

func (f *fakeAPI) DeleteIngredient(context.Context, string, string) error {
	return f.call("DeleteIngredient")
}

func (f *fakeAPI) PutScheduleEntry(_ context.Context, e model.ScheduleEntry) (model.ScheduleEntry, error) {
	if err := f.call("PutScheduleEntry"); err != nil {
		return model.ScheduleEntry{}, err
	}
	if e.ID == "" {
		e.ID = f.id()
	}
	return e, nil
}

func (f *fakeAPI) DeleteScheduleEntry(context.Context, string) error {
	return f.call("DeleteScheduleEntry")
}

func (f *fakeAPI) SendInvitation(_ context.Context, inv model.Invitation) (model.Invitation, error) {
	if err := f.call("SendInvitation"); err != nil {
		return model.Invitation{}, err
	}
	inv.ID = f.id()
	return inv, nil
}

func (f *fakeAPI) RespondInvitation(_ context.Context, id string, status model.InvitationStatus) (model.Invitation, error) {
	if err := f.call("RespondInvitation"); err != nil {
		return model.Invitation{}, err
	}
	return model.Invitation{ID: id, Status: status}, nil
}

func (f *fakeAPI) RevokeInvitation(context.Context, string) error { return f.call("RevokeInvitation") }

func newHarness() (*cache.Store, *recorder, *fakeAPI, *Mutations) {
	store := cache.NewStore()
	rec := &recorder{}
	api := &fakeAPI{}
	m := NewMutations(NewController(store, rec), api, calendar.Week)
	m.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	return store, rec, api, m
}

// seed lands v at key as if it had been fetched.
func seed(t *testing.T, s *cache.Store, key cache.Key, v any) cache.Entry {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	ticket, err := s.BeginFetch(key)
	require.NoError(t, err)
	e, landed, err := s.Land(ticket, b)
	require.NoError(t, err)
	require.True(t, landed)
	return e
}

func lookup[T any](t *testing.T, s *cache.Store, key cache.Key) T {
	t.Helper()
	v, ok, err := cache.Lookup[T](s, key)
	require.NoError(t, err)
	require.True(t, ok, "no value at %s", key)
	return v
}

func transportErr() error {
	return fmt.Errorf("%w: dial tcp: connection refused", remote.ErrTransport)
}

func TestRun_ValidationNeverTouchesCache(t *testing.T) {
	store, rec, api, m := newHarness()
	before := seed(t, store, GroceriesKey, []model.GroceryItem{{ID: "1", Name: "Bananas"}})

	res, err := m.AddGrocery(context.Background(), model.GroceryItem{Name: ""})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	var merr *Error
	require.ErrorAs(t, err, &merr)
	assert.False(t, merr.RolledBack)
	assert.Equal(t, Rejected, res.Status)

	after := store.Get(GroceriesKey)
	assert.True(t, before.SameState(after))
	assert.Equal(t, before.Seq, after.Seq)
	assert.Empty(t, api.Calls())
	assert.Empty(t, rec.cancelled)
}

func TestAddGrocery_TempIDReplacedAfterRefetch(t *testing.T) {
	store := cache.NewStore()
	fetcher := query.NewFetcher(context.Background(), store, 0)

	var mu sync.Mutex
	server := []model.GroceryItem{{ID: "b1", Name: "Bananas", Status: model.GroceryNeeded}}
	fetcher.Register(cache.Groceries, func(context.Context, cache.Key) ([]byte, error) {
		mu.Lock()
		defer mu.Unlock()
		return json.Marshal(server)
	})
	_, err := fetcher.Fetch(context.Background(), GroceriesKey)
	require.NoError(t, err)

	api := &fakeAPI{
		nextID:  "srv-42",
		started: make(chan string, 1),
		release: make(chan struct{}),
		onAdd: func(item model.GroceryItem) {
			mu.Lock()
			defer mu.Unlock()
			server = append(server, item)
		},
	}
	m := NewMutations(NewController(store, fetcher), api, calendar.Week)

	type outcome struct {
		res Result[model.GroceryItem]
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := m.AddGrocery(context.Background(), model.GroceryItem{Name: "Milk"})
		done <- outcome{res, err}
	}()

	<-api.started
	// the prediction is visible while the request is in flight
	list := lookup[[]model.GroceryItem](t, store, GroceriesKey)
	require.Len(t, list, 2)
	assert.Equal(t, "Bananas", list[0].Name)
	assert.Equal(t, "Milk", list[1].Name)
	assert.True(t, model.IsTempID(list[1].ID))
	assert.Equal(t, model.GroceryNeeded, list[1].Status)
	assert.True(t, store.Get(GroceriesKey).Optimistic)

	close(api.release)
	out := <-done
	require.NoError(t, out.err)
	assert.Equal(t, Committed, out.res.Status)
	assert.Equal(t, "srv-42", out.res.Value.ID)
	assert.Equal(t, list[1].ID, out.res.TempID)

	fetcher.Wait()
	list = lookup[[]model.GroceryItem](t, store, GroceriesKey)
	require.Len(t, list, 2)
	assert.Equal(t, "Bananas", list[0].Name)
	assert.Equal(t, "srv-42", list[1].ID)
	assert.Equal(t, "Milk", list[1].Name)
	assert.False(t, store.Get(GroceriesKey).Optimistic)
}

func TestAddGrocery_SequentialCommitsMatchServer(t *testing.T) {
	store := cache.NewStore()
	fetcher := query.NewFetcher(context.Background(), store, 0)

	var mu sync.Mutex
	server := []model.GroceryItem{{ID: "b1", Name: "Bananas", Status: model.GroceryNeeded}}
	fetcher.Register(cache.Groceries, func(context.Context, cache.Key) ([]byte, error) {
		mu.Lock()
		defer mu.Unlock()
		return json.Marshal(server)
	})
	_, err := fetcher.Fetch(context.Background(), GroceriesKey)
	require.NoError(t, err)

	api := &fakeAPI{onAdd: func(item model.GroceryItem) {
		mu.Lock()
		defer mu.Unlock()
		server = append(server, item)
	}}
	m := NewMutations(NewController(store, fetcher), api, calendar.Week)

	for _, id := range []string{"srv-1", "srv-2"} {
		api.nextID = id
		res, err := m.AddGrocery(context.Background(), model.GroceryItem{Name: "Milk", Status: model.GroceryNeeded})
		require.NoError(t, err)
		require.Equal(t, Committed, res.Status)
		fetcher.Wait()
	}

	mu.Lock()
	want, err := json.Marshal(server)
	mu.Unlock()
	require.NoError(t, err)
	assert.Equal(t, string(want), string(store.Get(GroceriesKey).Value))
	assert.Equal(t, []string{"b1", "srv-1", "srv-2"}, idsOf(lookup[[]model.GroceryItem](t, store, GroceriesKey)))
	assert.False(t, store.Get(GroceriesKey).Optimistic)
}

func TestUpdateRecipe_RollbackRestoresExactPreState(t *testing.T) {
	store, rec, api, m := newHarness()
	soup := model.Recipe{
		ID:          "1",
		Name:        "Soup",
		Description: "a winter classic",
		Servings:    4,
		Tags:        []string{"warm"},
		Ingredients: []model.Ingredient{{ID: "i1", RecipeID: "1", Name: "Leek"}},
		UpdatedAt:   42,
	}
	listBefore := seed(t, store, RecipesKey, []model.Recipe{soup})
	detailBefore := seed(t, store, RecipeKey("1"), soup)
	api.err = transportErr()

	stew := "Stew"
	res, err := m.UpdateRecipe(context.Background(), UpdateRecipeInput{ID: "1", Patch: model.RecipePatch{Name: &stew}})
	require.Error(t, err)
	assert.ErrorIs(t, err, remote.ErrTransport)
	var merr *Error
	require.ErrorAs(t, err, &merr)
	assert.True(t, merr.RolledBack)
	assert.Equal(t, "update-recipe", merr.Mutation)

	assert.Equal(t, RolledBack, res.Status)
	assert.ElementsMatch(t, []cache.Key{RecipesKey, RecipeKey("1")}, res.Restored)
	assert.Empty(t, res.Skipped)

	listAfter := store.Get(RecipesKey)
	detailAfter := store.Get(RecipeKey("1"))
	assert.Equal(t, []byte(listBefore.Value), []byte(listAfter.Value))
	assert.Equal(t, []byte(detailBefore.Value), []byte(detailAfter.Value))
	assert.True(t, listBefore.SameState(listAfter))
	assert.True(t, detailBefore.SameState(detailAfter))
	assert.Equal(t, soup, lookup[model.Recipe](t, store, RecipeKey("1")))

	assert.Empty(t, rec.refetched)
	assert.Empty(t, rec.invalidated)
}

func TestDeleteGrocery_RollbackKeepsPosition(t *testing.T) {
	store, _, api, m := newHarness()
	items := []model.GroceryItem{
		{ID: "a", Name: "Apples"},
		{ID: "b", Name: "Bread"},
		{ID: "c", Name: "Cheese"},
	}
	before := seed(t, store, GroceriesKey, items)
	api.err = &remote.APIError{StatusCode: 500, Message: "boom"}
	api.started = make(chan string, 1)
	api.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := m.DeleteGrocery(context.Background(), "b")
		done <- err
	}()
	<-api.started
	predicted := lookup[[]model.GroceryItem](t, store, GroceriesKey)
	assert.Equal(t, []string{"a", "c"}, idsOf(predicted))
	close(api.release)

	err := <-done
	var apiErr *remote.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 500, apiErr.StatusCode)

	after := store.Get(GroceriesKey)
	assert.Equal(t, []byte(before.Value), []byte(after.Value))
	assert.Equal(t, []string{"a", "b", "c"}, idsOf(lookup[[]model.GroceryItem](t, store, GroceriesKey)))
}

func idsOf(items []model.GroceryItem) []string {
	ids := make([]string, 0, len(items))
	for _, g := range items {
		ids = append(ids, g.ID)
	}
	return ids
}

func TestRollback_EmptyCacheStaysEmpty(t *testing.T) {
	store, _, api, m := newHarness()
	api.err = transportErr()

	res, err := m.AddGrocery(context.Background(), model.GroceryItem{Name: "Milk"})
	require.Error(t, err)
	assert.Equal(t, RolledBack, res.Status)
	assert.Empty(t, res.Restored)

	e := store.Get(GroceriesKey)
	assert.Equal(t, cache.StatusAbsent, e.Status)
	assert.False(t, e.HasValue())
	assert.Empty(t, store.Keys())
}

func TestDeleteRecipe_MultiKeyRollback(t *testing.T) {
	store, _, api, m := newHarness()
	r := model.Recipe{ID: "7", Name: "Curry", Ingredients: []model.Ingredient{{ID: "x", RecipeID: "7", Name: "Rice"}}}
	list := seed(t, store, RecipesKey, []model.Recipe{{ID: "6", Name: "Pie"}, r})
	detail := seed(t, store, RecipeKey("7"), r)
	ings := seed(t, store, IngredientsKey("7"), r.Ingredients)
	api.err = transportErr()
	api.started = make(chan string, 1)
	api.release = make(chan struct{})

	done := make(chan Result[struct{}], 1)
	go func() {
		res, _ := m.DeleteRecipe(context.Background(), "7")
		done <- res
	}()
	<-api.started
	assert.Len(t, lookup[[]model.Recipe](t, store, RecipesKey), 1)
	assert.False(t, store.Get(RecipeKey("7")).HasValue())
	assert.False(t, store.Get(IngredientsKey("7")).HasValue())
	close(api.release)

	res := <-done
	assert.Equal(t, RolledBack, res.Status)
	assert.Len(t, res.Restored, 3)
	assert.True(t, list.SameState(store.Get(RecipesKey)))
	assert.True(t, detail.SameState(store.Get(RecipeKey("7"))))
	assert.True(t, ings.SameState(store.Get(IngredientsKey("7"))))
}

func TestCommit_RefetchesAffectedKeys(t *testing.T) {
	store, rec, _, m := newHarness()
	seed(t, store, RecipesKey, []model.Recipe{{ID: "1", Name: "Soup"}})
	seed(t, store, RecipeKey("1"), model.Recipe{ID: "1", Name: "Soup"})

	name := "Stew"
	res, err := m.UpdateRecipe(context.Background(), UpdateRecipeInput{ID: "1", Patch: model.RecipePatch{Name: &name}})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.ElementsMatch(t, []cache.Key{RecipesKey, RecipeKey("1")}, rec.refetched)
	assert.ElementsMatch(t, []cache.Key{RecipesKey, RecipeKey("1")}, rec.cancelled)
	assert.Equal(t, "Stew", lookup[model.Recipe](t, store, RecipeKey("1")).Name)
}

func TestPending_ConsumedOnce(t *testing.T) {
	store, _, _, m := newHarness()
	seed(t, store, GroceriesKey, []model.GroceryItem{{ID: "1", Name: "Eggs"}})
	patch := PatchList(GroceriesKey, func(l []model.GroceryItem) []model.GroceryItem { return l[:0] })

	p, err := m.c.Begin(context.Background(), "test", []cache.Key{GroceriesKey}, []Patch{patch})
	require.NoError(t, err)
	require.NoError(t, p.Commit())
	assert.ErrorIs(t, p.Commit(), ErrContextConsumed)
	_, _, err = p.Rollback()
	assert.ErrorIs(t, err, ErrContextConsumed)

	p, err = m.c.Begin(context.Background(), "test", []cache.Key{GroceriesKey}, []Patch{patch})
	require.NoError(t, err)
	_, _, err = p.Rollback()
	require.NoError(t, err)
	assert.ErrorIs(t, p.Commit(), ErrContextConsumed)
}

func TestBegin_RejectsUndeclaredKey(t *testing.T) {
	_, _, _, m := newHarness()
	_, err := m.c.Begin(context.Background(), "test", []cache.Key{GroceriesKey}, []Patch{PatchDrop(RecipesKey)})
	assert.Error(t, err)
}

func TestRollback_SkipsKeyWithNewerFetch(t *testing.T) {
	store, rec, _, m := newHarness()
	seed(t, store, RecipesKey, []model.Recipe{{ID: "1", Name: "Soup"}})

	patch := PatchList(RecipesKey, func(l []model.Recipe) []model.Recipe {
		return updateByID(l, "1", recipeID, func(r *model.Recipe) { r.Name = "Stew" })
	})
	p, err := m.c.Begin(context.Background(), "rename", []cache.Key{RecipesKey}, []Patch{patch})
	require.NoError(t, err)

	// a fetch begun after the optimistic write lands newer server data
	ticket, err := store.BeginFetch(RecipesKey)
	require.NoError(t, err)
	fresh := []byte(`[{"id":"1","name":"Broth"}]`)
	landedEntry, landed, err := store.Land(ticket, fresh)
	require.NoError(t, err)
	require.True(t, landed)

	restored, skipped, err := p.Rollback()
	require.NoError(t, err)
	assert.Empty(t, restored)
	assert.Equal(t, []cache.Key{RecipesKey}, skipped)
	assert.True(t, landedEntry.SameState(store.Get(RecipesKey)))
	assert.Empty(t, rec.invalidated)
}

func TestRollback_OverlappingMutationInvalidates(t *testing.T) {
	store, rec, _, m := newHarness()
	seed(t, store, GroceriesKey, []model.GroceryItem{{ID: "1", Name: "Eggs"}})
	add := func(name string) Patch {
		return PatchList(GroceriesKey, func(l []model.GroceryItem) []model.GroceryItem {
			return append(l, model.GroceryItem{ID: name, Name: name})
		})
	}

	first, err := m.c.Begin(context.Background(), "first", []cache.Key{GroceriesKey}, []Patch{add("a")})
	require.NoError(t, err)
	second, err := m.c.Begin(context.Background(), "second", []cache.Key{GroceriesKey}, []Patch{add("b")})
	require.NoError(t, err)

	_, skipped, err := first.Rollback()
	require.NoError(t, err)
	assert.Equal(t, []cache.Key{GroceriesKey}, skipped)
	// the later prediction survives until the server answers for it
	assert.Equal(t, []string{"1", "a", "b"}, idsOf(lookup[[]model.GroceryItem](t, store, GroceriesKey)))
	assert.Equal(t, []cache.Key{GroceriesKey}, rec.invalidated)

	require.NoError(t, second.Commit())
}

func TestRollback_ConcurrentMutationsNeverLoseARollback(t *testing.T) {
	store, _, api, m := newHarness()
	seed(t, store, GroceriesKey, []model.GroceryItem{{ID: "g", Name: "Garlic"}})
	seed(t, store, InvitationsKey, []model.Invitation{{ID: "i", Email: "a@b.c", Status: model.InvitationPending}})
	api.err = transportErr()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = m.DeleteGrocery(context.Background(), "g")
		}()
		go func() {
			defer wg.Done()
			_, _ = m.RevokeInvitation(context.Background(), "i")
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"g"}, idsOf(lookup[[]model.GroceryItem](t, store, GroceriesKey)))
	assert.Len(t, lookup[[]model.Invitation](t, store, InvitationsKey), 1)
	assert.False(t, store.Get(GroceriesKey).Optimistic)
}

func TestBegin_CancelsReadInFlight(t *testing.T) {
	store := cache.NewStore()
	fetcher := query.NewFetcher(context.Background(), store, 0)
	seed(t, store, GroceriesKey, []model.GroceryItem{{ID: "1", Name: "Eggs"}})

	started := make(chan struct{})
	fetcher.Register(cache.Groceries, func(ctx context.Context, _ cache.Key) ([]byte, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	errCh := make(chan error, 1)
	go func() {
		_, err := fetcher.Fetch(context.Background(), GroceriesKey)
		errCh <- err
	}()
	<-started

	c := NewController(store, fetcher)
	patch := PatchList(GroceriesKey, func(l []model.GroceryItem) []model.GroceryItem { return l[:0] })
	p, err := c.Begin(context.Background(), "clear", []cache.Key{GroceriesKey}, []Patch{patch})
	require.NoError(t, err)

	assert.ErrorIs(t, <-errCh, query.ErrSuperseded)
	assert.Empty(t, lookup[[]model.GroceryItem](t, store, GroceriesKey))
	_, _, err = p.Rollback()
	require.NoError(t, err)
}

func TestToggleGrocery(t *testing.T) {
	store, _, api, m := newHarness()
	seed(t, store, GroceriesKey, []model.GroceryItem{{ID: "1", Name: "Eggs", Status: model.GroceryNeeded}})

	res, err := m.ToggleGrocery(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, res.OK())
	require.Len(t, api.patches, 1)
	assert.Equal(t, model.GroceryChecked, *api.patches[0].Status)
	assert.Equal(t, model.GroceryChecked, lookup[[]model.GroceryItem](t, store, GroceriesKey)[0].Status)

	_, err = m.ToggleGrocery(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestClearChecked(t *testing.T) {
	store, _, _, m := newHarness()
	seed(t, store, GroceriesKey, []model.GroceryItem{
		{ID: "1", Name: "Eggs", Status: model.GroceryChecked},
		{ID: "2", Name: "Milk", Status: model.GroceryNeeded},
	})
	_, err := m.ClearChecked(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, idsOf(lookup[[]model.GroceryItem](t, store, GroceriesKey)))
}

func TestGenerateGroceries(t *testing.T) {
	store, rec, _, m := newHarness()
	before := seed(t, store, GroceriesKey, []model.GroceryItem{})

	res, err := m.GenerateGroceries(context.Background(), "2026-10-19", "2026-10-25")
	require.NoError(t, err)
	assert.Len(t, res.Value, 1)
	// nothing predicted, the refetch brings the lines in
	assert.True(t, before.SameState(store.Get(GroceriesKey)))
	assert.Equal(t, []cache.Key{GroceriesKey}, rec.refetched)

	_, err = m.GenerateGroceries(context.Background(), "2026-10-25", "2026-10-19")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAddIngredient_PredictsListAndDetail(t *testing.T) {
	store, _, _, m := newHarness()
	seed(t, store, IngredientsKey("r"), []model.Ingredient{})
	seed(t, store, RecipeKey("r"), model.Recipe{ID: "r", Name: "Salad", Ingredients: []model.Ingredient{}})

	res, err := m.AddIngredient(context.Background(), AddIngredientInput{RecipeID: "r", Ingredient: model.Ingredient{Name: "Lettuce"}})
	require.NoError(t, err)
	ings := lookup[[]model.Ingredient](t, store, IngredientsKey("r"))
	require.Len(t, ings, 1)
	assert.Equal(t, res.TempID, ings[0].ID)
	assert.Equal(t, "r", ings[0].RecipeID)
	assert.Len(t, lookup[model.Recipe](t, store, RecipeKey("r")).Ingredients, 1)

	_, err = m.DeleteIngredient(context.Background(), DeleteIngredientInput{RecipeID: "r", ID: res.TempID})
	require.NoError(t, err)
	assert.Empty(t, lookup[[]model.Ingredient](t, store, IngredientsKey("r")))
	assert.Empty(t, lookup[model.Recipe](t, store, RecipeKey("r")).Ingredients)
}

func TestSetScheduleEntry_MoveAcrossBatches(t *testing.T) {
	store, rec, _, m := newHarness()
	w43 := cache.NewKey(cache.Schedule, "2026-W43")
	w44 := cache.NewKey(cache.Schedule, "2026-W44")
	entry := model.ScheduleEntry{ID: "e1", Date: "2026-10-20", Meal: model.Dinner, RecipeID: "1"}
	seed(t, store, w43, []model.ScheduleDay{{Date: "2026-10-20", Entries: []model.ScheduleEntry{entry}}})
	seed(t, store, w44, []model.ScheduleDay{})

	moved := entry
	moved.Date = "2026-10-27"
	res, err := m.SetScheduleEntry(context.Background(), moved)
	require.NoError(t, err)
	assert.ElementsMatch(t, []cache.Key{w43, w44}, res.Keys)
	assert.ElementsMatch(t, []cache.Key{w43, w44}, rec.refetched)

	old := lookup[[]model.ScheduleDay](t, store, w43)
	require.Len(t, old, 1)
	assert.Empty(t, old[0].Entries)
	next := lookup[[]model.ScheduleDay](t, store, w44)
	require.Len(t, next, 1)
	assert.Equal(t, "2026-10-27", next[0].Date)
	assert.Equal(t, "e1", next[0].Entries[0].ID)
}

func TestSetScheduleEntry_KeysAndPatchesAgreeAfterConcurrentMove(t *testing.T) {
	store, _, _, m := newHarness()
	w43 := cache.NewKey(cache.Schedule, "2026-W43")
	w45 := cache.NewKey(cache.Schedule, "2026-W45")
	entry := model.ScheduleEntry{ID: "e1", Date: "2026-10-20", Meal: model.Dinner}
	seed(t, store, w43, []model.ScheduleDay{{Date: "2026-10-20", Entries: []model.ScheduleEntry{entry}}})

	moved := entry
	moved.Date = "2026-10-27"
	in := m.placeSchedule(moved)
	require.Equal(t, w43, in.Prev)

	// another move of e1 lands before this one predicts
	seed(t, store, w43, []model.ScheduleDay{{Date: "2026-10-20", Entries: []model.ScheduleEntry{}}})
	seed(t, store, w45, []model.ScheduleDay{{Date: "2026-11-03", Entries: []model.ScheduleEntry{{ID: "e1", Date: "2026-11-03"}}}})

	def := m.setScheduleEntry()
	declared := map[cache.Key]bool{}
	for _, k := range def.Keys(in) {
		declared[k] = true
	}
	for _, p := range def.Optimistic(in, "") {
		assert.True(t, declared[p.Key], "patch for undeclared key %s", p.Key)
	}
}

func TestSetScheduleEntry_ConcurrentMovesNeverRejected(t *testing.T) {
	store, _, _, m := newHarness()
	seed(t, store, cache.NewKey(cache.Schedule, "2026-W43"), []model.ScheduleDay{
		{Date: "2026-10-20", Entries: []model.ScheduleEntry{{ID: "e1", Date: "2026-10-20", Meal: model.Dinner}}},
	})
	seed(t, store, cache.NewKey(cache.Schedule, "2026-W44"), []model.ScheduleDay{})
	seed(t, store, cache.NewKey(cache.Schedule, "2026-W45"), []model.ScheduleDay{})

	dates := []string{"2026-10-20", "2026-10-27", "2026-11-03"}
	var wg sync.WaitGroup
	var mu sync.Mutex
	var failures []error
	for g := 0; g < 3; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 300; i++ {
				e := model.ScheduleEntry{ID: "e1", Date: dates[(g+i)%len(dates)], Meal: model.Dinner}
				if _, err := m.SetScheduleEntry(context.Background(), e); err != nil {
					mu.Lock()
					failures = append(failures, err)
					mu.Unlock()
				}
			}
		}(g)
	}
	wg.Wait()
	assert.Empty(t, failures)
}

func TestSetScheduleEntry_NewEntryRollsBack(t *testing.T) {
	store, _, api, m := newHarness()
	w43 := cache.NewKey(cache.Schedule, "2026-W43")
	before := seed(t, store, w43, []model.ScheduleDay{{Date: "2026-10-22", Entries: []model.ScheduleEntry{}}})
	api.err = transportErr()

	_, err := m.SetScheduleEntry(context.Background(), model.ScheduleEntry{Date: "2026-10-19", Meal: model.Lunch, Note: "leftovers"})
	require.Error(t, err)
	assert.True(t, before.SameState(store.Get(w43)))

	_, err = m.SetScheduleEntry(context.Background(), model.ScheduleEntry{Date: "19/10/2026", Meal: model.Lunch})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpsertEntry_SortsDays(t *testing.T) {
	days := []model.ScheduleDay{{Date: "2026-10-21", Entries: []model.ScheduleEntry{}}}
	days = upsertEntry(days, model.ScheduleEntry{ID: "x", Date: "2026-10-19"})
	days = upsertEntry(days, model.ScheduleEntry{ID: "y", Date: "2026-10-21"})
	require.Len(t, days, 2)
	assert.Equal(t, "2026-10-19", days[0].Date)
	assert.Equal(t, "y", days[1].Entries[0].ID)
}

func TestInvitations(t *testing.T) {
	store, _, _, m := newHarness()
	seed(t, store, InvitationsKey, []model.Invitation{})

	res, err := m.SendInvitation(context.Background(), "nonna@example.com")
	require.NoError(t, err)
	invs := lookup[[]model.Invitation](t, store, InvitationsKey)
	require.Len(t, invs, 1)
	assert.Equal(t, res.TempID, invs[0].ID)
	assert.Equal(t, model.InvitationPending, invs[0].Status)

	_, err = m.SendInvitation(context.Background(), "not-an-email")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = m.RespondInvitation(context.Background(), RespondInvitationInput{ID: res.TempID, Status: model.InvitationPending})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = m.RespondInvitation(context.Background(), RespondInvitationInput{ID: res.TempID, Status: model.InvitationAccepted})
	require.NoError(t, err)
	assert.Equal(t, model.InvitationAccepted, lookup[[]model.Invitation](t, store, InvitationsKey)[0].Status)

	_, err = m.RevokeInvitation(context.Background(), res.TempID)
	require.NoError(t, err)
	assert.Empty(t, lookup[[]model.Invitation](t, store, InvitationsKey))
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("nope")
	err := error(&Error{Mutation: "x", Err: cause})
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "mutation x failed")
}
