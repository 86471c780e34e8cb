package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bassista/mealsync/internal/config"
	"github.com/bassista/mealsync/internal/household"
	"github.com/bassista/mealsync/internal/model"
	"github.com/bassista/mealsync/internal/push"
	"github.com/bassista/mealsync/internal/repository"
)

// mockRepository implements repository.Repository for testing
type mockRepository struct {
	mu             sync.Mutex
	watcherStarted bool
	watcherErr     error
	saves          int
	doc            repository.Household
}

func (m *mockRepository) Load(ctx context.Context) (*repository.Household, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := m.doc
	return &doc, nil
}

func (m *mockRepository) Save(ctx context.Context, doc *repository.Household) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if doc != nil {
		m.doc = *doc
	}
	return nil
}

func (m *mockRepository) StartWatcher(ctx context.Context, store repository.CacheStore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watcherErr != nil {
		return m.watcherErr
	}
	m.watcherStarted = true
	return nil
}

func (m *mockRepository) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func testConfig() *config.Config {
	return &config.Config{
		Data: config.DataConfig{FilePath: "/tmp/household.json", PersistInterval: time.Hour},
	}
}

func newTestApp(t *testing.T, repo *mockRepository) *App {
	t.Helper()
	a, err := New(testConfig(), repo, household.NewStore(repository.Household{}), push.NewHub(func(string) bool { return true }, time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return a
}

func TestNew_Success(t *testing.T) {
	a := newTestApp(t, &mockRepository{})
	defer a.Shutdown()

	if a.BaseCtx == nil || a.Cancel == nil {
		t.Fatal("expected lifecycle context to be set")
	}
	if a.Store == nil || a.Hub == nil || a.Repo == nil {
		t.Error("expected dependencies to be set")
	}
}

func TestNew_NilDependencies(t *testing.T) {
	cfg := testConfig()
	repo := &mockRepository{}
	store := household.NewStore(repository.Household{})
	hub := push.NewHub(nil, time.Minute)

	tests := []struct {
		name string
		fn   func() (*App, error)
	}{
		{"nil config", func() (*App, error) { return New(nil, repo, store, hub) }},
		{"nil repo", func() (*App, error) { return New(cfg, nil, store, hub) }},
		{"nil store", func() (*App, error) { return New(cfg, repo, nil, hub) }},
		{"nil hub", func() (*App, error) { return New(cfg, repo, store, nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := tt.fn()
			if err == nil {
				t.Error("expected error")
			}
			if a != nil {
				t.Error("expected nil app")
			}
		})
	}
}

func TestApp_StartWatchers(t *testing.T) {
	repo := &mockRepository{}
	a := newTestApp(t, repo)

	if err := a.StartWatchers(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !repo.watcherStarted {
		t.Error("expected watcher to be started")
	}

	if _, err := a.Store.AddGrocery(model.GroceryItem{Name: "Milk"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Shutdown waits for the final flush
	a.Shutdown()
	if repo.Saves() != 1 {
		t.Errorf("expected final flush on shutdown, got %d saves", repo.Saves())
	}
}

func TestApp_StartWatchers_Error(t *testing.T) {
	repo := &mockRepository{watcherErr: errors.New("boom")}
	a := newTestApp(t, repo)

	if err := a.StartWatchers(); err == nil {
		t.Error("expected watcher error")
	}

	// persistence still runs without the watcher
	if _, err := a.Store.AddGrocery(model.GroceryItem{Name: "Eggs"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a.Shutdown()
	if repo.Saves() != 1 {
		t.Errorf("expected final flush without watcher, got %d saves", repo.Saves())
	}
}

func TestApp_Shutdown_Nil(t *testing.T) {
	var a *App
	a.Shutdown() // must not panic
}

func TestApp_Shutdown_NilCancel(t *testing.T) {
	a := &App{}
	a.Shutdown() // must not panic
}

func TestApp_ContextCancellation(t *testing.T) {
	a := newTestApp(t, &mockRepository{})
	a.Shutdown()

	select {
	case <-a.BaseCtx.Done():
	case <-time.After(time.Second):
		t.Error("expected base context to be cancelled")
	}
}
