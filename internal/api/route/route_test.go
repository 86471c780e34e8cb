package route

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bassista/mealsync/internal/app"
	"github.com/bassista/mealsync/internal/config"
	"github.com/bassista/mealsync/internal/household"
	"github.com/bassista/mealsync/internal/model"
	"github.com/bassista/mealsync/internal/push"
	"github.com/bassista/mealsync/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type nopRepository struct{}

func (nopRepository) Load(ctx context.Context) (*repository.Household, error) {
	return &repository.Household{}, nil
}
func (nopRepository) Save(ctx context.Context, doc *repository.Household) error { return nil }
func (nopRepository) StartWatcher(ctx context.Context, store repository.CacheStore) error {
	return nil
}

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("HONEYBADGER_API_KEY", "")

	cfg := &config.Config{
		Server: config.ServerConfig{RequestTimeout: time.Second, CORSAllowedOrigins: "*"},
		Client: config.ClientConfig{Granularity: "week", StaleTime: time.Minute},
	}
	store := household.NewStore(repository.Household{})
	hub := push.NewHub(store.HasSession, 0)
	a, err := app.New(cfg, nopRepository{}, store, hub)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	t.Cleanup(a.Shutdown)

	log := logrus.New()
	log.SetOutput(io.Discard)
	return SetupRoutes(a, log)
}

func call(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r http.Handler, name string) string {
	t.Helper()
	w := call(r, http.MethodPost, "/session", "", model.SessionRequest{Name: name})
	if w.Code != http.StatusCreated {
		t.Fatalf("login: expected 201, got %d", w.Code)
	}
	var resp model.SessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("login: bad response %q", w.Body.String())
	}
	return resp.Token
}

func TestSetupRoutes_Health(t *testing.T) {
	r := newTestEngine(t)
	w := call(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestSetupRoutes_ConfigIsPublic(t *testing.T) {
	r := newTestEngine(t)
	w := call(r, http.MethodGet, "/config", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestSetupRoutes_ResourcesRequireSession(t *testing.T) {
	r := newTestEngine(t)

	for _, path := range []string{"/groceries", "/recipes", "/invitations", "/schedule?from=2026-03-01&to=2026-03-07"} {
		if w := call(r, http.MethodGet, path, "", nil); w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without token: expected 401, got %d", path, w.Code)
		}
		if w := call(r, http.MethodGet, path, "forged", nil); w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s with unknown token: expected 401, got %d", path, w.Code)
		}
	}
}

func TestSetupRoutes_SessionLifecycle(t *testing.T) {
	r := newTestEngine(t)
	token := login(t, r, "Ada")

	w := call(r, http.MethodPost, "/groceries", token, model.GroceryItem{Name: "Milk"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	w = call(r, http.MethodGet, "/groceries", token, nil)
	var items []model.GroceryItem
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil || len(items) != 1 {
		t.Fatalf("expected one grocery item, got %q (%v)", w.Body.String(), err)
	}

	if w := call(r, http.MethodDelete, "/session", token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", w.Code)
	}
	if w := call(r, http.MethodGet, "/groceries", token, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", w.Code)
	}
	if w := call(r, http.MethodDelete, "/session", token, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for a second logout, got %d", w.Code)
	}
}

func TestSetupRoutes_RecipeAndSchedule(t *testing.T) {
	r := newTestEngine(t)
	token := login(t, r, "Ada")

	w := call(r, http.MethodPost, "/recipes", token, model.Recipe{Name: "Soup"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", w.Code)
	}
	var recipe model.Recipe
	_ = json.Unmarshal(w.Body.Bytes(), &recipe)

	entry := model.ScheduleEntry{Date: "2026-03-03", Meal: model.Dinner, RecipeID: recipe.ID}
	if w := call(r, http.MethodPut, "/schedule", token, entry); w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = call(r, http.MethodGet, "/schedule?from=2026-03-02&to=2026-03-08", token, nil)
	var days []model.ScheduleDay
	if err := json.Unmarshal(w.Body.Bytes(), &days); err != nil || len(days) != 1 {
		t.Errorf("expected one scheduled day, got %q (%v)", w.Body.String(), err)
	}
}
