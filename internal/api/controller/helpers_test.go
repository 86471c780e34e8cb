package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/bassista/mealsync/internal/household"
	"github.com/bassista/mealsync/internal/model"
	"github.com/bassista/mealsync/internal/push"
	"github.com/bassista/mealsync/internal/repository"
	"github.com/gin-gonic/gin"
)

// recordingNotifier captures broadcast messages.
type recordingNotifier struct {
	mu   sync.Mutex
	msgs []push.Message
}

func (n *recordingNotifier) Broadcast(msg push.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *recordingNotifier) Messages() []push.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]push.Message(nil), n.msgs...)
}

func newTestStore() *household.Store {
	return household.NewStore(repository.Household{
		Groceries: []model.GroceryItem{
			{ID: "g1", Name: "Milk", Status: model.GroceryNeeded},
			{ID: "g2", Name: "Eggs", Status: model.GroceryChecked},
		},
		Recipes: []model.Recipe{
			{ID: "r1", Name: "Soup", Ingredients: []model.Ingredient{
				{ID: "i1", RecipeID: "r1", Name: "Carrot", Quantity: "2", Aisle: "produce"},
				{ID: "i2", RecipeID: "r1", Name: "Onion", Quantity: "1", Unit: "pc"},
			}},
		},
		Schedule: []model.ScheduleEntry{
			{ID: "s1", Date: "2026-03-02", Meal: model.Dinner, RecipeID: "r1"},
		},
		Invitations: []model.Invitation{
			{ID: "inv1", Email: "a@example.com", Status: model.InvitationPending},
		},
		Members: []repository.Member{{Token: "tok-1", Name: "Ada"}},
	})
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to unmarshal response %q: %v", w.Body.String(), err)
	}
	return out
}

func init() {
	gin.SetMode(gin.TestMode)
}
