package controller

import (
	"net/http"
	"testing"

	"github.com/bassista/mealsync/internal/cache"
	"github.com/bassista/mealsync/internal/model"
	"github.com/gin-gonic/gin"
)

func TestInvitationController_Lifecycle(t *testing.T) {
	n := &recordingNotifier{}
	cc := NewInvitationController(newTestStore(), n)
	r := gin.New()
	cc.RegisterCrudRoutes(r.Group(""))

	w := doJSON(t, r, http.MethodPost, "/invitations", model.Invitation{Email: "b@example.com", Status: model.InvitationAccepted})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	inv := decode[model.Invitation](t, w)
	if inv.Status != model.InvitationPending {
		t.Errorf("expected new invitation to be pending, got %q", inv.Status)
	}

	w = doJSON(t, r, http.MethodPatch, "/invitations/"+inv.ID, model.InvitationResponse{Status: model.InvitationDeclined})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if got := decode[model.Invitation](t, w); got.Status != model.InvitationDeclined {
		t.Errorf("expected declined, got %q", got.Status)
	}

	if w := doJSON(t, r, http.MethodDelete, "/invitations/inv1", nil); w.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/invitations", nil)
	if all := decode[[]model.Invitation](t, w); len(all) != 1 || all[0].ID != inv.ID {
		t.Errorf("unexpected invitations: %+v", all)
	}

	for _, m := range n.Messages() {
		if m.Resource != cache.Invitations {
			t.Errorf("expected invitation broadcasts, got %q", m.Resource)
		}
	}
}

func TestInvitationController_Invalid(t *testing.T) {
	cc := NewInvitationController(newTestStore(), nil)
	r := gin.New()
	cc.RegisterCrudRoutes(r.Group(""))

	if w := doJSON(t, r, http.MethodPost, "/invitations", model.Invitation{Email: "not-an-email"}); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad email, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodPatch, "/invitations/inv1", model.InvitationResponse{Status: model.InvitationPending}); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for pending answer, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodPatch, "/invitations/nope", model.InvitationResponse{Status: model.InvitationAccepted}); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown invitation, got %d", w.Code)
	}
}
