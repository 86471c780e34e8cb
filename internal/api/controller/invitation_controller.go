package controller

import (
	"github.com/bassista/mealsync/internal/cache"
	"github.com/bassista/mealsync/internal/household"
	"github.com/bassista/mealsync/internal/model"
	"github.com/go-playground/validator/v10"
)

// InvitationCrudService implements CrudService for invitations. A PATCH
// carries the invitee's answer.
type InvitationCrudService struct {
	Store household.InvitationStore
}

func (s *InvitationCrudService) All() ([]model.Invitation, error) {
	return s.Store.Invitations()
}

func (s *InvitationCrudService) Create(inv model.Invitation) (model.Invitation, error) {
	return s.Store.SendInvitation(inv)
}

func (s *InvitationCrudService) Update(id string, resp model.InvitationResponse) (model.Invitation, error) {
	return s.Store.RespondInvitation(id, resp.Status)
}

func (s *InvitationCrudService) Remove(id string) error {
	return s.Store.RevokeInvitation(id)
}

// NewInvitationController returns the generic controller serving
// /invitations.
func NewInvitationController(store household.InvitationStore, notifier Notifier) *CrudController[model.Invitation, model.InvitationResponse] {
	return &CrudController[model.Invitation, model.InvitationResponse]{
		Service:   &InvitationCrudService{Store: store},
		Validator: validator.New(),
		Notifier:  notifier,
		Resource:  cache.Invitations,
	}
}
