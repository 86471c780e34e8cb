package mutation

import (
	"context"

	"github.com/bassista/mealsync/internal/cache"
	"github.com/bassista/mealsync/internal/model"
)

type RespondInvitationInput struct {
	ID     string                 `validate:"required"`
	Status model.InvitationStatus `validate:"required,oneof=accepted declined"`
}

func invitationID(i model.Invitation) string { return i.ID }

func (m *Mutations) sendInvitation() Definition[model.Invitation, model.Invitation] {
	return Definition[model.Invitation, model.Invitation]{
		Name:    "send-invitation",
		Creates: true,
		Validate: func(in model.Invitation) error {
			return m.c.Struct(in)
		},
		Keys: func(model.Invitation) []cache.Key {
			return []cache.Key{InvitationsKey}
		},
		Optimistic: func(in model.Invitation, tempID string) []Patch {
			inv := in
			inv.ID = tempID
			inv.Status = model.InvitationPending
			inv.CreatedAt = m.now().UnixMilli()
			return []Patch{PatchList(InvitationsKey, func(list []model.Invitation) []model.Invitation {
				return append(list, inv)
			})}
		},
		Send: func(ctx context.Context, in model.Invitation, _ string) (model.Invitation, error) {
			in.ID = ""
			return m.api.SendInvitation(ctx, in)
		},
	}
}

func (m *Mutations) SendInvitation(ctx context.Context, email string) (Result[model.Invitation], error) {
	return Run(ctx, m.c, m.sendInvitation(), model.Invitation{Email: email})
}

func (m *Mutations) respondInvitation() Definition[RespondInvitationInput, model.Invitation] {
	return Definition[RespondInvitationInput, model.Invitation]{
		Name: "respond-invitation",
		Validate: func(in RespondInvitationInput) error {
			return m.c.Struct(in)
		},
		Keys: func(RespondInvitationInput) []cache.Key {
			return []cache.Key{InvitationsKey}
		},
		Optimistic: func(in RespondInvitationInput, _ string) []Patch {
			return []Patch{PatchList(InvitationsKey, func(list []model.Invitation) []model.Invitation {
				return updateByID(list, in.ID, invitationID, func(i *model.Invitation) { i.Status = in.Status })
			})}
		},
		Send: func(ctx context.Context, in RespondInvitationInput, _ string) (model.Invitation, error) {
			return m.api.RespondInvitation(ctx, in.ID, in.Status)
		},
	}
}

// RespondInvitation accepts or declines an invitation.
func (m *Mutations) RespondInvitation(ctx context.Context, in RespondInvitationInput) (Result[model.Invitation], error) {
	return Run(ctx, m.c, m.respondInvitation(), in)
}

func (m *Mutations) revokeInvitation() Definition[DeleteInput, struct{}] {
	return Definition[DeleteInput, struct{}]{
		Name: "revoke-invitation",
		Validate: func(in DeleteInput) error {
			return m.c.Struct(in)
		},
		Keys: func(DeleteInput) []cache.Key {
			return []cache.Key{InvitationsKey}
		},
		Optimistic: func(in DeleteInput, _ string) []Patch {
			return []Patch{PatchList(InvitationsKey, func(list []model.Invitation) []model.Invitation {
				return removeByID(list, in.ID, invitationID)
			})}
		},
		Send: func(ctx context.Context, in DeleteInput, _ string) (struct{}, error) {
			return struct{}{}, m.api.RevokeInvitation(ctx, in.ID)
		},
	}
}

func (m *Mutations) RevokeInvitation(ctx context.Context, id string) (Result[struct{}], error) {
	return Run(ctx, m.c, m.revokeInvitation(), DeleteInput{ID: id})
}
