package household

import (
	"fmt"

	"github.com/bassista/mealsync/internal/model"
	"github.com/bassista/mealsync/internal/repository"
)

func (s *Store) Invitations() ([]model.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.data.Invitations)
}

func (s *Store) SendInvitation(inv model.Invitation) (model.Invitation, error) {
	inv.ID = model.NewID()
	inv.Status = model.InvitationPending
	inv.CreatedAt = s.stamp()
	err := s.write(func(d *repository.Household) error {
		d.Invitations = append(d.Invitations, inv)
		return nil
	})
	return inv, err
}

func (s *Store) RespondInvitation(id string, status model.InvitationStatus) (model.Invitation, error) {
	var out model.Invitation
	err := s.write(func(d *repository.Household) error {
		i := indexOf(d.Invitations, func(v model.Invitation) bool { return v.ID == id })
		if i < 0 {
			return fmt.Errorf("invitation %s: %w", id, ErrNotFound)
		}
		d.Invitations[i].Status = status
		out = d.Invitations[i]
		return nil
	})
	return out, err
}

func (s *Store) RevokeInvitation(id string) error {
	return s.write(func(d *repository.Household) error {
		i := indexOf(d.Invitations, func(v model.Invitation) bool { return v.ID == id })
		if i < 0 {
			return fmt.Errorf("invitation %s: %w", id, ErrNotFound)
		}
		d.Invitations = append(d.Invitations[:i], d.Invitations[i+1:]...)
		return nil
	})
}

// OpenSession registers a member session and returns its token.
func (s *Store) OpenSession(name string) (repository.Member, error) {
	m := repository.Member{Token: model.NewID(), Name: name, CreatedAt: s.stamp()}
	err := s.write(func(d *repository.Household) error {
		d.Members = append(d.Members, m)
		return nil
	})
	return m, err
}

// HasSession reports whether token belongs to an open session.
func (s *Store) HasSession(token string) bool {
	if token == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexOf(s.data.Members, func(m repository.Member) bool { return m.Token == token }) >= 0
}

func (s *Store) CloseSession(token string) error {
	return s.write(func(d *repository.Household) error {
		i := indexOf(d.Members, func(m repository.Member) bool { return m.Token == token })
		if i < 0 {
			return fmt.Errorf("session: %w", ErrNotFound)
		}
		d.Members = append(d.Members[:i], d.Members[i+1:]...)
		return nil
	})
}
