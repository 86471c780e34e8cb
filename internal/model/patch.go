package model

// GroceryPatch carries the fields of a partial grocery update; nil means
// unchanged.
type GroceryPatch struct {
	Name     *string        `json:"name,omitempty" validate:"omitempty,min=1"`
	Aisle    *string        `json:"aisle,omitempty"`
	Quantity *string        `json:"quantity,omitempty"`
	Status   *GroceryStatus `json:"status,omitempty" validate:"omitempty,oneof=needed checked"`
}

func (g *GroceryItem) Apply(p GroceryPatch) {
	if p.Name != nil {
		g.Name = *p.Name
	}
	if p.Aisle != nil {
		g.Aisle = *p.Aisle
	}
	if p.Quantity != nil {
		g.Quantity = *p.Quantity
	}
	if p.Status != nil {
		g.Status = *p.Status
	}
}

type RecipePatch struct {
	Name        *string   `json:"name,omitempty" validate:"omitempty,min=1"`
	Description *string   `json:"description,omitempty"`
	Servings    *int      `json:"servings,omitempty" validate:"omitempty,min=0"`
	Tags        *[]string `json:"tags,omitempty"`
}

func (r *Recipe) Apply(p RecipePatch) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Servings != nil {
		r.Servings = *p.Servings
	}
	if p.Tags != nil {
		r.Tags = append([]string{}, (*p.Tags)...)
	}
}

// InvitationResponse is the body of an accept/decline call.
type InvitationResponse struct {
	Status InvitationStatus `json:"status" validate:"required,oneof=accepted declined"`
}

// GenerateRequest asks the server to build grocery lines from the recipes
// scheduled between From and To, inclusive.
type GenerateRequest struct {
	From string `json:"from" validate:"required,datetime=2006-01-02"`
	To   string `json:"to" validate:"required,datetime=2006-01-02"`
}

// SessionRequest opens a session for a household member.
type SessionRequest struct {
	Name string `json:"name" validate:"required"`
}

type SessionResponse struct {
	Token string `json:"token"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
}
