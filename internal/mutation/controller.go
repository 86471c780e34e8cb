// Package mutation applies writes optimistically: the predicted state is
// visible in the cache before the server answers, and is either replaced by
// authoritative data or rolled back exactly.
package mutation

import (
	"context"
	"errors"
	"fmt"

	"github.com/bassista/mealsync/internal/cache"
	"github.com/bassista/mealsync/internal/logger"
	"github.com/bassista/mealsync/internal/model"
	"github.com/go-playground/validator/v10"
)

// ErrValidation marks input rejected before anything was dispatched.
var ErrValidation = errors.New("invalid mutation input")

// Queries is the part of the query layer the controller drives.
type Queries interface {
	Cancel(key cache.Key)
	Refetch(keys ...cache.Key)
	Invalidate(keys ...cache.Key)
}

type Status int

const (
	// Rejected: validation failed, the cache was never touched.
	Rejected Status = iota
	Committed
	RolledBack
)

func (s Status) String() string {
	switch s {
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled back"
	default:
		return "rejected"
	}
}

// Result is what an awaited mutation reports. Value is only meaningful when
// Status is Committed.
type Result[Out any] struct {
	Status   Status
	Value    Out
	TempID   string
	Keys     []cache.Key
	Restored []cache.Key
	Skipped  []cache.Key
}

func (r Result[Out]) OK() bool {
	return r.Status == Committed
}

// Error wraps the cause of a failed mutation. Transport failures and server
// rejections are rolled back the same way; errors.Is / errors.As on the cause
// let the caller tell them apart.
type Error struct {
	Mutation   string
	RolledBack bool
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("mutation %s failed: %v", e.Mutation, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Definition describes one mutation kind.
type Definition[In, Out any] struct {
	Name string
	// Creates asks the controller to mint a temporary id for the new entity.
	Creates bool
	// Validate runs before anything else; failing it never touches the cache.
	Validate func(in In) error
	// Keys is the declared set of every key the mutation affects.
	Keys func(in In) []cache.Key
	// Optimistic returns the predictions; each key must be in Keys.
	Optimistic func(in In, tempID string) []Patch
	// Send performs the real write. It is never cancelled once dispatched.
	Send func(ctx context.Context, in In, tempID string) (Out, error)
}

// Controller owns the optimistic write path for one cache store.
type Controller struct {
	store    *cache.Store
	queries  Queries
	validate *validator.Validate
}

func NewController(store *cache.Store, queries Queries) *Controller {
	return &Controller{
		store:    store,
		queries:  queries,
		validate: validator.New(),
	}
}

func (c *Controller) Store() *cache.Store {
	return c.store
}

// Struct validates v with the controller's validator and wraps the failure in
// ErrValidation.
func (c *Controller) Struct(v any) error {
	if err := c.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// Run executes def for in: validate, snapshot and apply under the key locks,
// dispatch, then commit or roll back. A failed mutation returns a non-nil
// *Error alongside a Result describing what was rolled back.
func Run[In, Out any](ctx context.Context, c *Controller, def Definition[In, Out], in In) (Result[Out], error) {
	log := logger.WithComponent("mutation")

	if def.Validate != nil {
		if err := def.Validate(in); err != nil {
			if !errors.Is(err, ErrValidation) {
				err = fmt.Errorf("%w: %v", ErrValidation, err)
			}
			log.Debugf("%s rejected: %v", def.Name, err)
			return Result[Out]{Status: Rejected}, &Error{Mutation: def.Name, Err: err}
		}
	}

	var tempID string
	if def.Creates {
		tempID = model.NewTempID()
	}

	var keys []cache.Key
	if def.Keys != nil {
		keys = def.Keys(in)
	}
	var patches []Patch
	if def.Optimistic != nil {
		patches = def.Optimistic(in, tempID)
	}

	pending, err := c.Begin(ctx, def.Name, keys, patches)
	if err != nil {
		return Result[Out]{Status: Rejected, TempID: tempID}, &Error{Mutation: def.Name, Err: err}
	}
	res := Result[Out]{TempID: tempID, Keys: pending.Keys()}

	out, sendErr := def.Send(context.WithoutCancel(ctx), in, tempID)
	if sendErr == nil {
		if err := pending.Commit(); err != nil {
			return res, &Error{Mutation: def.Name, Err: err}
		}
		res.Status = Committed
		res.Value = out
		log.Debugf("%s committed", def.Name)
		return res, nil
	}

	restored, skipped, err := pending.Rollback()
	res.Status = RolledBack
	res.Restored = restored
	res.Skipped = skipped
	if err != nil {
		log.Errorf("%s rollback failed: %v", def.Name, err)
		return res, &Error{Mutation: def.Name, Err: errors.Join(sendErr, err)}
	}
	log.Infof("%s failed and was rolled back (%d restored, %d skipped): %v", def.Name, len(restored), len(skipped), sendErr)
	return res, &Error{Mutation: def.Name, RolledBack: true, Err: sendErr}
}
