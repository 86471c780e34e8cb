package push

import (
	"sync"

	"github.com/bassista/mealsync/internal/cache"
	"github.com/bassista/mealsync/internal/calendar"
	"github.com/bassista/mealsync/internal/logger"
)

// Queries is the part of the query layer an invalidation drives.
type Queries interface {
	Invalidate(keys ...cache.Key)
}

// related lists, per pushed resource, the key resources whose data derives
// from it.
var related = map[string][]string{
	cache.Groceries:   {cache.Groceries},
	cache.Recipes:     {cache.Recipes, cache.Recipe, cache.Ingredients},
	cache.Recipe:      {cache.Recipes, cache.Recipe, cache.Ingredients},
	cache.Ingredients: {cache.Ingredients, cache.Recipe},
	cache.Schedule:    {cache.Schedule},
	cache.Invitations: {cache.Invitations},
}

// Invalidator turns push messages into stale marks and refetches. It never
// writes message payloads into the cache.
type Invalidator struct {
	store       *cache.Store
	queries     Queries
	granularity calendar.Granularity

	mu        sync.Mutex
	connected bool
}

func NewInvalidator(store *cache.Store, queries Queries, g calendar.Granularity) *Invalidator {
	return &Invalidator{store: store, queries: queries, granularity: g}
}

// Keys resolves the cached keys a message affects. Schedule messages scoped
// to dates hit only the batches of those dates.
func (i *Invalidator) Keys(msg Message) []cache.Key {
	if !msg.IsInvalidation() {
		return nil
	}
	if msg.Resource == cache.Schedule && len(msg.Dates()) > 0 {
		var keys []cache.Key
		for _, date := range msg.Dates() {
			batch, err := calendar.BatchKeyOf(date, i.granularity)
			if err != nil {
				logger.WithComponent("push").Warnf("ignoring date in schedule invalidation: %v", err)
				continue
			}
			keys = append(keys, cache.NewKey(cache.Schedule, batch))
		}
		if len(keys) > 0 {
			return cache.SortKeys(keys)
		}
	}

	resources, ok := related[msg.Resource]
	if !ok {
		resources = []string{msg.Resource}
	}
	return i.store.Match(resources...)
}

// Handle is the receiver's message handler.
func (i *Invalidator) Handle(msg Message) {
	keys := i.Keys(msg)
	if len(keys) == 0 {
		return
	}
	logger.WithComponent("push").Debugf("%s changed remotely, invalidating %d keys", msg.Resource, len(keys))
	i.queries.Invalidate(keys...)
}

// OnStatus catches up after a gap: every connection after the first may have
// missed invalidations, so all cached keys are refetched.
func (i *Invalidator) OnStatus(s Status) {
	if s != Connected {
		return
	}
	i.mu.Lock()
	reconnect := i.connected
	i.connected = true
	i.mu.Unlock()
	if reconnect {
		i.InvalidateAll()
	}
}

func (i *Invalidator) InvalidateAll() {
	keys := i.store.Keys()
	if len(keys) == 0 {
		return
	}
	logger.WithComponent("push").Infof("reconnected, refetching %d cached keys", len(keys))
	i.queries.Invalidate(keys...)
}

// Reset forgets past connections, e.g. at logout.
func (i *Invalidator) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.connected = false
}
