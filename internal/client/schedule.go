package client

import (
	"context"
	"sort"
	"time"

	"github.com/bassista/mealsync/internal/cache"
	"github.com/bassista/mealsync/internal/calendar"
	"github.com/bassista/mealsync/internal/model"
)

// edgeThreshold is how close, in days, the visible range may get to a window
// edge before that side grows.
const edgeThreshold = 3

func (c *Client) Navigator() *calendar.Navigator {
	return c.nav
}

func (c *Client) Window() *calendar.Window {
	return c.nav.Window()
}

// batchKeys turns the window's batch keys into cache keys.
func (c *Client) batchKeys() []cache.Key {
	batches := c.Window().BatchKeys()
	keys := make([]cache.Key, 0, len(batches))
	for _, b := range batches {
		keys = append(keys, cache.NewKey(cache.Schedule, b))
	}
	return keys
}

// Prefetch loads every batch of the window in parallel.
func (c *Client) Prefetch(ctx context.Context) error {
	cr, err := c.current()
	if err != nil {
		return err
	}
	return cr.fetcher.FetchAll(ctx, c.batchKeys())
}

// Schedule returns the days of the window holding entries, in date order.
func (c *Client) Schedule(ctx context.Context) ([]model.ScheduleDay, error) {
	if err := c.Prefetch(ctx); err != nil {
		return nil, err
	}
	start, end := c.Window().Bounds()
	from, to := calendar.FormatDate(start), calendar.FormatDate(end)

	var days []model.ScheduleDay
	for _, key := range c.batchKeys() {
		batch, err := read[[]model.ScheduleDay](ctx, c, key)
		if err != nil {
			return nil, err
		}
		for _, d := range batch {
			if d.Date >= from && d.Date <= to && len(d.Entries) > 0 {
				days = append(days, d)
			}
		}
	}
	sort.SliceStable(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days, nil
}

// ScheduleBatch reads the batch containing date.
func (c *Client) ScheduleBatch(ctx context.Context, date time.Time) ([]model.ScheduleDay, error) {
	key := cache.NewKey(cache.Schedule, calendar.BatchKey(date, c.opts.Granularity))
	return read[[]model.ScheduleDay](ctx, c, key)
}

// JumpTo asks the navigator for target and prefetches what the window grew
// by. The view scrolls once Navigator().Commit hands the date out.
func (c *Client) JumpTo(ctx context.Context, target time.Time) error {
	if !c.nav.RequestJump(target) {
		return nil
	}
	return c.Prefetch(ctx)
}

// Scrolled reports the visible range. Sides within edgeThreshold days of the
// range grow and their batches are prefetched.
func (c *Client) Scrolled(ctx context.Context, first, last time.Time) error {
	dirs := c.Window().NearEdge(first, last, edgeThreshold)
	if len(dirs) == 0 || !c.Window().Grow(dirs...) {
		return nil
	}
	return c.Prefetch(ctx)
}
