// Package client wires the sync core together: the remote API, the session
// cache, the query fetcher, the mutation controller, the push receiver and
// the calendar window.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bassista/mealsync/internal/cache"
	"github.com/bassista/mealsync/internal/calendar"
	"github.com/bassista/mealsync/internal/logger"
	"github.com/bassista/mealsync/internal/mutation"
	"github.com/bassista/mealsync/internal/push"
	"github.com/bassista/mealsync/internal/query"
	"github.com/bassista/mealsync/internal/remote"
	"github.com/bassista/mealsync/internal/session"
)

var ErrLoggedOut = errors.New("not logged in")

type Options struct {
	APIURL      string
	PushURL     string
	StaleTime   time.Duration
	Granularity calendar.Granularity
	BackoffMin  time.Duration
	BackoffMax  time.Duration
	HTTPClient  *http.Client
	Now         func() time.Time
}

// core is everything whose lifetime is bound to one session cache.
type core struct {
	store       *cache.Store
	fetcher     *query.Fetcher
	mutations   *mutation.Mutations
	invalidator *push.Invalidator
	cancel      context.CancelFunc
}

type Client struct {
	opts     Options
	ctx      context.Context
	remote   *remote.Client
	session  *session.Session
	receiver *push.Receiver
	nav      *calendar.Navigator

	mu        sync.RWMutex
	core      *core
	onMessage []func(push.Message)
}

// New builds a client on top of sess. ctx bounds every background load; the
// push receiver only runs once Run is called.
func New(ctx context.Context, sess *session.Session, opts Options) (*Client, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	api, err := remote.New(opts.APIURL, remote.WithHTTPClient(httpClient), remote.WithTokenSource(sess.Token))
	if err != nil {
		return nil, err
	}

	c := &Client{
		opts:    opts,
		ctx:     ctx,
		remote:  api,
		session: sess,
		nav:     calendar.NewNavigator(calendar.NewWindow(opts.Now(), opts.Granularity)),
	}

	var ropts []push.ReceiverOption
	if opts.BackoffMin > 0 && opts.BackoffMax > 0 {
		ropts = append(ropts, push.WithBackoff(opts.BackoffMin, opts.BackoffMax))
	}
	c.receiver = push.NewReceiver(opts.PushURL, c.handle, ropts...)
	c.receiver.OnStatus(c.onStatus)

	sess.OnChange(c.onSession)
	if store := sess.Store(); store != nil {
		c.onSession(sess.Token(), store)
	}
	return c, nil
}

// Run keeps the push channel up until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	return c.receiver.Run(ctx)
}

func (c *Client) Remote() *remote.Client {
	return c.remote
}

func (c *Client) Session() *session.Session {
	return c.session
}

func (c *Client) PushStatus() push.Status {
	return c.receiver.Status()
}

// OnPushStatus registers fn for push channel status transitions.
func (c *Client) OnPushStatus(fn func(push.Status)) {
	c.receiver.OnStatus(fn)
}

// Login opens a remote session for name and a fresh local cache for it.
func (c *Client) Login(ctx context.Context, name string) error {
	token, err := c.remote.Login(ctx, name)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if _, err := c.session.Login(token); err != nil {
		return err
	}
	return nil
}

// Logout closes the remote session, best effort, and always tears the local
// one down.
func (c *Client) Logout(ctx context.Context) error {
	if c.session.Token() == "" {
		return ErrLoggedOut
	}
	if err := c.remote.Logout(ctx); err != nil {
		logger.WithComponent("client").Warnf("remote logout failed: %v", err)
	}
	return c.session.Logout()
}

// Mutations returns the optimistic writers of the open session.
func (c *Client) Mutations() (*mutation.Mutations, error) {
	cr, err := c.current()
	if err != nil {
		return nil, err
	}
	return cr.mutations, nil
}

// Wait blocks until the background refetches started so far are done.
func (c *Client) Wait() {
	if cr, err := c.current(); err == nil {
		cr.fetcher.Wait()
	}
}

func (c *Client) current() (*core, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.core == nil {
		return nil, ErrLoggedOut
	}
	return c.core, nil
}

func (c *Client) onSession(token string, store *cache.Store) {
	c.mu.Lock()
	old := c.core
	c.core = nil
	if store != nil {
		c.core = c.newCore(store)
	}
	c.mu.Unlock()

	if old != nil {
		old.cancel()
	}
	if token == "" {
		c.receiver.ClearToken()
		return
	}
	c.receiver.SetToken(token)
}

func (c *Client) newCore(store *cache.Store) *core {
	ctx, cancel := context.WithCancel(c.ctx)
	fetcher := query.NewFetcher(ctx, store, c.opts.StaleTime)
	c.registerLoaders(fetcher)
	controller := mutation.NewController(store, fetcher)
	return &core{
		store:       store,
		fetcher:     fetcher,
		mutations:   mutation.NewMutations(controller, c.remote, c.opts.Granularity),
		invalidator: push.NewInvalidator(store, fetcher, c.opts.Granularity),
		cancel:      cancel,
	}
}

// OnMessage registers fn for every push message, after the cache has
// reacted to it.
func (c *Client) OnMessage(fn func(push.Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = append(c.onMessage, fn)
}

func (c *Client) handle(msg push.Message) {
	c.mu.RLock()
	cr, fns := c.core, c.onMessage
	c.mu.RUnlock()
	if cr != nil {
		cr.invalidator.Handle(msg)
	}
	for _, fn := range fns {
		fn(msg)
	}
}

func (c *Client) onStatus(s push.Status) {
	if cr, err := c.current(); err == nil {
		cr.invalidator.OnStatus(s)
	}
}
