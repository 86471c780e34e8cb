// Package session owns the durable client state: the session token and the
// persisted cache snapshot. The local cache lives exactly as long as the
// session does.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bassista/mealsync/internal/cache"
	"github.com/bassista/mealsync/internal/logger"
)

const (
	TokenKey = "token"
	CacheKey = "cache"
)

var ErrNoToken = errors.New("empty session token")

// Listener is told about every token change; "" means logged out.
type Listener func(token string, store *cache.Store)

type Session struct {
	mu        sync.Mutex
	kv        *FileStore
	token     string
	store     *cache.Store
	listeners []Listener
}

func New(kv *FileStore) *Session {
	return &Session{kv: kv}
}

func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Store returns the cache of the open session, nil when logged out.
func (s *Session) Store() *cache.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store
}

func (s *Session) OnChange(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Restore resumes the persisted session after a cold start. Cached entries
// come back stale; an unreadable snapshot is dropped rather than failing the
// restore. It reports false when no session was persisted.
func (s *Session) Restore() (*cache.Store, bool, error) {
	token := s.kv.GetString(TokenKey)
	if token == "" {
		return nil, false, nil
	}

	var entries []cache.Entry
	if _, err := s.kv.Get(CacheKey, &entries); err != nil {
		logger.WithComponent("session").Warnf("dropping unreadable cache snapshot: %v", err)
		entries = nil
	}
	store := cache.NewStore()
	if err := store.Hydrate(entries); err != nil {
		return nil, false, fmt.Errorf("hydrate cache: %w", err)
	}
	store.ClearDirty()

	s.swap(token, store)
	logger.WithComponent("session").Infof("restored session with %d cached entries", len(entries))
	return store, true, nil
}

// Login records token and opens a fresh cache for it.
func (s *Session) Login(token string) (*cache.Store, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	if err := s.kv.Delete(CacheKey); err != nil {
		return nil, fmt.Errorf("drop cache snapshot: %w", err)
	}
	if err := s.kv.Set(TokenKey, token); err != nil {
		return nil, fmt.Errorf("save token: %w", err)
	}
	store := cache.NewStore()
	s.swap(token, store)
	return store, nil
}

// Logout forgets the token and the cache snapshot and closes the cache.
func (s *Session) Logout() error {
	s.swap("", nil)
	if err := s.kv.Delete(TokenKey, CacheKey); err != nil {
		return fmt.Errorf("clear session state: %w", err)
	}
	return nil
}

// Sync reconciles with the state file after it changed outside this process.
// A removed token logs the session out; a different token opens a fresh
// session for it.
func (s *Session) Sync() {
	token := s.kv.GetString(TokenKey)
	if token == s.Token() {
		return
	}
	log := logger.WithComponent("session")
	if token == "" {
		log.Info("token removed from state file, closing session")
		s.swap("", nil)
		return
	}
	log.Info("token replaced in state file, opening new session")
	s.swap(token, cache.NewStore())
}

// Persist saves the cache snapshot when the cache changed since the last save.
func (s *Session) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil || !s.store.IsDirty() {
		return nil
	}
	entries := s.store.Snapshot()
	if err := s.kv.Set(CacheKey, entries); err != nil {
		return fmt.Errorf("save cache snapshot: %w", err)
	}
	s.store.ClearDirty()
	return nil
}

func (s *Session) swap(token string, store *cache.Store) {
	s.mu.Lock()
	old := s.store
	s.token = token
	s.store = store
	listeners := append([]Listener{}, s.listeners...)
	s.mu.Unlock()

	if old != nil && old != store {
		old.Close()
	}
	for _, fn := range listeners {
		fn(token, store)
	}
}
