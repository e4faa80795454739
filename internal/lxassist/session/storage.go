package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/store"
)

// ErrNoSession is returned when no identity is persisted. Callers must send
// the user to authentication.
var ErrNoSession = errors.New("no active session")

// Context holds the current session and persists it under
// store.KeyIdentity. Authentication itself happens elsewhere; Context only
// records its result.
type Context struct {
	mu      sync.RWMutex
	store   store.Store
	current *Session
	log     zerolog.Logger
}

// NewContext creates a session context backed by st.
func NewContext(st store.Store, log zerolog.Logger) *Context {
	return &Context{store: st, log: log}
}

// Load reads the persisted identity. A missing or unreadable record yields
// ErrNoSession; an unreadable record is also cleared.
func (c *Context) Load(ctx context.Context) (*Session, error) {
	data, err := c.store.Get(ctx, store.KeyIdentity)
	if errors.Is(err, store.ErrNotFound) {
		c.setCurrent(nil)
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	s, err := decodeSession(data)
	if err != nil {
		c.log.Warn().Err(err).Msg("discarding corrupt identity record")
		if clearErr := c.store.Clear(ctx, store.KeyIdentity); clearErr != nil {
			return nil, fmt.Errorf("failed to clear corrupt session: %w", clearErr)
		}
		c.setCurrent(nil)
		return nil, ErrNoSession
	}

	c.setCurrent(s)
	return s, nil
}

// Save persists s as the current session.
func (c *Context) Save(ctx context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("cannot save a session without an id")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}
	if err := c.store.Set(ctx, store.KeyIdentity, string(data)); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	c.setCurrent(s)
	return nil
}

// Login records a freshly authenticated identity.
func (c *Context) Login(ctx context.Context, id, username string) (*Session, error) {
	s, err := NewSession(id, username)
	if err != nil {
		return nil, err
	}
	if err := c.Save(ctx, s); err != nil {
		return nil, err
	}
	c.log.Info().Str("user_id", s.ID).Msg("session started")
	return s, nil
}

// Logout clears the persisted identity.
func (c *Context) Logout(ctx context.Context) error {
	return c.clear(ctx, "logout")
}

// Invalidate clears the identity because the backend no longer recognizes
// it. The effect is the same as Logout.
func (c *Context) Invalidate(ctx context.Context) error {
	return c.clear(ctx, "invalidated")
}

// Current returns the loaded session, or nil.
func (c *Context) Current() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *Context) clear(ctx context.Context, reason string) error {
	if err := c.store.Clear(ctx, store.KeyIdentity); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	prev := c.Current()
	c.setCurrent(nil)

	ev := c.log.Info().Str("reason", reason)
	if prev != nil {
		ev = ev.Str("user_id", prev.ID)
	}
	ev.Msg("session cleared")
	return nil
}

func (c *Context) setCurrent(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = s
}
