package config

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/store"
)

// Preferences is the process-wide, persisted client configuration: the
// backend endpoint and the theme preference. It is created once with
// LoadPreferences and changed only through its setters.
type Preferences struct {
	mu         sync.RWMutex
	store      store.Store
	defaultURL string
	baseURL    string
	overridden bool
	darkMode   bool
}

// LoadPreferences reads persisted preferences from st. defaultURL is used
// when no endpoint has been persisted; an invalid persisted endpoint is
// ignored in favor of the default.
func LoadPreferences(ctx context.Context, st store.Store, defaultURL string) (*Preferences, error) {
	def, err := NormalizeBaseURL(defaultURL)
	if err != nil {
		return nil, fmt.Errorf("default base URL: %w", err)
	}

	p := &Preferences{store: st, defaultURL: def, baseURL: def}

	persisted, err := st.Get(ctx, store.KeyBaseURL)
	switch {
	case err == nil:
		if u, err := NormalizeBaseURL(persisted); err == nil {
			p.baseURL = u
			p.overridden = true
		}
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("reading persisted base URL: %w", err)
	}

	dark, err := st.Get(ctx, store.KeyDarkMode)
	switch {
	case err == nil:
		p.darkMode, _ = strconv.ParseBool(dark)
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("reading theme preference: %w", err)
	}

	return p, nil
}

// BaseURL returns the effective backend base URL.
func (p *Preferences) BaseURL() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.baseURL
}

// DefaultBaseURL returns the configured (non-persisted) base URL.
func (p *Preferences) DefaultBaseURL() string {
	return p.defaultURL
}

// IsOverridden reports whether the endpoint comes from a persisted override.
func (p *Preferences) IsOverridden() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.overridden
}

// SetBaseURL validates and persists a new backend base URL.
func (p *Preferences) SetBaseURL(ctx context.Context, raw string) (string, error) {
	u, err := NormalizeBaseURL(raw)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.store.Set(ctx, store.KeyBaseURL, u); err != nil {
		return "", fmt.Errorf("persisting base URL: %w", err)
	}
	p.baseURL = u
	p.overridden = true
	return u, nil
}

// ResetBaseURL drops the persisted override and returns to the default.
func (p *Preferences) ResetBaseURL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.store.Clear(ctx, store.KeyBaseURL); err != nil {
		return "", fmt.Errorf("clearing base URL: %w", err)
	}
	p.baseURL = p.defaultURL
	p.overridden = false
	return p.baseURL, nil
}

// DarkMode returns the persisted theme preference.
func (p *Preferences) DarkMode() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.darkMode
}

// SetDarkMode persists the theme preference.
func (p *Preferences) SetDarkMode(ctx context.Context, enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.store.Set(ctx, store.KeyDarkMode, strconv.FormatBool(enabled)); err != nil {
		return fmt.Errorf("persisting theme preference: %w", err)
	}
	p.darkMode = enabled
	return nil
}
