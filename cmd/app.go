package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/logging"
	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/backend"
	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/config"
	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/engine"
	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/metrics"
	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/session"
	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/store"
)

// app bundles the collaborators every command needs.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	store    store.Store
	prefs    *config.Preferences
	sessions *session.Context
	client   *backend.Client
	metrics  *metrics.Metrics
}

// loadApp reads the configuration and opens the state store.
func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	log := logging.New(logging.Options{Level: level, Format: cfg.LogFormat})

	st, err := store.Open(ctx, store.Options{
		Kind:     store.Kind(cfg.Store),
		Path:     cfg.StorePath,
		RedisURL: cfg.RedisURL,
	})
	if err != nil {
		return nil, fmt.Errorf("error opening %s store: %w", cfg.Store, err)
	}

	prefs, err := config.LoadPreferences(ctx, st, cfg.BaseURL)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("error loading preferences: %w", err)
	}

	return &app{
		cfg:      cfg,
		log:      log,
		store:    st,
		prefs:    prefs,
		sessions: session.NewContext(st, log),
		client:   backend.NewClient(prefs.BaseURL(), backend.WithLogger(log)),
		metrics:  metrics.New(),
	}, nil
}

// newEngine wires a delivery engine over the app's collaborators.
func (a *app) newEngine(opts ...engine.Option) *engine.Engine {
	base := []engine.Option{
		engine.WithTimeouts(engine.TimeoutsFromConfig(a.cfg)),
		engine.WithMetrics(a.metrics),
		engine.WithLogger(a.log),
	}
	return engine.New(engine.Deps{
		Client:      a.client,
		Sessions:    a.sessions,
		Preferences: a.prefs,
	}, append(base, opts...)...)
}

func (a *app) Close() error {
	return a.store.Close()
}
