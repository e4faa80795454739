// Package engine is the session and message-delivery engine. It owns the
// chat timeline, the Connection State (through a monitor.Monitor) and the
// endpoint configuration. Presentation layers read Snapshots and issue
// commands; they never mutate engine state directly.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist"
	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/backend"
	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/config"
	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/history"
	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/metrics"
	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/monitor"
	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/session"
)

var (
	ErrEmptyQuestion      = errors.New("question cannot be empty")
	ErrSubmissionInFlight = errors.New("a question is already being answered")
	ErrSubmitDisabled     = errors.New("backend is unavailable; reconnect before asking")
	ErrRetryInFlight      = errors.New("this message is already being retried")
	ErrMessageNotFound    = errors.New("message not found")
	ErrNotRetryable       = errors.New("only error entries can be retried")
)

// Navigation is a request to the external router.
type Navigation int

const (
	// NavigateAuth asks for the authentication flow.
	NavigateAuth Navigation = iota + 1
	// NavigateLanding asks for the landing screen.
	NavigateLanding
)

func (n Navigation) String() string {
	switch n {
	case NavigateAuth:
		return "auth"
	case NavigateLanding:
		return "landing"
	default:
		return "none"
	}
}

// Timeouts bounds every network call the engine makes.
type Timeouts struct {
	Probe           time.Duration
	ProbeRetry      time.Duration
	MaxProbeRetries int
	Ask             time.Duration
	History         time.Duration
}

// DefaultTimeouts returns the standard bounds.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Probe:           monitor.DefaultProbeTimeout,
		ProbeRetry:      monitor.MaxRetryProbeTimeout,
		MaxProbeRetries: 2,
		Ask:             30 * time.Second,
		History:         history.DefaultFetchTimeout,
	}
}

// TimeoutsFromConfig maps configuration onto engine timeouts.
func TimeoutsFromConfig(c *config.Config) Timeouts {
	return Timeouts{
		Probe:           c.ProbeTimeout,
		ProbeRetry:      c.ProbeRetryTimeout,
		MaxProbeRetries: c.ProbeMaxRetries,
		Ask:             c.AskTimeout,
		History:         c.HistoryTimeout,
	}
}

// Snapshot is a read-only copy of the engine's observable state.
type Snapshot struct {
	Timeline              []lxassist.Message
	Connection            monitor.State
	Session               *session.Session
	BaseURL               string
	CurrentConversationID string
	Conversations         []backend.Conversation
	Submitting            bool
	Retrying              []string // ids of error entries being retried
	Started               bool
}

// CanSubmit reports whether the input affordance should be enabled.
func (s Snapshot) CanSubmit() bool {
	return s.Session != nil && !s.Submitting && s.Connection.Status != monitor.StatusUnavailable
}

// Engine is safe for concurrent use.
type Engine struct {
	client   *backend.Client
	sessions *session.Context
	prefs    *config.Preferences
	monitor  *monitor.Monitor
	loader   *history.Loader

	timeouts Timeouts
	now      func() time.Time
	navigate func(Navigation)
	metrics  *metrics.Metrics
	log      zerolog.Logger

	mu            sync.Mutex
	started       bool
	timeline      []lxassist.Message
	session       *session.Session
	currentConvID string
	conversations []backend.Conversation
	submitting    bool
	retrying      map[string]bool

	subMu   sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int

	bg sync.WaitGroup
}

// Deps are the collaborators an Engine is built on.
type Deps struct {
	Client      *backend.Client
	Sessions    *session.Context
	Preferences *config.Preferences
}

type options struct {
	timeouts Timeouts
	now      func() time.Time
	sleep    monitor.SleepFunc
	limiter  *rate.Limiter
	navigate func(Navigation)
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

// Option configures an Engine.
type Option func(*options)

func WithTimeouts(t Timeouts) Option {
	return func(o *options) { o.timeouts = t }
}

// WithClock overrides the time source used for entry timestamps and the
// Connection State.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithSleep overrides how probe backoff waits are performed.
func WithSleep(sleep monitor.SleepFunc) Option {
	return func(o *options) { o.sleep = sleep }
}

// WithOnlineLimiter limits re-probes caused by network-online transitions.
func WithOnlineLimiter(l *rate.Limiter) Option {
	return func(o *options) { o.limiter = l }
}

// WithNavigator receives navigation requests. fn is called without engine
// locks held.
func WithNavigator(fn func(Navigation)) Option {
	return func(o *options) { o.navigate = fn }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// New wires an engine. The client is pointed at the persisted endpoint.
func New(deps Deps, opts ...Option) *Engine {
	o := options{
		timeouts: DefaultTimeouts(),
		now:      time.Now,
		navigate: func(Navigation) {},
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	monOpts := []monitor.Option{
		monitor.WithClock(o.now),
		monitor.WithMetrics(o.metrics),
		monitor.WithLogger(o.log),
	}
	if o.sleep != nil {
		monOpts = append(monOpts, monitor.WithSleep(o.sleep))
	}
	if o.limiter != nil {
		monOpts = append(monOpts, monitor.WithLimiter(o.limiter))
	}

	deps.Client.SetBaseURL(deps.Preferences.BaseURL())

	e := &Engine{
		client:   deps.Client,
		sessions: deps.Sessions,
		prefs:    deps.Preferences,
		monitor:  monitor.New(deps.Client, monOpts...),
		timeouts: o.timeouts,
		now:      o.now,
		navigate: o.navigate,
		metrics:  o.metrics,
		log:      o.log,
		retrying: make(map[string]bool),
		subs:     make(map[int]chan Snapshot),
	}

	loader := history.NewLoader(deps.Client, retryProber{e}, o.log)
	loader.ProbeTimeout = o.timeouts.ProbeRetry
	loader.FetchTimeout = o.timeouts.History
	loader.Now = o.now
	loader.Metrics = o.metrics
	e.loader = loader

	e.monitor.OnChange(func(monitor.State) { e.publish() })
	return e
}

// retryProber adapts the monitor's retrying probe to the loader.
type retryProber struct{ e *Engine }

func (p retryProber) Probe(ctx context.Context, timeout time.Duration) error {
	return p.e.monitor.ProbeWithRetry(ctx, p.e.timeouts.MaxProbeRetries, timeout)
}

// Start loads the session, probes the backend and loads history. Without a
// persisted identity it requests NavigateAuth and returns
// session.ErrNoSession. A failed probe or history fetch is not an error.
func (e *Engine) Start(ctx context.Context) error {
	s, err := e.sessions.Load(ctx)
	if errors.Is(err, session.ErrNoSession) {
		e.navigate(NavigateAuth)
		return err
	}
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	e.mu.Lock()
	e.session = s
	e.mu.Unlock()

	res := e.loader.Load(ctx, s.ID)

	e.mu.Lock()
	e.timeline = res.Messages
	e.currentConvID = res.CurrentConversationID
	e.conversations = res.Records
	e.started = true
	e.mu.Unlock()

	e.log.Info().
		Str("user_id", s.ID).
		Str("source", string(res.Source)).
		Int("entries", len(res.Messages)).
		Stringer("connection", e.monitor.State().Status).
		Msg("engine started")

	e.publish()
	return nil
}

// Close waits for background work (conversation list refreshes) to finish.
func (e *Engine) Close() {
	e.bg.Wait()
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Subscribe returns a channel that receives a snapshot after every state
// change, and a function that ends the subscription. Slow readers only see
// the latest snapshot.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	e.mu.Lock()
	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	ch <- e.snapshotLocked()
	e.subMu.Unlock()
	e.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.subMu.Lock()
			delete(e.subs, id)
			e.subMu.Unlock()
			close(ch)
		})
	}
}

// Monitor exposes the connectivity monitor for read access.
func (e *Engine) Monitor() *monitor.Monitor {
	return e.monitor
}

func (e *Engine) snapshotLocked() Snapshot {
	snap := Snapshot{
		Timeline:              append([]lxassist.Message(nil), e.timeline...),
		Connection:            e.monitor.State(),
		BaseURL:               e.client.BaseURL(),
		CurrentConversationID: e.currentConvID,
		Conversations:         append([]backend.Conversation(nil), e.conversations...),
		Submitting:            e.submitting,
		Started:               e.started,
	}
	if e.session != nil {
		s := *e.session
		snap.Session = &s
	}
	for id := range e.retrying {
		snap.Retrying = append(snap.Retrying, id)
	}
	return snap
}

// publish sends the current snapshot to every subscriber. The engine lock
// is held while sending so subscribers never observe snapshots out of
// order; sends never block.
func (e *Engine) publish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := e.snapshotLocked()

	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (e *Engine) indexOf(id string) int {
	for i, m := range e.timeline {
		if m.ID == id {
			return i
		}
	}
	return -1
}
