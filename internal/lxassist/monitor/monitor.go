// Package monitor tracks the backend's reachability. It owns the
// Connection State: probes, delivery outcomes and network transitions all
// funnel through a Monitor.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/backend"
	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/metrics"
)

const (
	DefaultProbeTimeout  = 5 * time.Second
	MaxRetryProbeTimeout = 8 * time.Second
	// RetryBackoffUnit is multiplied by the 1-based attempt number to get
	// the wait after a failed attempt.
	RetryBackoffUnit = time.Second
)

// Status is the believed reachability of the backend.
type Status int

const (
	StatusUnknown Status = iota
	StatusConnected
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// State is a copy of the Connection State.
type State struct {
	Status              Status
	ConsecutiveFailures int
	LastCheckedAt       time.Time
	LastError           string
}

// Connected reports whether the last observation was healthy.
func (s State) Connected() bool {
	return s.Status == StatusConnected
}

// HealthCheckExhaustedError is returned by ProbeWithRetry when no attempt
// succeeded.
type HealthCheckExhaustedError struct {
	Attempts int
	Last     error
}

func (e *HealthCheckExhaustedError) Error() string {
	return fmt.Sprintf("health check failed after %d attempt(s): %v", e.Attempts, e.Last)
}

func (e *HealthCheckExhaustedError) Unwrap() error {
	return e.Last
}

// ErrOffline is recorded as the last error when the host reports that the
// network went away.
var ErrOffline = errors.New("network offline")

// Prober performs one liveness call.
type Prober interface {
	Health(ctx context.Context) error
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Monitor holds the Connection State. The zero value is not usable; create
// one with New.
type Monitor struct {
	prober Prober

	mu        sync.Mutex
	state     State
	listeners []func(State)

	now     func() time.Time
	sleep   SleepFunc
	limiter *rate.Limiter
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// WithSleep overrides how backoff waits are performed.
func WithSleep(sleep SleepFunc) Option {
	return func(m *Monitor) { m.sleep = sleep }
}

// WithLimiter sets the limiter guarding probes caused by network-online
// transitions.
func WithLimiter(l *rate.Limiter) Option {
	return func(m *Monitor) { m.limiter = l }
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Monitor) { m.metrics = mt }
}

func WithLogger(l zerolog.Logger) Option {
	return func(m *Monitor) { m.log = l }
}

// New creates a monitor in the unknown state.
func New(prober Prober, opts ...Option) *Monitor {
	m := &Monitor{
		prober:  prober,
		now:     time.Now,
		sleep:   sleepContext,
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnChange registers fn to be called with the new state after every
// update. fn runs on the updating goroutine, outside the monitor's lock.
func (m *Monitor) OnChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// State returns a copy of the current Connection State.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Probe performs one health call bounded by timeout. Cancellation and
// timeout count as Unavailable.
func (m *Monitor) Probe(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := m.prober.Health(probeCtx)
	if err != nil {
		m.metrics.ObserveProbe(backend.KindOf(err).String())
		m.MarkUnhealthy(err)
		return err
	}
	m.metrics.ObserveProbe("ok")
	m.MarkHealthy()
	return nil
}

// ProbeWithRetry makes up to maxRetries+1 attempts, waiting attempt*1s
// after each failed attempt. Only timeouts and cancellations are retried;
// any other failure, including a refused connection, ends the loop. Every
// failure is reported as a *HealthCheckExhaustedError.
func (m *Monitor) ProbeWithRetry(ctx context.Context, maxRetries int, timeout time.Duration) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if timeout > MaxRetryProbeTimeout {
		timeout = MaxRetryProbeTimeout
	}

	var last error
	attempts := maxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		last = m.Probe(ctx, timeout)
		if last == nil {
			return nil
		}

		m.log.Debug().Err(last).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Msg("health probe failed")

		if backend.KindOf(last) != backend.KindTimeout || attempt == attempts {
			return &HealthCheckExhaustedError{Attempts: attempt, Last: last}
		}
		if err := m.sleep(ctx, time.Duration(attempt)*RetryBackoffUnit); err != nil {
			return &HealthCheckExhaustedError{Attempts: attempt, Last: last}
		}
	}
	return &HealthCheckExhaustedError{Attempts: attempts, Last: last}
}

// NetworkChanged reacts to a host network transition. Going offline marks
// the backend unavailable without a network call; coming online re-probes,
// unless the limiter refuses because transitions are arriving too fast.
func (m *Monitor) NetworkChanged(ctx context.Context, online bool, timeout time.Duration) error {
	if !online {
		m.SetOffline()
		return nil
	}
	if !m.limiter.Allow() {
		m.log.Debug().Msg("online transition ignored: rate limited")
		return nil
	}
	return m.Probe(ctx, timeout)
}

// MarkHealthy records a successful exchange with the backend.
func (m *Monitor) MarkHealthy() {
	m.update(func(s *State) {
		s.Status = StatusConnected
		s.ConsecutiveFailures = 0
		s.LastError = ""
	})
}

// MarkUnhealthy records a failed exchange with the backend.
func (m *Monitor) MarkUnhealthy(cause error) {
	m.update(func(s *State) {
		s.Status = StatusUnavailable
		s.ConsecutiveFailures++
		if cause != nil {
			s.LastError = cause.Error()
		}
	})
}

// SetOffline marks the backend unavailable because the host lost its
// network.
func (m *Monitor) SetOffline() {
	m.MarkUnhealthy(ErrOffline)
}

// Reset returns to the unknown, unchecked state. Used when the endpoint
// changes.
func (m *Monitor) Reset() {
	m.mu.Lock()
	m.state = State{}
	st := m.state
	listeners := m.listeners
	m.mu.Unlock()

	m.metrics.SetConnection(metrics.ConnectionUnknown)
	for _, fn := range listeners {
		fn(st)
	}
}

func (m *Monitor) update(fn func(*State)) {
	m.mu.Lock()
	fn(&m.state)
	m.state.LastCheckedAt = m.now()
	st := m.state
	listeners := m.listeners
	m.mu.Unlock()

	if st.Status == StatusConnected {
		m.metrics.SetConnection(metrics.ConnectionConnected)
	} else {
		m.metrics.SetConnection(metrics.ConnectionUnavailable)
	}
	for _, fn := range listeners {
		fn(st)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
