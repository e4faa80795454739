package engine

import (
	"context"
	"fmt"
)

// Reconnect probes the backend with retries. A *monitor.HealthCheckExhaustedError
// means the backend is still unreachable; the Connection State says so too.
func (e *Engine) Reconnect(ctx context.Context) error {
	return e.monitor.ProbeWithRetry(ctx, e.timeouts.MaxProbeRetries, e.timeouts.ProbeRetry)
}

// ChangeEndpoint validates and persists a new backend base URL, resets the
// Connection State and probes the new endpoint once. It returns the
// normalized URL; a failed probe shows up in the Connection State only.
func (e *Engine) ChangeEndpoint(ctx context.Context, raw string) (string, error) {
	u, err := e.prefs.SetBaseURL(ctx, raw)
	if err != nil {
		return "", err
	}
	e.switchEndpoint(ctx, u)
	return u, nil
}

// ResetEndpoint drops the persisted override and returns to the configured
// default endpoint.
func (e *Engine) ResetEndpoint(ctx context.Context) (string, error) {
	u, err := e.prefs.ResetBaseURL(ctx)
	if err != nil {
		return "", err
	}
	e.switchEndpoint(ctx, u)
	return u, nil
}

func (e *Engine) switchEndpoint(ctx context.Context, u string) {
	e.client.SetBaseURL(u)
	e.monitor.Reset()
	e.log.Info().Str("base_url", u).Msg("endpoint changed")

	if err := e.monitor.Probe(ctx, e.timeouts.Probe); err != nil {
		e.log.Debug().Err(err).Msg("probe of new endpoint failed")
	}
}

// Logout clears the persisted identity and the timeline, then requests
// NavigateAuth.
func (e *Engine) Logout(ctx context.Context) error {
	if err := e.sessions.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	e.mu.Lock()
	e.session = nil
	e.timeline = nil
	e.conversations = nil
	e.currentConvID = ""
	e.started = false
	e.mu.Unlock()

	e.metrics.ObserveSessionEnd("logout")
	e.publish()
	e.navigate(NavigateAuth)
	return nil
}

// NetworkChanged reacts to the host network going offline or online.
func (e *Engine) NetworkChanged(ctx context.Context, online bool) error {
	return e.monitor.NetworkChanged(ctx, online, e.timeouts.Probe)
}

// LeaveChat requests NavigateLanding.
func (e *Engine) LeaveChat() {
	e.navigate(NavigateLanding)
}
