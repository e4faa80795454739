package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist"
	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/backend"
	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/history"
	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/monitor"
	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/session"
)

// Causes shown in error entries.
const (
	CauseTimeout       = "request timed out"
	CauseNetwork       = "network error"
	CauseInvalidFormat = "invalid response format"
)

// Delivery is the outcome of a submission or retry.
type Delivery struct {
	// Question is the user entry appended by Submit. Empty for retries.
	Question lxassist.Message
	// Reply is the assistant or error entry that now sits in the timeline,
	// or nil when the session was invalidated.
	Reply *lxassist.Message
	// Err is the classified failure, nil on success.
	Err error
	// SessionInvalidated is set when the backend no longer knows the user.
	SessionInvalidated bool
}

// Delivered reports whether the backend answered.
func (d *Delivery) Delivered() bool {
	return d.Err == nil && d.Reply != nil
}

// Submit appends a user entry for question, asks the backend and appends
// the answer or an error entry. The returned error is set only when the
// submission was rejected before anything was appended; a failed exchange
// is reported through Delivery.Err.
func (e *Engine) Submit(ctx context.Context, question string) (*Delivery, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	q, err := lxassist.NormalizeQuestion(question)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	switch {
	case e.session == nil:
		e.mu.Unlock()
		return nil, session.ErrNoSession
	case e.submitting:
		e.mu.Unlock()
		return nil, ErrSubmissionInFlight
	case e.monitor.State().Status == monitor.StatusUnavailable:
		e.mu.Unlock()
		return nil, ErrSubmitDisabled
	}
	userID := e.session.ID
	userMsg := lxassist.NewMessage(lxassist.SenderUser, q, e.now())
	e.timeline = append(e.timeline, userMsg)
	e.submitting = true
	e.mu.Unlock()
	e.publish()

	start := time.Now()
	resp, askErr := e.ask(ctx, q, userID)
	d := &Delivery{Question: userMsg, Err: askErr}

	e.mu.Lock()
	e.submitting = false
	switch {
	case askErr == nil:
		reply := lxassist.NewMessage(lxassist.SenderAssistant, resp.Answer, e.now())
		reply.ConversationID = resp.ConversationID
		e.timeline = append(e.timeline, reply)
		e.currentConvID = resp.ConversationID
		d.Reply = &reply
	case backend.IsUserNotFound(askErr):
		d.SessionInvalidated = true
	default:
		entry := errorEntry(q, askErr, e.now())
		e.timeline = append(e.timeline, entry)
		d.Reply = &entry
	}
	e.mu.Unlock()

	e.metrics.ObserveDelivery(outcome(askErr), time.Since(start))
	e.settle(ctx, askErr, userID)
	e.logDelivery("delivery", d, userMsg.ID)
	return d, nil
}

// Retry re-asks the question of the error entry with the given id. On
// success the error entry is replaced in place by the answer; on failure
// it is left unchanged. The returned error is set only when the retry
// could not be started.
func (e *Engine) Retry(ctx context.Context, messageID string) (*Delivery, error) {
	e.mu.Lock()
	idx := e.indexOf(messageID)
	switch {
	case idx < 0:
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrMessageNotFound, messageID)
	case !e.timeline[idx].IsError():
		e.mu.Unlock()
		return nil, ErrNotRetryable
	case e.retrying[messageID]:
		e.mu.Unlock()
		return nil, ErrRetryInFlight
	case e.session == nil:
		e.mu.Unlock()
		return nil, session.ErrNoSession
	}
	q := e.timeline[idx].OriginalQuestion
	userID := e.session.ID
	e.retrying[messageID] = true
	e.mu.Unlock()
	e.publish()

	resp, askErr := e.ask(ctx, q, userID)
	d := &Delivery{Err: askErr}

	e.mu.Lock()
	delete(e.retrying, messageID)
	switch {
	case askErr == nil:
		reply := lxassist.NewMessage(lxassist.SenderAssistant, resp.Answer, e.now())
		reply.ConversationID = resp.ConversationID
		// The timeline may have been reset while the request was out.
		if i := e.indexOf(messageID); i >= 0 {
			e.timeline[i] = reply
		}
		e.currentConvID = resp.ConversationID
		d.Reply = &reply
	case backend.IsUserNotFound(askErr):
		d.SessionInvalidated = true
	default:
		if i := e.indexOf(messageID); i >= 0 {
			entry := e.timeline[i]
			d.Reply = &entry
		}
	}
	e.mu.Unlock()

	e.metrics.ObserveRetry(outcome(askErr))
	e.settle(ctx, askErr, userID)
	e.logDelivery("retry", d, messageID)
	return d, nil
}

// RetryQuestion retries the first error entry whose original question is
// question.
func (e *Engine) RetryQuestion(ctx context.Context, question string) (*Delivery, error) {
	e.mu.Lock()
	id := ""
	for _, m := range e.timeline {
		if m.IsError() && m.OriginalQuestion == question {
			id = m.ID
			break
		}
	}
	e.mu.Unlock()

	if id == "" {
		return nil, fmt.Errorf("%w: no failed question %q", ErrMessageNotFound, question)
	}
	return e.Retry(ctx, id)
}

func (e *Engine) ask(ctx context.Context, question, userID string) (*backend.AskResponse, error) {
	askCtx, cancel := context.WithTimeout(ctx, e.timeouts.Ask)
	defer cancel()
	return e.client.Ask(askCtx, question, userID)
}

// settle applies the side effects of an exchange outcome: Connection State,
// forced session invalidation and the conversation list refresh.
func (e *Engine) settle(ctx context.Context, err error, userID string) {
	switch {
	case err == nil:
		e.monitor.MarkHealthy()
		e.refreshConversations(ctx, userID)
	case backend.IsUserNotFound(err):
		e.invalidateSession(ctx)
	case backend.IsTransient(err):
		e.monitor.MarkUnhealthy(err)
	default:
		e.publish()
	}
}

func (e *Engine) invalidateSession(ctx context.Context) {
	if err := e.sessions.Invalidate(context.WithoutCancel(ctx)); err != nil {
		e.log.Error().Err(err).Msg("failed to clear invalidated session")
	}

	e.mu.Lock()
	e.session = nil
	e.mu.Unlock()

	e.metrics.ObserveSessionEnd("invalidated")
	e.log.Warn().Msg("session invalidated by backend")
	e.publish()
	e.navigate(NavigateAuth)
}

// refreshConversations reloads the conversation list in the background.
// Failures are logged and leave the previous list in place.
func (e *Engine) refreshConversations(ctx context.Context, userID string) {
	e.bg.Add(1)
	go func() {
		defer e.bg.Done()

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeouts.History)
		defer cancel()

		records, err := e.client.Conversations(fetchCtx, userID)
		if err != nil {
			e.log.Debug().Err(err).Msg("conversation list refresh failed")
			return
		}

		e.mu.Lock()
		if e.session == nil || e.session.ID != userID {
			e.mu.Unlock()
			return
		}
		e.conversations = history.Sort(records)
		e.mu.Unlock()
		e.publish()
	}()
}

func (e *Engine) logDelivery(op string, d *Delivery, messageID string) {
	if d.Err == nil {
		e.log.Debug().Str("op", op).Str("message_id", messageID).Msg("delivered")
		return
	}
	e.log.Info().Err(d.Err).
		Str("op", op).
		Str("message_id", messageID).
		Stringer("kind", backend.KindOf(d.Err)).
		Bool("session_invalidated", d.SessionInvalidated).
		Msg("delivery errored")
}

// errorEntry builds the timeline entry for a failed exchange.
func errorEntry(question string, err error, at time.Time) lxassist.Message {
	m := lxassist.NewMessage(lxassist.SenderError, Cause(err), at)
	m.OriginalQuestion = question
	m.ErrorKind = backend.KindOf(err).String()
	return m
}

// Cause returns the human-readable cause shown for a failed exchange.
func Cause(err error) string {
	var be *backend.Error
	if !errors.As(err, &be) {
		return err.Error()
	}
	switch be.Kind {
	case backend.KindTimeout:
		return CauseTimeout
	case backend.KindNetwork:
		return CauseNetwork
	case backend.KindHTTP:
		if be.Detail != "" {
			return be.Detail
		}
		return fmt.Sprintf("server error (%d)", be.Status)
	case backend.KindParse:
		return CauseInvalidFormat
	default:
		return be.Error()
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "delivered"
	case backend.IsUserNotFound(err):
		return "session_invalid"
	default:
		return backend.KindOf(err).String()
	}
}
