// Package history rebuilds the chat timeline from the conversation records
// the backend has persisted for a user.
package history

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist"
	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/backend"
	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/metrics"
)

const (
	DefaultFetchTimeout = 10 * time.Second
	// GreetingAge is how far before load time the fallback greeting is
	// stamped.
	GreetingAge = 5 * time.Minute
)

// Source tells where a loaded timeline came from.
type Source string

const (
	SourceServer   Source = "server"
	SourceGreeting Source = "greeting"
)

// Fetcher retrieves persisted conversation records.
type Fetcher interface {
	Conversations(ctx context.Context, userID string) ([]backend.Conversation, error)
}

// Prober is the best-effort connectivity check run before fetching.
type Prober interface {
	Probe(ctx context.Context, timeout time.Duration) error
}

// Result is a loaded timeline.
type Result struct {
	Messages []lxassist.Message
	// Records holds the fetched records, newest first.
	Records []backend.Conversation
	// CurrentConversationID is the id of the most recent record, empty
	// when the greeting fallback was used.
	CurrentConversationID string
	Source                Source
	// Err is the fetch failure that caused a greeting fallback, if any.
	Err error
}

// Loader loads history. Configure fields before the first Load.
type Loader struct {
	Fetcher      Fetcher
	Prober       Prober // optional
	ProbeTimeout time.Duration
	FetchTimeout time.Duration
	Now          func() time.Time
	Metrics      *metrics.Metrics
	Log          zerolog.Logger
}

// NewLoader creates a loader with default timeouts.
func NewLoader(f Fetcher, p Prober, log zerolog.Logger) *Loader {
	return &Loader{
		Fetcher:      f,
		Prober:       p,
		FetchTimeout: DefaultFetchTimeout,
		Now:          time.Now,
		Log:          log,
	}
}

// Load never fails: any fetch problem, and an empty history, degrade to a
// single assistant greeting. Records are ordered newest first; each one
// expands to its question then its answer.
func (l *Loader) Load(ctx context.Context, userID string) Result {
	if l.Prober != nil {
		if err := l.Prober.Probe(ctx, l.ProbeTimeout); err != nil {
			l.Log.Debug().Err(err).Msg("pre-load probe failed")
		}
	}

	timeout := l.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	records, err := l.Fetcher.Conversations(fetchCtx, userID)
	if err != nil {
		l.Log.Warn().Err(err).
			Str("user_id", userID).
			Stringer("kind", backend.KindOf(err)).
			Msg("history fetch failed, showing greeting")
		return l.greeting(err)
	}
	if len(records) == 0 {
		return l.greeting(nil)
	}

	sorted := Sort(records)
	res := Result{
		Messages: expandSorted(sorted),
		Records:  sorted,
		Source:   SourceServer,
	}
	res.CurrentConversationID = res.Messages[0].ConversationID
	l.Metrics.ObserveHistoryLoad(string(SourceServer))
	l.Log.Debug().Int("records", len(records)).Msg("history loaded")
	return res
}

// Greeting returns the fallback timeline for load time now.
func Greeting(now time.Time) []lxassist.Message {
	return []lxassist.Message{
		lxassist.NewMessage(lxassist.SenderAssistant, lxassist.DefaultGreeting, now.Add(-GreetingAge)),
	}
}

// Sort returns a copy of records ordered newest first. Records with equal
// timestamps keep their relative order.
func Sort(records []backend.Conversation) []backend.Conversation {
	sorted := make([]backend.Conversation, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp.Time)
	})
	return sorted
}

// expandSorted turns each record into a user entry followed by an
// assistant entry, keeping the order of sorted.
func expandSorted(sorted []backend.Conversation) []lxassist.Message {
	out := make([]lxassist.Message, 0, 2*len(sorted))
	for _, rec := range sorted {
		at := rec.Timestamp.Time
		convID := rec.ID.String()

		q := lxassist.NewMessage(lxassist.SenderUser, rec.Question, at)
		q.ConversationID = convID
		a := lxassist.NewMessage(lxassist.SenderAssistant, rec.Answer, at)
		a.ConversationID = convID

		out = append(out, q, a)
	}
	return out
}

func (l *Loader) greeting(cause error) Result {
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	l.Metrics.ObserveHistoryLoad(string(SourceGreeting))
	return Result{
		Messages: Greeting(now()),
		Source:   SourceGreeting,
		Err:      cause,
	}
}
