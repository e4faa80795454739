package history

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/backendtest"
	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist"
	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/backend"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func record(id string, question string, offset time.Duration) backend.Conversation {
	return backend.Conversation{
		ID:        backend.ID(id),
		Question:  question,
		Answer:    "answer to " + question,
		Timestamp: backend.Timestamp{Time: base.Add(offset)},
	}
}

type fetcherFunc func(ctx context.Context, userID string) ([]backend.Conversation, error)

func (f fetcherFunc) Conversations(ctx context.Context, userID string) ([]backend.Conversation, error) {
	return f(ctx, userID)
}

type countingProber struct {
	calls int
	err   error
}

func (p *countingProber) Probe(context.Context, time.Duration) error {
	p.calls++
	return p.err
}

func newTestLoader(f Fetcher, p Prober) *Loader {
	l := NewLoader(f, p, zerolog.Nop())
	l.Now = func() time.Time { return base }
	return l
}

func TestLoadEmptyYieldsGreeting(t *testing.T) {
	l := newTestLoader(fetcherFunc(func(context.Context, string) ([]backend.Conversation, error) {
		return nil, nil
	}), nil)

	res := l.Load(context.Background(), "u1")
	require.Len(t, res.Messages, 1)
	msg := res.Messages[0]
	assert.Equal(t, lxassist.SenderAssistant, msg.Sender)
	assert.Equal(t, lxassist.DefaultGreeting, msg.Content)
	assert.Equal(t, base.Add(-5*time.Minute), msg.Timestamp)
	assert.Equal(t, SourceGreeting, res.Source)
	assert.Empty(t, res.CurrentConversationID)
	assert.NoError(t, res.Err)
}

func TestLoadFetchFailureYieldsGreeting(t *testing.T) {
	boom := &backend.Error{Kind: backend.KindHTTP, Status: 500}
	prober := &countingProber{err: errors.New("down")}
	l := newTestLoader(fetcherFunc(func(context.Context, string) ([]backend.Conversation, error) {
		return nil, boom
	}), prober)

	res := l.Load(context.Background(), "u1")
	require.Len(t, res.Messages, 1)
	assert.Equal(t, lxassist.SenderAssistant, res.Messages[0].Sender)
	assert.Equal(t, SourceGreeting, res.Source)
	assert.Same(t, boom, res.Err)
	assert.Equal(t, 1, prober.calls, "probe failure must not abort the load")
}

func TestLoadExpandsRecords(t *testing.T) {
	records := []backend.Conversation{
		record("old", "q-old", -2*time.Hour),
		record("new", "q-new", 0),
		record("mid", "q-mid", -1*time.Hour),
	}
	l := newTestLoader(fetcherFunc(func(_ context.Context, userID string) ([]backend.Conversation, error) {
		assert.Equal(t, "u1", userID)
		return records, nil
	}), &countingProber{})

	res := l.Load(context.Background(), "u1")
	require.Len(t, res.Messages, 2*len(records))
	assert.Equal(t, SourceServer, res.Source)
	assert.Equal(t, "new", res.CurrentConversationID)

	wantOrder := []string{"new", "mid", "old"}
	for i, id := range wantOrder {
		q, a := res.Messages[2*i], res.Messages[2*i+1]
		assert.Equal(t, lxassist.SenderUser, q.Sender)
		assert.Equal(t, lxassist.SenderAssistant, a.Sender)
		assert.Equal(t, id, q.ConversationID)
		assert.Equal(t, id, a.ConversationID)
		assert.Equal(t, "q-"+id, q.Content)
		assert.Equal(t, "answer to q-"+id, a.Content)
		assert.Equal(t, q.Timestamp, a.Timestamp)
		assert.NotEqual(t, q.ID, a.ID)
	}

	// The caller's slice is left in its original order.
	assert.Equal(t, backend.ID("old"), records[0].ID)
}

func TestExpandKeepsTiesStable(t *testing.T) {
	records := []backend.Conversation{
		record("a", "qa", 0),
		record("b", "qb", time.Hour),
		record("c", "qc", 0),
		record("d", "qd", 0),
	}

	msgs := expandSorted(Sort(records))
	var got []string
	for i := 0; i < len(msgs); i += 2 {
		got = append(got, msgs[i].ConversationID)
	}
	assert.Equal(t, []string{"b", "a", "c", "d"}, got)
}

func TestLoadTimesOut(t *testing.T) {
	l := newTestLoader(fetcherFunc(func(ctx context.Context, _ string) ([]backend.Conversation, error) {
		<-ctx.Done()
		return nil, &backend.Error{Kind: backend.KindTimeout, Cause: ctx.Err()}
	}), nil)
	l.FetchTimeout = 20 * time.Millisecond

	done := make(chan Result, 1)
	go func() { done <- l.Load(context.Background(), "u1") }()

	select {
	case res := <-done:
		assert.Equal(t, SourceGreeting, res.Source)
		assert.Equal(t, backend.KindTimeout, backend.KindOf(res.Err))
	case <-time.After(5 * time.Second):
		t.Fatal("Load did not honor its fetch timeout")
	}
}

func TestLoadAgainstServer(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	srv.SetConversations("u1", backendtest.Response{Raw: `[
		{"id": 1, "question": "first", "answer": "a1", "timestamp": "2024-05-01T10:00:00"},
		{"id": 2, "question": "second", "answer": "a2", "timestamp": "2024-05-01T11:00:00"}
	]`})
	srv.SetConversations("u2", backendtest.Response{Status: http.StatusInternalServerError})

	client := backend.NewClient(srv.URL)
	l := newTestLoader(client, nil)

	res := l.Load(context.Background(), "u1")
	require.Len(t, res.Messages, 4)
	assert.Equal(t, "second", res.Messages[0].Content)
	assert.Equal(t, "a2", res.Messages[1].Content)
	assert.Equal(t, "first", res.Messages[2].Content)
	assert.Equal(t, "2", res.CurrentConversationID)

	res = l.Load(context.Background(), "u2")
	require.Len(t, res.Messages, 1)
	assert.Equal(t, SourceGreeting, res.Source)
}

func TestFind(t *testing.T) {
	records := []backend.Conversation{
		record("abc123", "q1", 0),
		record("abd456", "q2", time.Hour),
		record("xyz", "q3", -time.Hour),
	}

	tests := []struct {
		name      string
		ref       string
		wantID    backend.ID
		wantErr   bool
		ambiguous bool
	}{
		{name: "exact", ref: "xyz", wantID: "xyz"},
		{name: "prefix", ref: "abc", wantID: "abc123"},
		{name: "latest", ref: "latest", wantID: "abd456"},
		{name: "ambiguous", ref: "ab", wantErr: true, ambiguous: true},
		{name: "missing", ref: "nope", wantErr: true},
		{name: "empty", ref: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Find(records, tt.ref)
			if tt.wantErr {
				require.Error(t, err)
				var amb *AmbiguousIDError
				assert.Equal(t, tt.ambiguous, errors.As(err, &amb))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}

	_, err := Find(nil, "latest")
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "short", Summary("short", 10))
	assert.Equal(t, "a b c", Summary("a\n b\tc", 10))
	assert.Equal(t, "abcdefg...", Summary("abcdefghijklmnop", 10))
}
