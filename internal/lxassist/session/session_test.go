package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/store"
)

func TestNewSession(t *testing.T) {
	s, err := NewSession("  550e8400-e29b ", " ayoub ")
	require.NoError(t, err)
	assert.Equal(t, "550e8400-e29b", s.ID)
	assert.Equal(t, "ayoub", s.Username)
	assert.Equal(t, "550e8400", s.GetShortID())
	assert.Equal(t, "ayoub", s.GetDisplayName())

	_, err = NewSession(" ", "x")
	assert.Error(t, err)
}

func TestGetDisplayName(t *testing.T) {
	tests := []struct {
		name string
		s    Session
		want string
	}{
		{name: "username", s: Session{ID: "12345678-aaaa", Username: "dev"}, want: "dev"},
		{name: "long id", s: Session{ID: "12345678-aaaa"}, want: "12345678"},
		{name: "short id", s: Session{ID: "42"}, want: "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.s.GetDisplayName())
		})
	}
}

func TestLoadWithoutIdentity(t *testing.T) {
	c := NewContext(store.NewMemoryStore(), zerolog.Nop())
	_, err := c.Load(context.Background())
	assert.True(t, errors.Is(err, ErrNoSession))
	assert.Nil(t, c.Current())
}

func TestLoginLoadLogout(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewFileStore(filepath.Join(t.TempDir(), "state.toml"))
	require.NoError(t, err)

	c := NewContext(st, zerolog.Nop())
	s, err := c.Login(ctx, "u1", "alice")
	require.NoError(t, err)
	assert.Equal(t, s, c.Current())

	reloaded := NewContext(st, zerolog.Nop())
	got, err := reloaded.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, "alice", got.Username)

	require.NoError(t, reloaded.Logout(ctx))
	assert.Nil(t, reloaded.Current())
	_, err = reloaded.Load(ctx)
	assert.True(t, errors.Is(err, ErrNoSession))

	// Logging out twice is harmless.
	require.NoError(t, reloaded.Logout(ctx))
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	c := NewContext(st, zerolog.Nop())
	_, err := c.Login(ctx, "u1", "alice")
	require.NoError(t, err)

	require.NoError(t, c.Invalidate(ctx))
	_, err = st.Get(ctx, store.KeyIdentity)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestLoadForeignRecords(t *testing.T) {
	tests := []struct {
		name       string
		record     string
		wantID     string
		wantUser   string
		wantAttrs  map[string]string
		wantAbsent bool
	}{
		{name: "string id", record: `{"id":"abc","username":"bob"}`, wantID: "abc", wantUser: "bob"},
		{name: "numeric id", record: `{"id":17,"username":"bob"}`, wantID: "17", wantUser: "bob"},
		{name: "user_id alias", record: `{"user_id":"u9"}`, wantID: "u9"},
		{name: "extra fields", record: `{"id":"abc","email":"b@example.com","age":3}`, wantID: "abc", wantAttrs: map[string]string{"email": "b@example.com"}},
		{name: "no id", record: `{"username":"bob"}`, wantAbsent: true},
		{name: "corrupt", record: `{not json`, wantAbsent: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			st := store.NewMemoryStore()
			require.NoError(t, st.Set(ctx, store.KeyIdentity, tt.record))
			c := NewContext(st, zerolog.Nop())

			s, err := c.Load(ctx)
			if tt.wantAbsent {
				assert.True(t, errors.Is(err, ErrNoSession))
				_, getErr := st.Get(ctx, store.KeyIdentity)
				assert.True(t, errors.Is(getErr, store.ErrNotFound), "corrupt record should be cleared")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, s.ID)
			assert.Equal(t, tt.wantUser, s.Username)
			assert.Equal(t, tt.wantAttrs, s.Attributes)
		})
	}
}
