package sandbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/boardgame-console/pkg/ruledoc"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	store, err := NewRedisStore("redis://"+mr.Addr(), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStore_Rules(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	doc := ruledoc.Map(
		ruledoc.F("rule_id", ruledoc.String("r1")),
		ruledoc.F("zeta", ruledoc.Int(1)),
		ruledoc.F("alpha", ruledoc.Seq(ruledoc.Bool(true), ruledoc.Null())),
	)
	require.NoError(t, store.SaveRules(ctx, "r1", doc))
	assert.True(t, mr.Exists("rules:r1"))
	assert.Equal(t, documentTTL, mr.TTL("rules:r1"))

	got, err := store.LoadRules(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, doc.Equal(got), "stored document should round-trip in order")
	assert.Equal(t, "zeta", got.Fields[1].Key)
}

func TestRedisStore_RulesNotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.LoadRules(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRedisStore_CorruptRules(t *testing.T) {
	store, mr := setupTestStore(t)
	require.NoError(t, mr.Set("rules:bad", "{not json"))

	_, err := store.LoadRules(context.Background(), "bad")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestRedisStore_History(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	history, err := store.History(ctx, "r1", "Heir")
	require.NoError(t, err)
	assert.Empty(t, history)

	for round := 1; round <= 3; round++ {
		entry := ruledoc.Map(ruledoc.F("round_id", ruledoc.Int(round)))
		require.NoError(t, store.AppendHistory(ctx, "r1", "Heir", entry))
	}
	assert.True(t, mr.Exists("history:r1:Heir"))

	history, err = store.History(ctx, "r1", "Heir")
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, h := range history {
		n, ok := h.Get("round_id").AsInt()
		require.True(t, ok)
		assert.Equal(t, i+1, n)
	}

	other, err := store.History(ctx, "r1", "Jester")
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, store.ResetHistory(ctx, "r1", "Heir"))
	history, err = store.History(ctx, "r1", "Heir")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRedisStore_PingAndWait(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))
	require.NoError(t, store.WaitForConnection(ctx, 3, time.Millisecond))

	mr.Close()
	assert.Error(t, store.Ping(ctx))
	assert.Error(t, store.WaitForConnection(ctx, 2, time.Millisecond))
}

func TestNewRedisStore_BareAddress(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(mr.Addr(), testLogger())
	require.NoError(t, err)
	defer store.Close()

	assert.NoError(t, store.Ping(context.Background()))
}

func TestNewRedisStore_BadURL(t *testing.T) {
	_, err := NewRedisStore("redis://:bad:port/x", testLogger())
	assert.Error(t, err)
}
