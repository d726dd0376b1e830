package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisAddDailyAccumulates(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t)

	require.NoError(t, s.AddDaily(ctx, "2026-03-14", PageViews, 1))
	require.NoError(t, s.AddDaily(ctx, "2026-03-14", PageViews, 1))
	require.NoError(t, s.AddDaily(ctx, "2026-03-14", UniqueVisitors, 1))

	st, err := s.Daily(ctx, "2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.PageViews)
	assert.Equal(t, int64(1), st.UniqueVisitors)
	assert.Equal(t, "2026-03-14", st.Date)
	assert.False(t, st.UpdatedAt.IsZero())
}

func TestRedisAddAllTime(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t)

	require.NoError(t, s.AddAllTime(ctx, AmazonClicks, 1))
	require.NoError(t, s.AddAllTime(ctx, AmazonClicks, 1))

	st, err := s.AllTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.AmazonClicks)
}

func TestRedisMarkVisitorInsertIfAbsent(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	require.NoError(t, s.MarkVisitor(ctx, "2026-03-14", "abcd1234abcd1234", "/"))
	err := s.MarkVisitor(ctx, "2026-03-14", "abcd1234abcd1234", "/")
	assert.ErrorIs(t, err, ErrVisitorSeen)

	ttl := mr.TTL(visitorKey("2026-03-14", "abcd1234abcd1234"))
	assert.Equal(t, VisitorTTL, ttl)
}

func TestRedisPutClickSetsTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	ts := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	ev := ClickEvent{
		Category:    CategoryQuantumFiber,
		ClickID:     "click-1",
		Date:        "2026-03-14",
		Timestamp:   ts,
		VisitorHash: "abcd1234abcd1234",
		Page:        "/pricing",
		LinkID:      "cta-hero",
		LinkText:    "Sign up",
	}
	require.NoError(t, s.PutClick(ctx, ev))

	key := "clicks:QUANTUM_FIBER:" + ts.Format(time.RFC3339Nano) + "#click-1"
	require.True(t, mr.Exists(key))
	assert.Equal(t, ClickTTL, mr.TTL(key))

	got := mr.HGet(key, "linkId")
	assert.Equal(t, "cta-hero", got)
}

func TestRedisPurgeExpiredIsNoop(t *testing.T) {
	s, _ := newRedisStore(t)

	n, err := s.PurgeExpired(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
