package store

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *SQLite {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// A single connection keeps the in-memory database alive and serializes
	// writers the way a file-backed deployment would.
	db.SetMaxOpenConns(1)
	require.NoError(t, Migrate(db))
	s := NewSQLite(db)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteAddDailyAccumulates(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	require.NoError(t, s.AddDaily(ctx, "2026-03-14", PageViews, 1))
	require.NoError(t, s.AddDaily(ctx, "2026-03-14", PageViews, 1))
	require.NoError(t, s.AddDaily(ctx, "2026-03-14", AmazonClicks, 1))

	st, err := s.Daily(ctx, "2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.PageViews)
	assert.Equal(t, int64(1), st.AmazonClicks)
	assert.Equal(t, int64(0), st.UniqueVisitors)
	assert.False(t, st.UpdatedAt.IsZero())
}

func TestSQLiteDailyUnknownDateReadsZero(t *testing.T) {
	s := newSQLiteStore(t)

	st, err := s.Daily(context.Background(), "1999-01-01")
	require.NoError(t, err)
	assert.Equal(t, DailyStat{Date: "1999-01-01"}, st)
}

func TestSQLiteMarkVisitorInsertIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	require.NoError(t, s.MarkVisitor(ctx, "2026-03-14", "abcd1234abcd1234", "/"))
	err := s.MarkVisitor(ctx, "2026-03-14", "abcd1234abcd1234", "/about")
	assert.ErrorIs(t, err, ErrVisitorSeen)

	// Same hash on another day is a fresh mark.
	require.NoError(t, s.MarkVisitor(ctx, "2026-03-15", "abcd1234abcd1234", "/"))
}

func TestSQLiteConcurrentAllTimeAddsLoseNothing(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	const k = 50
	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.AddAllTime(ctx, QuantumFiberClicks, 1))
		}()
	}
	wg.Wait()

	st, err := s.AllTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(k), st.QuantumFiberClicks)
}

func TestSQLitePurgeExpired(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	now := time.Now().UTC()

	require.NoError(t, s.MarkVisitor(ctx, "2026-03-14", "deadbeefdeadbeef", "/"))
	require.NoError(t, s.PutClick(ctx, ClickEvent{
		Category: CategoryAmazon, ClickID: "c1", Date: "2026-03-14", Timestamp: now,
	}))

	n, err := s.PurgeExpired(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "nothing should expire within an hour")

	n, err = s.PurgeExpired(ctx, now.Add(VisitorTTL).Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "visitor mark expires after 90 days")

	n, err = s.PurgeExpired(ctx, now.Add(ClickTTL).Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "click event expires after a year")
}
