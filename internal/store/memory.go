package store

import (
	"context"
	"sync"
	"time"
)

// Memory is a mutex-guarded in-process Store for tests and single-node runs.
// The lock makes the add and insert-if-absent operations linearizable, which
// is all the aggregation logic requires of a backend.
type Memory struct {
	mu       sync.Mutex
	daily    map[string]*DailyStat
	allTime  AllTimeStat
	visitors map[string]time.Time // (date:hash) -> expiry
	clicks   []ClickEvent
}

func NewMemory() *Memory {
	return &Memory{
		daily:    make(map[string]*DailyStat),
		visitors: make(map[string]time.Time),
	}
}

func (m *Memory) AddDaily(ctx context.Context, date string, c Counter, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.daily[date]
	if !ok {
		st = &DailyStat{Date: date}
		m.daily[date] = st
	}
	addCounter(&st.PageViews, &st.UniqueVisitors, &st.QuantumFiberClicks, &st.AmazonClicks, c, delta)
	st.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) AddAllTime(ctx context.Context, c Counter, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	addCounter(&m.allTime.PageViews, &m.allTime.UniqueVisitors, &m.allTime.QuantumFiberClicks, &m.allTime.AmazonClicks, c, delta)
	m.allTime.UpdatedAt = time.Now().UTC()
	return nil
}

func addCounter(pv, uv, qf, am *int64, c Counter, delta int64) {
	switch c {
	case PageViews:
		*pv += delta
	case UniqueVisitors:
		*uv += delta
	case QuantumFiberClicks:
		*qf += delta
	case AmazonClicks:
		*am += delta
	}
}

func (m *Memory) MarkVisitor(ctx context.Context, date, hash, page string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := date + ":" + hash
	if _, ok := m.visitors[key]; ok {
		return ErrVisitorSeen
	}
	m.visitors[key] = time.Now().UTC().Add(VisitorTTL)
	return nil
}

func (m *Memory) PutClick(ctx context.Context, ev ClickEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clicks = append(m.clicks, ev)
	return nil
}

func (m *Memory) Daily(ctx context.Context, date string) (DailyStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st, ok := m.daily[date]; ok {
		return *st, nil
	}
	return DailyStat{Date: date}, nil
}

func (m *Memory) AllTime(ctx context.Context) (AllTimeStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.allTime, nil
}

func (m *Memory) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for key, exp := range m.visitors {
		if !exp.After(now) {
			delete(m.visitors, key)
			removed++
		}
	}
	kept := m.clicks[:0]
	for _, ev := range m.clicks {
		if ev.Timestamp.Add(ClickTTL).After(now) {
			kept = append(kept, ev)
		} else {
			removed++
		}
	}
	m.clicks = kept
	return removed, nil
}

// Clicks returns a snapshot of stored click events, for tests.
func (m *Memory) Clicks() []ClickEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ClickEvent, len(m.clicks))
	copy(out, m.clicks)
	return out
}

func (m *Memory) Close() error { return nil }
