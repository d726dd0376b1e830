// Package store defines the collector's persistence contract: an atomic
// key-value store with two primitives, atomic numeric add and insert-if-absent.
// The conditional insert is the sole deduplication mechanism; backends must
// implement it as a linearizable operation.
package store

import (
	"context"
	"errors"
	"time"
)

// Counter names one of the additive stat fields. Counters only ever increase.
type Counter string

const (
	PageViews          Counter = "pageViews"
	UniqueVisitors     Counter = "uniqueVisitors"
	QuantumFiberClicks Counter = "quantumFiberClicks"
	AmazonClicks       Counter = "amazonClicks"
)

// Category partitions outbound-link click events.
type Category string

const (
	CategoryQuantumFiber Category = "QUANTUM_FIBER"
	CategoryAmazon       Category = "AMAZON"
)

// ClickCounter maps a click category to its stat counter.
func (c Category) ClickCounter() Counter {
	if c == CategoryAmazon {
		return AmazonClicks
	}
	return QuantumFiberClicks
}

// Retention windows for expiring records.
const (
	VisitorTTL = 90 * 24 * time.Hour
	ClickTTL   = 365 * 24 * time.Hour
)

type DailyStat struct {
	Date               string    `json:"date"`
	PageViews          int64     `json:"pageViews"`
	UniqueVisitors     int64     `json:"uniqueVisitors"`
	QuantumFiberClicks int64     `json:"quantumFiberClicks"`
	AmazonClicks       int64     `json:"amazonClicks"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type AllTimeStat struct {
	PageViews          int64     `json:"pageViews"`
	UniqueVisitors     int64     `json:"uniqueVisitors"`
	QuantumFiberClicks int64     `json:"quantumFiberClicks"`
	AmazonClicks       int64     `json:"amazonClicks"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// ClickEvent is an immutable, append-only record of one outbound-link click.
type ClickEvent struct {
	Category    Category
	ClickID     string
	Date        string
	Timestamp   time.Time
	VisitorHash string
	Page        string
	LinkID      string
	LinkText    string
	LinkHref    string
}

type Store interface {
	// AddDaily atomically adds delta to one counter of the daily stat row for
	// date, creating the row if absent and refreshing its updatedAt.
	AddDaily(ctx context.Context, date string, c Counter, delta int64) error

	// AddAllTime atomically adds delta to one counter of the lifetime stat row.
	AddAllTime(ctx context.Context, c Counter, delta int64) error

	// MarkVisitor records that hash was seen on date. Insert-if-absent: a
	// second call for the same (date, hash) returns ErrVisitorSeen and leaves
	// the store untouched. Marks expire after VisitorTTL.
	MarkVisitor(ctx context.Context, date, hash, page string) error

	// PutClick appends one click event. Events expire after ClickTTL.
	PutClick(ctx context.Context, ev ClickEvent) error

	Daily(ctx context.Context, date string) (DailyStat, error)
	AllTime(ctx context.Context) (AllTimeStat, error)

	// PurgeExpired reclaims expired visitor marks and click events on backends
	// without native TTL support. Returns the number of rows removed.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)

	Close() error
}

// ErrVisitorSeen is the expected outcome of a duplicate MarkVisitor call; the
// caller swallows it, any other error is fatal to the request.
var ErrVisitorSeen = errors.New("visitor already marked for date")

var ErrNotFound = errors.New("not found")
