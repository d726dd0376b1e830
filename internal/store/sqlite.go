package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLite implements Store on a relational table. The unique primary key on
// (date, visitor_hash) provides the insert-if-absent primitive, and the
// additive upsert provides the atomic add; SQLite serializes writers, so both
// are linearizable. Expiry is handled by PurgeExpired since SQLite has no TTL.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// counterColumns whitelists the column per counter; counter names never reach
// SQL text from request data.
var counterColumns = map[Counter]string{
	PageViews:          "page_views",
	UniqueVisitors:     "unique_visitors",
	QuantumFiberClicks: "quantum_fiber_clicks",
	AmazonClicks:       "amazon_clicks",
}

func column(c Counter) (string, error) {
	col, ok := counterColumns[c]
	if !ok {
		return "", fmt.Errorf("unknown counter %q", c)
	}
	return col, nil
}

func (s *SQLite) AddDaily(ctx context.Context, date string, c Counter, delta int64) error {
	col, err := column(c)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`INSERT INTO daily_stats(date, %[1]s, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET %[1]s = %[1]s + excluded.%[1]s, updated_at = excluded.updated_at`, col)
	_, err = s.db.ExecContext(ctx, q, date, delta, time.Now().UTC())
	return err
}

func (s *SQLite) AddAllTime(ctx context.Context, c Counter, delta int64) error {
	col, err := column(c)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`INSERT INTO all_time_stats(id, %[1]s, updated_at) VALUES(1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET %[1]s = %[1]s + excluded.%[1]s, updated_at = excluded.updated_at`, col)
	_, err = s.db.ExecContext(ctx, q, delta, time.Now().UTC())
	return err
}

func (s *SQLite) MarkVisitor(ctx context.Context, date, hash, page string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO visitors(date, visitor_hash, page, seen_at, expires_at) VALUES(?, ?, ?, ?, ?)`,
		date, hash, page, now, now.Add(VisitorTTL))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVisitorSeen
	}
	return nil
}

func (s *SQLite) PutClick(ctx context.Context, ev ClickEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clicks(category, click_id, date, ts, visitor_hash, page, link_id, link_text, link_href, expires_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(ev.Category), ev.ClickID, ev.Date, ev.Timestamp.UTC(), ev.VisitorHash,
		ev.Page, ev.LinkID, ev.LinkText, ev.LinkHref, ev.Timestamp.UTC().Add(ClickTTL))
	return err
}

// Daily returns the stat row for date; a date with no traffic yet reads as all
// zeroes.
func (s *SQLite) Daily(ctx context.Context, date string) (DailyStat, error) {
	out := DailyStat{Date: date}
	var updated sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT page_views, unique_visitors, quantum_fiber_clicks, amazon_clicks, updated_at
		 FROM daily_stats WHERE date = ?`, date).
		Scan(&out.PageViews, &out.UniqueVisitors, &out.QuantumFiberClicks, &out.AmazonClicks, &updated)
	if err == sql.ErrNoRows {
		return out, nil
	}
	if err != nil {
		return DailyStat{}, err
	}
	if updated.Valid {
		out.UpdatedAt = updated.Time.UTC()
	}
	return out, nil
}

func (s *SQLite) AllTime(ctx context.Context) (AllTimeStat, error) {
	var out AllTimeStat
	var updated sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT page_views, unique_visitors, quantum_fiber_clicks, amazon_clicks, updated_at
		 FROM all_time_stats WHERE id = 1`).
		Scan(&out.PageViews, &out.UniqueVisitors, &out.QuantumFiberClicks, &out.AmazonClicks, &updated)
	if err == sql.ErrNoRows {
		return out, nil
	}
	if err != nil {
		return AllTimeStat{}, err
	}
	if updated.Valid {
		out.UpdatedAt = updated.Time.UTC()
	}
	return out, nil
}

func (s *SQLite) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	for _, q := range []string{
		`DELETE FROM visitors WHERE expires_at <= ?`,
		`DELETE FROM clicks WHERE expires_at <= ?`,
	} {
		res, err := s.db.ExecContext(ctx, q, now.UTC())
		if err != nil {
			return total, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// Migrate ensures schema exists
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS daily_stats (
			date TEXT PRIMARY KEY,
			page_views INTEGER NOT NULL DEFAULT 0,
			unique_visitors INTEGER NOT NULL DEFAULT 0,
			quantum_fiber_clicks INTEGER NOT NULL DEFAULT 0,
			amazon_clicks INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS all_time_stats (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			page_views INTEGER NOT NULL DEFAULT 0,
			unique_visitors INTEGER NOT NULL DEFAULT 0,
			quantum_fiber_clicks INTEGER NOT NULL DEFAULT 0,
			amazon_clicks INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS visitors (
			date TEXT NOT NULL,
			visitor_hash TEXT NOT NULL,
			page TEXT,
			seen_at DATETIME,
			expires_at DATETIME,
			PRIMARY KEY (date, visitor_hash)
		);`,
		`CREATE TABLE IF NOT EXISTS clicks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			category TEXT NOT NULL,
			click_id TEXT NOT NULL,
			date TEXT NOT NULL,
			ts DATETIME NOT NULL,
			visitor_hash TEXT,
			page TEXT,
			link_id TEXT,
			link_text TEXT,
			link_href TEXT,
			expires_at DATETIME
		);`,
		`CREATE INDEX IF NOT EXISTS idx_clicks_category_ts ON clicks(category, ts);`,
		`CREATE INDEX IF NOT EXISTS idx_visitors_expires ON visitors(expires_at);`,
		`CREATE INDEX IF NOT EXISTS idx_clicks_expires ON clicks(expires_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
