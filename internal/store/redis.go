package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements Store on a redis server. HINCRBY is the atomic add, SET NX
// the insert-if-absent, and expiring records use native TTLs, so PurgeExpired
// is a no-op here.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func dailyKey(date string) string { return "stats:date:" + date }

func visitorKey(date, hash string) string { return "visitor:" + date + ":" + hash }

const allTimeKey = "stats:alltime"

func (r *Redis) AddDaily(ctx context.Context, date string, c Counter, delta int64) error {
	pipe := r.rdb.TxPipeline()
	pipe.HIncrBy(ctx, dailyKey(date), string(c), delta)
	pipe.HSet(ctx, dailyKey(date), "date", date, "updatedAt", time.Now().UTC().Format(time.RFC3339Nano))
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Redis) AddAllTime(ctx context.Context, c Counter, delta int64) error {
	pipe := r.rdb.TxPipeline()
	pipe.HIncrBy(ctx, allTimeKey, string(c), delta)
	pipe.HSet(ctx, allTimeKey, "updatedAt", time.Now().UTC().Format(time.RFC3339Nano))
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Redis) MarkVisitor(ctx context.Context, date, hash, page string) error {
	ok, err := r.rdb.SetNX(ctx, visitorKey(date, hash), page, VisitorTTL).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrVisitorSeen
	}
	return nil
}

func (r *Redis) PutClick(ctx context.Context, ev ClickEvent) error {
	key := fmt.Sprintf("clicks:%s:%s#%s", ev.Category, ev.Timestamp.UTC().Format(time.RFC3339Nano), ev.ClickID)
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, key,
		"date", ev.Date,
		"timestamp", ev.Timestamp.UTC().Format(time.RFC3339Nano),
		"visitorHash", ev.VisitorHash,
		"page", ev.Page,
		"linkId", ev.LinkID,
		"linkText", ev.LinkText,
		"linkHref", ev.LinkHref,
	)
	pipe.Expire(ctx, key, ClickTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Redis) Daily(ctx context.Context, date string) (DailyStat, error) {
	fields, err := r.rdb.HGetAll(ctx, dailyKey(date)).Result()
	if err != nil {
		return DailyStat{}, err
	}
	out := DailyStat{Date: date}
	out.PageViews = hashInt(fields, PageViews)
	out.UniqueVisitors = hashInt(fields, UniqueVisitors)
	out.QuantumFiberClicks = hashInt(fields, QuantumFiberClicks)
	out.AmazonClicks = hashInt(fields, AmazonClicks)
	if ts, ok := fields["updatedAt"]; ok {
		out.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	}
	return out, nil
}

func (r *Redis) AllTime(ctx context.Context) (AllTimeStat, error) {
	fields, err := r.rdb.HGetAll(ctx, allTimeKey).Result()
	if err != nil {
		return AllTimeStat{}, err
	}
	var out AllTimeStat
	out.PageViews = hashInt(fields, PageViews)
	out.UniqueVisitors = hashInt(fields, UniqueVisitors)
	out.QuantumFiberClicks = hashInt(fields, QuantumFiberClicks)
	out.AmazonClicks = hashInt(fields, AmazonClicks)
	if ts, ok := fields["updatedAt"]; ok {
		out.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	}
	return out, nil
}

func hashInt(fields map[string]string, c Counter) int64 {
	n, _ := strconv.ParseInt(fields[string(c)], 10, 64)
	return n
}

// PurgeExpired is a no-op: redis reclaims expired keys itself.
func (r *Redis) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
