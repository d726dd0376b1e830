// Package core classifies incoming analytics events and applies them to the
// store. All coordination is delegated to the store's atomic primitives; the
// service itself keeps no per-request state.
package core

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mossylife/pulse/internal/metrics"
	"github.com/mossylife/pulse/internal/store"
	"github.com/mossylife/pulse/internal/visitor"
)

// Event discriminator values accepted on the wire.
const (
	EventPageView          = "pageView"
	EventQuantumFiberClick = "quantumFiberClick"
	EventAmazonClick       = "amazonClick"
)

// Event is a decoded request body. Everything besides the discriminator is
// optional free-form metadata supplied by the producer.
type Event struct {
	Event    string `json:"event"`
	Page     string `json:"page,omitempty"`
	Referrer string `json:"referrer,omitempty"`
	LinkID   string `json:"linkId,omitempty"`
	LinkText string `json:"linkText,omitempty"`
	LinkHref string `json:"linkHref,omitempty"`
}

// ErrInvalidEventType signals an unrecognized or missing event discriminator.
// Nothing is written to the store in that case.
var ErrInvalidEventType = errors.New("invalid event type")

type Service struct {
	store store.Store
	now   func() time.Time
}

func NewService(s store.Store) *Service {
	return &Service{store: s, now: time.Now}
}

// Track dispatches ev to exactly one aggregation path. visitorHash is derived
// from transport metadata by the caller; the body cannot influence it.
func (s *Service) Track(ctx context.Context, ev Event, visitorHash string) error {
	switch ev.Event {
	case EventPageView:
		return s.trackPageView(ctx, ev, visitorHash)
	case EventQuantumFiberClick:
		return s.trackClick(ctx, store.CategoryQuantumFiber, ev, visitorHash)
	case EventAmazonClick:
		return s.trackClick(ctx, store.CategoryAmazon, ev, visitorHash)
	default:
		return ErrInvalidEventType
	}
}

// trackPageView bumps the daily impression counter and, for visitors not yet
// seen today, the unique counter. The conditional insert is the sole source of
// truth for "new today": the unique increment happens only after it succeeds,
// and a duplicate mark is the expected outcome of a repeat visit.
func (s *Service) trackPageView(ctx context.Context, ev Event, visitorHash string) error {
	date := visitor.DateKey(s.now())

	if err := s.store.AddDaily(ctx, date, store.PageViews, 1); err != nil {
		return err
	}

	err := s.store.MarkVisitor(ctx, date, visitorHash, pageOr(ev.Page))
	if errors.Is(err, store.ErrVisitorSeen) {
		return nil
	}
	if err != nil {
		return err
	}
	metrics.UniqueVisitors.Inc()
	return s.store.AddDaily(ctx, date, store.UniqueVisitors, 1)
}

// trackClick appends one immutable click event and bumps the daily and
// all-time category counters. Clicks are never deduplicated.
func (s *Service) trackClick(ctx context.Context, cat store.Category, ev Event, visitorHash string) error {
	now := s.now().UTC()
	click := store.ClickEvent{
		Category:    cat,
		ClickID:     uuid.NewString(),
		Date:        visitor.DateKey(now),
		Timestamp:   now,
		VisitorHash: orUnknown(visitorHash),
		Page:        pageOr(ev.Page),
		LinkID:      orUnknown(ev.LinkID),
		LinkText:    ev.LinkText,
		LinkHref:    ev.LinkHref,
	}
	if err := s.store.PutClick(ctx, click); err != nil {
		return err
	}
	if err := s.store.AddDaily(ctx, click.Date, cat.ClickCounter(), 1); err != nil {
		return err
	}
	if err := s.store.AddAllTime(ctx, cat.ClickCounter(), 1); err != nil {
		return err
	}
	log.Debug().Str("category", string(cat)).Str("page", click.Page).Msg("click recorded")
	return nil
}

func pageOr(page string) string {
	if page == "" {
		return "/"
	}
	return page
}

func orUnknown(v string) string {
	if v == "" {
		return visitor.Unknown
	}
	return v
}
