// Package beacon is the producer side of the pipeline: a client that reports
// page views and outbound-link clicks to a collector, best effort. Sends run
// on detached goroutines with the result discarded; a send never blocks the
// caller, never retries, and never queues for later delivery.
package beacon

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const sendTimeout = 5 * time.Second

type event struct {
	Event    string `json:"event"`
	Page     string `json:"page,omitempty"`
	Referrer string `json:"referrer,omitempty"`
	LinkID   string `json:"linkId,omitempty"`
	LinkText string `json:"linkText,omitempty"`
	LinkHref string `json:"linkHref,omitempty"`
}

type Client struct {
	endpoint string
	http     *http.Client
	inflight chan struct{}
}

// New returns a client posting to endpoint (the collector's /track URL).
func New(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: sendTimeout},
		// Cap on concurrent in-flight sends; beyond it events are dropped
		// rather than blocking the caller.
		inflight: make(chan struct{}, 64),
	}
}

// PageView reports one page impression. An empty referrer is reported as
// "direct".
func (c *Client) PageView(page, referrer string) {
	if referrer == "" {
		referrer = "direct"
	}
	c.send(event{Event: "pageView", Page: page, Referrer: referrer})
}

// QuantumFiberClick reports a click on a primary call-to-action link.
func (c *Client) QuantumFiberClick(page, linkID, linkText, linkHref string) {
	if linkID == "" {
		linkID = "unknown"
	}
	c.send(event{Event: "quantumFiberClick", Page: page, LinkID: linkID, LinkText: linkText, LinkHref: linkHref})
}

// AmazonClick reports a click on an affiliate link.
func (c *Client) AmazonClick(page, linkText, linkHref string) {
	c.send(event{Event: "amazonClick", Page: page, LinkText: linkText, LinkHref: linkHref})
}

// IsAffiliateLink reports whether href points at the affiliate domain,
// mirroring the selector the browser instrumentation uses.
func IsAffiliateLink(href string) bool {
	return strings.Contains(strings.ToLower(href), "amazon.com")
}

// send fires the report on a detached goroutine. Failures are debug-logged
// and otherwise discarded.
func (c *Client) send(ev event) {
	select {
	case c.inflight <- struct{}{}:
	default:
		// Drop rather than block or queue.
		return
	}
	go func() {
		defer func() { <-c.inflight }()

		body, err := json.Marshal(ev)
		if err != nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.http.Do(req)
		if err != nil {
			log.Debug().Err(err).Str("event", ev.Event).Msg("beacon send failed")
			return
		}
		resp.Body.Close()
	}()
}
