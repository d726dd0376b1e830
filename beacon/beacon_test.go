package beacon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T) (*httptest.Server, chan event) {
	t.Helper()
	got := make(chan event, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev event
		if err := json.NewDecoder(r.Body).Decode(&ev); err == nil {
			got <- ev
		}
		w.Write([]byte(`{"success":true}`))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func waitEvent(t *testing.T, got chan event) event {
	t.Helper()
	select {
	case ev := <-got:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
		return event{}
	}
}

func TestPageViewDelivered(t *testing.T) {
	srv, got := collect(t)
	c := New(srv.URL + "/track")

	c.PageView("/posts/hello", "https://news.ycombinator.com")

	ev := waitEvent(t, got)
	assert.Equal(t, "pageView", ev.Event)
	assert.Equal(t, "/posts/hello", ev.Page)
	assert.Equal(t, "https://news.ycombinator.com", ev.Referrer)
}

func TestPageViewEmptyReferrerReportsDirect(t *testing.T) {
	srv, got := collect(t)
	c := New(srv.URL + "/track")

	c.PageView("/", "")

	assert.Equal(t, "direct", waitEvent(t, got).Referrer)
}

func TestClickEventsCarryLinkMetadata(t *testing.T) {
	srv, got := collect(t)
	c := New(srv.URL + "/track")

	c.QuantumFiberClick("/pricing", "", "Sign up", "https://example.com/signup")
	ev := waitEvent(t, got)
	assert.Equal(t, "quantumFiberClick", ev.Event)
	assert.Equal(t, "unknown", ev.LinkID)
	assert.Equal(t, "Sign up", ev.LinkText)

	c.AmazonClick("/gear", "Tent", "https://amazon.com/dp/B00X")
	ev = waitEvent(t, got)
	assert.Equal(t, "amazonClick", ev.Event)
	assert.Equal(t, "https://amazon.com/dp/B00X", ev.LinkHref)
}

func TestSendNeverBlocksOrFailsOnDeadEndpoint(t *testing.T) {
	// Port 1 is closed; every send must error out quietly on its goroutine.
	c := New("http://127.0.0.1:1/track")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			c.PageView("/", "")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("send blocked the caller")
	}
}

func TestIsAffiliateLink(t *testing.T) {
	require.True(t, IsAffiliateLink("https://www.amazon.com/dp/B00X"))
	require.True(t, IsAffiliateLink("https://AMAZON.com/gp/product/1"))
	require.False(t, IsAffiliateLink("https://example.com/amazonia"))
}
