package telemetry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/libdesk/internal/feed"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := New()

	r.Notified()
	r.Notified()
	r.RefreshStarted()
	if got := testutil.ToFloat64(r.inFlight); got != 1 {
		t.Fatalf("in flight = %v, want 1", got)
	}
	r.RefreshFinished(20*time.Millisecond, nil)
	r.RefreshFinished(5*time.Millisecond, errors.New("boom"))

	r.FeedEvent(feed.Event{Collection: feed.Transactions})
	r.FeedStatus(feed.Live)
	r.Request("GET", "/books", 200, time.Millisecond)
	r.Request("POST", "/transactions/:id/return", 0, time.Millisecond)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"notifications", testutil.ToFloat64(r.notifications), 2},
		{"ok refreshes", testutil.ToFloat64(r.refreshes.WithLabelValues("ok")), 1},
		{"failed refreshes", testutil.ToFloat64(r.refreshes.WithLabelValues("error")), 1},
		{"in flight", testutil.ToFloat64(r.inFlight), 0},
		{"transaction events", testutil.ToFloat64(r.feedEvents.WithLabelValues("transactions")), 1},
		{"feed live", testutil.ToFloat64(r.feedLive), 1},
		{"book requests", testutil.ToFloat64(r.requests.WithLabelValues("GET", "/books", "200")), 1},
		{"unanswered requests", testutil.ToFloat64(r.requests.WithLabelValues("POST", "/transactions/:id/return", "none")), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	r.FeedStatus(feed.Offline)
	if got := testutil.ToFloat64(r.feedLive); got != 0 {
		t.Fatalf("feed live after offline = %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.Notified()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "libdesk_refresh_notifications_total 1") {
		t.Fatalf("metrics output missing counter:\n%s", rec.Body.String())
	}
}
