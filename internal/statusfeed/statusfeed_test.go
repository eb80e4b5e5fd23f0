package statusfeed

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/breeze-rmm/mirror/internal/metrics"
)

type fakeSessions struct {
	count int
	snaps map[string]metrics.Snapshot
}

func (f *fakeSessions) Count() int                            { return f.count }
func (f *fakeSessions) Snapshot() map[string]metrics.Snapshot { return f.snaps }

func TestServeHTTPReturnsJSONSnapshot(t *testing.T) {
	src := &fakeSessions{
		count: 2,
		snaps: map[string]metrics.Snapshot{
			"viewer-1": {FramesSent: 10},
			"viewer-2": {FramesSent: 20},
		},
	}
	feed := New(src, nil, nil)

	req := httptest.NewRequest("GET", "/status", nil)
	rec := httptest.NewRecorder()
	feed.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status code = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q, want application/json", ct)
	}

	var got Status
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got.SessionCount != 2 {
		t.Fatalf("SessionCount = %d, want 2", got.SessionCount)
	}
	if len(got.Sessions) != 2 {
		t.Fatalf("len(Sessions) = %d, want 2", len(got.Sessions))
	}
	if got.Host != nil {
		t.Fatalf("Host = %+v, want nil when no HostSampler was given", got.Host)
	}
}

func TestServeHTTPOmitsUpgradeHeaderPathForPlainRequest(t *testing.T) {
	src := &fakeSessions{snaps: map[string]metrics.Snapshot{}}
	feed := New(src, metrics.NewHostSampler(), nil)

	req := httptest.NewRequest("GET", "/status", nil)
	rec := httptest.NewRecorder()
	feed.ServeHTTP(rec, req)

	var got Status
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got.Host == nil {
		t.Fatalf("Host = nil, want a sample since a HostSampler was provided")
	}
}
