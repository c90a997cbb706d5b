package llm

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNetworkMetricsSetup(t *testing.T) {
	m := &NetworkMetrics{
		DNS:  20 * time.Millisecond,
		TCP:  30 * time.Millisecond,
		TLS:  40 * time.Millisecond,
		TTFB: 50 * time.Millisecond,
	}
	if got, want := m.Setup(), 90*time.Millisecond; got != want {
		t.Errorf("Setup() = %v, want %v", got, want)
	}
}

func TestDoTracedReusesConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	}))
	defer srv.Close()
	client := newHTTPClient(5 * time.Second)

	var got []*NetworkMetrics
	for range 2 {
		req, err := http.NewRequest("GET", srv.URL, nil)
		if err != nil {
			t.Fatal(err)
		}
		resp, err := doTraced(client, req)
		if err != nil {
			t.Fatal(err)
		}
		if resp.Status != 200 || string(resp.Body) != "ok" {
			t.Fatalf("got %d %q", resp.Status, resp.Body)
		}
		got = append(got, resp.Metrics)
	}
	if got[0].ConnReused {
		t.Error("first request reported a reused connection")
	}
	if !got[1].ConnReused {
		t.Error("second request did not reuse the pooled connection")
	}
	if got[1].TCP != 0 {
		t.Errorf("reused connection has TCP time %v", got[1].TCP)
	}
	if got[0].Total < got[0].TTFB {
		t.Errorf("Total %v shorter than TTFB %v", got[0].Total, got[0].TTFB)
	}
}
