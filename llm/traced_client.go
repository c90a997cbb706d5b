package llm

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"
)

// NetworkMetrics splits one HTTP exchange into phases. Phases that did not
// happen, such as DNS and TCP on a reused connection, stay zero.
type NetworkMetrics struct {
	DNS        time.Duration
	TCP        time.Duration
	TLS        time.Duration
	TTFB       time.Duration
	Download   time.Duration
	Total      time.Duration
	ConnReused bool
}

// Setup is the connection cost paid before the request went out.
func (m *NetworkMetrics) Setup() time.Duration { return m.DNS + m.TCP + m.TLS }

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        4,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     60 * time.Second,
			ForceAttemptHTTP2:   true,
		},
	}
}

// phaseClock records httptrace callbacks for one request. Dialing may run
// several connects in parallel, so every callback takes the lock.
type phaseClock struct {
	mu        sync.Mutex
	dnsStart  time.Time
	dialStart time.Time
	tlsStart  time.Time
	wrote     time.Time
	firstByte time.Time
	m         NetworkMetrics
}

func (c *phaseClock) mark(f func(now time.Time)) {
	c.mu.Lock()
	f(time.Now())
	c.mu.Unlock()
}

func (c *phaseClock) attach(ctx context.Context) context.Context {
	return httptrace.WithClientTrace(ctx, &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) { c.mark(func(t time.Time) { c.dnsStart = t }) },
		DNSDone:  func(httptrace.DNSDoneInfo) { c.mark(func(t time.Time) { c.m.DNS = t.Sub(c.dnsStart) }) },
		ConnectStart: func(string, string) {
			c.mark(func(t time.Time) { c.dialStart = t })
		},
		ConnectDone: func(string, string, error) {
			c.mark(func(t time.Time) { c.m.TCP = t.Sub(c.dialStart) })
		},
		TLSHandshakeStart: func() { c.mark(func(t time.Time) { c.tlsStart = t }) },
		TLSHandshakeDone: func(tls.ConnectionState, error) {
			c.mark(func(t time.Time) { c.m.TLS = t.Sub(c.tlsStart) })
		},
		GotConn: func(info httptrace.GotConnInfo) {
			c.mark(func(time.Time) { c.m.ConnReused = info.Reused })
		},
		WroteRequest: func(httptrace.WroteRequestInfo) { c.mark(func(t time.Time) { c.wrote = t }) },
		GotFirstResponseByte: func() {
			c.mark(func(t time.Time) {
				c.firstByte = t
				c.m.TTFB = t.Sub(c.wrote)
			})
		},
	})
}

// tracedResponse is a fully read response with its timings.
type tracedResponse struct {
	Status  int
	Body    []byte
	Metrics *NetworkMetrics
}

// doTraced sends req on client and reads the whole body.
func doTraced(client *http.Client, req *http.Request) (*tracedResponse, error) {
	clock := &phaseClock{}
	req = req.WithContext(clock.attach(req.Context()))
	start := time.Now()

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	clock.mark(func(t time.Time) {
		if !clock.firstByte.IsZero() {
			clock.m.Download = t.Sub(clock.firstByte)
		}
		clock.m.Total = t.Sub(start)
	})
	m := clock.m
	return &tracedResponse{Status: resp.StatusCode, Body: body, Metrics: &m}, nil
}
