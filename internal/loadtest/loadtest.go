// Package loadtest measures how the API answers repeated authenticated requests,
// for example the dashboard endpoints the console calls on every page view.
package loadtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/velocity-platform/console/internal/apiclient"
)

const (
	DefaultRequests    = 50
	DefaultConcurrency = 5
)

// Probe performs one request and returns the HTTP status of the response.
type Probe func(ctx context.Context) (status int, err error)

// EnvelopeProbe adapts a client call to a Probe.
func EnvelopeProbe[T any](call func(context.Context) (apiclient.Envelope[T], error)) Probe {
	return func(ctx context.Context) (int, error) {
		env, err := call(ctx)
		return env.Status, err
	}
}

type Config struct {
	Requests    int
	Concurrency int
	// Progress, when set, is called after each request completes.
	Progress func(done int, status int, latency time.Duration)
}

type Metrics struct {
	TotalRequests int
	Succeeded     int
	Failed        int
	StatusCounts  map[int]int

	TotalDuration  time.Duration
	TotalLatency   time.Duration // sum of the individual request latencies
	AverageLatency time.Duration
	MinLatency     time.Duration
	MaxLatency     time.Duration

	RequestsPerSecond float64
}

// Run sends cfg.Requests probes using at most cfg.Concurrency goroutines.
//
// A probe returning an error stops the run and the error is returned along with the
// metrics gathered so far. apiclient.ErrAuthenticationRequired is such an error: once the
// session is gone every further request would fail the same way.
func Run(ctx context.Context, probe Probe, cfg Config) (Metrics, error) {
	if cfg.Requests < 1 {
		return Metrics{}, fmt.Errorf("requests must be at least 1, got %d", cfg.Requests)
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	var (
		mu      sync.Mutex
		metrics = Metrics{StatusCounts: make(map[int]int), MinLatency: time.Hour}
	)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)

	for i := 0; i < cfg.Requests; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			reqStart := time.Now()
			status, err := probe(gctx)
			latency := time.Since(reqStart)
			if err != nil {
				return err
			}

			mu.Lock()
			metrics.record(status, latency)
			done := metrics.TotalRequests
			mu.Unlock()

			if cfg.Progress != nil {
				cfg.Progress(done, status, latency)
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	metrics.TotalDuration = time.Since(start)
	metrics.finish()
	return metrics, err
}

func (m *Metrics) record(status int, latency time.Duration) {
	m.TotalRequests++
	m.StatusCounts[status]++
	if status >= 200 && status < 300 {
		m.Succeeded++
	} else {
		m.Failed++
	}

	m.TotalLatency += latency
	if latency < m.MinLatency {
		m.MinLatency = latency
	}
	if latency > m.MaxLatency {
		m.MaxLatency = latency
	}
}

func (m *Metrics) finish() {
	if m.TotalRequests == 0 {
		m.MinLatency = 0
		return
	}
	m.AverageLatency = m.TotalLatency / time.Duration(m.TotalRequests)
	if secs := m.TotalDuration.Seconds(); secs > 0 {
		m.RequestsPerSecond = float64(m.TotalRequests) / secs
	}
}
