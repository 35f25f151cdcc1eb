package loadtest

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velocity-platform/console/internal/apiclient"
)

func TestRunCountsStatuses(t *testing.T) {
	var n atomic.Int32
	probe := func(ctx context.Context) (int, error) {
		if n.Add(1)%4 == 0 {
			return http.StatusInternalServerError, nil
		}
		return http.StatusOK, nil
	}

	var progress atomic.Int32
	m, err := Run(context.Background(), probe, Config{
		Requests:    20,
		Concurrency: 4,
		Progress:    func(int, int, time.Duration) { progress.Add(1) },
	})
	require.NoError(t, err)

	assert.Equal(t, 20, m.TotalRequests)
	assert.Equal(t, 15, m.Succeeded)
	assert.Equal(t, 5, m.Failed)
	assert.Equal(t, map[int]int{200: 15, 500: 5}, m.StatusCounts)
	assert.Equal(t, int32(20), progress.Load())
	assert.LessOrEqual(t, m.MinLatency, m.AverageLatency)
	assert.LessOrEqual(t, m.AverageLatency, m.MaxLatency)
}

func TestRunRespectsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	probe := func(ctx context.Context) (int, error) {
		cur := inFlight.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return http.StatusOK, nil
	}

	_, err := Run(context.Background(), probe, Config{Requests: 30, Concurrency: 3})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestRunStopsOnAuthenticationFailure(t *testing.T) {
	var calls atomic.Int32
	probe := EnvelopeProbe(func(ctx context.Context) (apiclient.Envelope[map[string]any], error) {
		calls.Add(1)
		return apiclient.Envelope[map[string]any]{Status: http.StatusUnauthorized}, apiclient.ErrAuthenticationRequired
	})

	m, err := Run(context.Background(), probe, Config{Requests: 100, Concurrency: 1})
	assert.True(t, errors.Is(err, apiclient.ErrAuthenticationRequired))
	assert.Equal(t, 0, m.TotalRequests)
	assert.Less(t, calls.Load(), int32(100))
}

func TestRunRejectsZeroRequests(t *testing.T) {
	_, err := Run(context.Background(), func(context.Context) (int, error) { return 200, nil }, Config{})
	assert.ErrorContains(t, err, "requests must be at least 1")
}
