package apiclient

import (
	"context"
	"net/http"
)

// Dashboard payloads are passed through as decoded JSON; the console does not compute
// or reshape business metrics.

func (c *Client) DashboardOverview(ctx context.Context) (Envelope[map[string]any], error) {
	return c.getDocument(ctx, "dashboard/overview")
}

func (c *Client) TrustScore(ctx context.Context) (Envelope[map[string]any], error) {
	return c.getDocument(ctx, "dashboard/trust-score")
}

func (c *Client) SystemHealth(ctx context.Context) (Envelope[map[string]any], error) {
	return c.getDocument(ctx, "dashboard/system-health")
}

func (c *Client) getDocument(ctx context.Context, path string) (Envelope[map[string]any], error) {
	return Do[map[string]any](ctx, c, Request{
		Method: http.MethodGet,
		Path:   path,
	})
}
