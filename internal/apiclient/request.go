package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/velocity-platform/console/internal/session"
)

// Request describes one outbound call. Path is relative to {base}/api/{version}.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any         // JSON encoded; nil sends no body
	Header http.Header // overrides the default and authorization headers
}

func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// newHTTPRequest builds the request and merges the headers. The token is read from the
// store on every call.
func (c *Client) newHTTPRequest(ctx context.Context, r Request) (*http.Request, string, *ClientError) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if r.Body != nil {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, "", newInternalError(err, "encoding request body")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(r.Path, r.Query), body)
	if err != nil {
		return nil, "", newInternalError(err, "creating request")
	}

	requestID := c.newRequestID()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	token, err := session.Token(ctx, c.store)
	if err != nil {
		// an unreadable store is treated as signed out
		c.logger.Warn("could not read session token", slog.String("error", err.Error()))
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	for key, values := range r.Header {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	if id := req.Header.Get("X-Request-ID"); id != "" {
		requestID = id
	}
	return req, requestID, nil
}
