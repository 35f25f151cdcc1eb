package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	console "github.com/velocity-platform/console"
	"github.com/velocity-platform/console/internal/session"
)

// Do sends the request and normalises the outcome into an Envelope.
//
// The returned error is nil for every outcome except a 401, which returns
// ErrAuthenticationRequired after the session has been cleared and the navigator has
// been sent to the login route.
func Do[T any](ctx context.Context, c *Client, r Request) (Envelope[T], error) {
	req, requestID, ce := c.newHTTPRequest(ctx, r)
	if ce != nil {
		c.logFailure(r, ce)
		return failed[T](ce), nil
	}

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		ce := newConnectionError(err)
		c.logFailure(r, ce, slog.String("request_id", requestID))
		return failed[T](ce), nil
	}
	defer res.Body.Close()

	c.logger.Debug("api call",
		slog.String("method", req.Method),
		slog.String("path", r.Path),
		slog.Int("status", res.StatusCode),
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
	)

	// checked before reading the body: a 401 never depends on what the backend sent
	if res.StatusCode == http.StatusUnauthorized {
		c.handleUnauthorized(ctx, r, requestID)
		return Envelope[T]{Status: http.StatusUnauthorized, Error: ErrAuthenticationRequired.Error()}, ErrAuthenticationRequired
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, console.MaxAPIResponseSize+1))
	if err == nil && int64(len(data)) > console.MaxAPIResponseSize {
		err = fmt.Errorf("response exceeds %d bytes", console.MaxAPIResponseSize)
	}
	if err != nil {
		ce := newInternalError(err, "reading response body")
		c.logFailure(r, ce, slog.String("request_id", requestID))
		return failed[T](ce), nil
	}

	structured := isJSON(res.Header.Get("Content-Type"))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var fields map[string]json.RawMessage
		if structured {
			// a malformed error body falls back to the generic message
			_ = json.Unmarshal(data, &fields)
		}
		ce := newAPIError(res.StatusCode, fields, string(data))
		c.logFailure(r, ce, slog.String("request_id", requestID))
		return failed[T](ce), nil
	}

	env := Envelope[T]{Status: res.StatusCode}
	if !structured {
		env.Text = string(data)
		return env, nil
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return env, nil
	}

	var payload T
	if err := json.Unmarshal(data, &payload); err != nil {
		ce := newInternalError(err, "decoding response body")
		c.logFailure(r, ce, slog.String("request_id", requestID))
		return failed[T](ce), nil
	}
	env.Data = &payload
	env.Message = topLevelMessage(data)
	return env, nil
}

// handleUnauthorized ends the session. Clearing and redirecting are both idempotent so
// concurrent 401s need no coordination.
func (c *Client) handleUnauthorized(ctx context.Context, r Request, requestID string) {
	if err := session.Clear(ctx, c.store); err != nil {
		c.logger.Error("could not clear session after 401",
			slog.String("path", r.Path),
			slog.String("error", err.Error()),
		)
	}
	c.navigator.RedirectToLogin(ctx)

	c.logger.Info("session rejected by api, redirected to login",
		slog.String("path", r.Path),
		slog.String("request_id", requestID),
	)
}

func (c *Client) logFailure(r Request, ce *ClientError, attrs ...any) {
	args := append([]any{
		slog.String("method", r.Method),
		slog.String("path", r.Path),
		slog.Int("status", ce.StatusCode),
		slog.String("error", ce.LogMessage),
	}, attrs...)

	if ce.StatusCode >= 500 {
		c.logger.Error("api call failed", args...)
		return
	}
	c.logger.Warn("api call failed", args...)
}

// isJSON reports whether the content type is application/json or a +json type.
func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func topLevelMessage(data []byte) string {
	var body struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.Message == nil {
		return ""
	}
	var msg string
	if err := json.Unmarshal(body.Message, &msg); err != nil {
		return ""
	}
	return msg
}

// IsAuthenticationRequired reports whether err is the forced-logout outcome.
func IsAuthenticationRequired(err error) bool {
	return errors.Is(err, ErrAuthenticationRequired)
}
