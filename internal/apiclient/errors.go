package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrAuthenticationRequired is returned when the backend rejects the session token.
// By the time it is returned the session has been cleared and the navigator has been
// sent to the login route. The message is shown verbatim to users.
//
//lint:ignore ST1005 user-facing text
var ErrAuthenticationRequired = errors.New("Authentication required")

const (
	// GenericErrorMessage is used when a failed response carries no usable message.
	GenericErrorMessage = "An error occurred. Please try again."

	// InternalFailureStatus is reported for failures where no HTTP response was usable.
	InternalFailureStatus = http.StatusInternalServerError
)

// ClientError describes a failed call.
// UserMessage is what ends up in the envelope, LogMessage carries the technical detail.
type ClientError struct {
	StatusCode  int    `json:"status_code"`
	UserMessage string `json:"user_message"`
	LogMessage  string `json:"log_message"`
}

func (e *ClientError) Error() string {
	return e.LogMessage
}

// newConnectionError is used when the request never completed
func newConnectionError(err error) *ClientError {
	return &ClientError{
		StatusCode:  InternalFailureStatus,
		UserMessage: "Unable to connect. Please check your internet connection and try again.",
		LogMessage:  fmt.Sprintf("network error: %v", err),
	}
}

// newInternalError wraps local failures; while explains what was being done
func newInternalError(err error, while string) *ClientError {
	return &ClientError{
		StatusCode:  InternalFailureStatus,
		UserMessage: GenericErrorMessage,
		LogMessage:  fmt.Sprintf("internal error: %v while %v", err, while),
	}
}

// newAPIError builds the error for a non-2xx response other than 401.
// fields is the decoded top level of a JSON body, nil for text bodies.
func newAPIError(status int, fields map[string]json.RawMessage, text string) *ClientError {
	userMsg := serverMessage(fields)
	if userMsg == "" {
		userMsg = GenericErrorMessage
	}

	logMsg := fmt.Sprintf("api status %d", status)
	switch {
	case userMsg != GenericErrorMessage:
		logMsg += " - " + userMsg
	case strings.TrimSpace(text) != "":
		logMsg += " - " + truncate(strings.TrimSpace(text), 200)
	}

	return &ClientError{
		StatusCode:  status,
		UserMessage: userMsg,
		LogMessage:  logMsg,
	}
}

// serverMessage picks the explanation the backend put in an error body.
// FastAPI style "detail" wins over "message", which wins over "error".
func serverMessage(fields map[string]json.RawMessage) string {
	for _, key := range []string{"detail", "message", "error"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		if msg := messageFromField(raw); msg != "" {
			return msg
		}
	}
	return ""
}

// messageFromField accepts a plain string or a validation list of {"msg": "..."} items.
func messageFromField(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if m := strings.TrimSpace(item.Msg); m != "" {
				msgs = append(msgs, m)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
