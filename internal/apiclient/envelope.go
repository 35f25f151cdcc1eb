package apiclient

// Envelope is the uniform result of every API call.
//
// Status is always set. On success Data holds the decoded JSON payload (nil for an empty
// body) or Text holds a non-JSON body; on failure only Error is meaningful.
type Envelope[T any] struct {
	Data    *T     `json:"data,omitempty"`
	Text    string `json:"text,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Status  int    `json:"status"`
}

// OK reports whether the call succeeded.
func (e Envelope[T]) OK() bool {
	return e.Error == ""
}

func failed[T any](ce *ClientError) Envelope[T] {
	return Envelope[T]{Status: ce.StatusCode, Error: ce.UserMessage}
}
