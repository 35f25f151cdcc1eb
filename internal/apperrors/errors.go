package apperrors

// ErrorCode is the machine readable code in UI server error responses.
type ErrorCode string

const (
	ErrCodeAPIUnavailable        ErrorCode = "api_unavailable"
	ErrCodeAPIError              ErrorCode = "api_error"
	ErrCodeAuthenticationFailure ErrorCode = "authentication_error"
	ErrCodeInternalError         ErrorCode = "internal_error"
	ErrCodeInvalidRequest        ErrorCode = "invalid_request"
	ErrCodeMalformedBody         ErrorCode = "malformed_body"
	ErrCodeRateLimitExceeded     ErrorCode = "rate_limit_exceeded"
	ErrCodeRequestTooLarge       ErrorCode = "request_too_large"
)

// FromStatus picks the code for a failed backend call.
func FromStatus(status int) ErrorCode {
	switch {
	case status == 401:
		return ErrCodeAuthenticationFailure
	case status >= 500:
		return ErrCodeAPIUnavailable
	case status >= 400:
		return ErrCodeAPIError
	default:
		return ErrCodeInternalError
	}
}
