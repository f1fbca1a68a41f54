package tesla

import (
	"fmt"
	"time"
)

// AuthError means the refresh-token exchange failed after all retries. It is
// fatal for the whole cycle: without a token no vehicle can be measured.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("token exchange failed: %v", e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// APIError means a REST call failed with a non-recoverable status or a
// transport error after all retries.
type APIError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// ParseError means a response body could not be decoded into the expected
// shape. For REST calls this is fatal for that call; malformed streaming
// frames are skipped inside the read loop instead.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("%s: malformed response: %v", e.Op, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// StreamingError means the streaming session ended without a usable update:
// the server sent a data:error envelope or closed the connection.
type StreamingError struct {
	Reason string
}

func (e *StreamingError) Error() string { return fmt.Sprintf("streaming: %s", e.Reason) }

// TimeoutError means the streaming probe exceeded its deadline without
// receiving a valid update.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string { return fmt.Sprintf("timed out after %s", e.After) }
