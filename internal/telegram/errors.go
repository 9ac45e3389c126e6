package telegram

import (
	"fmt"
	"time"
)

// APIError is a Bot API call that came back with ok=false. Description is
// the server's human-readable reason and is what failure classification
// downstream keys on.
type APIError struct {
	Method      string
	Code        int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("telegram: %s: %d %s", e.Method, e.Code, e.Description)
	if e.RetryAfter > 0 {
		msg = fmt.Sprintf("%s (retry after %s)", msg, e.RetryAfter)
	}
	return msg
}
