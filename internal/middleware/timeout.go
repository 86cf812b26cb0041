package middleware

import (
	"net/http"
	"time"
)

const timeoutBody = `{"error":"Request timed out"}`

// Timeout wraps requests with a deadline. Handlers observe it through the
// request context; one that overruns gets a 503 while its late writes go to
// a discarded buffer, so it can never race the timeout response.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, timeoutBody)
	}
}
