package adsb

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// RateLimitError represents an HTTP 429 response with retry information.
type RateLimitError struct {
	StatusCode int
	RetryAfter time.Duration
	Message    string
	Headers    RateLimitHeaders
}

// RateLimitHeaders contains rate limit information from response headers.
type RateLimitHeaders struct {
	Limit     int       // X-Rate-Limit-Limit: maximum requests allowed
	Remaining int       // X-Rate-Limit-Remaining: requests left in the window
	Reset     time.Time // X-Rate-Limit-Reset: when the window resets
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return e.Message
}

// IsRateLimitError checks if an error is a rate limit error.
func IsRateLimitError(err error) (*RateLimitError, bool) {
	if rle, ok := err.(*RateLimitError); ok {
		return rle, true
	}
	return nil, false
}

// newRateLimitError builds a RateLimitError from a 429 response.
func newRateLimitError(resp *http.Response) *RateLimitError {
	return &RateLimitError{
		StatusCode: resp.StatusCode,
		RetryAfter: parseRetryAfter(resp.Header),
		Message:    "rate limit exceeded",
		Headers:    extractRateLimitHeaders(resp.Header),
	}
}

// parseRetryAfter extracts the Retry-After header value.
// Returns the duration to wait, or 0 if the header is not present.
// Supports both delay-seconds (integer) and HTTP-date formats.
func parseRetryAfter(headers http.Header) time.Duration {
	retryAfter := headers.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if retryTime, err := http.ParseTime(retryAfter); err == nil {
		duration := time.Until(retryTime)
		if duration > 0 {
			return duration
		}
	}

	return 0
}

// extractRateLimitHeaders extracts common rate limit headers from the
// response, trying both the X-Rate-Limit and X-RateLimit spellings.
func extractRateLimitHeaders(headers http.Header) RateLimitHeaders {
	rlh := RateLimitHeaders{
		Limit:     -1,
		Remaining: -1,
	}

	for _, name := range []string{"X-Rate-Limit-Limit", "X-RateLimit-Limit"} {
		if limit := headers.Get(name); limit != "" {
			if val, err := strconv.Atoi(limit); err == nil {
				rlh.Limit = val
				break
			}
		}
	}

	for _, name := range []string{"X-Rate-Limit-Remaining", "X-RateLimit-Remaining"} {
		if remaining := headers.Get(name); remaining != "" {
			if val, err := strconv.Atoi(remaining); err == nil {
				rlh.Remaining = val
				break
			}
		}
	}

	for _, name := range []string{"X-Rate-Limit-Reset", "X-RateLimit-Reset"} {
		if reset := headers.Get(name); reset != "" {
			if timestamp, err := strconv.ParseInt(reset, 10, 64); err == nil {
				rlh.Reset = time.Unix(timestamp, 0)
				break
			}
		}
	}

	return rlh
}
