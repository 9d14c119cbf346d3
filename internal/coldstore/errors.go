package coldstore

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// APIError is a non-2xx response from the cold-storage provider, decoded far
// enough to classify.
type APIError struct {
	StatusCode int
	Summary    string
}

func (e *APIError) Error() string {
	if e.Summary != "" {
		return fmt.Sprintf("dropbox: %d %s", e.StatusCode, e.Summary)
	}
	return fmt.Sprintf("dropbox: http %d", e.StatusCode)
}

// RateLimitError is a 429 carrying the provider's suggested delay. It is
// handled like any other transfer failure, but the delay is worth logging.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("dropbox: rate limited, retry after %s", e.RetryAfter)
}

// TransferError wraps any failure inside the chunked transfer engine. The
// engine never retries; that is the queue's job.
type TransferError struct {
	Cause error
}

func (e *TransferError) Error() string { return "transfer failed: " + e.Cause.Error() }
func (e *TransferError) Unwrap() error { return e.Cause }

// isSharedLinkConflict reports the specific "a link already exists for this
// path" condition, which the resolver treats as success.
func isSharedLinkConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && strings.Contains(apiErr.Summary, "shared_link_already_exists")
}

// isExpiredToken reports the auth failure recoverable via the refresh token.
func isExpiredToken(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) &&
		apiErr.StatusCode == 401 &&
		strings.Contains(apiErr.Summary, "expired_access_token")
}
