package httpclient

import (
	"net/http"
	"strconv"
	"time"
)

// ParseStandardHeaders extracts backoff hints from the conventional
// Retry-After and X-RateLimit-Reset headers. Retry-After is read as
// delta-seconds first, then as an HTTP-date.
func ParseStandardHeaders(headers http.Header) RetryInfo {
	info := RetryInfo{}

	if retryAfter := headers.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil {
			info.RetryAfter = time.Duration(seconds) * time.Second
		} else if at, err := http.ParseTime(retryAfter); err == nil {
			info.ResetTime = at.Unix()
		}
	}

	if resetStr := headers.Get("X-RateLimit-Reset"); resetStr != "" && info.ResetTime == 0 {
		if resetTime, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
			info.ResetTime = resetTime
		}
	}

	return info
}
