package storage

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRetryDelayBounds(t *testing.T) {
	for attempt := 1; attempt <= maxRetries; attempt++ {
		delay := retryDelay(attempt)
		if delay < baseRetryDelay {
			t.Errorf("attempt %d: delay %v below base %v", attempt, delay, baseRetryDelay)
		}
		// Cap plus the 25% jitter headroom
		if delay > maxRetryDelay+maxRetryDelay/4 {
			t.Errorf("attempt %d: delay %v above cap", attempt, delay)
		}
	}

	// Backoff should not shrink between early attempts (jitter aside, the
	// base doubles each time)
	if base := retryDelay(1); base > 2*time.Second {
		t.Errorf("first retry delay unexpectedly large: %v", base)
	}
}

func TestIsRetryableStatus(t *testing.T) {
	retryable := []int{http.StatusTooManyRequests, http.StatusRequestTimeout, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout}
	for _, status := range retryable {
		if !isRetryableStatus(status) {
			t.Errorf("status %d should be retryable", status)
		}
	}

	terminal := []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusRequestEntityTooLarge}
	for _, status := range terminal {
		if isRetryableStatus(status) {
			t.Errorf("status %d should not be retryable", status)
		}
	}
}

func TestGenerateStoragePath(t *testing.T) {
	s := New("https://example.supabase.co", "key", "beatcut-media")
	songID := uuid.New()

	path := s.GenerateStoragePath(songID, "source.mp3")
	want := songID.String() + "/source.mp3"
	if path != want {
		t.Errorf("expected %q, got %q", want, path)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("unexpected truncation: %q", got)
	}
	if got := truncate("0123456789abc", 10); got != "0123456789..." {
		t.Errorf("unexpected truncation: %q", got)
	}
}
