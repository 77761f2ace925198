package redis

import (
	"context"
	"testing"
	"time"
)

func TestRateLimitRepositoryRejectsBadArguments(t *testing.T) {
	repo := NewRateLimitRepository(nil, "salon:rate-limit", time.Minute)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	if err := repo.RecordAttempt(ctx, "  ", now); err == nil {
		t.Fatalf("expected error for blank identifier")
	}
	if _, err := repo.CountAttempts(ctx, "", time.Minute, now); err == nil {
		t.Fatalf("expected error for blank identifier")
	}
	if _, err := repo.CountAttempts(ctx, "login:192.0.2.1", 0, now); err == nil {
		t.Fatalf("expected error for non-positive window")
	}
	if err := repo.TrimWindow(ctx, "login:192.0.2.1", -time.Second, now); err == nil {
		t.Fatalf("expected error for non-positive window")
	}
	if _, _, err := repo.OldestAttempt(ctx, "login:192.0.2.1", 0, now); err == nil {
		t.Fatalf("expected error for non-positive window")
	}
}

func TestRateLimitRepositoryKeyPrefix(t *testing.T) {
	repo := NewRateLimitRepository(nil, "salon:rate-limit", time.Minute)
	if got := repo.key("login:192.0.2.1"); got != "salon:rate-limit:login:192.0.2.1" {
		t.Fatalf("unexpected key %q", got)
	}

	fallback := NewRateLimitRepository(nil, "  ", time.Minute)
	if got := fallback.key("x"); got != "rate-limit:x" {
		t.Fatalf("expected default prefix, got %q", got)
	}
}

func TestWindowScoreRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 10, 12, 0, 0, 500_000_000, time.UTC)
	if got := windowScore(at); got != "1773144000500" {
		t.Fatalf("unexpected score %q", got)
	}
}
