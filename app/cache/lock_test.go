package cache

import (
	"context"
	"testing"
	"time"
)

func TestNoopLockerAlwaysGrants(t *testing.T) {
	var locker Locker = NoopLocker{}

	first, err := locker.TryLock(context.Background(), "R1", time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := locker.TryLock(context.Background(), "R1", time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == "" || first == second {
		t.Fatalf("expected distinct non-empty tokens, got %q and %q", first, second)
	}
	if err := locker.Unlock(context.Background(), "R1", first); err != nil {
		t.Fatalf("unexpected unlock error: %v", err)
	}
}
