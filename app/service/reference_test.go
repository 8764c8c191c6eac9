package service

import (
	"regexp"
	"testing"
	"time"
)

func TestNewMerchantOrderIDFormat(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	id := newMerchantOrderID("lms", now)

	pattern := regexp.MustCompile(`^LMS-20260304050607-[0-9A-HJKMNP-TV-Z]{10}$`)
	if !pattern.MatchString(id) {
		t.Fatalf("unexpected merchant order id %q", id)
	}
}

func TestNewMerchantOrderIDDoesNotCollide(t *testing.T) {
	now := time.Now().UTC()
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := newMerchantOrderID("", now)
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate merchant order id %q", id)
		}
		seen[id] = struct{}{}
	}
}
