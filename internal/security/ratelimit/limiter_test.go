package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeCounter struct {
	counts map[string]int64
	err    error
}

func (f *fakeCounter) IncrWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[key]++
	return f.counts[key], nil
}

func TestAllowWithinBudget(t *testing.T) {
	l := NewLimiter(&fakeCounter{}, 3, time.Minute, nil)

	for i := 0; i < 3; i++ {
		if !l.Allow(context.Background(), "acme") {
			t.Fatalf("request %d rejected within budget", i+1)
		}
	}
	if l.Allow(context.Background(), "acme") {
		t.Error("request over budget allowed")
	}
}

func TestAllowIsPerTenant(t *testing.T) {
	l := NewLimiter(&fakeCounter{}, 1, time.Minute, nil)

	if !l.Allow(context.Background(), "acme") {
		t.Fatal("first acme request rejected")
	}
	if l.Allow(context.Background(), "acme") {
		t.Error("second acme request allowed")
	}
	if !l.Allow(context.Background(), "globex") {
		t.Error("other tenant shares acme's budget")
	}
}

func TestAllowNoTenantPasses(t *testing.T) {
	l := NewLimiter(&fakeCounter{}, 0, time.Minute, nil)
	if !l.Allow(context.Background(), "") {
		t.Error("tenantless request rejected")
	}
}

func TestAllowFailsOpen(t *testing.T) {
	l := NewLimiter(&fakeCounter{err: errors.New("redis down")}, 1, time.Minute, nil)
	if !l.Allow(context.Background(), "acme") {
		t.Error("backend failure rejected traffic")
	}
}
