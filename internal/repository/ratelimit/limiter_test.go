package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mockStore struct {
	counts      map[string]int64
	expireCalls int
	expireTTL   time.Duration
	incrErr     error
	expireErr   error
}

func newMockStore() *mockStore {
	return &mockStore{counts: map[string]int64{}}
}

func (m *mockStore) IncrBy(_ context.Context, key string, val int64) (int64, error) {
	if m.incrErr != nil {
		return 0, m.incrErr
	}
	m.counts[key] += val
	return m.counts[key], nil
}

func (m *mockStore) Expire(_ context.Context, _ string, ttl time.Duration) error {
	m.expireCalls++
	m.expireTTL = ttl
	return m.expireErr
}

func TestAllow_WithinAndOverLimit(t *testing.T) {
	ms := newMockStore()
	l := New(ms)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4", 3, time.Minute)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("request %d should be allowed", i)
		}
	}

	ok, err := l.Allow(ctx, "1.2.3.4", 3, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("4th request should be rejected")
	}
	if ms.counts["khoj:ratelimit:1.2.3.4"] != 4 {
		t.Errorf("unexpected counter: %v", ms.counts)
	}
}

func TestAllow_ExpireOnlyOnFirstHit(t *testing.T) {
	ms := newMockStore()
	l := New(ms)

	for range 5 {
		_, _ = l.Allow(context.Background(), "k", 10, 30*time.Second)
	}
	if ms.expireCalls != 1 {
		t.Errorf("expected 1 EXPIRE, got %d", ms.expireCalls)
	}
	if ms.expireTTL != 30*time.Second {
		t.Errorf("expected window 30s, got %v", ms.expireTTL)
	}
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	ms := newMockStore()
	l := New(ms)
	ctx := context.Background()

	_, _ = l.Allow(ctx, "a", 1, time.Minute)
	ok, _ := l.Allow(ctx, "b", 1, time.Minute)
	if !ok {
		t.Error("different key should have its own budget")
	}
}

func TestAllow_StoreError(t *testing.T) {
	ms := newMockStore()
	ms.incrErr = errors.New("connection refused")
	l := New(ms)

	ok, err := l.Allow(context.Background(), "k", 10, time.Minute)
	if err == nil {
		t.Fatal("expected error")
	}
	if ok {
		t.Error("should not report allowed on error")
	}
}

func TestAllow_ExpireError(t *testing.T) {
	ms := newMockStore()
	ms.expireErr = errors.New("timeout")
	l := New(ms)

	if _, err := l.Allow(context.Background(), "k", 10, time.Minute); err == nil {
		t.Fatal("expected error")
	}
}
