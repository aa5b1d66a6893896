package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterWindow(t *testing.T) {
	now := time.Now()
	l := New(2, time.Minute, func() time.Time { return now })

	if !l.Allow() || !l.Allow() {
		t.Fatal("first two calls should be allowed")
	}
	if l.Allow() {
		t.Fatal("third call within window should be blocked")
	}

	now = now.Add(time.Minute + time.Second)
	if !l.Allow() {
		t.Fatal("call after window reset should be allowed")
	}

	allowed, blocked := l.Stats()
	if allowed != 3 || blocked != 1 {
		t.Fatalf("stats = (%d, %d), want (3, 1)", allowed, blocked)
	}
}

func TestLimiterDisabled(t *testing.T) {
	l := New(1, time.Minute, nil)
	l.SetEnabled(false)

	for i := 0; i < 5; i++ {
		if !l.Allow() {
			t.Fatal("disabled limiter should always allow")
		}
	}
}
