package session

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestPolicy_TTLFor(t *testing.T) {
	p := NewPolicy(DefaultConfig())
	if got := p.TTLFor(true); got != 30*24*time.Hour {
		t.Fatalf("remember-me ttl: %v", got)
	}
	if got := p.TTLFor(false); got != time.Hour {
		t.Fatalf("short ttl: %v", got)
	}
}

func TestPolicy_IsLongTerm(t *testing.T) {
	p := NewPolicy(DefaultConfig())
	cases := []struct {
		name   string
		window time.Duration
		want   bool
	}{
		{"one hour", time.Hour, false},
		{"exactly one day", 24 * time.Hour, false},
		{"just over a day", 24*time.Hour + time.Second, true},
		{"thirty days", 30 * 24 * time.Hour, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Session{CreatedAt: t0, ExpiresAt: t0.Add(tc.window)}
			if got := p.IsLongTerm(s); got != tc.want {
				t.Fatalf("IsLongTerm(%v) = %v, want %v", tc.window, got, tc.want)
			}
		})
	}
}

func TestPolicy_RefreshTTL_ReclassifiesByWindow(t *testing.T) {
	p := NewPolicy(DefaultConfig())

	short := Session{CreatedAt: t0, ExpiresAt: t0.Add(time.Hour)}
	if got := p.RefreshTTL(short); got != time.Hour {
		t.Fatalf("short refresh ttl: %v", got)
	}

	// A short session kept alive for more than a day is read as long-term.
	drifted := Session{CreatedAt: t0, ExpiresAt: t0.Add(25 * time.Hour)}
	if got := p.RefreshTTL(drifted); got != 30*24*time.Hour {
		t.Fatalf("drifted refresh ttl: %v", got)
	}
}

func TestPolicy_ExpiryAndDebounce(t *testing.T) {
	p := NewPolicy(DefaultConfig())
	s := Session{CreatedAt: t0, ExpiresAt: t0.Add(time.Hour), LastActivity: t0}

	if p.Expired(s, t0.Add(59*time.Minute)) {
		t.Fatalf("not yet expired")
	}
	if !p.Expired(s, t0.Add(time.Hour)) {
		t.Fatalf("expires_at == now must be expired")
	}

	if p.NeedsRefresh(s, t0.Add(45*time.Minute)) {
		t.Fatalf("exactly 15m left is not near expiry")
	}
	if !p.NeedsRefresh(s, t0.Add(45*time.Minute+time.Second)) {
		t.Fatalf("under 15m left is near expiry")
	}

	if p.NeedsTouch(s, t0.Add(5*time.Minute)) {
		t.Fatalf("exactly 5m since activity must not touch")
	}
	if !p.NeedsTouch(s, t0.Add(5*time.Minute+time.Second)) {
		t.Fatalf("over 5m since activity must touch")
	}
}
