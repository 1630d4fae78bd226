package session

import "time"

// Policy holds the pure lifecycle rules. It never touches storage.
type Policy struct {
	cfg Config
}

// NewPolicy returns a Policy over cfg.
func NewPolicy(cfg Config) Policy { return Policy{cfg: cfg} }

// TTLFor returns the lifetime granted at creation.
func (p Policy) TTLFor(rememberMe bool) time.Duration {
	if rememberMe {
		return p.cfg.LongTTL
	}
	return p.cfg.ShortTTL
}

// IsLongTerm classifies a row by its current window, not by a stored flag.
// A short session refreshed far beyond the cutoff is therefore reclassified.
func (p Policy) IsLongTerm(s Session) bool {
	return s.ExpiresAt.Sub(s.CreatedAt) > p.cfg.LongTermCutoff
}

// RefreshTTL is the extension applied when s slides forward.
func (p Policy) RefreshTTL(s Session) time.Duration {
	return p.TTLFor(p.IsLongTerm(s))
}

func (p Policy) NearExpiryThreshold() time.Duration { return p.cfg.NearExpiryThreshold }

func (p Policy) ActivityDebounce() time.Duration { return p.cfg.ActivityDebounce }

// Expired reports whether s is past its deadline at now. expires_at == now is expired.
func (p Policy) Expired(s Session, now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// NeedsRefresh reports whether fewer than NearExpiryThreshold remain.
func (p Policy) NeedsRefresh(s Session, now time.Time) bool {
	return s.ExpiresAt.Sub(now) < p.cfg.NearExpiryThreshold
}

// NeedsTouch reports whether last_activity is older than the debounce window.
func (p Policy) NeedsTouch(s Session, now time.Time) bool {
	return now.Sub(s.LastActivity) > p.cfg.ActivityDebounce
}
