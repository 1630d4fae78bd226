package session

import (
	"fmt"
	"time"

	"github.com/primo-luminous/wise-attitude-sub000/cmd/security/token"
)

// CleanupMode selects when expired-but-active rows are swept.
type CleanupMode string

const (
	// CleanupInline sweeps at the start of every validation.
	CleanupInline CleanupMode = "inline"
	// CleanupBackground sweeps on a ticker owned by the app.
	CleanupBackground CleanupMode = "background"
)

// Config defines the session lifecycle parameters.
type Config struct {
	// ShortTTL applies to sessions created without remember-me.
	ShortTTL time.Duration
	// LongTTL applies to remember-me sessions.
	LongTTL time.Duration
	// LongTermCutoff classifies a row as long-term when expires_at - created_at exceeds it.
	LongTermCutoff time.Duration

	NearExpiryThreshold time.Duration
	ActivityDebounce    time.Duration

	// TokenBytes is the number of random bytes per session token.
	TokenBytes int

	CleanupMode     CleanupMode
	CleanupInterval time.Duration
}

// DefaultConfig returns the production lifecycle values.
func DefaultConfig() Config {
	return Config{
		ShortTTL:            1 * time.Hour,
		LongTTL:             30 * 24 * time.Hour,
		LongTermCutoff:      24 * time.Hour,
		NearExpiryThreshold: 15 * time.Minute,
		ActivityDebounce:    5 * time.Minute,
		TokenBytes:          32,
		CleanupMode:         CleanupInline,
		CleanupInterval:     time.Minute,
	}
}

// Validate returns an ErrConfig-wrapped error describing the first invalid field.
func (c Config) Validate() error {
	positive := []struct {
		name string
		d    time.Duration
	}{
		{"short ttl", c.ShortTTL},
		{"long ttl", c.LongTTL},
		{"long-term cutoff", c.LongTermCutoff},
		{"near-expiry threshold", c.NearExpiryThreshold},
		{"activity debounce", c.ActivityDebounce},
	}
	for _, p := range positive {
		if p.d <= 0 {
			return fmt.Errorf("%w: %s must be > 0", ErrConfig, p.name)
		}
	}
	if c.LongTTL <= c.ShortTTL {
		return fmt.Errorf("%w: long ttl must exceed short ttl", ErrConfig)
	}
	if c.NearExpiryThreshold >= c.ShortTTL {
		return fmt.Errorf("%w: near-expiry threshold must be below short ttl", ErrConfig)
	}
	if c.TokenBytes < token.MinBytes || c.TokenBytes > token.MaxBytes {
		return fmt.Errorf("%w: token bytes must be in [%d, %d]", ErrConfig, token.MinBytes, token.MaxBytes)
	}
	switch c.CleanupMode {
	case CleanupInline:
	case CleanupBackground:
		if c.CleanupInterval <= 0 {
			return fmt.Errorf("%w: cleanup interval must be > 0 in background mode", ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unknown cleanup mode %q", ErrConfig, c.CleanupMode)
	}
	return nil
}
