package token

import "errors"

// Public, stable errors for callers.
var (
	ErrHMACKeyMissing  = errors.New("token HMAC key missing")
	ErrHMACKeyTooShort = errors.New("token HMAC key too short")

	// ErrTokenLength is returned when a generator is configured below the minimum entropy.
	ErrTokenLength = errors.New("token length below minimum")
)
