// Package session implements employee login sessions for Wise.
//
// A session is an opaque, server-side record keyed by a random bearer token.
// The plaintext token lives only in the client cookie; the store keeps an
// HMAC-SHA256 (or SHA-256 in development) digest of it.
//
// Lifetimes:
//   - remember-me sessions last 30 days, all others 1 hour;
//   - a validated session with less than 15 minutes left slides forward by its
//     original class TTL;
//   - last_activity is written at most once per 5 minutes.
//
// Sessions are never deleted. Logout, expiry and an inactive employee flip
// is_active to false, and nothing flips it back.
//
// Transport (cookies, HTTP, WebSocket) lives in authapi and realtime.
package session
