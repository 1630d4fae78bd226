// Package token generates and hashes opaque session tokens.
//
// A session token is 32 (or more) bytes from crypto/rand encoded as unpadded
// base64url, so it is safe to place in a cookie without escaping. The server
// never stores the token itself, only its digest:
//   - HMAC-SHA256(token, key) when a key is configured (WISE_TOKEN_HMAC_KEY).
//   - SHA-256(token) otherwise, for development.
//
// Digests are 64-char lowercase hex.
package token
