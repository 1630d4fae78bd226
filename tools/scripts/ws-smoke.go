// Package main provides a CI-friendly smoke test for the session status WebSocket.
//
// It validates:
//   - login over HTTP and session cookie issuance
//   - handshake + subprotocol selection on /ws/session
//   - initial session.status push
//   - session.extend -> session.status with extended=true
//   - logout ends the channel with session.ended
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
)

const (
	defaultSubprotocol = "wise.session.v1"
	maxReadBytes       = 1 << 20 // 1MiB
	protocolVersion    = 1
)

type envelope struct {
	V       int             `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	TS      time.Time       `json:"ts"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type statusPayload struct {
	Active     bool      `json:"active"`
	ExpiresAt  time.Time `json:"expires_at"`
	NearExpiry bool      `json:"near_expiry"`
	Extended   bool      `json:"extended"`
}

type endedPayload struct {
	Reason string `json:"reason"`
}

func main() {
	var (
		baseURL  = flag.String("url", "http://127.0.0.1:8080", "server base URL")
		origin   = flag.String("origin", "", "Origin header to send (browser-like WS handshake)")
		email    = flag.String("email", os.Getenv("WISE_DEV_EMPLOYEE_EMAIL"), "employee email")
		password = flag.String("password", os.Getenv("WISE_DEV_EMPLOYEE_PASSWORD"), "employee password")
		cookie   = flag.String("cookie", "wise_session", "session cookie name")
		timeout  = flag.Duration("timeout", 7*time.Second, "per-step timeout")
		verbose  = flag.Bool("v", false, "verbose output")
	)
	flag.Parse()

	base, err := validateBaseURL(*baseURL)
	if err != nil {
		fatalf("invalid -url: %v", err)
	}
	if err := validateOrigin(*origin); err != nil {
		fatalf("invalid -origin: %v", err)
	}
	if strings.TrimSpace(*email) == "" || *password == "" {
		fatalf("-email and -password are required")
	}

	root := context.Background()
	hc := &http.Client{Timeout: *timeout}

	tok := mustLogin(root, hc, base, *email, *password, *cookie)
	if *verbose {
		fmt.Println("login ok")
	}

	conn := mustConnect(root, base, *origin, *cookie, tok, *timeout)
	defer closeWS(conn)

	first := mustReadStatus(root, conn, *timeout)
	if !first.Active {
		fatalf("initial status not active")
	}
	if *verbose {
		fmt.Printf("status: expires_at=%s near_expiry=%v\n", first.ExpiresAt.Format(time.RFC3339), first.NearExpiry)
	}

	mustWrite(root, conn, envelope{V: protocolVersion, Type: "session.extend", TS: time.Now().UTC()}, *timeout)
	ext := mustReadStatus(root, conn, *timeout)
	if !ext.Extended {
		fatalf("session.extend: extended=false")
	}
	if ext.ExpiresAt.Before(first.ExpiresAt) {
		fatalf("session.extend: expiry moved backwards: %s < %s", ext.ExpiresAt, first.ExpiresAt)
	}

	mustLogout(root, hc, base, *cookie, tok)
	mustWrite(root, conn, envelope{V: protocolVersion, Type: "session.status.get", TS: time.Now().UTC()}, *timeout)

	env := mustRead(root, conn, *timeout)
	if env.Type != "session.ended" {
		fatalf("after logout: got %q want session.ended", env.Type)
	}
	var ended endedPayload
	if err := json.Unmarshal(env.Payload, &ended); err != nil {
		fatalf("unmarshal session.ended: %v", err)
	}

	fmt.Printf("OK: expires_at=%s extended_to=%s ended=%s\n",
		first.ExpiresAt.Format(time.RFC3339), ext.ExpiresAt.Format(time.RFC3339), ended.Reason)
}

func validateBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return nil, errors.New("missing host")
	}
	return u, nil
}

func validateOrigin(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("origin must be http/https, got: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("origin missing host")
	}
	return nil
}

func mustLogin(parent context.Context, hc *http.Client, base *url.URL, email, password, cookieName string) string {
	body, _ := json.Marshal(map[string]any{"email": email, "password": password})
	req, err := http.NewRequestWithContext(parent, http.MethodPost, base.JoinPath("/auth/login").String(), bytes.NewReader(body))
	if err != nil {
		fatalf("login request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		fatalf("login: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fatalf("login: status %d", resp.StatusCode)
	}
	for _, c := range resp.Cookies() {
		if c.Name == cookieName && c.Value != "" {
			return c.Value
		}
	}
	fatalf("login: no %s cookie", cookieName)
	return ""
}

func mustLogout(parent context.Context, hc *http.Client, base *url.URL, cookieName, tok string) {
	req, err := http.NewRequestWithContext(parent, http.MethodPost, base.JoinPath("/auth/logout").String(), nil)
	if err != nil {
		fatalf("logout request: %v", err)
	}
	req.AddCookie(&http.Cookie{Name: cookieName, Value: tok})

	resp, err := hc.Do(req)
	if err != nil {
		fatalf("logout: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		fatalf("logout: status %d", resp.StatusCode)
	}
}

func mustConnect(parent context.Context, base *url.URL, origin, cookieName, tok string, stepTimeout time.Duration) *websocket.Conn {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	wsURL := *base.JoinPath("/ws/session")
	if wsURL.Scheme == "https" {
		wsURL.Scheme = "wss"
	} else {
		wsURL.Scheme = "ws"
	}

	h := http.Header{}
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}
	h.Set("Cookie", (&http.Cookie{Name: cookieName, Value: tok}).String())

	conn, resp, err := websocket.Dial(ctx, wsURL.String(), &websocket.DialOptions{
		Subprotocols: []string{defaultSubprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		fatalf("connect: %v", err)
	}
	if got := conn.Subprotocol(); got != defaultSubprotocol {
		fatalf("subprotocol mismatch: got=%q want=%q", got, defaultSubprotocol)
	}

	conn.SetReadLimit(maxReadBytes)
	return conn
}

func mustRead(parent context.Context, conn *websocket.Conn, stepTimeout time.Duration) envelope {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	mt, data, err := conn.Read(ctx)
	if err != nil {
		fatalf("read: %v", err)
	}
	if mt != websocket.MessageText {
		fatalf("unsupported message type: %v", mt)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		fatalf("bad json: %v", err)
	}
	if env.V != protocolVersion {
		fatalf("unexpected protocol version %d", env.V)
	}
	return env
}

func mustReadStatus(parent context.Context, conn *websocket.Conn, stepTimeout time.Duration) statusPayload {
	env := mustRead(parent, conn, stepTimeout)
	if env.Type != "session.status" {
		fatalf("got %q want session.status", env.Type)
	}
	var p statusPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		fatalf("unmarshal session.status: %v", err)
	}
	return p
}

func mustWrite(parent context.Context, conn *websocket.Conn, env envelope, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	b, err := json.Marshal(env)
	if err != nil {
		fatalf("marshal: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
		fatalf("write %s: %v", env.Type, err)
	}
}

func closeWS(conn *websocket.Conn) {
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
