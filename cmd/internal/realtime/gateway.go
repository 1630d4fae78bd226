package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/primo-luminous/wise-attitude-sub000/cmd/internal/auth/session"
)

const wsSubprotocolV1 = "wise.session.v1"

// End reasons carried by session.ended.
const (
	EndReasonInactive    = "inactive"
	EndReasonUnavailable = "unavailable"
)

// SessionSource is the subset of *session.Service the gateway needs.
type SessionSource interface {
	Validate(ctx context.Context, now time.Time, tok string) (session.Result, error)
	Status(ctx context.Context, now time.Time, tok string) (session.Status, error)
	RefreshSession(ctx context.Context, now time.Time, tok string) (bool, error)
}

// GatewayConfig tunes the status channel. Zero values select defaults.
type GatewayConfig struct {
	// AllowedOrigins are full origins or hosts. Empty allows same-host only.
	AllowedOrigins []string
	OriginRequired bool

	StatusInterval    time.Duration
	WriteTimeout      time.Duration
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration

	Clock func() time.Time
}

// StatusGateway serves GET /ws/session: a WebSocket that tells the browser how
// long its session has left and lets it extend the session without a reload.
//
// The handshake is authenticated with the session token (cookie or Bearer).
// Status pushes are read-only; only session.extend writes.
type StatusGateway struct {
	log      *slog.Logger
	sessions SessionSource
	token    func(*http.Request) string

	originRequired bool
	allowedOrigins []string
	originPatterns []string

	statusInterval   time.Duration
	writeTimeout     time.Duration
	heartbeatEvery   time.Duration
	heartbeatTimeout time.Duration
	clock            func() time.Time
}

// NewStatusGateway constructs a gateway. token extracts the session token from
// the upgrade request.
func NewStatusGateway(log *slog.Logger, sessions SessionSource, token func(*http.Request) string, cfg GatewayConfig) (*StatusGateway, error) {
	if sessions == nil {
		return nil, errors.New("realtime: nil session source")
	}
	if token == nil {
		return nil, errors.New("realtime: nil token extractor")
	}
	if log == nil {
		log = slog.Default()
	}

	g := &StatusGateway{
		log:              log,
		sessions:         sessions,
		token:            token,
		originRequired:   cfg.OriginRequired,
		allowedOrigins:   cleanList(cfg.AllowedOrigins),
		statusInterval:   nonZero(cfg.StatusInterval, defaultStatusInterval),
		writeTimeout:     nonZero(cfg.WriteTimeout, defaultWriteTimeout),
		heartbeatEvery:   nonZero(cfg.HeartbeatInterval, heartbeatInterval),
		heartbeatTimeout: nonZero(cfg.HeartbeatTimeout, heartbeatTimeout),
		clock:            cfg.Clock,
	}
	if g.clock == nil {
		g.clock = func() time.Time { return time.Now().UTC() }
	}
	g.originPatterns = deriveOriginPatterns(g.allowedOrigins)
	return g, nil
}

// ServeHTTP upgrades an authenticated request and runs the status loop.
func (g *StatusGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := g.enforceOrigin(r); err != nil {
		g.log.Info("ws.reject.origin", "err", err, "origin", r.Header.Get("Origin"), "remote", r.RemoteAddr)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	tok := strings.TrimSpace(g.token(r))
	if tok == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	res, err := g.sessions.Validate(r.Context(), g.clock(), tok)
	if err != nil {
		g.log.Error("ws.auth.fail", "err", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if !res.OK() {
		g.log.Info("ws.auth.reject", "failure", res.Failure.String())
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{wsSubprotocolV1},
		OriginPatterns: g.originPatterns,
	})
	if err != nil {
		g.log.Error("ws.accept.fail", "err", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	if sp := conn.Subprotocol(); sp != wsSubprotocolV1 {
		g.log.Info("ws.reject.subprotocol", "got", sp, "want", wsSubprotocolV1)
		_ = conn.Close(websocket.StatusProtocolError, "subprotocol required")
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	connID, err := NewConnID(g.clock())
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "internal error")
		return
	}
	client := NewClient(connID, res.Identity.SessionID, res.Identity.EmployeeID, defaultSendQueueSize)
	g.serve(r.Context(), conn, client, tok)
}

func (g *StatusGateway) serve(parent context.Context, conn *websocket.Conn, client *Client, tok string) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	log := g.log.With("conn_id", client.ConnID, "session_id", client.SessionID)
	log.Info("ws.session.open", "employee_id", client.EmployeeID)

	var closeOnce sync.Once
	shutdown := func(code websocket.StatusCode, reason string) {
		closeOnce.Do(func() {
			client.Close()
			_ = conn.Close(code, reason)
			cancel()
		})
	}

	// end queues session.ended; the writer closes the connection after sending it.
	var endOnce sync.Once
	end := func(reason string) {
		endOnce.Do(func() {
			log.Info("ws.session.ended", "reason", reason)
			if !g.enqueue(ctx, client, g.envelope(TypeSessionEnded, EndedPayload{Reason: reason})) {
				shutdown(websocket.StatusPolicyViolation, "session ended")
			}
		})
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				return
			case env := <-client.Send:
				if err := writeEnvelope(ctx, conn, env, g.writeTimeout); err != nil {
					log.Info("ws.write.fail", "close_status", websocket.CloseStatus(err), "err", err)
					shutdown(websocket.StatusInternalError, "write failed")
					return
				}
				if env.Type == TypeSessionEnded {
					shutdown(websocket.StatusPolicyViolation, "session ended")
					return
				}
			}
		}
	}()

	statusDone := make(chan struct{})
	go func() {
		defer close(statusDone)
		if !g.pushStatus(ctx, client, tok, false, end) {
			return
		}

		t := time.NewTicker(g.statusInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				return
			case <-t.C:
				if !g.pushStatus(ctx, client, tok, false, end) {
					return
				}
			}
		}
	}()

	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)

		t := time.NewTicker(g.heartbeatEvery)
		defer t.Stop()

		failures := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				return
			case <-t.C:
				hbCtx, hbCancel := context.WithTimeout(ctx, g.heartbeatTimeout)
				err := conn.Ping(hbCtx)
				hbCancel()

				if err != nil {
					failures++
					log.Info("ws.ping.fail", "failures", failures, "err", err)
					if failures >= maxPingFailures {
						shutdown(websocket.StatusGoingAway, "heartbeat failed")
						return
					}
					continue
				}
				failures = 0
			}
		}
	}()

readLoop:
	for {
		env, err := readEnvelope(ctx, conn)
		if err != nil {
			if errors.Is(err, errBadFrame) {
				g.trySendError(ctx, client, "bad_json", "invalid JSON")
				continue
			}
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				log.Info("ws.read.fail", "err", err)
			}
			break readLoop
		}

		if err := env.Validate(); err != nil {
			g.trySendError(ctx, client, "bad_envelope", err.Error())
			continue
		}

		switch env.Type {
		case TypeSessionExtend:
			ok, err := g.sessions.RefreshSession(ctx, g.clock(), tok)
			switch {
			case err != nil:
				log.Error("ws.session.extend.fail", "err", err)
				end(EndReasonUnavailable)
			case !ok:
				end(EndReasonInactive)
			default:
				log.Info("ws.session.extend")
				g.pushStatus(ctx, client, tok, true, end)
			}

		case TypeSessionStatusPoll:
			g.pushStatus(ctx, client, tok, false, end)
		}
	}

	shutdown(websocket.StatusNormalClosure, "bye")
	<-writerDone

	grace := time.After(closeGrace)
	for _, done := range []chan struct{}{statusDone, heartbeatDone} {
		select {
		case <-done:
		case <-grace:
			return
		}
	}
	log.Info("ws.session.close")
}

// pushStatus queues a session.status frame. It reports false after ending the
// session, when the token no longer maps to an active session or the store fails.
func (g *StatusGateway) pushStatus(ctx context.Context, client *Client, tok string, extended bool, end func(string)) bool {
	st, err := g.sessions.Status(ctx, g.clock(), tok)
	if err != nil {
		if ctx.Err() == nil {
			g.log.Error("ws.session.status.fail", "err", err, "session_id", client.SessionID)
			end(EndReasonUnavailable)
		}
		return false
	}
	if !st.Active {
		end(EndReasonInactive)
		return false
	}
	g.enqueue(ctx, client, g.envelope(TypeSessionStatus, StatusPayload{
		Active:     true,
		ExpiresAt:  st.ExpiresAt,
		NearExpiry: st.NearExpiry,
		LongTerm:   st.LongTerm,
		Extended:   extended,
	}))
	return true
}

// ---- send helpers ----

func (g *StatusGateway) trySendError(ctx context.Context, client *Client, code, msg string) {
	_ = g.enqueue(ctx, client, g.envelope(TypeError, ErrorPayload{Code: code, Message: msg}))
}

func (g *StatusGateway) enqueue(ctx context.Context, client *Client, env Envelope) bool {
	select {
	case <-ctx.Done():
		return false
	case <-client.Done():
		return false
	case client.Send <- env:
		return true
	default:
		return false
	}
}

func (g *StatusGateway) envelope(typ string, payload any) Envelope {
	now := g.clock()
	id, _ := NewEnvelopeID(now)
	b, _ := json.Marshal(payload)
	return Envelope{V: Version, Type: typ, ID: id, TS: now, Payload: b}
}

// ---- envelope IO ----

var errBadFrame = errors.New("bad frame")

func readEnvelope(ctx context.Context, conn *websocket.Conn) (Envelope, error) {
	mt, data, err := conn.Read(ctx)
	if err != nil {
		return Envelope{}, err
	}
	if mt != websocket.MessageText {
		return Envelope{}, fmt.Errorf("%w: unsupported message type %v", errBadFrame, mt)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", errBadFrame, err)
	}
	return env, nil
}

func writeEnvelope(parent context.Context, conn *websocket.Conn, env Envelope, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}

// ---- origin policy ----

func (g *StatusGateway) enforceOrigin(r *http.Request) error {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		if g.originRequired {
			return errors.New("missing origin")
		}
		return nil
	}
	if len(g.allowedOrigins) == 0 {
		// Same-host check is left to websocket.Accept.
		return nil
	}

	originHost := originHostOnly(origin)
	for _, a := range g.allowedOrigins {
		if a == "*" || origin == a {
			return nil
		}
		if originHost != "" && originHost == originHostOnly(a) {
			return nil
		}
	}
	return fmt.Errorf("origin not allowed: %s", origin)
}

func originHostOnly(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return ""
		}
		s = strings.TrimSpace(u.Host)
		if s == "" {
			return ""
		}
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(s)
}

// deriveOriginPatterns turns the allowlist into websocket.Accept host patterns
// so both layers agree on cross-origin requests.
func deriveOriginPatterns(allowed []string) []string {
	seen := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		if a == "*" {
			seen["*"] = struct{}{}
			continue
		}
		if h := originHostOnly(a); h != "" {
			seen[h] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for h := range seen {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func nonZero(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
