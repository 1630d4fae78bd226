package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/require"

	"github.com/primo-luminous/wise-attitude-sub000/cmd/internal/auth/session"
	"github.com/primo-luminous/wise-attitude-sub000/cmd/security/token"
)

const testEmployeeID = "01HZX3V8Q6F1M2N3P4R5S6T7V8"

// testDirectory knows one employee whose status a test may flip mid-connection.
type testDirectory struct {
	mu     sync.Mutex
	status session.EmployeeStatus
}

func (d *testDirectory) setStatus(st session.EmployeeStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = st
}

func (d *testDirectory) LookupEmployee(_ context.Context, id string) (session.Employee, error) {
	if id != testEmployeeID {
		return session.Employee{}, session.ErrEmployeeNotFound
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return session.Employee{
		ID:        id,
		Code:      "EMP-0007",
		Email:     "malee@wise.example",
		FirstName: "Malee",
		LastName:  "Srisuk",
		Status:    d.status,
	}, nil
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type gatewayFixture struct {
	svc   *session.Service
	dir   *testDirectory
	clock *manualClock
	srv   *httptest.Server
}

func newGatewayFixture(t *testing.T, cfg GatewayConfig) *gatewayFixture {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := &testDirectory{status: session.EmployeeActive}
	svc, err := session.NewService(session.DefaultConfig(), session.Deps{
		Store:     session.NewMemoryStore(),
		Directory: dir,
		Hasher:    token.NewHasher(nil),
		Log:       log,
	})
	require.NoError(t, err)

	clock := &manualClock{now: time.Date(2026, 5, 11, 8, 30, 0, 0, time.UTC)}
	cfg.Clock = clock.Now

	bearer := func(r *http.Request) string {
		return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	gw, err := NewStatusGateway(log, svc, bearer, cfg)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.Handle("/ws/session", gw)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &gatewayFixture{svc: svc, dir: dir, clock: clock, srv: srv}
}

func (f *gatewayFixture) issue(t *testing.T, rememberMe bool) session.Issued {
	t.Helper()
	issued, err := f.svc.CreateSession(context.Background(), f.clock.Now(), testEmployeeID, rememberMe)
	require.NoError(t, err)
	return issued
}

func (f *gatewayFixture) dial(t *testing.T, origin, tok string, subprotocols ...string) (*websocket.Conn, *http.Response, error) {
	t.Helper()

	u, err := url.Parse(f.srv.URL)
	require.NoError(t, err)
	u.Scheme = "ws"
	u.Path = "/ws/session"

	h := http.Header{}
	if origin != "" {
		h.Set("Origin", origin)
	}
	if tok != "" {
		h.Set("Authorization", "Bearer "+tok)
	}
	if subprotocols == nil {
		subprotocols = []string{wsSubprotocolV1}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		Subprotocols: subprotocols,
		HTTPHeader:   h,
	})
}

func readFrame(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var env Envelope
	require.NoError(t, wsjson.Read(ctx, conn, &env))
	return env
}

func writeFrame(t *testing.T, conn *websocket.Conn, typ string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, Envelope{V: Version, Type: typ, TS: time.Now().UTC()}))
}

func decodeStatus(t *testing.T, env Envelope) StatusPayload {
	t.Helper()
	require.Equal(t, TypeSessionStatus, env.Type)
	var p StatusPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	return p
}

func TestStatusGateway_RejectsMissingToken(t *testing.T) {
	f := newGatewayFixture(t, GatewayConfig{})

	_, resp, err := f.dial(t, "", "")
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStatusGateway_RejectsUnknownToken(t *testing.T) {
	f := newGatewayFixture(t, GatewayConfig{})

	_, resp, err := f.dial(t, "", "not-a-session-token")
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStatusGateway_RejectsDisallowedOrigin(t *testing.T) {
	f := newGatewayFixture(t, GatewayConfig{
		OriginRequired: true,
		AllowedOrigins: []string{"https://admin.wise.example"},
	})
	issued := f.issue(t, false)

	_, resp, err := f.dial(t, "https://evil.example", issued.Token)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, resp, err = f.dial(t, "", issued.Token)
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStatusGateway_PushesInitialStatus(t *testing.T) {
	f := newGatewayFixture(t, GatewayConfig{})
	issued := f.issue(t, true)

	conn, _, err := f.dial(t, "", issued.Token)
	require.NoError(t, err)
	defer func() { _ = conn.CloseNow() }()
	require.Equal(t, wsSubprotocolV1, conn.Subprotocol())

	st := decodeStatus(t, readFrame(t, conn))
	require.True(t, st.Active)
	require.True(t, st.LongTerm)
	require.False(t, st.NearExpiry)
	require.False(t, st.Extended)
	require.WithinDuration(t, issued.ExpiresAt, st.ExpiresAt, 0)
}

func TestStatusGateway_ExtendRenewsSession(t *testing.T) {
	f := newGatewayFixture(t, GatewayConfig{})
	issued := f.issue(t, false)

	conn, _, err := f.dial(t, "", issued.Token)
	require.NoError(t, err)
	defer func() { _ = conn.CloseNow() }()
	_ = readFrame(t, conn)

	f.clock.Advance(20 * time.Minute)
	writeFrame(t, conn, TypeSessionExtend)

	st := decodeStatus(t, readFrame(t, conn))
	require.True(t, st.Extended)
	require.WithinDuration(t, f.clock.Now().Add(time.Hour), st.ExpiresAt, 0)
}

func TestStatusGateway_PollReportsNearExpiry(t *testing.T) {
	f := newGatewayFixture(t, GatewayConfig{})
	issued := f.issue(t, false)

	conn, _, err := f.dial(t, "", issued.Token)
	require.NoError(t, err)
	defer func() { _ = conn.CloseNow() }()
	_ = readFrame(t, conn)

	f.clock.Advance(50 * time.Minute)
	writeFrame(t, conn, TypeSessionStatusPoll)

	st := decodeStatus(t, readFrame(t, conn))
	require.True(t, st.Active)
	require.True(t, st.NearExpiry)
	// Polling is read-only.
	require.WithinDuration(t, issued.ExpiresAt, st.ExpiresAt, 0)
}

func TestStatusGateway_EndsAfterLogout(t *testing.T) {
	f := newGatewayFixture(t, GatewayConfig{})
	issued := f.issue(t, false)

	conn, _, err := f.dial(t, "", issued.Token)
	require.NoError(t, err)
	defer func() { _ = conn.CloseNow() }()
	_ = readFrame(t, conn)

	require.NoError(t, f.svc.DeleteSession(context.Background(), f.clock.Now(), issued.Token))
	writeFrame(t, conn, TypeSessionStatusPoll)

	env := readFrame(t, conn)
	require.Equal(t, TypeSessionEnded, env.Type)
	var p EndedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	require.Equal(t, EndReasonInactive, p.Reason)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, err = conn.Read(ctx)
	require.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
}

func TestStatusGateway_EndsWhenEmployeeDisabled(t *testing.T) {
	f := newGatewayFixture(t, GatewayConfig{})
	issued := f.issue(t, false)

	conn, _, err := f.dial(t, "", issued.Token)
	require.NoError(t, err)
	defer func() { _ = conn.CloseNow() }()
	require.True(t, decodeStatus(t, readFrame(t, conn)).Active)

	f.dir.setStatus("inactive")
	f.clock.Advance(50 * time.Minute)
	writeFrame(t, conn, TypeSessionStatusPoll)

	env := readFrame(t, conn)
	require.Equal(t, TypeSessionEnded, env.Type)
	var p EndedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	require.Equal(t, EndReasonInactive, p.Reason)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, err = conn.Read(ctx)
	require.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
}

func TestStatusGateway_ExtendAfterExpiryEnds(t *testing.T) {
	f := newGatewayFixture(t, GatewayConfig{})
	issued := f.issue(t, false)

	conn, _, err := f.dial(t, "", issued.Token)
	require.NoError(t, err)
	defer func() { _ = conn.CloseNow() }()
	_ = readFrame(t, conn)

	f.clock.Advance(2 * time.Hour)
	writeFrame(t, conn, TypeSessionExtend)

	env := readFrame(t, conn)
	require.Equal(t, TypeSessionEnded, env.Type)
}

func TestStatusGateway_BadFramesGetErrors(t *testing.T) {
	f := newGatewayFixture(t, GatewayConfig{})
	issued := f.issue(t, false)

	conn, _, err := f.dial(t, "", issued.Token)
	require.NoError(t, err)
	defer func() { _ = conn.CloseNow() }()
	_ = readFrame(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("{not json")))

	env := readFrame(t, conn)
	require.Equal(t, TypeError, env.Type)
	var p ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	require.Equal(t, "bad_json", p.Code)

	writeFrame(t, conn, "session.delete")
	env = readFrame(t, conn)
	require.Equal(t, TypeError, env.Type)
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	require.Equal(t, "bad_envelope", p.Code)
}

func TestStatusGateway_RequiresSubprotocol(t *testing.T) {
	f := newGatewayFixture(t, GatewayConfig{})
	issued := f.issue(t, false)

	conn, _, err := f.dial(t, "", issued.Token, "other.v1")
	require.NoError(t, err)
	defer func() { _ = conn.CloseNow() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, err = conn.Read(ctx)
	require.Equal(t, websocket.StatusProtocolError, websocket.CloseStatus(err))
}

func TestEnvelopeValidate(t *testing.T) {
	now := time.Now().UTC()
	cases := []struct {
		name    string
		env     Envelope
		wantErr bool
	}{
		{name: "extend", env: Envelope{V: Version, Type: TypeSessionExtend, TS: now}},
		{name: "poll", env: Envelope{V: Version, Type: TypeSessionStatusPoll}},
		{name: "wrong version", env: Envelope{V: 2, Type: TypeSessionExtend}, wantErr: true},
		{name: "missing type", env: Envelope{V: Version}, wantErr: true},
		{name: "server type", env: Envelope{V: Version, Type: TypeSessionStatus}, wantErr: true},
	}
	for _, tc := range cases {
		err := tc.env.Validate()
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: err=%v wantErr=%v", tc.name, err, tc.wantErr)
		}
	}
}

func TestDeriveOriginPatterns(t *testing.T) {
	got := deriveOriginPatterns([]string{"https://admin.wise.example:8443", "http://localhost", "LOCALHOST:3000", "*"})
	want := []string{"*", "admin.wise.example", "localhost"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("deriveOriginPatterns=%v want %v", got, want)
	}
}
