package oauth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/eventora/internal/model"
	"github.com/Shivanand-hulikatti/eventora/internal/transport"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeExchanger struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	token   string
	err     error
	panics  bool
	wait    bool // block until ctx is done
}

func (f *fakeExchanger) ExchangeOAuthCode(ctx context.Context, provider, code string) (*model.TokenResponse, error) {
	f.calls.Add(1)
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	if f.wait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.panics {
		panic("exchange exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	return &model.TokenResponse{Token: f.token}, nil
}

type tokenBox struct {
	mu  sync.Mutex
	tok string
}

func (b *tokenBox) Set(_ context.Context, token string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tok = token
	return nil
}

type recorder struct {
	mu     sync.Mutex
	routes []Route
	msgs   []string
	slept  []time.Duration
}

func (r *recorder) handler(ex Exchanger, tokens TokenSink, g *Guard) *Handler {
	return &Handler{
		Guard:     g,
		Exchanger: ex,
		Tokens:    tokens,
		Logger:    quiet,
		Navigate: func(route Route) {
			r.mu.Lock()
			r.routes = append(r.routes, route)
			r.mu.Unlock()
		},
		Notify: func(msg string) {
			r.mu.Lock()
			r.msgs = append(r.msgs, msg)
			r.mu.Unlock()
		},
		Sleep: func(_ context.Context, d time.Duration) {
			r.mu.Lock()
			r.slept = append(r.slept, d)
			r.mu.Unlock()
		},
	}
}

func TestHandleCallback_ConcurrentSameCodeExchangesOnce(t *testing.T) {
	ex := &fakeExchanger{token: "tok", started: make(chan struct{}), release: make(chan struct{})}
	box := &tokenBox{}
	rec := &recorder{}
	h := rec.handler(ex, box, NewGuard())
	cb := Callback{Provider: "google", Code: "code-1"}

	first := make(chan Outcome, 1)
	go func() { first <- h.HandleCallback(context.Background(), cb) }()
	<-ex.started

	if got := h.HandleCallback(context.Background(), cb); got != Duplicate {
		t.Fatalf("expected re-entered callback to be a no-op, got %v", got)
	}
	close(ex.release)
	if got := <-first; got != SignedIn {
		t.Fatalf("expected first invocation to sign in, got %v", got)
	}

	if n := ex.calls.Load(); n != 1 {
		t.Fatalf("expected exactly one exchange call, got %d", n)
	}
	if box.tok != "tok" {
		t.Fatalf("expected token persisted, got %q", box.tok)
	}
	if len(rec.routes) != 1 || rec.routes[0] != RouteHome {
		t.Fatalf("expected single navigation home, got %v", rec.routes)
	}
	if h.Guard.InProgress() {
		t.Fatalf("expected guard cleared after success")
	}

	if got := h.HandleCallback(context.Background(), cb); got != Duplicate {
		t.Fatalf("expected consumed code to be refused, got %v", got)
	}
	if n := ex.calls.Load(); n != 1 {
		t.Fatalf("consumed code triggered another exchange")
	}
}

func TestHandleCallback_NoCodeIsNoop(t *testing.T) {
	ex := &fakeExchanger{token: "tok"}
	rec := &recorder{}
	h := rec.handler(ex, &tokenBox{}, NewGuard())
	if got := h.HandleCallback(context.Background(), Callback{Provider: "google"}); got != Ignored {
		t.Fatalf("expected Ignored, got %v", got)
	}
	if ex.calls.Load() != 0 || len(rec.routes) != 0 {
		t.Fatalf("expected no exchange and no navigation")
	}
}

func TestHandleCallback_FailuresClearGuardAndReturnToLogin(t *testing.T) {
	cases := []struct {
		name string
		ex   *fakeExchanger
		msg  string
	}{
		{"empty token", &fakeExchanger{token: ""}, "Authentication failed. No token received."},
		{"server message", &fakeExchanger{err: &transport.Error{Status: 400, Data: []byte(`{"message":"Invalid code"}`)}}, "Invalid code"},
		{"network", &fakeExchanger{err: &transport.Error{Message: "connection refused"}}, "OAuth authentication failed."},
		{"panic", &fakeExchanger{panics: true}, "OAuth authentication failed."},
		{"timeout", &fakeExchanger{wait: true}, "OAuth authentication failed."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recorder{}
			box := &tokenBox{}
			g := NewGuard()
			h := rec.handler(tc.ex, box, g)
			h.Timeout = 20 * time.Millisecond

			got := h.HandleCallback(context.Background(), Callback{Provider: "github", Code: "c-" + tc.name})
			if got != Failed {
				t.Fatalf("expected Failed, got %v", got)
			}
			if g.InProgress() {
				t.Fatalf("guard left held after failure")
			}
			if box.tok != "" {
				t.Fatalf("no token should be stored, got %q", box.tok)
			}
			if len(rec.msgs) != 1 || rec.msgs[0] != tc.msg {
				t.Fatalf("expected message %q, got %v", tc.msg, rec.msgs)
			}
			if len(rec.slept) != 1 || rec.slept[0] != GraceDelay {
				t.Fatalf("expected grace delay %v, got %v", GraceDelay, rec.slept)
			}
			if len(rec.routes) != 1 || rec.routes[0] != RouteLogin {
				t.Fatalf("expected return to login, got %v", rec.routes)
			}

			// A fresh code must not be blocked by the failed attempt.
			tc.ex.err, tc.ex.panics, tc.ex.wait, tc.ex.token = nil, false, false, "fresh"
			if got := h.HandleCallback(context.Background(), Callback{Provider: "github", Code: "new-code"}); got != SignedIn {
				t.Fatalf("expected retry with a new code to succeed, got %v", got)
			}
		})
	}
}

func TestHandleCallback_ProviderErrorAndUnknownProvider(t *testing.T) {
	rec := &recorder{}
	ex := &fakeExchanger{token: "tok"}
	h := rec.handler(ex, &tokenBox{}, NewGuard())

	if got := h.HandleCallback(context.Background(), Callback{Provider: "google", Error: "access_denied"}); got != Failed {
		t.Fatalf("expected Failed on provider error, got %v", got)
	}
	if got := h.HandleCallback(context.Background(), Callback{Provider: "myspace", Code: "x"}); got != Failed {
		t.Fatalf("expected Failed on unknown provider, got %v", got)
	}
	if ex.calls.Load() != 0 {
		t.Fatalf("expected no exchange")
	}
	if !strings.Contains(rec.msgs[1], "unsupported OAuth provider") {
		t.Fatalf("unexpected message %q", rec.msgs[1])
	}
}

func TestGuard_ReleaseIsIdempotent(t *testing.T) {
	g := NewGuard()
	release, ok := g.Acquire("a")
	if !ok {
		t.Fatalf("expected acquire")
	}
	if _, ok := g.Acquire("a"); ok {
		t.Fatalf("expected second acquire of same code to fail")
	}
	if _, ok := g.Acquire("b"); !ok {
		t.Fatalf("a different code must not be blocked")
	}
	release()
	release()
	if _, ok := g.Acquire("a"); ok {
		t.Fatalf("consumed code must stay refused")
	}
}

func TestParseCallback(t *testing.T) {
	u, _ := url.Parse("http://localhost:5173/auth/linkedin/callback?code=abc&state=s1")
	cb := ParseCallback(u)
	if cb.Provider != "linkedin" || cb.Code != "abc" || cb.State != "s1" {
		t.Fatalf("unexpected callback %+v", cb)
	}
}

func TestAuthorizeURL(t *testing.T) {
	raw, err := AuthorizeURL(Google, "client-1", "http://127.0.0.1:8765/", "nonce")
	if err != nil {
		t.Fatalf("AuthorizeURL: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if u.Host != "accounts.google.com" {
		t.Fatalf("unexpected host %q", u.Host)
	}
	if q.Get("redirect_uri") != "http://127.0.0.1:8765/auth/google/callback" {
		t.Fatalf("unexpected redirect_uri %q", q.Get("redirect_uri"))
	}
	if q.Get("response_type") != "code" || q.Get("state") != "nonce" || q.Get("client_id") != "client-1" {
		t.Fatalf("unexpected query %v", q)
	}

	if _, err := AuthorizeURL(GitHub, "", "http://x", ""); err == nil {
		t.Fatalf("expected error without client id")
	}
	if _, err := ParseProvider("Facebook"); err == nil {
		t.Fatalf("expected unsupported provider error")
	}
}

func TestListener_DeliversOutcomeOnce(t *testing.T) {
	rec := &recorder{}
	ex := &fakeExchanger{token: "tok"}
	box := &tokenBox{}
	l, err := Listen("127.0.0.1:0", rec.handler(ex, box, NewGuard()), "st-1")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer l.Close()

	bad, err := http.Get(l.RedirectBase() + "/auth/google/callback?code=c1&state=wrong")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected state mismatch rejection, got %d", bad.StatusCode)
	}

	for i := 0; i < 2; i++ {
		resp, err := http.Get(l.RedirectBase() + "/auth/google/callback?code=c1&state=st-1")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		resp.Body.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got, err := l.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got != SignedIn {
		t.Fatalf("expected SignedIn, got %v", got)
	}
	if ex.calls.Load() != 1 {
		t.Fatalf("expected one exchange for a repeated redirect, got %d", ex.calls.Load())
	}
	if box.tok != "tok" {
		t.Fatalf("expected token stored")
	}
}
