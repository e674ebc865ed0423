package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/me/hackloud/internal/store"
	"github.com/me/hackloud/pkg/hackloud"
	"github.com/me/hackloud/pkg/model"
)

// fakeFetcher resolves tokens from a map. A gate registered for a token
// holds that fetch until the gate is closed.
type fakeFetcher struct {
	mu      sync.Mutex
	users   map[string]*model.User
	gates   map[string]chan struct{}
	started chan string
	calls   int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		users:   map[string]*model.User{},
		gates:   map[string]chan struct{}{},
		started: make(chan string, 16),
	}
}

func (f *fakeFetcher) setUser(token string, u *model.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[token] = u
}

func (f *fakeFetcher) gate(token string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := make(chan struct{})
	f.gates[token] = g
	return g
}

func (f *fakeFetcher) FetchCurrentUser(ctx context.Context, token string) (*model.User, error) {
	f.mu.Lock()
	f.calls++
	g := f.gates[token]
	delete(f.gates, token)
	f.mu.Unlock()

	f.started <- token
	if g != nil {
		select {
		case <-g:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[token]
	if !ok {
		return nil, hackloud.NewError("FetchCurrentUser", hackloud.KindAuth, "invalid token")
	}
	return u.Clone(), nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var (
	ana  = &model.User{ID: "u1", Username: "ana", Role: model.RoleAdmin}
	luis = &model.User{ID: "u2", Username: "luis", Role: model.RoleUser}
)

func newTestManager(t *testing.T) (*Manager, *fakeFetcher, *store.MemoryStore) {
	t.Helper()
	f := newFakeFetcher()
	f.setUser("tok-ana", ana)
	f.setUser("tok-luis", luis)
	st := store.NewMemoryStore()
	return NewManager(f, st, nil), f, st
}

func storedToken(t *testing.T, st store.Store) (string, bool) {
	t.Helper()
	v, ok, err := st.GetItem(context.Background(), TokenKey)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	return v, ok
}

func assertAnonymous(t *testing.T, m *Manager, st store.Store) {
	t.Helper()
	s := m.Snapshot()
	if s.Token != "" || s.User != nil || s.IsAdmin() || s.State != model.SessionAnonymous {
		t.Errorf("session = %+v, want anonymous", s)
	}
	if v, ok := storedToken(t, st); ok {
		t.Errorf("durable storage still holds %q", v)
	}
}

// waitStarted waits until the fetcher has been called for token.
func waitStarted(t *testing.T, f *fakeFetcher, token string) {
	t.Helper()
	for {
		select {
		case got := <-f.started:
			if got == token {
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("fetch for %q never started", token)
		}
	}
}

func TestLogin_Success(t *testing.T) {
	m, _, st := newTestManager(t)

	if err := m.Login(context.Background(), "tok-ana"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	s := m.Snapshot()
	if s.State != model.SessionAuthenticated || s.Token != "tok-ana" || s.User.Username != "ana" {
		t.Errorf("session = %+v", s)
	}
	if !s.IsAdmin() || !m.IsAdmin() {
		t.Error("admin user should yield IsAdmin")
	}
	if v, _ := storedToken(t, st); v != "tok-ana" {
		t.Errorf("stored token = %q, want tok-ana", v)
	}
}

func TestLogin_EmptyToken(t *testing.T) {
	m, f, _ := newTestManager(t)

	err := m.Login(context.Background(), "")
	if !hackloud.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.callCount() != 0 {
		t.Errorf("fetcher called %d times", f.callCount())
	}
}

func TestLogin_FailureClearsEverything(t *testing.T) {
	tests := []struct {
		name  string
		prior string
	}{
		{"from anonymous", ""},
		{"from authenticated", "tok-ana"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, st := newTestManager(t)
			if tt.prior != "" {
				if err := m.Login(context.Background(), tt.prior); err != nil {
					t.Fatalf("prior Login: %v", err)
				}
			}

			err := m.Login(context.Background(), "bad-token")
			if err == nil {
				t.Fatal("expected error")
			}
			if !hackloud.IsAuthError(err) {
				t.Errorf("expected auth error, got %v", err)
			}
			assertAnonymous(t, m, st)
		})
	}
}

func TestCorruptTokenFileIsPurged(t *testing.T) {
	tests := []struct {
		name string
		run  func(m *Manager) error
	}{
		{"failed login", func(m *Manager) error {
			if err := m.Login(context.Background(), "bad-token"); !hackloud.IsAuthError(err) {
				t.Errorf("Login error = %v, want auth error", err)
			}
			return nil
		}},
		{"logout", func(m *Manager) error { return m.Logout(context.Background()) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "state.json")
			if err := os.WriteFile(path, []byte(`{"DDToken":"tok-ana"`), 0600); err != nil {
				t.Fatal(err)
			}
			st := store.NewFileStore(path)
			m := NewManager(newFakeFetcher(), st, nil)

			if err := tt.run(m); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertAnonymous(t, m, st)
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if strings.Contains(string(data), "tok-ana") {
				t.Errorf("token file still holds the token: %s", data)
			}
		})
	}
}

func TestLogin_BackendRejects401(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status":"error","error":{"code":"UNAUTHORIZED","message":"invalid token"}}`))
	}))
	defer srv.Close()

	client := hackloud.NewClient(hackloud.DefaultConfig().WithBaseURL(srv.URL), nil)
	st := store.NewMemoryStore()
	m := NewManager(client, st, nil)

	err := m.Login(context.Background(), "bad-token")
	if !hackloud.IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if msg := hackloud.Message(err); msg != "invalid token" {
		t.Errorf("Message = %q, want %q", msg, "invalid token")
	}
	assertAnonymous(t, m, st)
}

func TestLogout(t *testing.T) {
	m, f, st := newTestManager(t)
	m.Login(context.Background(), "tok-ana")
	calls := f.callCount()

	if err := m.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	assertAnonymous(t, m, st)
	if f.callCount() != calls {
		t.Error("Logout should not call the backend")
	}
	if err := m.Logout(context.Background()); err != nil {
		t.Errorf("second Logout: %v", err)
	}
}

func TestLogout_StorageErrorStillClearsMemory(t *testing.T) {
	m, _, st := newTestManager(t)
	m.Login(context.Background(), "tok-ana")
	st.Close()

	if err := m.Logout(context.Background()); !errors.Is(err, store.ErrClosed) {
		t.Fatalf("Logout = %v, want ErrClosed", err)
	}
	if s := m.Snapshot(); s.Token != "" || s.User != nil {
		t.Errorf("session = %+v, want cleared", s)
	}
}

func TestLogoutLoginRoundTrip(t *testing.T) {
	for _, tok := range []string{"tok-ana", "tok-luis"} {
		t.Run(tok, func(t *testing.T) {
			m, _, _ := newTestManager(t)
			ctx := context.Background()

			if err := m.Login(ctx, tok); err != nil {
				t.Fatalf("Login: %v", err)
			}
			first := m.Snapshot()

			m.Logout(ctx)
			if err := m.Login(ctx, tok); err != nil {
				t.Fatalf("second Login: %v", err)
			}
			second := m.Snapshot()

			if *first.User != *second.User || first.IsAdmin() != second.IsAdmin() {
				t.Errorf("round trip changed session: %+v -> %+v", first.User, second.User)
			}
		})
	}
}

func TestStart_RestoresStoredToken(t *testing.T) {
	m, f, st := newTestManager(t)
	st.SetItem(context.Background(), TokenKey, "tok-ana")
	release := f.gate("tok-ana")

	done := make(chan struct{})
	go func() {
		m.Start(context.Background())
		close(done)
	}()

	waitStarted(t, f, "tok-ana")
	if s := m.Snapshot(); s.State != model.SessionAuthenticating {
		t.Errorf("state during fetch = %s, want authenticating", s.State)
	}
	close(release)
	<-done

	s := m.Snapshot()
	if s.State != model.SessionAuthenticated || !s.IsAdmin() {
		t.Errorf("session = %+v, want authenticated admin", s)
	}
}

func TestStart_PurgesRejectedToken(t *testing.T) {
	m, _, st := newTestManager(t)
	st.SetItem(context.Background(), TokenKey, "expired")

	m.Start(context.Background())
	assertAnonymous(t, m, st)
}

func TestStart_NoStoredToken(t *testing.T) {
	m, f, st := newTestManager(t)

	m.Start(context.Background())
	assertAnonymous(t, m, st)
	if f.callCount() != 0 {
		t.Errorf("fetcher called %d times", f.callCount())
	}
}

func TestLogin_SupersededByNewerLogin(t *testing.T) {
	m, f, st := newTestManager(t)
	ctx := context.Background()
	release := f.gate("tok-ana")

	slow := make(chan error, 1)
	go func() { slow <- m.Login(ctx, "tok-ana") }()
	waitStarted(t, f, "tok-ana")

	if err := m.Login(ctx, "tok-luis"); err != nil {
		t.Fatalf("newer Login: %v", err)
	}
	close(release)

	if err := <-slow; !errors.Is(err, ErrSuperseded) {
		t.Errorf("slow Login = %v, want ErrSuperseded", err)
	}
	s := m.Snapshot()
	if s.User.Username != "luis" || s.IsAdmin() {
		t.Errorf("session = %+v, want luis", s.User)
	}
	if v, _ := storedToken(t, st); v != "tok-luis" {
		t.Errorf("stored token = %q, want tok-luis", v)
	}
}

func TestLogin_SupersededFailureDoesNotClear(t *testing.T) {
	m, f, st := newTestManager(t)
	ctx := context.Background()
	release := f.gate("bad-token")

	slow := make(chan error, 1)
	go func() { slow <- m.Login(ctx, "bad-token") }()
	waitStarted(t, f, "bad-token")

	if err := m.Login(ctx, "tok-ana"); err != nil {
		t.Fatalf("newer Login: %v", err)
	}
	close(release)

	if err := <-slow; !errors.Is(err, ErrSuperseded) {
		t.Errorf("slow Login = %v, want ErrSuperseded", err)
	}
	if s := m.Snapshot(); s.State != model.SessionAuthenticated || s.Token != "tok-ana" {
		t.Errorf("session = %+v, want tok-ana", s)
	}
	if v, _ := storedToken(t, st); v != "tok-ana" {
		t.Errorf("stored token = %q", v)
	}
}

func TestLogin_LogoutWhileInFlight(t *testing.T) {
	m, f, st := newTestManager(t)
	ctx := context.Background()
	release := f.gate("tok-ana")

	slow := make(chan error, 1)
	go func() { slow <- m.Login(ctx, "tok-ana") }()
	waitStarted(t, f, "tok-ana")

	m.Logout(ctx)
	close(release)

	if err := <-slow; !errors.Is(err, ErrSuperseded) {
		t.Errorf("Login = %v, want ErrSuperseded", err)
	}
	assertAnonymous(t, m, st)
}

func TestRefresh(t *testing.T) {
	m, f, _ := newTestManager(t)
	ctx := context.Background()

	if m.Refresh(ctx) {
		t.Error("Refresh without a session should fail")
	}

	m.Login(ctx, "tok-luis")
	f.setUser("tok-luis", &model.User{ID: "u2", Username: "luis", Role: model.RoleAdmin})
	if !m.Refresh(ctx) {
		t.Fatal("Refresh failed")
	}
	if !m.IsAdmin() {
		t.Error("promoted user should be admin after Refresh")
	}
}

func TestRefresh_FailureKeepsSession(t *testing.T) {
	m, f, st := newTestManager(t)
	ctx := context.Background()
	m.Login(ctx, "tok-ana")

	f.mu.Lock()
	delete(f.users, "tok-ana")
	f.mu.Unlock()

	if m.Refresh(ctx) {
		t.Fatal("Refresh should report failure")
	}
	s := m.Snapshot()
	if s.State != model.SessionAuthenticated || s.Token != "tok-ana" || s.User.Username != "ana" {
		t.Errorf("session = %+v, want unchanged", s)
	}
	if v, _ := storedToken(t, st); v != "tok-ana" {
		t.Errorf("stored token = %q", v)
	}
}

func TestRefresh_FencedByLogout(t *testing.T) {
	m, f, st := newTestManager(t)
	ctx := context.Background()
	m.Login(ctx, "tok-ana")
	release := f.gate("tok-ana")

	result := make(chan bool, 1)
	go func() { result <- m.Refresh(ctx) }()
	waitStarted(t, f, "tok-ana")

	m.Logout(ctx)
	close(release)

	if <-result {
		t.Error("Refresh should not apply after Logout")
	}
	assertAnonymous(t, m, st)
}

func TestIsAdminAlwaysDerived(t *testing.T) {
	m, f, _ := newTestManager(t)
	ctx := context.Background()

	check := func(step string) {
		t.Helper()
		s := m.Snapshot()
		want := s.User != nil && s.User.Role == model.RoleAdmin
		if s.IsAdmin() != want || m.IsAdmin() != want {
			t.Errorf("%s: IsAdmin = %v, want %v", step, s.IsAdmin(), want)
		}
	}

	check("initial")
	m.Login(ctx, "tok-ana")
	check("admin login")
	m.Login(ctx, "tok-luis")
	check("user login")
	m.Login(ctx, "nope")
	check("failed login")
	m.Login(ctx, "tok-ana")
	f.setUser("tok-ana", &model.User{ID: "u1", Username: "ana", Role: model.RoleUser})
	m.Refresh(ctx)
	check("demoted by refresh")
	m.Logout(ctx)
	check("logout")
}

func TestSnapshotIsACopy(t *testing.T) {
	m, _, _ := newTestManager(t)
	m.Login(context.Background(), "tok-luis")

	s := m.Snapshot()
	s.User.Role = model.RoleAdmin
	if m.IsAdmin() {
		t.Error("mutating a snapshot changed the session")
	}
}
