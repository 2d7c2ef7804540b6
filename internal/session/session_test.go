package session

import (
	"context"
	"errors"
	"testing"

	"github.com/taskmastery/taskdash/internal/api"
	"github.com/taskmastery/taskdash/pkg/models"
)

type fakeAuthAPI struct {
	meFunc       func(ctx context.Context) (*models.User, error)
	loginFunc    func(ctx context.Context, email, password string) (*models.User, error)
	registerFunc func(ctx context.Context, name, email, password string) (*models.User, error)
	logoutFunc   func(ctx context.Context) error

	meCalls       int
	loginCalls    int
	registerCalls int
	logoutCalls   int
}

func (f *fakeAuthAPI) Me(ctx context.Context) (*models.User, error) {
	f.meCalls++
	if f.meFunc != nil {
		return f.meFunc(ctx)
	}
	return nil, &api.ServerError{Status: 401, Detail: "Not authenticated"}
}

func (f *fakeAuthAPI) Login(ctx context.Context, email, password string) (*models.User, error) {
	f.loginCalls++
	if f.loginFunc != nil {
		return f.loginFunc(ctx, email, password)
	}
	return nil, errors.New("unexpected Login call")
}

func (f *fakeAuthAPI) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	f.registerCalls++
	if f.registerFunc != nil {
		return f.registerFunc(ctx, name, email, password)
	}
	return nil, errors.New("unexpected Register call")
}

func (f *fakeAuthAPI) Logout(ctx context.Context) error {
	f.logoutCalls++
	if f.logoutFunc != nil {
		return f.logoutFunc(ctx)
	}
	return nil
}

func testUser() *models.User {
	return &models.User{ID: "u1", Name: "Ada", Email: "ada@example.com"}
}

func TestManagerStartsInitializing(t *testing.T) {
	m := NewManager(&fakeAuthAPI{})
	if m.State() != StateInitializing {
		t.Errorf("Expected initializing, got %s", m.State())
	}
	if m.Current() != nil {
		t.Error("Expected no user before recovery")
	}
}

func TestRecoverWithValidSession(t *testing.T) {
	fake := &fakeAuthAPI{
		meFunc: func(ctx context.Context) (*models.User, error) {
			return testUser(), nil
		},
	}
	m := NewManager(fake)

	state := m.Recover(context.Background())
	if state != StateAuthenticated {
		t.Fatalf("Expected authenticated, got %s", state)
	}
	user := m.Current()
	if user == nil || user.Email != "ada@example.com" {
		t.Errorf("Unexpected user: %+v", user)
	}
}

func TestRecoverAbsorbsFailures(t *testing.T) {
	fake := &fakeAuthAPI{
		meFunc: func(ctx context.Context) (*models.User, error) {
			return nil, &api.NetworkError{Op: "GET /api/v1/me", Err: errors.New("connection refused")}
		},
	}
	m := NewManager(fake)

	state := m.Recover(context.Background())
	if state != StateUnauthenticated {
		t.Errorf("Expected unauthenticated after network failure, got %s", state)
	}
}

func TestRecoverRunsOnce(t *testing.T) {
	fake := &fakeAuthAPI{
		meFunc: func(ctx context.Context) (*models.User, error) {
			return testUser(), nil
		},
	}
	m := NewManager(fake)

	m.Recover(context.Background())
	m.Recover(context.Background())
	m.Recover(context.Background())

	if fake.meCalls != 1 {
		t.Errorf("Expected a single session check, got %d", fake.meCalls)
	}
	if m.State() != StateAuthenticated {
		t.Errorf("Repeat recover changed state to %s", m.State())
	}
}

func TestSignInValidatesLocally(t *testing.T) {
	fake := &fakeAuthAPI{}
	m := NewManager(fake)
	m.Recover(context.Background())

	err := m.SignIn(context.Background(), "", "hunter2")
	var ve *api.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Expected *api.ValidationError, got %T", err)
	}
	if fake.loginCalls != 0 {
		t.Errorf("Validation failure must not reach the network, got %d calls", fake.loginCalls)
	}
	if m.State() != StateUnauthenticated {
		t.Errorf("State changed on validation failure: %s", m.State())
	}
}

func TestSignInSuccess(t *testing.T) {
	fake := &fakeAuthAPI{
		loginFunc: func(ctx context.Context, email, password string) (*models.User, error) {
			return testUser(), nil
		},
	}
	m := NewManager(fake)
	m.Recover(context.Background())

	if err := m.SignIn(context.Background(), "ada@example.com", "hunter2"); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if m.State() != StateAuthenticated {
		t.Errorf("Expected authenticated, got %s", m.State())
	}
	if m.Current().ID != "u1" {
		t.Errorf("Unexpected user: %+v", m.Current())
	}
}

func TestSignInRejectionCarriesServerDetail(t *testing.T) {
	fake := &fakeAuthAPI{
		loginFunc: func(ctx context.Context, email, password string) (*models.User, error) {
			return nil, &api.ServerError{Status: 401, Detail: "Incorrect email or password"}
		},
	}
	m := NewManager(fake)
	m.Recover(context.Background())

	err := m.SignIn(context.Background(), "ada@example.com", "wrong")
	var ae *api.AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("Expected *api.AuthError, got %T", err)
	}
	if ae.Detail != "Incorrect email or password" {
		t.Errorf("Expected server detail to surface, got %q", ae.Detail)
	}
	if m.State() != StateUnauthenticated {
		t.Errorf("Failed sign-in changed state to %s", m.State())
	}
}

func TestSignInNetworkFailureHasGenericMessage(t *testing.T) {
	fake := &fakeAuthAPI{
		loginFunc: func(ctx context.Context, email, password string) (*models.User, error) {
			return nil, &api.NetworkError{Op: "POST /api/v1/login", Err: errors.New("timeout")}
		},
	}
	m := NewManager(fake)
	m.Recover(context.Background())

	err := m.SignIn(context.Background(), "ada@example.com", "hunter2")
	var ae *api.AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("Expected *api.AuthError, got %T", err)
	}
	if ae.Detail != "" {
		t.Errorf("Network failure must not leak a fake server detail, got %q", ae.Detail)
	}
}

func TestSignUpConfirmMismatchStaysLocal(t *testing.T) {
	fake := &fakeAuthAPI{}
	m := NewManager(fake)
	m.Recover(context.Background())

	err := m.SignUp(context.Background(), "Ada", "ada@example.com", "hunter2", "hunter3")
	var ve *api.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Expected *api.ValidationError, got %T", err)
	}
	if fake.registerCalls != 0 {
		t.Errorf("Mismatched confirm must not reach the network, got %d calls", fake.registerCalls)
	}
	if m.State() != StateUnauthenticated {
		t.Errorf("State changed on validation failure: %s", m.State())
	}
}

func TestSignUpSuccess(t *testing.T) {
	fake := &fakeAuthAPI{
		registerFunc: func(ctx context.Context, name, email, password string) (*models.User, error) {
			return testUser(), nil
		},
	}
	m := NewManager(fake)
	m.Recover(context.Background())

	if err := m.SignUp(context.Background(), "Ada", "ada@example.com", "hunter2", "hunter2"); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if m.State() != StateAuthenticated {
		t.Errorf("Expected authenticated, got %s", m.State())
	}
}

func TestSignOutClearsIdentityEvenWhenServerFails(t *testing.T) {
	fake := &fakeAuthAPI{
		meFunc: func(ctx context.Context) (*models.User, error) {
			return testUser(), nil
		},
		logoutFunc: func(ctx context.Context) error {
			return &api.NetworkError{Op: "POST /api/v1/logout", Err: errors.New("connection refused")}
		},
	}
	m := NewManager(fake)
	m.Recover(context.Background())

	err := m.SignOut(context.Background())
	if err == nil {
		t.Error("Expected the server error to be reported")
	}
	if m.State() != StateUnauthenticated {
		t.Errorf("Expected unauthenticated after sign-out, got %s", m.State())
	}
	if m.Current() != nil {
		t.Error("Expected no user after sign-out")
	}
}

func TestInvalidateDropsIdentityWithoutServerCall(t *testing.T) {
	fake := &fakeAuthAPI{
		meFunc: func(ctx context.Context) (*models.User, error) {
			return testUser(), nil
		},
	}
	m := NewManager(fake)
	m.Recover(context.Background())

	m.Invalidate()
	if m.State() != StateUnauthenticated {
		t.Errorf("Expected unauthenticated after invalidate, got %s", m.State())
	}
	if fake.logoutCalls != 0 {
		t.Errorf("Invalidate must not call the server, got %d logout calls", fake.logoutCalls)
	}
}

func TestOnChangeFiresOnTransitions(t *testing.T) {
	fake := &fakeAuthAPI{
		loginFunc: func(ctx context.Context, email, password string) (*models.User, error) {
			return testUser(), nil
		},
	}
	m := NewManager(fake)

	var seen []State
	m.OnChange(func(s State) { seen = append(seen, s) })

	m.Recover(context.Background())
	m.SignIn(context.Background(), "ada@example.com", "hunter2")
	m.SignOut(context.Background())

	want := []State{StateUnauthenticated, StateAuthenticated, StateUnauthenticated}
	if len(seen) != len(want) {
		t.Fatalf("Expected %d transitions, got %d (%v)", len(want), len(seen), seen)
	}
	for i, s := range want {
		if seen[i] != s {
			t.Errorf("Transition %d: expected %s, got %s", i, s, seen[i])
		}
	}
}

func TestCurrentReturnsCopy(t *testing.T) {
	fake := &fakeAuthAPI{
		meFunc: func(ctx context.Context) (*models.User, error) {
			return testUser(), nil
		},
	}
	m := NewManager(fake)
	m.Recover(context.Background())

	first := m.Current()
	first.Name = "mutated"
	if m.Current().Name != "Ada" {
		t.Error("Current must return a copy, not the internal user")
	}
}
