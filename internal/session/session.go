package session

import (
	"context"
	"errors"
	"sync"

	"github.com/taskmastery/taskdash/internal/api"
	"github.com/taskmastery/taskdash/pkg/models"
)

// State is the authentication state of the running client.
type State int

const (
	// StateInitializing means the startup session check has not finished.
	StateInitializing State = iota
	StateUnauthenticated
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

// AuthAPI is the slice of the API client the session manager needs.
type AuthAPI interface {
	Me(ctx context.Context) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	Logout(ctx context.Context) error
}

// Manager is the single source of truth for who, if anyone, is signed in.
// Identity-changing operations are serialized; there is at most one user at
// a time and absence of a user means unauthenticated.
type Manager struct {
	apiClient AuthAPI

	opMu sync.Mutex // serializes Recover/SignIn/SignUp/SignOut

	mu        sync.RWMutex // guards the fields below
	state     State
	user      *models.User
	recovered bool
	onChange  func(State)
}

// NewManager creates a manager in the initializing state. Call Recover once
// at startup to resolve it.
func NewManager(apiClient AuthAPI) *Manager {
	return &Manager{apiClient: apiClient, state: StateInitializing}
}

// OnChange registers a callback invoked after every state transition. The
// callback runs outside the manager's locks, so it may query the manager.
func (m *Manager) OnChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// State returns the current authentication state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Current returns a copy of the signed-in user, or nil when there is none.
func (m *Manager) Current() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// Recover performs the one-time startup session check. Any failure,
// including "no session", resolves to unauthenticated; nothing is reported
// to the caller beyond the resolved state. Calling Recover again is a no-op
// that returns the current state.
func (m *Manager) Recover(ctx context.Context) State {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.RLock()
	done := m.recovered
	current := m.state
	m.mu.RUnlock()
	if done {
		return current
	}

	user, err := m.apiClient.Me(ctx)
	if err != nil {
		user = nil
	}

	m.mu.Lock()
	m.recovered = true
	m.user = user
	if user != nil {
		m.state = StateAuthenticated
	} else {
		m.state = StateUnauthenticated
	}
	next := m.state
	m.mu.Unlock()

	m.notify(next)
	return next
}

// SignIn exchanges credentials for a session. On failure the prior state is
// untouched and the error is an *api.ValidationError (empty input) or an
// *api.AuthError carrying the server's reason when one was available.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return &api.ValidationError{Message: "email and password are required"}
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	user, err := m.apiClient.Login(ctx, email, password)
	if err != nil {
		return &api.AuthError{Detail: serverDetail(err)}
	}

	m.setUser(user)
	return nil
}

// SignUp creates an account and signs in. When confirm is non-empty it must
// equal password; that check fails locally before any network call.
func (m *Manager) SignUp(ctx context.Context, name, email, password, confirm string) error {
	if name == "" || email == "" || password == "" {
		return &api.ValidationError{Message: "name, email and password are required"}
	}
	if confirm != "" && confirm != password {
		return &api.ValidationError{Message: "passwords do not match"}
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	user, err := m.apiClient.Register(ctx, name, email, password)
	if err != nil {
		return &api.AuthError{Detail: serverDetail(err)}
	}

	m.setUser(user)
	return nil
}

// SignOut requests server-side invalidation and clears the local identity
// regardless of the outcome, so the client can never be stuck appearing
// signed in. The server's error, if any, is returned for reporting only:
// by the time SignOut returns, the local state is already unauthenticated.
func (m *Manager) SignOut(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	err := m.apiClient.Logout(ctx)
	m.setUser(nil)
	return err
}

// Invalidate drops the identity without a server call. It is the hook for
// stale-session detection: when another component sees the server reject the
// session, it reports it here.
func (m *Manager) Invalidate() {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	m.setUser(nil)
}

func (m *Manager) setUser(user *models.User) {
	m.mu.Lock()
	m.user = user
	if user != nil {
		m.state = StateAuthenticated
	} else {
		m.state = StateUnauthenticated
	}
	next := m.state
	m.mu.Unlock()

	m.notify(next)
}

func (m *Manager) notify(s State) {
	m.mu.RLock()
	fn := m.onChange
	m.mu.RUnlock()
	if fn != nil {
		fn(s)
	}
}

func serverDetail(err error) string {
	var se *api.ServerError
	if errors.As(err, &se) {
		return se.Detail
	}
	return ""
}
