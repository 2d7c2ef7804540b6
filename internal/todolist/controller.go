package todolist

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/taskmastery/taskdash/internal/api"
	"github.com/taskmastery/taskdash/pkg/models"
)

// ListState describes the local replica relative to the server.
type ListState int

const (
	// ListLoading covers both the initial state and an in-flight reload;
	// the prior collection stays visible unchanged until the fetch resolves.
	ListLoading ListState = iota
	ListReady
	ListError
)

func (s ListState) String() string {
	switch s {
	case ListLoading:
		return "loading"
	case ListReady:
		return "ready"
	case ListError:
		return "error"
	}
	return "unknown"
}

// TodoAPI is the slice of the API client the controller needs.
type TodoAPI interface {
	ListTodos(ctx context.Context) ([]models.Todo, error)
	CreateTodo(ctx context.Context, title, description string) (*models.Todo, error)
	SetCompleted(ctx context.Context, id string, completed bool) (*models.Todo, error)
	DeleteTodo(ctx context.Context, id string) error
}

// Controller keeps a local replica of the signed-in user's todos consistent
// with the server. Every mutation waits for server confirmation before
// touching the replica, so the collection only ever reflects operations the
// server accepted, in order. Failures surface as one retrievable message per
// operation and are never fatal; the user retries by re-triggering the
// action.
type Controller struct {
	apiClient TodoAPI

	mu      sync.RWMutex
	todos   []models.Todo
	filter  models.FilterMode
	state   ListState
	lastErr string
}

// NewController creates a controller showing everything, in the loading
// state until the first Load resolves.
func NewController(apiClient TodoAPI) *Controller {
	return &Controller{
		apiClient: apiClient,
		filter:    models.FilterAll,
		state:     ListLoading,
	}
}

// Load fetches the full collection and replaces the replica wholesale. On
// failure the prior collection is kept as-is and the list state becomes
// error rather than silently empty.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	c.state = ListLoading
	c.mu.Unlock()

	todos, err := c.apiClient.ListTodos(ctx)
	if err != nil {
		c.fail("load tasks", err)
		return err
	}

	c.mu.Lock()
	c.todos = todos
	c.state = ListReady
	c.lastErr = ""
	c.mu.Unlock()
	return nil
}

// Add creates a todo. The title must be non-empty; that check fails locally
// before any network call. The server-assigned record is appended only on
// success.
func (c *Controller) Add(ctx context.Context, title, description string) error {
	if strings.TrimSpace(title) == "" {
		err := &api.ValidationError{Message: "title is required"}
		c.mu.Lock()
		c.lastErr = err.Message
		c.mu.Unlock()
		return err
	}

	created, err := c.apiClient.CreateTodo(ctx, title, description)
	if err != nil {
		c.fail("add task", err)
		return err
	}

	c.mu.Lock()
	c.todos = append(c.todos, *created)
	c.lastErr = ""
	c.mu.Unlock()
	return nil
}

// Toggle flips the completed flag of the todo with the given id. An id that
// is not in the replica is a no-op, not an error: it guards against stale UI
// callbacks. On success the local record is replaced by the server's
// representation, adopting its refreshed timestamp.
func (c *Controller) Toggle(ctx context.Context, id string) error {
	c.mu.RLock()
	var completed bool
	found := false
	for i := range c.todos {
		if c.todos[i].ID == id {
			completed = c.todos[i].Completed
			found = true
			break
		}
	}
	c.mu.RUnlock()
	if !found {
		return nil
	}

	updated, err := c.apiClient.SetCompleted(ctx, id, !completed)
	if err != nil {
		c.fail("update task", err)
		return err
	}

	c.mu.Lock()
	for i := range c.todos {
		if c.todos[i].ID == id {
			c.todos[i] = *updated
			break
		}
	}
	c.lastErr = ""
	c.mu.Unlock()
	return nil
}

// Remove deletes a todo. The network call is issued even for an id the
// replica does not hold, since the server is authoritative; the local record
// is removed only after the server confirms.
func (c *Controller) Remove(ctx context.Context, id string) error {
	if err := c.apiClient.DeleteTodo(ctx, id); err != nil {
		c.fail("delete task", err)
		return err
	}

	c.mu.Lock()
	for i := range c.todos {
		if c.todos[i].ID == id {
			c.todos = append(c.todos[:i], c.todos[i+1:]...)
			break
		}
	}
	c.lastErr = ""
	c.mu.Unlock()
	return nil
}

// SetFilter changes the view predicate. No network I/O is involved.
func (c *Controller) SetFilter(mode models.FilterMode) {
	c.mu.Lock()
	c.filter = mode
	c.mu.Unlock()
}

// Filter returns the current view predicate.
func (c *Controller) Filter() models.FilterMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter
}

// Todos returns a copy of the full replica in server order.
func (c *Controller) Todos() []models.Todo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Todo, len(c.todos))
	copy(out, c.todos)
	return out
}

// Filtered derives the view subset for the current filter, preserving the
// replica's relative order. It is a pure recomputation: the same collection
// and mode always yield a value-equal sequence.
func (c *Controller) Filtered() []models.Todo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Todo, 0, len(c.todos))
	for i := range c.todos {
		if c.filter.Matches(&c.todos[i]) {
			out = append(out, c.todos[i])
		}
	}
	return out
}

// Counts returns the total, pending and completed sizes of the replica.
func (c *Controller) Counts() (total, pending, completed int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.todos {
		if c.todos[i].Completed {
			completed++
		} else {
			pending++
		}
	}
	return len(c.todos), pending, completed
}

// State returns the list state.
func (c *Controller) State() ListState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Err returns the message of the most recent failed operation, or "" when
// the last operation succeeded.
func (c *Controller) Err() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// ClearErr dismisses the surfaced message.
func (c *Controller) ClearErr() {
	c.mu.Lock()
	c.lastErr = ""
	c.mu.Unlock()
}

func (c *Controller) fail(action string, err error) {
	msg := "failed to " + action
	var se *api.ServerError
	if errors.As(err, &se) && se.Detail != "" {
		msg = se.Detail
	}

	c.mu.Lock()
	c.lastErr = msg
	if c.state == ListLoading {
		c.state = ListError
	}
	c.mu.Unlock()
}
