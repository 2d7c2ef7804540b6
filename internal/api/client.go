package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"github.com/taskmastery/taskdash/pkg/models"
)

// DefaultBaseURL is where a locally run `taskdash serve` listens.
const DefaultBaseURL = "http://localhost:8000"

// Client talks to the TaskMastery REST API. The session is carried by a
// cookie jar on every call; no token is ever exposed to callers.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Jar: jar},
	}, nil
}

// Me returns the user for the current session, if any.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	u := &models.User{}
	if err := c.do(ctx, http.MethodGet, "/api/v1/me", nil, u); err != nil {
		return nil, err
	}
	return u, nil
}

type credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userEnvelope struct {
	User models.User `json:"user"`
}

// Login exchanges credentials for a session. The session cookie lands in the
// jar; the returned user is the authenticated profile.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	var env userEnvelope
	err := c.do(ctx, http.MethodPost, "/api/v1/login", credentials{Email: email, Password: password}, &env)
	if err != nil {
		return nil, err
	}
	return &env.User, nil
}

// Register creates an account and, like Login, leaves an established session.
func (c *Client) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	var env userEnvelope
	err := c.do(ctx, http.MethodPost, "/api/v1/register", credentials{Name: name, Email: email, Password: password}, &env)
	if err != nil {
		return nil, err
	}
	return &env.User, nil
}

// Logout asks the server to invalidate the session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/logout", nil, nil)
}

// ListTodos fetches the full todo collection for the current session.
func (c *Client) ListTodos(ctx context.Context) ([]models.Todo, error) {
	var todos []models.Todo
	if err := c.do(ctx, http.MethodGet, "/api/v1/todos", nil, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

type createTodoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// CreateTodo creates a todo and returns the server's representation, with
// its assigned id and timestamps.
func (c *Client) CreateTodo(ctx context.Context, title, description string) (*models.Todo, error) {
	t := &models.Todo{}
	err := c.do(ctx, http.MethodPost, "/api/v1/todos/", createTodoRequest{Title: title, Description: description}, t)
	if err != nil {
		return nil, err
	}
	return t, nil
}

type updateTodoRequest struct {
	Completed bool `json:"completed"`
}

// SetCompleted updates the completed flag of a todo and returns the server's
// refreshed representation.
func (c *Client) SetCompleted(ctx context.Context, id string, completed bool) (*models.Todo, error) {
	t := &models.Todo{}
	err := c.do(ctx, http.MethodPut, "/api/v1/todos/"+id, updateTodoRequest{Completed: completed}, t)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTodo deletes a todo by id.
func (c *Client) DeleteTodo(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/todos/"+id, nil, nil)
}

// do performs one JSON round trip. Transport failures come back as
// *NetworkError, non-2xx responses as *ServerError with the body's "detail"
// string when one is present.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorFromResponse(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &NetworkError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
		}
	}
	return nil
}

func errorFromResponse(resp *http.Response) error {
	var body struct {
		Detail string `json:"detail"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(data, &body)
	return &ServerError{Status: resp.StatusCode, Detail: body.Detail}
}
