package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/taskmastery/taskdash/pkg/models"
)

func TestLoginCarriesSessionCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode login body: %v", err)
		}
		if body.Email != "ada@example.com" || body.Password != "hunter2" {
			t.Errorf("Unexpected credentials: %q / %q", body.Email, body.Password)
		}
		http.SetCookie(w, &http.Cookie{Name: "auth_token", Value: "tok-1", Path: "/"})
		json.NewEncoder(w).Encode(map[string]models.User{
			"user": {ID: "u1", Name: "Ada", Email: "ada@example.com"},
		})
	})
	mux.HandleFunc("GET /api/v1/me", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("auth_token")
		if err != nil || cookie.Value != "tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Not authenticated"})
			return
		}
		json.NewEncoder(w).Encode(models.User{ID: "u1", Name: "Ada", Email: "ada@example.com"})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	ctx := context.Background()

	// Before login the session check is rejected.
	if _, err := client.Me(ctx); err == nil {
		t.Fatal("Expected Me to fail before login")
	}

	user, err := client.Login(ctx, "ada@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.ID != "u1" || user.Name != "Ada" {
		t.Errorf("Unexpected user: %+v", user)
	}

	// The jar now carries the cookie.
	me, err := client.Me(ctx)
	if err != nil {
		t.Fatalf("Me failed after login: %v", err)
	}
	if me.ID != "u1" {
		t.Errorf("Expected user u1, got %s", me.ID)
	}
}

func TestServerErrorCarriesDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Incorrect email or password"})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = client.Login(context.Background(), "ada@example.com", "wrong")
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("Expected *ServerError, got %T (%v)", err, err)
	}
	if se.Status != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", se.Status)
	}
	if se.Detail != "Incorrect email or password" {
		t.Errorf("Expected server detail, got %q", se.Detail)
	}
	if !IsUnauthorized(err) {
		t.Error("Expected IsUnauthorized to be true")
	}
}

func TestServerErrorWithoutDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, _ := NewClient(srv.URL)
	_, err := client.ListTodos(context.Background())

	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("Expected *ServerError, got %T", err)
	}
	if se.Detail != "" {
		t.Errorf("Expected empty detail for non-JSON body, got %q", se.Detail)
	}
	if se.Error() != "server returned status 500" {
		t.Errorf("Unexpected fallback message: %q", se.Error())
	}
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse all connections

	client, _ := NewClient(srv.URL)
	_, err := client.ListTodos(context.Background())

	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("Expected *NetworkError, got %T (%v)", err, err)
	}
	if IsUnauthorized(err) {
		t.Error("Network errors must not read as unauthorized")
	}
}

func TestCreateTodoDecodesServerRecord(t *testing.T) {
	created := models.Todo{
		ID:        "1",
		Title:     "Buy milk",
		Completed: false,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		UserID:    "u1",
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/todos/" {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Title != "Buy milk" {
			t.Errorf("Expected title in request, got %q", body.Title)
		}
		json.NewEncoder(w).Encode(created)
	}))
	defer srv.Close()

	client, _ := NewClient(srv.URL)
	todo, err := client.CreateTodo(context.Background(), "Buy milk", "")
	if err != nil {
		t.Fatalf("CreateTodo failed: %v", err)
	}
	if todo.ID != "1" || todo.UserID != "u1" || !todo.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("Unexpected todo: %+v", todo)
	}
}

func TestDeleteTodoToleratesEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/v1/todos/1" {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, _ := NewClient(srv.URL)
	if err := client.DeleteTodo(context.Background(), "1"); err != nil {
		t.Fatalf("DeleteTodo failed on 200 with empty body: %v", err)
	}
}

func TestSetCompletedSendsInverse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/v1/todos/42" {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			Completed bool `json:"completed"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if !body.Completed {
			t.Error("Expected completed=true in request body")
		}
		json.NewEncoder(w).Encode(models.Todo{ID: "42", Title: "t", Completed: true})
	}))
	defer srv.Close()

	client, _ := NewClient(srv.URL)
	todo, err := client.SetCompleted(context.Background(), "42", true)
	if err != nil {
		t.Fatalf("SetCompleted failed: %v", err)
	}
	if !todo.Completed {
		t.Error("Expected returned todo to be completed")
	}
}
