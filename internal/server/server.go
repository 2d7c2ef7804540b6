package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/taskmastery/taskdash/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

// Server is the reference implementation of the TaskMastery REST contract:
// cookie-carried sessions, JSON bodies, and a {"detail": ...} payload on
// every non-success status.
type Server struct {
	store  *Store
	secret []byte
	server *http.Server
}

// NewServer creates a server over store. secret signs session cookies.
func NewServer(store *Store, secret []byte) *Server {
	return &Server{store: store, secret: secret}
}

// Handler builds the route table. It is exposed separately from Start so
// tests can drive the API through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/register", s.handleRegister)
	mux.HandleFunc("POST /api/v1/login", s.handleLogin)
	mux.HandleFunc("POST /api/v1/logout", s.handleLogout)
	mux.HandleFunc("GET /api/v1/me", s.handleMe)

	mux.HandleFunc("GET /api/v1/todos", s.handleListTodos)
	mux.HandleFunc("POST /api/v1/todos/{$}", s.handleCreateTodo)
	mux.HandleFunc("PUT /api/v1/todos/{id}", s.handleUpdateTodo)
	mux.HandleFunc("DELETE /api/v1/todos/{id}", s.handleDeleteTodo)

	return mux
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "name, email and password are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user, err := s.store.CreateUser(r.Context(), req.Name, req.Email, string(hash))
	if err == ErrEmailTaken {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	if err := s.mintSession(w, user.ID); err != nil {
		writeDetail(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]*models.User{"user": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rec, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "failed to look up account")
		return
	}
	if rec == nil || bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(req.Password)) != nil {
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	if err := s.mintSession(w, rec.ID); err != nil {
		writeDetail(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]*models.User{"user": &rec.User})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearSession(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, err := s.sessionUserID(r)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	user, err := s.store.GetUser(r.Context(), userID)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	if user == nil {
		// A valid cookie for a deleted account is still not a session.
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	userID, err := s.sessionUserID(r)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	todos, err := s.store.ListTodos(r.Context(), userID)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "failed to list todos")
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

type createTodoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (s *Server) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	userID, err := s.sessionUserID(r)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req createTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Title == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "Title must not be empty")
		return
	}

	todo, err := s.store.CreateTodo(r.Context(), userID, req.Title, req.Description)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "failed to create todo")
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

type updateTodoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

func (s *Server) handleUpdateTodo(w http.ResponseWriter, r *http.Request) {
	userID, err := s.sessionUserID(r)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	id := r.PathValue("id")

	existing, err := s.store.GetTodo(r.Context(), id)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "failed to load todo")
		return
	}
	if existing == nil || existing.UserID != userID {
		writeDetail(w, http.StatusNotFound, "Todo not found")
		return
	}

	var req updateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Title != nil && *req.Title == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "Title must not be empty")
		return
	}

	updated, err := s.store.UpdateTodo(r.Context(), id, req.Title, req.Description, req.Completed)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "failed to update todo")
		return
	}
	if updated == nil {
		writeDetail(w, http.StatusNotFound, "Todo not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	userID, err := s.sessionUserID(r)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	id := r.PathValue("id")

	existing, err := s.store.GetTodo(r.Context(), id)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "failed to load todo")
		return
	}
	if existing == nil || existing.UserID != userID {
		writeDetail(w, http.StatusNotFound, "Todo not found")
		return
	}

	if _, err := s.store.DeleteTodo(r.Context(), id); err != nil {
		writeDetail(w, http.StatusInternalServerError, "failed to delete todo")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Todo deleted successfully"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
