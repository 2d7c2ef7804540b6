package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	embedsql "github.com/taskmastery/taskdash/embed/sql"
	"github.com/taskmastery/taskdash/pkg/models"
	_ "modernc.org/sqlite"
)

// ErrEmailTaken is returned when registering with an email that already has
// an account.
var ErrEmailTaken = errors.New("email already registered")

// Store is the SQLite persistence layer behind the reference server.
type Store struct {
	*sql.DB
}

// userRecord is a user row including the password hash, which never leaves
// this package.
type userRecord struct {
	models.User
	PasswordHash string
}

// OpenStore opens the SQLite database at path, creating parent directories
// as needed. Use ":memory:" for tests.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)

	return &Store{DB: db}, nil
}

// Init applies the schema.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.ExecContext(ctx, embedsql.Schema); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// CreateUser inserts a new account. The email must not already be in use.
func (s *Store) CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	var exists int
	err := s.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE email = ?`, email).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists > 0 {
		return nil, ErrEmailTaken
	}

	u := &models.User{
		ID:    uuid.NewString(),
		Name:  name,
		Email: email,
	}
	_, err = s.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, passwordHash, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// GetUser retrieves a user by id. Returns nil if not found.
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	u := &models.User{}
	err := s.QueryRowContext(ctx,
		`SELECT id, name, email FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Name, &u.Email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user row, including the password hash, by
// email. Returns nil if not found.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*userRecord, error) {
	u := &userRecord{}
	err := s.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash FROM users WHERE email = ?`, email,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

// ListTodos returns every todo owned by userID in creation order.
func (s *Store) ListTodos(ctx context.Context, userID string) ([]models.Todo, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT id, user_id, title, description, completed, created_at, updated_at
		FROM todos
		WHERE user_id = ?
		ORDER BY created_at ASC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	defer rows.Close()

	todos := []models.Todo{}
	for rows.Next() {
		var t models.Todo
		var completed int
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		t.Completed = completed == 1
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return todos, nil
}

// CreateTodo inserts a new todo for userID, assigning id and timestamps.
func (s *Store) CreateTodo(ctx context.Context, userID, title, description string) (*models.Todo, error) {
	now := time.Now().UTC()
	t := &models.Todo{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := s.ExecContext(ctx, `
		INSERT INTO todos (id, user_id, title, description, completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)
	`, t.ID, t.UserID, t.Title, t.Description, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}
	return t, nil
}

// GetTodo retrieves a todo by id. Returns nil if not found.
func (s *Store) GetTodo(ctx context.Context, id string) (*models.Todo, error) {
	t := &models.Todo{}
	var completed int
	err := s.QueryRowContext(ctx, `
		SELECT id, user_id, title, description, completed, created_at, updated_at
		FROM todos WHERE id = ?
	`, id).Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &completed, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}
	t.Completed = completed == 1
	return t, nil
}

// UpdateTodo applies the non-nil fields of patch and refreshes updated_at,
// returning the stored representation.
func (s *Store) UpdateTodo(ctx context.Context, id string, title, description *string, completed *bool) (*models.Todo, error) {
	current, err := s.GetTodo(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, nil
	}

	if title != nil {
		current.Title = *title
	}
	if description != nil {
		current.Description = *description
	}
	if completed != nil {
		current.Completed = *completed
	}
	current.UpdatedAt = time.Now().UTC()

	completedInt := 0
	if current.Completed {
		completedInt = 1
	}
	_, err = s.ExecContext(ctx, `
		UPDATE todos SET title = ?, description = ?, completed = ?, updated_at = ?
		WHERE id = ?
	`, current.Title, current.Description, completedInt, current.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}
	return current, nil
}

// DeleteTodo deletes a todo by id, reporting whether a row was removed.
func (s *Store) DeleteTodo(ctx context.Context, id string) (bool, error) {
	res, err := s.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete todo: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}
