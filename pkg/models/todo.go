package models

import "time"

type FilterMode string

const (
	FilterAll       FilterMode = "all"
	FilterPending   FilterMode = "pending"
	FilterCompleted FilterMode = "completed"
)

// Matches reports whether t passes the filter predicate. FilterAll (and any
// unknown mode) matches everything.
func (m FilterMode) Matches(t *Todo) bool {
	switch m {
	case FilterPending:
		return !t.Completed
	case FilterCompleted:
		return t.Completed
	default:
		return true
	}
}

// Todo is one to-do record. The id and both timestamps are server-assigned;
// UserID is the owning account and is never mutated by the client.
type Todo struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	UserID      string    `json:"user_id"`
}
