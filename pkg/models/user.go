package models

// User is the authenticated account principal. Only the profile returned by
// the server is ever held client-side; credentials and session tokens are not
// part of the data model.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
