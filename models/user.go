package models

// User is a read-only projection of an account owned by the users service.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
