package models

// Operator is an account allowed to drive the console API.
type Operator struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}
