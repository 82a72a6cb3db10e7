package users

import "time"

// User is a staff account. Role holds one of the policy role names; IsActive
// gates login and support assignment without destroying history.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
