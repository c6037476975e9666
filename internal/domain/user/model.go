package user

import (
	"context"
)

// User is a staff member that can apply discounts, issue invoices or record payments
type User struct {
	ID       string `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
	FullName string `db:"full_name" json:"full_name"`
	Role     string `db:"role" json:"role"`
}

// Directory resolves users by id. Get returns an ErrNotFound marked error
// for unknown ids.
type Directory interface {
	Get(ctx context.Context, id string) (*User, error)
}
