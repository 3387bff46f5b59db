package domain

import "time"

// Role maps a role name to its flattened permission set. Permissions are
// "resource:action" strings; there is no hierarchy or wildcard matching
// between them.
type Role struct {
	ID          string
	Name        string
	Permissions []string // parsed from space-delimited storage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
