package domain

import "time"

// PersonRole enumerates identity roles in the unified identity store.
type PersonRole string

const (
	PersonRoleCustomer PersonRole = "CUSTOMER"
	PersonRoleEmployee PersonRole = "EMPLOYEE"
	PersonRoleAdmin    PersonRole = "ADMIN"
)

// Person is the domain model for every actor: customers who file tickets,
// employees who work them, and admins. Customer and employee mentions both
// resolve against this one record.
type Person struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         PersonRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the person holds the admin role.
func (p *Person) IsAdmin() bool {
	return p != nil && p.Role == PersonRoleAdmin
}
