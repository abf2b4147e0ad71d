package models

// Role separates clock-in users from account managers.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)
