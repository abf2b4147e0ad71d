package models

import "time"

// Identity is an employee or administrator account keyed by RUT.
type Identity struct {
	RUT               string    `json:"rut"`
	Username          string    `json:"username"`
	FullName          string    `json:"full_name"`
	Email             string    `json:"email"`
	PhoneNumber       string    `json:"phone_number"`
	PasswordHash      string    `json:"-"`
	IsAdmin           bool      `json:"is_admin"`
	CurrentToken      *string   `json:"-"`
	RegistrationToken string    `json:"registration_token"`
	CreatedAt         time.Time `json:"created_at"`
}

// Role reports the role implied by the admin flag.
func (i Identity) Role() Role {
	if i.IsAdmin {
		return RoleAdmin
	}
	return RoleEmployee
}

// SessionToken returns the live session token or "" when logged out.
func (i Identity) SessionToken() string {
	if i.CurrentToken == nil {
		return ""
	}
	return *i.CurrentToken
}

// PublicIdentity is the projection handed to admin listings. It has no
// credential fields at all.
type PublicIdentity struct {
	RUT               string    `json:"rut"`
	Username          string    `json:"username"`
	FullName          string    `json:"full_name"`
	Email             string    `json:"email"`
	PhoneNumber       string    `json:"phone_number"`
	IsAdmin           bool      `json:"is_admin"`
	RegistrationToken string    `json:"registration_token"`
	CreatedAt         time.Time `json:"created_at"`
}

// Public strips password hash and session token.
func (i Identity) Public() PublicIdentity {
	return PublicIdentity{
		RUT:               i.RUT,
		Username:          i.Username,
		FullName:          i.FullName,
		Email:             i.Email,
		PhoneNumber:       i.PhoneNumber,
		IsAdmin:           i.IsAdmin,
		RegistrationToken: i.RegistrationToken,
		CreatedAt:         i.CreatedAt,
	}
}
