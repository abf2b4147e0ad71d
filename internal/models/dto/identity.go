package dto

// IdentityRequest carries the fields for a new identity.
type IdentityRequest struct {
	RUT         string `json:"rut"`
	Username    string `json:"username"`
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
	IsAdmin     bool   `json:"is_admin"`
}

// IdentityPatch lists the fields an admin may change. Fields left out of
// the payload keep their stored value.
type IdentityPatch struct {
	Username    Optional[string] `json:"username"`
	FullName    Optional[string] `json:"full_name"`
	Email       Optional[string] `json:"email"`
	PhoneNumber Optional[string] `json:"phone_number"`
	Password    Optional[string] `json:"password"`
	IsAdmin     Optional[bool]   `json:"is_admin"`
}

// Empty reports whether no field was supplied.
func (p IdentityPatch) Empty() bool {
	return !p.Username.Set && !p.FullName.Set && !p.Email.Set &&
		!p.PhoneNumber.Set && !p.Password.Set && !p.IsAdmin.Set
}

type RegistrationResponse struct {
	Message           string `json:"message"`
	RegistrationToken string `json:"registration_token"`
}
