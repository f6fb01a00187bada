package auth

import "github.com/jrsteele09/go-property-market/users"

// SignUpRequest registers a new owner or tenant
type SignUpRequest struct {
	Email     string         `json:"email"`
	Password  string         `json:"password"`
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	Phone     string         `json:"phone"`
	Role      users.RoleType `json:"role"`
}

// ProfileUpdate is a partial update of the caller's own profile
type ProfileUpdate struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
}
