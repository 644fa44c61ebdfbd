package dto

import (
	"time"

	domainuser "equiprent/internal/domain/user"
)

// UserProfile is the public view of an account. Vendor marks accounts that may
// list equipment and own products referenced by quotation lines.
type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Roles     []string  `json:"roles"`
	Vendor    bool      `json:"vendor"`
	CreatedAt time.Time `json:"created_at"`
}

type AuthResponse struct {
	User      UserProfile `json:"user"`
	Token     string      `json:"token"`
	TokenType string      `json:"token_type"`
}

func MapUserProfile(u *domainuser.User) UserProfile {
	if u == nil {
		return UserProfile{}
	}
	profile := UserProfile{
		ID:        string(u.ID),
		Email:     u.Email,
		Name:      u.Name,
		Roles:     make([]string, len(u.Roles)),
		Vendor:    u.HasRole(domainuser.RoleVendor),
		CreatedAt: u.CreatedAt,
	}
	for i, role := range u.Roles {
		profile.Roles[i] = string(role)
	}
	return profile
}

func NewAuthResponse(u *domainuser.User, token string) AuthResponse {
	return AuthResponse{User: MapUserProfile(u), Token: token, TokenType: "Bearer"}
}
