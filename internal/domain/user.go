package domain

import "time"

// UserProfile caches minimal display info for a provider identity.
type UserProfile struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
	Roles       []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasRole reports whether the profile carries the given role.
func (u UserProfile) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
