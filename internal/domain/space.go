package domain

import "time"

// SpaceRole is the permission level of a member within a space.
type SpaceRole string

const (
	SpaceRoleAdmin  SpaceRole = "admin"
	SpaceRoleMember SpaceRole = "member"
	SpaceRoleViewer SpaceRole = "viewer"
)

// Valid reports whether the role is one of the known levels.
func (r SpaceRole) Valid() bool {
	switch r {
	case SpaceRoleAdmin, SpaceRoleMember, SpaceRoleViewer:
		return true
	}
	return false
}

// SpaceMember is one user's membership record within a space.
type SpaceMember struct {
	UID         string
	DisplayName string
	PhotoURL    string
	Role        SpaceRole
	JoinedAt    time.Time
}

// Space is a shared collection boundary with an explicit membership list.
// Member rows are the single canonical representation; uid lists are derived
// projections, never stored alongside.
type Space struct {
	ID        int64
	Name      string
	Type      string
	Members   []SpaceMember
	CreatedBy string
	CreatedAt time.Time
}

// MemberUIDs derives the uid projection from the canonical member set.
func (s Space) MemberUIDs() []string {
	uids := make([]string, 0, len(s.Members))
	for _, m := range s.Members {
		uids = append(uids, m.UID)
	}
	return uids
}

// HasMember reports whether uid belongs to the space.
func (s Space) HasMember(uid string) bool {
	for _, m := range s.Members {
		if m.UID == uid {
			return true
		}
	}
	return false
}
