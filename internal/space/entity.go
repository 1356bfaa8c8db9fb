// AngelaMos | 2026
// entity.go

package space

import (
	"time"
)

type Space struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Slug        string    `db:"slug"`
	Description string    `db:"description"`
	Visibility  string    `db:"visibility"`
	CreatorID   string    `db:"creator_id"`
	MemberCount int       `db:"member_count"`
	CreatedAt   time.Time `db:"created_at"`
}

func (s *Space) IsPublic() bool {
	return s.Visibility == VisibilityPublic
}

const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
	VisibilitySecret  = "secret"
)

const (
	MemberRoleOwner  = "owner"
	MemberRoleMember = "member"
)
