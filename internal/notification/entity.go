// AngelaMos | 2026
// entity.go

package notification

import (
	"time"
)

type Notification struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Title     string    `db:"title"`
	Content   string    `db:"content"`
	Type      Type      `db:"type"`
	IsRead    bool      `db:"is_read"`
	Link      *string   `db:"link"`
	CreatedAt time.Time `db:"created_at"`
}

type Type string

const (
	TypeAccountApproved Type = "account_approved"
	TypeAccountBlocked  Type = "account_blocked"
	TypeMention         Type = "mention"
	TypeMessage         Type = "message"
	TypeCourseCompleted Type = "course_completed"
	TypeSystem          Type = "system"
)

// Kind describes how clients present a notification type.
type Kind struct {
	Icon     string
	Category string
}

var kinds = map[Type]Kind{
	TypeAccountApproved: {Icon: "user-check", Category: "account"},
	TypeAccountBlocked:  {Icon: "user-x", Category: "account"},
	TypeMention:         {Icon: "at-sign", Category: "social"},
	TypeMessage:         {Icon: "message-circle", Category: "social"},
	TypeCourseCompleted: {Icon: "award", Category: "learning"},
	TypeSystem:          {Icon: "bell", Category: "system"},
}

// ParseType maps a tag to a registered type. Unregistered tags become
// TypeSystem.
func ParseType(tag string) Type {
	if _, ok := kinds[Type(tag)]; ok {
		return Type(tag)
	}
	return TypeSystem
}

func (t Type) Kind() Kind {
	if k, ok := kinds[t]; ok {
		return k
	}
	return kinds[TypeSystem]
}
