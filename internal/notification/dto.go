// AngelaMos | 2026
// dto.go

package notification

import (
	"time"
)

// ListLimit caps how many notifications a list call returns.
const ListLimit = 50

// Input describes a notification to record for one recipient.
type Input struct {
	UserID  string
	Title   string
	Content string
	Type    Type
	Link    string
}

type MarkReadRequest struct {
	IDs []string `json:"ids,omitempty" validate:"omitempty,max=200,dive,uuid"`
}

type NotificationResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Type      Type      `json:"type"`
	Icon      string    `json:"icon"`
	Category  string    `json:"category"`
	IsRead    bool      `json:"isRead"`
	Link      *string   `json:"link,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

func ToResponse(n *Notification) NotificationResponse {
	kind := n.Type.Kind()
	return NotificationResponse{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Content:   n.Content,
		Type:      n.Type,
		Icon:      kind.Icon,
		Category:  kind.Category,
		IsRead:    n.IsRead,
		Link:      n.Link,
		CreatedAt: n.CreatedAt,
	}
}

func ToResponseList(items []Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for i := range items {
		out = append(out, ToResponse(&items[i]))
	}
	return out
}
