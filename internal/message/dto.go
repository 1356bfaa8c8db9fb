// AngelaMos | 2026
// dto.go

package message

import (
	"time"
)

// SendMessageRequest is the body of POST /messages and the payload of an
// inbound chat frame.
type SendMessageRequest struct {
	ReceiverID string `json:"receiverId" validate:"required,uuid"`
	Content    string `json:"content"    validate:"required,min=1,max=5000"`
}

type TypingRequest struct {
	ReceiverID string `json:"receiverId" validate:"required,uuid"`
}

type TypingEvent struct {
	SenderID string `json:"senderId"`
}

type MessageResponse struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"createdAt"`
}

func ToMessageResponse(m *Message) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		Read:       m.Read,
		CreatedAt:  m.CreatedAt,
	}
}

func ToMessageResponseList(msgs []Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, ToMessageResponse(&msgs[i]))
	}
	return out
}
