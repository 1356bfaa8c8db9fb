// AngelaMos | 2026
// service.go

package message

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/carterperez-dev/community-api/internal/core"
	"github.com/carterperez-dev/community-api/internal/middleware"
	"github.com/carterperez-dev/community-api/internal/realtime"
)

const ConversationLimit = 100

var ErrSelfMessage = errors.New("cannot message yourself")

type Service struct {
	repo      Repository
	publisher realtime.Publisher
	status    middleware.StatusLookup
	validator *validator.Validate
	logger    *slog.Logger
}

func NewService(
	repo Repository,
	publisher realtime.Publisher,
	status middleware.StatusLookup,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		status:    status,
		validator: core.NewValidator(),
		logger:    logger.With("component", "message"),
	}
}

// Send stores the message and relays it to the receiver and to the
// sender's other connections. Relay failures only get logged.
func (s *Service) Send(
	ctx context.Context,
	senderID string,
	req SendMessageRequest,
) (*Message, error) {
	if senderID == req.ReceiverID {
		return nil, fmt.Errorf("send message: %w: %w", ErrSelfMessage, core.ErrInvalidInput)
	}

	m := &Message{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: req.ReceiverID,
		Content:    strings.TrimSpace(req.Content),
	}
	if m.Content == "" {
		return nil, fmt.Errorf("send message: empty content: %w", core.ErrInvalidInput)
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}

	frame, err := realtime.NewMessage(realtime.TypeMessage, ToMessageResponse(m))
	if err != nil {
		s.logger.Error("encode message frame", "message_id", m.ID, "error", err)
		return m, nil
	}
	for _, userID := range []string{m.ReceiverID, m.SenderID} {
		if err := s.publisher.Publish(ctx, userID, frame); err != nil {
			s.logger.Warn("message relay failed",
				"message_id", m.ID,
				"user_id", userID,
				"error", err,
			)
		}
	}

	return m, nil
}

func (s *Service) Conversation(ctx context.Context, callerID, otherID string) ([]Message, error) {
	if _, err := uuid.Parse(otherID); err != nil {
		return nil, fmt.Errorf("conversation: %w", core.ErrInvalidInput)
	}
	return s.repo.Conversation(ctx, callerID, otherID, ConversationLimit)
}

// MarkRead is allowed for the receiver only.
func (s *Service) MarkRead(ctx context.Context, callerID, messageID string) (*Message, error) {
	if _, err := uuid.Parse(messageID); err != nil {
		return nil, fmt.Errorf("mark read: %w", core.ErrNotFound)
	}
	return s.repo.MarkRead(ctx, messageID, callerID)
}

// RegisterInbound installs the chat and typing frame handlers on hub.
func (s *Service) RegisterInbound(hub *realtime.Hub) {
	hub.Handle(realtime.TypeChat, s.handleChat)
	hub.Handle(realtime.TypeTyping, s.handleTyping)
}

func (s *Service) handleChat(ctx context.Context, c *realtime.Conn, msg realtime.Message) error {
	var req SendMessageRequest
	if err := msg.Decode(&req); err != nil {
		return core.BadRequestError("invalid chat payload")
	}
	if err := s.validator.Struct(req); err != nil {
		return core.BadRequestError(core.FormatValidationError(err))
	}
	if err := s.requireApproved(ctx, c.UserID()); err != nil {
		return err
	}

	_, err := s.Send(ctx, c.UserID(), req)
	switch {
	case errors.Is(err, ErrSelfMessage):
		return core.BadRequestError(ErrSelfMessage.Error())
	case errors.Is(err, core.ErrNotFound):
		return core.NotFoundError("receiver")
	}
	return err
}

// handleTyping relays a typing hint without storing it.
func (s *Service) handleTyping(ctx context.Context, c *realtime.Conn, msg realtime.Message) error {
	var req TypingRequest
	if err := msg.Decode(&req); err != nil {
		return core.BadRequestError("invalid typing payload")
	}
	if err := s.validator.Struct(req); err != nil {
		return core.BadRequestError(core.FormatValidationError(err))
	}
	if req.ReceiverID == c.UserID() {
		return nil
	}

	frame, err := realtime.NewMessage(realtime.TypeTyping, TypingEvent{SenderID: c.UserID()})
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, req.ReceiverID, frame)
}

func (s *Service) requireApproved(ctx context.Context, userID string) error {
	status, err := s.status.CurrentStatus(ctx, userID)
	if err != nil {
		return err
	}
	if status != middleware.StatusApproved {
		return core.ForbiddenError("account is not approved")
	}
	return nil
}
