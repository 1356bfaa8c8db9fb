// AngelaMos | 2026
// service.go

package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/community-api/internal/core"
	"github.com/carterperez-dev/community-api/internal/metrics"
	"github.com/carterperez-dev/community-api/internal/realtime"
)

// Service is the notification dispatcher: the stored row is the durable
// record, the realtime push is best effort.
type Service struct {
	repo      Repository
	publisher realtime.Publisher
	logger    *slog.Logger
}

func NewService(
	repo Repository,
	publisher realtime.Publisher,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger.With("component", "notification"),
	}
}

// Notify records the notification and then pushes it to the recipient's
// live connections. Only the write can fail the call.
func (s *Service) Notify(ctx context.Context, in Input) (*Notification, error) {
	n, err := s.Record(ctx, nil, in)
	if err != nil {
		return nil, err
	}

	s.Push(ctx, n)
	return n, nil
}

// Record persists a notification. A non-nil db runs the insert on that
// handle, so callers can make it part of their own transaction and Push
// after commit.
func (s *Service) Record(
	ctx context.Context,
	db core.DBTX,
	in Input,
) (*Notification, error) {
	if in.UserID == "" || strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("record notification: recipient and title required: %w",
			core.ErrInvalidInput)
	}

	n := &Notification{
		ID:      uuid.New().String(),
		UserID:  in.UserID,
		Title:   in.Title,
		Content: in.Content,
		Type:    ParseType(string(in.Type)),
	}
	if in.Link != "" {
		link := in.Link
		n.Link = &link
	}

	repo := s.repo
	if db != nil {
		repo = repo.WithTx(db)
	}

	if err := repo.Create(ctx, n); err != nil {
		return nil, err
	}

	return n, nil
}

// Push publishes n to the recipient. Failures are logged and counted.
func (s *Service) Push(ctx context.Context, n *Notification) {
	ctx, span := core.StartSpan(ctx, "notification.push",
		attribute.String("notification.type", string(n.Type)),
	)

	msg, err := realtime.NewMessage(realtime.TypeNotification, ToResponse(n))
	if err == nil {
		err = s.publisher.Publish(ctx, n.UserID, msg)
	}
	core.EndSpan(span, err)

	metrics.NotificationsDispatched.WithLabelValues(
		string(n.Type), metrics.BoolLabel(err == nil),
	).Inc()

	if err != nil {
		s.logger.Warn("notification push failed",
			"notification_id", n.ID,
			"user_id", n.UserID,
			"error", err,
		)
	}
}

func (s *Service) List(ctx context.Context, userID string) ([]Notification, error) {
	return s.repo.ListForUser(ctx, userID, ListLimit)
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead marks the caller's unread notifications as read: all of them
// when ids is empty, otherwise only the listed ones the caller owns.
func (s *Service) MarkRead(
	ctx context.Context,
	userID string,
	ids []string,
) (int64, error) {
	if userID == "" {
		return 0, fmt.Errorf("mark read: %w", core.ErrUnauthorized)
	}

	if len(ids) == 0 {
		return s.repo.MarkAllRead(ctx, userID)
	}
	return s.repo.MarkRead(ctx, userID, ids)
}
