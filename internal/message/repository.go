// AngelaMos | 2026
// repository.go

package message

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/community-api/internal/core"
)

type Repository interface {
	Create(ctx context.Context, m *Message) error
	Conversation(ctx context.Context, userA, userB string, limit int) ([]Message, error)
	MarkRead(ctx context.Context, messageID, receiverID string) (*Message, error)
}

const messageColumns = `id, sender_id, receiver_id, content, read, created_at`

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, m *Message) error {
	query := `
		INSERT INTO messages (id, sender_id, receiver_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &m.CreatedAt, query,
		m.ID,
		m.SenderID,
		m.ReceiverID,
		m.Content,
	)
	if err != nil {
		if core.IsForeignKeyError(err) {
			return fmt.Errorf("create message: receiver: %w", core.ErrNotFound)
		}
		return fmt.Errorf("create message: %w", err)
	}

	return nil
}

// Conversation returns the latest limit messages between the two users,
// oldest first.
func (r *repository) Conversation(
	ctx context.Context,
	userA, userB string,
	limit int,
) ([]Message, error) {
	query := `
		SELECT ` + messageColumns + ` FROM (
			SELECT ` + messageColumns + ` FROM messages
			WHERE LEAST(sender_id, receiver_id) = LEAST($1::uuid, $2::uuid)
			  AND GREATEST(sender_id, receiver_id) = GREATEST($1::uuid, $2::uuid)
			ORDER BY created_at DESC
			LIMIT $3
		) recent
		ORDER BY created_at ASC`

	var msgs []Message
	if err := r.db.SelectContext(ctx, &msgs, query, userA, userB, limit); err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}

	return msgs, nil
}

// MarkRead flips the read flag when receiverID owns the message. A
// message addressed to someone else is ErrForbidden.
func (r *repository) MarkRead(
	ctx context.Context,
	messageID, receiverID string,
) (*Message, error) {
	query := `
		UPDATE messages SET read = TRUE
		WHERE id = $1 AND receiver_id = $2
		RETURNING ` + messageColumns

	var m Message
	err := r.db.GetContext(ctx, &m, query, messageID, receiverID)
	if err == nil {
		return &m, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("mark message read: %w", err)
	}

	var exists bool
	err = r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM messages WHERE id = $1)`, messageID)
	if err != nil {
		return nil, fmt.Errorf("mark message read: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("mark message read: %w", core.ErrNotFound)
	}
	return nil, fmt.Errorf("mark message read: %w", core.ErrForbidden)
}
