// AngelaMos | 2026
// repository.go

package space

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/community-api/internal/core"
)

type Repository interface {
	WithTx(tx core.DBTX) Repository
	Create(ctx context.Context, s *Space) error
	GetByID(ctx context.Context, id string) (*Space, error)
	ListVisible(ctx context.Context, userID string) ([]Space, error)
	AddMember(ctx context.Context, spaceID, userID, role string) error
	RemoveMember(ctx context.Context, spaceID, userID string) error
	IsMember(ctx context.Context, spaceID, userID string) (bool, error)
}

var ErrSlugTaken = errors.New("space slug already taken")

const spaceColumns = `
	s.id, s.name, s.slug, s.description, s.visibility, s.creator_id, s.created_at,
	(SELECT COUNT(*) FROM space_members m WHERE m.space_id = s.id) AS member_count`

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx core.DBTX) Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, s *Space) error {
	query := `
		INSERT INTO spaces (id, name, slug, description, visibility, creator_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &s.CreatedAt, query,
		s.ID,
		s.Name,
		s.Slug,
		s.Description,
		s.Visibility,
		s.CreatorID,
	)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create space: %w: %w", ErrSlugTaken, core.ErrDuplicateKey)
		}
		return fmt.Errorf("create space: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Space, error) {
	query := `SELECT ` + spaceColumns + `
		FROM spaces s
		WHERE s.id = $1`

	var s Space
	err := r.db.GetContext(ctx, &s, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get space: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get space: %w", err)
	}

	return &s, nil
}

// ListVisible returns public and private spaces plus the secret spaces
// userID belongs to.
func (r *repository) ListVisible(ctx context.Context, userID string) ([]Space, error) {
	query := `SELECT ` + spaceColumns + `
		FROM spaces s
		WHERE s.visibility <> 'secret'
		   OR EXISTS (
		       SELECT 1 FROM space_members m
		       WHERE m.space_id = s.id AND m.user_id = $1
		   )
		ORDER BY s.name ASC`

	var spaces []Space
	if err := r.db.SelectContext(ctx, &spaces, query, userID); err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}

	return spaces, nil
}

// AddMember is idempotent; an existing membership keeps its role.
func (r *repository) AddMember(
	ctx context.Context,
	spaceID, userID, role string,
) error {
	query := `
		INSERT INTO space_members (space_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (space_id, user_id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, spaceID, userID, role); err != nil {
		if core.IsForeignKeyError(err) {
			return fmt.Errorf("add member: %w", core.ErrNotFound)
		}
		return fmt.Errorf("add member: %w", err)
	}

	return nil
}

func (r *repository) RemoveMember(ctx context.Context, spaceID, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM space_members WHERE space_id = $1 AND user_id = $2`,
		spaceID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("remove member: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) IsMember(ctx context.Context, spaceID, userID string) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok,
		`SELECT EXISTS(SELECT 1 FROM space_members WHERE space_id = $1 AND user_id = $2)`,
		spaceID, userID)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}

	return ok, nil
}
