// AngelaMos | 2026
// service.go

package space

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/community-api/internal/core"
)

var (
	ErrNotJoinable = errors.New("space is not open for joining")
	ErrNotMember   = errors.New("not a member of this space")
)

var slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

type Service struct {
	repo   Repository
	tx     core.Transactor
	logger *slog.Logger
}

func NewService(repo Repository, tx core.Transactor, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		tx:     tx,
		logger: logger.With("component", "space"),
	}
}

// Create stores the space and makes the creator its owner.
func (s *Service) Create(
	ctx context.Context,
	creatorID string,
	req CreateSpaceRequest,
) (*Space, error) {
	slug := Slugify(req.Slug)
	if slug == "" {
		slug = Slugify(req.Name)
	}
	if slug == "" {
		return nil, fmt.Errorf("create space: empty slug: %w", core.ErrInvalidInput)
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = VisibilityPublic
	}

	sp := &Space{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(req.Name),
		Slug:        slug,
		Description: strings.TrimSpace(req.Description),
		Visibility:  visibility,
		CreatorID:   creatorID,
		MemberCount: 1,
	}

	err := s.tx.WithinTx(ctx, func(tx core.DBTX) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, sp); err != nil {
			return err
		}
		return repo.AddMember(ctx, sp.ID, creatorID, MemberRoleOwner)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("space created", "space_id", sp.ID, "slug", sp.Slug, "creator_id", creatorID)
	return sp, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Space, error) {
	return s.repo.ListVisible(ctx, userID)
}

// Get hides secret spaces from non-members.
func (s *Service) Get(ctx context.Context, spaceID, userID string) (*Space, error) {
	sp, err := s.repo.GetByID(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	if sp.Visibility == VisibilitySecret {
		member, err := s.repo.IsMember(ctx, spaceID, userID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, fmt.Errorf("get space: %w", core.ErrNotFound)
		}
	}

	return sp, nil
}

// Join adds userID to a public space. Joining twice is a no-op.
func (s *Service) Join(ctx context.Context, spaceID, userID string) error {
	sp, err := s.Get(ctx, spaceID, userID)
	if err != nil {
		return err
	}

	if !sp.IsPublic() {
		member, err := s.repo.IsMember(ctx, spaceID, userID)
		if err != nil {
			return err
		}
		if member {
			return nil
		}
		return fmt.Errorf("join space: %w: %w", ErrNotJoinable, core.ErrForbidden)
	}

	return s.repo.AddMember(ctx, spaceID, userID, MemberRoleMember)
}

func (s *Service) Leave(ctx context.Context, spaceID, userID string) error {
	err := s.repo.RemoveMember(ctx, spaceID, userID)
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("leave space: %w: %w", ErrNotMember, core.ErrNotFound)
	}
	return err
}

// CanView reports whether userID may read the space's posts. Public
// spaces are open to everyone; private and secret ones to members only.
func (s *Service) CanView(ctx context.Context, spaceID, userID string) error {
	return s.requireMember(ctx, "read space", spaceID, userID)
}

// CanPost follows the same rule as CanView.
func (s *Service) CanPost(ctx context.Context, spaceID, userID string) error {
	return s.requireMember(ctx, "post to space", spaceID, userID)
}

// requireMember passes for public spaces and for members elsewhere.
// Secret spaces look absent to non-members.
func (s *Service) requireMember(ctx context.Context, op, spaceID, userID string) error {
	sp, err := s.Get(ctx, spaceID, userID)
	if err != nil {
		return err
	}

	if sp.IsPublic() {
		return nil
	}

	member, err := s.repo.IsMember(ctx, spaceID, userID)
	if err != nil {
		return err
	}
	if !member {
		return fmt.Errorf("%s: %w: %w", op, ErrNotMember, core.ErrForbidden)
	}
	return nil
}

// Slugify lowercases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	slug := slugSeparators.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 60 {
		slug = strings.TrimRight(slug[:60], "-")
	}
	return slug
}
