// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/community-api/internal/auth"
	"github.com/carterperez-dev/community-api/internal/core"
	"github.com/carterperez-dev/community-api/internal/notification"
)

// Notifier records a notification inside the caller's transaction and
// pushes it once that transaction has committed.
type Notifier interface {
	Record(
		ctx context.Context,
		db core.DBTX,
		in notification.Input,
	) (*notification.Notification, error)
	Push(ctx context.Context, n *notification.Notification)
}

var (
	ErrSelfBlock   = errors.New("cannot block yourself")
	ErrBlockAdmin  = errors.New("moderators cannot block admins")
	ErrDeleteAdmin = errors.New("cannot delete admin users")
)

type Service struct {
	repo     Repository
	tx       core.Transactor
	notifier Notifier
	logger   *slog.Logger
}

func NewService(
	repo Repository,
	tx core.Transactor,
	notifier Notifier,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:     repo,
		tx:       tx,
		notifier: notifier,
		logger:   logger.With("component", "user"),
	}
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

// Create registers a pending account with default preferences.
func (s *Service) Create(
	ctx context.Context,
	in auth.NewUserInfo,
) (*auth.UserInfo, error) {
	user := &User{
		ID:                 uuid.New().String(),
		Email:              strings.ToLower(in.Email),
		Username:           in.Username,
		PasswordHash:       in.PasswordHash,
		DisplayName:        in.DisplayName,
		Role:               RoleUser,
		Status:             StatusPending,
		Theme:              ThemeSystem,
		EmailNotifications: true,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, ErrUsernameTaken):
			return nil, auth.ErrUsernameExists
		case errors.Is(err, ErrEmailTaken):
			return nil, auth.ErrEmailExists
		}
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) IncrementTokenVersion(
	ctx context.Context,
	userID string,
) error {
	return s.repo.IncrementTokenVersion(ctx, userID)
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	userID, passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

// CurrentStatus reads the stored account status for the approval gate.
func (s *Service) CurrentStatus(
	ctx context.Context,
	userID string,
) (string, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Status, nil
}

// ResolveUsernames maps each username that names a live account to its
// user id. Unknown names are absent from the result.
func (s *Service) ResolveUsernames(
	ctx context.Context,
	usernames []string,
) (map[string]string, error) {
	users, err := s.repo.ListByUsernames(ctx, usernames)
	if err != nil {
		return nil, err
	}

	resolved := make(map[string]string, len(users))
	for _, u := range users {
		resolved[u.Username] = u.ID
	}
	return resolved, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, userID)
}

func (s *Service) UpdateMe(
	ctx context.Context,
	userID string,
	req UpdateUserRequest,
) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("update me: %w", core.ErrUnauthorized)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*req.DisplayName)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *Service) UpdatePreferences(
	ctx context.Context,
	userID string,
	req UpdatePreferencesRequest,
) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("update preferences: %w", core.ErrUnauthorized)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Theme != nil {
		user.Theme = *req.Theme
	}
	if req.EmailNotifications != nil {
		user.EmailNotifications = *req.EmailNotifications
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *Service) DeleteMe(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("delete me: %w", core.ErrUnauthorized)
	}

	return s.repo.SoftDelete(ctx, userID)
}

func (s *Service) UpdateUserRole(
	ctx context.Context,
	id, role string,
) (*User, error) {
	if !validRole(role) {
		return nil, fmt.Errorf(
			"update role: invalid role %q: %w",
			role,
			core.ErrInvalidInput,
		)
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return user, nil
	}

	previous := user.Role
	user.Role = role

	// Access tokens carry the role, so outstanding ones are revoked and the
	// next refresh picks up the new claims.
	err = s.tx.WithinTx(ctx, func(tx core.DBTX) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Update(ctx, user); err != nil {
			return err
		}
		return repo.IncrementTokenVersion(ctx, user.ID)
	})
	if err != nil {
		return nil, err
	}
	user.TokenVersion++

	s.logger.Info("user role changed",
		"user_id", user.ID,
		"from", previous,
		"to", role,
	)

	return user, nil
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	return s.repo.SoftDelete(ctx, id)
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()
	return s.repo.List(ctx, params)
}

func (s *Service) CountByStatus(ctx context.Context, status string) (int, error) {
	_, total, err := s.repo.List(ctx, ListUsersParams{Page: 1, PageSize: 1, Status: status})
	return total, err
}

func (s *Service) CanDeleteUser(
	ctx context.Context,
	requesterID, targetID string,
) error {
	if requesterID == targetID {
		return nil
	}

	requester, err := s.repo.GetByID(ctx, requesterID)
	if err != nil {
		return err
	}

	if !requester.IsAdmin() {
		return fmt.Errorf("delete user: %w", core.ErrForbidden)
	}

	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}

	if target.IsAdmin() {
		return fmt.Errorf("delete user: %w: %w", ErrDeleteAdmin, core.ErrForbidden)
	}

	return nil
}

// Approve moves the target to approved and tells them so.
func (s *Service) Approve(
	ctx context.Context,
	actorID, targetID string,
) (*User, error) {
	return s.moderate(ctx, actorID, targetID, StatusApproved, notification.Input{
		Title:   "Account approved",
		Content: "Your account has been approved. Welcome to the community!",
		Type:    notification.TypeAccountApproved,
		Link:    "/",
	})
}

// Block moves the target to blocked. Moderators cannot block admins and
// nobody can block themselves.
func (s *Service) Block(
	ctx context.Context,
	actorID, actorRole, targetID string,
) (*User, error) {
	if actorID == targetID {
		return nil, fmt.Errorf("block user: %w: %w", ErrSelfBlock, core.ErrForbidden)
	}

	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if target.IsAdmin() && actorRole != RoleAdmin {
		return nil, fmt.Errorf("block user: %w: %w", ErrBlockAdmin, core.ErrForbidden)
	}

	return s.moderate(ctx, actorID, targetID, StatusBlocked, notification.Input{
		Title:   "Account blocked",
		Content: "Your account has been blocked by a moderator.",
		Type:    notification.TypeAccountBlocked,
	})
}

func (s *Service) moderate(
	ctx context.Context,
	actorID, targetID, status string,
	note notification.Input,
) (*User, error) {
	var (
		updated *User
		sent    *notification.Notification
	)

	err := s.tx.WithinTx(ctx, func(tx core.DBTX) error {
		u, err := s.repo.WithTx(tx).UpdateStatus(ctx, targetID, status)
		if err != nil {
			return err
		}
		updated = u

		note.UserID = u.ID
		n, err := s.notifier.Record(ctx, tx, note)
		if err != nil {
			return fmt.Errorf("record %s notification: %w", note.Type, err)
		}
		sent = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Push(ctx, sent)
	s.logger.Info("account status changed",
		"user_id", targetID,
		"status", status,
		"actor_id", actorID,
	)

	return updated, nil
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		DisplayName:  u.DisplayName,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		Status:       u.Status,
		TokenVersion: u.TokenVersion,
		CreatedAt:    u.CreatedAt,
	}
}

var _ auth.UserProvider = (*Service)(nil)
