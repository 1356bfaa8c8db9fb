// AngelaMos | 2026
// service.go

package post

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/community-api/internal/core"
	"github.com/carterperez-dev/community-api/internal/metrics"
	"github.com/carterperez-dev/community-api/internal/notification"
)

const (
	TrendingLimit    = 20
	maxTrendingLimit = 100
)

type SpaceAccess interface {
	CanView(ctx context.Context, spaceID, userID string) error
	CanPost(ctx context.Context, spaceID, userID string) error
}

// UserResolver maps usernames to user ids, omitting unknown names.
type UserResolver interface {
	ResolveUsernames(ctx context.Context, usernames []string) (map[string]string, error)
}

type Notifier interface {
	Notify(ctx context.Context, in notification.Input) (*notification.Notification, error)
}

// Author identifies the caller creating a post.
type Author struct {
	ID       string
	Username string
}

type Service struct {
	repo     Repository
	tx       core.Transactor
	spaces   SpaceAccess
	users    UserResolver
	notifier Notifier
	logger   *slog.Logger
}

func NewService(
	repo Repository,
	tx core.Transactor,
	spaces SpaceAccess,
	users UserResolver,
	notifier Notifier,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:     repo,
		tx:       tx,
		spaces:   spaces,
		users:    users,
		notifier: notifier,
		logger:   logger.With("component", "post"),
	}
}

// Create stores the post and then links its mentions and hashtags.
// Linking runs in its own transaction; if it fails the post still stands
// and the returned extraction is nil.
func (s *Service) Create(
	ctx context.Context,
	author Author,
	req CreatePostRequest,
) (p *Post, ex *Extraction, err error) {
	ctx, span := core.StartSpan(ctx, "post.create",
		attribute.String("space.id", req.SpaceID),
	)
	defer func() { core.EndSpan(span, err) }()

	if err := s.spaces.CanPost(ctx, req.SpaceID, author.ID); err != nil {
		return nil, nil, err
	}

	p = &Post{
		ID:             uuid.New().String(),
		Title:          strings.TrimSpace(req.Title),
		Content:        req.Content,
		AuthorID:       author.ID,
		AuthorUsername: author.Username,
		SpaceID:        req.SpaceID,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, nil, err
	}

	ex, exErr := s.extract(ctx, p)
	if exErr != nil {
		s.logger.Error("post extraction failed",
			"post_id", p.ID,
			"error", exErr,
		)
		return p, nil, nil
	}

	s.notifyMentions(ctx, p, ex)
	return p, ex, nil
}

func (s *Service) extract(ctx context.Context, p *Post) (*Extraction, error) {
	tokens := Extract(p.Content)
	ex := &Extraction{}
	if tokens.Empty() {
		return ex, nil
	}

	ctx, span := core.StartSpan(ctx, "post.extract",
		attribute.Int("mentions", len(tokens.Mentions)),
		attribute.Int("hashtags", len(tokens.Hashtags)),
	)

	var resolved map[string]string
	if len(tokens.Mentions) > 0 {
		var err error
		resolved, err = s.users.ResolveUsernames(ctx, tokens.Mentions)
		if err != nil {
			core.EndSpan(span, err)
			return nil, fmt.Errorf("resolve mentions: %w", err)
		}
		core.AddSpanEvent(ctx, "mentions.resolved",
			attribute.Int("resolved", len(resolved)),
		)
	}

	for _, name := range tokens.Mentions {
		if userID, ok := resolved[name]; ok {
			ex.Mentions = append(ex.Mentions, name)
			ex.MentionedUserIDs = append(ex.MentionedUserIDs, userID)
		}
	}

	// Rows are written in sorted order so two posts sharing tags always
	// take their row locks in the same sequence and cannot deadlock.
	linked := make(map[string]string, len(tokens.Hashtags))

	err := s.tx.WithinTx(ctx, func(tx core.DBTX) error {
		repo := s.repo.WithTx(tx)

		for _, userID := range slices.Sorted(slices.Values(ex.MentionedUserIDs)) {
			if err := repo.CreateMention(ctx, p.ID, userID); err != nil {
				return err
			}
		}

		for _, name := range slices.Sorted(slices.Values(tokens.Hashtags)) {
			tag, err := repo.UpsertHashtag(ctx, name)
			if err != nil {
				return err
			}
			metrics.HashtagUpserts.Inc()
			if err := repo.LinkHashtag(ctx, p.ID, tag.ID); err != nil {
				return err
			}
			linked[name] = tag.Name
		}

		return nil
	})
	core.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	for _, name := range tokens.Hashtags {
		ex.Hashtags = append(ex.Hashtags, linked[name])
	}
	return ex, nil
}

func (s *Service) notifyMentions(ctx context.Context, p *Post, ex *Extraction) {
	author := "@" + p.AuthorUsername
	if p.AuthorUsername == "" {
		author = "Someone"
	}

	for _, userID := range ex.MentionedUserIDs {
		if userID == p.AuthorID {
			continue
		}
		_, err := s.notifier.Notify(ctx, notification.Input{
			UserID:  userID,
			Title:   "You were mentioned",
			Content: fmt.Sprintf("%s mentioned you in %q", author, p.Title),
			Type:    notification.TypeMention,
			Link:    "/posts/" + p.ID,
		})
		if err != nil {
			s.logger.Warn("mention notification failed",
				"post_id", p.ID,
				"user_id", userID,
				"error", err,
			)
		}
	}
}

func (s *Service) Get(ctx context.Context, postID, userID string) (*Post, error) {
	p, err := s.repo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	if err := s.spaces.CanView(ctx, p.SpaceID, userID); err != nil {
		return nil, fmt.Errorf("get post: %w", core.ErrNotFound)
	}

	return p, nil
}

func (s *Service) ListBySpace(
	ctx context.Context,
	spaceID, userID string,
	params ListParams,
) ([]Post, int, error) {
	if err := s.spaces.CanView(ctx, spaceID, userID); err != nil {
		return nil, 0, err
	}

	params.Normalize()
	return s.repo.ListBySpace(ctx, spaceID, params)
}

func (s *Service) ListByHashtag(
	ctx context.Context,
	name, userID string,
	params ListParams,
) ([]Post, int, error) {
	params.Normalize()
	return s.repo.ListByHashtag(ctx, strings.TrimPrefix(name, "#"), userID, params)
}

func (s *Service) Trending(ctx context.Context, limit int) ([]Hashtag, error) {
	if limit < 1 {
		limit = TrendingLimit
	}
	if limit > maxTrendingLimit {
		limit = maxTrendingLimit
	}
	return s.repo.Trending(ctx, limit)
}
