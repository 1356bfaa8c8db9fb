// AngelaMos | 2026
// repository.go

package post

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/carterperez-dev/community-api/internal/core"
)

type Repository interface {
	WithTx(tx core.DBTX) Repository
	Create(ctx context.Context, p *Post) error
	GetByID(ctx context.Context, id string) (*Post, error)
	ListBySpace(ctx context.Context, spaceID string, params ListParams) ([]Post, int, error)
	ListByHashtag(ctx context.Context, name, viewerID string, params ListParams) ([]Post, int, error)
	UpsertHashtag(ctx context.Context, name string) (*Hashtag, error)
	LinkHashtag(ctx context.Context, postID, hashtagID string) error
	CreateMention(ctx context.Context, postID, userID string) error
	Trending(ctx context.Context, limit int) ([]Hashtag, error)
}

const postColumns = `
	p.id, p.title, p.content, p.author_id, p.space_id, p.created_at,
	COALESCE(u.username, '') AS author_username`

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx core.DBTX) Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, p *Post) error {
	query := `
		INSERT INTO posts (id, title, content, author_id, space_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &p.CreatedAt, query,
		p.ID,
		p.Title,
		p.Content,
		p.AuthorID,
		p.SpaceID,
	)
	if err != nil {
		if core.IsForeignKeyError(err) {
			return fmt.Errorf("create post: %w", core.ErrNotFound)
		}
		return fmt.Errorf("create post: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Post, error) {
	query := `SELECT ` + postColumns + `
		FROM posts p
		LEFT JOIN users u ON u.id = p.author_id
		WHERE p.id = $1`

	var p Post
	err := r.db.GetContext(ctx, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get post: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}

	return &p, nil
}

func (r *repository) ListBySpace(
	ctx context.Context,
	spaceID string,
	params ListParams,
) ([]Post, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM posts WHERE space_id = $1`, spaceID); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	query := `SELECT ` + postColumns + `
		FROM posts p
		LEFT JOIN users u ON u.id = p.author_id
		WHERE p.space_id = $1
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $2 OFFSET $3`

	var posts []Post
	if err := r.db.SelectContext(ctx, &posts, query,
		spaceID, params.PageSize, params.Offset()); err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}

	return posts, total, nil
}

// ListByHashtag returns tagged posts from public spaces and from spaces
// viewerID belongs to.
func (r *repository) ListByHashtag(
	ctx context.Context,
	name, viewerID string,
	params ListParams,
) ([]Post, int, error) {
	from := `
		FROM posts p
		JOIN post_hashtags ph ON ph.post_id = p.id
		JOIN hashtags h ON h.id = ph.hashtag_id
		JOIN spaces s ON s.id = p.space_id
		LEFT JOIN users u ON u.id = p.author_id
		WHERE h.name = $1
		  AND (s.visibility = 'public' OR EXISTS (
		      SELECT 1 FROM space_members m
		      WHERE m.space_id = s.id AND m.user_id = $2))`

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) `+from, name, viewerID); err != nil {
		return nil, 0, fmt.Errorf("count tagged posts: %w", err)
	}

	query := `SELECT ` + postColumns + from + `
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $3 OFFSET $4`

	var posts []Post
	if err := r.db.SelectContext(ctx, &posts, query,
		name, viewerID, params.PageSize, params.Offset()); err != nil {
		return nil, 0, fmt.Errorf("list tagged posts: %w", err)
	}

	return posts, total, nil
}

// UpsertHashtag inserts the tag with count 1 or increments an existing
// one in a single statement, so concurrent posts never lose an update.
func (r *repository) UpsertHashtag(ctx context.Context, name string) (*Hashtag, error) {
	query := `
		INSERT INTO hashtags (id, name, count, last_used_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (name) DO UPDATE
		SET count = hashtags.count + 1,
		    last_used_at = NOW()
		RETURNING id, name, count, last_used_at, created_at`

	var h Hashtag
	if err := r.db.GetContext(ctx, &h, query, uuid.New().String(), name); err != nil {
		return nil, fmt.Errorf("upsert hashtag %q: %w", name, err)
	}

	return &h, nil
}

func (r *repository) LinkHashtag(ctx context.Context, postID, hashtagID string) error {
	query := `
		INSERT INTO post_hashtags (post_id, hashtag_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, postID, hashtagID); err != nil {
		return fmt.Errorf("link hashtag: %w", err)
	}

	return nil
}

func (r *repository) CreateMention(ctx context.Context, postID, userID string) error {
	query := `
		INSERT INTO mentions (id, post_id, user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (post_id, user_id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, uuid.New().String(), postID, userID); err != nil {
		return fmt.Errorf("create mention: %w", err)
	}

	return nil
}

func (r *repository) Trending(ctx context.Context, limit int) ([]Hashtag, error) {
	query := `
		SELECT id, name, count, last_used_at, created_at
		FROM hashtags
		ORDER BY count DESC, last_used_at DESC
		LIMIT $1`

	var tags []Hashtag
	if err := r.db.SelectContext(ctx, &tags, query, limit); err != nil {
		return nil, fmt.Errorf("trending hashtags: %w", err)
	}

	return tags, nil
}
