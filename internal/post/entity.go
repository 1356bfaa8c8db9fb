// AngelaMos | 2026
// entity.go

package post

import (
	"time"
)

type Post struct {
	ID             string    `db:"id"`
	Title          string    `db:"title"`
	Content        string    `db:"content"`
	AuthorID       string    `db:"author_id"`
	AuthorUsername string    `db:"author_username"`
	SpaceID        string    `db:"space_id"`
	CreatedAt      time.Time `db:"created_at"`
}

type Hashtag struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	Count      int       `db:"count"`
	LastUsedAt time.Time `db:"last_used_at"`
	CreatedAt  time.Time `db:"created_at"`
}

// Extraction is what the extractor linked to a post.
type Extraction struct {
	MentionedUserIDs []string
	Mentions         []string
	Hashtags         []string
}
