// AngelaMos | 2026
// dto.go

package post

import (
	"time"
)

type CreatePostRequest struct {
	Title   string `json:"title"   validate:"required,min=1,max=200"`
	Content string `json:"content" validate:"required,min=1,max=20000"`
	SpaceID string `json:"spaceId" validate:"required,uuid"`
}

type PostResponse struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	AuthorID       string    `json:"authorId"`
	AuthorUsername string    `json:"authorUsername,omitempty"`
	SpaceID        string    `json:"spaceId"`
	Mentions       []string  `json:"mentions,omitempty"`
	Hashtags       []string  `json:"hashtags,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

type HashtagResponse struct {
	Name       string    `json:"name"`
	Count      int       `json:"count"`
	LastUsedAt time.Time `json:"lastUsedAt"`
}

// MaxPage bounds page so Offset cannot overflow.
const MaxPage = 10_000

type ListParams struct {
	Page     int
	PageSize int
}

func (p *ListParams) Normalize() {
	p.Page = min(max(p.Page, 1), MaxPage)
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToPostResponse(p *Post, ex *Extraction) PostResponse {
	resp := PostResponse{
		ID:             p.ID,
		Title:          p.Title,
		Content:        p.Content,
		AuthorID:       p.AuthorID,
		AuthorUsername: p.AuthorUsername,
		SpaceID:        p.SpaceID,
		CreatedAt:      p.CreatedAt,
	}
	if ex != nil {
		resp.Mentions = ex.Mentions
		resp.Hashtags = ex.Hashtags
	}
	return resp
}

func ToPostResponseList(posts []Post) []PostResponse {
	out := make([]PostResponse, 0, len(posts))
	for i := range posts {
		out = append(out, ToPostResponse(&posts[i], nil))
	}
	return out
}

func ToHashtagResponseList(tags []Hashtag) []HashtagResponse {
	out := make([]HashtagResponse, 0, len(tags))
	for _, t := range tags {
		out = append(out, HashtagResponse{
			Name:       t.Name,
			Count:      t.Count,
			LastUsedAt: t.LastUsedAt,
		})
	}
	return out
}
