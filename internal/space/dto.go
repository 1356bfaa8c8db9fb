// AngelaMos | 2026
// dto.go

package space

import (
	"time"
)

type CreateSpaceRequest struct {
	Name        string `json:"name"        validate:"required,min=1,max=100"`
	Slug        string `json:"slug"        validate:"omitempty,min=2,max=60"`
	Description string `json:"description" validate:"max=1000"`
	Visibility  string `json:"visibility"  validate:"omitempty,oneof=public private secret"`
}

type SpaceResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Visibility  string    `json:"visibility"`
	CreatorID   string    `json:"creatorId"`
	MemberCount int       `json:"memberCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

func ToSpaceResponse(s *Space) SpaceResponse {
	return SpaceResponse{
		ID:          s.ID,
		Name:        s.Name,
		Slug:        s.Slug,
		Description: s.Description,
		Visibility:  s.Visibility,
		CreatorID:   s.CreatorID,
		MemberCount: s.MemberCount,
		CreatedAt:   s.CreatedAt,
	}
}

func ToSpaceResponseList(spaces []Space) []SpaceResponse {
	out := make([]SpaceResponse, 0, len(spaces))
	for i := range spaces {
		out = append(out, ToSpaceResponse(&spaces[i]))
	}
	return out
}
