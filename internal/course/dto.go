// AngelaMos | 2026
// dto.go

package course

import (
	"time"
)

type CreateCourseRequest struct {
	Title       string                 `json:"title"       validate:"required,min=1,max=200"`
	Description string                 `json:"description" validate:"max=5000"`
	Published   bool                   `json:"published"`
	Sections    []CreateSectionRequest `json:"sections"    validate:"max=100,dive"`
}

type CreateSectionRequest struct {
	Title   string                `json:"title"   validate:"required,min=1,max=200"`
	Lessons []CreateLessonRequest `json:"lessons" validate:"max=200,dive"`
}

type CreateLessonRequest struct {
	Title   string `json:"title"   validate:"required,min=1,max=200"`
	Content string `json:"content" validate:"max=100000"`
}

// UpdateProgressRequest uses a pointer so an explicit false is accepted
// and a missing field is rejected.
type UpdateProgressRequest struct {
	LessonID  string `json:"lessonId"  validate:"required,uuid"`
	Completed *bool  `json:"completed" validate:"required"`
}

type CourseResponse struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	AuthorID    string            `json:"authorId"`
	IsPublished bool              `json:"isPublished"`
	CreatedAt   time.Time         `json:"createdAt"`
	Sections    []SectionResponse `json:"sections,omitempty"`
}

type SectionResponse struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Position int              `json:"position"`
	Lessons  []LessonResponse `json:"lessons"`
}

type LessonResponse struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Position int    `json:"position"`
}

type LessonProgressResponse struct {
	ID          string     `json:"id"`
	LessonID    string     `json:"lessonId"`
	UserID      string     `json:"userId"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type SummaryResponse struct {
	TotalLessons       int `json:"totalLessons"`
	CompletedLessons   int `json:"completedLessons"`
	PercentageComplete int `json:"percentageComplete"`
}

type UpdateProgressResponse struct {
	LessonProgress LessonProgressResponse `json:"lessonProgress"`
	CourseProgress SummaryResponse        `json:"courseProgress"`
}

type OverviewResponse struct {
	TotalCourses       int `json:"totalCourses"`
	CompletedCourses   int `json:"completedCourses"`
	PercentageComplete int `json:"percentageComplete"`
}

func ToCourseResponse(c *Course) CourseResponse {
	return CourseResponse{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		AuthorID:    c.AuthorID,
		IsPublished: c.IsPublished,
		CreatedAt:   c.CreatedAt,
	}
}

func ToCourseResponseList(courses []Course) []CourseResponse {
	out := make([]CourseResponse, 0, len(courses))
	for i := range courses {
		out = append(out, ToCourseResponse(&courses[i]))
	}
	return out
}

func ToTreeResponse(t *Tree) CourseResponse {
	resp := ToCourseResponse(&t.Course)
	resp.Sections = make([]SectionResponse, 0, len(t.Sections))

	for _, s := range t.Sections {
		sec := SectionResponse{
			ID:       s.ID,
			Title:    s.Title,
			Position: s.Position,
			Lessons:  make([]LessonResponse, 0, len(s.Lessons)),
		}
		for _, l := range s.Lessons {
			sec.Lessons = append(sec.Lessons, LessonResponse{
				ID:       l.ID,
				Title:    l.Title,
				Content:  l.Content,
				Position: l.Position,
			})
		}
		resp.Sections = append(resp.Sections, sec)
	}

	return resp
}

func ToSummaryResponse(s Summary) SummaryResponse {
	return SummaryResponse{
		TotalLessons:       s.TotalLessons,
		CompletedLessons:   s.CompletedLessons,
		PercentageComplete: s.PercentageComplete,
	}
}

func ToUpdateProgressResponse(res *ProgressResult) UpdateProgressResponse {
	lp := res.LessonProgress
	return UpdateProgressResponse{
		LessonProgress: LessonProgressResponse{
			ID:          lp.ID,
			LessonID:    lp.LessonID,
			UserID:      lp.UserID,
			Completed:   lp.Completed,
			CompletedAt: lp.CompletedAt,
			UpdatedAt:   lp.UpdatedAt,
		},
		CourseProgress: ToSummaryResponse(res.Summary),
	}
}

func ToOverviewResponse(o Overview) OverviewResponse {
	return OverviewResponse{
		TotalCourses:       o.TotalCourses,
		CompletedCourses:   o.CompletedCourses,
		PercentageComplete: o.PercentageComplete,
	}
}
