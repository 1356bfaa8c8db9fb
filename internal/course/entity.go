// AngelaMos | 2026
// entity.go

package course

import (
	"time"
)

type Course struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	AuthorID    string    `db:"author_id"`
	IsPublished bool      `db:"is_published"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type Section struct {
	ID        string    `db:"id"`
	CourseID  string    `db:"course_id"`
	Title     string    `db:"title"`
	Position  int       `db:"position"`
	CreatedAt time.Time `db:"created_at"`
}

type Lesson struct {
	ID        string    `db:"id"`
	SectionID string    `db:"section_id"`
	Title     string    `db:"title"`
	Content   string    `db:"content"`
	Position  int       `db:"position"`
	CreatedAt time.Time `db:"created_at"`
}

// Tree is a course with its sections and lessons in position order.
type Tree struct {
	Course   Course
	Sections []SectionTree
}

type SectionTree struct {
	Section
	Lessons []Lesson
}

type LessonProgress struct {
	ID          string     `db:"id"`
	LessonID    string     `db:"lesson_id"`
	UserID      string     `db:"user_id"`
	Completed   bool       `db:"completed"`
	CompletedAt *time.Time `db:"completed_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// Enrollment is derived from lesson progress and never edited directly.
type Enrollment struct {
	ID          string     `db:"id"`
	CourseID    string     `db:"course_id"`
	UserID      string     `db:"user_id"`
	Progress    int        `db:"progress"`
	CompletedAt *time.Time `db:"completed_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`

	// NewlyCompleted reports that this write moved the enrollment to 100.
	NewlyCompleted bool `db:"newly_completed"`
}

type Summary struct {
	TotalLessons       int
	CompletedLessons   int
	PercentageComplete int
}

type Overview struct {
	TotalCourses       int
	CompletedCourses   int
	PercentageComplete int
}

// ProgressResult is the outcome of one lesson progress update.
type ProgressResult struct {
	LessonProgress LessonProgress
	Enrollment     Enrollment
	Summary        Summary
}
