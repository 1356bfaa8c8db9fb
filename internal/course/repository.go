// AngelaMos | 2026
// repository.go

package course

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
	CreateCourse(ctx context.Context, c *Course) error
	CreateSection(ctx context.Context, s *Section) error
	CreateLesson(ctx context.Context, l *Lesson) error
	GetByID(ctx context.Context, id string) (*Course, error)
	List(ctx context.Context, includeDrafts bool) ([]Course, error)
	ListSections(ctx context.Context, courseID string) ([]Section, error)
	ListLessons(ctx context.Context, courseID string) ([]Lesson, error)
	CourseForLesson(ctx context.Context, courseID, lessonID string) (*Course, error)
	UpsertLessonProgress(ctx context.Context, lessonID, userID string, completed bool) (*LessonProgress, error)
	CountProgress(ctx context.Context, courseID, userID string) (total, completed int, err error)
	UpsertEnrollment(ctx context.Context, courseID, userID string, progress int) (*Enrollment, error)
	CountEnrollments(ctx context.Context, userID string) (total, completed int, err error)
}

const courseColumns = `
	id, title, description, author_id, is_published, created_at, updated_at`

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx core.DBTX) Repository {
	return &repository{db: tx}
}

func (r *repository) CreateCourse(ctx context.Context, c *Course) error {
	query := `
		INSERT INTO courses (id, title, description, author_id, is_published)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		c.ID,
		c.Title,
		c.Description,
		c.AuthorID,
		c.IsPublished,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create course: %w", err)
	}

	return nil
}

func (r *repository) CreateSection(ctx context.Context, s *Section) error {
	query := `
		INSERT INTO course_sections (id, course_id, title, position)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &s.CreatedAt, query, s.ID, s.CourseID, s.Title, s.Position)
	if err != nil {
		return fmt.Errorf("create section: %w", err)
	}

	return nil
}

func (r *repository) CreateLesson(ctx context.Context, l *Lesson) error {
	query := `
		INSERT INTO lessons (id, section_id, title, content, position)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &l.CreatedAt, query,
		l.ID,
		l.SectionID,
		l.Title,
		l.Content,
		l.Position,
	)
	if err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`

	var c Course
	err := r.db.GetContext(ctx, &c, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get course: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}

	return &c, nil
}

func (r *repository) List(ctx context.Context, includeDrafts bool) ([]Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses
		WHERE is_published OR $1
		ORDER BY created_at DESC`

	var courses []Course
	if err := r.db.SelectContext(ctx, &courses, query, includeDrafts); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}

	return courses, nil
}

func (r *repository) ListSections(ctx context.Context, courseID string) ([]Section, error) {
	query := `
		SELECT id, course_id, title, position, created_at
		FROM course_sections
		WHERE course_id = $1
		ORDER BY position`

	var sections []Section
	if err := r.db.SelectContext(ctx, &sections, query, courseID); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}

	return sections, nil
}

func (r *repository) ListLessons(ctx context.Context, courseID string) ([]Lesson, error) {
	query := `
		SELECT l.id, l.section_id, l.title, l.content, l.position, l.created_at
		FROM lessons l
		JOIN course_sections s ON s.id = l.section_id
		WHERE s.course_id = $1
		ORDER BY s.position, l.position`

	var lessons []Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, courseID); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}

	return lessons, nil
}

// CourseForLesson returns the course only when the lesson sits in one of
// its sections.
func (r *repository) CourseForLesson(
	ctx context.Context,
	courseID, lessonID string,
) (*Course, error) {
	query := `
		SELECT c.id, c.title, c.description, c.author_id, c.is_published,
		       c.created_at, c.updated_at
		FROM lessons l
		JOIN course_sections s ON s.id = l.section_id
		JOIN courses c ON c.id = s.course_id
		WHERE l.id = $1 AND c.id = $2`

	var c Course
	err := r.db.GetContext(ctx, &c, query, lessonID, courseID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lesson %s in course %s: %w", lessonID, courseID, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup lesson course: %w", err)
	}

	return &c, nil
}

func (r *repository) UpsertLessonProgress(
	ctx context.Context,
	lessonID, userID string,
	completed bool,
) (*LessonProgress, error) {
	query := `
		INSERT INTO lesson_progress (id, lesson_id, user_id, completed, completed_at)
		VALUES ($1, $2, $3, $4, CASE WHEN $4 THEN NOW() END)
		ON CONFLICT (lesson_id, user_id) DO UPDATE SET
			completed = EXCLUDED.completed,
			completed_at = CASE
				WHEN EXCLUDED.completed
				THEN COALESCE(lesson_progress.completed_at, NOW())
			END,
			updated_at = NOW()
		RETURNING id, lesson_id, user_id, completed, completed_at, created_at, updated_at`

	var lp LessonProgress
	err := r.db.GetContext(ctx, &lp, query, uuid.New().String(), lessonID, userID, completed)
	if err != nil {
		return nil, fmt.Errorf("upsert lesson progress: %w", err)
	}

	return &lp, nil
}

func (r *repository) CountProgress(
	ctx context.Context,
	courseID, userID string,
) (int, int, error) {
	query := `
		SELECT
			COUNT(l.id) AS total,
			COUNT(p.id) FILTER (WHERE p.completed) AS completed
		FROM lessons l
		JOIN course_sections s ON s.id = l.section_id
		LEFT JOIN lesson_progress p ON p.lesson_id = l.id AND p.user_id = $2
		WHERE s.course_id = $1`

	var row struct {
		Total     int `db:"total"`
		Completed int `db:"completed"`
	}
	if err := r.db.GetContext(ctx, &row, query, courseID, userID); err != nil {
		return 0, 0, fmt.Errorf("count progress: %w", err)
	}

	return row.Total, row.Completed, nil
}

// UpsertEnrollment writes the derived percentage. completed_at is set at
// 100 and keeps its first value on repeated 100 writes.
func (r *repository) UpsertEnrollment(
	ctx context.Context,
	courseID, userID string,
	progress int,
) (*Enrollment, error) {
	query := `
		WITH prev AS (
			SELECT completed_at FROM course_enrollments
			WHERE course_id = $2 AND user_id = $3
		)
		INSERT INTO course_enrollments (id, course_id, user_id, progress, completed_at)
		VALUES ($1, $2, $3, $4, CASE WHEN $4 = 100 THEN NOW() END)
		ON CONFLICT (course_id, user_id) DO UPDATE SET
			progress = EXCLUDED.progress,
			completed_at = CASE
				WHEN EXCLUDED.progress = 100
				THEN COALESCE(course_enrollments.completed_at, NOW())
			END,
			updated_at = NOW()
		RETURNING id, course_id, user_id, progress, completed_at, created_at, updated_at,
			(completed_at IS NOT NULL
			 AND NOT EXISTS (SELECT 1 FROM prev WHERE prev.completed_at IS NOT NULL))
			AS newly_completed`

	var e Enrollment
	err := r.db.GetContext(ctx, &e, query, uuid.New().String(), courseID, userID, progress)
	if err != nil {
		return nil, fmt.Errorf("upsert enrollment: %w", err)
	}

	return &e, nil
}

func (r *repository) CountEnrollments(ctx context.Context, userID string) (int, int, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE completed_at IS NOT NULL) AS completed
		FROM course_enrollments
		WHERE user_id = $1`

	var row struct {
		Total     int `db:"total"`
		Completed int `db:"completed"`
	}
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		return 0, 0, fmt.Errorf("count enrollments: %w", err)
	}

	return row.Total, row.Completed, nil
}
