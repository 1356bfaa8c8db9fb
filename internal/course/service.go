// AngelaMos | 2026
// service.go

package course

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/community-api/internal/core"
	"github.com/carterperez-dev/community-api/internal/metrics"
	"github.com/carterperez-dev/community-api/internal/notification"
)

// Notifier records a notification on the caller's transaction and pushes
// it once that transaction commits.
type Notifier interface {
	Record(ctx context.Context, db core.DBTX, in notification.Input) (*notification.Notification, error)
	Push(ctx context.Context, n *notification.Notification)
}

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
		logger:   logger.With("component", "course"),
	}
}

// Create stores the course with its sections and lessons. Positions
// follow request order and are fixed at creation.
func (s *Service) Create(
	ctx context.Context,
	authorID string,
	req CreateCourseRequest,
) (*Tree, error) {
	tree := &Tree{
		Course: Course{
			ID:          uuid.New().String(),
			Title:       strings.TrimSpace(req.Title),
			Description: req.Description,
			AuthorID:    authorID,
			IsPublished: req.Published,
		},
	}

	err := s.tx.WithinTx(ctx, func(tx core.DBTX) error {
		repo := s.repo.WithTx(tx)

		if err := repo.CreateCourse(ctx, &tree.Course); err != nil {
			return err
		}

		for i, sr := range req.Sections {
			sec := SectionTree{Section: Section{
				ID:       uuid.New().String(),
				CourseID: tree.Course.ID,
				Title:    strings.TrimSpace(sr.Title),
				Position: i + 1,
			}}
			if err := repo.CreateSection(ctx, &sec.Section); err != nil {
				return err
			}

			for j, lr := range sr.Lessons {
				lesson := Lesson{
					ID:        uuid.New().String(),
					SectionID: sec.ID,
					Title:     strings.TrimSpace(lr.Title),
					Content:   lr.Content,
					Position:  j + 1,
				}
				if err := repo.CreateLesson(ctx, &lesson); err != nil {
					return err
				}
				sec.Lessons = append(sec.Lessons, lesson)
			}

			tree.Sections = append(tree.Sections, sec)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("course created",
		"course_id", tree.Course.ID,
		"author_id", authorID,
		"sections", len(tree.Sections),
	)

	return tree, nil
}

func (s *Service) List(ctx context.Context, staff bool) ([]Course, error) {
	return s.repo.List(ctx, staff)
}

// Get returns the course tree. Drafts are visible to staff only.
func (s *Service) Get(ctx context.Context, courseID string, staff bool) (*Tree, error) {
	c, err := s.repo.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !c.IsPublished && !staff {
		return nil, fmt.Errorf("get course: %w", core.ErrNotFound)
	}

	sections, err := s.repo.ListSections(ctx, courseID)
	if err != nil {
		return nil, err
	}
	lessons, err := s.repo.ListLessons(ctx, courseID)
	if err != nil {
		return nil, err
	}

	bySection := make(map[string][]Lesson, len(sections))
	for _, l := range lessons {
		bySection[l.SectionID] = append(bySection[l.SectionID], l)
	}

	tree := &Tree{Course: *c, Sections: make([]SectionTree, 0, len(sections))}
	for _, sec := range sections {
		tree.Sections = append(tree.Sections, SectionTree{
			Section: sec,
			Lessons: bySection[sec.ID],
		})
	}

	return tree, nil
}

// UpdateProgress records the lesson state for userID and recomputes the
// course enrollment from lesson progress rows. Both writes share one
// transaction; a lesson outside the course is ErrNotFound with no writes.
func (s *Service) UpdateProgress(
	ctx context.Context,
	userID, courseID string,
	req UpdateProgressRequest,
) (res *ProgressResult, err error) {
	completed := req.Completed != nil && *req.Completed

	ctx, span := core.StartSpan(ctx, "course.update_progress",
		attribute.String("course.id", courseID),
		attribute.String("lesson.id", req.LessonID),
		attribute.Bool("completed", completed),
	)
	defer func() { core.EndSpan(span, err) }()

	var pending *notification.Notification

	err = s.tx.WithinTx(ctx, func(tx core.DBTX) error {
		repo := s.repo.WithTx(tx)

		c, err := repo.CourseForLesson(ctx, courseID, req.LessonID)
		if err != nil {
			return err
		}

		lp, err := repo.UpsertLessonProgress(ctx, req.LessonID, userID, completed)
		if err != nil {
			return err
		}

		total, done, err := repo.CountProgress(ctx, courseID, userID)
		if err != nil {
			return err
		}
		summary := summarize(total, done)

		enrollment, err := repo.UpsertEnrollment(ctx, courseID, userID, summary.PercentageComplete)
		if err != nil {
			return err
		}

		if enrollment.NewlyCompleted {
			pending, err = s.notifier.Record(ctx, tx, notification.Input{
				UserID:  userID,
				Title:   "Course completed",
				Content: fmt.Sprintf("You completed %q", c.Title),
				Type:    notification.TypeCourseCompleted,
				Link:    "/courses/" + courseID,
			})
			if err != nil {
				return err
			}
		}

		res = &ProgressResult{
			LessonProgress: *lp,
			Enrollment:     *enrollment,
			Summary:        summary,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ProgressUpdates.WithLabelValues(metrics.BoolLabel(completed)).Inc()

	if pending != nil {
		s.notifier.Push(ctx, pending)
		s.logger.Info("course completed",
			"course_id", courseID,
			"user_id", userID,
		)
	}

	return res, nil
}

// Progress reports the caller's standing in one course, computed from
// lesson progress rows.
func (s *Service) Progress(ctx context.Context, userID, courseID string) (Summary, error) {
	if _, err := s.repo.GetByID(ctx, courseID); err != nil {
		return Summary{}, err
	}

	total, done, err := s.repo.CountProgress(ctx, courseID, userID)
	if err != nil {
		return Summary{}, err
	}

	return summarize(total, done), nil
}

func (s *Service) Overview(ctx context.Context, userID string) (Overview, error) {
	total, done, err := s.repo.CountEnrollments(ctx, userID)
	if err != nil {
		return Overview{}, err
	}

	return Overview{
		TotalCourses:       total,
		CompletedCourses:   done,
		PercentageComplete: ComputeProgress(total, done),
	}, nil
}
