// Package event schedules dated events (assignments, exams, meetings) on courses.
package event

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/qlearn/core"
	"github.com/trezcool/qlearn/core/course"
	"github.com/trezcool/qlearn/core/user"
)

type Event struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        string    `json:"date"` // YYYY-MM-DD
	CourseIDs   []int     `json:"courseIds"`
	CreatedBy   int       `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"` // UTC
}

// Upcoming is an event as seen from one of its courses.
type Upcoming struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	CourseID    int    `json:"courseId"`
	CourseName  string `json:"courseName"`
}

type NewEvent struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Date        string `json:"date" validate:"required,date"`
	CourseIDs   []int  `json:"courseIds" validate:"required,min=1,dive,min=1"`
}

func (ne *NewEvent) Validate(validate *validator.Validate) error {
	ne.Title = core.CleanString(ne.Title)
	ne.Description = core.CleanString(ne.Description)
	ne.Date = core.CleanString(ne.Date)
	return validate.Struct(ne)
}

type (
	Repository interface {
		CreateEvent(ctx context.Context, evt Event) (Event, error)
		// UpcomingEvents returns the events dated from `from` onwards of the courses the student
		// is enrolled in, soonest first, at most limit rows.
		UpcomingEvents(ctx context.Context, studentID int, from string, limit int) ([]Upcoming, error)
	}

	Service interface {
		Create(ctx context.Context, creator user.User, ne NewEvent) (Event, error)
		Upcoming(ctx context.Context, studentID, limit int) ([]Upcoming, error)
	}

	service struct {
		repo    Repository
		courses course.Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, courses course.Repository) Service {
	return &service{repo: repo, courses: courses}
}

// Create schedules an event on courses; instructors may only target their own.
func (svc *service) Create(ctx context.Context, creator user.User, ne NewEvent) (Event, error) {
	seen := make(map[int]bool, len(ne.CourseIDs))
	courseIDs := make([]int, 0, len(ne.CourseIDs))
	for _, id := range ne.CourseIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		crs, err := svc.courses.GetCourse(ctx, id)
		if err != nil {
			if core.IsNotFound(err) {
				return Event{}, core.NewValidationError(nil, core.FieldError{Field: "courseIds", Error: err.Error()})
			}
			return Event{}, err
		}
		if !creator.IsAdmin() && crs.InstructorID != creator.ID {
			return Event{}, core.NewPermissionError("events can only be scheduled on your own courses")
		}
		courseIDs = append(courseIDs, id)
	}

	return svc.repo.CreateEvent(ctx, Event{
		Title:       ne.Title,
		Description: ne.Description,
		Date:        ne.Date,
		CourseIDs:   courseIDs,
		CreatedBy:   creator.ID,
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *service) Upcoming(ctx context.Context, studentID, limit int) ([]Upcoming, error) {
	return svc.repo.UpcomingEvents(ctx, studentID, core.Today().Format(core.DateLayout), limit)
}
