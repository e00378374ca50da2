package pgrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/qlearn/core/course"
	"github.com/trezcool/qlearn/core/event"
)

type eventRepository struct {
	db *sqlx.DB
}

var _ event.Repository = (*eventRepository)(nil)

func NewEventRepository(db *sqlx.DB) event.Repository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) CreateEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO events (title, description, date, created_by, created_at)
			VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))
			RETURNING id, created_at`,
			evt.Title, evt.Description, evt.Date, null.NewInt(evt.CreatedBy, evt.CreatedBy != 0),
			nullTime(evt.CreatedAt)).Scan(&evt.ID, &evt.CreatedAt)
		if err != nil {
			return errors.Wrap(err, "inserting event")
		}
		for _, cid := range evt.CourseIDs {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO course_events (course_id, event_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
				cid, evt.ID)
			if err != nil {
				if pgCode(err) == foreignKeyViolation {
					return course.ErrNotFound
				}
				return errors.Wrap(err, "inserting course event")
			}
		}
		return nil
	})
	if err != nil {
		return event.Event{}, err
	}
	evt.CreatedAt = evt.CreatedAt.UTC()
	return evt, nil
}

func (repo *eventRepository) UpcomingEvents(ctx context.Context, studentID int, from string, limit int) ([]event.Upcoming, error) {
	upcoming := make([]event.Upcoming, 0)
	err := repo.db.SelectContext(ctx, &upcoming, `
		SELECT e.id, e.title, e.description, to_char(e.date, 'YYYY-MM-DD') AS date,
			c.id AS courseid, c.title AS coursename
		FROM events e
			JOIN course_events ce ON ce.event_id = e.id
			JOIN courses c ON c.id = ce.course_id
			JOIN enrollments en ON en.course_id = c.id
		WHERE en.student_id = $1 AND e.date >= $2::date
		ORDER BY e.date, e.id, c.id
		LIMIT NULLIF($3, 0)`,
		studentID, from, max(limit, 0))
	return upcoming, errors.Wrap(err, "selecting upcoming events")
}
