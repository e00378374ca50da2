package pgrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/qlearn/core/course"
	"github.com/trezcool/qlearn/core/grading"
	"github.com/trezcool/qlearn/core/progress"
)

const progressColumns = "student_id, lesson_id, completed, score, time_spent, last_accessed"

type progressRow struct {
	StudentID    int       `db:"student_id"`
	LessonID     int       `db:"lesson_id"`
	Completed    bool      `db:"completed"`
	Score        null.Int  `db:"score"`
	TimeSpent    int       `db:"time_spent"`
	LastAccessed time.Time `db:"last_accessed"`
}

func (r progressRow) progress() progress.Progress {
	return progress.Progress{
		StudentID:    r.StudentID,
		LessonID:     r.LessonID,
		Completed:    r.Completed,
		Score:        r.Score.Ptr(),
		TimeSpent:    r.TimeSpent,
		LastAccessed: r.LastAccessed.UTC(),
	}
}

type progressRepository struct {
	db *sqlx.DB
}

var _ progress.Repository = (*progressRepository)(nil)

func NewProgressRepository(db *sqlx.DB) progress.Repository {
	return &progressRepository{db: db}
}

// UpsertProgress adds the time spent in the statement itself so concurrent updates never lose any.
func (repo *progressRepository) UpsertProgress(ctx context.Context, studentID, lessonID int, p progress.Patch) (progress.Progress, error) {
	var row progressRow
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO progress (student_id, lesson_id, completed, score, time_spent, last_accessed)
		VALUES ($1, $2, COALESCE($3, FALSE), $4, $5, NOW())
		ON CONFLICT (student_id, lesson_id) DO UPDATE SET
			completed = COALESCE($3, progress.completed),
			score = COALESCE($4, progress.score),
			time_spent = progress.time_spent + EXCLUDED.time_spent,
			last_accessed = EXCLUDED.last_accessed
		RETURNING `+progressColumns,
		studentID, lessonID, null.BoolFromPtr(p.Completed), null.IntFromPtr(p.Score), p.TimeSpent)
	if err != nil {
		if pgCode(err) == foreignKeyViolation {
			return progress.Progress{}, course.ErrLessonNotFound
		}
		return progress.Progress{}, errors.Wrap(err, "upserting progress")
	}
	return row.progress(), nil
}

func (repo *progressRepository) GetProgress(ctx context.Context, studentID, lessonID int) (progress.Progress, error) {
	var row progressRow
	err := repo.db.GetContext(ctx, &row,
		"SELECT "+progressColumns+" FROM progress WHERE student_id = $1 AND lesson_id = $2",
		studentID, lessonID)
	if err != nil {
		return progress.Progress{}, trapNoRows(err, progress.ErrNotFound, "selecting progress")
	}
	return row.progress(), nil
}

func (repo *progressRepository) QueryStudentProgress(ctx context.Context, studentID int) ([]progress.Entry, error) {
	var rows []struct {
		progressRow
		LessonTitle string `db:"lesson_title"`
		ModuleTitle string `db:"module_title"`
		CourseID    int    `db:"course_id"`
		CourseTitle string `db:"course_title"`
	}
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT p.student_id, p.lesson_id, p.completed, p.score, p.time_spent, p.last_accessed,
			l.title AS lesson_title, m.title AS module_title, c.id AS course_id, c.title AS course_title
		FROM progress p
			JOIN lessons l ON l.id = p.lesson_id
			JOIN modules m ON m.id = l.module_id
			JOIN courses c ON c.id = m.course_id
		WHERE p.student_id = $1
		ORDER BY p.last_accessed DESC, p.lesson_id`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting progress")
	}

	entries := make([]progress.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, progress.Entry{
			Progress:    r.progress(),
			LessonTitle: r.LessonTitle,
			ModuleTitle: r.ModuleTitle,
			CourseID:    r.CourseID,
			CourseTitle: r.CourseTitle,
		})
	}
	return entries, nil
}

func (repo *progressRepository) LessonRows(ctx context.Context, studentID int) ([]grading.LessonRow, error) {
	var rows []struct {
		CourseID  int      `db:"course_id"`
		LessonID  int      `db:"lesson_id"`
		Completed bool     `db:"completed"`
		Score     null.Int `db:"score"`
		TimeSpent int      `db:"time_spent"`
	}
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT m.course_id, l.id AS lesson_id, COALESCE(p.completed, FALSE) AS completed, p.score,
			COALESCE(p.time_spent, 0) AS time_spent
		FROM enrollments e
			JOIN modules m ON m.course_id = e.course_id
			JOIN lessons l ON l.module_id = m.id
			LEFT JOIN progress p ON p.lesson_id = l.id AND p.student_id = e.student_id
		WHERE e.student_id = $1
		ORDER BY m.course_id, m.order_index, l.order_index, l.id`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting lesson rows")
	}

	lessonRows := make([]grading.LessonRow, 0, len(rows))
	for _, r := range rows {
		lessonRows = append(lessonRows, grading.LessonRow{
			CourseID:  r.CourseID,
			LessonID:  r.LessonID,
			Completed: r.Completed,
			Score:     r.Score.Ptr(),
			TimeSpent: r.TimeSpent,
		})
	}
	return lessonRows, nil
}
