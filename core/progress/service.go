package progress

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/qlearn/core"
	"github.com/trezcool/qlearn/core/course"
	"github.com/trezcool/qlearn/core/grading"
)

var ErrNotFound = core.NewNotFoundError("progress")

type (
	Repository interface {
		// UpsertProgress merges p into the (studentID, lessonID) row, creating it when missing.
		// Concurrent calls must not lose any TimeSpent.
		UpsertProgress(ctx context.Context, studentID, lessonID int, p Patch) (Progress, error)
		GetProgress(ctx context.Context, studentID, lessonID int) (Progress, error)
		// QueryStudentProgress returns the student's rows, most recently accessed first.
		QueryStudentProgress(ctx context.Context, studentID int) ([]Entry, error)
		// LessonRows returns every lesson of the courses the student is enrolled in,
		// with the student's progress on it when there is some.
		LessonRows(ctx context.Context, studentID int) ([]grading.LessonRow, error)
	}

	Service interface {
		List(ctx context.Context, studentID int) ([]Entry, error)
		Update(ctx context.Context, studentID, lessonID int, p Patch) (Progress, error)
		SubmitTest(ctx context.Context, studentID, lessonID int, answers map[int]int) (grading.Result, error)
		Summary(ctx context.Context, studentID int) (Summary, error)
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

func (svc *service) List(ctx context.Context, studentID int) ([]Entry, error) {
	return svc.repo.QueryStudentProgress(ctx, studentID)
}

func (svc *service) Update(ctx context.Context, studentID, lessonID int, p Patch) (Progress, error) {
	if _, err := svc.enrolledLesson(ctx, studentID, lessonID); err != nil {
		return Progress{}, err
	}
	return svc.repo.UpsertProgress(ctx, studentID, lessonID, p)
}

// SubmitTest grades the answers to the lesson test and records the score.
// A passed test completes the lesson; a failed one leaves completion untouched.
func (svc *service) SubmitTest(ctx context.Context, studentID, lessonID int, answers map[int]int) (grading.Result, error) {
	if _, err := svc.enrolledLesson(ctx, studentID, lessonID); err != nil {
		return grading.Result{}, err
	}
	tst, err := svc.courses.GetLessonTest(ctx, lessonID)
	if err != nil {
		return grading.Result{}, err
	}

	res := grading.ScoreTest(tst.Keys(), answers, tst.PassingScore)
	p := Patch{Score: &res.Score}
	if res.Passed {
		completed := true
		p.Completed = &completed
	}
	if _, err = svc.repo.UpsertProgress(ctx, studentID, lessonID, p); err != nil {
		return grading.Result{}, errors.Wrap(err, "recording test score")
	}
	return res, nil
}

func (svc *service) Summary(ctx context.Context, studentID int) (Summary, error) {
	courses, err := svc.courses.QueryCourses(ctx, course.QueryFilter{StudentID: studentID})
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying enrolled courses")
	}
	rows, err := svc.repo.LessonRows(ctx, studentID)
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying lesson rows")
	}
	return Summarize(courses, rows), nil
}

// enrolledLesson hides lessons of courses the student is not enrolled in.
func (svc *service) enrolledLesson(ctx context.Context, studentID, lessonID int) (course.LessonDetail, error) {
	lsn, err := svc.courses.GetLesson(ctx, lessonID)
	if err != nil {
		return course.LessonDetail{}, err
	}
	ok, err := svc.courses.IsEnrolled(ctx, studentID, lsn.CourseID)
	if err != nil {
		return course.LessonDetail{}, errors.Wrap(err, "checking enrollment")
	}
	if !ok {
		return course.LessonDetail{}, course.ErrLessonNotFound
	}
	return lsn, nil
}
