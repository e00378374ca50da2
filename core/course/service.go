package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/qlearn/core"
	"github.com/trezcool/qlearn/core/user"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("course")
	ErrLessonNotFound = core.NewNotFoundError("lesson")
	ErrTestNotFound   = core.NewNotFoundError("test")
	errNotInstructor  = "user is not an instructor"
	errNotStudent     = "user is not a student"
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course, modules []Module) (Detail, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCourse(ctx context.Context, id int) error
		GetCourse(ctx context.Context, id int) (Course, error)
		QueryCourses(ctx context.Context, filter QueryFilter) ([]Course, error)
		GetCourseModules(ctx context.Context, courseID int) ([]Module, error)
		GetLesson(ctx context.Context, lessonID int) (LessonDetail, error)
		GetLessonTest(ctx context.Context, lessonID int) (Test, error)
		SaveLessonTest(ctx context.Context, t Test) (Test, error)
		Enroll(ctx context.Context, studentID, courseID int) error
		IsEnrolled(ctx context.Context, studentID, courseID int) (bool, error)
	}

	// UserGetter is the part of user.Service courses depend on.
	UserGetter interface {
		GetByID(ctx context.Context, id int) (user.User, error)
	}

	Service interface {
		List(ctx context.Context, viewer user.User) ([]Course, error)
		Create(ctx context.Context, viewer user.User, nc NewCourse) (Detail, error)
		Update(ctx context.Context, id int, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, id int) error
		Get(ctx context.Context, viewer user.User, id int) (Detail, error)
		Lesson(ctx context.Context, viewer user.User, lessonID int) (LessonDetail, error)
		LessonTest(ctx context.Context, viewer user.User, lessonID int) (Test, error)
		SaveLessonTest(ctx context.Context, viewer user.User, lessonID int, ti TestInput) (Test, error)
		Enroll(ctx context.Context, e Enrollment) error
		IsEnrolled(ctx context.Context, studentID, courseID int) (bool, error)
	}

	service struct {
		repo  Repository
		users UserGetter
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, users UserGetter) Service {
	return &service{repo: repo, users: users}
}

// List returns the courses viewer may see: all for admins, owned for instructors,
// enrolled for students and the children's for parents.
func (svc *service) List(ctx context.Context, viewer user.User) ([]Course, error) {
	var filter QueryFilter
	switch viewer.Role {
	case user.RoleAdmin:
	case user.RoleInstructor:
		filter.InstructorID = viewer.ID
	case user.RoleStudent:
		filter.StudentID = viewer.ID
	case user.RoleParent:
		filter.ParentID = viewer.ID
	default:
		return []Course{}, nil
	}
	return svc.repo.QueryCourses(ctx, filter)
}

func (svc *service) Create(ctx context.Context, viewer user.User, nc NewCourse) (Detail, error) {
	crs := Course{
		Title:       nc.Title,
		Description: nc.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if viewer.IsInstructor() {
		crs.InstructorID = viewer.ID
	} else {
		instructor, err := svc.instructor(ctx, nc.InstructorID)
		if err != nil {
			return Detail{}, err
		}
		crs.InstructorID = instructor.ID
	}
	return svc.repo.CreateCourse(ctx, crs, nc.Build())
}

func (svc *service) Update(ctx context.Context, id int, uc UpdateCourse) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if uc.Title != "" {
		crs.Title = uc.Title
	}
	if uc.Description != nil {
		crs.Description = core.CleanString(*uc.Description)
	}
	if uc.InstructorID != nil {
		instructor, err := svc.instructor(ctx, *uc.InstructorID)
		if err != nil {
			return Course{}, err
		}
		crs.InstructorID = instructor.ID
	}
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteCourse(ctx, id)
}

func (svc *service) Get(ctx context.Context, viewer user.User, id int) (Detail, error) {
	crs, err := svc.visibleCourse(ctx, viewer, id)
	if err != nil {
		return Detail{}, err
	}
	modules, err := svc.repo.GetCourseModules(ctx, id)
	if err != nil {
		return Detail{}, errors.Wrap(err, "getting course modules")
	}
	return Detail{Course: crs, Modules: modules}, nil
}

func (svc *service) Lesson(ctx context.Context, viewer user.User, lessonID int) (LessonDetail, error) {
	lsn, err := svc.repo.GetLesson(ctx, lessonID)
	if err != nil {
		return LessonDetail{}, err
	}
	if _, err = svc.visibleCourse(ctx, viewer, lsn.CourseID); err != nil {
		if core.IsNotFound(err) {
			return LessonDetail{}, ErrLessonNotFound
		}
		return LessonDetail{}, err
	}
	return lsn, nil
}

func (svc *service) LessonTest(ctx context.Context, viewer user.User, lessonID int) (Test, error) {
	if _, err := svc.Lesson(ctx, viewer, lessonID); err != nil {
		return Test{}, err
	}
	return svc.repo.GetLessonTest(ctx, lessonID)
}

// SaveLessonTest creates or replaces the test of a lesson. Only the course instructor and admins may.
func (svc *service) SaveLessonTest(ctx context.Context, viewer user.User, lessonID int, ti TestInput) (Test, error) {
	lsn, err := svc.Lesson(ctx, viewer, lessonID)
	if err != nil {
		return Test{}, err
	}
	if !viewer.IsAdmin() {
		crs, err := svc.repo.GetCourse(ctx, lsn.CourseID)
		if err != nil {
			return Test{}, err
		}
		if crs.InstructorID != viewer.ID {
			return Test{}, core.NewPermissionError("only the course instructor can edit its tests")
		}
	}
	return svc.repo.SaveLessonTest(ctx, ti.Build(lessonID))
}

// Enroll is idempotent.
func (svc *service) Enroll(ctx context.Context, e Enrollment) error {
	stdnt, err := svc.users.GetByID(ctx, e.StudentID)
	if err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(nil, core.FieldError{Field: "studentId", Error: err.Error()})
		}
		return err
	}
	if !stdnt.IsStudent() {
		return core.NewValidationError(nil, core.FieldError{Field: "studentId", Error: errNotStudent})
	}
	if _, err = svc.repo.GetCourse(ctx, e.CourseID); err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(nil, core.FieldError{Field: "courseId", Error: err.Error()})
		}
		return err
	}
	return svc.repo.Enroll(ctx, e.StudentID, e.CourseID)
}

func (svc *service) IsEnrolled(ctx context.Context, studentID, courseID int) (bool, error) {
	return svc.repo.IsEnrolled(ctx, studentID, courseID)
}

func (svc *service) instructor(ctx context.Context, id int) (user.User, error) {
	usr, err := svc.users.GetByID(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return user.User{}, core.NewValidationError(nil, core.FieldError{Field: "instructorId", Error: err.Error()})
		}
		return user.User{}, err
	}
	if !usr.IsInstructor() {
		return user.User{}, core.NewValidationError(nil, core.FieldError{Field: "instructorId", Error: errNotInstructor})
	}
	return usr, nil
}

// visibleCourse returns ErrNotFound for courses viewer is not allowed to see.
func (svc *service) visibleCourse(ctx context.Context, viewer user.User, id int) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}

	switch viewer.Role {
	case user.RoleAdmin:
		return crs, nil
	case user.RoleInstructor:
		if crs.InstructorID == viewer.ID {
			return crs, nil
		}
	case user.RoleStudent:
		ok, err := svc.repo.IsEnrolled(ctx, viewer.ID, id)
		if err != nil {
			return Course{}, errors.Wrap(err, "checking enrollment")
		}
		if ok {
			return crs, nil
		}
	case user.RoleParent:
		courses, err := svc.repo.QueryCourses(ctx, QueryFilter{ParentID: viewer.ID})
		if err != nil {
			return Course{}, errors.Wrap(err, "querying children courses")
		}
		for _, c := range courses {
			if c.ID == id {
				return crs, nil
			}
		}
	}
	return Course{}, ErrNotFound
}
