// Package mapping assigns students to instructors by technology.
package mapping

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/qlearn/core"
	"github.com/trezcool/qlearn/core/user"
)

type Mapping struct {
	TeacherID    int       `json:"teacherId"`
	TeacherName  string    `json:"teacherName"`
	StudentID    int       `json:"studentId"`
	StudentName  string    `json:"studentName"`
	Technology   string    `json:"technology"`
	AssignedDate time.Time `json:"assignedDate"` // UTC
}

type NewMapping struct {
	TeacherID  int    `json:"teacherId" validate:"required,min=1"`
	StudentID  int    `json:"studentId" validate:"required,min=1"`
	Technology string `json:"technology" validate:"required,alphanum_"`
}

func (nm *NewMapping) Validate(validate *validator.Validate) error {
	nm.Technology = core.CleanString(nm.Technology)
	return validate.Struct(nm)
}

// QueryFilter restricts mapping listings; zero fields are ignored.
type QueryFilter struct {
	TeacherID int
	StudentID int
}

type (
	Repository interface {
		// SaveMapping creates the (teacher, student) mapping or replaces its technology.
		SaveMapping(ctx context.Context, m Mapping) (Mapping, error)
		QueryMappings(ctx context.Context, filter QueryFilter) ([]Mapping, error)
		UnmappedStudents(ctx context.Context) ([]user.User, error)
		// Technologies lists the distinct non-empty technologies of instructors, sorted.
		Technologies(ctx context.Context) ([]string, error)
	}

	Service interface {
		Create(ctx context.Context, nm NewMapping) (Mapping, error)
		List(ctx context.Context, filter QueryFilter) ([]Mapping, error)
		UnmappedStudents(ctx context.Context) ([]user.User, error)
		Technologies(ctx context.Context) ([]string, error)
		TeachersByTechnology(ctx context.Context, technology string) ([]user.User, error)
		// TeacherStudents lists the students mapped to the instructor with id teacherID.
		TeacherStudents(ctx context.Context, teacherID int) ([]user.User, error)
	}

	service struct {
		repo  Repository
		users user.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, users user.Service) Service {
	return &service{repo: repo, users: users}
}

func (svc *service) Create(ctx context.Context, nm NewMapping) (Mapping, error) {
	teacher, err := svc.userWithRole(ctx, nm.TeacherID, "teacherId", user.RoleInstructor)
	if err != nil {
		return Mapping{}, err
	}
	stdnt, err := svc.userWithRole(ctx, nm.StudentID, "studentId", user.RoleStudent)
	if err != nil {
		return Mapping{}, err
	}
	return svc.repo.SaveMapping(ctx, Mapping{
		TeacherID:    teacher.ID,
		TeacherName:  teacher.Name,
		StudentID:    stdnt.ID,
		StudentName:  stdnt.Name,
		Technology:   nm.Technology,
		AssignedDate: time.Now().UTC(),
	})
}

func (svc *service) List(ctx context.Context, filter QueryFilter) ([]Mapping, error) {
	return svc.repo.QueryMappings(ctx, filter)
}

func (svc *service) UnmappedStudents(ctx context.Context) ([]user.User, error) {
	return svc.repo.UnmappedStudents(ctx)
}

func (svc *service) Technologies(ctx context.Context) ([]string, error) {
	return svc.repo.Technologies(ctx)
}

func (svc *service) TeachersByTechnology(ctx context.Context, technology string) ([]user.User, error) {
	active := true
	filter := &user.QueryFilter{
		Roles:      []string{user.RoleInstructor},
		Technology: technology,
		IsActive:   &active,
	}
	filter.Clean()
	return svc.users.Query(ctx, filter, []core.DBOrdering{{Field: "name", Ascending: true}})
}

func (svc *service) TeacherStudents(ctx context.Context, teacherID int) ([]user.User, error) {
	if _, err := svc.userWithRole(ctx, teacherID, "teacherId", user.RoleInstructor); err != nil {
		if _, ok := errors.Cause(err).(*core.ValidationError); ok {
			return nil, user.ErrNotFound
		}
		return nil, err
	}

	mappings, err := svc.repo.QueryMappings(ctx, QueryFilter{TeacherID: teacherID})
	if err != nil {
		return nil, errors.Wrap(err, "querying mappings")
	}
	students := make([]user.User, 0, len(mappings))
	for _, m := range mappings {
		stdnt, err := svc.users.GetByID(ctx, m.StudentID)
		if err != nil {
			return nil, errors.Wrapf(err, "getting student %d", m.StudentID)
		}
		students = append(students, stdnt)
	}
	return students, nil
}

func (svc *service) userWithRole(ctx context.Context, id int, field, role string) (user.User, error) {
	usr, err := svc.users.GetByID(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return user.User{}, core.NewValidationError(nil, core.FieldError{Field: field, Error: err.Error()})
		}
		return user.User{}, err
	}
	if usr.Role != role {
		return user.User{}, core.NewValidationError(nil, core.FieldError{Field: field, Error: "user does not have the " + role + " role"})
	}
	return usr, nil
}
