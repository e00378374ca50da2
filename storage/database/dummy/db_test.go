package dummydb

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/qlearn/core/course"
	"github.com/trezcool/qlearn/core/progress"
	"github.com/trezcool/qlearn/core/user"
)

type fixture struct {
	db       *DB
	users    user.Repository
	courses  course.Repository
	progress progress.Repository
}

func newFixture(t *testing.T) *fixture {
	db, err := Open()
	require.NoError(t, err)
	return &fixture{
		db:       db,
		users:    NewUserRepository(db),
		courses:  NewCourseRepository(db),
		progress: NewProgressRepository(db),
	}
}

func (f *fixture) createUser(t *testing.T, name, role string) user.User {
	now := time.Now().UTC()
	usr, err := f.users.CreateUser(context.Background(), user.User{
		Name:      name,
		Email:     strings.ToLower(name) + "@test.io",
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	return usr
}

// createCourse creates a course with one module per entry of lessonsPerModule.
func (f *fixture) createCourse(t *testing.T, title string, instructorID int, lessonsPerModule ...int) course.Detail {
	nc := course.NewCourse{Title: title}
	for _, n := range lessonsPerModule {
		mod := course.NewModule{Title: "Module"}
		for i := 0; i < n; i++ {
			mod.Lessons = append(mod.Lessons, course.NewLesson{Title: "Lesson"})
		}
		nc.Modules = append(nc.Modules, mod)
	}
	detail, err := f.courses.CreateCourse(context.Background(), course.Course{Title: title, InstructorID: instructorID}, nc.Build())
	require.NoError(t, err)
	return detail
}

func (f *fixture) enroll(t *testing.T, studentID, courseID int) {
	require.NoError(t, f.courses.Enroll(context.Background(), studentID, courseID))
}
