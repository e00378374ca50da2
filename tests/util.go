package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/trezcool/qlearn/core/course"
	"github.com/trezcool/qlearn/core/user"
)

// Password satisfies the password policy.
const Password = "Qu1ck-Br0wn!Fox"

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@test.io",
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if err := usr.SetPassword(Password); err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

// CreateCourse creates a course owned by instructorID with one module per entry of lessonsPerModule.
func CreateCourse(t *testing.T, repo course.Repository, title string, instructorID int, lessonsPerModule ...int) course.Detail {
	nc := course.NewCourse{Title: title}
	for i, n := range lessonsPerModule {
		mod := course.NewModule{Title: title + " module " + string(rune('A'+i))}
		for j := 0; j < n; j++ {
			mod.Lessons = append(mod.Lessons, course.NewLesson{Title: "Lesson " + string(rune('1'+j))})
		}
		nc.Modules = append(nc.Modules, mod)
	}
	detail, err := repo.CreateCourse(
		context.Background(),
		course.Course{Title: title, InstructorID: instructorID, CreatedAt: time.Now().UTC()},
		nc.Build(),
	)
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	return detail
}

func Enroll(t *testing.T, repo course.Repository, studentID, courseID int) {
	if err := repo.Enroll(context.Background(), studentID, courseID); err != nil {
		t.Fatalf("enroll() failed: %v", err)
	}
}
