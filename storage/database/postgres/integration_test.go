//go:build integration

package pgrepos

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/trezcool/qlearn/core"
	"github.com/trezcool/qlearn/core/attendance"
	"github.com/trezcool/qlearn/core/course"
	"github.com/trezcool/qlearn/core/event"
	"github.com/trezcool/qlearn/core/progress"
	"github.com/trezcool/qlearn/core/user"
	"github.com/trezcool/qlearn/storage/database"
)

// setupPostgres starts a migrated PostgreSQL container.
func setupPostgres(t *testing.T) *sqlx.DB {
	ctx := context.Background()

	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "qlearn",
				"POSTGRES_PASSWORD": "qlearn",
				"POSTGRES_DB":       "qlearn",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgC.Terminate(ctx); err != nil {
			t.Logf("terminating postgres container: %v", err)
		}
	})

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	conf := core.NewTestConfig()
	conf.Database = core.DatabaseConfig{
		Engine:     "postgres",
		Host:       host,
		Port:       port.Port(),
		Name:       "qlearn",
		User:       "qlearn",
		Password:   "qlearn",
		DisableTLS: true,
	}

	db, err := database.Open(ctx, conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db.DB, "up"))
	return db
}

func createUser(t *testing.T, repo user.Repository, name, role string) user.User {
	usr, err := repo.CreateUser(context.Background(), user.User{
		Name:         name,
		Email:        name + "@test.io",
		Role:         role,
		IsActive:     true,
		PasswordHash: []byte("x"),
	})
	require.NoError(t, err)
	return usr
}

func TestPostgresRepositories(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	users := NewUserRepository(db)
	courses := NewCourseRepository(db)
	progressRepo := NewProgressRepository(db)

	ada := createUser(t, users, "ada", user.RoleInstructor)
	kim := createUser(t, users, "kim", user.RoleStudent)

	_, err := users.CreateUser(ctx, user.User{Name: "dup", Email: "kim@test.io", Role: user.RoleStudent, PasswordHash: []byte("x")})
	assert.Equal(t, user.ErrEmailExists, err)

	nc := course.NewCourse{
		Title: "Go",
		Modules: []course.NewModule{
			{Title: "Basics", Lessons: []course.NewLesson{{Title: "Hello"}, {Title: "Types"}}},
		},
	}
	detail, err := courses.CreateCourse(ctx, course.Course{Title: "Go", InstructorID: ada.ID}, nc.Build())
	require.NoError(t, err)
	assert.Equal(t, "ada", detail.InstructorName)
	require.NoError(t, courses.Enroll(ctx, kim.ID, detail.ID))
	require.NoError(t, courses.Enroll(ctx, kim.ID, detail.ID))
	lessonID := detail.Modules[0].Lessons[0].ID

	t.Run("modules", func(t *testing.T) {
		modules, err := courses.GetCourseModules(ctx, detail.ID)
		require.NoError(t, err)
		require.Len(t, modules, 1)
		require.Len(t, modules[0].Lessons, 2)
		assert.Equal(t, "Hello", modules[0].Lessons[0].Title)
	})

	t.Run("lesson test", func(t *testing.T) {
		tst, err := courses.SaveLessonTest(ctx, course.Test{
			LessonID:     lessonID,
			Title:        "Quiz",
			PassingScore: 50,
			Questions:    []course.Question{{Text: "a", Options: []string{"x", "y"}, CorrectAnswer: 1}},
		})
		require.NoError(t, err)

		got, err := courses.GetLessonTest(ctx, lessonID)
		require.NoError(t, err)
		assert.Equal(t, tst.ID, got.ID)
		assert.Equal(t, []string{"x", "y"}, got.Questions[0].Options)

		lsn, err := courses.GetLesson(ctx, lessonID)
		require.NoError(t, err)
		require.NotNil(t, lsn.TestID)
		assert.Equal(t, tst.ID, *lsn.TestID)

		_, err = courses.GetLessonTest(ctx, detail.Modules[0].Lessons[1].ID)
		assert.Equal(t, course.ErrTestNotFound, err)
	})

	t.Run("concurrent progress", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := progressRepo.UpsertProgress(ctx, kim.ID, lessonID, progress.Patch{TimeSpent: 5})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		score := 70
		prog, err := progressRepo.UpsertProgress(ctx, kim.ID, lessonID, progress.Patch{Score: &score})
		require.NoError(t, err)
		assert.Equal(t, 100, prog.TimeSpent)
		assert.Equal(t, 70, *prog.Score)
		assert.False(t, prog.Completed)

		rows, err := progressRepo.LessonRows(ctx, kim.ID)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Nil(t, rows[1].Score)

		_, err = progressRepo.UpsertProgress(ctx, kim.ID, 9999, progress.Patch{})
		assert.Equal(t, course.ErrLessonNotFound, err)
	})

	t.Run("attendance", func(t *testing.T) {
		repo := NewAttendanceRepository(db)
		_, err := repo.UpsertAttendance(ctx, attendance.Record{StudentID: kim.ID, Date: "2024-03-04", Present: true})
		require.NoError(t, err)
		rec, err := repo.UpsertAttendance(ctx, attendance.Record{StudentID: kim.ID, Date: "2024-03-04", Reason: "sick"})
		require.NoError(t, err)
		assert.Equal(t, attendance.Record{StudentID: kim.ID, Date: "2024-03-04", Reason: "sick"}, rec)

		recent, err := repo.RecentAttendance(ctx, kim.ID, 30)
		require.NoError(t, err)
		assert.Len(t, recent, 1)
	})

	t.Run("events", func(t *testing.T) {
		repo := NewEventRepository(db)
		today := core.Today()
		for i, title := range []string{"Past", "Quiz"} {
			_, err := repo.CreateEvent(ctx, event.Event{
				Title:     title,
				Date:      today.AddDate(0, 0, 7*i-7).Format(core.DateLayout),
				CourseIDs: []int{detail.ID},
				CreatedBy: ada.ID,
			})
			require.NoError(t, err)
		}

		upcoming, err := repo.UpcomingEvents(ctx, kim.ID, today.Format(core.DateLayout), 10)
		require.NoError(t, err)
		require.Len(t, upcoming, 1)
		assert.Equal(t, "Quiz", upcoming[0].Title)
		assert.Equal(t, "Go", upcoming[0].CourseName)
	})

	t.Run("delete cascades", func(t *testing.T) {
		n, err := users.DeleteUsersByID(ctx, ada.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		_, err = courses.GetCourse(ctx, detail.ID)
		assert.Equal(t, course.ErrNotFound, err)
	})
}
