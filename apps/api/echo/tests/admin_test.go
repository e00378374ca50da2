package tests

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/qlearn/core/course"
	"github.com/trezcool/qlearn/core/mapping"
	"github.com/trezcool/qlearn/core/user"
	"github.com/trezcool/qlearn/tests"
)

func userIDs(users []user.User) []int {
	ids := make([]int, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}

func Test_adminApi_users(t *testing.T) {
	e := setup(t)
	now := time.Now()
	admin := testutil.CreateUser(t, e.users, "Root", user.RoleAdmin, true, now)
	ada := testutil.CreateUser(t, e.users, "Ada", user.RoleInstructor, true, now.Add(1*time.Hour))
	kim := testutil.CreateUser(t, e.users, "Kim", user.RoleStudent, true, now.Add(2*time.Hour))
	bob := testutil.CreateUser(t, e.users, "Bob", user.RoleStudent, true, now.Add(3*time.Hour))
	adminToken := e.token(t, admin)

	t.Run("forbidden", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/api/admin/users", e.token(t, kim))
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)
	})

	for _, tt := range []struct {
		name  string
		query string
		want  []int
	}{
		{"newest first without admins", "", []int{bob.ID, kim.ID, ada.ID}},
		{"by role", "?role=student", []int{bob.ID, kim.ID}},
		{"admins are never listed", "?role=admin", []int{}},
		{"search", "?search=AD", []int{ada.ID}},
		{"ordering", "?ordering=name", []int{ada.ID, bob.ID, kim.ID}},
		{"unknown ordering is ignored", "?ordering=-password", []int{bob.ID, kim.ID, ada.ID}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(http.MethodGet, "/api/admin/users"+tt.query, adminToken)
			require.Equal(t, http.StatusOK, rec.Code)
			var users []user.User
			decode(t, rec, &users)
			assert.Equal(t, tt.want, userIDs(users))
		})
	}

	t.Run("create", func(t *testing.T) {
		body := marchallObj(t, user.NewUser{
			Name:            "Grace",
			Email:           "grace@test.io",
			Password:        testutil.Password,
			PasswordConfirm: testutil.Password,
			Role:            user.RoleAdmin,
		})
		rec := e.do(http.MethodPost, "/api/admin/users", adminToken, body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var usr user.User
		decode(t, rec, &usr)
		assert.Equal(t, user.RoleAdmin, usr.Role)

		rec = e.do(http.MethodPost, "/api/admin/users", adminToken, body)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		}, rec)
	})

	t.Run("update", func(t *testing.T) {
		rec := e.do(http.MethodPut, fmt.Sprintf("/api/admin/users/%d", kim.ID), adminToken,
			[]byte(`{"name": "Kim Lee", "technology": "Go", "isActive": false}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var usr user.User
		decode(t, rec, &usr)
		assert.Equal(t, "Kim Lee", usr.Name)
		assert.Equal(t, kim.Email, usr.Email)
		assert.Equal(t, "Go", usr.Technology)
		assert.False(t, usr.IsActive)

		rec = e.do(http.MethodPut, fmt.Sprintf("/api/admin/users/%d", kim.ID), adminToken, []byte(`{"email": "ada@test.io"}`))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		}, rec)
	})

	runHTTPTests(t, e, []httpTest{
		{
			name:     "update unknown user",
			method:   http.MethodPut,
			path:     "/api/admin/users/999",
			body:     []byte(`{"name": "Nobody"}`),
			token:    adminToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "user not found"}),
		},
		{
			name:     "delete self",
			method:   http.MethodDelete,
			path:     fmt.Sprintf("/api/admin/users/%d", admin.ID),
			token:    adminToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "delete",
			method:   http.MethodDelete,
			path:     fmt.Sprintf("/api/admin/users/%d", bob.ID),
			token:    adminToken,
			wantCode: http.StatusNoContent,
		},
		{
			name:     "delete again",
			method:   http.MethodDelete,
			path:     fmt.Sprintf("/api/admin/users/%d", bob.ID),
			token:    adminToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "user not found"}),
		},
		{
			name:     "malformed id",
			method:   http.MethodDelete,
			path:     "/api/admin/users/abc",
			token:    adminToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "user not found"}),
		},
	})
}

func Test_adminApi_courses(t *testing.T) {
	e := setup(t)
	admin := e.createUser(t, "Root", user.RoleAdmin)
	ada := e.createUser(t, "Ada", user.RoleInstructor)
	kim := e.createUser(t, "Kim", user.RoleStudent)
	adminToken := e.token(t, admin)

	var crs course.Detail
	t.Run("create", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/api/admin/courses", adminToken, marchallObj(t, course.NewCourse{Title: "Go Basics", InstructorID: kim.ID}))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"instructorId": "user is not an instructor"}),
		}, rec)

		rec = e.do(http.MethodPost, "/api/admin/courses", adminToken, marchallObj(t, course.NewCourse{
			Title:        " Go Basics ",
			InstructorID: ada.ID,
			Modules:      []course.NewModule{{Title: "Basics", Lessons: []course.NewLesson{{Title: "Hello"}}}},
		}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &crs)
		assert.Equal(t, "Go Basics", crs.Title)
		assert.Equal(t, "Ada", crs.InstructorName)
		require.Len(t, crs.Modules, 1)
	})

	t.Run("list", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/api/admin/courses", adminToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var courses []course.Course
		decode(t, rec, &courses)
		require.Len(t, courses, 1)
		assert.Equal(t, "Ada", courses[0].InstructorName)
	})

	t.Run("update", func(t *testing.T) {
		rec := e.do(http.MethodPut, fmt.Sprintf("/api/admin/courses/%d", crs.ID), adminToken, []byte(`{"title": "Go 101", "description": "intro"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got course.Course
		decode(t, rec, &got)
		assert.Equal(t, "Go 101", got.Title)
		assert.Equal(t, "intro", got.Description)
		assert.Equal(t, ada.ID, got.InstructorID)
	})

	runHTTPTests(t, e, []httpTest{
		{
			name:     "enroll",
			method:   http.MethodPost,
			path:     "/api/admin/enrollments",
			body:     marchallObj(t, course.Enrollment{StudentID: kim.ID, CourseID: crs.ID}),
			token:    adminToken,
			wantCode: http.StatusCreated,
			wantData: []byte(`{"message": "Student enrolled successfully"}`),
		},
		{
			name:     "enroll twice",
			method:   http.MethodPost,
			path:     "/api/admin/enrollments",
			body:     marchallObj(t, course.Enrollment{StudentID: kim.ID, CourseID: crs.ID}),
			token:    adminToken,
			wantCode: http.StatusCreated,
		},
		{
			name:     "enroll instructor",
			method:   http.MethodPost,
			path:     "/api/admin/enrollments",
			body:     marchallObj(t, course.Enrollment{StudentID: ada.ID, CourseID: crs.ID}),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"studentId": "user is not a student"}),
		},
		{
			name:     "enroll unknown course",
			method:   http.MethodPost,
			path:     "/api/admin/enrollments",
			body:     marchallObj(t, course.Enrollment{StudentID: kim.ID, CourseID: 999}),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"courseId": "course not found"}),
		},
		{
			name:     "delete",
			method:   http.MethodDelete,
			path:     fmt.Sprintf("/api/admin/courses/%d", crs.ID),
			token:    adminToken,
			wantCode: http.StatusNoContent,
		},
		{
			name:     "delete unknown",
			method:   http.MethodDelete,
			path:     fmt.Sprintf("/api/admin/courses/%d", crs.ID),
			token:    adminToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
	})
}

func Test_adminApi_relationships(t *testing.T) {
	e := setup(t)
	admin := e.createUser(t, "Root", user.RoleAdmin)
	ada := e.createUser(t, "Ada", user.RoleInstructor)
	kim := e.createUser(t, "Kim", user.RoleStudent)
	bob := e.createUser(t, "Bob", user.RoleStudent)
	pat := e.createUser(t, "Pat", user.RoleParent)
	adminToken := e.token(t, admin)

	runHTTPTests(t, e, []httpTest{
		{
			name:     "link parent",
			method:   http.MethodPost,
			path:     "/api/admin/parent-student",
			body:     []byte(fmt.Sprintf(`{"parentId": %d, "studentId": %d}`, pat.ID, kim.ID)),
			token:    adminToken,
			wantCode: http.StatusCreated,
			wantData: []byte(`{"message": "Parent-student link created successfully"}`),
		},
		{
			name:     "link non parent",
			method:   http.MethodPost,
			path:     "/api/admin/parent-student",
			body:     []byte(fmt.Sprintf(`{"parentId": %d, "studentId": %d}`, bob.ID, kim.ID)),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"parentId": "user is not a parent"}),
		},
		{
			name:     "link missing ids",
			method:   http.MethodPost,
			path:     "/api/admin/parent-student",
			body:     []byte(`{}`),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"parentId": "this field is required", "studentId": "this field is required"}),
		},
		{
			name:     "map to a student",
			method:   http.MethodPost,
			path:     "/api/admin/mappings",
			body:     marchallObj(t, mapping.NewMapping{TeacherID: bob.ID, StudentID: kim.ID, Technology: "Go"}),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"teacherId": "user does not have the instructor role"}),
		},
	})

	t.Run("mappings", func(t *testing.T) {
		tech := "Go"
		ada.Technology = tech
		_, err := e.users.UpdateUser(context.Background(), ada)
		require.NoError(t, err)

		rec := e.do(http.MethodPost, "/api/admin/mappings", adminToken,
			marchallObj(t, mapping.NewMapping{TeacherID: ada.ID, StudentID: kim.ID, Technology: tech}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var m mapping.Mapping
		decode(t, rec, &m)
		assert.Equal(t, "Ada", m.TeacherName)
		assert.Equal(t, "Kim", m.StudentName)

		rec = e.do(http.MethodGet, "/api/admin/mappings", adminToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var mappings []mapping.Mapping
		decode(t, rec, &mappings)
		require.Len(t, mappings, 1)

		rec = e.do(http.MethodGet, "/api/admin/students/unmapped", adminToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var unmapped []user.User
		decode(t, rec, &unmapped)
		assert.Equal(t, []int{bob.ID}, userIDs(unmapped))

		rec = e.do(http.MethodGet, "/api/admin/technologies", adminToken)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`["Go"]`)}, rec)

		rec = e.do(http.MethodGet, "/api/admin/teachers/by-technology/go", adminToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var teachers []user.User
		decode(t, rec, &teachers)
		assert.Equal(t, []int{ada.ID}, userIDs(teachers))

		rec = e.do(http.MethodGet, fmt.Sprintf("/api/admin/teachers/%d/students", ada.ID), adminToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var students []user.User
		decode(t, rec, &students)
		assert.Equal(t, []int{kim.ID}, userIDs(students))

		rec = e.do(http.MethodGet, fmt.Sprintf("/api/admin/teachers/%d/students", kim.ID), adminToken)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "teacher not found"})}, rec)
	})
}
