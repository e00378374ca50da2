package tests

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/qlearn/core"
	"github.com/trezcool/qlearn/core/attendance"
	"github.com/trezcool/qlearn/core/event"
	"github.com/trezcool/qlearn/core/instructor"
	"github.com/trezcool/qlearn/core/parent"
	"github.com/trezcool/qlearn/core/user"
	"github.com/trezcool/qlearn/tests"
)

func Test_parentApi(t *testing.T) {
	e := setup(t)
	admin := e.createUser(t, "Root", user.RoleAdmin)
	ada := e.createUser(t, "Ada", user.RoleInstructor)
	kim := e.createUser(t, "Kim", user.RoleStudent)
	bob := e.createUser(t, "Bob", user.RoleStudent)
	pat := e.createUser(t, "Pat", user.RoleParent)
	patToken, adaToken := e.token(t, pat), e.token(t, ada)

	crs := testutil.CreateCourse(t, e.courses, "Go Basics", ada.ID, 1)
	testutil.Enroll(t, e.courses, kim.ID, crs.ID)
	rec := e.do(http.MethodPost, "/api/admin/parent-student", e.token(t, admin),
		[]byte(fmt.Sprintf(`{"parentId": %d, "studentId": %d}`, pat.ID, kim.ID)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	kimPath := func(view string) string { return fmt.Sprintf("/api/parent/%s/%d", view, kim.ID) }

	t.Run("children", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/api/parent/children", patToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var children []user.User
		decode(t, rec, &children)
		assert.Equal(t, []int{kim.ID}, userIDs(children))
	})

	runHTTPTests(t, e, []httpTest{
		{
			name:     "students are not parents",
			method:   http.MethodGet,
			path:     "/api/parent/children",
			token:    e.token(t, kim),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "unlinked child",
			method:   http.MethodGet,
			path:     fmt.Sprintf("/api/parent/grades/%d", bob.ID),
			token:    patToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "child not found"}),
		},
		{
			name:     "admin sees any student",
			method:   http.MethodGet,
			path:     fmt.Sprintf("/api/parent/grades/%d", bob.ID),
			token:    e.token(t, admin),
			wantCode: http.StatusOK,
			wantData: []byte(`{"courses": [], "averageGrade": 0}`),
		},
		{
			name:     "admin asking for a non student",
			method:   http.MethodGet,
			path:     fmt.Sprintf("/api/parent/grades/%d", ada.ID),
			token:    e.token(t, admin),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "child not found"}),
		},
		{
			name:     "bad absence date",
			method:   http.MethodPost,
			path:     kimPath("report-absence"),
			body:     []byte(`{"date": "01/02/2024"}`),
			token:    patToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"date": "must be a date formatted as YYYY-MM-DD"}),
		},
		{
			name:     "report absence",
			method:   http.MethodPost,
			path:     kimPath("report-absence"),
			body:     []byte(`{"date": "2024-01-03", "reason": "flu"}`),
			token:    patToken,
			wantCode: http.StatusOK,
			wantData: []byte(`{"message": "Absence reported successfully"}`),
		},
		{
			name:     "mark present",
			method:   http.MethodPost,
			path:     "/api/attendance",
			body:     marchallObj(t, attendance.NewRecord{StudentID: kim.ID, Date: "2024-01-02", Present: true, Reason: "ignored"}),
			token:    adaToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, attendance.Record{StudentID: kim.ID, Date: "2024-01-02", Present: true}),
		},
		{
			name:     "mark absent without reason",
			method:   http.MethodPost,
			path:     "/api/attendance",
			body:     marchallObj(t, attendance.NewRecord{StudentID: kim.ID, Date: "2024-01-01"}),
			token:    adaToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "mark unknown student",
			method:   http.MethodPost,
			path:     "/api/attendance",
			body:     marchallObj(t, attendance.NewRecord{StudentID: 999, Date: "2024-01-01"}),
			token:    adaToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "student not found"}),
		},
		{
			name:     "parents cannot mark",
			method:   http.MethodPost,
			path:     "/api/attendance",
			body:     marchallObj(t, attendance.NewRecord{StudentID: kim.ID, Date: "2024-01-01"}),
			token:    patToken,
			wantCode: http.StatusForbidden,
		},
	})

	t.Run("attendance", func(t *testing.T) {
		rec := e.do(http.MethodGet, kimPath("attendance"), patToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var sum attendance.Summary
		decode(t, rec, &sum)
		require.Len(t, sum.Recent, 3)
		assert.Equal(t, "2024-01-03", sum.Recent[0].Date)
		assert.Equal(t, 33, sum.AttendanceRate)
		require.Len(t, sum.Absences, 2)
		assert.Equal(t, "flu", sum.Absences[0].Reason)
		assert.Equal(t, "No reason provided", sum.Absences[1].Reason)
	})

	t.Run("grades", func(t *testing.T) {
		lessonID := crs.Modules[0].Lessons[0].ID
		rec := e.do(http.MethodPost, fmt.Sprintf("/api/progress/%d", lessonID), e.token(t, kim), []byte(`{"completed": true, "score": 91}`))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = e.do(http.MethodGet, kimPath("grades"), patToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var grades parent.Grades
		decode(t, rec, &grades)
		assert.Equal(t, 91, grades.AverageGrade)
		require.Len(t, grades.Courses, 1)
		assert.Equal(t, "Go Basics", grades.Courses[0].Name)
		assert.Equal(t, "Ada", grades.Courses[0].TeacherName)
		assert.Equal(t, 100, grades.Courses[0].Progress)
	})

	t.Run("events and progress", func(t *testing.T) {
		due := core.Today().AddDate(0, 0, 7).Format(core.DateLayout)
		rec := e.do(http.MethodPost, "/api/events", adaToken, marchallObj(t, event.NewEvent{
			Title:     "Project",
			Date:      due,
			CourseIDs: []int{crs.ID},
		}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		past := core.Today().AddDate(0, 0, -7).Format(core.DateLayout)
		rec = e.do(http.MethodPost, "/api/events", adaToken, marchallObj(t, event.NewEvent{
			Title:     "Kickoff",
			Date:      past,
			CourseIDs: []int{crs.ID},
		}))
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = e.do(http.MethodGet, kimPath("events"), patToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var upcoming []event.Upcoming
		decode(t, rec, &upcoming)
		require.Len(t, upcoming, 1)
		assert.Equal(t, "Project", upcoming[0].Title)
		assert.Equal(t, "Go Basics", upcoming[0].CourseName)

		rec = e.do(http.MethodGet, kimPath("progress"), patToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var dash parent.Dashboard
		decode(t, rec, &dash)
		assert.Equal(t, 1, dash.CompletedCourses)
		require.Len(t, dash.Assignments, 1)
		assert.Equal(t, due, dash.Assignments[0].DueDate)
		assert.Equal(t, []parent.Achievement{{Title: "Course Completion", Description: "Go Basics completed!"}}, dash.Achievements)
	})

	t.Run("message", func(t *testing.T) {
		e.mail.Reset()

		rec := e.do(http.MethodPost, "/api/parent/message", patToken,
			marchallObj(t, parent.NewMessage{TeacherID: ada.ID, StudentID: bob.ID, Message: "Hi"}))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"studentId": "child not found"}),
		}, rec)

		rec = e.do(http.MethodPost, "/api/parent/message", patToken,
			marchallObj(t, parent.NewMessage{TeacherID: kim.ID, StudentID: kim.ID, Message: "Hi"}))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"teacherId": "user is not an instructor"}),
		}, rec)
		assert.Empty(t, e.mail.SentMessages())

		rec = e.do(http.MethodPost, "/api/parent/message", patToken,
			marchallObj(t, parent.NewMessage{TeacherID: ada.ID, StudentID: kim.ID, Message: " How is Kim doing? "}))
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"message": "Message sent successfully"}`)}, rec)

		sent := e.mail.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, ada.Email, sent[0].To[0].Address)
		assert.Equal(t, pat.Email, sent[0].ReplyTo.Address)
		assert.Equal(t, "Message from Kim's parent", sent[0].Subject)
		assert.True(t, strings.Contains(sent[0].TextContent, "How is Kim doing?"))
	})
}

func Test_instructorApi_students(t *testing.T) {
	e := setup(t)
	ada := e.createUser(t, "Ada", user.RoleInstructor)
	linus := e.createUser(t, "Linus", user.RoleInstructor)
	kim := e.createUser(t, "Kim", user.RoleStudent)
	e.createUser(t, "Bob", user.RoleStudent)

	crs := testutil.CreateCourse(t, e.courses, "Go Basics", ada.ID, 1)
	testutil.Enroll(t, e.courses, kim.ID, crs.ID)

	rec := e.do(http.MethodGet, "/api/instructor/students", e.token(t, ada))
	require.Equal(t, http.StatusOK, rec.Code)
	var students []instructor.StudentOverview
	decode(t, rec, &students)
	require.Len(t, students, 1)
	assert.Equal(t, kim.ID, students[0].ID)
	assert.Equal(t, 1, students[0].TotalCourses)

	rec = e.do(http.MethodGet, "/api/instructor/students", e.token(t, linus))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`[]`)}, rec)

	rec = e.do(http.MethodPost, "/api/events", e.token(t, linus), marchallObj(t, event.NewEvent{
		Title:     "Exam",
		Date:      "2030-01-01",
		CourseIDs: []int{crs.ID},
	}))
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusForbidden,
		wantData: marchallObj(t, httpErr{Error: "events can only be scheduled on your own courses"}),
	}, rec)
}
