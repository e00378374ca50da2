package dummydb

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/qlearn/core"
	"github.com/trezcool/qlearn/core/attendance"
	"github.com/trezcool/qlearn/core/event"
	"github.com/trezcool/qlearn/core/parent"
	"github.com/trezcool/qlearn/core/progress"
	"github.com/trezcool/qlearn/core/user"
)

type mailRecorder struct {
	mu   sync.Mutex
	sent []core.EmailMessage
}

func (m *mailRecorder) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range messages {
		m.sent = append(m.sent, *msg)
	}
}

type parentFixture struct {
	*fixture
	svc    parent.Service
	events event.Service
	mail   *mailRecorder
}

func newParentFixture(t *testing.T) parentFixture {
	f := newFixture(t)
	conf := core.NewTestConfig()
	mail := new(mailRecorder)
	events := event.NewService(NewEventRepository(f.db), f.courses)
	svc := parent.NewService(NewParentRepository(f.db), parent.Deps{
		Users:      user.NewService(f.users, mail, conf),
		Progress:   progress.NewService(f.progress, f.courses),
		Attendance: attendance.NewService(NewAttendanceRepository(f.db), conf.Grading.AttendanceWindow),
		Events:     events,
		Mail:       mail,
	}, conf)
	return parentFixture{fixture: f, svc: svc, events: events, mail: mail}
}

func TestParentAccess(t *testing.T) {
	f := newParentFixture(t)
	ctx := context.Background()

	admin := f.createUser(t, "Root", user.RoleAdmin)
	prnt := f.createUser(t, "Pat", user.RoleParent)
	kim := f.createUser(t, "Kim", user.RoleStudent)
	bob := f.createUser(t, "Bob", user.RoleStudent)
	require.NoError(t, f.svc.Link(ctx, parent.Link{ParentID: prnt.ID, StudentID: kim.ID}))
	require.NoError(t, f.svc.Link(ctx, parent.Link{ParentID: prnt.ID, StudentID: kim.ID}), "linking twice is a no-op")

	children, err := f.svc.Children(ctx, prnt)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, kim.ID, children[0].ID)

	tests := []struct {
		name    string
		viewer  user.User
		childID int
		wantErr error
	}{
		{name: "linked parent", viewer: prnt, childID: kim.ID},
		{name: "unlinked child", viewer: prnt, childID: bob.ID, wantErr: parent.ErrChildNotFound},
		{name: "admin any student", viewer: admin, childID: bob.ID},
		{name: "admin non student", viewer: admin, childID: prnt.ID, wantErr: parent.ErrChildNotFound},
		{name: "student", viewer: bob, childID: kim.ID, wantErr: parent.ErrChildNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Grades(ctx, tt.viewer, tt.childID)
			assert.Equal(t, tt.wantErr, err)
			_, err = f.svc.Attendance(ctx, tt.viewer, tt.childID)
			assert.Equal(t, tt.wantErr, err)
		})
	}

	err = f.svc.Link(ctx, parent.Link{ParentID: kim.ID, StudentID: bob.ID})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "parentId", vErr.Fields[0].Field)
}

func TestParentDashboard(t *testing.T) {
	f := newParentFixture(t)
	ctx := context.Background()

	ada := f.createUser(t, "Ada", user.RoleInstructor)
	prnt := f.createUser(t, "Pat", user.RoleParent)
	kim := f.createUser(t, "Kim", user.RoleStudent)
	require.NoError(t, f.svc.Link(ctx, parent.Link{ParentID: prnt.ID, StudentID: kim.ID}))

	goCourse := f.createCourse(t, "Go", ada.ID, 1)
	sqlCourse := f.createCourse(t, "SQL", ada.ID, 1)
	f.enroll(t, kim.ID, goCourse.ID)
	f.enroll(t, kim.ID, sqlCourse.ID)

	done, score := true, 90
	_, err := f.progress.UpsertProgress(ctx, kim.ID, goCourse.Modules[0].Lessons[0].ID, progress.Patch{Completed: &done, Score: &score})
	require.NoError(t, err)

	today := core.Today()
	for i, title := range []string{"Past", "Quiz", "Exam"} {
		date := today.AddDate(0, 0, 7*i-7).Format(core.DateLayout)
		_, err = f.events.Create(ctx, ada, event.NewEvent{Title: title, Date: date, CourseIDs: []int{goCourse.ID}})
		require.NoError(t, err)
	}

	dash, err := f.svc.Progress(ctx, prnt, kim.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, dash.TotalCourses)
	assert.Equal(t, 1, dash.CompletedCourses)
	assert.Equal(t, []parent.Achievement{{Title: "Course Completion", Description: "Go completed!"}}, dash.Achievements)
	require.Len(t, dash.Assignments, 2)
	assert.Equal(t, "Quiz", dash.Assignments[0].Title)
	assert.Equal(t, "Go", dash.Assignments[0].Course)

	grades, err := f.svc.Grades(ctx, prnt, kim.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, grades.AverageGrade)
	require.Len(t, grades.Courses, 2)
	assert.Equal(t, "Ada", grades.Courses[0].TeacherName)
	assert.Nil(t, grades.Courses[1].Grade)

	upcoming, err := f.svc.Events(ctx, prnt, kim.ID)
	require.NoError(t, err)
	assert.Len(t, upcoming, 2)
}

func TestParentAbsenceAndMessage(t *testing.T) {
	f := newParentFixture(t)
	ctx := context.Background()

	ada := f.createUser(t, "Ada", user.RoleInstructor)
	prnt := f.createUser(t, "Pat", user.RoleParent)
	kim := f.createUser(t, "Kim", user.RoleStudent)
	require.NoError(t, f.svc.Link(ctx, parent.Link{ParentID: prnt.ID, StudentID: kim.ID}))

	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC).Format(core.DateLayout)
	attRepo := NewAttendanceRepository(f.db)
	_, err := attRepo.UpsertAttendance(ctx, attendance.Record{StudentID: kim.ID, Date: day, Present: true})
	require.NoError(t, err)

	_, err = f.svc.ReportAbsence(ctx, prnt, kim.ID, attendance.AbsenceReport{Date: day})
	require.NoError(t, err)

	sum, err := f.svc.Attendance(ctx, prnt, kim.ID)
	require.NoError(t, err)
	require.Len(t, sum.Recent, 1, "reporting replaces the record of the day")
	assert.False(t, sum.Recent[0].Present)
	assert.Equal(t, 0, sum.AttendanceRate)
	require.Len(t, sum.Absences, 1)
	assert.Equal(t, "No reason provided", sum.Absences[0].Reason)

	msg, err := f.svc.Message(ctx, prnt, parent.NewMessage{TeacherID: ada.ID, StudentID: kim.ID, Message: "Kim will be late."})
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)
	assert.Equal(t, ada.ID, msg.RecipientID)
	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, ada.Email, f.mail.sent[0].To[0].Address)
	assert.Equal(t, prnt.Email, f.mail.sent[0].ReplyTo.Address)
	assert.Equal(t, "parent_message", f.mail.sent[0].TemplateName)

	_, err = f.svc.Message(ctx, prnt, parent.NewMessage{TeacherID: kim.ID, StudentID: kim.ID, Message: "hi"})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "teacherId", vErr.Fields[0].Field)
}
