// Package parent serves the read-only views parents get of their children,
// plus messaging teachers and reporting absences.
package parent

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/qlearn/core"
	"github.com/trezcool/qlearn/core/attendance"
	"github.com/trezcool/qlearn/core/event"
	"github.com/trezcool/qlearn/core/progress"
	"github.com/trezcool/qlearn/core/user"
)

var (
	// errors
	ErrChildNotFound = core.NewNotFoundError("child")
	errNotParent     = "user is not a parent"
	errNotStudent    = "user is not a student"
	errNotTeacher    = "user is not an instructor"
)

type (
	Repository interface {
		// LinkParent is idempotent.
		LinkParent(ctx context.Context, parentID, studentID int) error
		IsLinked(ctx context.Context, parentID, studentID int) (bool, error)
		Children(ctx context.Context, parentID int) ([]user.User, error)
		SaveMessage(ctx context.Context, msg Message) (Message, error)
	}

	Service interface {
		Link(ctx context.Context, l Link) error
		Children(ctx context.Context, parent user.User) ([]user.User, error)
		Grades(ctx context.Context, viewer user.User, childID int) (Grades, error)
		Attendance(ctx context.Context, viewer user.User, childID int) (attendance.Summary, error)
		Progress(ctx context.Context, viewer user.User, childID int) (Dashboard, error)
		Events(ctx context.Context, viewer user.User, childID int) ([]event.Upcoming, error)
		Message(ctx context.Context, parent user.User, nm NewMessage) (Message, error)
		ReportAbsence(ctx context.Context, viewer user.User, childID int, ar attendance.AbsenceReport) (attendance.Record, error)
	}

	// Deps are the services the parent views are built from.
	Deps struct {
		Users      user.Service
		Progress   progress.Service
		Attendance attendance.Service
		Events     event.Service
		Mail       core.EmailService
	}

	service struct {
		repo   Repository
		deps   Deps
		limits core.GradingConfig
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, deps Deps, conf *core.Config) Service {
	return &service{repo: repo, deps: deps, limits: conf.Grading}
}

func (svc *service) Link(ctx context.Context, l Link) error {
	prnt, err := svc.deps.Users.GetByID(ctx, l.ParentID)
	if err != nil {
		return asFieldError(err, "parentId")
	}
	if !prnt.IsParent() {
		return core.NewValidationError(nil, core.FieldError{Field: "parentId", Error: errNotParent})
	}
	stdnt, err := svc.deps.Users.GetByID(ctx, l.StudentID)
	if err != nil {
		return asFieldError(err, "studentId")
	}
	if !stdnt.IsStudent() {
		return core.NewValidationError(nil, core.FieldError{Field: "studentId", Error: errNotStudent})
	}
	return svc.repo.LinkParent(ctx, l.ParentID, l.StudentID)
}

func (svc *service) Children(ctx context.Context, parent user.User) ([]user.User, error) {
	return svc.repo.Children(ctx, parent.ID)
}

func (svc *service) Grades(ctx context.Context, viewer user.User, childID int) (Grades, error) {
	if err := svc.checkAccess(ctx, viewer, childID); err != nil {
		return Grades{}, err
	}
	sum, err := svc.deps.Progress.Summary(ctx, childID)
	if err != nil {
		return Grades{}, err
	}
	return GradesFromSummary(sum), nil
}

func (svc *service) Attendance(ctx context.Context, viewer user.User, childID int) (attendance.Summary, error) {
	if err := svc.checkAccess(ctx, viewer, childID); err != nil {
		return attendance.Summary{}, err
	}
	return svc.deps.Attendance.Summary(ctx, childID)
}

// Progress loads the course summary and the upcoming assignments concurrently.
func (svc *service) Progress(ctx context.Context, viewer user.User, childID int) (Dashboard, error) {
	if err := svc.checkAccess(ctx, viewer, childID); err != nil {
		return Dashboard{}, err
	}

	var (
		sum      progress.Summary
		upcoming []event.Upcoming
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sum, err = svc.deps.Progress.Summary(gctx, childID)
		return errors.Wrap(err, "summarizing progress")
	})
	g.Go(func() (err error) {
		upcoming, err = svc.deps.Events.Upcoming(gctx, childID, svc.limits.AssignmentsLimit)
		return errors.Wrap(err, "querying upcoming events")
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return NewDashboard(sum, upcoming, svc.limits.AchievementsLimit), nil
}

func (svc *service) Events(ctx context.Context, viewer user.User, childID int) ([]event.Upcoming, error) {
	if err := svc.checkAccess(ctx, viewer, childID); err != nil {
		return nil, err
	}
	return svc.deps.Events.Upcoming(ctx, childID, svc.limits.EventsLimit)
}

// Message stores the message then notifies the teacher by email.
func (svc *service) Message(ctx context.Context, parent user.User, nm NewMessage) (Message, error) {
	if err := svc.checkAccess(ctx, parent, nm.StudentID); err != nil {
		if core.IsNotFound(err) {
			return Message{}, core.NewValidationError(nil, core.FieldError{Field: "studentId", Error: err.Error()})
		}
		return Message{}, err
	}
	stdnt, err := svc.deps.Users.GetByID(ctx, nm.StudentID)
	if err != nil {
		return Message{}, errors.Wrap(err, "getting student")
	}
	teacher, err := svc.deps.Users.GetByID(ctx, nm.TeacherID)
	if err != nil {
		return Message{}, asFieldError(err, "teacherId")
	}
	if !teacher.IsInstructor() {
		return Message{}, core.NewValidationError(nil, core.FieldError{Field: "teacherId", Error: errNotTeacher})
	}

	msg, err := svc.repo.SaveMessage(ctx, Message{
		SenderID:    parent.ID,
		RecipientID: teacher.ID,
		StudentID:   stdnt.ID,
		Body:        nm.Message,
		SentAt:      time.Now().UTC(),
	})
	if err != nil {
		return Message{}, errors.Wrap(err, "saving message")
	}

	replyTo := user.Contact(parent)
	svc.deps.Mail.SendMessages(&core.EmailMessage{
		To:           []mail.Address{user.Contact(teacher)},
		ReplyTo:      &replyTo,
		Subject:      fmt.Sprintf("Message from %s's parent", stdnt.Name),
		TemplateName: "parent_message",
		TemplateData: parentMessageData{
			TeacherName: teacher.Name,
			ParentName:  parent.Name,
			StudentName: stdnt.Name,
			Message:     msg.Body,
		},
	})
	return msg, nil
}

type parentMessageData struct {
	TeacherName string
	ParentName  string
	StudentName string
	Message     string
}

func (svc *service) ReportAbsence(ctx context.Context, viewer user.User, childID int, ar attendance.AbsenceReport) (attendance.Record, error) {
	if err := svc.checkAccess(ctx, viewer, childID); err != nil {
		return attendance.Record{}, err
	}
	return svc.deps.Attendance.ReportAbsence(ctx, childID, ar)
}

// checkAccess reports ErrChildNotFound unless viewer is an admin and childID a student,
// or viewer is a parent linked to childID.
func (svc *service) checkAccess(ctx context.Context, viewer user.User, childID int) error {
	switch {
	case viewer.IsAdmin():
		stdnt, err := svc.deps.Users.GetByID(ctx, childID)
		if err != nil {
			if core.IsNotFound(err) {
				return ErrChildNotFound
			}
			return err
		}
		if !stdnt.IsStudent() {
			return ErrChildNotFound
		}
		return nil
	case viewer.IsParent():
		ok, err := svc.repo.IsLinked(ctx, viewer.ID, childID)
		if err != nil {
			return errors.Wrap(err, "checking parent link")
		}
		if !ok {
			return ErrChildNotFound
		}
		return nil
	}
	return ErrChildNotFound
}

func asFieldError(err error, field string) error {
	if core.IsNotFound(err) {
		return core.NewValidationError(nil, core.FieldError{Field: field, Error: err.Error()})
	}
	return err
}
