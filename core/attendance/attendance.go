// Package attendance records daily presence of students.
package attendance

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/qlearn/core"
	"github.com/trezcool/qlearn/core/grading"
)

// Record is one day of attendance, unique per (StudentID, Date).
type Record struct {
	StudentID int    `json:"studentId"`
	Date      string `json:"date"` // YYYY-MM-DD
	Present   bool   `json:"present"`
	Reason    string `json:"reason"`
}

type NewRecord struct {
	StudentID int    `json:"studentId" validate:"required,min=1"`
	Date      string `json:"date" validate:"required,date"`
	Present   bool   `json:"present"`
	Reason    string `json:"reason" validate:"max=500"`
}

func (nr *NewRecord) Validate(validate *validator.Validate) error {
	nr.Date = core.CleanString(nr.Date)
	nr.Reason = core.CleanString(nr.Reason)
	return validate.Struct(nr)
}

// AbsenceReport is what parents send to excuse a child.
type AbsenceReport struct {
	Date   string `json:"date" validate:"required,date"`
	Reason string `json:"reason" validate:"max=500"`
}

func (ar *AbsenceReport) Validate(validate *validator.Validate) error {
	ar.Date = core.CleanString(ar.Date)
	ar.Reason = core.CleanString(ar.Reason)
	return validate.Struct(ar)
}

type Summary struct {
	Recent         []Record          `json:"recent"`
	AttendanceRate int               `json:"attendanceRate"`
	Absences       []grading.Absence `json:"absences"`
}

type (
	Repository interface {
		// UpsertAttendance creates or replaces the record of (r.StudentID, r.Date).
		UpsertAttendance(ctx context.Context, r Record) (Record, error)
		// RecentAttendance returns at most limit records of the student, newest first.
		RecentAttendance(ctx context.Context, studentID, limit int) ([]Record, error)
	}

	Service interface {
		Mark(ctx context.Context, nr NewRecord) (Record, error)
		ReportAbsence(ctx context.Context, studentID int, ar AbsenceReport) (Record, error)
		Summary(ctx context.Context, studentID int) (Summary, error)
	}

	service struct {
		repo   Repository
		window int
	}
)

var _ Service = (*service)(nil)

// NewService returns a Service computing rates over the window most recent records.
func NewService(repo Repository, window int) Service {
	if window <= 0 {
		window = grading.DefaultAttendanceWindow
	}
	return &service{repo: repo, window: window}
}

func (svc *service) Mark(ctx context.Context, nr NewRecord) (Record, error) {
	r := Record{StudentID: nr.StudentID, Date: nr.Date, Present: nr.Present}
	if !nr.Present {
		r.Reason = nr.Reason
	}
	return svc.repo.UpsertAttendance(ctx, r)
}

func (svc *service) ReportAbsence(ctx context.Context, studentID int, ar AbsenceReport) (Record, error) {
	return svc.repo.UpsertAttendance(ctx, Record{StudentID: studentID, Date: ar.Date, Reason: ar.Reason})
}

func (svc *service) Summary(ctx context.Context, studentID int) (Summary, error) {
	records, err := svc.repo.RecentAttendance(ctx, studentID, svc.window)
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying attendance")
	}
	return Summarize(records, svc.window), nil
}

// Summarize computes the attendance figures of one student over the window most recent
// records. A non-positive window means grading.DefaultAttendanceWindow.
func Summarize(records []Record, window int) Summary {
	byDate := make(map[string]Record, len(records))
	rows := make([]grading.AttendanceRecord, 0, len(records))
	for _, r := range records {
		byDate[r.Date] = r
		rows = append(rows, grading.AttendanceRecord{Date: r.Date, Present: r.Present, Reason: r.Reason})
	}

	sum := grading.SummarizeAttendance(rows, window)
	recent := make([]Record, 0, len(sum.Recent))
	for _, row := range sum.Recent {
		recent = append(recent, byDate[row.Date])
	}
	return Summary{
		Recent:         recent,
		AttendanceRate: sum.Rate,
		Absences:       sum.Absences,
	}
}
