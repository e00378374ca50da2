package pgrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/qlearn/core/attendance"
	"github.com/trezcool/qlearn/core/user"
)

const attendanceColumns = `student_id, to_char(date, 'YYYY-MM-DD') AS date, present, COALESCE(reason, '') AS reason`

type attendanceRow struct {
	StudentID int    `db:"student_id"`
	Date      string `db:"date"`
	Present   bool   `db:"present"`
	Reason    string `db:"reason"`
}

func (r attendanceRow) record() attendance.Record {
	return attendance.Record{StudentID: r.StudentID, Date: r.Date, Present: r.Present, Reason: r.Reason}
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) UpsertAttendance(ctx context.Context, r attendance.Record) (attendance.Record, error) {
	var row attendanceRow
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO attendance (student_id, date, present, reason) VALUES ($1, $2, $3, $4)
		ON CONFLICT (student_id, date) DO UPDATE SET present = EXCLUDED.present, reason = EXCLUDED.reason
		RETURNING `+attendanceColumns,
		r.StudentID, r.Date, r.Present, nullString(r.Reason))
	if err != nil {
		if pgCode(err) == foreignKeyViolation {
			return attendance.Record{}, user.ErrNotFound
		}
		return attendance.Record{}, errors.Wrap(err, "upserting attendance")
	}
	return row.record(), nil
}

func (repo *attendanceRepository) RecentAttendance(ctx context.Context, studentID, limit int) ([]attendance.Record, error) {
	var rows []attendanceRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT `+attendanceColumns+` FROM attendance
		WHERE student_id = $1 ORDER BY attendance.date DESC LIMIT NULLIF($2, 0)`,
		studentID, max(limit, 0))
	if err != nil {
		return nil, errors.Wrap(err, "selecting attendance")
	}
	records := make([]attendance.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.record())
	}
	return records, nil
}
