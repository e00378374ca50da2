package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/qlearn/core/attendance"
	"github.com/trezcool/qlearn/core/user"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) UpsertAttendance(_ context.Context, r attendance.Record) (attendance.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.users[r.StudentID]; !ok {
		return attendance.Record{}, user.ErrNotFound
	}
	repo.db.attendance[attendanceKey{r.StudentID, r.Date}] = &r
	return r, nil
}

func (repo *attendanceRepository) RecentAttendance(_ context.Context, studentID, limit int) ([]attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	records := make([]attendance.Record, 0)
	for key, r := range repo.db.attendance {
		if key.studentID == studentID {
			records = append(records, *r)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date > records[j].Date })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
