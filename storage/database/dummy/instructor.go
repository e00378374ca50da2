package dummydb

import (
	"context"

	"github.com/trezcool/qlearn/core"
	"github.com/trezcool/qlearn/core/instructor"
	"github.com/trezcool/qlearn/core/user"
)

type instructorRepository struct {
	db *DB
}

var _ instructor.Repository = (*instructorRepository)(nil)

func NewInstructorRepository(db *DB) instructor.Repository {
	return &instructorRepository{db: db}
}

func (repo *instructorRepository) InstructorStudents(_ context.Context, instructorID int) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ids := make(map[int]bool)
	for key := range repo.db.enrollments {
		if crs, ok := repo.db.courses[key.b]; ok && crs.InstructorID == instructorID {
			ids[key.a] = true
		}
	}
	for key := range repo.db.mappings {
		if key.a == instructorID {
			ids[key.b] = true
		}
	}

	students := make([]user.User, 0, len(ids))
	for id := range ids {
		if usr, ok := repo.db.users[id]; ok && usr.IsStudent() {
			students = append(students, *usr)
		}
	}
	sortUsers(students, []core.DBOrdering{{Field: "name", Ascending: true}})
	return students, nil
}
