package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/qlearn/core"
	"github.com/trezcool/qlearn/core/mapping"
	"github.com/trezcool/qlearn/core/user"
)

type mappingRepository struct {
	db *DB
}

var _ mapping.Repository = (*mappingRepository)(nil)

func NewMappingRepository(db *DB) mapping.Repository {
	return &mappingRepository{db: db}
}

func (repo *mappingRepository) SaveMapping(_ context.Context, m mapping.Mapping) (mapping.Mapping, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := pair{m.TeacherID, m.StudentID}
	if prev, ok := repo.db.mappings[key]; ok {
		prev.Technology = m.Technology
		return repo.withNames(*prev), nil
	}
	repo.db.mappings[key] = &m
	return repo.withNames(m), nil
}

func (repo *mappingRepository) withNames(m mapping.Mapping) mapping.Mapping {
	if usr, ok := repo.db.users[m.TeacherID]; ok {
		m.TeacherName = usr.Name
	}
	if usr, ok := repo.db.users[m.StudentID]; ok {
		m.StudentName = usr.Name
	}
	return m
}

func (repo *mappingRepository) QueryMappings(_ context.Context, filter mapping.QueryFilter) ([]mapping.Mapping, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	mappings := make([]mapping.Mapping, 0)
	for key, m := range repo.db.mappings {
		if (filter.TeacherID != 0 && key.a != filter.TeacherID) || (filter.StudentID != 0 && key.b != filter.StudentID) {
			continue
		}
		mappings = append(mappings, repo.withNames(*m))
	}
	sort.Slice(mappings, func(i, j int) bool {
		if !mappings[i].AssignedDate.Equal(mappings[j].AssignedDate) {
			return mappings[i].AssignedDate.After(mappings[j].AssignedDate)
		}
		if mappings[i].TeacherID != mappings[j].TeacherID {
			return mappings[i].TeacherID < mappings[j].TeacherID
		}
		return mappings[i].StudentID < mappings[j].StudentID
	})
	return mappings, nil
}

func (repo *mappingRepository) UnmappedStudents(_ context.Context) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	mapped := make(map[int]bool, len(repo.db.mappings))
	for key := range repo.db.mappings {
		mapped[key.b] = true
	}
	students := make([]user.User, 0)
	for _, usr := range repo.db.users {
		if usr.IsStudent() && !mapped[usr.ID] {
			students = append(students, *usr)
		}
	}
	sortUsers(students, []core.DBOrdering{{Field: "name", Ascending: true}})
	return students, nil
}

func (repo *mappingRepository) Technologies(_ context.Context) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	seen := make(map[string]bool)
	techs := make([]string, 0)
	for _, usr := range repo.db.users {
		if usr.IsInstructor() && usr.Technology != "" && !seen[usr.Technology] {
			seen[usr.Technology] = true
			techs = append(techs, usr.Technology)
		}
	}
	sort.Strings(techs)
	return techs, nil
}
