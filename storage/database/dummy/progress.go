package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/qlearn/core/course"
	"github.com/trezcool/qlearn/core/grading"
	"github.com/trezcool/qlearn/core/progress"
)

type progressRepository struct {
	db *DB
}

var _ progress.Repository = (*progressRepository)(nil)

func NewProgressRepository(db *DB) progress.Repository {
	return &progressRepository{db: db}
}

// UpsertProgress merges under the write lock, so concurrent time spent adds up.
func (repo *progressRepository) UpsertProgress(_ context.Context, studentID, lessonID int, p progress.Patch) (progress.Progress, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.lessons[lessonID]; !ok {
		return progress.Progress{}, course.ErrLessonNotFound
	}
	key := pair{studentID, lessonID}
	merged := progress.Merge(repo.db.progress[key], studentID, lessonID, p, time.Now().UTC())
	repo.db.progress[key] = &merged
	return merged, nil
}

func (repo *progressRepository) GetProgress(_ context.Context, studentID, lessonID int) (progress.Progress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	prog, ok := repo.db.progress[pair{studentID, lessonID}]
	if !ok {
		return progress.Progress{}, progress.ErrNotFound
	}
	return *prog, nil
}

func (repo *progressRepository) QueryStudentProgress(_ context.Context, studentID int) ([]progress.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	entries := make([]progress.Entry, 0)
	for key, prog := range repo.db.progress {
		if key.a != studentID {
			continue
		}
		crs, mod, ok := repo.db.courseOfLesson(key.b)
		if !ok {
			continue
		}
		entries = append(entries, progress.Entry{
			Progress:    *prog,
			LessonTitle: repo.db.lessons[key.b].Title,
			ModuleTitle: mod.Title,
			CourseID:    crs.ID,
			CourseTitle: crs.Title,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].LastAccessed.Equal(entries[j].LastAccessed) {
			return entries[i].LastAccessed.After(entries[j].LastAccessed)
		}
		return entries[i].LessonID < entries[j].LessonID
	})
	return entries, nil
}

func (repo *progressRepository) LessonRows(_ context.Context, studentID int) ([]grading.LessonRow, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rows := make([]grading.LessonRow, 0)
	for lid := range repo.db.lessons {
		crs, _, ok := repo.db.courseOfLesson(lid)
		if !ok {
			continue
		}
		if _, enrolled := repo.db.enrollments[pair{studentID, crs.ID}]; !enrolled {
			continue
		}
		row := grading.LessonRow{CourseID: crs.ID, LessonID: lid}
		if prog, ok := repo.db.progress[pair{studentID, lid}]; ok {
			row.Completed = prog.Completed
			row.Score = prog.Score
			row.TimeSpent = prog.TimeSpent
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].LessonID < rows[j].LessonID })
	return rows, nil
}
