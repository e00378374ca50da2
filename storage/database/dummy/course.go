package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/qlearn/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course, modules []course.Module) (course.Detail, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.users[crs.InstructorID]; !ok {
		return course.Detail{}, course.ErrNotFound
	}
	crs.ID = repo.db.nextID("courses")
	stored := crs
	repo.db.courses[crs.ID] = &stored

	created := make([]course.Module, 0, len(modules))
	for _, mod := range modules {
		lessons := mod.Lessons
		mod.ID = repo.db.nextID("modules")
		mod.CourseID = crs.ID
		mod.Lessons = nil
		storedMod := mod
		repo.db.modules[mod.ID] = &storedMod

		mod.Lessons = make([]course.Lesson, 0, len(lessons))
		for _, lsn := range lessons {
			lsn.ID = repo.db.nextID("lessons")
			lsn.ModuleID = mod.ID
			storedLsn := lsn
			repo.db.lessons[lsn.ID] = &storedLsn
			mod.Lessons = append(mod.Lessons, lsn)
		}
		created = append(created, mod)
	}
	return course.Detail{Course: repo.db.withInstructor(crs), Modules: created}, nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.courses[crs.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	orig.Title = crs.Title
	orig.Description = crs.Description
	orig.InstructorID = crs.InstructorID
	return repo.db.withInstructor(*orig), nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return course.ErrNotFound
	}
	repo.db.deleteCourse(id)
	return nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id int) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	crs, ok := repo.db.courses[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	return repo.db.withInstructor(*crs), nil
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter course.QueryFilter) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var children map[int]bool
	if filter.ParentID != 0 {
		children = make(map[int]bool)
		for key := range repo.db.parentLinks {
			if key.a == filter.ParentID {
				children[key.b] = true
			}
		}
	}

	courses := make([]course.Course, 0)
	for _, crs := range repo.db.courses {
		if filter.InstructorID != 0 && crs.InstructorID != filter.InstructorID {
			continue
		}
		if filter.StudentID != 0 {
			if _, ok := repo.db.enrollments[pair{filter.StudentID, crs.ID}]; !ok {
				continue
			}
		}
		if children != nil && !repo.anyEnrolled(children, crs.ID) {
			continue
		}
		courses = append(courses, repo.db.withInstructor(*crs))
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	return courses, nil
}

func (repo *courseRepository) anyEnrolled(students map[int]bool, courseID int) bool {
	for key := range repo.db.enrollments {
		if key.b == courseID && students[key.a] {
			return true
		}
	}
	return false
}

func (repo *courseRepository) GetCourseModules(_ context.Context, courseID int) ([]course.Module, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	modules := make([]course.Module, 0)
	for _, mod := range repo.db.modules {
		if mod.CourseID != courseID {
			continue
		}
		m := *mod
		m.Lessons = make([]course.Lesson, 0)
		for _, lsn := range repo.db.lessons {
			if lsn.ModuleID == m.ID {
				m.Lessons = append(m.Lessons, *lsn)
			}
		}
		sort.Slice(m.Lessons, func(i, j int) bool {
			return byOrder(m.Lessons[i].OrderIndex, m.Lessons[i].ID, m.Lessons[j].OrderIndex, m.Lessons[j].ID)
		})
		modules = append(modules, m)
	}
	sort.Slice(modules, func(i, j int) bool {
		return byOrder(modules[i].OrderIndex, modules[i].ID, modules[j].OrderIndex, modules[j].ID)
	})
	return modules, nil
}

func byOrder(orderA, idA, orderB, idB int) bool {
	if orderA != orderB {
		return orderA < orderB
	}
	return idA < idB
}

func (repo *courseRepository) GetLesson(_ context.Context, lessonID int) (course.LessonDetail, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	crs, mod, ok := repo.db.courseOfLesson(lessonID)
	if !ok {
		return course.LessonDetail{}, course.ErrLessonNotFound
	}
	detail := course.LessonDetail{
		Lesson:      *repo.db.lessons[lessonID],
		CourseID:    crs.ID,
		CourseTitle: crs.Title,
		ModuleTitle: mod.Title,
	}
	if tst, ok := repo.db.tests[lessonID]; ok {
		id, score := tst.ID, tst.PassingScore
		detail.TestID = &id
		detail.TestTitle = tst.Title
		detail.PassingScore = &score
	}
	return detail, nil
}

func (repo *courseRepository) GetLessonTest(_ context.Context, lessonID int) (course.Test, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	tst, ok := repo.db.tests[lessonID]
	if !ok {
		return course.Test{}, course.ErrTestNotFound
	}
	return copyTest(*tst), nil
}

// SaveLessonTest replaces any previous test of the lesson, questions included.
func (repo *courseRepository) SaveLessonTest(_ context.Context, tst course.Test) (course.Test, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.lessons[tst.LessonID]; !ok {
		return course.Test{}, course.ErrLessonNotFound
	}
	tst = copyTest(tst)
	if prev, ok := repo.db.tests[tst.LessonID]; ok {
		tst.ID = prev.ID
	} else {
		tst.ID = repo.db.nextID("tests")
	}
	for i := range tst.Questions {
		tst.Questions[i].ID = repo.db.nextID("questions")
		tst.Questions[i].TestID = tst.ID
	}
	repo.db.tests[tst.LessonID] = &tst
	return copyTest(tst), nil
}

func copyTest(tst course.Test) course.Test {
	questions := make([]course.Question, 0, len(tst.Questions))
	for _, q := range tst.Questions {
		q.Options = append([]string(nil), q.Options...)
		questions = append(questions, q)
	}
	tst.Questions = questions
	return tst
}

func (repo *courseRepository) Enroll(_ context.Context, studentID, courseID int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[courseID]; !ok {
		return course.ErrNotFound
	}
	key := pair{studentID, courseID}
	if _, ok := repo.db.enrollments[key]; !ok {
		repo.db.enrollments[key] = time.Now().UTC()
	}
	return nil
}

func (repo *courseRepository) IsEnrolled(_ context.Context, studentID, courseID int) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	_, ok := repo.db.enrollments[pair{studentID, courseID}]
	return ok, nil
}
