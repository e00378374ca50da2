// Package dummydb is an in-memory store implementing every domain repository.
// A single lock guards all tables so that joins and cascades see a consistent state.
package dummydb

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/qlearn/core/attendance"
	"github.com/trezcool/qlearn/core/course"
	"github.com/trezcool/qlearn/core/event"
	"github.com/trezcool/qlearn/core/mapping"
	"github.com/trezcool/qlearn/core/parent"
	"github.com/trezcool/qlearn/core/progress"
	"github.com/trezcool/qlearn/core/user"
)

type (
	// pair keys the association tables: (student, lesson), (parent, student), ...
	pair struct{ a, b int }

	attendanceKey struct {
		studentID int
		date      string
	}

	DB struct {
		sync.RWMutex

		users       map[int]*user.User
		courses     map[int]*course.Course
		modules     map[int]*course.Module // without lessons
		lessons     map[int]*course.Lesson
		tests       map[int]*course.Test // by lesson ID
		enrollments map[pair]time.Time   // (student, course)
		progress    map[pair]*progress.Progress
		parentLinks map[pair]struct{} // (parent, student)
		mappings    map[pair]*mapping.Mapping
		attendance  map[attendanceKey]*attendance.Record
		events      map[int]*event.Event
		messages    map[int]*parent.Message

		pkCount map[string]int
	}
)

func Open() (*DB, error) {
	db := &DB{
		users:       make(map[int]*user.User),
		courses:     make(map[int]*course.Course),
		modules:     make(map[int]*course.Module),
		lessons:     make(map[int]*course.Lesson),
		tests:       make(map[int]*course.Test),
		enrollments: make(map[pair]time.Time),
		progress:    make(map[pair]*progress.Progress),
		parentLinks: make(map[pair]struct{}),
		mappings:    make(map[pair]*mapping.Mapping),
		attendance:  make(map[attendanceKey]*attendance.Record),
		events:      make(map[int]*event.Event),
		messages:    make(map[int]*parent.Message),
		pkCount:     make(map[string]int),
	}
	return db, nil
}

// PingContext always succeeds.
func (db *DB) PingContext(ctx context.Context) error { return ctx.Err() }

// nextID must be called with the write lock held.
func (db *DB) nextID(table string) int {
	db.pkCount[table]++
	return db.pkCount[table]
}

// courseOfLesson must be called with a lock held.
func (db *DB) courseOfLesson(lessonID int) (*course.Course, *course.Module, bool) {
	lsn, ok := db.lessons[lessonID]
	if !ok {
		return nil, nil, false
	}
	mod, ok := db.modules[lsn.ModuleID]
	if !ok {
		return nil, nil, false
	}
	crs, ok := db.courses[mod.CourseID]
	return crs, mod, ok
}

// withInstructor must be called with a lock held.
func (db *DB) withInstructor(crs course.Course) course.Course {
	if usr, ok := db.users[crs.InstructorID]; ok {
		crs.InstructorName = usr.Name
	}
	return crs
}

// deleteCourse removes a course and everything hanging off it. Must be called with the write lock held.
func (db *DB) deleteCourse(id int) {
	delete(db.courses, id)
	for mid, mod := range db.modules {
		if mod.CourseID != id {
			continue
		}
		for lid, lsn := range db.lessons {
			if lsn.ModuleID != mid {
				continue
			}
			delete(db.tests, lid)
			for key := range db.progress {
				if key.b == lid {
					delete(db.progress, key)
				}
			}
			delete(db.lessons, lid)
		}
		delete(db.modules, mid)
	}
	for key := range db.enrollments {
		if key.b == id {
			delete(db.enrollments, key)
		}
	}
	for eid, evt := range db.events {
		evt.CourseIDs = removeInt(evt.CourseIDs, id)
		if len(evt.CourseIDs) == 0 {
			delete(db.events, eid)
		}
	}
}

// deleteUser removes a user and the rows referencing them. Must be called with the write lock held.
func (db *DB) deleteUser(id int) bool {
	if _, ok := db.users[id]; !ok {
		return false
	}
	delete(db.users, id)
	for cid, crs := range db.courses {
		if crs.InstructorID == id {
			db.deleteCourse(cid)
		}
	}
	for key := range db.enrollments {
		if key.a == id {
			delete(db.enrollments, key)
		}
	}
	for key := range db.progress {
		if key.a == id {
			delete(db.progress, key)
		}
	}
	for key := range db.parentLinks {
		if key.a == id || key.b == id {
			delete(db.parentLinks, key)
		}
	}
	for key := range db.mappings {
		if key.a == id || key.b == id {
			delete(db.mappings, key)
		}
	}
	for key := range db.attendance {
		if key.studentID == id {
			delete(db.attendance, key)
		}
	}
	for mid, msg := range db.messages {
		if msg.SenderID == id || msg.RecipientID == id {
			delete(db.messages, mid)
		} else if msg.StudentID == id {
			msg.StudentID = 0
		}
	}
	for _, evt := range db.events {
		if evt.CreatedBy == id {
			evt.CreatedBy = 0
		}
	}
	return true
}

func removeInt(ids []int, id int) []int {
	kept := ids[:0]
	for _, i := range ids {
		if i != id {
			kept = append(kept, i)
		}
	}
	return kept
}
