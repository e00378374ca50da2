package progress

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/qlearn/core/course"
	"github.com/trezcool/qlearn/core/grading"
)

// Progress is a student's state on one lesson, keyed by (StudentID, LessonID).
type Progress struct {
	StudentID    int       `json:"studentId"`
	LessonID     int       `json:"lessonId"`
	Completed    bool      `json:"completed"`
	Score        *int      `json:"score"`
	TimeSpent    int       `json:"timeSpent"`    // seconds
	LastAccessed time.Time `json:"lastAccessed"` // UTC
}

// Patch is a partial progress update. Nil fields keep the stored value; TimeSpent is added to it.
type Patch struct {
	Completed *bool `json:"completed"`
	Score     *int  `json:"score" validate:"omitempty,min=0,max=100"`
	TimeSpent int   `json:"timeSpent" validate:"min=0"`
}

func (p Patch) Validate(validate *validator.Validate) error { return validate.Struct(p) }

// Merge applies p to existing (nil when there is no row yet) and returns the row to store.
func Merge(existing *Progress, studentID, lessonID int, p Patch, now time.Time) Progress {
	prog := Progress{StudentID: studentID, LessonID: lessonID}
	if existing != nil {
		prog = *existing
	}
	if p.Completed != nil {
		prog.Completed = *p.Completed
	}
	if p.Score != nil {
		score := *p.Score
		prog.Score = &score
	}
	prog.TimeSpent += p.TimeSpent
	prog.LastAccessed = now
	return prog
}

// Entry is a progress row with the titles of its lesson, module and course.
type Entry struct {
	Progress
	LessonTitle string `json:"lessonTitle"`
	ModuleTitle string `json:"moduleTitle"`
	CourseID    int    `json:"courseId"`
	CourseTitle string `json:"courseTitle"`
}

// Submission holds the answers to a lesson test: question id -> option index.
// Values are kept raw so malformed answers are scored as wrong instead of rejected.
type Submission struct {
	Answers map[string]json.RawMessage `json:"answers" validate:"required"`
}

// IndexedAnswers returns the answers whose question id and option index are both
// integers. Anything else is dropped and so counts as incorrect.
func (s Submission) IndexedAnswers() map[int]int {
	answers := make(map[int]int, len(s.Answers))
	for key, raw := range s.Answers {
		qid, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}
		var idx int
		if err = json.Unmarshal(raw, &idx); err != nil {
			continue
		}
		answers[qid] = idx
	}
	return answers
}

type CourseProgress struct {
	ID               int    `json:"id"`
	Title            string `json:"title"`
	InstructorID     int    `json:"instructorId"`
	InstructorName   string `json:"instructorName"`
	TotalLessons     int    `json:"totalLessons"`
	CompletedLessons int    `json:"completedLessons"`
	Progress         int    `json:"progress"`
	Grade            *int   `json:"grade"`
	Completed        bool   `json:"completed"`
	TimeSpent        int    `json:"timeSpent"`
}

type Summary struct {
	Courses          []CourseProgress `json:"courses"`
	CompletedCourses int              `json:"completedCourses"`
	TotalCourses     int              `json:"totalCourses"`
	AverageGrade     int              `json:"averageGrade"`
	TotalTimeSpent   int              `json:"totalTimeSpent"`
}

// Summarize rolls lesson rows up into the per-course and overall figures of a student.
// Every course is reported, including those without lessons or progress.
func Summarize(courses []course.Course, rows []grading.LessonRow) Summary {
	ids := make([]int, 0, len(courses))
	for _, crs := range courses {
		ids = append(ids, crs.ID)
	}
	rollups := grading.RollupCourses(ids, rows)

	sum := Summary{
		Courses:      make([]CourseProgress, 0, len(courses)),
		TotalCourses: len(courses),
		AverageGrade: grading.AverageGrade(grading.CourseAverages(rollups)),
	}
	for i, r := range rollups {
		crs := courses[i]
		cp := CourseProgress{
			ID:               crs.ID,
			Title:            crs.Title,
			InstructorID:     crs.InstructorID,
			InstructorName:   crs.InstructorName,
			TotalLessons:     r.TotalLessons,
			CompletedLessons: r.CompletedLessons,
			Progress:         r.Progress,
			Grade:            r.Grade(),
			Completed:        r.Completed(),
			TimeSpent:        r.TimeSpent,
		}
		if cp.Completed {
			sum.CompletedCourses++
		}
		sum.TotalTimeSpent += r.TimeSpent
		sum.Courses = append(sum.Courses, cp)
	}
	return sum
}
