package parent

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/qlearn/core"
	"github.com/trezcool/qlearn/core/event"
	"github.com/trezcool/qlearn/core/progress"
)

// Link grants a parent read access to a student's records.
type Link struct {
	ParentID  int `json:"parentId" validate:"required,min=1"`
	StudentID int `json:"studentId" validate:"required,min=1"`
}

func (l Link) Validate(validate *validator.Validate) error { return validate.Struct(l) }

type CourseGrade struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Grade       *int   `json:"grade"`
	Progress    int    `json:"progress"`
	TeacherName string `json:"teacherName"`
	TeacherID   int    `json:"teacherId"`
}

type Grades struct {
	Courses      []CourseGrade `json:"courses"`
	AverageGrade int           `json:"averageGrade"`
}

// GradesFromSummary reshapes a progress summary into the parent grades view.
func GradesFromSummary(sum progress.Summary) Grades {
	grades := Grades{
		Courses:      make([]CourseGrade, 0, len(sum.Courses)),
		AverageGrade: sum.AverageGrade,
	}
	for _, cp := range sum.Courses {
		grades.Courses = append(grades.Courses, CourseGrade{
			ID:          cp.ID,
			Name:        cp.Title,
			Grade:       cp.Grade,
			Progress:    cp.Progress,
			TeacherName: cp.InstructorName,
			TeacherID:   cp.InstructorID,
		})
	}
	return grades
}

type Assignment struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate"`
	Course      string `json:"course"`
}

type Achievement struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Dashboard is the progress overview of a child.
type Dashboard struct {
	Courses          []progress.CourseProgress `json:"courses"`
	CompletedCourses int                       `json:"completedCourses"`
	TotalCourses     int                       `json:"totalCourses"`
	Assignments      []Assignment              `json:"assignments"`
	Achievements     []Achievement             `json:"achievements"`
}

// NewDashboard assembles a Dashboard; achievements are the first maxAchievements completed courses.
func NewDashboard(sum progress.Summary, upcoming []event.Upcoming, maxAchievements int) Dashboard {
	dash := Dashboard{
		Courses:          sum.Courses,
		CompletedCourses: sum.CompletedCourses,
		TotalCourses:     sum.TotalCourses,
		Assignments:      make([]Assignment, 0, len(upcoming)),
		Achievements:     make([]Achievement, 0),
	}
	for _, evt := range upcoming {
		dash.Assignments = append(dash.Assignments, Assignment{
			ID:          evt.ID,
			Title:       evt.Title,
			Description: evt.Description,
			DueDate:     evt.Date,
			Course:      evt.CourseName,
		})
	}
	for _, cp := range sum.Courses {
		if len(dash.Achievements) >= maxAchievements {
			break
		}
		if cp.Completed {
			dash.Achievements = append(dash.Achievements, Achievement{
				Title:       "Course Completion",
				Description: cp.Title + " completed!",
			})
		}
	}
	return dash
}

// Message is a note from a parent to a teacher about a student.
type Message struct {
	ID          int       `json:"id"`
	SenderID    int       `json:"senderId"`
	RecipientID int       `json:"recipientId"`
	StudentID   int       `json:"studentId"`
	Body        string    `json:"message"`
	SentAt      time.Time `json:"sentAt"` // UTC
}

type NewMessage struct {
	TeacherID int    `json:"teacherId" validate:"required,min=1"`
	StudentID int    `json:"studentId" validate:"required,min=1"`
	Message   string `json:"message" validate:"notblank,max=2000"`
}

func (nm *NewMessage) Validate(validate *validator.Validate) error {
	nm.Message = core.CleanString(nm.Message)
	return validate.Struct(nm)
}
