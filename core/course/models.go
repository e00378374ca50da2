package course

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/qlearn/core"
	"github.com/trezcool/qlearn/core/grading"
)

type Course struct {
	ID             int       `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	InstructorID   int       `json:"instructorId"`
	InstructorName string    `json:"instructorName"`
	CreatedAt      time.Time `json:"createdAt"` // UTC
}

type Module struct {
	ID         int      `json:"id"`
	CourseID   int      `json:"courseId"`
	Title      string   `json:"title"`
	OrderIndex int      `json:"orderIndex"`
	Lessons    []Lesson `json:"lessons"`
}

type Lesson struct {
	ID         int    `json:"id"`
	ModuleID   int    `json:"moduleId"`
	Title      string `json:"title"`
	VideoURL   string `json:"videoUrl"`
	Content    string `json:"content"`
	OrderIndex int    `json:"orderIndex"`
}

// LessonDetail is a lesson with its course and, when one exists, its test summary.
type LessonDetail struct {
	Lesson
	CourseID     int    `json:"courseId"`
	CourseTitle  string `json:"courseTitle"`
	ModuleTitle  string `json:"moduleTitle"`
	TestID       *int   `json:"testId"`
	TestTitle    string `json:"testTitle,omitempty"`
	PassingScore *int   `json:"passingScore"`
}

// Detail is a course with its modules and lessons in display order.
type Detail struct {
	Course
	Modules []Module `json:"modules"`
}

type Test struct {
	ID           int        `json:"id"`
	LessonID     int        `json:"lessonId"`
	Title        string     `json:"title"`
	PassingScore int        `json:"passingScore"`
	Questions    []Question `json:"questions"`
}

type Question struct {
	ID            int      `json:"id"`
	TestID        int      `json:"testId"`
	Text          string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
}

// Keys returns what grading needs to score a submission.
func (t Test) Keys() []grading.QuestionKey {
	keys := make([]grading.QuestionKey, 0, len(t.Questions))
	for _, q := range t.Questions {
		keys = append(keys, grading.QuestionKey{ID: q.ID, CorrectAnswer: q.CorrectAnswer})
	}
	return keys
}

// StudentTest is a Test as shown to students: without the answers.
type StudentTest struct {
	ID           int               `json:"id"`
	LessonID     int               `json:"lessonId"`
	Title        string            `json:"title"`
	PassingScore int               `json:"passingScore"`
	Questions    []StudentQuestion `json:"questions"`
}

type StudentQuestion struct {
	ID      int      `json:"id"`
	Text    string   `json:"question"`
	Options []string `json:"options"`
}

func (t Test) ForStudent() StudentTest {
	st := StudentTest{
		ID:           t.ID,
		LessonID:     t.LessonID,
		Title:        t.Title,
		PassingScore: t.PassingScore,
		Questions:    make([]StudentQuestion, 0, len(t.Questions)),
	}
	for _, q := range t.Questions {
		st.Questions = append(st.Questions, StudentQuestion{ID: q.ID, Text: q.Text, Options: q.Options})
	}
	return st
}

// NewCourse contains information needed to create a Course with its modules & lessons.
type NewCourse struct {
	Title        string      `json:"title" validate:"required,min=3"`
	Description  string      `json:"description"`
	InstructorID int         `json:"instructorId"`
	Modules      []NewModule `json:"modules" validate:"omitempty,dive"`
}

type NewModule struct {
	Title   string      `json:"title" validate:"notblank"`
	Lessons []NewLesson `json:"lessons" validate:"omitempty,dive"`
}

type NewLesson struct {
	Title    string `json:"title" validate:"notblank"`
	VideoURL string `json:"videoUrl" validate:"omitempty,url"`
	Content  string `json:"content"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	for i := range nc.Modules {
		nc.Modules[i].Title = core.CleanString(nc.Modules[i].Title)
		for j := range nc.Modules[i].Lessons {
			lsn := &nc.Modules[i].Lessons[j]
			lsn.Title = core.CleanString(lsn.Title)
			lsn.VideoURL = core.CleanString(lsn.VideoURL)
		}
	}
	return validate.Struct(nc)
}

// Build turns the nested input into modules & lessons ordered by their position.
func (nc NewCourse) Build() []Module {
	modules := make([]Module, 0, len(nc.Modules))
	for i, nm := range nc.Modules {
		mod := Module{Title: nm.Title, OrderIndex: i, Lessons: make([]Lesson, 0, len(nm.Lessons))}
		for j, nl := range nm.Lessons {
			mod.Lessons = append(mod.Lessons, Lesson{
				Title:      nl.Title,
				VideoURL:   nl.VideoURL,
				Content:    nl.Content,
				OrderIndex: j,
			})
		}
		modules = append(modules, mod)
	}
	return modules
}

// UpdateCourse defines what information may be provided to modify an existing Course.
type UpdateCourse struct {
	Title        string  `json:"title" validate:"omitempty,min=3"`
	Description  *string `json:"description"`
	InstructorID *int    `json:"instructorId"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	uc.Title = core.CleanString(uc.Title)
	return validate.Struct(uc)
}

// TestInput creates or replaces the test of a lesson.
type TestInput struct {
	Title        string          `json:"title" validate:"required"`
	PassingScore int             `json:"passingScore" validate:"min=0,max=100"`
	Questions    []QuestionInput `json:"questions" validate:"required,min=1,dive"`
}

type QuestionInput struct {
	Text          string   `json:"question" validate:"notblank"`
	Options       []string `json:"options" validate:"min=2,dive,notblank"`
	CorrectAnswer int      `json:"correctAnswer" validate:"min=0"`
}

func (ti *TestInput) Validate(validate *validator.Validate) error {
	ti.Title = core.CleanString(ti.Title)
	if err := validate.Struct(ti); err != nil {
		return err
	}
	var flds []core.FieldError
	for i, q := range ti.Questions {
		if q.CorrectAnswer >= len(q.Options) {
			flds = append(flds, core.FieldError{
				Field: fmt.Sprintf("questions[%d].correctAnswer", i),
				Error: "must be the index of one of the options",
			})
		}
	}
	if flds != nil {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

func (ti TestInput) Build(lessonID int) Test {
	t := Test{LessonID: lessonID, Title: ti.Title, PassingScore: ti.PassingScore, Questions: make([]Question, 0, len(ti.Questions))}
	for _, q := range ti.Questions {
		t.Questions = append(t.Questions, Question{Text: core.CleanString(q.Text), Options: q.Options, CorrectAnswer: q.CorrectAnswer})
	}
	return t
}

// Enrollment links a student to a course.
type Enrollment struct {
	StudentID int `json:"studentId" validate:"required,min=1"`
	CourseID  int `json:"courseId" validate:"required,min=1"`
}

// QueryFilter restricts course listings; zero fields are ignored.
type QueryFilter struct {
	InstructorID int
	StudentID    int // enrolled
	ParentID     int // enrolled child
}
