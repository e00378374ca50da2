package parent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/qlearn/core/event"
	"github.com/trezcool/qlearn/core/progress"
)

func testSummary() progress.Summary {
	grade := 90
	return progress.Summary{
		Courses: []progress.CourseProgress{
			{ID: 1, Title: "Go", InstructorID: 9, InstructorName: "Ada", TotalLessons: 2, CompletedLessons: 2, Progress: 100, Grade: &grade, Completed: true},
			{ID: 2, Title: "SQL", InstructorID: 8, InstructorName: "Linus", TotalLessons: 2, CompletedLessons: 1, Progress: 50},
			{ID: 3, Title: "Git", InstructorID: 8, InstructorName: "Linus", TotalLessons: 1, CompletedLessons: 1, Progress: 100, Completed: true},
		},
		CompletedCourses: 2,
		TotalCourses:     3,
		AverageGrade:     90,
	}
}

func TestGradesFromSummary(t *testing.T) {
	grades := GradesFromSummary(testSummary())
	assert.Equal(t, 90, grades.AverageGrade)
	require.Len(t, grades.Courses, 3)
	assert.Equal(t, CourseGrade{ID: 2, Name: "SQL", Progress: 50, TeacherName: "Linus", TeacherID: 8}, grades.Courses[1])
	require.NotNil(t, grades.Courses[0].Grade)
	assert.Equal(t, 90, *grades.Courses[0].Grade)
}

func TestNewDashboard(t *testing.T) {
	upcoming := []event.Upcoming{
		{ID: 4, Title: "Quiz", Description: "Chapter 1", Date: "2030-01-02", CourseID: 1, CourseName: "Go"},
	}

	dash := NewDashboard(testSummary(), upcoming, 5)
	assert.Equal(t, 2, dash.CompletedCourses)
	assert.Equal(t, 3, dash.TotalCourses)
	assert.Equal(t, []Assignment{{ID: 4, Title: "Quiz", Description: "Chapter 1", DueDate: "2030-01-02", Course: "Go"}}, dash.Assignments)
	assert.Equal(t, []Achievement{
		{Title: "Course Completion", Description: "Go completed!"},
		{Title: "Course Completion", Description: "Git completed!"},
	}, dash.Achievements)

	limited := NewDashboard(testSummary(), nil, 1)
	assert.Len(t, limited.Achievements, 1)
	assert.NotNil(t, limited.Assignments)
}
