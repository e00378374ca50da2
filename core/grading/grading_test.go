package grading

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func iPtr(i int) *int { return &i }

func fPtr(f float64) *float64 { return &f }

func TestRoundPercent(t *testing.T) {
	tests := []struct {
		num, den int
		want     int
	}{
		{num: 0, den: 0, want: 0},
		{num: 3, den: 0, want: 0},
		{num: 0, den: 5, want: 0},
		{num: 1, den: 8, want: 13}, // 12.5
		{num: 5, den: 8, want: 63}, // 62.5
		{num: 1, den: 3, want: 33},
		{num: 2, den: 3, want: 67},
		{num: 1, den: 2, want: 50},
		{num: 7, den: 7, want: 100},
		{num: 1, den: 200, want: 1}, // 0.5
		{num: 1, den: 201, want: 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.num, tt.den), func(t *testing.T) {
			assert.Equal(t, tt.want, RoundPercent(tt.num, tt.den))
		})
	}
}

func TestScoreTest(t *testing.T) {
	questions := []QuestionKey{
		{ID: 1, CorrectAnswer: 0},
		{ID: 2, CorrectAnswer: 3},
		{ID: 3, CorrectAnswer: 1},
	}

	tests := []struct {
		name         string
		questions    []QuestionKey
		answers      map[int]int
		passingScore int
		want         Result
	}{
		{name: "no questions", answers: map[int]int{1: 0}, passingScore: 0, want: Result{}},
		{name: "no answers", questions: questions, passingScore: 70, want: Result{Score: 0, Total: 3}},
		{name: "no answers with zero threshold", questions: questions, passingScore: 0, want: Result{Score: 0, Passed: true, Total: 3}},
		{
			name: "all correct", questions: questions, answers: map[int]int{1: 0, 2: 3, 3: 1}, passingScore: 100,
			want: Result{Score: 100, Passed: true, Correct: 3, Total: 3},
		},
		{
			name: "two of three", questions: questions, answers: map[int]int{1: 0, 2: 3, 3: 2}, passingScore: 67,
			want: Result{Score: 67, Passed: true, Correct: 2, Total: 3},
		},
		{
			name: "just below threshold", questions: questions, answers: map[int]int{1: 0}, passingScore: 34,
			want: Result{Score: 33, Passed: false, Correct: 1, Total: 3},
		},
		{
			name: "out of range and negative answers", questions: questions, answers: map[int]int{1: -1, 2: 99, 3: 1}, passingScore: 50,
			want: Result{Score: 33, Correct: 1, Total: 3},
		},
		{
			name: "extra unrelated answers", questions: questions, answers: map[int]int{1: 0, 2: 3, 3: 1, 42: 0, 43: 1}, passingScore: 70,
			want: Result{Score: 100, Passed: true, Correct: 3, Total: 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScoreTest(tt.questions, tt.answers, tt.passingScore))
		})
	}
}

func TestScoreTest_halfBoundary(t *testing.T) {
	questions := make([]QuestionKey, 8)
	for i := range questions {
		questions[i] = QuestionKey{ID: i + 1, CorrectAnswer: 1}
	}
	res := ScoreTest(questions, map[int]int{1: 1}, 13)
	assert.Equal(t, 13, res.Score)
	assert.True(t, res.Passed)
}

func TestScoreTest_properties(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		n := rnd.Intn(12) + 1
		questions := make([]QuestionKey, n)
		answers := make(map[int]int)
		var correct int
		for j := range questions {
			questions[j] = QuestionKey{ID: j + 1, CorrectAnswer: rnd.Intn(4)}
			switch rnd.Intn(3) {
			case 0: // unanswered
			case 1:
				answers[j+1] = questions[j].CorrectAnswer
				correct++
			default:
				answers[j+1] = questions[j].CorrectAnswer + 1
			}
		}
		passing := rnd.Intn(101)

		res := ScoreTest(questions, answers, passing)
		require.Equal(t, RoundPercent(correct, n), res.Score)
		require.Equal(t, res.Score >= passing, res.Passed)

		// permuting questions does not change the outcome
		shuffled := make([]QuestionKey, n)
		copy(shuffled, questions)
		rnd.Shuffle(n, func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		require.Equal(t, res, ScoreTest(shuffled, answers, passing))

		// answers for unknown questions are ignored
		answers[1000+i] = 0
		require.Equal(t, res, ScoreTest(questions, answers, passing))
	}
}

func TestCompletionRatio(t *testing.T) {
	assert.Equal(t, 0, CompletionRatio(0, 0))
	assert.Equal(t, 0, CompletionRatio(3, 0))
	assert.Equal(t, 50, CompletionRatio(2, 4))
	assert.Equal(t, 100, CompletionRatio(5, 4))
}

func TestAverageScore(t *testing.T) {
	avg, ok := AverageScore([]*int{iPtr(80), nil, iPtr(100)})
	require.True(t, ok)
	assert.Equal(t, 90.0, avg)

	_, ok = AverageScore([]*int{nil, nil})
	assert.False(t, ok)

	_, ok = AverageScore(nil)
	assert.False(t, ok)
}

func TestAverageGrade(t *testing.T) {
	tests := []struct {
		name string
		avgs []*float64
		want int
	}{
		{name: "no courses", want: 0},
		{name: "only ungraded courses", avgs: []*float64{nil, nil}, want: 0},
		{name: "ungraded course skipped", avgs: []*float64{fPtr(90), nil, fPtr(70)}, want: 80},
		{name: "half rounds up", avgs: []*float64{fPtr(80), fPtr(81)}, want: 81},
		{name: "fractional averages", avgs: []*float64{fPtr(66.66), fPtr(50)}, want: 58},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AverageGrade(tt.avgs))
		})
	}
}

func TestRollupCourses(t *testing.T) {
	rows := []LessonRow{
		{CourseID: 1, LessonID: 10, Completed: true, Score: iPtr(80), TimeSpent: 30},
		{CourseID: 1, LessonID: 11, Completed: false, TimeSpent: 15},
		{CourseID: 1, LessonID: 12, Completed: true, Score: iPtr(100)},
		{CourseID: 2, LessonID: 20, Completed: true},
		{CourseID: 2, LessonID: 20, Completed: false}, // duplicate lesson
		{CourseID: 9, LessonID: 90, Completed: true},  // not requested
	}

	rollups := RollupCourses([]int{1, 2, 3}, rows)
	require.Len(t, rollups, 3)

	c1 := rollups[0]
	assert.Equal(t, 1, c1.CourseID)
	assert.Equal(t, 3, c1.TotalLessons)
	assert.Equal(t, 2, c1.CompletedLessons)
	assert.Equal(t, 67, c1.Progress)
	assert.Equal(t, 45, c1.TimeSpent)
	require.NotNil(t, c1.Average)
	assert.Equal(t, 90.0, *c1.Average)
	assert.Equal(t, iPtr(90), c1.Grade())
	assert.False(t, c1.Completed())

	c2 := rollups[1]
	assert.Equal(t, 1, c2.TotalLessons)
	assert.Equal(t, 1, c2.CompletedLessons)
	assert.Equal(t, 100, c2.Progress)
	assert.Nil(t, c2.Average)
	assert.Nil(t, c2.Grade())
	assert.True(t, c2.Completed())

	empty := rollups[2]
	assert.Equal(t, CourseRollup{CourseID: 3}, empty)
	assert.False(t, empty.Completed())

	assert.Equal(t, 90, AverageGrade(CourseAverages(rollups)))
}

func TestRollupCourses_repeatedLesson(t *testing.T) {
	rows := []LessonRow{
		{CourseID: 1, LessonID: 10, Score: iPtr(40), TimeSpent: 30},
		{CourseID: 1, LessonID: 10, Completed: true, Score: iPtr(40), TimeSpent: 30},
		{CourseID: 1, LessonID: 11, Completed: true, Score: iPtr(100), TimeSpent: 10},
	}

	rollups := RollupCourses([]int{1}, rows)
	require.Len(t, rollups, 1)
	r := rollups[0]
	assert.Equal(t, 2, r.TotalLessons)
	assert.Equal(t, 2, r.CompletedLessons)
	assert.Equal(t, 40, r.TimeSpent)
	require.NotNil(t, r.Average)
	assert.Equal(t, 70.0, *r.Average)
	assert.True(t, r.Completed())
}

func TestAttendanceRate(t *testing.T) {
	records := []AttendanceRecord{
		{Date: "2024-03-01", Present: true},
		{Date: "2024-03-02", Present: false},
		{Date: "2024-03-03", Present: true},
	}
	assert.Equal(t, 67, AttendanceRate(records, 3))
	assert.Equal(t, 67, AttendanceRate(records, 0))
	assert.Equal(t, 50, AttendanceRate(records, 2)) // 03-03 & 03-02
	assert.Equal(t, 0, AttendanceRate(nil, 30))

	// only the window most recent records count
	var many []AttendanceRecord
	for d := 1; d <= 31; d++ {
		many = append(many, AttendanceRecord{Date: fmt.Sprintf("2024-01-%02d", d), Present: d != 1})
	}
	assert.Equal(t, 100, AttendanceRate(many, DefaultAttendanceWindow))
}

func TestAbsences(t *testing.T) {
	records := []AttendanceRecord{
		{Date: "2024-03-01", Present: false, Reason: "Sick"},
		{Date: "2024-03-03", Present: false},
		{Date: "2024-03-02", Present: true},
	}
	assert.Equal(t, []Absence{
		{Date: "2024-03-03", Reason: NoReasonPlaceholder},
		{Date: "2024-03-01", Reason: "Sick"},
	}, Absences(records))

	assert.Equal(t, []Absence{}, Absences(nil))
	assert.Equal(t, "2024-03-01", records[0].Date, "input must not be reordered")
}

func TestSummarizeAttendance(t *testing.T) {
	records := []AttendanceRecord{
		{Date: "2024-03-01", Present: false, Reason: "Dentist"},
		{Date: "2024-03-04", Present: true},
		{Date: "2024-03-02", Present: false},
		{Date: "2024-03-03", Present: true},
	}

	sum := SummarizeAttendance(records, 3)
	require.Len(t, sum.Recent, 3)
	assert.Equal(t, []string{"2024-03-04", "2024-03-03", "2024-03-02"},
		[]string{sum.Recent[0].Date, sum.Recent[1].Date, sum.Recent[2].Date})
	assert.Equal(t, 67, sum.Rate)
	assert.Equal(t, []Absence{{Date: "2024-03-02", Reason: NoReasonPlaceholder}}, sum.Absences)
	assert.Equal(t, AttendanceRate(records, 3), sum.Rate)

	assert.Equal(t, SummarizeAttendance(records, DefaultAttendanceWindow), SummarizeAttendance(records, 0))
	assert.Equal(t, AttendanceSummary{Recent: []AttendanceRecord{}, Absences: []Absence{}}, SummarizeAttendance(nil, 30))
}
