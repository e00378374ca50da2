// Package grading holds the scoring and roll-up arithmetic shared by the
// student, instructor and parent views. Every function is pure and total:
// degenerate inputs (no questions, no lessons, no records) yield 0, never a
// division by zero.
package grading

import (
	"math"
	"sort"
)

const (
	// DefaultAttendanceWindow is the number of most recent attendance records considered for a rate.
	DefaultAttendanceWindow = 30

	// NoReasonPlaceholder is reported for absences submitted without a reason.
	NoReasonPlaceholder = "No reason provided"
)

// RoundPercent returns 100*num/den rounded half-up, using integer arithmetic only.
// A non-positive denominator yields 0.
func RoundPercent(num, den int) int {
	if den <= 0 || num <= 0 {
		return 0
	}
	return (200*num + den) / (2 * den)
}

// RoundHalfUp rounds a non-negative average to the nearest integer, .5 going up.
func RoundHalfUp(v float64) int {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(math.Floor(v + 0.5))
}

// QuestionKey is the part of a question needed to grade it.
type QuestionKey struct {
	ID            int
	CorrectAnswer int
}

// Result is the outcome of grading one submission.
type Result struct {
	Score   int  `json:"score"`
	Passed  bool `json:"passed"`
	Correct int  `json:"-"`
	Total   int  `json:"-"`
}

// ScoreTest grades answers (question id -> chosen option index) against questions.
// Missing, unknown or out-of-range answers count as incorrect. A test without
// questions scores 0 and never passes.
func ScoreTest(questions []QuestionKey, answers map[int]int, passingScore int) Result {
	total := len(questions)
	if total == 0 {
		return Result{}
	}

	var correct int
	for _, q := range questions {
		if ans, ok := answers[q.ID]; ok && ans == q.CorrectAnswer {
			correct++
		}
	}

	score := RoundPercent(correct, total)
	return Result{
		Score:   score,
		Passed:  score >= passingScore,
		Correct: correct,
		Total:   total,
	}
}

// CompletionRatio is the completed share of lessons as a rounded percentage; 0 for a course without lessons.
func CompletionRatio(completed, total int) int {
	if completed > total {
		completed = total
	}
	return RoundPercent(completed, total)
}

// AverageScore averages the non-nil scores. ok is false when no score is present.
func AverageScore(scores []*int) (avg float64, ok bool) {
	var sum, n int
	for _, s := range scores {
		if s == nil {
			continue
		}
		sum += *s
		n++
	}
	if n == 0 {
		return 0, false
	}
	return float64(sum) / float64(n), true
}

// AverageGrade is the rounded mean of the per-course averages that are present.
// Courses without any score are skipped; no graded course yields 0.
func AverageGrade(courseAverages []*float64) int {
	var sum float64
	var n int
	for _, avg := range courseAverages {
		if avg == nil {
			continue
		}
		sum += *avg
		n++
	}
	if n == 0 {
		return 0
	}
	return RoundHalfUp(sum / float64(n))
}

// LessonRow is one lesson of an enrolled course with the student's progress on it, if any.
type LessonRow struct {
	CourseID  int
	LessonID  int
	Completed bool
	Score     *int
	TimeSpent int
}

// CourseRollup summarizes a student's progress through one course.
type CourseRollup struct {
	CourseID         int
	TotalLessons     int
	CompletedLessons int
	Progress         int
	Average          *float64
	TimeSpent        int
}

// Completed reports whether every lesson of a non-empty course is completed.
func (r CourseRollup) Completed() bool {
	return r.TotalLessons > 0 && r.CompletedLessons == r.TotalLessons
}

// Grade is the rounded course average, nil when nothing was scored.
func (r CourseRollup) Grade() *int {
	if r.Average == nil {
		return nil
	}
	g := RoundHalfUp(*r.Average)
	return &g
}

// RollupCourses reduces lesson rows into one rollup per course id, in the order of courseIDs.
// Lessons are counted once even if they appear in several rows: a lesson is completed
// when any of its rows is, and keeps its first score and its largest time spent.
func RollupCourses(courseIDs []int, rows []LessonRow) []CourseRollup {
	type lessonAcc struct {
		completed bool
		score     *int
		timeSpent int
	}
	type courseAcc struct {
		lessons map[int]*lessonAcc
		order   []int
	}

	accs := make(map[int]*courseAcc, len(courseIDs))
	for _, id := range courseIDs {
		accs[id] = &courseAcc{lessons: make(map[int]*lessonAcc)}
	}
	for _, row := range rows {
		acc, ok := accs[row.CourseID]
		if !ok || row.LessonID == 0 {
			continue
		}
		lsn, seen := acc.lessons[row.LessonID]
		if !seen {
			lsn = new(lessonAcc)
			acc.lessons[row.LessonID] = lsn
			acc.order = append(acc.order, row.LessonID)
		}
		lsn.completed = lsn.completed || row.Completed
		if lsn.score == nil {
			lsn.score = row.Score
		}
		if row.TimeSpent > lsn.timeSpent {
			lsn.timeSpent = row.TimeSpent
		}
	}

	rollups := make([]CourseRollup, 0, len(courseIDs))
	for _, id := range courseIDs {
		acc := accs[id]
		r := CourseRollup{CourseID: id, TotalLessons: len(acc.order)}
		scores := make([]*int, 0, len(acc.order))
		for _, lid := range acc.order {
			lsn := acc.lessons[lid]
			if lsn.completed {
				r.CompletedLessons++
			}
			scores = append(scores, lsn.score)
			r.TimeSpent += lsn.timeSpent
		}
		r.Progress = CompletionRatio(r.CompletedLessons, r.TotalLessons)
		if avg, ok := AverageScore(scores); ok {
			r.Average = &avg
		}
		rollups = append(rollups, r)
	}
	return rollups
}

// CourseAverages extracts the per-course averages of rollups, for AverageGrade.
func CourseAverages(rollups []CourseRollup) []*float64 {
	avgs := make([]*float64, 0, len(rollups))
	for _, r := range rollups {
		avgs = append(avgs, r.Average)
	}
	return avgs
}

// AttendanceRecord is one day of attendance. Date is formatted as YYYY-MM-DD.
type AttendanceRecord struct {
	Date    string
	Present bool
	Reason  string
}

// Absence is an absent day as shown to parents.
type Absence struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

// MostRecent returns at most window records, newest first. The input is left untouched.
func MostRecent(records []AttendanceRecord, window int) []AttendanceRecord {
	sorted := make([]AttendanceRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date > sorted[j].Date })
	if window > 0 && len(sorted) > window {
		sorted = sorted[:window]
	}
	return sorted
}

// AttendanceRate is the rounded share of present days among the window most recent records.
// A non-positive window means DefaultAttendanceWindow. No records yields 0.
func AttendanceRate(records []AttendanceRecord, window int) int {
	if window <= 0 {
		window = DefaultAttendanceWindow
	}
	return presentRate(MostRecent(records, window))
}

func presentRate(recent []AttendanceRecord) int {
	var present int
	for _, r := range recent {
		if r.Present {
			present++
		}
	}
	return RoundPercent(present, len(recent))
}

// Absences lists absent days, newest first, substituting NoReasonPlaceholder for empty reasons.
func Absences(records []AttendanceRecord) []Absence {
	return absencesOf(MostRecent(records, 0))
}

// absencesOf expects records sorted newest first.
func absencesOf(sorted []AttendanceRecord) []Absence {
	absences := make([]Absence, 0)
	for _, r := range sorted {
		if r.Present {
			continue
		}
		reason := r.Reason
		if reason == "" {
			reason = NoReasonPlaceholder
		}
		absences = append(absences, Absence{Date: r.Date, Reason: reason})
	}
	return absences
}

// AttendanceSummary holds the window most recent records, newest first, with their
// rate and absences.
type AttendanceSummary struct {
	Recent   []AttendanceRecord
	Rate     int
	Absences []Absence
}

// SummarizeAttendance sorts records once and derives AttendanceRate and Absences from
// the same window. A non-positive window means DefaultAttendanceWindow.
func SummarizeAttendance(records []AttendanceRecord, window int) AttendanceSummary {
	if window <= 0 {
		window = DefaultAttendanceWindow
	}
	recent := MostRecent(records, window)
	return AttendanceSummary{
		Recent:   recent,
		Rate:     presentRate(recent),
		Absences: absencesOf(recent),
	}
}
