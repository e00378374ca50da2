package pgrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/qlearn/core/course"
)

const courseSelect = `
	SELECT c.id, c.title, c.description, c.instructor_id, u.name AS instructor_name, c.created_at
	FROM courses c JOIN users u ON u.id = c.instructor_id`

type courseRow struct {
	ID             int       `db:"id"`
	Title          string    `db:"title"`
	Description    string    `db:"description"`
	InstructorID   int       `db:"instructor_id"`
	InstructorName string    `db:"instructor_name"`
	CreatedAt      time.Time `db:"created_at"`
}

func (r courseRow) course() course.Course {
	return course.Course{
		ID:             r.ID,
		Title:          r.Title,
		Description:    r.Description,
		InstructorID:   r.InstructorID,
		InstructorName: r.InstructorName,
		CreatedAt:      r.CreatedAt.UTC(),
	}
}

type lessonRow struct {
	ID         int    `db:"id"`
	ModuleID   int    `db:"module_id"`
	Title      string `db:"title"`
	VideoURL   string `db:"video_url"`
	Content    string `db:"content"`
	OrderIndex int    `db:"order_index"`
}

func (r lessonRow) lesson() course.Lesson {
	return course.Lesson{
		ID:         r.ID,
		ModuleID:   r.ModuleID,
		Title:      r.Title,
		VideoURL:   r.VideoURL,
		Content:    r.Content,
		OrderIndex: r.OrderIndex,
	}
}

type questionRow struct {
	ID            int            `db:"id"`
	TestID        int            `db:"test_id"`
	Question      string         `db:"question"`
	Options       types.JSONText `db:"options"`
	CorrectAnswer int            `db:"correct_answer"`
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

// CreateCourse inserts the course with its modules and lessons in one transaction.
func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course, modules []course.Module) (course.Detail, error) {
	created := make([]course.Module, 0, len(modules))
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO courses (instructor_id, title, description) VALUES ($1, $2, $3)
			RETURNING id, created_at`,
			crs.InstructorID, crs.Title, crs.Description).Scan(&crs.ID, &crs.CreatedAt)
		if err != nil {
			if pgCode(err) == foreignKeyViolation {
				return course.ErrNotFound
			}
			return errors.Wrap(err, "inserting course")
		}

		for _, mod := range modules {
			lessons := mod.Lessons
			mod.CourseID = crs.ID
			err = tx.QueryRowxContext(ctx,
				"INSERT INTO modules (course_id, title, order_index) VALUES ($1, $2, $3) RETURNING id",
				mod.CourseID, mod.Title, mod.OrderIndex).Scan(&mod.ID)
			if err != nil {
				return errors.Wrap(err, "inserting module")
			}

			mod.Lessons = make([]course.Lesson, 0, len(lessons))
			for _, lsn := range lessons {
				lsn.ModuleID = mod.ID
				err = tx.QueryRowxContext(ctx, `
					INSERT INTO lessons (module_id, title, video_url, content, order_index)
					VALUES ($1, $2, $3, $4, $5) RETURNING id`,
					lsn.ModuleID, lsn.Title, lsn.VideoURL, lsn.Content, lsn.OrderIndex).Scan(&lsn.ID)
				if err != nil {
					return errors.Wrap(err, "inserting lesson")
				}
				mod.Lessons = append(mod.Lessons, lsn)
			}
			created = append(created, mod)
		}
		return tx.GetContext(ctx, &crs.InstructorName, "SELECT name FROM users WHERE id = $1", crs.InstructorID)
	})
	if err != nil {
		return course.Detail{}, err
	}
	crs.CreatedAt = crs.CreatedAt.UTC()
	return course.Detail{Course: crs, Modules: created}, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	res, err := repo.db.ExecContext(ctx,
		"UPDATE courses SET title = $2, description = $3, instructor_id = $4 WHERE id = $1",
		crs.ID, crs.Title, crs.Description, crs.InstructorID)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return repo.GetCourse(ctx, crs.ID)
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM courses WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.ErrNotFound
	}
	return nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id int) (course.Course, error) {
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, courseSelect+" WHERE c.id = $1", id); err != nil {
		return course.Course{}, trapNoRows(err, course.ErrNotFound, "selecting course")
	}
	return row.course(), nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter) ([]course.Course, error) {
	var w where
	if filter.InstructorID != 0 {
		w.add("c.instructor_id = ?", filter.InstructorID)
	}
	if filter.StudentID != 0 {
		w.add("EXISTS (SELECT 1 FROM enrollments e WHERE e.course_id = c.id AND e.student_id = ?)", filter.StudentID)
	}
	if filter.ParentID != 0 {
		w.add(`EXISTS (
			SELECT 1 FROM enrollments e JOIN parent_students ps ON ps.student_id = e.student_id
			WHERE e.course_id = c.id AND ps.parent_id = ?)`, filter.ParentID)
	}

	var rows []courseRow
	if err := selectIn(ctx, repo.db, &rows, courseSelect+w.String()+" ORDER BY c.id", w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.course())
	}
	return courses, nil
}

func (repo *courseRepository) GetCourseModules(ctx context.Context, courseID int) ([]course.Module, error) {
	var modRows []struct {
		ID         int    `db:"id"`
		CourseID   int    `db:"course_id"`
		Title      string `db:"title"`
		OrderIndex int    `db:"order_index"`
	}
	err := repo.db.SelectContext(ctx, &modRows, `
		SELECT id, course_id, title, order_index FROM modules
		WHERE course_id = $1 ORDER BY order_index, id`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting modules")
	}

	var lsnRows []lessonRow
	err = repo.db.SelectContext(ctx, &lsnRows, `
		SELECT l.id, l.module_id, l.title, l.video_url, l.content, l.order_index
		FROM lessons l JOIN modules m ON m.id = l.module_id
		WHERE m.course_id = $1 ORDER BY l.order_index, l.id`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting lessons")
	}
	byModule := make(map[int][]course.Lesson, len(modRows))
	for _, r := range lsnRows {
		byModule[r.ModuleID] = append(byModule[r.ModuleID], r.lesson())
	}

	modules := make([]course.Module, 0, len(modRows))
	for _, r := range modRows {
		lessons := byModule[r.ID]
		if lessons == nil {
			lessons = make([]course.Lesson, 0)
		}
		modules = append(modules, course.Module{
			ID:         r.ID,
			CourseID:   r.CourseID,
			Title:      r.Title,
			OrderIndex: r.OrderIndex,
			Lessons:    lessons,
		})
	}
	return modules, nil
}

func (repo *courseRepository) GetLesson(ctx context.Context, lessonID int) (course.LessonDetail, error) {
	var row struct {
		lessonRow
		CourseID     int         `db:"course_id"`
		CourseTitle  string      `db:"course_title"`
		ModuleTitle  string      `db:"module_title"`
		TestID       null.Int    `db:"test_id"`
		TestTitle    null.String `db:"test_title"`
		PassingScore null.Int    `db:"passing_score"`
	}
	err := repo.db.GetContext(ctx, &row, `
		SELECT l.id, l.module_id, l.title, l.video_url, l.content, l.order_index,
			m.course_id, c.title AS course_title, m.title AS module_title,
			t.id AS test_id, t.title AS test_title, t.passing_score
		FROM lessons l
			JOIN modules m ON m.id = l.module_id
			JOIN courses c ON c.id = m.course_id
			LEFT JOIN tests t ON t.lesson_id = l.id
		WHERE l.id = $1`, lessonID)
	if err != nil {
		return course.LessonDetail{}, trapNoRows(err, course.ErrLessonNotFound, "selecting lesson")
	}
	return course.LessonDetail{
		Lesson:       row.lesson(),
		CourseID:     row.CourseID,
		CourseTitle:  row.CourseTitle,
		ModuleTitle:  row.ModuleTitle,
		TestID:       row.TestID.Ptr(),
		TestTitle:    row.TestTitle.String,
		PassingScore: row.PassingScore.Ptr(),
	}, nil
}

func (repo *courseRepository) GetLessonTest(ctx context.Context, lessonID int) (course.Test, error) {
	var tst course.Test
	err := repo.db.QueryRowxContext(ctx,
		"SELECT id, lesson_id, title, passing_score FROM tests WHERE lesson_id = $1", lessonID).
		Scan(&tst.ID, &tst.LessonID, &tst.Title, &tst.PassingScore)
	if err != nil {
		return course.Test{}, trapNoRows(err, course.ErrTestNotFound, "selecting test")
	}

	var rows []questionRow
	err = repo.db.SelectContext(ctx, &rows,
		"SELECT id, test_id, question, options, correct_answer FROM questions WHERE test_id = $1 ORDER BY id", tst.ID)
	if err != nil {
		return course.Test{}, errors.Wrap(err, "selecting questions")
	}
	tst.Questions = make([]course.Question, 0, len(rows))
	for _, r := range rows {
		q := course.Question{ID: r.ID, TestID: r.TestID, Text: r.Question, CorrectAnswer: r.CorrectAnswer}
		if err = r.Options.Unmarshal(&q.Options); err != nil {
			return course.Test{}, errors.Wrap(err, "decoding question options")
		}
		tst.Questions = append(tst.Questions, q)
	}
	return tst, nil
}

// SaveLessonTest replaces any previous test of the lesson, questions included.
func (repo *courseRepository) SaveLessonTest(ctx context.Context, tst course.Test) (course.Test, error) {
	saved := tst
	saved.Questions = make([]course.Question, 0, len(tst.Questions))
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO tests (lesson_id, title, passing_score) VALUES ($1, $2, $3)
			ON CONFLICT (lesson_id) DO UPDATE SET title = EXCLUDED.title, passing_score = EXCLUDED.passing_score
			RETURNING id`,
			tst.LessonID, tst.Title, tst.PassingScore).Scan(&saved.ID)
		if err != nil {
			if pgCode(err) == foreignKeyViolation {
				return course.ErrLessonNotFound
			}
			return errors.Wrap(err, "upserting test")
		}
		if _, err = tx.ExecContext(ctx, "DELETE FROM questions WHERE test_id = $1", saved.ID); err != nil {
			return errors.Wrap(err, "deleting questions")
		}

		for _, q := range tst.Questions {
			q.TestID = saved.ID
			q.Options = append([]string(nil), q.Options...)
			opts, err := json.Marshal(q.Options)
			if err != nil {
				return errors.Wrap(err, "encoding question options")
			}
			err = tx.QueryRowxContext(ctx, `
				INSERT INTO questions (test_id, question, options, correct_answer)
				VALUES ($1, $2, $3, $4) RETURNING id`,
				q.TestID, q.Text, types.JSONText(opts), q.CorrectAnswer).Scan(&q.ID)
			if err != nil {
				return errors.Wrap(err, "inserting question")
			}
			saved.Questions = append(saved.Questions, q)
		}
		return nil
	})
	if err != nil {
		return course.Test{}, err
	}
	return saved, nil
}

func (repo *courseRepository) Enroll(ctx context.Context, studentID, courseID int) error {
	_, err := repo.db.ExecContext(ctx,
		"INSERT INTO enrollments (student_id, course_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		studentID, courseID)
	if err != nil {
		if pgCode(err) == foreignKeyViolation {
			return course.ErrNotFound
		}
		return errors.Wrap(err, "enrolling student")
	}
	return nil
}

func (repo *courseRepository) IsEnrolled(ctx context.Context, studentID, courseID int) (bool, error) {
	var ok bool
	err := repo.db.GetContext(ctx, &ok,
		"SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2)",
		studentID, courseID)
	return ok, errors.Wrap(err, "checking enrollment")
}
