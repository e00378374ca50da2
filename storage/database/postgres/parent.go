package pgrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/qlearn/core/instructor"
	"github.com/trezcool/qlearn/core/parent"
	"github.com/trezcool/qlearn/core/user"
)

type parentRepository struct {
	db *sqlx.DB
}

var _ parent.Repository = (*parentRepository)(nil)

func NewParentRepository(db *sqlx.DB) parent.Repository {
	return &parentRepository{db: db}
}

func (repo *parentRepository) LinkParent(ctx context.Context, parentID, studentID int) error {
	_, err := repo.db.ExecContext(ctx,
		"INSERT INTO parent_students (parent_id, student_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		parentID, studentID)
	if err != nil {
		if pgCode(err) == foreignKeyViolation {
			return user.ErrNotFound
		}
		return errors.Wrap(err, "linking parent")
	}
	return nil
}

func (repo *parentRepository) IsLinked(ctx context.Context, parentID, studentID int) (bool, error) {
	var ok bool
	err := repo.db.GetContext(ctx, &ok,
		"SELECT EXISTS (SELECT 1 FROM parent_students WHERE parent_id = $1 AND student_id = $2)",
		parentID, studentID)
	return ok, errors.Wrap(err, "checking parent link")
}

func (repo *parentRepository) Children(ctx context.Context, parentID int) ([]user.User, error) {
	var rows []userRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT `+userColumns+` FROM users u
		WHERE EXISTS (SELECT 1 FROM parent_students ps WHERE ps.student_id = u.id AND ps.parent_id = $1)
		ORDER BY LOWER(name), created_at DESC, id DESC`, parentID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting children")
	}
	return users(rows), nil
}

func (repo *parentRepository) SaveMessage(ctx context.Context, msg parent.Message) (parent.Message, error) {
	err := repo.db.QueryRowxContext(ctx, `
		INSERT INTO messages (sender_id, recipient_id, student_id, message, sent_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))
		RETURNING id, sent_at`,
		msg.SenderID, msg.RecipientID, null.NewInt(msg.StudentID, msg.StudentID != 0), msg.Body,
		nullTime(msg.SentAt)).Scan(&msg.ID, &msg.SentAt)
	if err != nil {
		if pgCode(err) == foreignKeyViolation {
			return parent.Message{}, user.ErrNotFound
		}
		return parent.Message{}, errors.Wrap(err, "inserting message")
	}
	msg.SentAt = msg.SentAt.UTC()
	return msg, nil
}

type instructorRepository struct {
	db *sqlx.DB
}

var _ instructor.Repository = (*instructorRepository)(nil)

func NewInstructorRepository(db *sqlx.DB) instructor.Repository {
	return &instructorRepository{db: db}
}

func (repo *instructorRepository) InstructorStudents(ctx context.Context, instructorID int) ([]user.User, error) {
	var rows []userRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT `+userColumns+` FROM users u
		WHERE role = $2 AND (
			EXISTS (
				SELECT 1 FROM enrollments e JOIN courses c ON c.id = e.course_id
				WHERE e.student_id = u.id AND c.instructor_id = $1)
			OR EXISTS (SELECT 1 FROM teacher_students ts WHERE ts.student_id = u.id AND ts.teacher_id = $1))
		ORDER BY LOWER(name), created_at DESC, id DESC`, instructorID, user.RoleStudent)
	if err != nil {
		return nil, errors.Wrap(err, "selecting instructor students")
	}
	return users(rows), nil
}
