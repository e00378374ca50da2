package pgrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/qlearn/core/mapping"
	"github.com/trezcool/qlearn/core/user"
)

const mappingSelect = `
	SELECT ts.teacher_id, t.name AS teacher_name, ts.student_id, s.name AS student_name,
		ts.technology, ts.assigned_date
	FROM teacher_students ts
		JOIN users t ON t.id = ts.teacher_id
		JOIN users s ON s.id = ts.student_id`

type mappingRow struct {
	TeacherID    int       `db:"teacher_id"`
	TeacherName  string    `db:"teacher_name"`
	StudentID    int       `db:"student_id"`
	StudentName  string    `db:"student_name"`
	Technology   string    `db:"technology"`
	AssignedDate time.Time `db:"assigned_date"`
}

func (r mappingRow) mapping() mapping.Mapping {
	return mapping.Mapping{
		TeacherID:    r.TeacherID,
		TeacherName:  r.TeacherName,
		StudentID:    r.StudentID,
		StudentName:  r.StudentName,
		Technology:   r.Technology,
		AssignedDate: r.AssignedDate.UTC(),
	}
}

type mappingRepository struct {
	db *sqlx.DB
}

var _ mapping.Repository = (*mappingRepository)(nil)

func NewMappingRepository(db *sqlx.DB) mapping.Repository {
	return &mappingRepository{db: db}
}

// SaveMapping keeps the original assignment date when the pair is already mapped.
func (repo *mappingRepository) SaveMapping(ctx context.Context, m mapping.Mapping) (mapping.Mapping, error) {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO teacher_students (teacher_id, student_id, technology, assigned_date)
		VALUES ($1, $2, $3, COALESCE($4, NOW()))
		ON CONFLICT (teacher_id, student_id) DO UPDATE SET technology = EXCLUDED.technology`,
		m.TeacherID, m.StudentID, m.Technology, nullTime(m.AssignedDate))
	if err != nil {
		if pgCode(err) == foreignKeyViolation {
			return mapping.Mapping{}, user.ErrNotFound
		}
		return mapping.Mapping{}, errors.Wrap(err, "upserting mapping")
	}

	var row mappingRow
	err = repo.db.GetContext(ctx, &row, mappingSelect+" WHERE ts.teacher_id = $1 AND ts.student_id = $2",
		m.TeacherID, m.StudentID)
	if err != nil {
		return mapping.Mapping{}, errors.Wrap(err, "selecting mapping")
	}
	return row.mapping(), nil
}

func (repo *mappingRepository) QueryMappings(ctx context.Context, filter mapping.QueryFilter) ([]mapping.Mapping, error) {
	var w where
	if filter.TeacherID != 0 {
		w.add("ts.teacher_id = ?", filter.TeacherID)
	}
	if filter.StudentID != 0 {
		w.add("ts.student_id = ?", filter.StudentID)
	}

	var rows []mappingRow
	q := mappingSelect + w.String() + " ORDER BY ts.assigned_date DESC, ts.teacher_id, ts.student_id"
	if err := selectIn(ctx, repo.db, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting mappings")
	}
	mappings := make([]mapping.Mapping, 0, len(rows))
	for _, r := range rows {
		mappings = append(mappings, r.mapping())
	}
	return mappings, nil
}

func (repo *mappingRepository) UnmappedStudents(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT `+userColumns+` FROM users u
		WHERE role = $1 AND NOT EXISTS (SELECT 1 FROM teacher_students ts WHERE ts.student_id = u.id)
		ORDER BY LOWER(name), created_at DESC, id DESC`, user.RoleStudent)
	if err != nil {
		return nil, errors.Wrap(err, "selecting unmapped students")
	}
	return users(rows), nil
}

func (repo *mappingRepository) Technologies(ctx context.Context) ([]string, error) {
	techs := make([]string, 0)
	err := repo.db.SelectContext(ctx, &techs, `
		SELECT DISTINCT technology FROM users
		WHERE role = $1 AND COALESCE(technology, '') <> ''
		ORDER BY technology`, user.RoleInstructor)
	return techs, errors.Wrap(err, "selecting technologies")
}
