package pgrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/qlearn/core"
	"github.com/trezcool/qlearn/core/user"
)

const userColumns = `id, name, email, password_hash, role, contact_number, whatsapp_number, technology,
	is_active, created_at, updated_at, last_login`

type userRow struct {
	ID             int         `db:"id"`
	Name           string      `db:"name"`
	Email          string      `db:"email"`
	PasswordHash   []byte      `db:"password_hash"`
	Role           string      `db:"role"`
	ContactNumber  null.String `db:"contact_number"`
	WhatsappNumber null.String `db:"whatsapp_number"`
	Technology     null.String `db:"technology"`
	IsActive       bool        `db:"is_active"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
	LastLogin      null.Time   `db:"last_login"`
}

func (r userRow) user() user.User {
	return user.User{
		ID:             r.ID,
		Name:           r.Name,
		Email:          r.Email,
		Role:           r.Role,
		ContactNumber:  r.ContactNumber.String,
		WhatsappNumber: r.WhatsappNumber.String,
		Technology:     r.Technology.String,
		IsActive:       r.IsActive,
		PasswordHash:   r.PasswordHash,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
		LastLogin:      r.LastLogin.Time.UTC(),
	}
}

func users(rows []userRow) []user.User {
	usrs := make([]user.User, 0, len(rows))
	for _, r := range rows {
		usrs = append(usrs, r.user())
	}
	return usrs
}

func nullString(s string) null.String { return null.NewString(s, s != "") }

func nullTime(t time.Time) null.Time { return null.NewTime(t.UTC(), !t.IsZero()) }

// userOrderColumns maps orderable columns to their SQL expression.
var userOrderColumns = map[string]string{
	"name":       "LOWER(name)",
	"email":      "email",
	"role":       "role",
	"created_at": "created_at",
	"id":         "id",
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	ids := make([]int64, 0, len(excludedUsers))
	for _, u := range excludedUsers {
		ids = append(ids, int64(u.ID))
	}

	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND NOT (id = ANY($2)))`,
		email, pq.Int64Array(ids))
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO users (name, email, password_hash, role, contact_number, whatsapp_number, technology,
			is_active, created_at, updated_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()), COALESCE($10, NOW()), $11)
		RETURNING `+userColumns,
		usr.Name, usr.Email, usr.PasswordHash, usr.Role, nullString(usr.ContactNumber),
		nullString(usr.WhatsappNumber), nullString(usr.Technology), usr.IsActive,
		nullTime(usr.CreatedAt), nullTime(usr.UpdatedAt), nullTime(usr.LastLogin))
	if err != nil {
		if pgCode(err) == uniqueViolation {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return row.user(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var w where
	if filter != nil {
		// users with search keyword matching any Name or Email
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			w.add("name ILIKE ? OR email ILIKE ?", val, val)
		}
		if len(filter.Roles) > 0 {
			w.add("role IN (?)", filter.Roles)
		}
		if len(filter.ExcludeRoles) > 0 {
			w.add("role NOT IN (?)", filter.ExcludeRoles)
		}
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
		if filter.Technology != "" {
			w.add("LOWER(technology) = LOWER(?)", filter.Technology)
		}
	}

	q := "SELECT " + userColumns + " FROM users" + w.String() +
		orderBy(ordering, userOrderColumns, "created_at DESC", "id DESC")
	var rows []userRow
	if err := selectIn(ctx, repo.db, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	return users(rows), nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var (
		row userRow
		err error
	)
	switch {
	case filter.ID != 0:
		err = repo.db.GetContext(ctx, &row, "SELECT "+userColumns+" FROM users WHERE id = $1", filter.ID)
	case filter.Email != "":
		err = repo.db.GetContext(ctx, &row, "SELECT "+userColumns+" FROM users WHERE email = $1", filter.Email)
	default:
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, trapNoRows(err, user.ErrNotFound, "selecting user")
	}
	return row.user(), nil
}

// UpdateUser keeps the stored password when usr carries none.
func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE users SET
			name = $2, email = $3, password_hash = COALESCE($4, password_hash), role = $5,
			contact_number = $6, whatsapp_number = $7, technology = $8, is_active = $9,
			updated_at = COALESCE($10, NOW()), last_login = $11
		WHERE id = $1
		RETURNING `+userColumns,
		usr.ID, usr.Name, usr.Email, usr.PasswordHash, usr.Role, nullString(usr.ContactNumber),
		nullString(usr.WhatsappNumber), nullString(usr.Technology), usr.IsActive,
		nullTime(usr.UpdatedAt), nullTime(usr.LastLogin))
	if err != nil {
		if pgCode(err) == uniqueViolation {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, trapNoRows(err, user.ErrNotFound, "updating user")
	}
	return row.user(), nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	int64s := make([]int64, 0, len(ids))
	for _, id := range ids {
		int64s = append(int64s, int64(id))
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM users WHERE id = ANY($1)", pq.Int64Array(int64s))
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "deleting users")
}
