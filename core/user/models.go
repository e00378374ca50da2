package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/qlearn/core"
)

// Roles
const (
	RoleAdmin      = "admin"
	RoleInstructor = "instructor"
	RoleStudent    = "student"
	RoleParent     = "parent"
)

var (
	AllRoles = []string{RoleAdmin, RoleInstructor, RoleStudent, RoleParent}

	// SelfServiceRoles may be picked when registering without an admin.
	SelfServiceRoles = []string{RoleStudent, RoleInstructor, RoleParent}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Instructor", Value: RoleInstructor},
		{Name: "Parent", Value: RoleParent},
		{Name: "Admin", Value: RoleAdmin},
	}
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HasAnyRole is the single capability check: role passes when roles is empty or contains it.
func HasAnyRole(role string, roles ...string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

type User struct {
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	ContactNumber  string    `json:"contactNumber"`
	WhatsappNumber string    `json:"whatsappNumber"`
	Technology     string    `json:"technology"`
	IsActive       bool      `json:"isActive"`
	PasswordHash   []byte    `json:"-"`
	CreatedAt      time.Time `json:"createdAt"` // UTC
	UpdatedAt      time.Time `json:"updatedAt"` // UTC
	LastLogin      time.Time `json:"lastLogin"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) HasAnyRole(roles ...string) bool { return HasAnyRole(u.Role, roles...) }

func (u User) IsAdmin() bool      { return u.Role == RoleAdmin }
func (u User) IsInstructor() bool { return u.Role == RoleInstructor }
func (u User) IsStudent() bool    { return u.Role == RoleStudent }
func (u User) IsParent() bool     { return u.Role == RoleParent }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required,min=2"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"required,role"`
	ContactNumber   string `json:"contactNumber" validate:"omitempty,max=32"`
	WhatsappNumber  string `json:"whatsappNumber" validate:"omitempty,max=32"`
	Technology      string `json:"technology" validate:"omitempty,alphanum_"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	nu.Technology = core.CleanString(nu.Technology)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Email)
}

// SelfRegistration is what anonymous visitors provide to create their own account.
type SelfRegistration struct {
	NewUser
}

func (sr *SelfRegistration) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	if err := sr.NewUser.Validate(ctx, validate, svc); err != nil {
		return err
	}
	if !HasAnyRole(sr.Role, SelfServiceRoles...) {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: "invalid role"})
	}
	return nil
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string  `json:"name" validate:"omitempty,min=2"`
	Email           string  `json:"email" validate:"omitempty,email"`
	Role            string  `json:"role" validate:"omitempty,role"`
	ContactNumber   *string `json:"contactNumber" validate:"omitempty,max=32"`
	WhatsappNumber  *string `json:"whatsappNumber" validate:"omitempty,max=32"`
	Technology      *string `json:"technology" validate:"omitempty,alphanum_"`
	IsActive        *bool   `json:"isActive"`
	Password        string  `json:"password" validate:"omitempty"`
	PasswordConfirm string  `json:"passwordConfirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc Service) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}
	if role := core.CleanString(uu.Role, true /* lower */); role != "" {
		uu.Role = role
	} else {
		uu.Role = origUsr.Role
	}
	if uu.Technology != nil {
		tech := core.CleanString(*uu.Technology)
		uu.Technology = &tech
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, uu.Email, origUsr)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type QueryFilter struct {
	Search     string
	Roles      []string
	IsActive   *bool
	Technology string
	// ExcludeRoles removes users holding any of these roles.
	ExcludeRoles []string
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil && qf.Technology == "" && qf.ExcludeRoles == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Technology = core.CleanString(qf.Technology)
}

// GetFilter selects a single user; the first non-zero field wins.
type GetFilter struct {
	ID    int
	Email string
}
