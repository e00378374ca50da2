package user

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/qlearn/core"
)

type testLogger struct{ t *testing.T }

func (l testLogger) Debug(msg string, _ ...interface{}) { l.t.Log(msg) }
func (l testLogger) Info(msg string, _ ...interface{})  { l.t.Log(msg) }
func (l testLogger) Warn(msg string, _ ...interface{})  { l.t.Log(msg) }
func (l testLogger) Error(msg string, _ ...interface{}) { l.t.Error(msg) }
func (l testLogger) Fatal(msg string, _ ...interface{}) { l.t.Fatal(msg) }

func newTestValidator(t *testing.T) (*validator.Validate, func(error) map[string]string) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	LoadCommonPasswords(testLogger{t})

	translate := func(err error) map[string]string {
		if err == nil {
			return nil
		}
		vErrs, ok := err.(validator.ValidationErrors)
		require.True(t, ok, "unexpected error type %T", err)
		fields := make(map[string]string, len(vErrs))
		for _, fe := range vErrs {
			fields[fe.Field()] = fe.Translate(translator)
		}
		return fields
	}
	return validate, translate
}

func TestPasswordPolicy(t *testing.T) {
	validate, translate := newTestValidator(t)

	tests := []struct {
		name string
		pwd  string
		want string
	}{
		{name: "too short", pwd: "Ab1!", want: pwdMinLenText},
		{name: "whitespace", pwd: "Ab1! Ab1!", want: pwdNoSpaceText},
		{name: "all numeric", pwd: "12345678", want: pwdNotAllNumText},
		{name: "no special", pwd: "Abcdefg1", want: pwdComplexityText},
		{name: "no upper", pwd: "abcdef1!", want: pwdComplexityText},
		{name: "similar to name", pwd: "Wanjiru1!", want: pwdAttrSimText},
		{name: "common", pwd: "P@$$w0rd", want: pwdNoCommonText},
		{name: "valid", pwd: "LolC@t123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := NewUser{
				Name:            "Wanjiru",
				Email:           "w@test.io",
				Password:        tt.pwd,
				PasswordConfirm: tt.pwd,
				Role:            RoleStudent,
			}
			errs := translate(validate.Struct(nu))
			if tt.want == "" {
				assert.Empty(t, errs)
				return
			}
			assert.Equal(t, tt.want, errs["password"])
		})
	}
}

func TestRoleValidation(t *testing.T) {
	validate, translate := newTestValidator(t)

	nu := NewUser{Name: "Kim", Email: "kim@test.io", Password: "LolC@t123", PasswordConfirm: "LolC@t123", Role: "teacher"}
	assert.Equal(t, map[string]string{"role": roleText}, translate(validate.Struct(nu)))

	nu.Role = RoleParent
	assert.Empty(t, translate(validate.Struct(nu)))
}

func TestHasAnyRole(t *testing.T) {
	assert.True(t, HasAnyRole(RoleStudent))
	assert.True(t, HasAnyRole(RoleStudent, RoleParent, RoleStudent))
	assert.False(t, HasAnyRole(RoleStudent, RoleAdmin, RoleInstructor))
	assert.False(t, HasAnyRole("", RoleAdmin))

	usr := User{Role: RoleAdmin}
	assert.True(t, usr.HasAnyRole(RoleAdmin))
	assert.True(t, usr.IsAdmin())
	assert.False(t, usr.IsParent())
}
