package echoapi

import (
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/qlearn/core"
	"github.com/trezcool/qlearn/core/course"
	"github.com/trezcool/qlearn/core/mapping"
	"github.com/trezcool/qlearn/core/parent"
	"github.com/trezcool/qlearn/core/user"
)

// userOrderFields maps the orderable API fields to their storage columns.
var userOrderFields = map[string]string{
	"name":      "name",
	"email":     "email",
	"role":      "role",
	"createdAt": "created_at",
	"id":        "id",
}

type adminApi struct {
	users    user.Service
	courses  course.Service
	mappings mapping.Service
	parents  parent.Service
	validate *validator.Validate
}

func registerAdminAPI(authed *echo.Group, deps ServerDeps) {
	api := adminApi{
		users:    deps.UserSvc,
		courses:  deps.CourseSvc,
		mappings: deps.MappingSvc,
		parents:  deps.ParentSvc,
		validate: deps.Validate,
	}

	g := authed.Group("/admin", requireRole(user.RoleAdmin))

	g.GET("/users", api.queryUsers)
	g.POST("/users", api.createUser)
	g.PUT("/users/:id", api.updateUser)
	g.DELETE("/users/:id", api.destroyUser)
	g.GET("/roles", api.queryRoles)

	g.GET("/courses", api.queryCourses)
	g.POST("/courses", api.createCourse)
	g.PUT("/courses/:id", api.updateCourse)
	g.DELETE("/courses/:id", api.destroyCourse)
	g.POST("/enrollments", api.enroll)

	g.POST("/parent-student", api.linkParent)

	g.GET("/mappings", api.queryMappings)
	g.POST("/mappings", api.createMapping)
	g.GET("/students/unmapped", api.unmappedStudents)
	g.GET("/technologies", api.technologies)
	g.GET("/teachers/by-technology/:technology", api.teachersByTechnology)
	g.GET("/teachers/:id/students", api.teacherStudents)
}

// Users

// queryUsers lists every non-admin account, newest first unless ordered otherwise.
func (api *adminApi) queryUsers(ctx echo.Context) error {
	filter := &user.QueryFilter{
		Search:       ctx.QueryParam("search"),
		Technology:   ctx.QueryParam("technology"),
		ExcludeRoles: []string{user.RoleAdmin},
	}
	if role := core.CleanString(ctx.QueryParam("role"), true /* lower */); role != "" {
		filter.Roles = []string{role}
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.users.Query(ctx.Request().Context(), filter, core.FilterOrderings(ordering.Orderings, userOrderFields))
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *adminApi) createUser(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.users); err != nil {
		return err
	}

	usr, err := api.users.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *adminApi) updateUser(ctx echo.Context) error {
	usr, err := api.pathUser(ctx)
	if err != nil {
		return err
	}

	var data user.UpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err = data.Validate(ctx.Request().Context(), usr, api.validate, api.users); err != nil {
		return err
	}

	usr, err = api.users.Update(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *adminApi) destroyUser(ctx echo.Context) error {
	usr, err := api.pathUser(ctx)
	if err != nil {
		return err
	}

	// Say No to Suicide! ctxUser cannot delete themselves
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if usr.ID == ctxUsr.ID {
		return errHttpForbidden
	}

	if err = api.users.Delete(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

func (api *adminApi) pathUser(ctx echo.Context) (user.User, error) {
	id, err := pathID(ctx, "id", "user")
	if err != nil {
		return user.User{}, err
	}
	return api.users.GetByID(ctx.Request().Context(), id)
}

// Courses

func (api *adminApi) queryCourses(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	courses, err := api.courses.List(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *adminApi) createCourse(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data course.NewCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	detail, err := api.courses.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, detail)
}

func (api *adminApi) updateCourse(ctx echo.Context) error {
	id, err := pathID(ctx, "id", "course")
	if err != nil {
		return err
	}

	var data course.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.courses.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *adminApi) destroyCourse(ctx echo.Context) error {
	id, err := pathID(ctx, "id", "course")
	if err != nil {
		return err
	}
	if err = api.courses.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) enroll(ctx echo.Context) error {
	var data course.Enrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Enrollment")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	if err := api.courses.Enroll(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, MessageResponse{Message: "Student enrolled successfully"})
}

// Relationships

func (api *adminApi) linkParent(ctx echo.Context) error {
	var data parent.Link
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to parent.Link")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.parents.Link(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "linking parent")
	}
	return ctx.JSON(http.StatusCreated, MessageResponse{Message: "Parent-student link created successfully"})
}

func (api *adminApi) queryMappings(ctx echo.Context) error {
	mappings, err := api.mappings.List(ctx.Request().Context(), mapping.QueryFilter{})
	if err != nil {
		return errors.Wrap(err, "querying mappings")
	}
	return ctx.JSON(http.StatusOK, mappings)
}

func (api *adminApi) createMapping(ctx echo.Context) error {
	var data mapping.NewMapping
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMapping")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	m, err := api.mappings.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating mapping")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *adminApi) unmappedStudents(ctx echo.Context) error {
	students, err := api.mappings.UnmappedStudents(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying unmapped students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *adminApi) technologies(ctx echo.Context) error {
	techs, err := api.mappings.Technologies(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying technologies")
	}
	return ctx.JSON(http.StatusOK, techs)
}

func (api *adminApi) teachersByTechnology(ctx echo.Context) error {
	tech, err := url.PathUnescape(ctx.Param("technology"))
	if err != nil {
		return errHttpNotFound
	}
	teachers, err := api.mappings.TeachersByTechnology(ctx.Request().Context(), tech)
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api *adminApi) teacherStudents(ctx echo.Context) error {
	id, err := pathID(ctx, "id", "teacher")
	if err != nil {
		return err
	}
	students, err := api.mappings.TeacherStudents(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(notFoundAs(err, "teacher"), "querying teacher students")
	}
	return ctx.JSON(http.StatusOK, students)
}
