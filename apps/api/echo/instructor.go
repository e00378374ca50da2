package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/qlearn/core/attendance"
	"github.com/trezcool/qlearn/core/instructor"
	"github.com/trezcool/qlearn/core/user"
)

type instructorApi struct {
	svc        instructor.Service
	attendance attendance.Service
	validate   *validator.Validate
}

func registerInstructorAPI(authed *echo.Group, svc instructor.Service, attendanceSvc attendance.Service, validate *validator.Validate) {
	api := instructorApi{svc: svc, attendance: attendanceSvc, validate: validate}

	authed.GET("/instructor/students", api.students, requireRole(user.RoleInstructor))
	authed.POST("/attendance", api.markAttendance, requireRole(user.RoleInstructor, user.RoleAdmin))
}

func (api *instructorApi) students(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	students, err := api.svc.Students(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "querying instructor students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *instructorApi) markAttendance(ctx echo.Context) error {
	var data attendance.NewRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rec, err := api.attendance.Mark(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(notFoundAs(err, "student"), "marking attendance")
	}
	return ctx.JSON(http.StatusOK, rec)
}
