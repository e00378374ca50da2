package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/qlearn/core/attendance"
	"github.com/trezcool/qlearn/core/parent"
	"github.com/trezcool/qlearn/core/user"
)

type parentApi struct {
	svc      parent.Service
	validate *validator.Validate
}

func registerParentAPI(authed *echo.Group, svc parent.Service, validate *validator.Validate) {
	api := parentApi{svc: svc, validate: validate}

	g := authed.Group("/parent", requireRole(user.RoleParent, user.RoleAdmin))
	g.GET("/children", api.children)
	g.GET("/grades/:childId", api.grades)
	g.GET("/attendance/:childId", api.attendance)
	g.GET("/progress/:childId", api.progress)
	g.GET("/events/:childId", api.events)
	g.POST("/message", api.message)
	g.POST("/report-absence/:childId", api.reportAbsence)
}

func (api *parentApi) children(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	children, err := api.svc.Children(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "querying children")
	}
	return ctx.JSON(http.StatusOK, children)
}

func (api *parentApi) grades(ctx echo.Context) error {
	ctxUsr, childID, err := api.viewerAndChild(ctx)
	if err != nil {
		return err
	}
	grades, err := api.svc.Grades(ctx.Request().Context(), ctxUsr, childID)
	if err != nil {
		return errors.Wrap(err, "getting grades")
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *parentApi) attendance(ctx echo.Context) error {
	ctxUsr, childID, err := api.viewerAndChild(ctx)
	if err != nil {
		return err
	}
	sum, err := api.svc.Attendance(ctx.Request().Context(), ctxUsr, childID)
	if err != nil {
		return errors.Wrap(err, "getting attendance")
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *parentApi) progress(ctx echo.Context) error {
	ctxUsr, childID, err := api.viewerAndChild(ctx)
	if err != nil {
		return err
	}
	dash, err := api.svc.Progress(ctx.Request().Context(), ctxUsr, childID)
	if err != nil {
		return errors.Wrap(err, "getting progress")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *parentApi) events(ctx echo.Context) error {
	ctxUsr, childID, err := api.viewerAndChild(ctx)
	if err != nil {
		return err
	}
	events, err := api.svc.Events(ctx.Request().Context(), ctxUsr, childID)
	if err != nil {
		return errors.Wrap(err, "getting events")
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *parentApi) message(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data parent.NewMessage
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if _, err = api.svc.Message(ctx.Request().Context(), ctxUsr, data); err != nil {
		return errors.Wrap(err, "sending message")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Message sent successfully"})
}

func (api *parentApi) reportAbsence(ctx echo.Context) error {
	ctxUsr, childID, err := api.viewerAndChild(ctx)
	if err != nil {
		return err
	}

	var data attendance.AbsenceReport
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AbsenceReport")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if _, err = api.svc.ReportAbsence(ctx.Request().Context(), ctxUsr, childID, data); err != nil {
		return errors.Wrap(err, "reporting absence")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Absence reported successfully"})
}

func (api *parentApi) viewerAndChild(ctx echo.Context) (user.User, int, error) {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return user.User{}, 0, err
	}
	childID, err := pathID(ctx, "childId", "child")
	if err != nil {
		return user.User{}, 0, err
	}
	return ctxUsr, childID, nil
}
