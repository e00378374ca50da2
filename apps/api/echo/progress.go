package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/qlearn/core/progress"
	"github.com/trezcool/qlearn/core/user"
)

type progressApi struct {
	svc      progress.Service
	validate *validator.Validate
}

func registerProgressAPI(authed *echo.Group, svc progress.Service, validate *validator.Validate) {
	api := progressApi{svc: svc, validate: validate}

	g := authed.Group("/progress", requireRole(user.RoleStudent))
	g.GET("", api.query)
	g.GET("/summary", api.summary)
	g.POST("/:lessonId", api.update)
}

func (api *progressApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	entries, err := api.svc.List(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "querying progress")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *progressApi) update(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	lessonID, err := pathID(ctx, "lessonId", "lesson")
	if err != nil {
		return err
	}

	var data progress.Patch
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Patch")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if _, err = api.svc.Update(ctx.Request().Context(), ctxUsr.ID, lessonID, data); err != nil {
		return errors.Wrap(err, "updating progress")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Progress updated successfully"})
}

func (api *progressApi) summary(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	sum, err := api.svc.Summary(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "summarizing progress")
	}
	return ctx.JSON(http.StatusOK, sum)
}
