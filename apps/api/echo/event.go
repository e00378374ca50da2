package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/qlearn/core/event"
	"github.com/trezcool/qlearn/core/user"
)

type eventApi struct {
	svc      event.Service
	validate *validator.Validate
}

func registerEventAPI(authed *echo.Group, svc event.Service, validate *validator.Validate) {
	api := eventApi{svc: svc, validate: validate}

	authed.POST("/events", api.create, requireRole(user.RoleInstructor, user.RoleAdmin))
}

func (api *eventApi) create(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data event.NewEvent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	evt, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, evt)
}
