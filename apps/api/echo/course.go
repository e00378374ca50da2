package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/qlearn/core/course"
	"github.com/trezcool/qlearn/core/progress"
	"github.com/trezcool/qlearn/core/user"
)

type courseApi struct {
	svc      course.Service
	progress progress.Service
	metrics  *metrics
	validate *validator.Validate
}

func registerCourseAPI(authed *echo.Group, svc course.Service, progressSvc progress.Service, m *metrics, validate *validator.Validate) {
	api := courseApi{
		svc:      svc,
		progress: progressSvc,
		metrics:  m,
		validate: validate,
	}

	authed.GET("/courses", api.query)
	authed.POST("/courses", api.create, requireRole(user.RoleInstructor))
	authed.GET("/courses/:id", api.retrieve)

	authed.GET("/lessons/:id", api.retrieveLesson)
	authed.GET("/lessons/:id/test", api.retrieveTest)
	authed.PUT("/lessons/:id/test", api.saveTest, requireRole(user.RoleInstructor, user.RoleAdmin))
	authed.POST("/lessons/:id/test/submit", api.submitTest, requireRole(user.RoleStudent))
}

func (api *courseApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	courses, err := api.svc.List(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
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

	detail, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, detail)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id", "course")
	if err != nil {
		return err
	}

	detail, err := api.svc.Get(ctx.Request().Context(), ctxUsr, id)
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *courseApi) retrieveLesson(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id", "lesson")
	if err != nil {
		return err
	}

	lsn, err := api.svc.Lesson(ctx.Request().Context(), ctxUsr, id)
	if err != nil {
		return errors.Wrap(err, "getting lesson")
	}
	return ctx.JSON(http.StatusOK, lsn)
}

// retrieveTest hides the correct answers from students.
func (api *courseApi) retrieveTest(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id", "lesson")
	if err != nil {
		return err
	}

	tst, err := api.svc.LessonTest(ctx.Request().Context(), ctxUsr, id)
	if err != nil {
		return errors.Wrap(err, "getting lesson test")
	}
	if ctxUsr.IsStudent() {
		return ctx.JSON(http.StatusOK, tst.ForStudent())
	}
	return ctx.JSON(http.StatusOK, tst)
}

func (api *courseApi) saveTest(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id", "lesson")
	if err != nil {
		return err
	}

	var data course.TestInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TestInput")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	tst, err := api.svc.SaveLessonTest(ctx.Request().Context(), ctxUsr, id, data)
	if err != nil {
		return errors.Wrap(err, "saving lesson test")
	}
	return ctx.JSON(http.StatusOK, tst)
}

func (api *courseApi) submitTest(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id", "lesson")
	if err != nil {
		return err
	}

	var data progress.Submission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	res, err := api.progress.SubmitTest(ctx.Request().Context(), ctxUsr.ID, id, data.IndexedAnswers())
	if err != nil {
		return errors.Wrap(err, "submitting test")
	}
	api.metrics.observeSubmission(res.Passed)
	return ctx.JSON(http.StatusOK, res)
}
