package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/qlearn/core"
	"github.com/trezcool/qlearn/core/attendance"
	"github.com/trezcool/qlearn/core/course"
	"github.com/trezcool/qlearn/core/event"
	"github.com/trezcool/qlearn/core/instructor"
	"github.com/trezcool/qlearn/core/mapping"
	"github.com/trezcool/qlearn/core/parent"
	"github.com/trezcool/qlearn/core/progress"
	"github.com/trezcool/qlearn/core/user"
)

type (
	ServerDeps struct {
		Conf          *core.Config
		Logger        core.Logger
		DB            core.Pinger
		Sessions      core.SessionStore
		UserSvc       user.Service
		CourseSvc     course.Service
		ProgressSvc   progress.Service
		MappingSvc    mapping.Service
		AttendanceSvc attendance.Service
		EventSvc      event.Service
		ParentSvc     parent.Service
		InstructorSvc instructor.Service
		Validate      *validator.Validate
		Translator    ut.Translator
		// Registry collects the HTTP & grading metrics; a fresh one is used when nil.
		Registry *prometheus.Registry
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(ctx context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     *authenticator
		metrics  *metrics
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}
	s := &server{
		deps:     deps,
		app:      echo.New(),
		auth:     newAuthenticator(deps.Conf, deps.UserSvc, deps.Sessions),
		metrics:  newMetrics(deps.Registry),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(s.metrics.middleware)

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	s.app.GET("/health", s.health)
	s.app.GET("/metrics", echo.WrapHandler(s.metrics.handler()))

	g := s.app.Group("/api")
	authed := g.Group("", s.auth.jwtMiddleware(), s.auth.sessionMiddleware)

	registerUserAPI(g, authed, s.auth, s.deps.UserSvc, s.deps.Validate)
	registerAdminAPI(authed, s.deps)
	registerCourseAPI(authed, s.deps.CourseSvc, s.deps.ProgressSvc, s.metrics, s.deps.Validate)
	registerProgressAPI(authed, s.deps.ProgressSvc, s.deps.Validate)
	registerInstructorAPI(authed, s.deps.InstructorSvc, s.deps.AttendanceSvc, s.deps.Validate)
	registerParentAPI(authed, s.deps.ParentSvc, s.deps.Validate)
	registerEventAPI(authed, s.deps.EventSvc, s.deps.Validate)
}

func (s *server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Address()); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// signalShutdown asks main to stop the server gracefully; it never blocks.
func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}

func (s *server) health(ctx echo.Context) error {
	if s.deps.DB != nil {
		if err := s.deps.DB.PingContext(ctx.Request().Context()); err != nil {
			s.deps.Logger.Error("health check failed", err)
			return ctx.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
		}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
