package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // register the /debug/pprof handlers
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	echoapi "github.com/trezcool/qlearn/apps/api/echo"
	"github.com/trezcool/qlearn/core"
	"github.com/trezcool/qlearn/core/attendance"
	"github.com/trezcool/qlearn/core/course"
	"github.com/trezcool/qlearn/core/event"
	"github.com/trezcool/qlearn/core/instructor"
	"github.com/trezcool/qlearn/core/mapping"
	"github.com/trezcool/qlearn/core/parent"
	"github.com/trezcool/qlearn/core/progress"
	"github.com/trezcool/qlearn/core/user"
	emailsvc "github.com/trezcool/qlearn/services/email"
	logsvc "github.com/trezcool/qlearn/services/logger"
	sessionsvc "github.com/trezcool/qlearn/services/session"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	ctx := context.Background()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB & repos
	store, err := setUpStorage(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = store.close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up sessions
	sessions := sessionsvc.NewMemoryStore()
	if conf.Redis.Enabled {
		client, err := sessionsvc.NewRedisClient(ctx, conf.Redis)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up redis: %v", err), err)
		}
		defer func() { _ = client.Close() }()
		sessions = sessionsvc.NewRedisStore(client)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(store.users, mailSvc, conf)
	progressSvc := progress.NewService(store.progress, store.courses)
	attendanceSvc := attendance.NewService(store.attendance, conf.Grading.AttendanceWindow)
	eventSvc := event.NewService(store.events, store.courses)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	core.ParseEmailTemplates(logger, !conf.Debug)

	user.LoadCommonPasswords(logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("dbEngine").Set(conf.Database.Engine)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			DB:            store.pinger,
			Sessions:      sessions,
			UserSvc:       usrSvc,
			CourseSvc:     course.NewService(store.courses, usrSvc),
			ProgressSvc:   progressSvc,
			MappingSvc:    mapping.NewService(store.mappings, usrSvc),
			AttendanceSvc: attendanceSvc,
			EventSvc:      eventSvc,
			ParentSvc: parent.NewService(store.parents, parent.Deps{
				Users:      usrSvc,
				Progress:   progressSvc,
				Attendance: attendanceSvc,
				Events:     eventSvc,
				Mail:       mailSvc,
			}, conf),
			InstructorSvc: instructor.NewService(store.instructors, progressSvc),
			Validate:      validate,
			Translator:    translator,
			Registry:      prometheus.NewRegistry(),
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(ctx, conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
