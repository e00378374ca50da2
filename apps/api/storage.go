package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/qlearn/core"
	"github.com/trezcool/qlearn/core/attendance"
	"github.com/trezcool/qlearn/core/course"
	"github.com/trezcool/qlearn/core/event"
	"github.com/trezcool/qlearn/core/instructor"
	"github.com/trezcool/qlearn/core/mapping"
	"github.com/trezcool/qlearn/core/parent"
	"github.com/trezcool/qlearn/core/progress"
	"github.com/trezcool/qlearn/core/user"
	"github.com/trezcool/qlearn/storage/database"
	"github.com/trezcool/qlearn/storage/database/dummy"
	"github.com/trezcool/qlearn/storage/database/postgres"
)

// storage holds the repositories of the configured database engine.
type storage struct {
	pinger      core.Pinger
	close       func() error
	users       user.Repository
	courses     course.Repository
	progress    progress.Repository
	attendance  attendance.Repository
	events      event.Repository
	mappings    mapping.Repository
	parents     parent.Repository
	instructors instructor.Repository
}

func setUpStorage(ctx context.Context, conf *core.Config) (*storage, error) {
	switch conf.Database.Engine {
	case "memory":
		db, err := dummydb.Open()
		if err != nil {
			return nil, err
		}
		return &storage{
			pinger:      db,
			close:       func() error { return nil },
			users:       dummydb.NewUserRepository(db),
			courses:     dummydb.NewCourseRepository(db),
			progress:    dummydb.NewProgressRepository(db),
			attendance:  dummydb.NewAttendanceRepository(db),
			events:      dummydb.NewEventRepository(db),
			mappings:    dummydb.NewMappingRepository(db),
			parents:     dummydb.NewParentRepository(db),
			instructors: dummydb.NewInstructorRepository(db),
		}, nil

	case "postgres":
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}
		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, err
		}
		if err = database.Migrate(ctx, db.DB, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &storage{
			pinger:      db,
			close:       db.Close,
			users:       pgrepos.NewUserRepository(db),
			courses:     pgrepos.NewCourseRepository(db),
			progress:    pgrepos.NewProgressRepository(db),
			attendance:  pgrepos.NewAttendanceRepository(db),
			events:      pgrepos.NewEventRepository(db),
			mappings:    pgrepos.NewMappingRepository(db),
			parents:     pgrepos.NewParentRepository(db),
			instructors: pgrepos.NewInstructorRepository(db),
		}, nil
	}
	return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
}
