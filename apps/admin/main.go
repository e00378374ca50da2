package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/qlearn/core"
	logsvc "github.com/trezcool/qlearn/services/logger"
	"github.com/trezcool/qlearn/storage/database"
	"github.com/trezcool/qlearn/storage/database/dummy"
	"github.com/trezcool/qlearn/storage/database/postgres"
)

func main() {
	conf := core.NewConfig()
	ctx := context.Background()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	cli := commandLine{out: os.Stdout}

	// set up DB & repos
	switch conf.Database.Engine {
	case "memory":
		db, err := dummydb.Open()
		if err != nil {
			logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
		}
		cli.users = dummydb.NewUserRepository(db)
		cli.courses = dummydb.NewCourseRepository(db)
		cli.mappings = dummydb.NewMappingRepository(db)
		cli.parents = dummydb.NewParentRepository(db)
		cli.events = dummydb.NewEventRepository(db)
	default:
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
		}
		db, err := database.Open(ctx, conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
		}
		defer func() { _ = db.Close() }()
		cli.db = db.DB
		cli.users = pgrepos.NewUserRepository(db)
		cli.courses = pgrepos.NewCourseRepository(db)
		cli.mappings = pgrepos.NewMappingRepository(db)
		cli.parents = pgrepos.NewParentRepository(db)
		cli.events = pgrepos.NewEventRepository(db)
	}

	if err := cli.run(ctx, os.Args[1:]); err != nil {
		logger.Error(fmt.Sprintf("error: %v", err), err)
		os.Exit(1)
	}
}
