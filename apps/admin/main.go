package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/tracking"
	logsvc "github.com/trezcool/masomo-tracking/services/logger"
	"github.com/trezcool/masomo-tracking/storage/database"
	"github.com/trezcool/masomo-tracking/storage/database/inmem"
	"github.com/trezcool/masomo-tracking/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	tracking.InitValidators(validate, translator)

	cli := commandLine{conf: conf, out: os.Stdout}

	// set up DB
	var repo tracking.Repository
	if conf.Database.Engine == database.EngineMemory {
		repo = inmemdb.NewTrackingRepository(inmemdb.Open())
	} else {
		db, err := database.Open(conf)
		if err != nil {
			logger.Fatal(err.Error(), err)
		}
		defer func() { _ = db.Close() }()
		cli.db = db.DB
		repo = sqlxrepos.NewTrackingRepository(db)
	}
	cli.svc = tracking.NewService(repo, validate)

	// start CLI
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("\nerror: "+err.Error(), err)
		}
		os.Exit(1)
	}
}
