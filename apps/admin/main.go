package main

import (
	"log"
	"os"

	"github.com/trezcool/tutoring/core"
	"github.com/trezcool/tutoring/core/user"
	logsvc "github.com/trezcool/tutoring/services/logger"
	"github.com/trezcool/tutoring/storage/database"
	sqlxrepos "github.com/trezcool/tutoring/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		log.Fatal(err)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("admin"), conf)
	defer logger.Sync()

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer func() { _ = db.Close() }()
	if err = db.Ping(); err != nil {
		logger.Fatal("pinging database", err)
	}

	user.LoadCommonPasswords(logger)

	// start CLI
	cli := commandLine{
		db:      db.DB,
		usrRepo: sqlxrepos.NewUserRepository(db),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		logger.Sync()
		os.Exit(1)
	}
}
