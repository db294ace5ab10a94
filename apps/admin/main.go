package main

import (
	"log"
	"os"

	"github.com/DeathRaider12/HUB-TUTORIUM/core"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/account"
	emailsvc "github.com/DeathRaider12/HUB-TUTORIUM/services/email"
	pgstore "github.com/DeathRaider12/HUB-TUTORIUM/storage/store/postgres"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig(".")
	errAndDie(err)
	core.Conf = conf

	// set up DB
	db, err := pgstore.Open(conf)
	errAndDie(err)
	defer db.Close()

	coreLogger := core.StdLogger{Std: logger}

	recordStore, err := pgstore.NewRecordStore(db, pgstore.ConnInfo(conf), coreLogger)
	errAndDie(err)
	defer recordStore.Close()

	admins, err := account.NewAdminDirectory(conf)
	errAndDie(err)

	// start CLI
	cli := commandLine{
		db:         db,
		accountSvc: account.NewService(recordStore, admins, emailsvc.NewConsoleService(), coreLogger),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
