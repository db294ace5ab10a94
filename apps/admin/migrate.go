package main

import (
	pgstore "github.com/DeathRaider12/HUB-TUTORIUM/storage/store/postgres"
)

var runMigrationFunc = pgstore.RunMigration // mockable

func (cli *commandLine) migrate(args []string) error {
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return runMigrationFunc(args[0], cli.db.DB, arguments...)
}
