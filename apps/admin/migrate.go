package main

import "github.com/trezcool/tutoring/storage/database"

func (cli *commandLine) migrate(args []string) error {
	return database.MigrateFunc(cli.db, args[0], args[1:]...)
}
