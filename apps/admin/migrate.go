package main

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoSQLEngine
	}
	return runMigrationFunc(cli.db, args[0], args[1:]...)
}
