package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	"golang.org/x/term"

	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/tracking"
	"github.com/trezcool/masomo-tracking/storage/database"
)

var (
	runMigrationFunc = database.RunMigration // mockable
	isTerminalFunc   = term.IsTerminal       // mockable

	errHelp        = errors.New("help provided")
	errNoSQLEngine = errors.New("migrations need the postgres engine")
)

type commandLine struct {
	conf *core.Config
	db   *sql.DB // nil with the memory engine
	svc  tracking.ServiceInterface
	out  io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                                - run a goose command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  purge -before RFC3339 | -days N                       - delete the events older than a date")
	fmt.Fprintln(cli.out, "  report [-user ID] [-from RFC3339] [-to RFC3339] [-json] - print usage per user")
	fmt.Fprintln(cli.out, "  token -user ID [-role student|teacher|admin] [-username NAME] [-email EMAIL] - issue an API token")
}

func (cli *commandLine) stdoutIsTerminal() bool {
	fd := -1
	if f, ok := cli.out.(interface{ Fd() uintptr }); ok {
		fd = int(f.Fd())
	}
	return isTerminalFunc(fd)
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	purgeCmd := flag.NewFlagSet("purge", flag.ContinueOnError)
	purgeBefore := purgeCmd.String("before", "", "Delete the events that happened before this date (RFC3339).")
	purgeDays := purgeCmd.Int("days", 0, "Delete the events older than this many days.")

	reportCmd := flag.NewFlagSet("report", flag.ContinueOnError)
	reportUser := reportCmd.String("user", "", "Only report this user.")
	reportFrom := reportCmd.String("from", "", "Only count the events since this date (RFC3339).")
	reportTo := reportCmd.String("to", "", "Only count the events until this date (RFC3339).")
	reportJSON := reportCmd.Bool("json", false, "Print JSON even on a terminal.")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenUser := tokenCmd.String("user", "", "The token subject (user ID).")
	tokenRole := tokenCmd.String("role", "student", "The user's role: student, teacher or admin.")
	tokenUsername := tokenCmd.String("username", "", "The user's username.")
	tokenEmail := tokenCmd.String("email", "", "The user's email.")

	for _, fs := range []*flag.FlagSet{purgeCmd, reportCmd, tokenCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "purge":
		if err := purgeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *purgeBefore == "" && *purgeDays <= 0 {
			purgeCmd.Usage()
			return errHelp
		}
		return cli.purge(*purgeBefore, *purgeDays)
	case "report":
		if err := reportCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.report(*reportUser, *reportFrom, *reportTo, *reportJSON || !cli.stdoutIsTerminal())
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if core.CleanString(*tokenUser) == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(*tokenUser, *tokenRole, *tokenUsername, *tokenEmail)
	default:
		cli.printUsage()
		return errHelp
	}
}
