package main

import (
	"fmt"
	"strings"

	"github.com/trezcool/masomo-tracking/apps"
)

// commands
const (
	cmdLogin    = "login"
	cmdLogout   = "logout"
	cmdVisible  = "visible"
	cmdHidden   = "hidden"
	cmdNavigate = "navigate"
	cmdPath     = "path"
)

var commandArgs = map[string]bool{ // name -> takes an argument
	cmdLogin:    true,
	cmdLogout:   false,
	cmdVisible:  false,
	cmdHidden:   false,
	cmdNavigate: true,
	cmdPath:     true,
}

type command struct {
	name string
	arg  string
}

// parseCommand parses one line of the signal protocol. ok is false for blank lines and comments.
func parseCommand(line string) (cmd command, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return command{}, false, nil
	}

	fields := strings.Fields(line)
	name := strings.ToLower(fields[0])
	takesArg, known := commandArgs[name]
	if !known {
		return command{}, false, apps.NewArgumentError(name, "unknown command")
	}

	switch {
	case takesArg && len(fields) != 2:
		return command{}, false, apps.NewArgumentError(name, fmt.Sprintf("expects exactly one argument (got %d)", len(fields)-1))
	case !takesArg && len(fields) != 1:
		return command{}, false, apps.NewArgumentError(name, "takes no argument")
	}

	cmd.name = name
	if takesArg {
		cmd.arg = fields[1]
	}
	return cmd, true, nil
}
