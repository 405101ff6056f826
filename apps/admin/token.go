package main

import (
	"fmt"
	"strings"

	"github.com/trezcool/masomo-tracking/apps"
	echoapi "github.com/trezcool/masomo-tracking/apps/api/echo"
	"github.com/trezcool/masomo-tracking/core"
)

func (cli *commandLine) token(userID, role, username, email string) error {
	role = core.CleanString(role, true)
	if !strings.HasSuffix(role, ":") {
		role += ":"
	}
	var valid bool
	for _, r := range echoapi.Roles {
		if r == role {
			valid = true
			break
		}
	}
	if !valid {
		return apps.NewArgumentError("role", fmt.Sprintf("unknown role %q", strings.TrimSuffix(role, ":")))
	}

	claims := echoapi.NewClaims(cli.conf, core.CleanString(userID), username, email, role)
	token, err := echoapi.GenerateToken(claims, cli.conf.Auth.SecretKey)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}
