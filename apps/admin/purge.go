package main

import (
	"context"
	"fmt"
	"time"

	"github.com/trezcool/masomo-tracking/apps"
)

var nowFunc = time.Now // mockable

func parseDate(name, val string) (time.Time, error) {
	if val == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return time.Time{}, apps.NewArgumentError(name, fmt.Sprintf("must be an RFC3339 date-time (got %q)", val))
	}
	return t.UTC(), nil
}

func (cli *commandLine) purge(beforeStr string, days int) error {
	before, err := parseDate("before", beforeStr)
	if err != nil {
		return err
	}
	if before.IsZero() {
		before = nowFunc().UTC().AddDate(0, 0, -days)
	}

	deleted, err := cli.svc.Purge(context.Background(), before)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "deleted %d events before %s\n", deleted, before.Format(time.RFC3339))
	return nil
}
