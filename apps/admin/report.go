package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/trezcool/masomo-tracking/core/tracking"
)

func (cli *commandLine) report(userID, fromStr, toStr string, asJSON bool) error {
	from, err := parseDate("from", fromStr)
	if err != nil {
		return err
	}
	to, err := parseDate("to", toStr)
	if err != nil {
		return err
	}

	usages, err := cli.svc.Usage(context.Background(), tracking.QueryFilter{UserID: userID, From: from, To: to})
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(cli.out)
		enc.SetIndent("", "  ")
		return enc.Encode(usages)
	}

	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USER\tSESSIONS\tTIME\tPAGE VIEWS\tHEARTBEATS\tLAST SEEN")
	for _, u := range usages {
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%d\t%s\n",
			u.UserID, u.Sessions, time.Duration(u.TotalSeconds)*time.Second, u.PageViews, u.Heartbeats,
			u.LastSeen.Format(time.RFC3339),
		)
	}
	return w.Flush()
}
