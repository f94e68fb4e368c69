package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli"
	"github.com/warpdl/svcctl/internal/journal"
)

var historyFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "limit, l",
		Usage: "maximum number of entries to list",
		Value: 50,
	},
	cli.DurationFlag{
		Name:  "since",
		Usage: "only list entries newer than this, e.g. 24h",
	},
	cli.DurationFlag{
		Name:  "prune",
		Usage: "delete entries older than this instead of listing",
	},
}

var errNoJournal = errors.New("the journal is disabled or could not be opened")

// historyNow is replaced in tests.
var historyNow = time.Now

func history(ctx *cli.Context) error {
	j := current.journal
	if j == nil {
		return errNoJournal
	}
	bg := context.Background()

	if age := ctx.Duration("prune"); age > 0 {
		n, err := j.Prune(bg, historyNow().Add(-age))
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d journal entries\n", n)
		return nil
	}

	f := journal.Filter{
		Service: ctx.Args().First(),
		Limit:   ctx.Int("limit"),
	}
	if since := ctx.Duration("since"); since > 0 {
		f.Since = historyNow().Add(-since)
	}
	entries, err := j.List(bg, f)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("svcctl: no operations recorded")
		return nil
	}
	for _, e := range entries {
		printEntry(e)
	}
	return nil
}

func printEntry(e journal.Entry) {
	result := "ok"
	if !e.OK() {
		result = "failed: " + e.Err
	}
	target := e.Service
	if e.Machine != "" {
		target = e.Machine + `\` + e.Service
	}
	line := fmt.Sprintf("%s  %-16s %-24s %s", e.Time.Format("2006-01-02 15:04:05"), e.Operation, target, result)
	if e.Detail != "" {
		line += "  (" + e.Detail + ")"
	}
	fmt.Println(line)
}
