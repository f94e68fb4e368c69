package cmd

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli"
	"github.com/warpdl/svcctl/internal/journal"
	"github.com/warpdl/svcctl/pkg/logger"
)

// session holds what the global flags configure for one invocation.
type session struct {
	machine  string
	database string
	log      logger.Logger
	journal  *journal.Journal
}

var current = &session{log: logger.NewNopLogger()}

var (
	openJournal        = journal.Open
	defaultJournalPath = journal.DefaultPath
)

func setup(ctx *cli.Context) error {
	level, err := logger.ParseLevel(ctx.GlobalString("log-level"))
	if err != nil {
		return err
	}
	s := &session{
		machine:  ctx.GlobalString("machine"),
		database: ctx.GlobalString("database"),
		log:      logger.NewLevelFilter(logger.NewStandardLogger(log.New(os.Stderr, "svcctl: ", 0)), level),
	}
	if !ctx.GlobalBool("no-journal") {
		s.journal = s.openJournal(ctx.GlobalString("journal"))
	}
	current = s
	return nil
}

// openJournal opens the journal at path, or at the default location when
// path is empty. A journal that cannot be opened only costs the history.
func (s *session) openJournal(path string) *journal.Journal {
	if path == "" {
		p, err := defaultJournalPath()
		if err != nil {
			s.log.Warning("journal disabled: %v", err)
			return nil
		}
		path = p
	}
	j, err := openJournal(path)
	if err != nil {
		s.log.Warning("journal disabled: %v", err)
		return nil
	}
	return j
}

func teardown(*cli.Context) error {
	s := current
	current = &session{log: logger.NewNopLogger()}
	err := s.journal.Close()
	s.log.Close()
	return err
}

// record writes one journal entry. Failures are logged, never returned:
// the operation itself has already happened.
func (s *session) record(service, op, detail string, opErr error) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(context.Background(), s.machine, service, op, detail, opErr); err != nil {
		s.log.Warning("%v", err)
	}
}
