package main

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/tracking"
)

// agent feeds the runtime signals read from a line-based stream to a Tracker.
type agent struct {
	tracker *tracking.Tracker
	signals *tracking.Signals
	logger  core.Logger
}

func newAgent(reporter tracking.Reporter, logger core.Logger, conf tracking.Config) *agent {
	signals := tracking.NewSignals("/")
	return &agent{
		tracker: tracking.NewTracker(reporter, signals, logger, conf),
		signals: signals,
		logger:  logger,
	}
}

func (a *agent) handle(cmd command) error {
	switch cmd.name {
	case cmdLogin:
		if err := a.tracker.Init(cmd.arg); err != nil {
			return errors.Wrap(err, "starting tracker")
		}
	case cmdLogout:
		a.tracker.Cleanup()
	case cmdVisible:
		a.signals.SetVisibility(tracking.Visible)
	case cmdHidden:
		a.signals.SetVisibility(tracking.Hidden)
	case cmdNavigate:
		a.signals.Navigate(cmd.arg)
	case cmdPath:
		a.signals.SetPath(cmd.arg)
	}
	return nil
}

// run handles the commands read from r until EOF or until ctx is done,
// then flushes the current session and waits for the pending reports.
func (a *agent) run(ctx context.Context, r io.Reader) error {
	defer func() {
		a.tracker.Cleanup()
		a.tracker.Wait()
	}()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for n := 1; ; n++ {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return errors.Wrap(err, "reading signals")
				default:
					return nil
				}
			}
			cmd, ok, err := parseCommand(line)
			if err != nil {
				a.logger.Warn(fmt.Sprintf("line %d: %v", n, err), err)
				continue
			}
			if !ok {
				continue
			}
			if err = a.handle(cmd); err != nil {
				a.logger.Warn(fmt.Sprintf("line %d: %v", n, err), err)
			}
		}
	}
}
