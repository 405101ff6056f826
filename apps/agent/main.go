package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/tracking"
	collectorsvc "github.com/trezcool/masomo-tracking/services/collector"
	logsvc "github.com/trezcool/masomo-tracking/services/logger"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "AGENT : ", log.LstdFlags|log.Lmicroseconds), conf)
	logger.Enable(!conf.Debug)

	var reporter tracking.Reporter
	if conf.Debug {
		reporter = collectorsvc.NewConsoleReporter(logger)
	} else {
		reporter = collectorsvc.NewHTTPReporter(conf)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info(fmt.Sprintf("Agent started : version %q, reporting to %s", conf.Build, conf.Tracking.CollectorURL))
	a := newAgent(reporter, logger, tracking.NewConfig(conf))
	if err := a.run(ctx, os.Stdin); err != nil {
		logger.Error(err.Error(), err)
		os.Exit(1)
	}
	logger.Info("Agent stopped")
}
