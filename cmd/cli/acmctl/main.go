package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/juliencaulet/acm-control/pkg/cli"
	"github.com/juliencaulet/acm-control/pkg/logging"
	"github.com/juliencaulet/acm-control/pkg/logview"
	"github.com/juliencaulet/acm-control/pkg/orchestrator"
	"github.com/juliencaulet/acm-control/pkg/probe"
	"github.com/juliencaulet/acm-control/pkg/registry"
	"github.com/juliencaulet/acm-control/pkg/status"
)

func main() {
	inv, err := cli.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n\n", err)
		fmt.Fprint(os.Stderr, cli.Usage)
		os.Exit(1)
	}

	logger, err := logging.NewZapLogger(logging.ZapConfig{Level: inv.LogLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	var config *registry.Config
	if inv.ConfigPath != "" {
		config, err = registry.LoadConfigFromFile(inv.ConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	} else {
		config = registry.DefaultConfig()
	}
	if err := registry.ValidateConfig(config); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	reg := registry.NewRegistry(config)
	pids := probe.NewPIDTable()
	svc := probe.NewServiceManager(logger)
	prober := probe.NewProcessProbe(probe.NewSystemProcessTable(), pids, svc, logger)
	runner := orchestrator.NewExecRunner(logger)
	orch := orchestrator.New(reg, prober, pids, svc, runner, orchestrator.NewClock(),
		config.Orchestration, logger)
	inspector := status.NewMongoInspector(config.MongoURL)
	reporter := status.NewReporter(reg, prober, inspector, logger)
	viewer := logview.NewViewer(reg, prober, logger)

	// Log follow runs until interrupted; everything else has bounded waits
	// that the same signal cuts short.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Orchestrator: orch,
		Reporter:     reporter,
		Viewer:       viewer,
		Registry:     reg,
		LockFile:     config.Orchestration.LockFile,
		Logger:       logger,
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
	}

	code := cli.Run(ctx, inv, app)

	if closeErr := inspector.Close(context.Background()); closeErr != nil {
		logger.Debugf("Failed to close datastore connection: %v", closeErr)
	}
	os.Exit(code)
}
