package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	campaign "github.com/embedded-ci/dut-campaign"
	"github.com/embedded-ci/dut-campaign/exitcodes"
	"github.com/embedded-ci/dut-campaign/flags"
	"github.com/embedded-ci/dut-campaign/service"
)

var (
	Version   = "v0.3.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "dut-campaign"
	app.Usage = "Embedded DUT Test Campaign Runner"
	app.Description = "dut-campaign flashes a device under test and runs YAML-configured test campaigns against it"
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			// Use the exit code from the ExitCoder
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			cli.HandleExitCoder(cli.Exit(err.Error(), exitCodeForError(err)))
		}
	}

	// Start telemetry
	shutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Fatal("Failed to setup open telemetry", "message", err)
	}
	defer shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start healthz/metrics server
	svc := service.New()
	svc.Start(ctx)
	defer svc.Shutdown()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal("Application failed", "message", err)
	}
}

// exitCodeForError maps typed campaign errors to process exit codes.
func exitCodeForError(err error) int {
	switch {
	case campaign.IsRuntimeError(err):
		return exitcodes.RuntimeErr
	case campaign.IsTestFailureError(err):
		return exitcodes.TestFailure
	default:
		// Unspecified errors default to a test failure
		return exitcodes.TestFailure
	}
}

func run(ctx *cli.Context) error {
	if err := flags.CheckRequired(ctx); err != nil {
		return campaign.NewRuntimeError(err)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "dut-campaign",
	})
	if lvl, err := log.ParseLevel(ctx.String(flags.LogLevel.Name)); err == nil {
		logger.SetLevel(lvl)
	}

	cfg, err := campaign.NewConfig(ctx, logger)
	if err != nil {
		return campaign.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	appDone := make(chan error, 1)
	closeApp := func(cause error) {
		appDone <- cause
	}

	svc, err := campaign.New(ctx.Context, cfg, Version, closeApp)
	if err != nil {
		return campaign.NewRuntimeError(fmt.Errorf("failed to create campaign: %w", err))
	}

	if err := svc.Start(ctx.Context); err != nil {
		_ = svc.Stop(context.Background())
		return err
	}

	select {
	case cause := <-appDone:
		stopErr := svc.Stop(context.Background())
		if cause != nil {
			return cause
		}
		return stopErr
	case <-ctx.Context.Done():
		logger.Info("Interrupted, shutting down")
		return svc.Stop(context.Background())
	}
}
