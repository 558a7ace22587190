// Package campaign wires discovery, flashing and the sequential test runner
// into one service driving a test campaign against a single DUT.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/embedded-ci/dut-campaign/exitcodes"
	"github.com/embedded-ci/dut-campaign/logging"
	"github.com/embedded-ci/dut-campaign/metrics"
	"github.com/embedded-ci/dut-campaign/registry"
	"github.com/embedded-ci/dut-campaign/runner"
	"github.com/embedded-ci/dut-campaign/target"
	"github.com/embedded-ci/dut-campaign/types"
)

// TestModulesEnvVar names the environment variable through which sibling test
// modules are made discoverable to harness subprocesses.
const TestModulesEnvVar = "DUT_CAMPAIGN_TEST_MODULES"

// Campaign runs test campaigns against a single DUT, once or periodically.
type Campaign struct {
	ctx        context.Context
	config     *Config
	version    string
	registry   *registry.Registry
	runner     runner.TestRunner
	target     target.Target
	fileLogger *logging.FileLogger
	result     *runner.CampaignResult

	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup

	shutdownCallback func(error) // Callback to signal application shutdown
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*Campaign, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating campaign with config",
		"testPaths", config.TestPaths,
		"targetName", config.TargetName,
		"shouldFlash", config.ShouldFlash,
		"shouldTest", config.ShouldTest,
		"nightly", config.Nightly,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce)

	reg, err := registry.NewRegistry(registry.Config{
		Log:       config.Log,
		TestPaths: config.TestPaths,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	dut := config.Target
	if dut == nil {
		dut, err = target.NewEmulatorTarget(target.EmulatorConfig{
			EmulatorCmd: config.EmulatorCmd,
			FlashCmd:    config.FlashCmd,
			ShellPrompt: config.ShellPrompt,
			Log:         config.Log,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create emulator target: %w", err)
		}
	}

	fileLogger, err := logging.NewFileLogger(config.LogDir, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}

	testRunner, err := runner.NewTestRunner(runner.Config{
		Source:     reg,
		Target:     dut,
		TargetName: config.TargetName,
		Log:        config.Log,
		Nightly:    config.Nightly,
		FileLogger: fileLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create test runner: %w", err)
	}

	return &Campaign{
		ctx:              ctx,
		config:           config,
		version:          version,
		registry:         reg,
		runner:           testRunner,
		target:           dut,
		fileLogger:       fileLogger,
		done:             make(chan struct{}),
		shutdownCallback: shutdownCallback,
	}, nil
}

// Start flashes the DUT if requested and runs the campaign, once or
// periodically at the configured interval.
func (c *Campaign) Start(ctx context.Context) error {
	// Panic recovery so programming invariants surface as exit code 2
	defer func() {
		if r := recover(); r != nil {
			c.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	c.ctx = ctx
	c.done = make(chan struct{})
	c.running.Store(true)

	if c.config.ShouldFlash {
		if err := c.runner.Flash(ctx); err != nil {
			// The one unrecoverable path: no test runs after a failed flash.
			return NewRuntimeError(err)
		}
	}

	if !c.config.ShouldTest {
		c.config.Log.Info("Testing disabled, exiting after flash")
		go func() {
			c.shutdownCallback(nil)
		}()
		return nil
	}

	if c.config.ProjectPath != "" {
		// Make sibling test modules visible to harness subprocesses.
		if err := os.Setenv(TestModulesEnvVar, filepath.Join(c.config.ProjectPath, "tests")); err != nil {
			return NewRuntimeError(err)
		}
	}

	if c.config.RunOnce {
		c.config.Log.Info("Starting campaign in run-once mode", "target", c.config.TargetName)
	} else {
		c.config.Log.Info("Starting campaign in continuous mode", "interval", c.config.RunInterval)
	}

	if err := c.runCampaign(); err != nil {
		c.config.Log.Error("Runtime error running campaign", "error", err)
		return NewRuntimeError(err)
	}

	if c.config.RunOnce {
		c.config.Log.Info("Campaign completed, exiting (run-once mode)")

		if c.result != nil && c.result.Status == types.TestStatusFail {
			return NewTestFailureError(stripansi.Strip(c.result.String()))
		}

		go func() {
			c.shutdownCallback(nil)
		}()
		return nil
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		for {
			select {
			case <-time.After(c.config.RunInterval):
				if !c.running.Load() {
					return
				}
				c.config.Log.Info("Running periodic campaign")
				if err := c.runCampaign(); err != nil {
					c.config.Log.Error("Error running periodic campaign", "error", err)
				}

			case <-c.done:
				return

			case <-ctx.Done():
				c.running.Store(false)
				return
			}
		}
	}()
	return nil
}

// runCampaign runs all tests once and processes the results
func (c *Campaign) runCampaign() error {
	result, err := c.runner.RunAllTests(c.ctx)
	if err != nil {
		return err
	}
	c.result = result

	c.printResultsTable()
	fmt.Println(result.String())

	summary := stripansi.Strip(result.String())
	if err := c.fileLogger.LogSummary(summary); err != nil {
		c.config.Log.Error("Failed to persist campaign summary", "error", err)
	}

	metrics.RecordCampaign(
		c.config.TargetName,
		result.RunID,
		string(result.Status),
		result.Stats.Total,
		result.Stats.Passed,
		result.Stats.Failed,
		result.Stats.Skipped,
		result.Duration,
	)

	c.config.Log.Info("Campaign run completed",
		"run_id", result.RunID,
		"status", result.Status,
		"logs", c.fileLogger.GetDirectory())
	return nil
}

// Stop stops the campaign service.
func (c *Campaign) Stop(ctx context.Context) error {
	c.config.Log.Info("Stopping campaign")

	if !c.running.Load() {
		return nil
	}
	c.running.Store(false)
	close(c.done)
	c.wg.Wait()

	if closer, ok := c.target.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			c.config.Log.Debug("Closing target", "error", err)
		}
	}

	c.config.Log.Info("Campaign stopped")
	return nil
}

// WaitForShutdown blocks until background work has finished or ctx expires.
func (c *Campaign) WaitForShutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stopped returns true if the campaign service is stopped.
func (c *Campaign) Stopped() bool {
	return !c.running.Load()
}

// Result returns the result of the most recent campaign run.
func (c *Campaign) Result() *runner.CampaignResult {
	return c.result
}

// printResultsTable prints the campaign results to the console.
func (c *Campaign) printResultsTable() {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("Test Campaign Results (%s)", formatDuration(c.result.Duration)))

	t.AppendHeader(table.Row{
		"Test", "Duration", "Passed", "Failed", "Skipped", "Status", "Error",
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Test", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
		{Name: "Error", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, test := range c.result.Tests {
		t.AppendRow(table.Row{
			test.Name,
			formatDuration(test.Duration),
			boolToInt(test.Status == types.TestStatusPass),
			boolToInt(test.Status == types.TestStatusFail),
			boolToInt(test.Status == types.TestStatusSkip),
			getResultString(test.Status),
			test.Message,
		})
	}

	switch c.result.Status {
	case types.TestStatusPass:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	case types.TestStatusSkip:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		formatDuration(c.result.Duration),
		c.result.Stats.Passed,
		c.result.Stats.Failed,
		c.result.Stats.Skipped,
		getResultString(c.result.Status),
		"",
	})

	t.Render()
}
