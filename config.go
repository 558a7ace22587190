package campaign

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v2"

	"github.com/embedded-ci/dut-campaign/flags"
	"github.com/embedded-ci/dut-campaign/target"
)

// Config holds the process-wide configuration of one campaign execution.
// It is constructed once at startup and read-only thereafter.
type Config struct {
	TestPaths   []string
	ShouldFlash bool // Flash the DUT once before running any tests
	ShouldTest  bool // Run the tests; disabled means flash-only
	Nightly     bool // Always reboot between tests
	ProjectPath string
	TargetName  string
	EmulatorCmd []string
	FlashCmd    []string
	ShellPrompt string
	RunInterval time.Duration // Interval between campaign runs
	RunOnce     bool          // Indicates if the service should exit after one campaign run
	LogDir      string        // Directory to store per-campaign logs
	Log         *log.Logger

	// Target overrides the emulator target built from EmulatorCmd/FlashCmd.
	Target target.Target
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, logger *log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	testPaths := ctx.StringSlice(flags.TestPaths.Name)
	if len(testPaths) == 0 {
		return nil, errors.New("at least one test path is required")
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)
	runOnce := runInterval == 0

	logDir, err := filepath.Abs(ctx.String(flags.LogDir.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for log directory: %w", err)
	}

	projectPath := ctx.String(flags.ProjectPath.Name)
	if projectPath != "" {
		projectPath, err = filepath.Abs(projectPath)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for project path: %w", err)
		}
	}

	return &Config{
		TestPaths:   testPaths,
		ShouldFlash: !ctx.Bool(flags.NoFlash.Name),
		ShouldTest:  !ctx.Bool(flags.NoTest.Name),
		Nightly:     ctx.Bool(flags.Nightly.Name),
		ProjectPath: projectPath,
		TargetName:  ctx.String(flags.Target.Name),
		EmulatorCmd: ctx.StringSlice(flags.EmulatorCmd.Name),
		FlashCmd:    ctx.StringSlice(flags.FlashCmd.Name),
		ShellPrompt: ctx.String(flags.ShellPrompt.Name),
		RunInterval: runInterval,
		RunOnce:     runOnce,
		LogDir:      logDir,
		Log:         logger,
	}, nil
}
