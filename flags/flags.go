package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "DUT_CAMPAIGN"

func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	TestPaths = &cli.StringSliceFlag{
		Name:     "test-path",
		Required: true,
		EnvVars:  prefixEnvVars("TEST_PATHS"),
		Usage:    "Directory scanned recursively for test*.yaml configurations, or a single configuration file. Repeatable.",
	}
	Target = &cli.StringFlag{
		Name:    "target",
		Value:   "ia32-generic-qemu",
		EnvVars: prefixEnvVars("TARGET"),
		Usage:   "Name of the target the DUT runs on, used for reporting and metrics labels",
	}
	EmulatorCmd = &cli.StringSliceFlag{
		Name:     "emulator-cmd",
		Required: true,
		EnvVars:  prefixEnvVars("EMULATOR_CMD"),
		Usage:    "Command (argv) that boots the DUT image and exposes its console on stdio",
	}
	FlashCmd = &cli.StringSliceFlag{
		Name:    "flash-cmd",
		EnvVars: prefixEnvVars("FLASH_CMD"),
		Usage:   "Command (argv) that flashes the image to the DUT",
	}
	ShellPrompt = &cli.StringFlag{
		Name:    "shell-prompt",
		Value:   "(psh)% ",
		EnvVars: prefixEnvVars("SHELL_PROMPT"),
		Usage:   "Prompt a successfully logged-in shell displays on the DUT console",
	}
	NoFlash = &cli.BoolFlag{
		Name:    "no-flash",
		Value:   false,
		EnvVars: prefixEnvVars("NO_FLASH"),
		Usage:   "Skip flashing the image before the campaign",
	}
	NoTest = &cli.BoolFlag{
		Name:    "no-test",
		Value:   false,
		EnvVars: prefixEnvVars("NO_TEST"),
		Usage:   "Flash only, do not run any tests",
	}
	Nightly = &cli.BoolFlag{
		Name:    "nightly",
		Value:   false,
		EnvVars: prefixEnvVars("NIGHTLY"),
		Usage:   "Reboot the DUT before every test, favoring thoroughness over speed",
	}
	ProjectPath = &cli.StringFlag{
		Name:    "project-path",
		EnvVars: prefixEnvVars("PROJECT_PATH"),
		Usage:   "Project root whose sibling test modules are made discoverable to harnesses",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: prefixEnvVars("RUN_INTERVAL"),
		Usage:   "Interval between campaign runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	LogDir = &cli.StringFlag{
		Name:    "log-dir",
		Value:   "logs",
		EnvVars: prefixEnvVars("LOG_DIR"),
		Usage:   "Directory to store per-campaign test logs",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
		Usage:   "Log level (debug, info, warn, error)",
	}
)

var requiredFlags = []cli.Flag{
	TestPaths,
	EmulatorCmd,
}

var optionalFlags = []cli.Flag{
	Target,
	FlashCmd,
	ShellPrompt,
	NoFlash,
	NoTest,
	Nightly,
	ProjectPath,
	RunInterval,
	LogDir,
	LogLevel,
}

var Flags []cli.Flag

func init() {
	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
