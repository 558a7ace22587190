package types

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
)

// TestStatus represents the possible outcomes of a single test execution
type TestStatus string

const (
	TestStatusPass TestStatus = "pass"
	TestStatusFail TestStatus = "fail"
	TestStatusSkip TestStatus = "skip"
)

// BootloaderConfig describes the bootloader stage requirements of a test.
// A non-empty Apps list means the test loads application images through the
// bootloader, which forces a device reboot before the test runs.
type BootloaderConfig struct {
	Apps []string `yaml:"apps,omitempty"`
}

// TestDescriptor is one entry in a campaign: the parsed configuration of a
// single test. The open set of test-specific fields ends up in Config and is
// passed through untouched to harness construction.
type TestDescriptor struct {
	Name       string            `yaml:"name"`
	Ignore     bool              `yaml:"ignore,omitempty"`
	Bootloader *BootloaderConfig `yaml:"bootloader,omitempty"`
	Config     map[string]any    `yaml:",inline"`

	// ShouldReboot is written by the runner before the descriptor's test
	// executes; it is an input to harness construction, not part of the
	// configuration file.
	ShouldReboot bool `yaml:"-"`
}

// NeedsBootloaderLoad reports whether the test must enter the bootloader
// stage to load application images.
func (d *TestDescriptor) NeedsBootloaderLoad() bool {
	return d.Bootloader != nil && len(d.Bootloader.Apps) > 0
}

// TestResult captures the outcome of a single test run
type TestResult struct {
	Name     string
	Status   TestStatus
	Message  string
	Duration time.Duration
}

// NewTestResult creates a result for the named test. The zero status is pass;
// a harness that returns nothing is treated as a pass with no message.
func NewTestResult(name string) *TestResult {
	return &TestResult{Name: name, Status: TestStatusPass}
}

// Fail marks the result as failed with the given cause.
func (r *TestResult) Fail(message string) {
	r.Status = TestStatusFail
	r.Message = message
}

// Skip marks the result as skipped.
func (r *TestResult) Skip() {
	r.Status = TestStatusSkip
}

func (r *TestResult) IsFail() bool {
	return r.Status == TestStatusFail
}

func (r *TestResult) IsSkip() bool {
	return r.Status == TestStatusSkip
}

// String renders a colored single-line outcome for immediate console output.
func (r *TestResult) String() string {
	switch r.Status {
	case TestStatusFail:
		if r.Message != "" {
			return fmt.Sprintf("%s\n%s", text.FgRed.Sprint("FAILED"), r.Message)
		}
		return text.FgRed.Sprint("FAILED")
	case TestStatusSkip:
		return text.FgYellow.Sprint("SKIPPED")
	default:
		return text.FgGreen.Sprint("PASSED")
	}
}
