// Package runner executes a test campaign strictly sequentially against a
// single DUT, applying the reboot strategy between tests.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/text"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/embedded-ci/dut-campaign/logging"
	"github.com/embedded-ci/dut-campaign/metrics"
	"github.com/embedded-ci/dut-campaign/target"
	"github.com/embedded-ci/dut-campaign/types"
)

// ResultStats tracks aggregate test statistics for one campaign
type ResultStats struct {
	Total     int
	Passed    int
	Failed    int
	Skipped   int
	StartTime time.Time
	EndTime   time.Time
}

func (s *ResultStats) record(status types.TestStatus) {
	s.Total++
	switch status {
	case types.TestStatusFail:
		s.Failed++
	case types.TestStatusSkip:
		s.Skipped++
	default:
		s.Passed++
	}
}

// CampaignResult captures the complete campaign results
type CampaignResult struct {
	Tests    []*types.TestResult
	Status   types.TestStatus
	Duration time.Duration
	Stats    ResultStats
	RunID    string
}

// String renders the campaign summary line with colored counts.
func (r *CampaignResult) String() string {
	return fmt.Sprintf("TESTS: %d %s: %d %s: %d %s: %d",
		r.Stats.Total,
		text.FgGreen.Sprint("PASSED"), r.Stats.Passed,
		text.FgRed.Sprint("FAILED"), r.Stats.Failed,
		text.FgYellow.Sprint("SKIPPED"), r.Stats.Skipped)
}

// TestRunner defines the interface for running a campaign
type TestRunner interface {
	Flash(ctx context.Context) error
	RunAllTests(ctx context.Context) (*CampaignResult, error)
	RunTest(ctx context.Context, descriptor *types.TestDescriptor) (*types.TestResult, error)
}

// DescriptorSource provides the ordered test descriptors of a campaign.
type DescriptorSource interface {
	GetDescriptors() []*types.TestDescriptor
}

// runner struct implements the TestRunner interface
type runner struct {
	descriptors []*types.TestDescriptor
	target      target.Target
	targetName  string
	log         *log.Logger
	nightly     bool
	fileLogger  *logging.FileLogger
	out         io.Writer
	runID       string
	tracer      trace.Tracer
}

// Config holds configuration for creating a new runner
type Config struct {
	Source     DescriptorSource
	Target     target.Target
	TargetName string
	Log        *log.Logger
	Nightly    bool                // Always reboot between tests, favoring thoroughness over speed
	FileLogger *logging.FileLogger // Optional persistence of per-test outcomes
	Out        io.Writer           // Destination for per-test console output, defaults to stdout
}

// NewTestRunner creates a new test runner instance
func NewTestRunner(cfg Config) (TestRunner, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("descriptor source is required")
	}
	if cfg.Target == nil {
		return nil, fmt.Errorf("target is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.Default()
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.TargetName == "" {
		cfg.TargetName = "unknown"
	}

	descriptors := cfg.Source.GetDescriptors()
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("no tests found")
	}

	cfg.Log.Debug("NewTestRunner()", "tests", len(descriptors), "targetName", cfg.TargetName,
		"nightly", cfg.Nightly)

	return &runner{
		descriptors: descriptors,
		target:      cfg.Target,
		targetName:  cfg.TargetName,
		log:         cfg.Log,
		nightly:     cfg.Nightly,
		fileLogger:  cfg.FileLogger,
		out:         cfg.Out,
		tracer:      otel.Tracer("campaign runner"),
	}, nil
}

// Flash performs the one full image flash of the campaign. A failure here is
// the single unrecoverable path in the core; the caller terminates the
// process.
func (r *runner) Flash(ctx context.Context) error {
	fmt.Fprintln(r.out, "Flashing an image to device...")

	start := time.Now()
	if err := r.target.FlashDUT(ctx); err != nil {
		fmt.Fprintln(r.out, text.Bold.Sprint("ERROR WHILE FLASHING THE DEVICE"))
		fmt.Fprintln(r.out, err)
		metrics.RecordErrorDetails("flash failed", err)
		return err
	}
	metrics.RecordFlash(r.targetName, time.Since(start))

	fmt.Fprintln(r.out, "Done!")
	return nil
}

// RunAllTests executes the campaign in order. The reboot requirement is
// carried as an explicit accumulator: each iteration writes the accumulated
// flag into its descriptor before execution and derives the next value from
// its result, so results and reboot decisions stay causally ordered.
func (r *runner) RunAllTests(ctx context.Context) (*CampaignResult, error) {
	if r.fileLogger != nil {
		r.runID = r.fileLogger.GetRunID()
	} else {
		r.runID = uuid.New().String()
	}
	defer func() {
		r.runID = ""
	}()

	start := time.Now()
	r.log.Debug("Running all tests", "run_id", r.runID)

	result := &CampaignResult{
		Stats: ResultStats{StartTime: start},
	}

	// The campaign opens on a freshly flashed or at least unknown DUT, so
	// the first test always boots clean.
	rebootRequired := true

	for i, descriptor := range r.descriptors {
		descriptor.ShouldReboot = rebootRequired

		testResult, err := r.RunTest(ctx, descriptor)
		if err != nil {
			return nil, fmt.Errorf("running test %s: %w", descriptor.Name, err)
		}

		result.Tests = append(result.Tests, testResult)
		result.Stats.record(testResult.Status)
		metrics.RecordTest(r.targetName, r.runID, descriptor.Name, testResult.Status)

		if r.fileLogger != nil {
			if err := r.fileLogger.LogTestResult(testResult); err != nil {
				r.log.Error("Failed to persist test result", "test", descriptor.Name, "error", err)
			}
		}

		if i+1 < len(r.descriptors) {
			rebootRequired = NextRebootRequired(testResult, descriptor.ShouldReboot, r.descriptors[i+1], r.nightly)
		}
	}

	result.Duration = time.Since(start)
	result.Status = determineCampaignStatus(result)
	result.Stats.EndTime = time.Now()
	result.RunID = r.runID
	return result, nil
}

// RunTest processes a single descriptor: skips it, or builds and executes its
// harness. Harness-level failures are recovered into a failed result so one
// bad test never stops the campaign.
func (r *runner) RunTest(ctx context.Context, descriptor *types.TestDescriptor) (*types.TestResult, error) {
	_, span := r.tracer.Start(ctx, fmt.Sprintf("test %s", descriptor.Name))
	defer span.End()

	fmt.Fprintf(r.out, "%s: ", descriptor.Name)

	start := time.Now()
	result := types.NewTestResult(descriptor.Name)

	if descriptor.Ignore {
		result.Skip()
		fmt.Fprintln(r.out, result)
		return result, nil
	}

	metrics.RecordRebootDecision(r.targetName, r.runID, descriptor.ShouldReboot)

	h, err := r.target.BuildTest(ctx, descriptor)
	if err != nil {
		result.Fail(err.Error())
		result.Duration = time.Since(start)
		fmt.Fprintln(r.out, result)
		return result, nil
	}
	if h == nil {
		panic(fmt.Sprintf("target returned no harness for test %s", descriptor.Name))
	}

	harnessResult, err := h.Run()
	switch {
	case err != nil:
		result.Fail(err.Error())
	case harnessResult != nil:
		result = harnessResult
	}
	result.Duration = time.Since(start)

	fmt.Fprintln(r.out, result)
	return result, nil
}

func determineCampaignStatus(result *CampaignResult) types.TestStatus {
	switch {
	case result.Stats.Failed > 0:
		return types.TestStatusFail
	case result.Stats.Total > 0 && result.Stats.Skipped == result.Stats.Total:
		return types.TestStatusSkip
	default:
		return types.TestStatusPass
	}
}
