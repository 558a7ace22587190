package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embedded-ci/dut-campaign/harness"
	"github.com/embedded-ci/dut-campaign/types"
)

type stubSource struct {
	descriptors []*types.TestDescriptor
}

func (s *stubSource) GetDescriptors() []*types.TestDescriptor {
	return s.descriptors
}

// fakeTarget records the reboot flag each built test observed and serves
// scripted harnesses by test name.
type fakeTarget struct {
	flashErr       error
	flashes        int
	built          []string
	observedReboot map[string]bool
	harnesses      map[string]harness.Harness
	buildErr       map[string]error
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		observedReboot: make(map[string]bool),
		harnesses:      make(map[string]harness.Harness),
		buildErr:       make(map[string]error),
	}
}

func (t *fakeTarget) FlashDUT(ctx context.Context) error {
	t.flashes++
	return t.flashErr
}

func (t *fakeTarget) BuildTest(ctx context.Context, d *types.TestDescriptor) (harness.Harness, error) {
	t.built = append(t.built, d.Name)
	t.observedReboot[d.Name] = d.ShouldReboot
	if err := t.buildErr[d.Name]; err != nil {
		return nil, err
	}
	if h, ok := t.harnesses[d.Name]; ok {
		return h, nil
	}
	return passHarness(d.Name), nil
}

func passHarness(name string) harness.Harness {
	return harness.Func(func() (*types.TestResult, error) {
		return types.NewTestResult(name), nil
	})
}

func failHarness(msg string) harness.Harness {
	return harness.Func(func() (*types.TestResult, error) {
		return nil, harness.Errorf("%s", msg)
	})
}

func nilResultHarness() harness.Harness {
	return harness.Func(func() (*types.TestResult, error) {
		return nil, nil
	})
}

func descriptors(names ...string) []*types.TestDescriptor {
	var ds []*types.TestDescriptor
	for _, name := range names {
		ds = append(ds, &types.TestDescriptor{Name: name, ShouldReboot: true})
	}
	return ds
}

func newRunner(t *testing.T, cfg Config) TestRunner {
	t.Helper()
	if cfg.Out == nil {
		cfg.Out = &bytes.Buffer{}
	}
	r, err := NewTestRunner(cfg)
	require.NoError(t, err)
	return r
}

func TestNewTestRunnerValidation(t *testing.T) {
	_, err := NewTestRunner(Config{Target: newFakeTarget()})
	require.ErrorContains(t, err, "descriptor source is required")

	_, err = NewTestRunner(Config{Source: &stubSource{descriptors: descriptors("a")}})
	require.ErrorContains(t, err, "target is required")

	_, err = NewTestRunner(Config{Source: &stubSource{}, Target: newFakeTarget()})
	require.ErrorContains(t, err, "no tests found")
}

func TestRunAllTestsCountsAreConsistent(t *testing.T) {
	ds := descriptors("pass-a", "fail-b", "skip-c", "pass-d")
	ds[2].Ignore = true

	target := newFakeTarget()
	target.harnesses["fail-b"] = failHarness("console timed out")

	r := newRunner(t, Config{Source: &stubSource{descriptors: ds}, Target: target})
	result, err := r.RunAllTests(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, result.Stats.Total)
	assert.Equal(t, 2, result.Stats.Passed)
	assert.Equal(t, 1, result.Stats.Failed)
	assert.Equal(t, 1, result.Stats.Skipped)
	assert.Equal(t, result.Stats.Total, result.Stats.Passed+result.Stats.Failed+result.Stats.Skipped)
	assert.Equal(t, types.TestStatusFail, result.Status)
	assert.NotEmpty(t, result.RunID)
}

func TestIgnoredDescriptorNeverBuildsHarness(t *testing.T) {
	ds := descriptors("skipped")
	ds[0].Ignore = true

	target := newFakeTarget()
	r := newRunner(t, Config{Source: &stubSource{descriptors: ds}, Target: target})

	result, err := r.RunAllTests(context.Background())
	require.NoError(t, err)

	assert.Empty(t, target.built)
	assert.Equal(t, 1, result.Stats.Skipped)
	assert.Equal(t, types.TestStatusSkip, result.Status)
}

func TestHarnessErrorIsRecoveredPerTest(t *testing.T) {
	ds := descriptors("broken", "after")
	target := newFakeTarget()
	target.harnesses["broken"] = failHarness("cannot enter login to login prompt")

	r := newRunner(t, Config{Source: &stubSource{descriptors: ds}, Target: target})
	result, err := r.RunAllTests(context.Background())
	require.NoError(t, err)

	// The bad test never prevents the remaining tests from running.
	assert.Equal(t, []string{"broken", "after"}, target.built)
	require.Len(t, result.Tests, 2)
	assert.True(t, result.Tests[0].IsFail())
	assert.Contains(t, result.Tests[0].Message, "cannot enter login")
	assert.Equal(t, types.TestStatusPass, result.Tests[1].Status)
}

func TestBuildErrorFailsTheTest(t *testing.T) {
	ds := descriptors("unbuildable")
	target := newFakeTarget()
	target.buildErr["unbuildable"] = errors.New("unknown harness type")

	r := newRunner(t, Config{Source: &stubSource{descriptors: ds}, Target: target})
	result, err := r.RunAllTests(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Tests, 1)
	assert.True(t, result.Tests[0].IsFail())
}

func TestNilHarnessResultDefaultsToPass(t *testing.T) {
	ds := descriptors("quiet")
	target := newFakeTarget()
	target.harnesses["quiet"] = nilResultHarness()

	r := newRunner(t, Config{Source: &stubSource{descriptors: ds}, Target: target})
	result, err := r.RunAllTests(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Tests, 1)
	assert.Equal(t, types.TestStatusPass, result.Tests[0].Status)
	assert.Empty(t, result.Tests[0].Message)
}

func TestRebootAvoidedAfterCleanPass(t *testing.T) {
	ds := descriptors("first", "second")
	target := newFakeTarget()

	r := newRunner(t, Config{Source: &stubSource{descriptors: ds}, Target: target})
	_, err := r.RunAllTests(context.Background())
	require.NoError(t, err)

	// The campaign always boots the first test clean.
	assert.True(t, target.observedReboot["first"])
	assert.False(t, target.observedReboot["second"])
}

func TestRebootForcedAfterFailure(t *testing.T) {
	ds := descriptors("failing", "second")
	target := newFakeTarget()
	target.harnesses["failing"] = failHarness("boom")

	r := newRunner(t, Config{Source: &stubSource{descriptors: ds}, Target: target})
	_, err := r.RunAllTests(context.Background())
	require.NoError(t, err)

	assert.True(t, target.observedReboot["second"])
}

func TestNightlyModeAlwaysReboots(t *testing.T) {
	ds := descriptors("first", "second", "third")
	target := newFakeTarget()

	r := newRunner(t, Config{Source: &stubSource{descriptors: ds}, Target: target, Nightly: true})
	_, err := r.RunAllTests(context.Background())
	require.NoError(t, err)

	for _, name := range []string{"first", "second", "third"} {
		assert.True(t, target.observedReboot[name], "test %s should reboot in nightly mode", name)
	}
}

func TestBootloaderAppsForceReboot(t *testing.T) {
	ds := descriptors("first", "loads-apps")
	ds[1].Bootloader = &types.BootloaderConfig{Apps: []string{"psh"}}
	target := newFakeTarget()

	r := newRunner(t, Config{Source: &stubSource{descriptors: ds}, Target: target})
	_, err := r.RunAllTests(context.Background())
	require.NoError(t, err)

	assert.True(t, target.observedReboot["loads-apps"])
}

func TestSkipPropagatesRebootRequirement(t *testing.T) {
	// first passes (next flag false), middle is skipped, so last inherits the
	// skipped test's own requirement: still false.
	ds := descriptors("first", "middle", "last")
	ds[1].Ignore = true
	target := newFakeTarget()

	r := newRunner(t, Config{Source: &stubSource{descriptors: ds}, Target: target})
	_, err := r.RunAllTests(context.Background())
	require.NoError(t, err)

	assert.False(t, target.observedReboot["last"])
}

func TestSkipPropagatesPendingReboot(t *testing.T) {
	// first fails, middle is skipped: the reboot the failure demanded is
	// carried forward unchanged through the skip, so last still reboots.
	ds := descriptors("first", "middle", "last")
	ds[1].Ignore = true
	target := newFakeTarget()
	target.harnesses["first"] = failHarness("boom")

	r := newRunner(t, Config{Source: &stubSource{descriptors: ds}, Target: target})
	_, err := r.RunAllTests(context.Background())
	require.NoError(t, err)

	assert.True(t, target.observedReboot["last"])
}

func TestFlashSuccess(t *testing.T) {
	target := newFakeTarget()
	out := &bytes.Buffer{}
	r := newRunner(t, Config{Source: &stubSource{descriptors: descriptors("a")}, Target: target, Out: out})

	require.NoError(t, r.Flash(context.Background()))
	assert.Equal(t, 1, target.flashes)
	assert.Contains(t, out.String(), "Done!")
}

func TestFlashFailurePrintsBanner(t *testing.T) {
	target := newFakeTarget()
	target.flashErr = fmt.Errorf("flash error: device not responding")
	out := &bytes.Buffer{}
	r := newRunner(t, Config{Source: &stubSource{descriptors: descriptors("a")}, Target: target, Out: out})

	err := r.Flash(context.Background())
	require.Error(t, err)
	assert.Contains(t, out.String(), "ERROR WHILE FLASHING THE DEVICE")
	assert.Contains(t, out.String(), "device not responding")
}

func TestPerTestOutputIsPrintedImmediately(t *testing.T) {
	ds := descriptors("pass-a", "skip-b")
	ds[1].Ignore = true
	out := &bytes.Buffer{}

	r := newRunner(t, Config{Source: &stubSource{descriptors: ds}, Target: newFakeTarget(), Out: out})
	result, err := r.RunAllTests(context.Background())
	require.NoError(t, err)

	assert.Contains(t, out.String(), "pass-a: ")
	assert.Contains(t, out.String(), "skip-b: ")
	assert.Contains(t, result.String(), "TESTS: 2")
}
