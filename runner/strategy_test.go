package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/embedded-ci/dut-campaign/types"
)

func resultWith(status types.TestStatus) *types.TestResult {
	r := types.NewTestResult("prev")
	switch status {
	case types.TestStatusFail:
		r.Fail("boom")
	case types.TestStatusSkip:
		r.Skip()
	}
	return r
}

func TestNextRebootRequired(t *testing.T) {
	plainNext := &types.TestDescriptor{Name: "next"}
	bootloaderNext := &types.TestDescriptor{
		Name:       "next",
		Bootloader: &types.BootloaderConfig{Apps: []string{"psh"}},
	}

	tests := []struct {
		name    string
		result  *types.TestResult
		current bool
		next    *types.TestDescriptor
		nightly bool
		want    bool
	}{
		{
			name:   "clean pass avoids the reboot",
			result: resultWith(types.TestStatusPass),
			next:   plainNext,
			want:   false,
		},
		{
			name:   "failure always forces a reboot",
			result: resultWith(types.TestStatusFail),
			next:   plainNext,
			want:   true,
		},
		{
			name:    "failure wins even without nightly or bootloader",
			result:  resultWith(types.TestStatusFail),
			current: false,
			next:    plainNext,
			want:    true,
		},
		{
			name:    "nightly mode always reboots",
			result:  resultWith(types.TestStatusPass),
			next:    plainNext,
			nightly: true,
			want:    true,
		},
		{
			name:   "bootloader apps in the next test force a reboot",
			result: resultWith(types.TestStatusPass),
			next:   bootloaderNext,
			want:   true,
		},
		{
			name:   "bootloader section without apps does not",
			result: resultWith(types.TestStatusPass),
			next:   &types.TestDescriptor{Name: "next", Bootloader: &types.BootloaderConfig{}},
			want:   false,
		},
		{
			name:    "skip propagates the un-executed requirement",
			result:  resultWith(types.TestStatusSkip),
			current: true,
			next:    plainNext,
			want:    true,
		},
		{
			name:    "skip propagates a cleared requirement too",
			result:  resultWith(types.TestStatusSkip),
			current: false,
			next:    plainNext,
			want:    false,
		},
		{
			name:    "override beats skip propagation",
			result:  resultWith(types.TestStatusSkip),
			current: false,
			next:    bootloaderNext,
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextRebootRequired(tt.result, tt.current, tt.next, tt.nightly)
			assert.Equal(t, tt.want, got)
		})
	}
}
