package runner

import (
	"github.com/embedded-ci/dut-campaign/types"
)

// NextRebootRequired decides whether the DUT must be fully rebooted before
// the next test runs. It is evaluated after every processed test and trades
// correctness against speed: a reboot guarantees a clean DUT state but costs
// substantial wall-clock time on hardware.
//
// The default is to skip the reboot. A skipped test propagates its own
// requirement forward unchanged, since it left the DUT exactly as the test
// before it did. Three conditions unconditionally force a reboot:
//  1. the completed test failed, so the DUT state is not trusted,
//  2. the campaign runs in nightly mode, favoring clean boots over speed,
//  3. the next test loads applications through the bootloader, which is
//     itself a reboot.
func NextRebootRequired(result *types.TestResult, current bool, next *types.TestDescriptor, nightly bool) bool {
	required := false

	if result.IsSkip() {
		required = current
	}

	if result.IsFail() || nightly || next.NeedsBootloaderLoad() {
		required = true
	}

	return required
}
