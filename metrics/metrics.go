package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/embedded-ci/dut-campaign/types"
)

const (
	MetricsNamespace = "dutcampaign"
)

var (
	Debug                bool = true
	validResults              = []types.TestStatus{types.TestStatusPass, types.TestStatusFail, types.TestStatusSkip}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	testsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "tests_total",
		Help:      "Count of executed tests by result",
	}, []string{
		"target",
		"run_id",
		"name",
		"result",
	})

	campaignResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "campaign_results",
		Help:      "Result of the test campaign",
	}, []string{
		"target",
		"run_id",
		"result",
	})

	campaignTestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "campaign_test_total",
		Help:      "Total number of tests in the campaign",
	}, []string{
		"target",
		"run_id",
	})

	campaignTestPassed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "campaign_test_passed",
		Help:      "Number of passed campaign tests",
	}, []string{
		"target",
		"run_id",
	})

	campaignTestFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "campaign_test_failed",
		Help:      "Number of failed campaign tests",
	}, []string{
		"target",
		"run_id",
	})

	campaignTestSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "campaign_test_skipped",
		Help:      "Number of skipped campaign tests",
	}, []string{
		"target",
		"run_id",
	})

	campaignDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "campaign_duration_seconds",
		Help:      "Duration of the test campaign",
	}, []string{
		"target",
		"run_id",
	})

	rebootsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "reboots_total",
		Help:      "Count of reboot decisions by outcome (performed or avoided)",
	}, []string{
		"target",
		"run_id",
		"outcome",
	})

	flashDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "flash_duration_seconds",
		Help:      "Duration of the last DUT flash",
	}, []string{
		"target",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

func RecordTest(target string, runID string, testName string, result types.TestStatus) {
	if !isValidResult(result) {
		log.Error("RecordTest - invalid result", "result", result)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "tests_total",
			"target", target,
			"run_id", runID,
			"test", testName,
			"result", result)
	}
	testsTotal.WithLabelValues(target, runID, testName, string(result)).Inc()
}

// RecordRebootDecision tracks how often the reboot strategy paid off.
func RecordRebootDecision(target string, runID string, rebooted bool) {
	outcome := "avoided"
	if rebooted {
		outcome = "performed"
	}
	rebootsTotal.WithLabelValues(target, runID, outcome).Inc()
}

func RecordFlash(target string, duration time.Duration) {
	flashDuration.WithLabelValues(target).Set(duration.Seconds())
}

func RecordCampaign(
	target string,
	runID string,
	result string,
	total int,
	passed int,
	failed int,
	skipped int,
	duration time.Duration,
) {
	campaignResults.WithLabelValues(target, runID, result).Set(1)
	campaignTestTotal.WithLabelValues(target, runID).Add(float64(total))
	campaignTestPassed.WithLabelValues(target, runID).Add(float64(passed))
	campaignTestFailed.WithLabelValues(target, runID).Add(float64(failed))
	campaignTestSkipped.WithLabelValues(target, runID).Add(float64(skipped))
	campaignDuration.WithLabelValues(target, runID).Set(duration.Seconds())
}

func isValidResult(result types.TestStatus) bool {
	return slices.Contains(validResults, result)
}
