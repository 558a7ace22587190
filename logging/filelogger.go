// Package logging persists per-campaign artifacts: one transcript per test
// and a campaign summary, grouped under a run-scoped directory.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/embedded-ci/dut-campaign/types"
)

const (
	// RunDirectoryPrefix is the standardized prefix for run directories.
	RunDirectoryPrefix = "campaign-"

	SummaryFilename = "summary.log"
	FailedDirName   = "failed"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// FileLogger writes test outcomes to files under <baseDir>/campaign-<runID>/.
// Failed tests are additionally mirrored into a failed/ subdirectory so a
// campaign's damage is visible at a glance.
type FileLogger struct {
	runID     string
	runDir    string
	failedDir string
	mu        sync.Mutex
}

// NewFileLogger creates the run directory structure. An empty runID gets a
// generated one.
func NewFileLogger(baseDir string, runID string) (*FileLogger, error) {
	if runID == "" {
		runID = uuid.New().String()
	}

	runDir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	failedDir := filepath.Join(runDir, FailedDirName)
	for _, dir := range []string{runDir, failedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
	}

	return &FileLogger{
		runID:     runID,
		runDir:    runDir,
		failedDir: failedDir,
	}, nil
}

// GetRunID returns the run ID this logger writes under.
func (l *FileLogger) GetRunID() string {
	return l.runID
}

// GetDirectory returns the run directory.
func (l *FileLogger) GetDirectory() string {
	return l.runDir
}

// LogTestResult writes one test's outcome. Failures are mirrored into the
// failed/ subdirectory.
func (l *FileLogger) LogTestResult(result *types.TestResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	content := fmt.Sprintf("test: %s\nstatus: %s\n", result.Name, result.Status)
	if result.Message != "" {
		content += fmt.Sprintf("message: %s\n", result.Message)
	}

	filename := sanitizeFilename(result.Name) + ".log"
	if err := os.WriteFile(filepath.Join(l.runDir, filename), []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write test log: %w", err)
	}

	if result.IsFail() {
		if err := os.WriteFile(filepath.Join(l.failedDir, filename), []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write failed-test log: %w", err)
		}
	}
	return nil
}

// LogSummary writes the campaign summary once, after the loop.
func (l *FileLogger) LogSummary(summary string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	path := filepath.Join(l.runDir, SummaryFilename)
	if err := os.WriteFile(path, []byte(summary+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	return unsafeFilenameChars.ReplaceAllString(name, "_")
}
