package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/embedded-ci/dut-campaign/types"
)

// configFile is the on-disk shape of one test configuration file.
type configFile struct {
	Tests []*types.TestDescriptor `yaml:"tests"`
}

// ConfigParser is the default Parser, backed by YAML test configurations.
type ConfigParser struct{}

func NewConfigParser() *ConfigParser {
	return &ConfigParser{}
}

// Parse reads one test configuration file and returns its descriptors.
// Every descriptor starts with ShouldReboot set; the runner relaxes the flag
// between tests based on the previous result.
func (p *ConfigParser) Parse(path string) ([]*types.TestDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read test configuration: %w", err)
	}

	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse test configuration: %w", err)
	}
	if len(cfg.Tests) == 0 {
		return nil, fmt.Errorf("test configuration %s defines no tests", path)
	}

	for i, descriptor := range cfg.Tests {
		if descriptor == nil {
			return nil, fmt.Errorf("test configuration %s has an empty test entry at index %d", path, i)
		}
		if descriptor.Name == "" {
			descriptor.Name = defaultTestName(path, i)
		}
		descriptor.ShouldReboot = true
	}

	return cfg.Tests, nil
}

func defaultTestName(path string, idx int) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return fmt.Sprintf("%s.%d", base, idx)
}
