// Package registry loads and holds the test descriptors of a campaign.
package registry

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/embedded-ci/dut-campaign/discovery"
	"github.com/embedded-ci/dut-campaign/types"
)

// Parser turns one test configuration file into test descriptors.
// Parse failures are fatal to campaign construction and are propagated
// unchanged.
type Parser interface {
	Parse(path string) ([]*types.TestDescriptor, error)
}

// Registry manages the ordered set of test descriptors for a campaign
type Registry struct {
	config      Config
	descriptors []*types.TestDescriptor
	mu          sync.RWMutex
}

// Config contains registry configuration
type Config struct {
	Log       *log.Logger
	TestPaths []string
	Parser    Parser
}

// NewRegistry discovers the test configuration files under cfg.TestPaths and
// parses them into descriptors, preserving discovery order.
func NewRegistry(cfg Config) (*Registry, error) {
	if len(cfg.TestPaths) == 0 {
		return nil, fmt.Errorf("at least one test path is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.Default()
	}
	if cfg.Parser == nil {
		cfg.Parser = NewConfigParser()
	}

	r := &Registry{
		config: cfg,
	}

	if err := r.loadDescriptors(); err != nil {
		return nil, fmt.Errorf("failed to load test descriptors: %w", err)
	}

	cfg.Log.Debug("Registry loaded", "len(descriptors)", len(r.descriptors))

	return r, nil
}

func (r *Registry) loadDescriptors() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	configs, err := discovery.FindTestConfigs(r.config.TestPaths)
	if err != nil {
		return err
	}

	var descriptors []*types.TestDescriptor
	for _, path := range configs {
		parsed, err := r.config.Parser.Parse(path)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		descriptors = append(descriptors, parsed...)
	}

	r.descriptors = descriptors
	return nil
}

// GetDescriptors returns all descriptors in campaign order.
func (r *Registry) GetDescriptors() []*types.TestDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.descriptors
}
