// Package discovery locates test configuration files for a campaign.
package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const configPrefix = "test"

// FindTestConfigs resolves each input path to test configuration files.
//
// A directory is scanned recursively for files named test*.yaml or test*.yml;
// matches within one directory are sorted lexicographically so campaigns are
// deterministic regardless of filesystem traversal order. A file must itself
// carry a .yaml or .yml extension. Results are concatenated in input order.
func FindTestConfigs(paths []string) ([]string, error) {
	var configs []string

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("test configuration %s is neither a directory nor a file", path)
		}

		if info.IsDir() {
			found, err := findInDir(path)
			if err != nil {
				return nil, err
			}
			if len(found) == 0 {
				return nil, fmt.Errorf("%s does not contain a yaml test configuration", path)
			}
			configs = append(configs, found...)
			continue
		}

		if !hasYamlExtension(path) {
			return nil, fmt.Errorf("test configuration %s must have a .yaml or .yml extension", path)
		}
		configs = append(configs, path)
	}

	return configs, nil
}

func findInDir(dir string) ([]string, error) {
	var found []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, configPrefix) && hasYamlExtension(name) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s for test configurations: %w", dir, err)
	}

	sort.Strings(found)
	return found, nil
}

func hasYamlExtension(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}
