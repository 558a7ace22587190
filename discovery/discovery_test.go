package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("tests: []\n"), 0o644))
}

func TestFindTestConfigsInDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "test-psh.yaml"))
	writeFile(t, filepath.Join(dir, "nested", "test-fs.yml"))
	writeFile(t, filepath.Join(dir, "nested", "notes.txt"))
	writeFile(t, filepath.Join(dir, "config.yaml")) // no test prefix

	configs, err := FindTestConfigs([]string{dir})
	require.NoError(t, err)
	require.Len(t, configs, 2)

	// Lexicographic within a directory tree.
	assert.Equal(t, filepath.Join(dir, "nested", "test-fs.yml"), configs[0])
	assert.Equal(t, filepath.Join(dir, "test-psh.yaml"), configs[1])
}

func TestFindTestConfigsConcatenatesInInputOrder(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	writeFile(t, filepath.Join(dirA, "test-z.yaml"))
	writeFile(t, filepath.Join(dirB, "test-a.yaml"))

	configs, err := FindTestConfigs([]string{dirA, dirB})
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.Equal(t, filepath.Join(dirA, "test-z.yaml"), configs[0])
	assert.Equal(t, filepath.Join(dirB, "test-a.yaml"), configs[1])
}

func TestFindTestConfigsSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test-uart.yml")
	writeFile(t, path)

	configs, err := FindTestConfigs([]string{path})
	require.NoError(t, err)
	assert.Equal(t, []string{path}, configs)
}

func TestFindTestConfigsEmptyDirectoryFails(t *testing.T) {
	dir := t.TempDir()

	_, err := FindTestConfigs([]string{dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not contain")
}

func TestFindTestConfigsWrongExtensionFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test-uart.txt")
	writeFile(t, path)

	_, err := FindTestConfigs([]string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".yaml or .yml")
}

func TestFindTestConfigsMissingPathFails(t *testing.T) {
	_, err := FindTestConfigs([]string{"/nonexistent/test-campaign"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither a directory nor a file")
}
