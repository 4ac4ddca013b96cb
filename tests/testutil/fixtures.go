package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/systmms/secretsplit/internal/config"
	"gopkg.in/yaml.v3"
)

// TestFixture provides convenient access to test fixtures.
//
// This helper loads pre-defined test data from the tests/fixtures/ directory.
// It caches loaded fixtures to avoid re-reading files.
//
// Example usage:
//
//	fixtures := NewTestFixture(t)
//	def := fixtures.LoadConfig("memory.yaml")
//	scenario := fixtures.LoadScenario("oneof")
type TestFixture struct {
	baseDir string
	cache   map[string][]byte
	t       *testing.T
}

// NewTestFixture creates a new TestFixture helper.
//
// The base directory is automatically determined from the project root.
func NewTestFixture(t *testing.T) *TestFixture {
	t.Helper()

	// Find project root by looking for go.mod
	baseDir := findProjectRoot(t)
	fixturesDir := filepath.Join(baseDir, "tests", "fixtures")

	return &TestFixture{
		baseDir: fixturesDir,
		cache:   make(map[string][]byte),
		t:       t,
	}
}

// LoadConfig loads a configuration fixture by name.
//
// The name should be relative to tests/fixtures/configs/
// Example: LoadConfig("simple.yaml")
//
// Returns a parsed config.Definition or fails the test.
func (f *TestFixture) LoadConfig(name string) *config.Definition {
	f.t.Helper()

	path := filepath.Join(f.baseDir, "configs", name)
	data, err := f.loadFile(path)
	if err != nil {
		f.t.Fatalf("Failed to load config fixture %s: %v", name, err)
	}

	var def config.Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		f.t.Fatalf("Failed to parse config fixture %s: %v", name, err)
	}

	return &def
}

// LoadJSON loads a JSON fixture and returns it as a map.
//
// The name should be relative to tests/fixtures/
// Example: LoadJSON("scenarios/simple/spec.json")
//
// Returns a map[string]any or fails the test.
func (f *TestFixture) LoadJSON(name string) map[string]any {
	f.t.Helper()

	path := filepath.Join(f.baseDir, name)
	data, err := f.loadFile(path)
	if err != nil {
		f.t.Fatalf("Failed to load JSON fixture %s: %v", name, err)
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		f.t.Fatalf("Failed to parse JSON fixture %s: %v", name, err)
	}

	return result
}

// LoadFile loads a raw file fixture.
//
// The name should be relative to tests/fixtures/
// Returns the file contents as bytes or fails the test.
func (f *TestFixture) LoadFile(name string) []byte {
	f.t.Helper()

	path := filepath.Join(f.baseDir, name)
	data, err := f.loadFile(path)
	if err != nil {
		f.t.Fatalf("Failed to load file fixture %s: %v", name, err)
	}

	return data
}

// ConfigPath returns the absolute path to a config fixture.
//
// Useful when you need the path itself rather than loading the config.
// Example: ConfigPath("memory.yaml")
func (f *TestFixture) ConfigPath(name string) string {
	f.t.Helper()

	return filepath.Join(f.baseDir, "configs", name)
}

// Scenario is a connector schema with a configuration in both forms and the
// masked output expected for either of them.
type Scenario struct {
	Name     string
	Spec     map[string]any
	Full     map[string]any
	Partial  map[string]any
	Expected map[string]any
}

// ScenarioNames lists the directories under tests/fixtures/scenarios/.
func (f *TestFixture) ScenarioNames() []string {
	f.t.Helper()

	entries, err := os.ReadDir(filepath.Join(f.baseDir, "scenarios"))
	if err != nil {
		f.t.Fatalf("Failed to list scenarios: %v", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// LoadScenario loads tests/fixtures/scenarios/<name>/{spec,full_config,
// partial_config,expected}.json.
func (f *TestFixture) LoadScenario(name string) Scenario {
	f.t.Helper()

	dir := filepath.Join("scenarios", name)
	return Scenario{
		Name:     name,
		Spec:     f.LoadJSON(filepath.Join(dir, "spec.json")),
		Full:     f.LoadJSON(filepath.Join(dir, "full_config.json")),
		Partial:  f.LoadJSON(filepath.Join(dir, "partial_config.json")),
		Expected: f.LoadJSON(filepath.Join(dir, "expected.json")),
	}
}

// loadFile loads a file with caching.
func (f *TestFixture) loadFile(path string) ([]byte, error) {
	// Check cache first
	if data, ok := f.cache[path]; ok {
		return data, nil
	}

	// Load from disk
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Cache for future use
	f.cache[path] = data

	return data, nil
}

// findProjectRoot finds the project root directory by looking for go.mod.
//
// This allows fixtures to be loaded regardless of where tests are executed from.
func findProjectRoot(t *testing.T) string {
	t.Helper()

	// Start from current directory and walk up
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}

	for {
		// Check if go.mod exists
		goModPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(goModPath); err == nil {
			return dir
		}

		// Move up one directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root without finding go.mod
			t.Fatal("Could not find project root (go.mod not found)")
		}
		dir = parent
	}
}
