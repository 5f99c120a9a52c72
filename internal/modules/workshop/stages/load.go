package stages

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"sync"
)

//go:embed stages.yaml dependencies.yaml
var specFS embed.FS

var (
	defaultOnce sync.Once
	defaultReg  *Registry
	defaultDeps *DependencyMap
	defaultErr  error
)

// Default returns the embedded registry and dependency map, parsed and
// validated once per process.
func Default() (*Registry, *DependencyMap, error) {
	defaultOnce.Do(func() {
		defaultReg, defaultDeps, defaultErr = Load("")
	})
	return defaultReg, defaultDeps, defaultErr
}

// MustDefault is Default for tests and init paths where the embedded files are known good.
func MustDefault() (*Registry, *DependencyMap) {
	reg, deps, err := Default()
	if err != nil {
		panic(err)
	}
	return reg, deps
}

// Load parses the stage definitions from stagesPath (embedded copy when empty)
// and the embedded dependency map, then validates one against the other.
func Load(stagesPath string) (*Registry, *DependencyMap, error) {
	stagesRaw, err := readSpec(stagesPath, "stages.yaml")
	if err != nil {
		return nil, nil, err
	}
	reg, err := ParseRegistry(stagesRaw)
	if err != nil {
		return nil, nil, err
	}
	depsRaw, err := specFS.ReadFile("dependencies.yaml")
	if err != nil {
		return nil, nil, err
	}
	deps, err := ParseDependencies(depsRaw)
	if err != nil {
		return nil, nil, err
	}
	if err := deps.Validate(reg); err != nil {
		return nil, nil, fmt.Errorf("invalid stage dependencies: %w", err)
	}
	return reg, deps, nil
}

func readSpec(path, embedded string) ([]byte, error) {
	if path = strings.TrimSpace(path); path != "" {
		return os.ReadFile(path)
	}
	return specFS.ReadFile(embedded)
}
