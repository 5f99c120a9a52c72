package stages

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const allSentinel = "all"

// depValue is either an explicit list of stage ids or the scalar "all".
type depValue struct {
	All  bool
	List []string
}

func (d *depValue) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if strings.TrimSpace(node.Value) != allSentinel {
			return fmt.Errorf("line %d: dependency must be a list or %q", node.Line, allSentinel)
		}
		d.All = true
		return nil
	case yaml.SequenceNode:
		return node.Decode(&d.List)
	default:
		return fmt.Errorf("line %d: dependency must be a list or %q", node.Line, allSentinel)
	}
}

type yamlDependencies struct {
	Version      int                 `yaml:"version"`
	Dependencies map[string]depValue `yaml:"dependencies"`
}

// DependencyMap says which earlier stages' summaries a stage is given.
type DependencyMap struct {
	entries map[string]depValue
}

func ParseDependencies(data []byte) (*DependencyMap, error) {
	var spec yamlDependencies
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse dependencies: %w", err)
	}
	if len(spec.Dependencies) == 0 {
		return nil, errors.New("no dependencies defined")
	}
	entries := make(map[string]depValue, len(spec.Dependencies))
	for id, v := range spec.Dependencies {
		list := make([]string, 0, len(v.List))
		for _, dep := range v.List {
			if dep = strings.TrimSpace(dep); dep != "" {
				list = append(list, dep)
			}
		}
		entries[strings.TrimSpace(id)] = depValue{All: v.All, List: list}
	}
	return &DependencyMap{entries: entries}, nil
}

// For returns the dependency list for id, or all=true for the "all" sentinel.
// ok is false when id has no entry.
func (m *DependencyMap) For(id string) (deps []string, all bool, ok bool) {
	v, ok := m.entries[strings.TrimSpace(id)]
	if !ok {
		return nil, false, false
	}
	if v.All {
		return nil, true, true
	}
	return append([]string(nil), v.List...), false, true
}

// Validate checks the map against the registry: every stage has an entry, no
// entry names an unknown stage, and a stage only depends on earlier stages.
func (m *DependencyMap) Validate(reg *Registry) error {
	if m == nil || reg == nil {
		return errors.New("dependency map and registry are required")
	}
	var problems []string
	for _, d := range reg.Ordered() {
		if _, ok := m.entries[d.ID]; !ok {
			problems = append(problems, fmt.Sprintf("stage %s has no dependency entry", d.ID))
		}
	}
	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		def, ok := reg.Get(id)
		if !ok {
			problems = append(problems, fmt.Sprintf("dependency entry for unknown stage %s", id))
			continue
		}
		seen := map[string]bool{}
		for _, dep := range m.entries[id].List {
			depDef, ok := reg.Get(dep)
			switch {
			case !ok:
				problems = append(problems, fmt.Sprintf("stage %s depends on unknown stage %s", id, dep))
			case dep == id:
				problems = append(problems, fmt.Sprintf("stage %s depends on itself", id))
			case depDef.Ordinal > def.Ordinal:
				problems = append(problems, fmt.Sprintf("stage %s depends on later stage %s", id, dep))
			case seen[dep]:
				problems = append(problems, fmt.Sprintf("stage %s lists %s twice", id, dep))
			}
			seen[dep] = true
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
