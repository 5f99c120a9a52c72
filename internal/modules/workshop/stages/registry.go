package stages

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	LayoutList    = "list"
	LayoutGrouped = "grouped"
	LayoutGrid    = "grid"
)

// Definition is the static description of one workflow stage.
type Definition struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Ordinal      int    `yaml:"ordinal"`
	CanvasLayout string `yaml:"canvas_layout"`
	// RawSource names an earlier stage whose raw canvas is fed to this one
	// in addition to its summary.
	RawSource string `yaml:"raw_source"`
}

type yamlRegistry struct {
	Workflow string       `yaml:"workflow"`
	Version  int          `yaml:"version"`
	Stages   []Definition `yaml:"stages"`
}

// Registry is the immutable, ordinal-ordered set of stage definitions.
type Registry struct {
	ordered []Definition
	byID    map[string]int
}

func ParseRegistry(data []byte) (*Registry, error) {
	var spec yamlRegistry
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse stages: %w", err)
	}
	return NewRegistry(spec.Stages)
}

func NewRegistry(defs []Definition) (*Registry, error) {
	if len(defs) == 0 {
		return nil, errors.New("no stages defined")
	}
	ordered := make([]Definition, 0, len(defs))
	byID := make(map[string]int, len(defs))
	ordinals := make(map[int]string, len(defs))
	for _, d := range defs {
		d.ID = strings.TrimSpace(d.ID)
		d.Name = strings.TrimSpace(d.Name)
		d.RawSource = strings.TrimSpace(d.RawSource)
		if d.ID == "" {
			return nil, errors.New("stage id is required")
		}
		if _, dup := byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate stage id: %s", d.ID)
		}
		if d.Ordinal <= 0 {
			return nil, fmt.Errorf("stage %s: ordinal must be positive", d.ID)
		}
		if other, dup := ordinals[d.Ordinal]; dup {
			return nil, fmt.Errorf("stage %s: ordinal %d already used by %s", d.ID, d.Ordinal, other)
		}
		if d.Name == "" {
			d.Name = d.ID
		}
		switch d.CanvasLayout {
		case "":
			d.CanvasLayout = LayoutList
		case LayoutList, LayoutGrouped, LayoutGrid:
		default:
			return nil, fmt.Errorf("stage %s: unknown canvas layout %q", d.ID, d.CanvasLayout)
		}
		byID[d.ID] = -1
		ordinals[d.Ordinal] = d.ID
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Ordinal < ordered[j].Ordinal })
	for i, d := range ordered {
		byID[d.ID] = i
	}
	for _, d := range ordered {
		if d.RawSource == "" {
			continue
		}
		src, ok := byID[d.RawSource]
		if !ok {
			return nil, fmt.Errorf("stage %s: raw_source %s is not a stage", d.ID, d.RawSource)
		}
		if ordered[src].Ordinal >= d.Ordinal {
			return nil, fmt.Errorf("stage %s: raw_source %s must come earlier", d.ID, d.RawSource)
		}
	}
	return &Registry{ordered: ordered, byID: byID}, nil
}

func (r *Registry) Get(id string) (Definition, bool) {
	i, ok := r.byID[strings.TrimSpace(id)]
	if !ok {
		return Definition{}, false
	}
	return r.ordered[i], true
}

// Ordered returns a copy of every definition in workflow order.
func (r *Registry) Ordered() []Definition {
	return append([]Definition(nil), r.ordered...)
}

func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.ordered))
	for _, d := range r.ordered {
		out = append(out, d.ID)
	}
	return out
}

func (r *Registry) Len() int { return len(r.ordered) }

// Downstream returns id and every stage after it, in workflow order.
func (r *Registry) Downstream(id string) ([]string, bool) {
	i, ok := r.byID[strings.TrimSpace(id)]
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(r.ordered)-i)
	for _, d := range r.ordered[i:] {
		out = append(out, d.ID)
	}
	return out, true
}

// After returns the stages strictly after id.
func (r *Registry) After(id string) ([]string, bool) {
	down, ok := r.Downstream(id)
	if !ok {
		return nil, false
	}
	return down[1:], true
}

func (r *Registry) Next(id string) (Definition, bool) {
	i, ok := r.byID[strings.TrimSpace(id)]
	if !ok || i+1 >= len(r.ordered) {
		return Definition{}, false
	}
	return r.ordered[i+1], true
}

func (r *Registry) First() Definition { return r.ordered[0] }

func (r *Registry) Terminal() Definition { return r.ordered[len(r.ordered)-1] }
