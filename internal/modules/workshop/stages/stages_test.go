package stages

import (
	"strings"
	"testing"
)

func TestDefaultRegistryOrderAndLookups(t *testing.T) {
	reg, deps, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	want := []string{
		"challenge", "stakeholder-mapping", "user-research", "sense-making", "persona",
		"journey-mapping", "reframe", "ideation", "concept", "synthesis",
	}
	got := reg.IDs()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("IDs: want=%v got=%v", want, got)
	}
	if reg.First().ID != "challenge" || reg.Terminal().ID != "synthesis" {
		t.Fatalf("First/Terminal: got=%s/%s", reg.First().ID, reg.Terminal().ID)
	}
	down, ok := reg.Downstream("sense-making")
	if !ok || len(down) != 7 || down[0] != "sense-making" {
		t.Fatalf("Downstream: ok=%v got=%v", ok, down)
	}
	after, _ := reg.After("sense-making")
	if len(after) != 6 || after[0] != "persona" {
		t.Fatalf("After: got=%v", after)
	}
	if next, ok := reg.Next("ideation"); !ok || next.ID != "concept" {
		t.Fatalf("Next(ideation): ok=%v got=%s", ok, next.ID)
	}
	if _, ok := reg.Next("synthesis"); ok {
		t.Fatalf("Next(synthesis): want none")
	}
	if def, _ := reg.Get("sense-making"); def.RawSource != "user-research" {
		t.Fatalf("sense-making raw source: got=%q", def.RawSource)
	}
	if def, _ := reg.Get("concept"); def.RawSource != "ideation" {
		t.Fatalf("concept raw source: got=%q", def.RawSource)
	}

	first, all, ok := deps.For("challenge")
	if !ok || all || len(first) != 0 {
		t.Fatalf("For(challenge): deps=%v all=%v ok=%v", first, all, ok)
	}
	_, all, ok = deps.For("synthesis")
	if !ok || !all {
		t.Fatalf("For(synthesis): want all, all=%v ok=%v", all, ok)
	}
	if _, _, ok := deps.For("nope"); ok {
		t.Fatalf("For(nope): want ok=false")
	}
}

func TestDependencyMapValidate(t *testing.T) {
	reg, err := NewRegistry([]Definition{
		{ID: "a", Ordinal: 1},
		{ID: "b", Ordinal: 2},
		{ID: "c", Ordinal: 3},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"valid", "dependencies:\n  a: []\n  b: [a]\n  c: all\n", ""},
		{"missing entry", "dependencies:\n  a: []\n  b: [a]\n", "stage c has no dependency entry"},
		{"unknown stage", "dependencies:\n  a: []\n  b: [z]\n  c: all\n", "unknown stage z"},
		{"self", "dependencies:\n  a: []\n  b: [b]\n  c: all\n", "depends on itself"},
		{"forward", "dependencies:\n  a: [c]\n  b: []\n  c: all\n", "depends on later stage c"},
		{"unknown entry", "dependencies:\n  a: []\n  b: []\n  c: all\n  d: []\n", "unknown stage d"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := ParseDependencies([]byte(tc.yaml))
			if err != nil {
				t.Fatalf("ParseDependencies: %v", err)
			}
			err = m.Validate(reg)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: unexpected err %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate: want error containing %q got=%v", tc.wantErr, err)
			}
		})
	}
}

func TestParseDependenciesRejectsOtherScalars(t *testing.T) {
	if _, err := ParseDependencies([]byte("dependencies:\n  a: everything\n")); err == nil {
		t.Fatalf("want error for scalar other than all")
	}
}

func TestNewRegistryRejectsBadDefinitions(t *testing.T) {
	cases := map[string][]Definition{
		"duplicate id":      {{ID: "a", Ordinal: 1}, {ID: "a", Ordinal: 2}},
		"duplicate ordinal": {{ID: "a", Ordinal: 1}, {ID: "b", Ordinal: 1}},
		"bad layout":        {{ID: "a", Ordinal: 1, CanvasLayout: "spiral"}},
		"late raw source":   {{ID: "a", Ordinal: 1, RawSource: "b"}, {ID: "b", Ordinal: 2}},
	}
	for name, defs := range cases {
		if _, err := NewRegistry(defs); err == nil {
			t.Fatalf("%s: want error", name)
		}
	}
}
