package federated

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltinProfiles(t *testing.T) {
	store, err := NewProfileStore("")
	if err != nil {
		t.Fatalf("NewProfileStore failed: %v", err)
	}

	for _, name := range []string{"research", "web", "code", "social", "news"} {
		p, err := store.Get(name)
		if err != nil {
			t.Fatalf("Get(%q) failed: %v", name, err)
		}
		if len(p.Sources) == 0 {
			t.Fatalf("profile %q has no sources", name)
		}
	}

	if _, err := store.Get("no-such-profile"); err == nil {
		t.Fatal("expected an error for an unknown profile")
	}
}

func TestUserProfilesLayerOverBuiltins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	data := `
research:
  sources:
    - connector: wikipedia
      weight: 2.0
mine:
  extends: web
  add:
    - connector: hackernews
  exclude:
    - wikipedia
  merge_mode: ranked
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("failed to write profiles: %v", err)
	}

	store, err := NewProfileStore(path)
	if err != nil {
		t.Fatalf("NewProfileStore failed: %v", err)
	}

	// The user override replaces the builtin.
	research, err := store.Get("research")
	if err != nil {
		t.Fatalf("Get(research) failed: %v", err)
	}
	if len(research.Sources) != 1 || research.Sources[0].Connector != "wikipedia" {
		t.Fatalf("research sources = %+v", research.Sources)
	}
	if research.Sources[0].Weight != 2.0 {
		t.Fatalf("weight = %v", research.Sources[0].Weight)
	}

	// Inheritance with add and exclude.
	mine, err := store.Get("mine")
	if err != nil {
		t.Fatalf("Get(mine) failed: %v", err)
	}
	if mine.MergeMode != MergeRanked {
		t.Fatalf("merge mode = %q", mine.MergeMode)
	}
	names := map[string]bool{}
	for _, src := range mine.Sources {
		names[src.Connector] = true
	}
	if !names["tavily"] || !names["hackernews"] || names["wikipedia"] {
		t.Fatalf("mine sources = %+v", mine.Sources)
	}
}

func TestProfileCycleDetection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	data := `
a:
  extends: b
b:
  extends: a
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("failed to write profiles: %v", err)
	}

	store, err := NewProfileStore(path)
	if err != nil {
		t.Fatalf("NewProfileStore failed: %v", err)
	}
	if _, err := store.Get("a"); err == nil {
		t.Fatal("expected cycle detection to fail the lookup")
	}
}

func TestProfileStoreMissingFile(t *testing.T) {
	store, err := NewProfileStore(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing profiles file should not fail: %v", err)
	}
	if len(store.Names()) == 0 {
		t.Fatal("expected builtin profiles")
	}
}
