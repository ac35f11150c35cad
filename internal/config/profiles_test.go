package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadEmbeddedProfiles(t *testing.T) {
	profiles, err := LoadProfiles("")
	if err != nil {
		t.Fatalf("load profiles: %v", err)
	}
	for _, name := range []string{"balanced", "explorer", "refiner"} {
		if _, ok := profiles[name]; !ok {
			t.Fatalf("missing embedded profile %q", name)
		}
	}
	if p := profiles["explorer"]; p.MutationProb != 0.5 || p.MutationRange != 0.6 {
		t.Fatalf("explorer profile: %+v", p)
	}
	if p := profiles["refiner"]; p.Population != 300 {
		t.Fatalf("refiner profile: %+v", p)
	}
}

func TestLoadProfilesUserOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.ini")
	user := "[explorer]\npopulation = 100\ncrossing_prob = 0.7\nmutation_prob = 0.4\nmutation_range = 0.5\n\n[custom]\npopulation = 64\ncrossing_prob = 0.5\nmutation_prob = 0.2\nmutation_range = 0.2\n"
	if err := os.WriteFile(path, []byte(user), 0o644); err != nil {
		t.Fatalf("write user profiles: %v", err)
	}

	profiles, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("load profiles: %v", err)
	}
	if p := profiles["explorer"]; p.Population != 100 {
		t.Fatalf("user section did not replace embedded: %+v", p)
	}
	if _, ok := profiles["custom"]; !ok {
		t.Fatal("user-defined profile missing")
	}
	if _, ok := profiles["balanced"]; !ok {
		t.Fatal("embedded profile lost in overlay")
	}
}

func TestApplyProfile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	profiles, err := LoadProfiles("")
	if err != nil {
		t.Fatalf("load profiles: %v", err)
	}
	if err := cfg.ApplyProfile("refiner", profiles); err != nil {
		t.Fatalf("apply profile: %v", err)
	}
	if cfg.Evolution.Population != 300 || cfg.Evolution.MutationRange != 0.1 {
		t.Fatalf("profile not applied: %+v", cfg.Evolution)
	}
}

func TestApplyUnknownProfile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	profiles, err := LoadProfiles("")
	if err != nil {
		t.Fatalf("load profiles: %v", err)
	}
	err = cfg.ApplyProfile("nope", profiles)
	if err == nil {
		t.Fatal("unknown profile accepted")
	}
	if !strings.Contains(err.Error(), "balanced") {
		t.Fatalf("error does not list available profiles: %v", err)
	}
}
