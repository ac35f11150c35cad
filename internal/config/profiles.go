package config

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/ini.v1"
)

//go:embed profiles.ini
var profilesINI []byte

// Profile is one named override of the evolution hyperparameters.
type Profile struct {
	Population    int     `ini:"population"`
	CrossingProb  float64 `ini:"crossing_prob"`
	MutationProb  float64 `ini:"mutation_prob"`
	MutationRange float64 `ini:"mutation_range"`
}

// LoadProfiles parses the embedded profiles and, when userPath is non-empty,
// merges the user's INI on top; a user section with an embedded section's
// name replaces it.
func LoadProfiles(userPath string) (map[string]Profile, error) {
	sources := []any{profilesINI}
	if userPath != "" {
		sources = append(sources, userPath)
	}
	file, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, sources[0], sources[1:]...)
	if err != nil {
		return nil, fmt.Errorf("loading profiles: %w", err)
	}

	profiles := make(map[string]Profile)
	for _, section := range file.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}
		var p Profile
		if err := section.MapTo(&p); err != nil {
			return nil, fmt.Errorf("mapping profile [%s]: %w", section.Name(), err)
		}
		profiles[section.Name()] = p
	}
	return profiles, nil
}

// ApplyProfile overrides the config's evolution section with the named
// profile. Zero-valued profile fields leave the configured value alone.
func (c *Config) ApplyProfile(name string, profiles map[string]Profile) error {
	p, ok := profiles[name]
	if !ok {
		names := make([]string, 0, len(profiles))
		for n := range profiles {
			names = append(names, n)
		}
		sort.Strings(names)
		return fmt.Errorf("unknown profile %q (available: %s)", name, strings.Join(names, ", "))
	}
	if p.Population > 0 {
		c.Evolution.Population = p.Population
	}
	if p.CrossingProb > 0 {
		c.Evolution.CrossingProb = p.CrossingProb
	}
	if p.MutationProb > 0 {
		c.Evolution.MutationProb = p.MutationProb
	}
	if p.MutationRange > 0 {
		c.Evolution.MutationRange = p.MutationRange
	}
	return c.Validate()
}
