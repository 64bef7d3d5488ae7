package profile

import (
	"fmt"
	"os"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"
)

// fileTable is the YAML shape of an externalised profile table.
//
//	profiles:
//	  - match_suffix: greenhouse.io
//	    selectors: [".job__description", "#content"]
//	    remove_selectors: ["#application"]
//	fallback:
//	  selectors: ["article", "main", "body"]
type fileTable struct {
	Profiles []Profile `yaml:"profiles"`
	Fallback *Profile  `yaml:"fallback"`
}

// LoadFile reads a YAML profile table. Without a fallback record the
// built-in Fallback is used.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML profile table and checks every selector compiles.
func Parse(data []byte) (*Registry, error) {
	var t fileTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("profile: decode: %w", err)
	}
	for i, p := range t.Profiles {
		if p.MatchSuffix == "" {
			return nil, fmt.Errorf("profile: entry %d: match_suffix is required", i)
		}
		if len(p.Selectors) == 0 {
			return nil, fmt.Errorf("profile: %s: at least one selector is required", p.MatchSuffix)
		}
		if err := checkSelectors(p); err != nil {
			return nil, fmt.Errorf("profile: %s: %w", p.MatchSuffix, err)
		}
	}
	fallback := Fallback
	if t.Fallback != nil {
		if err := checkSelectors(*t.Fallback); err != nil {
			return nil, fmt.Errorf("profile: fallback: %w", err)
		}
		fallback = *t.Fallback
	}
	return New(t.Profiles, fallback), nil
}

func checkSelectors(p Profile) error {
	all := append(append([]string{}, p.Selectors...), p.RemoveSelectors...)
	if p.WaitSelector != "" {
		all = append(all, p.WaitSelector)
	}
	for _, s := range all {
		if _, err := cascadia.Compile(s); err != nil {
			return fmt.Errorf("selector %q: %w", s, err)
		}
	}
	return nil
}
