package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLookup_KnownHost(t *testing.T) {
	// WHAT: A Greenhouse board URL resolves to the Greenhouse profile.
	// WHY: Host containment is the only matching rule.
	r := Default()
	p := r.Lookup("https://boards.greenhouse.io/acme/jobs/123")
	if p.MatchSuffix != "greenhouse.io" {
		t.Fatalf("match: got %q", p.MatchSuffix)
	}
	if p.IsFallback() {
		t.Fatal("should not be fallback")
	}
}

func TestLookup_CaseInsensitiveHost(t *testing.T) {
	// WHAT: Uppercase hosts still match.
	// WHY: url.Hostname preserves case; matching must not.
	p := Default().Lookup("https://JOBS.LEVER.CO/acme/1")
	if p.MatchSuffix != "lever.co" {
		t.Fatalf("match: got %q", p.MatchSuffix)
	}
}

func TestLookup_UnknownHostFallsBack(t *testing.T) {
	// WHAT: Unknown hosts get the generic profile.
	// WHY: Every URL must resolve to some selector chain.
	p := Default().Lookup("https://careers.example.com/job/42")
	if !p.IsFallback() {
		t.Fatalf("expected fallback, got %q", p.MatchSuffix)
	}
	if len(p.Selectors) == 0 {
		t.Fatal("fallback has no selectors")
	}
	if p.Selectors[len(p.Selectors)-1] != "body" {
		t.Errorf("last resort: got %q", p.Selectors[len(p.Selectors)-1])
	}
}

func TestLookup_Unparseable(t *testing.T) {
	// WHAT: Garbage input returns the fallback instead of panicking.
	// WHY: Lookup is called before any network validation.
	for _, in := range []string{"", "::::", "not a url", "http://"} {
		if p := Default().Lookup(in); !p.IsFallback() {
			t.Errorf("%q: expected fallback, got %q", in, p.MatchSuffix)
		}
	}
}

func TestLookup_FirstMatchWins(t *testing.T) {
	// WHAT: With two matching entries the earlier one is returned.
	// WHY: Table order is priority order.
	r := New([]Profile{
		{MatchSuffix: "example.com", Selectors: []string{"#first"}},
		{MatchSuffix: "jobs.example.com", Selectors: []string{"#second"}},
	}, Profile{})
	p := r.Lookup("https://jobs.example.com/1")
	if p.Selectors[0] != "#first" {
		t.Fatalf("selector: got %q", p.Selectors[0])
	}
}

func TestLookup_ReturnsCopy(t *testing.T) {
	// WHAT: Mutating a returned profile does not affect the registry.
	// WHY: The table is shared by concurrent extractions.
	r := Default()
	p := r.Lookup("https://boards.greenhouse.io/x")
	p.Selectors[0] = "mutated"
	if again := r.Lookup("https://boards.greenhouse.io/x"); again.Selectors[0] == "mutated" {
		t.Fatal("registry table was mutated through Lookup result")
	}
}

func TestNew_EmptyFallbackUsesBuiltin(t *testing.T) {
	r := New(nil, Profile{})
	if got := len(r.Fallback().Selectors); got != len(Fallback.Selectors) {
		t.Fatalf("fallback selectors: got %d, want %d", got, len(Fallback.Selectors))
	}
}

func TestBuiltin_SelectorsCompile(t *testing.T) {
	// WHAT: Every built-in selector parses.
	// WHY: A typo would silently never match in goquery.
	for _, p := range append(Builtin, Fallback) {
		if err := checkSelectors(p); err != nil {
			t.Errorf("%q: %v", p.MatchSuffix, err)
		}
	}
	for _, s := range GlobalRemove {
		if err := checkSelectors(Profile{Selectors: []string{s}}); err != nil {
			t.Errorf("global %q: %v", s, err)
		}
	}
}

func TestParse_Table(t *testing.T) {
	data := []byte(`
profiles:
  - match_suffix: Jobs.Acme.com
    selectors: ["#desc", ".body"]
    wait_selector: "#desc"
    remove_selectors: [".apply"]
fallback:
  selectors: ["article"]
`)
	r, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	p := r.Lookup("https://jobs.acme.com/1")
	if p.MatchSuffix != "jobs.acme.com" || p.WaitSelector != "#desc" {
		t.Fatalf("profile: %+v", p)
	}
	if fb := r.Lookup("https://other.org"); fb.Selectors[0] != "article" {
		t.Fatalf("fallback: %+v", fb)
	}
}

func TestParse_Errors(t *testing.T) {
	// WHAT: Invalid tables are rejected at load time.
	// WHY: Bad selectors should fail startup, not every extraction.
	cases := map[string]string{
		"no suffix":    "profiles:\n  - selectors: [\"#a\"]\n",
		"no selectors": "profiles:\n  - match_suffix: a.com\n",
		"bad selector": "profiles:\n  - match_suffix: a.com\n    selectors: [\"div[\"]\n",
		"bad yaml":     "profiles: [",
	}
	for name, in := range cases {
		if _, err := Parse([]byte(in)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte("profiles:\n  - match_suffix: a.com\n    selectors: [\"main\"]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	r, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(r.Profiles()) != 1 {
		t.Fatalf("profiles: got %d", len(r.Profiles()))
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil || !strings.Contains(err.Error(), "profile: read") {
		t.Fatalf("missing file: got %v", err)
	}
}
