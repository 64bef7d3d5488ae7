// Package profile holds the per-site extraction rules for job-posting pages.
//
// A Registry is an ordered table of Profile records plus one generic fallback.
// Lookup matches the URL host against each MatchSuffix by containment; the
// first match wins. The table is read-only after construction and safe for
// concurrent use.
package profile

import (
	"net/url"
	"slices"
	"strings"
)

// Profile is the extraction rule set for one site family.
type Profile struct {
	// MatchSuffix is matched against the lowercased URL host by containment.
	MatchSuffix string `yaml:"match_suffix" json:"match_suffix"`
	// Selectors are candidate content containers in priority order.
	Selectors []string `yaml:"selectors" json:"selectors"`
	// WaitSelector is awaited (best effort) by the rendered tier.
	WaitSelector string `yaml:"wait_selector,omitempty" json:"wait_selector,omitempty"`
	// RemoveSelectors are site-specific noise removed after GlobalRemove.
	RemoveSelectors []string `yaml:"remove_selectors,omitempty" json:"remove_selectors,omitempty"`
}

// IsFallback reports whether p is the generic profile.
func (p Profile) IsFallback() bool { return p.MatchSuffix == "" }

func (p Profile) clone() Profile {
	p.Selectors = slices.Clone(p.Selectors)
	p.RemoveSelectors = slices.Clone(p.RemoveSelectors)
	return p
}

// GlobalRemove lists elements stripped from every page before any selector
// runs: embedded code, generic chrome, and cross-sell blocks.
var GlobalRemove = []string{
	"script", "style", "noscript", "iframe", "svg",
	"nav", "footer", "header", "aside",
	`[class*="sidebar"]`, `[id*="sidebar"]`,
	`[class*="breadcrumb"]`,
	`[class*="similar"]`,
	`[class*="related"]`,
	`[class*="recommended"]`,
}

// Registry is an ordered profile table with a fallback.
type Registry struct {
	entries  []Profile
	fallback Profile
}

// New builds a Registry. Entry order is match priority. A fallback with no
// selectors is replaced by the built-in Fallback.
func New(entries []Profile, fallback Profile) *Registry {
	r := &Registry{fallback: fallback.clone()}
	r.fallback.MatchSuffix = ""
	if len(r.fallback.Selectors) == 0 {
		r.fallback = Fallback.clone()
	}
	for _, e := range entries {
		e = e.clone()
		e.MatchSuffix = strings.ToLower(strings.TrimSpace(e.MatchSuffix))
		r.entries = append(r.entries, e)
	}
	return r
}

// Default returns the built-in registry.
func Default() *Registry {
	return New(Builtin, Fallback)
}

// Lookup returns the profile for rawURL. Unparseable URLs and unknown hosts
// get the fallback.
func (r *Registry) Lookup(rawURL string) Profile {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return r.fallback.clone()
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return r.fallback.clone()
	}
	for _, e := range r.entries {
		if e.MatchSuffix != "" && strings.Contains(host, e.MatchSuffix) {
			return e.clone()
		}
	}
	return r.fallback.clone()
}

// Profiles returns a copy of the site table, fallback excluded.
func (r *Registry) Profiles() []Profile {
	out := make([]Profile, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.clone()
	}
	return out
}

// Fallback returns a copy of the generic profile.
func (r *Registry) Fallback() Profile { return r.fallback.clone() }
