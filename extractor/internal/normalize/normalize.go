// Package normalize turns raw text pulled out of a job-posting DOM into
// consistently formatted plain text.
//
// Normalize applies ten steps in a fixed order. Later steps depend on the
// output of earlier ones (header spacing assumes the footer is already
// gone), so the order is part of the contract:
//
//  1. strip leaked script and structured-data remnants
//  2. strip boilerplate phrases and UI chrome
//  3. strip residual HTML tags
//  4. normalise line endings and whitespace, cap blank runs at two
//  5. truncate the trailing metadata footer
//  6. drop immediately repeated lines
//  7. skip leading metadata up to the first bold token or header
//  8. classify headers and space them
//  9. separate compensation paragraphs
//  10. final blank-run cap and trim
package normalize

import (
	"html"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// maxUnwind bounds the structured-data and boilerplate loops.
const maxUnwind = 16

// phraseGap joins the words of a boilerplate phrase. It matches the runs
// step 4 later collapses to one space, so a phrase split by a removal in
// between is still recognised.
const phraseGap = `[ \t\f\v\x{00a0}\x{2007}\x{202f}]+`

var (
	crlf          = strings.NewReplacer("\r\n", "\n", "\r", "\n")
	intraLineWS   = regexp.MustCompile(`[ \t\f\v\x{00a0}\x{2007}\x{202f}]+`)
	fiveNewlines  = regexp.MustCompile(`\n{5,}`)
	fourNewlines  = regexp.MustCompile(`\n{4,}`)
	headingMarkup = strings.NewReplacer("**", "", "__", "")
)

// Normalizer applies one Rules set. It is safe for concurrent use.
type Normalizer struct {
	rules   Rules
	phrases *regexp.Regexp
	policy  *bluemonday.Policy
}

// New compiles r into a Normalizer.
func New(r Rules) *Normalizer {
	n := &Normalizer{rules: r, policy: bluemonday.StrictPolicy()}
	if len(r.BoilerplatePhrases) > 0 {
		phrases := slices.Clone(r.BoilerplatePhrases)
		// Longest first so "apply for this job" wins over "apply".
		slices.SortFunc(phrases, func(a, b string) int { return len(b) - len(a) })
		quoted := make([]string, len(phrases))
		for i, p := range phrases {
			words := strings.Fields(p)
			for j, w := range words {
				words[j] = regexp.QuoteMeta(w)
			}
			quoted[i] = strings.Join(words, phraseGap)
		}
		// Whole words only: "save job" must not eat the front of "jobsite".
		n.phrases = regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
	}
	return n
}

// Default uses DefaultRules.
var Default = New(DefaultRules())

// Normalize runs Default over raw.
func Normalize(raw string) string { return Default.Normalize(raw) }

// Normalize runs the ten steps over raw.
func (n *Normalizer) Normalize(raw string) string {
	s := n.stripScripts(raw)
	s = n.stripBoilerplate(s)
	s = n.stripTags(s)
	s = collapseWhitespace(s)
	s = n.truncateFooter(s)
	s = dedupeLines(s)
	s = n.skipLeadingMetadata(s)
	s = n.spaceHeaders(s)
	s = n.spaceCompensation(s)
	return finish(s)
}

// step 1
func (n *Normalizer) stripScripts(s string) string {
	if n.rules.StructuredData != nil {
		for i := 0; i < maxUnwind; i++ {
			next := n.rules.StructuredData.ReplaceAllString(s, "")
			if next == s {
				break
			}
			s = next
		}
	}
	for _, re := range n.rules.ScriptPatterns {
		s = re.ReplaceAllString(s, "")
	}
	return s
}

// step 2: repeated until stable, since a removal can join its neighbours
// into a new phrase ("apply apply nownow").
func (n *Normalizer) stripBoilerplate(s string) string {
	for i := 0; i < maxUnwind; i++ {
		next := s
		if n.phrases != nil {
			next = n.phrases.ReplaceAllString(next, "")
		}
		for _, re := range n.rules.ChromePatterns {
			next = re.ReplaceAllString(next, "")
		}
		if next == s {
			break
		}
		s = next
	}
	return s
}

// step 3. Dropping tags can expose a phrase step 2 could not see
// ("apply <b>now</b>"), so the boilerplate pass runs again on the result.
func (n *Normalizer) stripTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	return n.stripBoilerplate(html.UnescapeString(n.policy.Sanitize(s)))
}

// step 4
func collapseWhitespace(s string) string {
	s = crlf.Replace(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff', '\u00ad':
			return -1
		}
		return r
	}, s)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(intraLineWS.ReplaceAllString(l, " "))
	}
	return fiveNewlines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n\n")
}

// step 5: scan back from the end through the short trailing block and cut
// at the earliest footer marker found there.
func (n *Normalizer) truncateFooter(s string) string {
	lines := strings.Split(s, "\n")
	cut, seen := -1, 0
	for i := len(lines) - 1; i >= 0; i-- {
		l := lines[i]
		if l == "" {
			continue
		}
		if n.isFooterMarker(l) {
			// The window restarts at every marker so a second pass, which
			// starts at this cut, sees exactly what this one sees.
			cut, seen = i, 0
			continue
		}
		if utf8.RuneCountInString(l) > n.rules.FooterLineMax {
			break
		}
		seen++
		if n.rules.FooterWindow > 0 && seen >= n.rules.FooterWindow {
			break
		}
	}
	if cut < 0 {
		return s
	}
	return strings.Join(lines[:cut], "\n")
}

func (n *Normalizer) isFooterMarker(line string) bool {
	for _, re := range n.rules.FooterMarkers {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// step 6: a line equal to the previous non-blank line is dropped together
// with the blank lines between them.
func dedupeLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	last := ""
	for _, l := range lines {
		if l == "" {
			out = append(out, l)
			continue
		}
		if l == last {
			for len(out) > 0 && out[len(out)-1] == "" {
				out = out[:len(out)-1]
			}
			continue
		}
		out = append(out, l)
		last = l
	}
	return strings.Join(out, "\n")
}

// step 7
func (n *Normalizer) skipLeadingMetadata(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l == "" {
			continue
		}
		if strings.HasPrefix(l, "**") || n.IsHeader(l) {
			return strings.Join(lines[i:], "\n")
		}
	}
	return s
}

// IsHeader reports whether line reads as a section header.
func (n *Normalizer) IsHeader(line string) bool {
	label := headerLabel(line)
	if label == "" {
		return false
	}
	runes := utf8.RuneCountInString(label)

	// (a) short line ending in a colon
	if strings.HasSuffix(label, ":") && runes <= n.rules.HeaderColonMax {
		return true
	}
	// (b) keyword prefix
	if runes < n.rules.HeaderKeywordMax && !strings.HasSuffix(label, ".") && hasKeywordPrefix(label, n.rules.HeaderKeywords) {
		return true
	}
	words := strings.Fields(label)
	// (c) short, fully upper case
	if len(words) <= n.rules.UpperMaxWords && hasLetter(label) && strings.ToUpper(label) == label {
		return true
	}
	// (d) mostly capitalised words
	if len(words) >= n.rules.TitleMinWords && len(words) <= n.rules.TitleMaxWords {
		caps := 0
		for _, w := range words {
			r, _ := utf8.DecodeRuneInString(w)
			if unicode.IsUpper(r) {
				caps++
			}
		}
		if float64(caps)/float64(len(words)) > n.rules.TitleRatio {
			return true
		}
	}
	return false
}

func (n *Normalizer) isMajor(line string) bool {
	return hasKeywordPrefix(headerLabel(line), n.rules.MajorSections)
}

// headerLabel strips markdown heading and emphasis markup.
func headerLabel(line string) string {
	l := strings.TrimLeft(line, "# ")
	return strings.TrimSpace(headingMarkup.Replace(l))
}

func hasKeywordPrefix(label string, keywords []string) bool {
	lower := strings.ToLower(label)
	for _, k := range keywords {
		k = strings.ToLower(k)
		if !strings.HasPrefix(lower, k) {
			continue
		}
		rest := lower[len(k):]
		if rest == "" {
			return true
		}
		if r, _ := utf8.DecodeRuneInString(rest); !unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}

// step 8
func (n *Normalizer) spaceHeaders(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines)+len(lines)/4)
	started := false
	for i, l := range lines {
		header := l != "" && n.IsHeader(l)
		if header && started {
			want := 1
			if n.isMajor(l) {
				want = 2
			}
			out = ensureBlank(out, want)
		}
		out = append(out, l)
		started = started || l != ""
		if header && i+1 < len(lines) {
			if next := lines[i+1]; next != "" && !n.IsHeader(next) {
				out = append(out, "")
			}
		}
	}
	return strings.Join(out, "\n")
}

// step 9
func (n *Normalizer) spaceCompensation(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines)+4)
	prev, started := false, false
	for _, l := range lines {
		if l == "" {
			out = append(out, l)
			prev = false
			continue
		}
		comp := n.isCompensation(l)
		if comp != prev && started {
			out = ensureBlank(out, 1)
		}
		out = append(out, l)
		prev, started = comp, true
	}
	return strings.Join(out, "\n")
}

func (n *Normalizer) isCompensation(line string) bool {
	for _, re := range n.rules.CompensationPatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// step 10
func finish(s string) string {
	return strings.TrimSpace(fourNewlines.ReplaceAllString(s, "\n\n\n"))
}

func ensureBlank(out []string, want int) []string {
	have := 0
	for j := len(out) - 1; j >= 0 && out[j] == ""; j-- {
		have++
	}
	for ; have < want; have++ {
		out = append(out, "")
	}
	return out
}
