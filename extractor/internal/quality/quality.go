// Package quality decides whether extracted text is good enough to replace
// the caller's snippet.
//
// Four criteria are checked in order and the first failure is reported:
// minimum length, absence of error-page phrases, improvement over the
// snippet, and job-description keyword density.
package quality

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Reason names the criterion that rejected a candidate.
type Reason string

const (
	TooShort                Reason = "TooShort"
	ErrorPattern            Reason = "ErrorPattern"
	InsufficientImprovement Reason = "InsufficientImprovement"
	MissingKeywords         Reason = "MissingKeywords"
)

// Verdict is the outcome of Validate. Reason is empty when Accepted.
type Verdict struct {
	Accepted bool   `json:"accepted"`
	Reason   Reason `json:"reason,omitempty"`
}

// Criteria are the acceptance thresholds.
type Criteria struct {
	MinLength      int      // characters
	MinImprovement float64  // percent over the snippet
	MinKeywords    int      // distinct Keywords matched
	ErrorPatterns  []string // lowercase substrings of error pages
	Keywords       []string // lowercase job-description vocabulary
}

// DefaultCriteria returns the tuned thresholds.
func DefaultCriteria() Criteria {
	return Criteria{
		MinLength:      300,
		MinImprovement: 20,
		MinKeywords:    3,
		ErrorPatterns: []string{
			"access denied", "forbidden", "404", "page not found",
			"captcha", "verify you are human", "are you a robot", "unusual traffic",
			"please enable javascript", "enable javascript to", "javascript is disabled",
			"service unavailable", "something went wrong", "an error occurred",
			"internal server error", "bad gateway", "too many requests",
			"this job is no longer available", "job has expired", "no longer accepting applications",
			"checking your browser", "request blocked",
		},
		Keywords: []string{
			"responsibilities", "requirements", "qualifications", "skills", "experience",
			"education", "benefits", "compensation", "duties", "salary", "degree",
			"knowledge", "preferred", "required", "responsible for", "what you'll do",
		},
	}
}

var defaultCriteria = DefaultCriteria()

// Validate checks text against DefaultCriteria.
func Validate(text, snippet string) Verdict {
	return defaultCriteria.Validate(text, snippet)
}

// Validate checks text against c, short-circuiting on the first failure.
func (c Criteria) Validate(text, snippet string) Verdict {
	if utf8.RuneCountInString(text) < c.MinLength {
		return Verdict{Reason: TooShort}
	}
	lower := strings.ToLower(text)
	for _, p := range c.ErrorPatterns {
		if strings.Contains(lower, p) {
			return Verdict{Reason: ErrorPattern}
		}
	}
	if Improvement(text, snippet) < c.MinImprovement {
		return Verdict{Reason: InsufficientImprovement}
	}
	if CountKeywords(lower, c.Keywords) < c.MinKeywords {
		return Verdict{Reason: MissingKeywords}
	}
	return Verdict{Accepted: true}
}

// Improvement is the length gain of text over snippet in percent, clamped
// at zero. An empty snippet counts as 100.
func Improvement(text, snippet string) float64 {
	base := utf8.RuneCountInString(snippet)
	if base == 0 {
		return 100
	}
	n := utf8.RuneCountInString(text)
	return math.Max(0, float64(n-base)/float64(base)*100)
}

// CountKeywords returns how many distinct keywords occur in lower.
func CountKeywords(lower string, keywords []string) int {
	seen := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(k)
		if _, ok := seen[k]; ok {
			continue
		}
		if strings.Contains(lower, k) {
			seen[k] = struct{}{}
		}
	}
	return len(seen)
}
