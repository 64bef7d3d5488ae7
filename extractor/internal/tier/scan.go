package tier

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/jdextract/extractor/internal/normalize"
	"github.com/hazyhaar/jdextract/extractor/internal/quality"
)

// TextFunc returns the text of the first element matching selector.
// ok is false when nothing matched.
type TextFunc func(ctx context.Context, selector string) (text string, ok bool, err error)

// Outcome summarises a selector scan.
type Outcome struct {
	Accepted bool
	Text     string
	Selector string
	// Matched counts selectors that found an element.
	Matched int
	// Last is the most recent rejection.
	Last quality.Verdict
}

// Failure turns a rejected scan into a tier failure.
func (o Outcome) Failure(finalURL string) Result {
	if o.Matched == 0 {
		return Fail(NoSelectorMatched, finalURL, "no valid content found")
	}
	return Fail(ValidationRejected, finalURL, "no valid content found (%d candidates, last rejected: %s)", o.Matched, o.Last.Reason)
}

// Scanner runs candidate text through the normalizer and the validator.
type Scanner struct {
	Normalizer *normalize.Normalizer
	Criteria   quality.Criteria
	Logger     *slog.Logger
}

// NewScanner returns a Scanner with default rules.
func NewScanner(logger *slog.Logger) Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return Scanner{Normalizer: normalize.Default, Criteria: quality.DefaultCriteria(), Logger: logger}
}

// Check normalizes raw and validates it against snippet.
func (s Scanner) Check(raw, snippet string) (string, quality.Verdict) {
	text := s.Normalizer.Normalize(raw)
	return text, s.Criteria.Validate(text, snippet)
}

// Scan tries selectors in order and stops at the first accepted text.
// Only a cancelled context aborts the scan; other TextFunc errors skip
// the selector.
func (s Scanner) Scan(ctx context.Context, selectors []string, snippet string, textOf TextFunc) (Outcome, error) {
	var out Outcome
	for _, sel := range selectors {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		raw, ok, err := textOf(ctx, sel)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			s.Logger.Debug("tier: selector failed", "selector", sel, "error", err)
			continue
		}
		if !ok {
			continue
		}
		out.Matched++
		text, v := s.Check(raw, snippet)
		if v.Accepted {
			out.Accepted, out.Text, out.Selector = true, text, sel
			return out, nil
		}
		out.Last = v
		s.Logger.Debug("tier: candidate rejected", "selector", sel, "reason", v.Reason, "chars", len(text))
	}
	return out, nil
}
