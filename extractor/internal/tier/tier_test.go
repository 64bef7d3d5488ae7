package tier

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hazyhaar/jdextract/extractor/internal/quality"
)

const goodText = "Responsibilities:\nBuild and operate services that route freight across Europe, working with a small team of engineers.\n\nRequirements:\nSolid experience with Go, PostgreSQL and distributed systems; comfort with on-call duties and code review.\n\nSkills:\nClear writing, careful testing, pragmatic design and the ability to ship small increments every week."

func pages(m map[string]string) TextFunc {
	return func(_ context.Context, sel string) (string, bool, error) {
		t, ok := m[sel]
		return t, ok, nil
	}
}

func TestScan_FirstAcceptedWins(t *testing.T) {
	// WHAT: Selector order is priority; later matches are never consulted.
	// WHY: Profiles list the most precise container first.
	s := NewScanner(nil)
	var calls []string
	textOf := func(ctx context.Context, sel string) (string, bool, error) {
		calls = append(calls, sel)
		return pages(map[string]string{"#a": "too short", "#b": goodText, "#c": goodText})(ctx, sel)
	}
	out, err := s.Scan(context.Background(), []string{"#missing", "#a", "#b", "#c"}, "", textOf)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Accepted || out.Selector != "#b" {
		t.Fatalf("outcome: %+v", out)
	}
	if out.Matched != 2 {
		t.Errorf("matched: got %d", out.Matched)
	}
	if strings.Join(calls, ",") != "#missing,#a,#b" {
		t.Errorf("calls: %v", calls)
	}
	if len([]rune(out.Text)) < 300 {
		t.Errorf("accepted text shorter than 300: %d", len([]rune(out.Text)))
	}
}

func TestScan_NothingMatched(t *testing.T) {
	out, err := NewScanner(nil).Scan(context.Background(), []string{"#x", "#y"}, "", pages(nil))
	if err != nil {
		t.Fatal(err)
	}
	r := out.Failure("https://final")
	if r.Kind != NoSelectorMatched || !strings.Contains(r.Error, "no valid content found") || r.FinalURL != "https://final" {
		t.Fatalf("result: %+v", r)
	}
}

func TestScan_AllRejected(t *testing.T) {
	out, _ := NewScanner(nil).Scan(context.Background(), []string{"#a"}, "", pages(map[string]string{"#a": "tiny"}))
	r := out.Failure("")
	if r.Kind != ValidationRejected || !strings.Contains(r.Error, string(quality.TooShort)) {
		t.Fatalf("result: %+v", r)
	}
}

func TestScan_SelectorErrorSkipped(t *testing.T) {
	// WHAT: A failing selector does not end the scan.
	// WHY: One bad selector in a profile must not hide the others.
	textOf := func(_ context.Context, sel string) (string, bool, error) {
		if sel == "#bad" {
			return "", false, errors.New("eval failed")
		}
		return goodText, true, nil
	}
	out, err := NewScanner(nil).Scan(context.Background(), []string{"#bad", "#good"}, "", textOf)
	if err != nil || !out.Accepted {
		t.Fatalf("outcome: %+v, err %v", out, err)
	}
}

func TestScan_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewScanner(nil).Scan(ctx, []string{"#a"}, "", pages(map[string]string{"#a": goodText}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err: %v", err)
	}
}

func TestFail_PrefixesKind(t *testing.T) {
	r := Fail(FetchFailed, "", "http %d", 503)
	if r.Success || r.Error != "FetchFailed: http 503" {
		t.Fatalf("result: %+v", r)
	}
}

func TestResult_Err(t *testing.T) {
	// WHAT: Failed results convert to errors matching their kind.
	// WHY: Go callers branch with errors.Is instead of string checks.
	if err := Succeed(Static, "x", "", "#a").Err(); err != nil {
		t.Fatalf("success: %v", err)
	}
	err := Fail(NoSelectorMatched, "", "no valid content found").Err()
	if !errors.Is(err, ErrNoSelectorMatched) || errors.Is(err, ErrFetchFailed) {
		t.Fatalf("errors.Is: %v", err)
	}
	var te *Error
	if !errors.As(err, &te) || te.Kind != NoSelectorMatched || te.Error() != "NoSelectorMatched: no valid content found" {
		t.Fatalf("errors.As: %+v", te)
	}
}
