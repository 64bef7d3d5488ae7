// Package tier holds what the static and rendered fetch tiers share: the
// result shape, the failure taxonomy, and the selector scan that turns
// candidate elements into accepted text.
package tier

import (
	"context"
	"fmt"

	"github.com/hazyhaar/jdextract/extractor/internal/profile"
)

// Kind classifies a failed extraction.
type Kind string

const (
	InputInvalid       Kind = "InputInvalid"
	FetchFailed        Kind = "FetchFailed"
	NoSelectorMatched  Kind = "NoSelectorMatched"
	ValidationRejected Kind = "ValidationRejected"
	ResourceError      Kind = "ResourceError"
)

// Method names the tier that produced a description.
type Method string

const (
	Static   Method = "static"
	Rendered Method = "rendered"
)

// Result is the outcome of one tier, or of the whole pipeline.
// Success carries Description and Method; failure carries Error and Kind.
// FinalURL is best effort in both cases.
type Result struct {
	Success     bool   `json:"success"`
	Description string `json:"description,omitempty"`
	Method      Method `json:"method,omitempty"`
	FinalURL    string `json:"finalUrl,omitempty"`
	Error       string `json:"error,omitempty"`
	Kind        Kind   `json:"kind,omitempty"`
	Selector    string `json:"selector,omitempty"`
}

// Func is the common tier signature.
type Func func(ctx context.Context, url, snippet string, p profile.Profile) Result

// Succeed builds a success result.
func Succeed(m Method, description, finalURL, selector string) Result {
	return Result{Success: true, Description: description, Method: m, FinalURL: finalURL, Selector: selector}
}

// Fail builds a failure result whose Error starts with the kind name.
func Fail(kind Kind, finalURL, format string, args ...any) Result {
	return Result{
		Kind:     kind,
		FinalURL: finalURL,
		Error:    string(kind) + ": " + fmt.Sprintf(format, args...),
	}
}

// UserAgent is the desktop Chrome identity both tiers present.
const UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
