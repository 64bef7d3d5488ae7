package extractor

import (
	"github.com/hazyhaar/jdextract/extractor/internal/profile"
	"github.com/hazyhaar/jdextract/extractor/internal/tier"
)

// Request is one posting to extract.
type Request struct {
	URL             string `json:"url"`
	OriginalSnippet string `json:"originalSnippet"`
}

// Re-exported types from the internal packages for cmd/ and callers.
type (
	Result  = tier.Result
	Kind    = tier.Kind
	Method  = tier.Method
	Error   = tier.Error
	Profile = profile.Profile
)

const (
	InputInvalid       = tier.InputInvalid
	FetchFailed        = tier.FetchFailed
	NoSelectorMatched  = tier.NoSelectorMatched
	ValidationRejected = tier.ValidationRejected
	ResourceError      = tier.ResourceError

	MethodStatic   = tier.Static
	MethodRendered = tier.Rendered
)

var (
	ErrInputInvalid       = tier.ErrInputInvalid
	ErrFetchFailed        = tier.ErrFetchFailed
	ErrNoSelectorMatched  = tier.ErrNoSelectorMatched
	ErrValidationRejected = tier.ErrValidationRejected
	ErrResourceError      = tier.ErrResourceError
)
