package extractor

import (
	"sync/atomic"

	"github.com/hazyhaar/jdextract/extractor/internal/tier"
)

type stats struct {
	requests   atomic.Int64
	invalid    atomic.Int64
	staticOK   atomic.Int64
	renderedOK atomic.Int64
	failed     atomic.Int64

	fetchFailed   atomic.Int64
	noSelector    atomic.Int64
	validation    atomic.Int64
	resourceError atomic.Int64
}

func (s *stats) succeeded(m tier.Method) {
	if m == tier.Rendered {
		s.renderedOK.Add(1)
		return
	}
	s.staticOK.Add(1)
}

func (s *stats) rejected(k tier.Kind) {
	switch k {
	case tier.FetchFailed:
		s.fetchFailed.Add(1)
	case tier.NoSelectorMatched:
		s.noSelector.Add(1)
	case tier.ValidationRejected:
		s.validation.Add(1)
	case tier.ResourceError:
		s.resourceError.Add(1)
	}
}

// Stats is a snapshot of pipeline counters since New.
type Stats struct {
	Requests   int64 `json:"requests"`
	Invalid    int64 `json:"invalid"`
	StaticOK   int64 `json:"static_ok"`
	RenderedOK int64 `json:"rendered_ok"`
	Failed     int64 `json:"failed"`
	// TierFailures counts individual tier failures by kind.
	TierFailures map[Kind]int64 `json:"tier_failures"`
}

// Stats returns the current counters.
func (x *Extractor) Stats() Stats {
	s := &x.stats
	return Stats{
		Requests:   s.requests.Load(),
		Invalid:    s.invalid.Load(),
		StaticOK:   s.staticOK.Load(),
		RenderedOK: s.renderedOK.Load(),
		Failed:     s.failed.Load(),
		TierFailures: map[Kind]int64{
			FetchFailed:        s.fetchFailed.Load(),
			NoSelectorMatched:  s.noSelector.Load(),
			ValidationRejected: s.validation.Load(),
			ResourceError:      s.resourceError.Load(),
		},
	}
}
