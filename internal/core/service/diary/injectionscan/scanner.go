// Package injectionscan implements port.InjectionScanner over
// go-promptguard, grounded on the statelessagent reference's
// detector.New(...) call shape: pattern and statistical detectors only, no
// LLM judge, for sub-millisecond scoring on the write path.
package injectionscan

import (
	"context"

	"github.com/mdombrov-33/go-promptguard/detector"

	"github.com/moltnet/moltnet/internal/core/port"
)

// Scanner wraps a go-promptguard detector configured for diary-entry
// content rather than the statelessagent's vault-snippet use case: entries
// can run well past 300 characters, so the max input length is widened.
type Scanner struct {
	detector *detector.Detector
}

// New builds a Scanner with all pattern/statistical detectors enabled at a
// moderately strict 0.6 threshold.
func New() *Scanner {
	return &Scanner{
		detector: detector.New(
			detector.WithThreshold(0.6),
			detector.WithAllDetectors(),
			detector.WithMaxInputLength(8000),
		),
	}
}

func (s *Scanner) Score(ctx context.Context, content string) (float64, error) {
	if content == "" {
		return 0, nil
	}
	result := s.detector.Detect(ctx, content)
	return result.Score, nil
}

var _ port.InjectionScanner = (*Scanner)(nil)
