package port

import "context"

// InjectionScanner flags prompt-injection attempts in diary entry content.
// Content itself is never redacted or rejected; the scanner only produces a
// risk score to be stored alongside the entry.
type InjectionScanner interface {
	// Score returns a risk value in [0,1], higher meaning more likely to be
	// an injection attempt.
	Score(ctx context.Context, content string) (float64, error)
}
