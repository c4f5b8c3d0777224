// Package pgvec marshals Go float32 slices to and from pgvector's text
// literal format ("[f1,f2,...]"). No example in the retrieval pack vendors
// a pgvector-go client, so this is the narrowest possible stdlib-only shim
// (one function each way) rather than a fabricated dependency — see
// DESIGN.md.
package pgvec

import (
	"fmt"
	"strconv"
	"strings"
)

// Encode renders vec as a pgvector literal, e.g. "[0.1,-0.2,0.3]".
func Encode(vec []float32) string {
	if vec == nil {
		return ""
	}
	parts := make([]string, len(vec))
	for i, f := range vec {
		parts[i] = strconv.FormatFloat(float64(f), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Decode parses a pgvector literal back into a float32 slice.
func Decode(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("pgvec: malformed literal %q", s)
	}
	inner := s[1 : len(s)-1]
	if inner == "" {
		return []float32{}, nil
	}
	fields := strings.Split(inner, ",")
	out := make([]float32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil {
			return nil, fmt.Errorf("pgvec: parsing component %q: %w", f, err)
		}
		out[i] = float32(v)
	}
	return out, nil
}
