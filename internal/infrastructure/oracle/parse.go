package oracle

import (
	"encoding/json"
	"fmt"

	"github.com/labellens/backend/internal/domain"
)

// ExtractJSON locates the first balanced JSON object embedded in free text.
// Models wrap their answers in prose and markdown fences; the rest of the
// pipeline never sees that, only the parsed payload or ErrOracleParse.
func ExtractJSON(s string) (string, error) {
	start := -1
	for i := 0; i < len(s); i++ {
		if s[i] == '{' {
			start = i
			break
		}
	}
	if start == -1 {
		return "", fmt.Errorf("%w: no JSON object found", domain.ErrOracleParse)
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}

	return "", fmt.Errorf("%w: unbalanced JSON object", domain.ErrOracleParse)
}

// Decode extracts and unmarshals the embedded JSON object into T. Any
// failure is ErrOracleParse, which callers treat as zero results for the
// call rather than a pipeline-fatal error.
func Decode[T any](response string) (T, error) {
	var zero T

	jsonStr, err := ExtractJSON(response)
	if err != nil {
		return zero, err
	}

	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return zero, fmt.Errorf("%w: %v", domain.ErrOracleParse, err)
	}

	return result, nil
}
