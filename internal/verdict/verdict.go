// Package verdict defines the terminal judgment of an investigation and the
// parser that recovers it from free-form model output.
package verdict

import (
	"encoding/json"
	"strings"
)

// Outcome is the judgment a session terminates with.
type Outcome string

const (
	OutcomeReal       Outcome = "REAL"
	OutcomeFake       Outcome = "FAKE"
	OutcomeUnverified Outcome = "UNVERIFIED"
	OutcomeError      Outcome = "ERROR"
)

// Source is one piece of supporting evidence cited by the judge.
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Verdict is the sole terminal artifact of an investigation.
type Verdict struct {
	Verdict    Outcome  `json:"verdict"`
	Confidence int      `json:"confidence_score"`
	Summary    string   `json:"summary"`
	Sources    []Source `json:"sources"`
}

// Default returns the documented fallback verdict used whenever judgment
// fails or produces unusable output.
func Default() Verdict {
	return Verdict{
		Verdict:    OutcomeUnverified,
		Confidence: 0,
		Summary:    "Analysis failed.",
		Sources:    []Source{},
	}
}

// Parse recovers a Verdict from raw model text. Two stages: decode the
// whole payload (after stripping code fences), then fall back to the first
// balanced-brace substring. Any failure yields Default(). Missing fields
// are defaulted, never left invalid.
func Parse(raw string) Verdict {
	cleaned := stripFences(raw)

	if v, ok := decode(cleaned); ok {
		return v
	}
	if obj := extractObject(cleaned); obj != "" {
		if v, ok := decode(obj); ok {
			return v
		}
	}
	return Default()
}

func decode(s string) (Verdict, bool) {
	var parsed struct {
		Verdict    string   `json:"verdict"`
		Confidence int      `json:"confidence_score"`
		Summary    string   `json:"summary"`
		Sources    []Source `json:"sources"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &parsed); err != nil {
		return Verdict{}, false
	}

	v := Verdict{
		Verdict:    normalizeOutcome(parsed.Verdict),
		Confidence: clampConfidence(parsed.Confidence),
		Summary:    parsed.Summary,
		Sources:    parsed.Sources,
	}
	if v.Summary == "" {
		v.Summary = "No summary provided."
	}
	if v.Sources == nil {
		v.Sources = []Source{}
	}
	return v, true
}

func normalizeOutcome(s string) Outcome {
	switch Outcome(strings.ToUpper(strings.TrimSpace(s))) {
	case OutcomeReal:
		return OutcomeReal
	case OutcomeFake:
		return OutcomeFake
	case OutcomeError:
		return OutcomeError
	default:
		return OutcomeUnverified
	}
}

func clampConfidence(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// stripFences removes markdown code fences the model tends to wrap JSON in.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// extractObject returns the first balanced-brace JSON object in s, or ""
// if none closes. Braces inside string literals are skipped.
func extractObject(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
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
				return s[start : i+1]
			}
		}
	}
	return ""
}
