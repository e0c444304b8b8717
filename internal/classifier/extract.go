package classifier

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// Judgment is the structured object a language model is asked to emit.
// Neither field is validated.
type Judgment struct {
	Label string
	Score float64
}

// Extract pulls the first JSON object out of generated text and reads its
// label and score. It reports false when no object parses or the object lacks
// either field.
func Extract(text string) (Judgment, bool) {
	for _, candidate := range objectCandidates(text) {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
			continue
		}
		return judgmentFrom(obj)
	}
	return Judgment{}, false
}

// objectCandidates returns every balanced {...} span in order of its opening
// brace, followed by the span from the first '{' to the last '}'.
func objectCandidates(text string) []string {
	var out []string
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		if end := matchBrace(text, i); end > 0 {
			out = append(out, text[i:end+1])
		}
	}

	first, last := strings.IndexByte(text, '{'), strings.LastIndexByte(text, '}')
	if first >= 0 && last > first {
		greedy := text[first : last+1]
		if len(out) == 0 || out[0] != greedy {
			out = append(out, greedy)
		}
	}
	return out
}

// matchBrace returns the index of the brace closing the one at start, skipping
// braces inside string literals, or -1.
func matchBrace(text string, start int) int {
	depth := 0
	inString, escaped := false, false
	for j := start; j < len(text); j++ {
		ch := text[j]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

func judgmentFrom(obj map[string]json.RawMessage) (Judgment, bool) {
	rawLabel, ok := obj["label"]
	if !ok {
		return Judgment{}, false
	}
	rawScore, ok := obj["score"]
	if !ok {
		return Judgment{}, false
	}

	var label string
	if err := json.Unmarshal(rawLabel, &label); err != nil {
		label = strings.TrimSpace(string(rawLabel))
	}

	return Judgment{Label: label, Score: parseScore(rawScore)}, true
}

// parseScore accepts a JSON number or a numeric string. Anything else is 0.
// Values beyond float64 range come back as ±Inf for the caller to clamp.
func parseScore(raw json.RawMessage) float64 {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if f, ok := parseFloat(n.String()); ok {
			return f
		}
		return 0
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, ok := parseFloat(strings.TrimSpace(s)); ok {
			return f
		}
	}
	return 0
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return f, true
}
