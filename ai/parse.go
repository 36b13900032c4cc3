package ai

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// reply is the loose shape models tend to produce.
type reply struct {
	Decision   string          `json:"decision"`
	Action     string          `json:"action"`
	Signal     string          `json:"signal"`
	Confidence json.RawMessage `json:"confidence"`
	Reason     string          `json:"reason"`
	Reasoning  string          `json:"reasoning"`
	Rationale  string          `json:"rationale"`
}

// ParseResponse extracts a Response from model output. The JSON object may
// be wrapped in prose or a markdown fence. Any failure returns a
// zero-confidence HOLD together with an error wrapping ErrParse (or ErrEmpty),
// so callers can log and carry on.
func ParseResponse(text string) (Response, error) {
	raw := extractJSON(text)
	if raw == "" {
		if strings.TrimSpace(text) == "" {
			return HoldWithReason(UnparseableReason), ErrEmpty
		}
		return HoldWithReason(UnparseableReason), fmt.Errorf("%w: no JSON object found", ErrParse)
	}

	var r reply
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return HoldWithReason(UnparseableReason), fmt.Errorf("%w: %v", ErrParse, err)
	}

	word := firstNonEmpty(r.Decision, r.Action, r.Signal)
	dec, ok := ParseDecision(word)
	if !ok {
		return HoldWithReason(UnparseableReason), fmt.Errorf("%w: unknown decision %q", ErrParse, word)
	}

	conf, err := parseConfidence(r.Confidence)
	if err != nil {
		return HoldWithReason(UnparseableReason), fmt.Errorf("%w: %v", ErrParse, err)
	}

	return Response{
		Decision:   dec,
		Confidence: NormalizeConfidence(conf) / 100,
		Reason:     firstNonEmpty(r.Reason, r.Reasoning, r.Rationale),
		RawJSON:    raw,
	}, nil
}

// parseConfidence accepts 0.8, 80, "80", "80%" and a missing field (0).
func parseConfidence(m json.RawMessage) (float64, error) {
	if len(m) == 0 || string(m) == "null" {
		return 0, nil
	}

	var f float64
	if err := json.Unmarshal(m, &f); err == nil {
		return f, nil
	}

	var s string
	if err := json.Unmarshal(m, &s); err != nil {
		return 0, fmt.Errorf("confidence: %s", string(m))
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("confidence: %w", err)
	}
	return f, nil
}

// extractJSON returns the first balanced {...} object in s, honouring
// string literals so braces inside the reason text do not confuse it.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inStr := false
	esc := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
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

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
