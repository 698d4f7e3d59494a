package rerank

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Entry is one parsed ranking row before identifier recovery. Exactly one of
// ID/Index/Name may carry the provider's candidate reference; Score is raw
// (not yet normalized).
type Entry struct {
	ID     string
	Index  int // 1-based prompt index; 0 means absent
	Name   string
	Score  float64
	Reason string
}

// parseLLMResponse extracts ranking entries from a raw provider response.
// Strategies are attempted in order: fenced code block, outermost JSON span,
// direct parse, structural repair, regex salvage. Returns ErrParseFailed only
// when every strategy fails.
func parseLLMResponse(raw string) ([]Entry, error) {
	s := stripFences(raw)
	s = extractSpan(s)
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrParseFailed
	}

	if entries, ok := tryParse(s); ok {
		return entries, nil
	}
	if entries, ok := tryParse(balanceBrackets(s)); ok {
		return entries, nil
	}
	if entries, ok := tryParse(trimToLastComplete(s)); ok {
		return entries, nil
	}
	if entries := regexSalvage(s); len(entries) > 0 {
		return entries, nil
	}
	return nil, ErrParseFailed
}

// stripFences removes a markdown code fence around the payload, if present.
func stripFences(s string) string {
	if idx := strings.Index(s, "```json"); idx != -1 {
		start := idx + len("```json")
		if end := strings.Index(s[start:], "```"); end != -1 {
			return s[start : start+end]
		}
		return s[start:]
	}
	if idx := strings.Index(s, "```"); idx != -1 {
		start := idx + 3
		if end := strings.Index(s[start:], "```"); end != -1 {
			return s[start : start+end]
		}
		return s[start:]
	}
	return s
}

// extractSpan narrows to the outermost [...] span, or {...} when no array is
// present, discarding prose around the JSON.
func extractSpan(s string) string {
	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end > start {
			return s[start : end+1]
		}
		return s[start:]
	}
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			return s[start : end+1]
		}
		return s[start:]
	}
	return s
}

// tryParse attempts a strict JSON parse of either a bare array or an
// object-wrapped array ({"rankings": [...]} and similar).
func tryParse(s string) ([]Entry, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}

	var rows []map[string]any
	if err := json.Unmarshal([]byte(s), &rows); err == nil {
		return entriesFromRows(rows), true
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &wrapper); err != nil {
		return nil, false
	}
	for _, key := range []string{"rankings", "scores", "results", "candidates"} {
		rawArr, ok := wrapper[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(rawArr, &rows); err == nil {
			return entriesFromRows(rows), true
		}
	}
	// A single bare object is treated as a one-entry response.
	var single map[string]any
	if err := json.Unmarshal([]byte(s), &single); err == nil {
		if e, ok := entryFromRow(single); ok {
			return []Entry{e}, true
		}
	}
	return nil, false
}

func entriesFromRows(rows []map[string]any) []Entry {
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		if e, ok := entryFromRow(row); ok {
			entries = append(entries, e)
		}
	}
	return entries
}

// entryFromRow pulls an entry out of one loosely-shaped object. Providers
// drift between key names and sometimes return a numeric index where an id
// was asked for.
func entryFromRow(row map[string]any) (Entry, bool) {
	var e Entry

	for _, key := range []string{"id", "candidate_id", "entity_id", "candidate"} {
		v, ok := row[key]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
				e.Index = n
			} else {
				e.ID = strings.TrimSpace(val)
			}
		case float64:
			e.Index = int(val)
		}
		break
	}

	if v, ok := row["name"].(string); ok {
		e.Name = strings.TrimSpace(v)
	}

	scored := false
	for _, key := range []string{"score", "rating", "rank_score"} {
		switch val := row[key].(type) {
		case float64:
			e.Score = val
			scored = true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
				e.Score = f
				scored = true
			}
		}
		if scored {
			break
		}
	}

	for _, key := range []string{"reason", "rationale", "explanation"} {
		if v, ok := row[key].(string); ok {
			e.Reason = strings.TrimSpace(v)
			break
		}
	}

	if !scored {
		return Entry{}, false
	}
	if e.ID == "" && e.Index == 0 && e.Name == "" {
		return Entry{}, false
	}
	return e, true
}

// balanceBrackets appends missing closers for brackets and braces left open
// by truncation. String contents are skipped so braces inside reasons do not
// skew the count.
func balanceBrackets(s string) string {
	var depth []rune
	inString := false
	escaped := false

	for _, ch := range s {
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '[', '{':
			if !inString {
				depth = append(depth, ch)
			}
		case ']':
			if !inString && len(depth) > 0 && depth[len(depth)-1] == '[' {
				depth = depth[:len(depth)-1]
			}
		case '}':
			if !inString && len(depth) > 0 && depth[len(depth)-1] == '{' {
				depth = depth[:len(depth)-1]
			}
		}
	}

	var b strings.Builder
	b.WriteString(s)
	if inString {
		b.WriteByte('"')
	}
	for i := len(depth) - 1; i >= 0; i-- {
		if depth[i] == '[' {
			b.WriteByte(']')
		} else {
			b.WriteByte('}')
		}
	}
	return b.String()
}

// trimToLastComplete cuts a truncated array back to its last syntactically
// complete element and closes it, discarding the partial trailing object.
func trimToLastComplete(s string) string {
	start := strings.Index(s, "[")
	if start == -1 {
		return s
	}

	depth := 0
	inString := false
	escaped := false
	lastComplete := -1

	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '[', '{':
			if !inString {
				depth++
			}
		case ']', '}':
			if !inString {
				depth--
				// depth 1 means we just closed an element of the top array.
				if depth == 1 && ch == '}' {
					lastComplete = i
				}
			}
		}
	}

	if lastComplete == -1 {
		return s
	}
	return s[start:lastComplete+1] + "]"
}

// salvagePattern matches {id, score, reason}-shaped objects loosely enough to
// survive surrounding garbage.
var salvagePattern = regexp.MustCompile(`\{[^{}]*\}`)

// regexSalvage extracts whatever individually-parseable objects remain in an
// otherwise unparseable response.
func regexSalvage(s string) []Entry {
	var entries []Entry
	for _, m := range salvagePattern.FindAllString(s, -1) {
		var row map[string]any
		if err := json.Unmarshal([]byte(m), &row); err != nil {
			continue
		}
		if e, ok := entryFromRow(row); ok {
			entries = append(entries, e)
		}
	}
	return entries
}

// normalizeScore maps a raw provider score onto [0,100]. Scores at or below 1
// are treated as 0-1 fractions.
func normalizeScore(v float64) float64 {
	if v <= 1 {
		v *= 100
	}
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
