package rerank

import "strings"

// minIDPrefixLength guards prefix recovery against matching on a couple of
// hex characters.
const minIDPrefixLength = 4

// recoverEntityID maps a parsed entry back to a real candidate id. The
// provider may have answered with the candidate's 1-based prompt index, a
// truncated id prefix, or a name. Tried in order: exact id, prompt index,
// id prefix, exact name, fuzzy name. Unrecoverable entries are dropped by
// the caller, never defaulted to a wrong candidate.
func recoverEntityID(e Entry, batch []Candidate) (string, bool) {
	if e.ID != "" {
		for _, c := range batch {
			if c.ID == e.ID {
				return c.ID, true
			}
		}
	}

	if e.Index >= 1 && e.Index <= len(batch) {
		return batch[e.Index-1].ID, true
	}

	if len(e.ID) >= minIDPrefixLength {
		match := ""
		for _, c := range batch {
			if strings.HasPrefix(c.ID, e.ID) {
				if match != "" {
					// Ambiguous prefix: better to drop than to guess.
					match = ""
					break
				}
				match = c.ID
			}
		}
		if match != "" {
			return match, true
		}
	}

	// The id field sometimes carries a name instead.
	for _, name := range []string{e.Name, e.ID} {
		if name == "" {
			continue
		}
		if id, ok := recoverByName(name, batch); ok {
			return id, true
		}
	}

	return "", false
}

func recoverByName(name string, batch []Candidate) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", false
	}

	for _, c := range batch {
		if strings.ToLower(c.Name) == name {
			return c.ID, true
		}
	}

	match := ""
	for _, c := range batch {
		lower := strings.ToLower(c.Name)
		if lower == "" {
			continue
		}
		if strings.Contains(lower, name) || strings.Contains(name, lower) {
			if match != "" {
				return "", false // ambiguous
			}
			match = c.ID
		}
	}
	return match, match != ""
}
