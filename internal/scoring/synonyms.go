package scoring

import "strings"

// synonymGroups lists mutually-substitutable skill names. Matching treats
// every member of a group as equivalent, with no confidence penalty.
var synonymGroups = [][]string{
	{"javascript", "js", "node.js", "nodejs", "node"},
	{"typescript", "ts"},
	{"python", "py"},
	{"golang", "go"},
	{"kubernetes", "k8s"},
	{"postgresql", "postgres"},
	{"amazon web services", "aws"},
	{"google cloud platform", "google cloud", "gcp"},
	{"microsoft azure", "azure"},
	{"c#", "csharp", ".net", "dotnet"},
	{"machine learning", "ml"},
	{"continuous integration", "ci/cd", "cicd"},
	{"react", "react.js", "reactjs"},
	{"vue", "vue.js", "vuejs"},
	{"terraform", "iac"},
}

// synonymIndex maps each alias to its group id.
var synonymIndex = buildSynonymIndex()

func buildSynonymIndex() map[string]int {
	idx := make(map[string]int)
	for gid, group := range synonymGroups {
		for _, alias := range group {
			idx[alias] = gid
		}
	}
	return idx
}

// synonymsOf returns the other aliases for a canonical skill name, or nil.
func synonymsOf(skill string) []string {
	gid, ok := synonymIndex[skill]
	if !ok {
		return nil
	}
	var out []string
	for _, alias := range synonymGroups[gid] {
		if alias != skill {
			out = append(out, alias)
		}
	}
	return out
}

// canonicalSkill normalizes a skill name for matching.
func canonicalSkill(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
