package rerank

import (
	"fmt"
	"strings"
)

// buildFilterPrompt renders the first-pass relevance filter. Candidates are
// presented in a compact numbered form so the model answers with indices
// only, which keeps output short and trivially parseable.
func buildFilterPrompt(role string, batch []Candidate) string {
	var b strings.Builder
	b.WriteString("You are screening candidates for the role: ")
	b.WriteString(role)
	b.WriteString(".\n\nCandidates:\n")
	for i, c := range batch {
		fmt.Fprintf(&b, "%d. %s, %.0f years experience\n", i+1, c.Title, c.YearsExperience)
	}
	b.WriteString("\nReturn the numbers of candidates plausibly relevant to the role.\n")
	b.WriteString(`Respond with JSON only, no prose: {"keep": [1, 2, ...]}` + "\n")
	return b.String()
}

// buildRankPrompt renders the second-pass scoring prompt for one batch.
func buildRankPrompt(req Request, batch []Candidate) string {
	var b strings.Builder
	b.WriteString("You are an expert technical recruiter. Score each candidate below for the role: ")
	b.WriteString(req.RoleTitle)
	b.WriteString(".\n")
	if req.TargetLevel.Valid() {
		fmt.Fprintf(&b, "Target seniority: %s.\n", req.TargetLevel)
	}
	if req.TargetSpecialty.Valid() {
		fmt.Fprintf(&b, "Target specialty: %s.\n", req.TargetSpecialty)
	}

	b.WriteString("\nScoring rubric (0-100):\n")
	b.WriteString("- Skill relevance to the role and specialty\n")
	b.WriteString("- Seniority alignment with the target level\n")
	b.WriteString("- Depth of experience for the years claimed\n")

	b.WriteString("\nCandidates:\n")
	for i, c := range batch {
		fmt.Fprintf(&b, "%d. id=%s name=%q title=%q level=%s years=%.0f", i+1, c.ID, c.Name, c.Title, c.Level, c.YearsExperience)
		if c.Specialty != "" {
			fmt.Fprintf(&b, " specialty=%s", c.Specialty)
		}
		if len(c.Skills) > 0 {
			fmt.Fprintf(&b, " skills=%s", strings.Join(c.Skills, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("\nRespond with a JSON array only, no prose or markdown:\n")
	b.WriteString(`[{"id": "<candidate id>", "score": <0-100>, "reason": "<one sentence>"}]` + "\n")
	return b.String()
}
