package scoring

import (
	"fmt"
	"sort"
	"strings"
)

// Canned match-reason phrases. Reasons are generated deterministically from
// component thresholds so repeated identical requests produce identical output.
const (
	reasonProfileUnavailable = "profile data unavailable; ranked by semantic similarity only"
	reasonStrongSkills       = "strong match on required skills"
	reasonPartialSkills      = "partial match on required skills"
	reasonHighConfidence     = "high-confidence skill profile"
	reasonLevelAligned       = "experience aligns with target level"
	reasonLevelMismatch      = "experience level differs from target"
	reasonSemanticMatch      = "strong semantic similarity to role description"
	reasonLowSignal          = "sparse profile; score demoted"
)

// buildReasons derives ordered reasons from the component scores.
func buildReasons(sc *ScoredCandidate, req Request) []string {
	var reasons []string

	if len(req.Required)+len(req.Preferred) > 0 {
		switch {
		case sc.SkillMatchScore >= 75:
			reasons = append(reasons, reasonStrongSkills)
		case sc.SkillMatchScore >= 40:
			reasons = append(reasons, reasonPartialSkills)
		}
	}

	if sc.ConfidenceScore >= 80 {
		reasons = append(reasons, reasonHighConfidence)
	}

	if req.ExperienceLevel != "" {
		if sc.ExperienceMatchScore >= 75 {
			reasons = append(reasons, reasonLevelAligned)
		} else if sc.ExperienceMatchScore < 50 {
			reasons = append(reasons, reasonLevelMismatch)
		}
	}

	if sc.VectorSimilarityScore >= 80 {
		reasons = append(reasons, reasonSemanticMatch)
	}

	if sc.Candidate != nil && sc.Candidate.AnalysisConfidence > 0 && sc.Candidate.AnalysisConfidence < 0.5 {
		reasons = append(reasons, reasonLowSignal)
	}

	if matched := matchedSkillNames(sc.SkillBreakdown); len(matched) > 0 {
		reasons = append(reasons, fmt.Sprintf("matched skills: %s", strings.Join(matched, ", ")))
	}

	return reasons
}

func matchedSkillNames(breakdown map[string]float64) []string {
	names := make([]string, 0, len(breakdown))
	for name := range breakdown {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
