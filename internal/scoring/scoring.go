// Package scoring implements the skill-aware composite scoring engine. It
// reconciles skill-match credit, profile confidence, experience-level
// alignment, and vector similarity into one 0-100 score per candidate.
package scoring

import (
	"log/slog"
	"strings"

	"github.com/talentsift/talentsift/internal/repository"
)

// Defaults for skill requirement thresholds and credit multipliers.
const (
	DefaultRequiredMinConfidence  = 70.0
	DefaultPreferredMinConfidence = 60.0
	DefaultRequiredWeight         = 1.0
	DefaultPreferredWeight        = 0.5

	// Sub-threshold matches earn partial credit rather than zero: a matched
	// skill below its confidence floor is still signal.
	requiredPartialCredit  = 0.5
	preferredPartialCredit = 0.3

	// Substring containment is a weaker match than an exact or synonym hit.
	containmentPenalty = 0.8

	// minContainmentLength guards substring matching against trivially short
	// tokens matching inside unrelated skill names.
	minContainmentLength = 3
)

// Weights are the composite weights over the four component scores.
type Weights struct {
	SkillMatch       float64
	Confidence       float64
	ExperienceMatch  float64
	VectorSimilarity float64
}

// DefaultWeights is the canonical weight set. Treat as configuration: callers
// may override per request.
var DefaultWeights = Weights{
	SkillMatch:       0.4,
	Confidence:       0.25,
	ExperienceMatch:  0.1,
	VectorSimilarity: 0.25,
}

// SkillRequirement is one target skill with its confidence floor and weight.
type SkillRequirement struct {
	Skill         string
	MinConfidence float64 // 0 selects the default for its class
	Weight        float64 // 0 selects the default for its class
}

// Request describes what to score candidates against.
type Request struct {
	Required        []SkillRequirement
	Preferred       []SkillRequirement
	ExperienceLevel repository.Level // empty = no level target
	Weights         *Weights         // nil = DefaultWeights
}

// ScoredCandidate is the per-request scoring result. It is never persisted;
// it lives only for the duration of one search call.
type ScoredCandidate struct {
	EntityID  string
	Candidate *repository.Candidate // nil when the profile could not be loaded

	RetrievalRank    int
	VectorSimilarity float64 // raw cosine in [-1, 1]

	SkillMatchScore       float64
	ConfidenceScore       float64
	ExperienceMatchScore  float64
	VectorSimilarityScore float64
	OverallScore          float64

	SkillBreakdown map[string]float64
	MatchReasons   []string
}

// Engine scores retrieved candidates. Stateless and safe for concurrent use.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates a scoring engine.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger.With("component", "scoring")}
}

// Score computes the composite score for one candidate. A nil candidate
// degrades to vector-only scoring; it never fails.
func (e *Engine) Score(cand *repository.Candidate, entityID string, similarity float64, rank int, req Request) *ScoredCandidate {
	sc := &ScoredCandidate{
		EntityID:         entityID,
		Candidate:        cand,
		RetrievalRank:    rank,
		VectorSimilarity: similarity,
		SkillBreakdown:   make(map[string]float64),
	}

	sc.VectorSimilarityScore = clampScore(similarity * 100)

	if cand == nil {
		// Profile unavailable: the vector signal is all there is.
		sc.OverallScore = sc.VectorSimilarityScore
		sc.MatchReasons = []string{reasonProfileUnavailable}
		return sc
	}

	weights := DefaultWeights
	if req.Weights != nil {
		weights = *req.Weights
	}

	sc.SkillMatchScore = e.skillMatchScore(cand, req, sc.SkillBreakdown)
	sc.ConfidenceScore = confidenceScore(cand.Skills)
	sc.ExperienceMatchScore = experienceScore(cand, req.ExperienceLevel)

	overall := weights.SkillMatch*sc.SkillMatchScore +
		weights.Confidence*sc.ConfidenceScore +
		weights.ExperienceMatch*sc.ExperienceMatchScore +
		weights.VectorSimilarity*sc.VectorSimilarityScore

	// Low-signal profiles are demoted rather than excluded.
	if cand.AnalysisConfidence > 0 {
		overall *= 0.6 + 0.4*cand.AnalysisConfidence
	}

	sc.OverallScore = clampScore(overall)
	sc.MatchReasons = buildReasons(sc, req)
	return sc
}

// skillMatchScore is the weighted sum of per-skill credits over the sum of
// weights, on a 0-100 scale. Zero when no skills are requested.
func (e *Engine) skillMatchScore(cand *repository.Candidate, req Request, breakdown map[string]float64) float64 {
	var creditSum, weightSum float64

	for _, r := range req.Required {
		credit, weight := skillCredit(cand.Skills, r, true)
		creditSum += credit
		weightSum += weight
		if credit > 0 {
			breakdown[canonicalSkill(r.Skill)] = credit / weight
		}
	}
	for _, p := range req.Preferred {
		credit, weight := skillCredit(cand.Skills, p, false)
		creditSum += credit
		weightSum += weight
		if credit > 0 {
			breakdown[canonicalSkill(p.Skill)] = credit / weight
		}
	}

	if weightSum == 0 {
		return 0
	}
	return clampScore(creditSum / weightSum)
}

// skillCredit resolves one requirement against the candidate's assertions and
// returns (credit, weight). An unmatched skill contributes zero credit but
// its weight still counts in the denominator.
func skillCredit(skills []repository.SkillAssertion, r SkillRequirement, required bool) (credit, weight float64) {
	minConf := r.MinConfidence
	weight = r.Weight
	partial := requiredPartialCredit
	if required {
		if minConf <= 0 {
			minConf = DefaultRequiredMinConfidence
		}
		if weight <= 0 {
			weight = DefaultRequiredWeight
		}
	} else {
		if minConf <= 0 {
			minConf = DefaultPreferredMinConfidence
		}
		if weight <= 0 {
			weight = DefaultPreferredWeight
		}
		partial = preferredPartialCredit
	}

	conf, ok := matchSkill(skills, canonicalSkill(r.Skill))
	if !ok {
		return 0, weight
	}

	if conf >= minConf {
		return conf * weight, weight
	}
	return conf * partial * weight, weight
}

// matchSkill resolves a target skill to an assertion confidence via, in
// order: exact match, substring containment (penalized), synonym table.
func matchSkill(skills []repository.SkillAssertion, target string) (float64, bool) {
	for _, s := range skills {
		if s.Skill == target {
			return s.Confidence, true
		}
	}

	if len(target) >= minContainmentLength {
		for _, s := range skills {
			if len(s.Skill) < minContainmentLength {
				continue
			}
			if strings.Contains(s.Skill, target) || strings.Contains(target, s.Skill) {
				return s.Confidence * containmentPenalty, true
			}
		}
	}

	for _, alias := range synonymsOf(target) {
		for _, s := range skills {
			if s.Skill == alias {
				return s.Confidence, true
			}
		}
	}

	return 0, false
}

// confidenceScore is the mean confidence over all of the candidate's skill
// assertions, a proxy for overall profile assertion quality.
func confidenceScore(skills []repository.SkillAssertion) float64 {
	if len(skills) == 0 {
		return 0
	}
	var sum float64
	for _, s := range skills {
		sum += s.Confidence
	}
	return sum / float64(len(skills))
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
