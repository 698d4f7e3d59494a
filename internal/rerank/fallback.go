package rerank

import (
	"fmt"
	"strings"

	"github.com/talentsift/talentsift/internal/repository"
	"github.com/talentsift/talentsift/internal/scoring"
)

// specialtyKeywords select the skill-overlap bonus set for the heuristic
// ranking path. Keyed over the closed specialty enum.
var specialtyKeywords = map[repository.Specialty][]string{
	repository.SpecialtyBackend:  {"go", "golang", "java", "python", "node.js", "api", "sql", "postgresql", "microservices", "grpc", "redis"},
	repository.SpecialtyFrontend: {"javascript", "typescript", "react", "vue", "angular", "css", "html", "ui", "accessibility"},
	repository.SpecialtyData:     {"sql", "python", "spark", "pandas", "airflow", "etl", "machine learning", "statistics", "dbt"},
	repository.SpecialtyPlatform: {"kubernetes", "terraform", "aws", "gcp", "docker", "ci/cd", "linux", "observability", "helm"},
	repository.SpecialtyMobile:   {"ios", "android", "swift", "kotlin", "react native", "flutter", "objective-c"},
}

func init() {
	for _, s := range repository.Specialties {
		if _, ok := specialtyKeywords[s]; !ok {
			panic(fmt.Sprintf("rerank: no keyword set for specialty %q", s))
		}
	}
}

// Heuristic scoring constants. Base decays with retrieval position so the
// fallback preserves retrieval order as its primary signal.
const (
	heuristicBase       = 90.0
	heuristicDecay      = 2.5
	heuristicBaseFloor  = 40.0
	skillOverlapBonus   = 2.0
	skillOverlapCap     = 10.0
	titleAlignmentBonus = 5.0
	yearsInBandBonus    = 5.0
)

// heuristicScore ranks a candidate without the LLM: retrieval-position-
// decayed base plus bonuses for specialty keyword overlap, title-level
// alignment, and years-in-band. Deterministic for identical inputs.
func heuristicScore(c Candidate, req Request) float64 {
	base := heuristicBase - heuristicDecay*float64(c.Rank)
	if base < heuristicBaseFloor {
		base = heuristicBaseFloor
	}

	specialty := req.TargetSpecialty
	if !specialty.Valid() {
		specialty = InferSpecialty(req.RoleTitle)
	}

	var overlap float64
	if specialty.Valid() {
		keywords := specialtyKeywords[specialty]
		for _, skill := range c.Skills {
			skill = strings.ToLower(skill)
			for _, kw := range keywords {
				if skill == kw || strings.Contains(skill, kw) {
					overlap += skillOverlapBonus
					break
				}
			}
		}
		if overlap > skillOverlapCap {
			overlap = skillOverlapCap
		}
	}

	score := base + overlap
	if req.TargetLevel.Valid() && scoring.TitleMatchesLevel(c.Title, req.TargetLevel) {
		score += titleAlignmentBonus
	}
	if req.TargetLevel.Valid() && scoring.YearsInBand(c.YearsExperience, req.TargetLevel) {
		score += yearsInBandBonus
	}

	if score > 100 {
		return 100
	}
	return score
}

func heuristicResult(c Candidate, req Request) Result {
	return Result{
		EntityID:  c.ID,
		Score:     heuristicScore(c, req),
		Rationale: "heuristic ranking: retrieval position with skill and level alignment bonuses",
		Heuristic: true,
	}
}

// InferSpecialty guesses a specialty from a role title. Returns an invalid
// (empty) specialty when nothing matches.
func InferSpecialty(title string) repository.Specialty {
	title = strings.ToLower(title)
	if title == "" {
		return ""
	}

	// Literal specialty words in the title win.
	for _, s := range repository.Specialties {
		if strings.Contains(title, string(s)) {
			return s
		}
	}

	switch {
	case strings.Contains(title, "full stack"), strings.Contains(title, "fullstack"):
		return repository.SpecialtyBackend
	case strings.Contains(title, "devops"), strings.Contains(title, "sre"), strings.Contains(title, "infrastructure"):
		return repository.SpecialtyPlatform
	case strings.Contains(title, "ios"), strings.Contains(title, "android"):
		return repository.SpecialtyMobile
	case strings.Contains(title, "machine learning"), strings.Contains(title, "analytics"):
		return repository.SpecialtyData
	case strings.Contains(title, "web"), strings.Contains(title, "ui "):
		return repository.SpecialtyFrontend
	}
	return ""
}
