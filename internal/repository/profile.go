package repository

import (
	"errors"
	"strings"
)

// ProfileFormat tags which analysis variant populated a profile payload.
type ProfileFormat string

const (
	ProfileFormatLegacy   ProfileFormat = "legacy"
	ProfileFormatAnalyzed ProfileFormat = "analyzed"
)

// ErrUnknownProfileFormat is returned when a profile payload carries no
// recognized variant.
var ErrUnknownProfileFormat = errors.New("unknown profile format")

// ExperienceSummary is the canonical experience view produced by Normalize,
// independent of which profile variant was stored.
type ExperienceSummary struct {
	Title string  `json:"title,omitempty"`
	Level Level   `json:"level,omitempty"`
	Years float64 `json:"years,omitempty"`
}

// LegacyProfile is the pre-analysis profile shape: a flat skill list with an
// optional per-skill score map.
type LegacyProfile struct {
	Skills      []string           `json:"skills"`
	SkillScores map[string]float64 `json:"skill_scores,omitempty"`
	Title       string             `json:"title"`
	Years       float64            `json:"years"`
}

// AnalyzedProfile is the current profile shape produced by profile analysis.
type AnalyzedProfile struct {
	Skills     []SkillAssertion  `json:"skills"`
	Experience ExperienceSummary `json:"experience"`
	Confidence float64           `json:"confidence"`
}

// Profile is a tagged union over the two profile payload variants.
// Exactly one of Legacy/Analyzed is set, matching Format.
type Profile struct {
	Format   ProfileFormat    `json:"format"`
	Legacy   *LegacyProfile   `json:"legacy,omitempty"`
	Analyzed *AnalyzedProfile `json:"analyzed,omitempty"`
}

// legacyDefaultConfidence is applied to legacy skills with no score entry.
// Legacy profiles asserted skills without measuring them, so the value is a
// neutral midpoint rather than full confidence.
const legacyDefaultConfidence = 50

// Normalize converts either profile variant into canonical skill assertions
// and an experience summary. Duplicate skills keep the highest confidence.
func (p Profile) Normalize() ([]SkillAssertion, ExperienceSummary, error) {
	switch p.Format {
	case ProfileFormatLegacy:
		if p.Legacy == nil {
			return nil, ExperienceSummary{}, ErrUnknownProfileFormat
		}
		skills := make([]SkillAssertion, 0, len(p.Legacy.Skills))
		for _, name := range p.Legacy.Skills {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			conf := float64(legacyDefaultConfidence)
			if score, ok := p.Legacy.SkillScores[name]; ok {
				conf = clampConfidence(score)
			}
			skills = append(skills, SkillAssertion{
				Skill:      name,
				Confidence: conf,
				Source:     SkillSourceExplicit,
				Category:   SkillCategoryTechnical,
			})
		}
		exp := ExperienceSummary{
			Title: p.Legacy.Title,
			Level: inferLevelFromYears(p.Legacy.Years),
			Years: p.Legacy.Years,
		}
		return DedupeSkills(skills), exp, nil

	case ProfileFormatAnalyzed:
		if p.Analyzed == nil {
			return nil, ExperienceSummary{}, ErrUnknownProfileFormat
		}
		skills := make([]SkillAssertion, 0, len(p.Analyzed.Skills))
		for _, s := range p.Analyzed.Skills {
			s.Confidence = clampConfidence(s.Confidence)
			if s.Source == "" {
				s.Source = SkillSourceInferred
			}
			if s.Category == "" {
				s.Category = SkillCategoryTechnical
			}
			skills = append(skills, s)
		}
		exp := p.Analyzed.Experience
		if exp.Level == "" {
			exp.Level = inferLevelFromYears(exp.Years)
		}
		return DedupeSkills(skills), exp, nil
	}
	return nil, ExperienceSummary{}, ErrUnknownProfileFormat
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// inferLevelFromYears picks a level from years alone when a profile carries
// no explicit level. Title signals are weighed later by the scoring engine.
func inferLevelFromYears(years float64) Level {
	switch {
	case years < 2:
		return LevelEntry
	case years < 5:
		return LevelMid
	default:
		return LevelSenior
	}
}
