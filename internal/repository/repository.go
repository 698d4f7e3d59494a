// Package repository defines the candidate domain model and data access interfaces.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Level is a coarse seniority band assigned to a candidate.
type Level string

const (
	LevelEntry     Level = "entry"
	LevelMid       Level = "mid"
	LevelSenior    Level = "senior"
	LevelExecutive Level = "executive"
)

// Levels lists every valid seniority level.
var Levels = []Level{LevelEntry, LevelMid, LevelSenior, LevelExecutive}

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	switch l {
	case LevelEntry, LevelMid, LevelSenior, LevelExecutive:
		return true
	}
	return false
}

// Specialty is a coarse technical sub-domain inferred from a role title.
type Specialty string

const (
	SpecialtyBackend  Specialty = "backend"
	SpecialtyFrontend Specialty = "frontend"
	SpecialtyData     Specialty = "data"
	SpecialtyPlatform Specialty = "platform"
	SpecialtyMobile   Specialty = "mobile"
)

// Specialties lists every valid specialty.
var Specialties = []Specialty{
	SpecialtyBackend, SpecialtyFrontend, SpecialtyData, SpecialtyPlatform, SpecialtyMobile,
}

// Valid reports whether s is a known specialty.
func (s Specialty) Valid() bool {
	switch s {
	case SpecialtyBackend, SpecialtyFrontend, SpecialtyData, SpecialtyPlatform, SpecialtyMobile:
		return true
	}
	return false
}

// SkillSource indicates how a skill assertion was produced.
type SkillSource string

const (
	SkillSourceExplicit SkillSource = "explicit"
	SkillSourceInferred SkillSource = "inferred"
)

// SkillCategory classifies a skill assertion.
type SkillCategory string

const (
	SkillCategoryTechnical SkillCategory = "technical"
	SkillCategorySoft      SkillCategory = "soft"
	SkillCategoryDomain    SkillCategory = "domain"
)

// SkillAssertion is a single skill claim on a candidate profile.
// Skill is stored lower-cased; Confidence is on a 0-100 scale.
type SkillAssertion struct {
	Skill      string        `json:"skill"`
	Confidence float64       `json:"confidence"`
	Source     SkillSource   `json:"source"`
	Category   SkillCategory `json:"category"`
}

// Candidate represents a candidate profile as stored by the candidate store.
type Candidate struct {
	ID                 uuid.UUID        `json:"id"`
	OrgID              uuid.UUID        `json:"org_id,omitempty"`
	Name               string           `json:"name"`
	Email              string           `json:"email,omitempty"`
	Country            string           `json:"country,omitempty"` // empty means unknown, not absent
	CurrentTitle       string           `json:"current_title,omitempty"`
	CurrentLevel       Level            `json:"current_level,omitempty"`
	YearsExperience    float64          `json:"years_experience,omitempty"`
	CompanyTier        int              `json:"company_tier,omitempty"`
	Specialties        []Specialty      `json:"specialties,omitempty"` // first entry is the primary specialty
	Skills             []SkillAssertion `json:"skills,omitempty"`
	AnalysisConfidence float64          `json:"analysis_confidence,omitempty"` // 0-1; 0 means no analysis signal
	OverallScore       float64          `json:"overall_score,omitempty"`
	CreatedAt          time.Time        `json:"created_at,omitempty"`
	UpdatedAt          time.Time        `json:"updated_at,omitempty"`
}

// PrimarySpecialty returns the first-listed specialty, if any.
func (c *Candidate) PrimarySpecialty() (Specialty, bool) {
	if len(c.Specialties) == 0 {
		return "", false
	}
	return c.Specialties[0], true
}

// SkillConfidence looks up an assertion by canonical (lower-cased) skill name.
func (c *Candidate) SkillConfidence(skill string) (float64, bool) {
	skill = strings.ToLower(strings.TrimSpace(skill))
	for _, s := range c.Skills {
		if s.Skill == skill {
			return s.Confidence, true
		}
	}
	return 0, false
}

// DedupeSkills resolves duplicate assertions by canonical name, keeping the
// highest confidence. Input order is otherwise preserved.
func DedupeSkills(skills []SkillAssertion) []SkillAssertion {
	best := make(map[string]SkillAssertion, len(skills))
	order := make([]string, 0, len(skills))
	for _, s := range skills {
		name := strings.ToLower(strings.TrimSpace(s.Skill))
		if name == "" {
			continue
		}
		s.Skill = name
		prev, seen := best[name]
		if !seen {
			order = append(order, name)
			best[name] = s
			continue
		}
		if s.Confidence > prev.Confidence {
			best[name] = s
		}
	}
	out := make([]SkillAssertion, 0, len(best))
	for _, name := range order {
		out = append(out, best[name])
	}
	return out
}

// CandidateStore defines read access to candidate profiles.
// Implementations must be safe for concurrent use.
type CandidateStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Candidate, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Candidate, error)

	// SearchByName performs a fuzzy (substring) name search.
	SearchByName(ctx context.Context, text string, limit int) ([]*Candidate, error)

	// SearchByEmail performs an exact email lookup.
	SearchByEmail(ctx context.Context, email string) (*Candidate, error)

	// OrgMembers reports which of the given ids belong to the organization.
	// Used for tenant scoping as a post-filter.
	OrgMembers(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error)
}
