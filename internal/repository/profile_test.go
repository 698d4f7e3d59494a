package repository

import (
	"errors"
	"testing"
)

func TestNormalize_LegacyProfile(t *testing.T) {
	p := Profile{
		Format: ProfileFormatLegacy,
		Legacy: &LegacyProfile{
			Skills:      []string{"Go", "  PostgreSQL  ", "go", ""},
			SkillScores: map[string]float64{"go": 90},
			Title:       "Backend Engineer",
			Years:       7,
		},
	}

	skills, exp, err := p.Normalize()
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	if len(skills) != 2 {
		t.Fatalf("expected 2 deduped skills, got %d", len(skills))
	}
	if skills[0].Skill != "go" || skills[0].Confidence != 90 {
		t.Errorf("expected go@90, got %s@%f", skills[0].Skill, skills[0].Confidence)
	}
	if skills[1].Skill != "postgresql" || skills[1].Confidence != legacyDefaultConfidence {
		t.Errorf("expected postgresql at the legacy default, got %s@%f", skills[1].Skill, skills[1].Confidence)
	}
	if exp.Level != LevelSenior {
		t.Errorf("expected senior inferred from 7 years, got %s", exp.Level)
	}
	if exp.Title != "Backend Engineer" || exp.Years != 7 {
		t.Errorf("unexpected experience summary: %+v", exp)
	}
}

func TestNormalize_AnalyzedProfile(t *testing.T) {
	p := Profile{
		Format: ProfileFormatAnalyzed,
		Analyzed: &AnalyzedProfile{
			Skills: []SkillAssertion{
				{Skill: "go", Confidence: 150},                                // clamped
				{Skill: "kubernetes", Confidence: 70, Source: SkillSourceExplicit},
			},
			Experience: ExperienceSummary{Years: 3},
			Confidence: 0.9,
		},
	}

	skills, exp, err := p.Normalize()
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	if skills[0].Confidence != 100 {
		t.Errorf("expected confidence clamped to 100, got %f", skills[0].Confidence)
	}
	if skills[0].Source != SkillSourceInferred {
		t.Errorf("expected missing source to default to inferred, got %s", skills[0].Source)
	}
	if skills[1].Source != SkillSourceExplicit {
		t.Errorf("explicit source must be preserved, got %s", skills[1].Source)
	}
	if exp.Level != LevelMid {
		t.Errorf("expected mid inferred from 3 years, got %s", exp.Level)
	}
}

func TestNormalize_UnknownFormat(t *testing.T) {
	cases := []Profile{
		{},
		{Format: "weird"},
		{Format: ProfileFormatLegacy},   // missing payload
		{Format: ProfileFormatAnalyzed}, // missing payload
	}
	for _, p := range cases {
		if _, _, err := p.Normalize(); !errors.Is(err, ErrUnknownProfileFormat) {
			t.Errorf("expected ErrUnknownProfileFormat for %+v, got %v", p, err)
		}
	}
}

func TestDedupeSkills_KeepsHighestConfidence(t *testing.T) {
	skills := []SkillAssertion{
		{Skill: "Go", Confidence: 60},
		{Skill: "go ", Confidence: 90},
		{Skill: "python", Confidence: 70},
		{Skill: "", Confidence: 80},
	}

	out := DedupeSkills(skills)
	if len(out) != 2 {
		t.Fatalf("expected 2 skills, got %d", len(out))
	}
	if out[0].Skill != "go" || out[0].Confidence != 90 {
		t.Errorf("expected go@90 first, got %s@%f", out[0].Skill, out[0].Confidence)
	}
	if out[1].Skill != "python" {
		t.Errorf("expected insertion order preserved, got %s", out[1].Skill)
	}
}

func TestCandidate_PrimarySpecialty(t *testing.T) {
	c := &Candidate{}
	if _, ok := c.PrimarySpecialty(); ok {
		t.Error("expected no primary specialty on an empty candidate")
	}

	c.Specialties = []Specialty{SpecialtyData, SpecialtyBackend}
	got, ok := c.PrimarySpecialty()
	if !ok || got != SpecialtyData {
		t.Errorf("expected first-listed specialty data, got %s", got)
	}
}

func TestLevelAndSpecialtyValidation(t *testing.T) {
	for _, l := range Levels {
		if !l.Valid() {
			t.Errorf("level %s should be valid", l)
		}
	}
	if Level("staff").Valid() {
		t.Error("unlisted level must be invalid")
	}
	if Level("").Valid() {
		t.Error("empty level must be invalid")
	}

	for _, s := range Specialties {
		if !s.Valid() {
			t.Errorf("specialty %s should be valid", s)
		}
	}
	if Specialty("security").Valid() {
		t.Error("unlisted specialty must be invalid")
	}
}
